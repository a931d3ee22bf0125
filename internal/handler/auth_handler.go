package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hitoshi/authgate/internal/model"
)

// SessionManager はセッションハンドラーが必要とするセッション操作のインターフェース。
// auth.SessionAuthが実装する。
type SessionManager interface {
	CreateSession(userID string) (string, error)
	DestroySession(ctx context.Context, r *http.Request) (bool, error)
	NewSessionCookie(sessionID string) *http.Cookie
	ExpiredSessionCookie() *http.Cookie
}

// SessionHandler はセッション認証のログイン・ログアウトのHTTPハンドラー。
type SessionHandler struct {
	users    UserServiceInterface
	sessions SessionManager
}

// NewSessionHandler はSessionHandlerを生成する。
func NewSessionHandler(users UserServiceInterface, sessions SessionManager) *SessionHandler {
	return &SessionHandler{
		users:    users,
		sessions: sessions,
	}
}

// Login はフォームのメールアドレスとパスワードを検証し、セッションCookieを発行する。
// POST /api/v1/auth_session/login
func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	email := r.PostFormValue("email")
	if email == "" {
		writeAPIErrorResponse(w, model.NewInvalidInputError("email"))
		return
	}
	password := r.PostFormValue("password")
	if password == "" {
		writeAPIErrorResponse(w, model.NewInvalidInputError("password"))
		return
	}

	user, err := h.users.ValidLogin(r.Context(), email, password)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	sessionID, err := h.sessions.CreateSession(user.ID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	http.SetCookie(w, h.sessions.NewSessionCookie(sessionID))
	writeJSON(w, http.StatusOK, user.ToJSON())
}

// Logout はリクエストのセッションを破棄し、セッションCookieを削除する。
// 破棄するセッションが無い場合は404を返す。
// DELETE /api/v1/auth_session/logout
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	destroyed, err := h.sessions.DestroySession(r.Context(), r)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if !destroyed {
		slog.Info("logout without active session", slog.String("path", r.URL.Path))
		writeAPIErrorResponse(w, model.NewNotFoundError())
		return
	}

	http.SetCookie(w, h.sessions.ExpiredSessionCookie())
	writeJSON(w, http.StatusOK, struct{}{})
}
