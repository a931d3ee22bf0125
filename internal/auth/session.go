package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/authgate/internal/model"
	"github.com/hitoshi/authgate/internal/repository"
)

// ErrEmptyUserID はユーザーIDなしでセッションを作成しようとしたことを示す。
var ErrEmptyUserID = errors.New("user ID is required")

// SessionAuth はセッションCookieによる認証戦略。
// セッションはプロセス内のSessionStoreにのみ保持され、再起動で失われる。
type SessionAuth struct {
	*Base
	users repository.UserRepository
	store *SessionStore
}

// NewSessionAuth はSessionAuthを生成する。
func NewSessionAuth(excluded ExcludedPaths, sessionName string, users repository.UserRepository) *SessionAuth {
	return &SessionAuth{
		Base:  NewBase(excluded, sessionName),
		users: users,
		store: NewSessionStore(),
	}
}

// Name は戦略名を返す。
func (a *SessionAuth) Name() string {
	return NameSession
}

// ActiveSessions は有効なセッション数を返す。
func (a *SessionAuth) ActiveSessions() int {
	return a.store.Len()
}

// CreateSession はユーザーのセッションを作成し、セッションIDを返す。
func (a *SessionAuth) CreateSession(userID string) (string, error) {
	if userID == "" {
		return "", ErrEmptyUserID
	}

	sessionID, err := a.store.Create(userID)
	if err != nil {
		return "", err
	}

	slog.Info("session created",
		slog.String("user_id", userID),
		slog.String("session_id", sessionID),
	)
	return sessionID, nil
}

// UserIDForSession はセッションIDに対応するユーザーIDを返す。
func (a *SessionAuth) UserIDForSession(sessionID string) (string, bool) {
	if sessionID == "" {
		return "", false
	}
	return a.store.UserID(sessionID)
}

// ExtractCredentials はセッションCookieの値をSecretとして返す。
func (a *SessionAuth) ExtractCredentials(r *http.Request) (Credentials, bool) {
	sessionID := a.SessionCookie(r)
	if sessionID == "" {
		return Credentials{}, false
	}
	return Credentials{Secret: sessionID}, true
}

// ResolveIdentity はセッションCookieをユーザーに解決する。
// 対応するユーザーがユーザーストアに存在しない場合（古いセッション）は (nil, nil) を返す。
func (a *SessionAuth) ResolveIdentity(ctx context.Context, r *http.Request) (*model.User, error) {
	userID, ok := a.UserIDForSession(a.SessionCookie(r))
	if !ok {
		return nil, nil
	}
	return a.findUser(ctx, userID)
}

// DestroySession はリクエストのセッションを破棄する。
// Cookieが無い、セッションが存在しない、ユーザーが存在しない場合はfalseを返す。
// 同じセッションへの並行呼び出しでは1件のみがtrueとなる。
func (a *SessionAuth) DestroySession(ctx context.Context, r *http.Request) (bool, error) {
	sessionID := a.SessionCookie(r)
	if sessionID == "" {
		return false, nil
	}

	userID, ok := a.UserIDForSession(sessionID)
	if !ok {
		return false, nil
	}

	user, err := a.findUser(ctx, userID)
	if err != nil {
		return false, err
	}
	if user == nil {
		return false, nil
	}

	if !a.store.DeleteIf(sessionID, userID) {
		return false, nil
	}

	slog.Info("session destroyed",
		slog.String("user_id", userID),
		slog.String("session_id", sessionID),
	)
	return true, nil
}

// NewSessionCookie はセッションIDを保持するCookieを生成する。
func (a *SessionAuth) NewSessionCookie(sessionID string) *http.Cookie {
	return &http.Cookie{
		Name:     a.SessionName(),
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	}
}

// ExpiredSessionCookie はブラウザのセッションCookieを削除するためのCookieを生成する。
func (a *SessionAuth) ExpiredSessionCookie() *http.Cookie {
	c := a.NewSessionCookie("")
	c.MaxAge = -1
	return c
}

func (a *SessionAuth) findUser(ctx context.Context, userID string) (*model.User, error) {
	user, err := a.users.FindOneBy(ctx, repository.Criteria{"id": userID})
	if errors.Is(err, model.ErrUserNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, directoryError("failed to find user by id", err)
	}
	return user, nil
}

// compile-time interface check
var _ Strategy = (*SessionAuth)(nil)
