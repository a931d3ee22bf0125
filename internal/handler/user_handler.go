package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/authgate/internal/middleware"
	"github.com/hitoshi/authgate/internal/model"
)

// maxRequestBodySize はJSONリクエストボディの上限バイト数。
const maxRequestBodySize = 1 << 20

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	Register(ctx context.Context, email, password string) (*model.User, error)
	ValidLogin(ctx context.Context, email, password string) (*model.User, error)
	UpdateProfile(ctx context.Context, id string, fields map[string]any) (*model.User, error)
}

// registerRequest はユーザー登録リクエストのボディ。
type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserHandler はユーザー管理のHTTPハンドラー。
type UserHandler struct {
	service UserServiceInterface
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface) *UserHandler {
	return &UserHandler{
		service: service,
	}
}

// Register は新規ユーザーを登録する。
// POST /api/v1/users
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodySize)).Decode(&req); err != nil {
		writeAPIErrorResponse(w, model.NewInvalidInputError("request body"))
		return
	}

	user, err := h.service.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, user.ToJSON())
}

// Me は認証済みユーザーの情報を返す。
// GET /api/v1/users/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeAPIErrorResponse(w, model.NewNotFoundError())
		return
	}

	writeJSON(w, http.StatusOK, user.ToJSON())
}

// UpdateMe は認証済みユーザーのプロフィールを更新する。
// PUT /api/v1/users/me
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	current, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeAPIErrorResponse(w, model.NewNotFoundError())
		return
	}

	var fields map[string]any
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodySize)).Decode(&fields); err != nil {
		writeAPIErrorResponse(w, model.NewInvalidInputError("request body"))
		return
	}

	user, err := h.service.UpdateProfile(r.Context(), current.ID, fields)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user.ToJSON())
}
