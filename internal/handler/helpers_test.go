package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/authgate/internal/middleware"
	"github.com/hitoshi/authgate/internal/model"
)

// --- モック定義 ---

// mockUserService はUserServiceInterfaceのモック実装。
type mockUserService struct {
	registerFn      func(ctx context.Context, email, password string) (*model.User, error)
	validLoginFn    func(ctx context.Context, email, password string) (*model.User, error)
	updateProfileFn func(ctx context.Context, id string, fields map[string]any) (*model.User, error)
}

func (m *mockUserService) Register(ctx context.Context, email, password string) (*model.User, error) {
	if m.registerFn != nil {
		return m.registerFn(ctx, email, password)
	}
	return &model.User{ID: "user-1", Email: email}, nil
}

func (m *mockUserService) ValidLogin(ctx context.Context, email, password string) (*model.User, error) {
	if m.validLoginFn != nil {
		return m.validLoginFn(ctx, email, password)
	}
	return &model.User{ID: "user-1", Email: email}, nil
}

func (m *mockUserService) UpdateProfile(ctx context.Context, id string, fields map[string]any) (*model.User, error) {
	if m.updateProfileFn != nil {
		return m.updateProfileFn(ctx, id, fields)
	}
	return &model.User{ID: id}, nil
}

// withUser はテスト用にリクエストコンテキストへ認証済みユーザーを注入するヘルパー。
func withUser(r *http.Request, user *model.User) *http.Request {
	return r.WithContext(middleware.ContextWithUser(r.Context(), user))
}

// parseAPIErrorResponse はレスポンスボディからAPIErrorレスポンスをパースするヘルパー。
func parseAPIErrorResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var result map[string]string
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return result
}

// parseJSONObject はレスポンスボディをJSONオブジェクトとしてパースするヘルパー。
func parseJSONObject(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var result map[string]any
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return result
}
