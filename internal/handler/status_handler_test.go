package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/authgate/internal/model"
)

type mockHealthChecker struct {
	err error
}

func (m *mockHealthChecker) PingContext(ctx context.Context) error {
	return m.err
}

func TestStatusHandler_Status(t *testing.T) {
	h := NewStatusHandler(nil)

	w := httptest.NewRecorder()
	h.Status(w, httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if got := w.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q, want %q", got, "application/json")
	}
	body := parseJSONObject(t, w)
	if body["status"] != "OK" {
		t.Errorf("body.status = %v, want %q", body["status"], "OK")
	}
}

func TestStatusHandler_Unauthorized(t *testing.T) {
	h := NewStatusHandler(nil)

	w := httptest.NewRecorder()
	h.Unauthorized(w, httptest.NewRequest(http.MethodGet, "/api/v1/unauthorized", nil))

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
	if body := parseAPIErrorResponse(t, w); body["code"] != model.ErrCodeUnauthorized {
		t.Errorf("code = %q, want %q", body["code"], model.ErrCodeUnauthorized)
	}
}

func TestStatusHandler_Forbidden(t *testing.T) {
	h := NewStatusHandler(nil)

	w := httptest.NewRecorder()
	h.Forbidden(w, httptest.NewRequest(http.MethodGet, "/api/v1/forbidden", nil))

	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", w.Code, http.StatusForbidden)
	}
	if body := parseAPIErrorResponse(t, w); body["code"] != model.ErrCodeForbidden {
		t.Errorf("code = %q, want %q", body["code"], model.ErrCodeForbidden)
	}
}

func TestStatusHandler_Health(t *testing.T) {
	tests := []struct {
		name    string
		checker HealthChecker
		want    int
	}{
		{"no backend", nil, http.StatusOK},
		{"backend ok", &mockHealthChecker{}, http.StatusOK},
		{"backend down", &mockHealthChecker{err: errors.New("connection refused")}, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewStatusHandler(tt.checker)

			w := httptest.NewRecorder()
			h.Health(w, httptest.NewRequest(http.MethodGet, "/health", nil))

			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestHandleServiceError_Mapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantBody string
	}{
		{"duplicate", model.NewDuplicateAccountError("bob@hbtn.io"), http.StatusConflict, model.ErrCodeDuplicateAccount},
		{"invalid input", model.NewInvalidInputError("email"), http.StatusBadRequest, model.ErrCodeInvalidInput},
		{"invalid field", model.NewInvalidFieldError("id"), http.StatusBadRequest, model.ErrCodeInvalidField},
		{"user not found", model.NewUserNotFoundError(), http.StatusNotFound, model.ErrCodeUserNotFound},
		{"wrong password", model.NewWrongPasswordError(), http.StatusUnauthorized, model.ErrCodeWrongPassword},
		{"directory unavailable", errors.Join(errors.New("lookup"), model.ErrDirectoryUnavailable), http.StatusServiceUnavailable, model.ErrCodeDirectoryUnavailable},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			handleServiceError(w, tt.err)

			if w.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", w.Code, tt.wantCode)
			}
			if body := parseAPIErrorResponse(t, w); body["code"] != tt.wantBody {
				t.Errorf("code = %q, want %q", body["code"], tt.wantBody)
			}
		})
	}
}
