// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hitoshi/authgate/internal/model"
)

// HealthChecker はバックエンドの疎通確認インターフェース。*sql.DBが実装する。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// StatusHandler は稼働状況と認証エラー確認用のHTTPハンドラー。
type StatusHandler struct {
	health HealthChecker
}

// NewStatusHandler はStatusHandlerを生成する。healthはnilでもよい。
func NewStatusHandler(health HealthChecker) *StatusHandler {
	return &StatusHandler{health: health}
}

// Status はAPIの稼働状況を返す。
// GET /api/v1/status
func (h *StatusHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "OK"})
}

// Unauthorized は401エラーレスポンスを返す。
// GET /api/v1/unauthorized
func (h *StatusHandler) Unauthorized(w http.ResponseWriter, r *http.Request) {
	writeAPIErrorResponse(w, model.NewUnauthorizedError())
}

// Forbidden は403エラーレスポンスを返す。
// GET /api/v1/forbidden
func (h *StatusHandler) Forbidden(w http.ResponseWriter, r *http.Request) {
	writeAPIErrorResponse(w, model.NewForbiddenError())
}

// Health はプロセスとユーザーストアの疎通を確認する。
// GET /health
func (h *StatusHandler) Health(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		if err := h.health.PingContext(r.Context()); err != nil {
			slog.Error("health check failed", slog.String("error", err.Error()))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
