// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/hitoshi/authgate/internal/auth"
	"github.com/hitoshi/authgate/internal/metrics"
	"github.com/hitoshi/authgate/internal/model"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

var (
	// userContextKey はリクエストコンテキストに認証済みユーザーを格納するためのキー。
	userContextKey = contextKey("user")

	// userIDContextKey はリクエストコンテキストにユーザーIDを格納するためのキー。
	userIDContextKey = contextKey("user_id")
)

// AuthRecorder は認証判定結果のメトリクス記録インターフェース。
type AuthRecorder interface {
	RecordAuthOutcome(strategy, outcome string)
}

// NewAuthMiddleware は認証戦略でリクエストを検証するミドルウェアを返す。
// strategyがnilの場合は何も検証しない。
//
//   - 認証不要パス: そのまま通過
//   - Authorizationヘッダー・セッションCookieのどちらも無い: 401
//   - ユーザーストア障害: 503
//   - ユーザーを特定できない: 403
//   - 成功: 認証済みユーザーをコンテキストに注入して通過
func NewAuthMiddleware(strategy auth.Strategy, recorder AuthRecorder) func(next http.Handler) http.Handler {
	record := func(outcome string) {
		if recorder != nil {
			recorder.RecordAuthOutcome(strategy.Name(), outcome)
		}
	}

	return func(next http.Handler) http.Handler {
		if strategy == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strategy.RequiresAuth(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			if strategy.AuthorizationHeader(r) == "" && strategy.SessionCookie(r) == "" {
				record(metrics.AuthOutcomeUnauthorized)
				WriteAPIError(w, model.NewUnauthorizedError())
				return
			}

			user, err := strategy.ResolveIdentity(r.Context(), r)
			if err != nil {
				slog.Error("failed to resolve identity",
					slog.String("strategy", strategy.Name()),
					slog.String("path", r.URL.Path),
					slog.String("error", err.Error()),
				)
				record(metrics.AuthOutcomeUnavailable)
				WriteAPIError(w, model.NewDirectoryUnavailableError())
				return
			}
			if user == nil {
				record(metrics.AuthOutcomeForbidden)
				WriteAPIError(w, model.NewForbiddenError())
				return
			}

			record(metrics.AuthOutcomeAuthenticated)
			setLoggedUserID(r.Context(), user.ID)
			next.ServeHTTP(w, r.WithContext(ContextWithUser(r.Context(), user)))
		})
	}
}

// UserFromContext はリクエストコンテキストから認証済みユーザーを取得する。
// 認証ミドルウェアを通過したリクエストでのみ有効。
func UserFromContext(ctx context.Context) (*model.User, bool) {
	user, ok := ctx.Value(userContextKey).(*model.User)
	return user, ok && user != nil
}

// ContextWithUser はコンテキストに認証済みユーザーとそのIDを注入する。
func ContextWithUser(ctx context.Context, user *model.User) context.Context {
	ctx = context.WithValue(ctx, userContextKey, user)
	return ContextWithUserID(ctx, user.ID)
}

// UserIDFromContext はリクエストコンテキストからユーザーIDを取得する。
// 認証ミドルウェアを通過したリクエストでのみ有効。
func UserIDFromContext(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(userIDContextKey).(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("user ID not found in context")
	}
	return userID, nil
}

// ContextWithUserID はコンテキストにユーザーIDを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}
