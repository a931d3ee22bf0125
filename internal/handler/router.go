package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/authgate/internal/auth"
	"github.com/hitoshi/authgate/internal/metrics"
	"github.com/hitoshi/authgate/internal/middleware"
	"github.com/hitoshi/authgate/internal/model"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	CORSAllowedOrigin string

	// 認証
	// Strategyがnilの場合は認証パイプラインを適用しない。
	Strategy auth.Strategy
	// Sessionsはセッション認証の場合のみ設定する。nilの場合ログイン・ログアウトは公開しない。
	Sessions SessionManager

	// ユーザー
	UserService UserServiceInterface

	// 運用
	HealthChecker HealthChecker
	Metrics       *metrics.Collector
	Gatherer      prometheus.Gatherer
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → Metrics → SecurityHeaders → CORS → StripSlashes → Auth(/api/v1のみ)
//
// /health と /metrics は認証パイプラインの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger))
	if deps.Metrics != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.Metrics))
	}
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(chimw.StripSlashes)

	statusHandler := NewStatusHandler(deps.HealthChecker)
	userHandler := NewUserHandler(deps.UserService)

	// --- 認証パイプライン外のルート ---
	r.Get("/health", statusHandler.Health)
	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Gatherer))
	}

	// --- /api/v1 ---
	// 認証不要パスの判定は戦略に委ねる
	var recorder middleware.AuthRecorder
	if deps.Metrics != nil {
		recorder = deps.Metrics
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.NewAuthMiddleware(deps.Strategy, recorder))

		r.Get("/status", statusHandler.Status)
		r.Get("/unauthorized", statusHandler.Unauthorized)
		r.Get("/forbidden", statusHandler.Forbidden)

		r.Post("/users", userHandler.Register)
		r.Get("/users/me", userHandler.Me)
		r.Put("/users/me", userHandler.UpdateMe)

		if deps.Sessions != nil {
			sessionHandler := NewSessionHandler(deps.UserService, deps.Sessions)
			r.Post("/auth_session/login", sessionHandler.Login)
			r.Delete("/auth_session/logout", sessionHandler.Logout)
		}
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeAPIErrorResponse(w, model.NewNotFoundError())
	})

	return r
}
