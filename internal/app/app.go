// Package app はアプリケーションの初期化と起動モードの切り替えを提供する。
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/authgate/internal/auth"
	"github.com/hitoshi/authgate/internal/config"
	"github.com/hitoshi/authgate/internal/database"
	"github.com/hitoshi/authgate/internal/handler"
	"github.com/hitoshi/authgate/internal/logger"
	"github.com/hitoshi/authgate/internal/metrics"
	"github.com/hitoshi/authgate/internal/repository"
	"github.com/hitoshi/authgate/internal/user"
)

// shutdownTimeout はグレースフルシャットダウンの待機時間。
const shutdownTimeout = 30 * time.Second

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd, err := ParseCommand(args)
	if err != nil {
		return err
	}

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("API_PORT")
		if port == "" {
			port = "5000"
		}
		return runHealthcheck(fmt.Sprintf("http://%s/health", net.JoinHostPort("localhost", port)))
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("addr", cfg.Addr()),
		slog.String("auth_type", cfg.AuthType),
		slog.Bool("database", cfg.UseDatabase()),
	)

	switch cmd {
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return runServe(ctx, cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// ユーザーストアを開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// ctxがキャンセルされるとグレースフルシャットダウンを行う。
func runServe(ctx context.Context, cfg *config.Config) error {
	// 1. ユーザーストア
	users, db, err := openUserRepository(ctx, cfg)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	// 2. メトリクス
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(reg)

	// 3. ルーターの構築
	deps := buildRouterDeps(cfg, users, collector)
	deps.Gatherer = reg
	if db != nil {
		deps.HealthChecker = db
	}
	router := handler.NewRouter(deps)

	// 4. HTTPサーバーの起動
	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server listen error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down API server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// openUserRepository はDATABASE_URLの有無に応じてユーザーストアを開く。
// PostgreSQLを使用する場合は*sql.DBも返す。
func openUserRepository(ctx context.Context, cfg *config.Config) (repository.UserRepository, *sql.DB, error) {
	if !cfg.UseDatabase() {
		slog.Warn("DATABASE_URL is not set; using in-memory user directory")
		return repository.NewMemoryUserRepo(), nil, nil
	}

	db, err := database.Connect(ctx, cfg.DatabaseURL, database.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: database.DefaultPoolConfig.ConnMaxLifetime,
	})
	if err != nil {
		return nil, nil, err
	}

	slog.Info("database connection established")
	return repository.NewPostgresUserRepo(db), db, nil
}

// buildRouterDeps は設定とユーザーストアからルーターの依存関係を組み立てる。
func buildRouterDeps(cfg *config.Config, users repository.UserRepository, collector *metrics.Collector) *handler.RouterDeps {
	hasher := auth.NewBcryptHasher(cfg.BcryptCost)

	deps := &handler.RouterDeps{
		Logger:            slog.Default(),
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		UserService:       user.NewService(users, hasher, collector),
		Metrics:           collector,
	}

	strategy, sessions := newStrategy(cfg, users, hasher)
	if strategy != nil {
		deps.Strategy = strategy
	}
	if sessions != nil {
		deps.Sessions = sessions
		collector.RegisterActiveSessions(sessions.ActiveSessions)
	}
	return deps
}

// newStrategy はAUTH_TYPEに対応する認証戦略を生成する。
// AUTH_TYPEが空の場合は (nil, nil) を返し、認証パイプラインを適用しない。
// セッション認証の場合は同じ値を*auth.SessionAuthとしても返す。
func newStrategy(cfg *config.Config, users repository.UserRepository, hasher auth.PasswordHasher) (auth.Strategy, *auth.SessionAuth) {
	excluded := auth.NewExcludedPaths(cfg.ExcludedPaths...)

	switch cfg.AuthType {
	case config.AuthTypeAuth:
		return auth.NewBase(excluded, cfg.SessionName), nil
	case config.AuthTypeBasic:
		return auth.NewBasicAuth(excluded, cfg.SessionName, users, hasher), nil
	case config.AuthTypeSession:
		s := auth.NewSessionAuth(excluded, cfg.SessionName, users)
		return s, s
	default:
		return nil, nil
	}
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	if !cfg.UseDatabase() {
		return errors.New("DATABASE_URL is required for migrate")
	}

	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	status, err := database.RunMigrations(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully",
		slog.Uint64("version", uint64(status.Version)),
	)
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(url string) error {
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
