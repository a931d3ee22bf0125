// Package config は環境変数からアプリケーション設定を読み込む。
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
)

// 認証方式。AUTH_TYPE環境変数の値。
const (
	AuthTypeNone    = ""
	AuthTypeAuth    = "auth"
	AuthTypeBasic   = "basic_auth"
	AuthTypeSession = "session_auth"
)

// DefaultExcludedPaths は認証不要パスのデフォルト値。
var DefaultExcludedPaths = []string{
	"/api/v1/status/",
	"/api/v1/unauthorized/",
	"/api/v1/forbidden/",
	"/api/v1/auth_session/login/",
	"/api/v1/users/",
}

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Auth
	AuthType      string
	SessionName   string
	ExcludedPaths []string
	BcryptCost    int

	// Database
	// 空の場合はプロセス内メモリのユーザーストアを使用する。
	DatabaseURL    string
	DBMaxOpenConns int
	DBMaxIdleConns int

	// Server
	APIHost string
	APIPort string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 設定値が不正な場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.AuthType = strings.TrimSpace(os.Getenv("AUTH_TYPE"))
	switch cfg.AuthType {
	case AuthTypeNone, AuthTypeAuth, AuthTypeBasic, AuthTypeSession:
	default:
		return nil, fmt.Errorf("unsupported AUTH_TYPE: %q", cfg.AuthType)
	}

	cfg.SessionName = os.Getenv("SESSION_NAME")
	if cfg.AuthType == AuthTypeSession && cfg.SessionName == "" {
		return nil, fmt.Errorf("required environment variables are not set: %v", []string{"SESSION_NAME"})
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.DBMaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", 10)
	cfg.DBMaxIdleConns = getEnvInt("DB_MAX_IDLE_CONNS", 5)

	// Optional fields with defaults
	cfg.ExcludedPaths = getEnvList("EXCLUDED_PATHS", DefaultExcludedPaths)
	cfg.BcryptCost = getEnvInt("BCRYPT_COST", 10)
	cfg.APIHost = getEnvString("API_HOST", "0.0.0.0")
	cfg.APIPort = getEnvString("API_PORT", "5000")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "*")

	if _, err := strconv.Atoi(cfg.APIPort); err != nil {
		return nil, fmt.Errorf("invalid API_PORT %q: %w", cfg.APIPort, err)
	}

	return cfg, nil
}

// Addr はHTTPサーバーのリッスンアドレスを返す。
func (c *Config) Addr() string {
	return net.JoinHostPort(c.APIHost, c.APIPort)
}

// UseDatabase はPostgreSQLのユーザーストアを使用するかを返す。
func (c *Config) UseDatabase() bool {
	return c.DatabaseURL != ""
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

// getEnvList はカンマ区切りの環境変数を読み込む。空要素は除外する。
func getEnvList(key string, defaultVal []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return append([]string(nil), defaultVal...)
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
