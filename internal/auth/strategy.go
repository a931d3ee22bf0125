package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/hitoshi/authgate/internal/model"
)

// 戦略名。AUTH_TYPE環境変数の値と一致する。
const (
	NameAuth    = "auth"
	NameBasic   = "basic_auth"
	NameSession = "session_auth"
)

// Credentials はリクエストから取り出した認証情報。
// リクエストごとに生成され、永続化しない。
type Credentials struct {
	Identifier string
	Secret     string
}

// Strategy はリクエスト認証の戦略インターフェース。
// 起動時に1つの実装を選択し、リクエストパイプラインに注入する。
type Strategy interface {
	// Name は戦略名を返す。
	Name() string

	// RequiresAuth はパスが認証を必要とするかを返す。
	RequiresAuth(path string) bool

	// AuthorizationHeader はAuthorizationヘッダーの値を返す。未設定の場合は空文字。
	AuthorizationHeader(r *http.Request) string

	// SessionCookie はセッションCookieの値を返す。未設定の場合は空文字。
	SessionCookie(r *http.Request) string

	// ExtractCredentials はリクエストから認証情報を取り出す。
	// ヘッダー・Cookieが無いか不正な形式の場合はfalseを返す。
	ExtractCredentials(r *http.Request) (Credentials, bool)

	// ResolveIdentity はリクエストを認証済みユーザーに解決する。
	// 解決できない場合は (nil, nil) を返す。
	// エラーを返すのはユーザーストア障害（model.ErrDirectoryUnavailable）の場合のみ。
	ResolveIdentity(ctx context.Context, r *http.Request) (*model.User, error)
}

// ExcludedPaths は認証不要パスの集合。
// 各パスは末尾スラッシュ付きに正規化され、生成後は変更されない。
type ExcludedPaths struct {
	paths []string
	set   map[string]struct{}
}

// NewExcludedPaths は認証不要パスの集合を生成する。
// 空文字は無視し、重複は最初の出現のみ保持する。
func NewExcludedPaths(paths ...string) ExcludedPaths {
	e := ExcludedPaths{set: make(map[string]struct{}, len(paths))}
	for _, p := range paths {
		if p == "" {
			continue
		}
		p = normalizePath(p)
		if _, ok := e.set[p]; ok {
			continue
		}
		e.set[p] = struct{}{}
		e.paths = append(e.paths, p)
	}
	return e
}

// Paths は正規化済みのパスを登録順で返す。
func (e ExcludedPaths) Paths() []string {
	out := make([]string, len(e.paths))
	copy(out, e.paths)
	return out
}

// Len は登録されているパス数を返す。
func (e ExcludedPaths) Len() int {
	return len(e.paths)
}

// Contains は正規化済みパスが完全一致で含まれるかを返す。
func (e ExcludedPaths) Contains(path string) bool {
	_, ok := e.set[path]
	return ok
}

// RequiresAuth はパスが認証を必要とするかを判定する。
// pathの末尾にスラッシュを補った上でexcludedに完全一致する場合のみfalseを返す。
// pathまたはexcludedが空の場合は常にtrue。
func RequiresAuth(path string, excluded ExcludedPaths) bool {
	if path == "" || excluded.Len() == 0 {
		return true
	}
	return !excluded.Contains(normalizePath(path))
}

func normalizePath(p string) string {
	if !strings.HasSuffix(p, "/") {
		return p + "/"
	}
	return p
}

// Base は全戦略に共通する処理を提供する。
// 単体ではユーザーを解決しない戦略（AUTH_TYPE=auth）として振る舞う。
type Base struct {
	excluded    ExcludedPaths
	sessionName string
}

// NewBase はBaseを生成する。sessionNameはセッションCookie名。
func NewBase(excluded ExcludedPaths, sessionName string) *Base {
	return &Base{excluded: excluded, sessionName: sessionName}
}

// Name は戦略名を返す。
func (b *Base) Name() string {
	return NameAuth
}

// RequiresAuth は設定された認証不要パスでパスを判定する。
func (b *Base) RequiresAuth(path string) bool {
	return RequiresAuth(path, b.excluded)
}

// AuthorizationHeader はAuthorizationヘッダーの値を返す。
func (b *Base) AuthorizationHeader(r *http.Request) string {
	if r == nil {
		return ""
	}
	return r.Header.Get("Authorization")
}

// SessionCookie はセッションCookieの値を返す。
func (b *Base) SessionCookie(r *http.Request) string {
	if r == nil || b.sessionName == "" {
		return ""
	}
	cookie, err := r.Cookie(b.sessionName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// SessionName はセッションCookie名を返す。
func (b *Base) SessionName() string {
	return b.sessionName
}

// ExtractCredentials は常にfalseを返す。
func (b *Base) ExtractCredentials(_ *http.Request) (Credentials, bool) {
	return Credentials{}, false
}

// ResolveIdentity は常に (nil, nil) を返す。
func (b *Base) ResolveIdentity(_ context.Context, _ *http.Request) (*model.User, error) {
	return nil, nil
}

// directoryError はユーザーストアのエラーをmodel.ErrDirectoryUnavailableとして識別できる形にする。
func directoryError(op string, err error) error {
	if errors.Is(err, model.ErrDirectoryUnavailable) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, model.ErrDirectoryUnavailable, err)
}

// compile-time interface check
var _ Strategy = (*Base)(nil)
