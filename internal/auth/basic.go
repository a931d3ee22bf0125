package auth

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/hitoshi/authgate/internal/model"
	"github.com/hitoshi/authgate/internal/repository"
)

const basicScheme = "Basic"

// BasicAuth は "Authorization: Basic <base64(email:password)>" による認証戦略。
type BasicAuth struct {
	*Base
	users     repository.UserRepository
	hasher    PasswordHasher
	dummyHash []byte
}

// NewBasicAuth はBasicAuthを生成する。
// ユーザー未検出時にも検証と同等の計算を行うため、起動時にダミーハッシュを1つ生成する。
func NewBasicAuth(excluded ExcludedPaths, sessionName string, users repository.UserRepository, hasher PasswordHasher) *BasicAuth {
	dummy, _ := hasher.Hash("authgate-dummy-password")
	return &BasicAuth{
		Base:      NewBase(excluded, sessionName),
		users:     users,
		hasher:    hasher,
		dummyHash: dummy,
	}
}

// Name は戦略名を返す。
func (a *BasicAuth) Name() string {
	return NameBasic
}

// ExtractCredentials はAuthorizationヘッダーからメールアドレスとパスワードを取り出す。
func (a *BasicAuth) ExtractCredentials(r *http.Request) (Credentials, bool) {
	return ParseBasicAuthorization(a.AuthorizationHeader(r))
}

// ResolveIdentity はBasic認証情報をユーザーに解決する。
// ユーザー未検出・パスワード不一致は (nil, nil)、ユーザーストア障害のみエラーを返す。
func (a *BasicAuth) ResolveIdentity(ctx context.Context, r *http.Request) (*model.User, error) {
	creds, ok := a.ExtractCredentials(r)
	if !ok || creds.Identifier == "" || creds.Secret == "" {
		return nil, nil
	}

	user, err := a.users.FindOneBy(ctx, repository.Criteria{"email": creds.Identifier})
	if errors.Is(err, model.ErrUserNotFound) {
		// 応答時間からアカウントの有無を推測されないよう検証と同等の計算を行う
		a.hasher.Verify(a.dummyHash, creds.Secret)
		return nil, nil
	}
	if err != nil {
		return nil, directoryError("failed to find user by email", err)
	}

	if !a.hasher.Verify(user.HashedPassword, creds.Secret) {
		return nil, nil
	}
	return user, nil
}

// ParseBasicAuthorization はAuthorizationヘッダーの値をCredentialsに変換する。
// スキームが "Basic" で、空白区切りのペイロードが1つだけ続く場合のみ受け付ける。
// ペイロードはbase64でUTF-8文字列にデコードし、最初のコロンで分割する。
func ParseBasicAuthorization(header string) (Credentials, bool) {
	fields := strings.Fields(header)
	if len(fields) != 2 || fields[0] != basicScheme {
		return Credentials{}, false
	}

	decoded, err := base64.StdEncoding.DecodeString(fields[1])
	if err != nil || !utf8.Valid(decoded) {
		return Credentials{}, false
	}

	identifier, secret, found := strings.Cut(string(decoded), ":")
	if !found {
		return Credentials{}, false
	}
	return Credentials{Identifier: identifier, Secret: secret}, true
}

// compile-time interface check
var _ Strategy = (*BasicAuth)(nil)
