// Package auth はリクエスト認証の戦略（Basic認証・セッション認証）と
// パスワードハッシュを提供する。
package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// PasswordHasher はパスワードのハッシュ化と検証のインターフェース。
type PasswordHasher interface {
	// Hash は呼び出しごとに新しいソルトを生成してハッシュ化する。
	// 同じパスワードでも毎回異なるバイト列を返す。
	Hash(password string) ([]byte, error)

	// Verify はハッシュに埋め込まれたソルトで再計算し、一致するかを返す。
	// ハッシュが不正な形式の場合もfalseを返す。
	Verify(hash []byte, password string) bool
}

// BcryptHasher はbcryptを使用したPasswordHasherの実装。
// 生成されるハッシュは "$2a$<cost>$<salt+digest>" 形式でアルゴリズムとソルトを含む。
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher はBcryptHasherを生成する。
// costはbcrypt.MinCost〜bcrypt.MaxCostの範囲に丸める。0はbcrypt.DefaultCostとして扱う。
func NewBcryptHasher(cost int) *BcryptHasher {
	switch {
	case cost == 0:
		cost = bcrypt.DefaultCost
	case cost < bcrypt.MinCost:
		cost = bcrypt.MinCost
	case cost > bcrypt.MaxCost:
		cost = bcrypt.MaxCost
	}
	return &BcryptHasher{cost: cost}
}

// Cost はハッシュ生成に使用するコストを返す。
func (h *BcryptHasher) Cost() int {
	return h.cost
}

// Hash はパスワードをハッシュ化する。
// bcryptは72バイトを超える入力を受け付けないため、その場合はbcrypt.ErrPasswordTooLongを返す。
func (h *BcryptHasher) Hash(password string) ([]byte, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	return hashed, nil
}

// Verify はパスワードがハッシュと一致するかを検証する。
func (h *BcryptHasher) Verify(hash []byte, password string) bool {
	if len(hash) == 0 {
		return false
	}
	return bcrypt.CompareHashAndPassword(hash, []byte(password)) == nil
}

// compile-time interface check
var _ PasswordHasher = (*BcryptHasher)(nil)
