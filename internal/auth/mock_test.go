package auth

import (
	"context"

	"github.com/hitoshi/authgate/internal/model"
	"github.com/hitoshi/authgate/internal/repository"
)

// --- モック定義 ---

type mockUserRepo struct {
	findOneByFn  func(ctx context.Context, criteria repository.Criteria) (*model.User, error)
	insertFn     func(ctx context.Context, email string, hashedPassword []byte) (*model.User, error)
	updateByIDFn func(ctx context.Context, id string, fields map[string]any) error
}

func (m *mockUserRepo) FindOneBy(ctx context.Context, criteria repository.Criteria) (*model.User, error) {
	if m.findOneByFn != nil {
		return m.findOneByFn(ctx, criteria)
	}
	return nil, model.ErrUserNotFound
}

func (m *mockUserRepo) Insert(ctx context.Context, email string, hashedPassword []byte) (*model.User, error) {
	if m.insertFn != nil {
		return m.insertFn(ctx, email, hashedPassword)
	}
	return &model.User{ID: "new-id", Email: email, HashedPassword: hashedPassword}, nil
}

func (m *mockUserRepo) UpdateByID(ctx context.Context, id string, fields map[string]any) error {
	if m.updateByIDFn != nil {
		return m.updateByIDFn(ctx, id, fields)
	}
	return nil
}

// countingHasher はVerifyの呼び出し回数を記録する。
type countingHasher struct {
	PasswordHasher
	verifyCalls int
}

func (h *countingHasher) Verify(hash []byte, password string) bool {
	h.verifyCalls++
	return h.PasswordHasher.Verify(hash, password)
}

var _ repository.UserRepository = (*mockUserRepo)(nil)
