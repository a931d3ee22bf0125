package repository

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/authgate/internal/model"
)

// MemoryUserRepo はプロセス内メモリにユーザーを保持するリポジトリ。
// DATABASE_URL未設定時の起動とテストで使用する。プロセス終了で内容は失われる。
type MemoryUserRepo struct {
	mu    sync.RWMutex
	users map[string]*model.User // key: user ID
	order []string               // 挿入順のユーザーID
}

// NewMemoryUserRepo はMemoryUserRepoを生成する。
func NewMemoryUserRepo() *MemoryUserRepo {
	return &MemoryUserRepo{
		users: make(map[string]*model.User),
	}
}

// FindOneBy は条件に一致する最初のユーザーを挿入順で探索して返す。
func (r *MemoryUserRepo) FindOneBy(_ context.Context, criteria Criteria) (*model.User, error) {
	keys, err := validateCriteria(criteria)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, id := range r.order {
		u := r.users[id]
		if matches(u, keys, criteria) {
			return cloneUser(u), nil
		}
	}
	return nil, model.ErrUserNotFound
}

// Insert は新規ユーザーを作成する。メールアドレスが重複する場合はmodel.ErrDuplicateEmailを返す。
func (r *MemoryUserRepo) Insert(_ context.Context, email string, hashedPassword []byte) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.emailTakenLocked(email, "") {
		return nil, model.ErrDuplicateEmail
	}

	now := time.Now().UTC()
	u := &model.User{
		ID:             uuid.New().String(),
		Email:          email,
		HashedPassword: bytes.Clone(hashedPassword),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	r.users[u.ID] = u
	r.order = append(r.order, u.ID)

	return cloneUser(u), nil
}

// UpdateByID は全フィールドを検証してからロック内でまとめて反映する。
func (r *MemoryUserRepo) UpdateByID(_ context.Context, id string, fields map[string]any) error {
	keys, err := validateFields(fields)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return model.ErrUserNotFound
	}
	if email, ok := fields["email"].(string); ok && r.emailTakenLocked(email, id) {
		return model.ErrDuplicateEmail
	}

	updated := cloneUser(u)
	for _, k := range keys {
		if err := setField(updated, k, fields[k]); err != nil {
			return err
		}
	}
	updated.UpdatedAt = time.Now().UTC()
	r.users[id] = updated

	return nil
}

// Len は登録ユーザー数を返す。
func (r *MemoryUserRepo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}

func (r *MemoryUserRepo) emailTakenLocked(email, exceptID string) bool {
	for id, u := range r.users {
		if id != exceptID && u.Email == email {
			return true
		}
	}
	return false
}

func matches(u *model.User, keys []string, criteria Criteria) bool {
	for _, k := range keys {
		if !fieldEquals(u, k, criteria[k]) {
			return false
		}
	}
	return true
}

func fieldEquals(u *model.User, column string, v any) bool {
	if column == "hashed_password" {
		return bytes.Equal(u.HashedPassword, toBytes(v))
	}
	s, _ := v.(string)
	switch column {
	case "id":
		return u.ID == s
	case "email":
		return u.Email == s
	case "first_name":
		return u.FirstName == s
	case "last_name":
		return u.LastName == s
	}
	return false
}

func setField(u *model.User, column string, v any) error {
	if column == "hashed_password" {
		u.HashedPassword = bytes.Clone(toBytes(v))
		return nil
	}
	s, _ := v.(string)
	switch column {
	case "email":
		u.Email = s
	case "first_name":
		u.FirstName = s
	case "last_name":
		u.LastName = s
	default:
		return fmt.Errorf("%w: %s", model.ErrInvalidField, column)
	}
	return nil
}

func toBytes(v any) []byte {
	switch b := v.(type) {
	case []byte:
		return b
	case string:
		return []byte(b)
	}
	return nil
}

func cloneUser(u *model.User) *model.User {
	c := *u
	c.HashedPassword = bytes.Clone(u.HashedPassword)
	return &c
}

// compile-time interface check
var _ UserRepository = (*MemoryUserRepo)(nil)
