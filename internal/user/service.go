// Package user はユーザー登録とプロフィール管理のドメインロジックを提供する。
package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"

	"github.com/hitoshi/authgate/internal/model"
	"github.com/hitoshi/authgate/internal/repository"
)

// PasswordHasher はパスワードのハッシュ化と検証のインターフェース。
// auth.BcryptHasher が実装する。
type PasswordHasher interface {
	Hash(password string) ([]byte, error)
	Verify(hash []byte, password string) bool
}

// RegistrationRecorder は登録結果のメトリクス記録インターフェース。
type RegistrationRecorder interface {
	RecordRegistration(outcome string)
}

// 登録結果のラベル値。
const (
	OutcomeCreated   = "created"
	OutcomeDuplicate = "duplicate"
	OutcomeInvalid   = "invalid"
	OutcomeError     = "error"
)

// Service はユーザー管理のサービス層。
type Service struct {
	users    repository.UserRepository
	hasher   PasswordHasher
	recorder RegistrationRecorder
}

// NewService はServiceの新しいインスタンスを生成する。
// recorderはnilでもよい。
func NewService(users repository.UserRepository, hasher PasswordHasher, recorder RegistrationRecorder) *Service {
	return &Service{
		users:    users,
		hasher:   hasher,
		recorder: recorder,
	}
}

// Register は新規ユーザーを登録する。
// 既に登録済みのメールアドレスの場合はDUPLICATE_ACCOUNTのAPIErrorを返す。
// ユーザーストア障害はmodel.ErrDirectoryUnavailableとして返し、「未登録」とは扱わない。
func (s *Service) Register(ctx context.Context, email, password string) (*model.User, error) {
	user, err := s.register(ctx, email, password)
	s.record(registrationOutcome(err))
	return user, err
}

func (s *Service) register(ctx context.Context, email, password string) (*model.User, error) {
	if email == "" {
		return nil, model.NewInvalidInputError("email")
	}
	if password == "" {
		return nil, model.NewInvalidInputError("password")
	}

	existing, err := s.users.FindOneBy(ctx, repository.Criteria{"email": email})
	switch {
	case err == nil && existing != nil:
		return nil, model.NewDuplicateAccountError(email)
	case err != nil && !errors.Is(err, model.ErrUserNotFound):
		return nil, directoryError("failed to check existing user", err)
	}

	hashed, err := s.hasher.Hash(password)
	if err != nil {
		// bcryptは72バイトを超えるパスワードを受け付けない
		return nil, model.NewInvalidInputError("password")
	}

	user, err := s.users.Insert(ctx, email, hashed)
	if errors.Is(err, model.ErrDuplicateEmail) {
		return nil, model.NewDuplicateAccountError(email)
	}
	if err != nil {
		return nil, directoryError("failed to insert user", err)
	}

	slog.Info("user registered",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)
	return user, nil
}

// ValidLogin はメールアドレスとパスワードを検証し、一致したユーザーを返す。
// ユーザーが存在しない場合はUSER_NOT_FOUND、パスワード不一致はWRONG_PASSWORDのAPIErrorを返す。
func (s *Service) ValidLogin(ctx context.Context, email, password string) (*model.User, error) {
	if email == "" {
		return nil, model.NewInvalidInputError("email")
	}
	if password == "" {
		return nil, model.NewInvalidInputError("password")
	}

	user, err := s.users.FindOneBy(ctx, repository.Criteria{"email": email})
	if errors.Is(err, model.ErrUserNotFound) {
		return nil, model.NewUserNotFoundError()
	}
	if err != nil {
		return nil, directoryError("failed to find user", err)
	}

	if !s.hasher.Verify(user.HashedPassword, password) {
		return nil, model.NewWrongPasswordError()
	}
	return user, nil
}

// UpdateProfile はユーザーの属性を更新し、更新後のユーザーを返す。
// 更新できない属性が1つでも含まれる場合は何も更新せずINVALID_FIELDのAPIErrorを返す。
func (s *Service) UpdateProfile(ctx context.Context, id string, fields map[string]any) (*model.User, error) {
	names := slices.Sorted(maps.Keys(fields))
	for _, name := range names {
		if !profileFields[name] {
			return nil, model.NewInvalidFieldError(name)
		}
	}

	if len(fields) > 0 {
		err := s.users.UpdateByID(ctx, id, fields)
		switch {
		case errors.Is(err, model.ErrInvalidField):
			// 値の型が不正な場合
			return nil, model.NewInvalidFieldError(strings.Join(names, ", "))
		case errors.Is(err, model.ErrUserNotFound):
			return nil, model.NewNotFoundError()
		case err != nil:
			return nil, directoryError("failed to update user", err)
		}
	}

	user, err := s.users.FindOneBy(ctx, repository.Criteria{"id": id})
	if errors.Is(err, model.ErrUserNotFound) {
		return nil, model.NewNotFoundError()
	}
	if err != nil {
		return nil, directoryError("failed to reload user", err)
	}
	return user, nil
}

// profileFields はUpdateProfileで更新できる属性。
// メールアドレスとパスワードはプロフィール更新の対象外とする。
var profileFields = map[string]bool{
	"first_name": true,
	"last_name":  true,
}

func (s *Service) record(outcome string) {
	if s.recorder != nil {
		s.recorder.RecordRegistration(outcome)
	}
}

func registrationOutcome(err error) string {
	if err == nil {
		return OutcomeCreated
	}
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case model.ErrCodeDuplicateAccount:
			return OutcomeDuplicate
		case model.ErrCodeInvalidInput:
			return OutcomeInvalid
		}
	}
	return OutcomeError
}

func directoryError(op string, err error) error {
	if errors.Is(err, model.ErrDirectoryUnavailable) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, model.ErrDirectoryUnavailable, err)
}
