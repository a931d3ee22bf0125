package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/hitoshi/authgate/internal/model"
)

// pqUniqueViolation はPostgreSQLの一意制約違反のエラーコード。
const pqUniqueViolation = "23505"

const selectUserColumns = `SELECT id, email, hashed_password, first_name, last_name, created_at, updated_at FROM users`

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

// FindOneBy は条件に一致するユーザーを1件取得する。
// 見つからない場合はmodel.ErrUserNotFoundを返す。
// DBエラーはmodel.ErrDirectoryUnavailableでラップして返す。
func (r *PostgresUserRepo) FindOneBy(ctx context.Context, criteria Criteria) (*model.User, error) {
	keys, err := validateCriteria(criteria)
	if err != nil {
		return nil, err
	}

	// idカラムはUUID型のため、形式不正なIDはクエリせずに未検出として扱う
	if v, ok := criteria["id"].(string); ok {
		if _, err := uuid.Parse(v); err != nil {
			return nil, model.ErrUserNotFound
		}
	}

	where := make([]string, len(keys))
	args := make([]any, len(keys))
	for i, k := range keys {
		where[i] = fmt.Sprintf("%s = $%d", k, i+1)
		args[i] = columnValue(k, criteria[k])
	}

	query := selectUserColumns + ` WHERE ` + strings.Join(where, " AND ") + ` LIMIT 1`

	user := &model.User{}
	err = r.db.QueryRowContext(ctx, query, args...).Scan(
		&user.ID, &user.Email, &user.HashedPassword,
		&user.FirstName, &user.LastName,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w: %w", model.ErrDirectoryUnavailable, err)
	}

	return user, nil
}

// Insert は新規ユーザーを作成する。
// メールアドレスの一意制約違反はmodel.ErrDuplicateEmailとして返す。
func (r *PostgresUserRepo) Insert(ctx context.Context, email string, hashedPassword []byte) (*model.User, error) {
	now := time.Now().UTC()
	user := &model.User{
		ID:             uuid.New().String(),
		Email:          email,
		HashedPassword: hashedPassword,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, email, hashed_password, first_name, last_name, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		user.ID, user.Email, user.HashedPassword, user.FirstName, user.LastName, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, model.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to insert user: %w: %w", model.ErrDirectoryUnavailable, err)
	}

	return user, nil
}

// UpdateByID は指定IDのユーザーの属性を更新する。
// 全フィールドを検証した後に単一のUPDATE文で書き込む。
func (r *PostgresUserRepo) UpdateByID(ctx context.Context, id string, fields map[string]any) error {
	keys, err := validateFields(fields)
	if err != nil {
		return err
	}
	if _, err := uuid.Parse(id); err != nil {
		return model.ErrUserNotFound
	}

	sets := make([]string, 0, len(keys)+1)
	args := make([]any, 0, len(keys)+2)
	for i, k := range keys {
		sets = append(sets, fmt.Sprintf("%s = $%d", k, i+1))
		args = append(args, columnValue(k, fields[k]))
	}
	sets = append(sets, fmt.Sprintf("updated_at = $%d", len(keys)+1))
	args = append(args, time.Now().UTC(), id)

	query := `UPDATE users SET ` + strings.Join(sets, ", ") + fmt.Sprintf(` WHERE id = $%d`, len(keys)+2)

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return model.ErrDuplicateEmail
		}
		return fmt.Errorf("failed to update user: %w: %w", model.ErrDirectoryUnavailable, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w: %w", model.ErrDirectoryUnavailable, err)
	}
	if rowsAffected == 0 {
		return model.ErrUserNotFound
	}
	return nil
}

// columnValue はカラムに書き込む値を正規化する。
// hashed_passwordはBYTEA型のため文字列で渡された場合も[]byteに変換する。
func columnValue(column string, v any) any {
	if s, ok := v.(string); ok && column == "hashed_password" {
		return []byte(s)
	}
	return v
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == pqUniqueViolation
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
