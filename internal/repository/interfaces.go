// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"fmt"
	"sort"

	"github.com/hitoshi/authgate/internal/model"
)

// Criteria はユーザー検索条件。キーはusersテーブルのカラム名。
// 複数指定した場合はAND条件となる。
type Criteria map[string]any

// UserRepository はユーザーアカウントの永続化インターフェース。
// 認証コアはこの契約のみに依存し、ストレージエンジンを前提としない。
type UserRepository interface {
	// FindOneBy は条件に一致するユーザーを1件取得する。
	// 見つからない場合はmodel.ErrUserNotFoundを返す。
	// 未知のカラムが指定された場合はmodel.ErrInvalidFieldを返す。
	FindOneBy(ctx context.Context, criteria Criteria) (*model.User, error)

	// Insert は新規ユーザーを作成し、作成したユーザーを返す。
	// メールアドレスが重複する場合はmodel.ErrDuplicateEmailを返す。
	Insert(ctx context.Context, email string, hashedPassword []byte) (*model.User, error)

	// UpdateByID は指定IDのユーザーの属性を更新する。
	// 全フィールドを検証してから1回で書き込むため、部分更新は発生しない。
	UpdateByID(ctx context.Context, id string, fields map[string]any) error
}

// searchableColumns は検索条件として指定できるカラム。
var searchableColumns = map[string]bool{
	"id":              true,
	"email":           true,
	"hashed_password": true,
	"first_name":      true,
	"last_name":       true,
}

// updatableColumns はUpdateByIDで更新できるカラム。idは不変。
var updatableColumns = map[string]bool{
	"email":           true,
	"hashed_password": true,
	"first_name":      true,
	"last_name":       true,
}

// validateCriteria は検索条件のキーと値の型を検証し、ソート済みのキーを返す。
func validateCriteria(criteria Criteria) ([]string, error) {
	if len(criteria) == 0 {
		return nil, fmt.Errorf("%w: empty criteria", model.ErrInvalidField)
	}
	keys := sortedKeys(criteria)
	for _, k := range keys {
		if !searchableColumns[k] {
			return nil, fmt.Errorf("%w: %s", model.ErrInvalidField, k)
		}
		if err := checkValueType(k, criteria[k]); err != nil {
			return nil, err
		}
	}
	return keys, nil
}

// validateFields は更新フィールドを書き込み前にすべて検証し、ソート済みのキーを返す。
func validateFields(fields map[string]any) ([]string, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: no fields to update", model.ErrInvalidField)
	}
	keys := sortedKeys(fields)
	for _, k := range keys {
		if !updatableColumns[k] {
			return nil, fmt.Errorf("%w: %s", model.ErrInvalidField, k)
		}
		if err := checkValueType(k, fields[k]); err != nil {
			return nil, err
		}
	}
	return keys, nil
}

// checkValueType はカラムに対応する値の型を検証する。
// []byteはhashed_passwordのみ、stringは全カラムで受け付ける。
func checkValueType(column string, v any) error {
	switch v.(type) {
	case string:
		return nil
	case []byte:
		if column == "hashed_password" {
			return nil
		}
	}
	return fmt.Errorf("%w: unsupported value type %T for %s", model.ErrInvalidField, v, column)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
