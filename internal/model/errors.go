// Package model はドメインモデルを定義する。
package model

import (
	"errors"
	"fmt"
)

// リポジトリ層が返す識別可能なエラー。
// 「見つからない」とバックエンド障害を呼び出し側で区別できるようにする。
var (
	// ErrUserNotFound は条件に一致するユーザーが存在しないことを示す。
	ErrUserNotFound = errors.New("user not found")

	// ErrDirectoryUnavailable はユーザーストア自体の障害（接続断、クエリ失敗等）を示す。
	ErrDirectoryUnavailable = errors.New("user directory unavailable")

	// ErrInvalidField は検索条件・更新対象にアカウント属性でないフィールドが含まれることを示す。
	ErrInvalidField = errors.New("invalid user field")

	// ErrDuplicateEmail はメールアドレスの一意制約違反を示す。
	ErrDuplicateEmail = errors.New("email already exists")
)

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthorized         = "UNAUTHORIZED"
	ErrCodeForbidden            = "FORBIDDEN"
	ErrCodeNotFound             = "NOT_FOUND"
	ErrCodeDirectoryUnavailable = "DIRECTORY_UNAVAILABLE"
	ErrCodeDuplicateAccount     = "DUPLICATE_ACCOUNT"
	ErrCodeInvalidInput         = "INVALID_INPUT"
	ErrCodeInvalidField         = "INVALID_FIELD"
	ErrCodeUserNotFound         = "USER_NOT_FOUND"
	ErrCodeWrongPassword        = "WRONG_PASSWORD"
	ErrCodeInternal             = "INTERNAL_ERROR"
)

// NewUnauthorizedError は認証情報が提示されていない場合のエラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "Authorizationヘッダーまたはセッションを付与してください。",
	}
}

// NewForbiddenError は認証情報からユーザーを特定できなかった場合のエラーを生成する。
func NewForbiddenError() *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  "このリソースへのアクセスは許可されていません。",
		Category: "auth",
		Action:   "認証情報を確認し、ログインし直してください。",
	}
}

// NewNotFoundError はリソースが存在しない場合のエラーを生成する。
func NewNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeNotFound,
		Message:  "リソースが見つかりません。",
		Category: "system",
		Action:   "URLを確認してください。",
	}
}

// NewDirectoryUnavailableError はユーザーストア障害時のエラーを生成する。
func NewDirectoryUnavailableError() *APIError {
	return &APIError{
		Code:     ErrCodeDirectoryUnavailable,
		Message:  "ユーザー情報を取得できませんでした。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewDuplicateAccountError は登録済みのメールアドレスで再登録しようとした場合のエラーを生成する。
func NewDuplicateAccountError(email string) *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateAccount,
		Message:  fmt.Sprintf("ユーザー %s は既に登録されています。", email),
		Category: "auth",
		Action:   "ログインするか、別のメールアドレスで登録してください。",
	}
}

// NewInvalidInputError は必須項目が欠けている場合のエラーを生成する。
func NewInvalidInputError(field string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidInput,
		Message:  fmt.Sprintf("%s が指定されていません。", field),
		Category: "validation",
		Action:   "必須項目を入力してください。",
	}
}

// NewInvalidFieldError は更新できない属性が指定された場合のエラーを生成する。
func NewInvalidFieldError(field string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidField,
		Message:  fmt.Sprintf("更新できない項目です: %s", field),
		Category: "validation",
		Action:   "first_name、last_name のみ更新できます。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "このメールアドレスのユーザーは見つかりません。",
		Category: "auth",
		Action:   "メールアドレスを確認してください。",
	}
}

// NewWrongPasswordError はパスワードが一致しない場合のエラーを生成する。
func NewWrongPasswordError() *APIError {
	return &APIError{
		Code:     ErrCodeWrongPassword,
		Message:  "パスワードが正しくありません。",
		Category: "auth",
		Action:   "パスワードを確認してください。",
	}
}

// NewInternalError は内部サーバーエラーを生成する。
// 詳細はログのみに記録し、ユーザーには一般的なメッセージを返す。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}
