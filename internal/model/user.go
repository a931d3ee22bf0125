// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーのアカウントを表す。
// HashedPasswordはbcryptのハッシュ文字列で、平文パスワードは保持しない。
type User struct {
	ID             string
	Email          string
	HashedPassword []byte
	FirstName      string
	LastName       string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// DisplayName は表示用の名前を返す。
// 姓名が未設定の場合はメールアドレスを返す。
func (u *User) DisplayName() string {
	switch {
	case u.FirstName == "" && u.LastName == "":
		return u.Email
	case u.LastName == "":
		return u.FirstName
	case u.FirstName == "":
		return u.LastName
	default:
		return u.FirstName + " " + u.LastName
	}
}

// UserJSON はAPIレスポンス用のユーザー表現。
// パスワードハッシュは含めない。
type UserJSON struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name,omitempty"`
	LastName  string    `json:"last_name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ToJSON はAPIレスポンス用の表現に変換する。
func (u *User) ToJSON() UserJSON {
	return UserJSON{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}
