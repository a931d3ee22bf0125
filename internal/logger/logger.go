// Package logger は構造化ログの初期化を提供する。
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// RedactedValue はマスク済みの属性に出力される値。
const RedactedValue = "***"

// redactedKeys はログに値を出力しない属性キー（小文字）。
var redactedKeys = map[string]bool{
	"email":           true,
	"password":        true,
	"hashed_password": true,
	"session_id":      true,
	"authorization":   true,
}

// Setup はJSON構造化ログ出力のslog.Loggerを生成して返す。
// writerが指定された場合はそのwriterに出力する。
// 個人情報・秘密情報の属性は値をマスクする。
func Setup(w io.Writer) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       slog.LevelInfo,
		ReplaceAttr: redact,
	})
	return slog.New(handler)
}

// SetupDefault はJSON構造化ログ出力をグローバルロガーとして設定する。
// writerが指定された場合はそのwriterに出力する。
// 本番ではos.Stdoutを渡すことを想定している。
func SetupDefault(w io.Writer) {
	if w == nil {
		w = os.Stdout
	}
	logger := Setup(w)
	slog.SetDefault(logger)
}

// IsRedacted はキーがマスク対象かを返す。大文字小文字は区別しない。
func IsRedacted(key string) bool {
	return redactedKeys[strings.ToLower(key)]
}

// redact はslog.HandlerOptions.ReplaceAttrとして属性値をマスクする。
// グループ内の属性も対象とする。
func redact(_ []string, a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindGroup {
		return a
	}
	if IsRedacted(a.Key) {
		return slog.String(a.Key, RedactedValue)
	}
	return a
}
