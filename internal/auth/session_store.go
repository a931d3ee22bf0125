package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
)

// sessionIDBytes はセッションIDに使用する乱数のバイト数。
const sessionIDBytes = 32

// maxIDAttempts はセッションIDが既存IDと衝突した場合の再生成回数の上限。
const maxIDAttempts = 3

// ErrSessionIDExhausted はセッションIDの再生成が上限に達したことを示す。
var ErrSessionIDExhausted = errors.New("could not allocate a unique session ID")

// SessionStore はセッションIDからユーザーIDへの対応をプロセス内で保持する。
// 内部のmapは公開せず、作成・参照・削除の操作のみを提供する。
// プロセス再起動で全セッションは失われる。
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]string // session_id -> user_id
	newID    func() (string, error)
}

// NewSessionStore は空のSessionStoreを生成する。
func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]string),
		newID:    generateSessionID,
	}
}

// Create は新しいセッションIDを発行してuserIDと対応付ける。
// 既存IDとの衝突時はロック内で検出して再生成する。
func (s *SessionStore) Create(userID string) (string, error) {
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		id, err := s.newID()
		if err != nil {
			return "", fmt.Errorf("failed to generate session ID: %w", err)
		}

		s.mu.Lock()
		if _, exists := s.sessions[id]; !exists {
			s.sessions[id] = userID
			s.mu.Unlock()
			return id, nil
		}
		s.mu.Unlock()
	}
	return "", ErrSessionIDExhausted
}

// UserID はセッションIDに対応するユーザーIDを返す。状態は変更しない。
func (s *SessionStore) UserID(sessionID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	userID, ok := s.sessions[sessionID]
	return userID, ok
}

// DeleteIf はセッションIDが現在もuserIDに対応している場合のみ削除する。
// 同じセッションIDへの並行削除では、実際に削除した1件のみがtrueを受け取る。
func (s *SessionStore) DeleteIf(sessionID, userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.sessions[sessionID]
	if !ok || current != userID {
		return false
	}
	delete(s.sessions, sessionID)
	return true
}

// Len は有効なセッション数を返す。
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, sessionIDBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
