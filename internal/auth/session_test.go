package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hitoshi/authgate/internal/model"
	"github.com/hitoshi/authgate/internal/repository"
)

const testSessionName = "_my_session_id"

func newSessionFixture(t *testing.T) (*SessionAuth, *repository.MemoryUserRepo, *model.User) {
	t.Helper()
	repo := repository.NewMemoryUserRepo()
	user, err := repo.Insert(context.Background(), "bob@hbtn.io", []byte("hash"))
	require.NoError(t, err)
	return NewSessionAuth(defaultExcluded, testSessionName, repo), repo, user
}

func requestWithSession(sessionID string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
	if sessionID != "" {
		req.AddCookie(&http.Cookie{Name: testSessionName, Value: sessionID})
	}
	return req
}

func TestSessionAuth_CreateAndResolve(t *testing.T) {
	a, _, user := newSessionFixture(t)

	sessionID, err := a.CreateSession(user.ID)
	require.NoError(t, err)
	require.NotEmpty(t, sessionID)

	userID, ok := a.UserIDForSession(sessionID)
	require.True(t, ok)
	assert.Equal(t, user.ID, userID)

	got, err := a.ResolveIdentity(context.Background(), requestWithSession(sessionID))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, user.Email, got.Email)
	assert.Equal(t, 1, a.ActiveSessions())
}

func TestSessionAuth_CreateSession_EmptyUserID(t *testing.T) {
	a, _, _ := newSessionFixture(t)

	sessionID, err := a.CreateSession("")
	assert.ErrorIs(t, err, ErrEmptyUserID)
	assert.Empty(t, sessionID)
	assert.Equal(t, 0, a.ActiveSessions())
}

func TestSessionAuth_CreateSession_DistinctIDs(t *testing.T) {
	a, _, user := newSessionFixture(t)

	first, err := a.CreateSession(user.ID)
	require.NoError(t, err)
	second, err := a.CreateSession(user.ID)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.Equal(t, 2, a.ActiveSessions())
}

func TestSessionAuth_UserIDForSession_Unknown(t *testing.T) {
	a, _, _ := newSessionFixture(t)

	_, ok := a.UserIDForSession("")
	assert.False(t, ok)
	_, ok = a.UserIDForSession("no-such-session")
	assert.False(t, ok)
}

func TestSessionAuth_ExtractCredentials(t *testing.T) {
	a, _, _ := newSessionFixture(t)

	_, ok := a.ExtractCredentials(requestWithSession(""))
	assert.False(t, ok)

	creds, ok := a.ExtractCredentials(requestWithSession("abc"))
	require.True(t, ok)
	assert.Equal(t, "abc", creds.Secret)
}

func TestSessionAuth_ResolveIdentity_NoSession(t *testing.T) {
	a, _, _ := newSessionFixture(t)
	ctx := context.Background()

	got, err := a.ResolveIdentity(ctx, requestWithSession(""))
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = a.ResolveIdentity(ctx, requestWithSession("forged"))
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = a.ResolveIdentity(ctx, nil)
	require.NoError(t, err)
	assert.Nil(t, got)
}

// セッションは残っているがユーザーがストアに存在しない場合
func TestSessionAuth_ResolveIdentity_StaleSession(t *testing.T) {
	a, _, _ := newSessionFixture(t)

	sessionID, err := a.CreateSession("deleted-user-id")
	require.NoError(t, err)

	got, err := a.ResolveIdentity(context.Background(), requestWithSession(sessionID))
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSessionAuth_ResolveIdentity_DirectoryUnavailable(t *testing.T) {
	repo := &mockUserRepo{
		findOneByFn: func(ctx context.Context, criteria repository.Criteria) (*model.User, error) {
			return nil, errors.New("connection refused")
		},
	}
	a := NewSessionAuth(defaultExcluded, testSessionName, repo)
	sessionID, err := a.CreateSession("user-1")
	require.NoError(t, err)

	got, err := a.ResolveIdentity(context.Background(), requestWithSession(sessionID))
	assert.Nil(t, got)
	assert.ErrorIs(t, err, model.ErrDirectoryUnavailable)
}

func TestSessionAuth_DestroySession(t *testing.T) {
	a, _, user := newSessionFixture(t)
	ctx := context.Background()

	sessionID, err := a.CreateSession(user.ID)
	require.NoError(t, err)

	destroyed, err := a.DestroySession(ctx, requestWithSession(sessionID))
	require.NoError(t, err)
	assert.True(t, destroyed)

	_, ok := a.UserIDForSession(sessionID)
	assert.False(t, ok)

	destroyed, err = a.DestroySession(ctx, requestWithSession(sessionID))
	require.NoError(t, err)
	assert.False(t, destroyed, "second destroy must report false")
}

func TestSessionAuth_DestroySession_NothingToDestroy(t *testing.T) {
	a, _, _ := newSessionFixture(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  *http.Request
	}{
		{"nil request", nil},
		{"no cookie", requestWithSession("")},
		{"unknown session", requestWithSession("forged")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			destroyed, err := a.DestroySession(ctx, tt.req)
			require.NoError(t, err)
			assert.False(t, destroyed)
		})
	}
}

// ユーザーが存在しないセッションは破棄せずfalseを返す
func TestSessionAuth_DestroySession_StaleSessionKept(t *testing.T) {
	a, _, _ := newSessionFixture(t)

	sessionID, err := a.CreateSession("deleted-user-id")
	require.NoError(t, err)

	destroyed, err := a.DestroySession(context.Background(), requestWithSession(sessionID))
	require.NoError(t, err)
	assert.False(t, destroyed)
	assert.Equal(t, 1, a.ActiveSessions())
}

func TestSessionAuth_DestroySession_Concurrent(t *testing.T) {
	a, _, user := newSessionFixture(t)
	sessionID, err := a.CreateSession(user.ID)
	require.NoError(t, err)

	const n = 20
	var wg sync.WaitGroup
	var trues atomic.Int32
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			destroyed, err := a.DestroySession(context.Background(), requestWithSession(sessionID))
			if err == nil && destroyed {
				trues.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), trues.Load())
	assert.Equal(t, 0, a.ActiveSessions())
}

func TestSessionAuth_ConcurrentCreateResolvable(t *testing.T) {
	a, _, user := newSessionFixture(t)
	const n = 50

	var wg sync.WaitGroup
	ids := make(chan string, n)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := a.CreateSession(user.ID)
			if err == nil {
				ids <- id
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]struct{})
	for id := range ids {
		got, ok := a.UserIDForSession(id)
		require.True(t, ok)
		assert.Equal(t, user.ID, got)
		seen[id] = struct{}{}
	}
	assert.Len(t, seen, n)
}

func TestSessionAuth_Cookies(t *testing.T) {
	a, _, _ := newSessionFixture(t)

	c := a.NewSessionCookie("abc")
	assert.Equal(t, testSessionName, c.Name)
	assert.Equal(t, "abc", c.Value)
	assert.Equal(t, "/", c.Path)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)

	expired := a.ExpiredSessionCookie()
	assert.Equal(t, testSessionName, expired.Name)
	assert.Empty(t, expired.Value)
	assert.Equal(t, -1, expired.MaxAge)
}

func TestSessionAuth_Name(t *testing.T) {
	a, _, _ := newSessionFixture(t)
	assert.Equal(t, NameSession, a.Name())
	assert.Equal(t, testSessionName, a.SessionName())
}
