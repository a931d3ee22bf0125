package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/authgate/internal/auth"
	"github.com/hitoshi/authgate/internal/model"
	"github.com/hitoshi/authgate/internal/repository"
	"github.com/hitoshi/authgate/internal/user"
)

const testSessionName = "_my_session_id"

// newSessionFixture は登録済みユーザー1件とセッション認証戦略を用意する。
func newSessionFixture(t *testing.T) (*SessionHandler, *auth.SessionAuth, *model.User) {
	t.Helper()

	repo := repository.NewMemoryUserRepo()
	svc := user.NewService(repo, auth.NewBcryptHasher(bcrypt.MinCost), nil)
	u, err := svc.Register(context.Background(), "bob@hbtn.io", "H0lbertonSchool98!")
	if err != nil {
		t.Fatalf("failed to register user: %v", err)
	}

	sessions := auth.NewSessionAuth(auth.NewExcludedPaths(), testSessionName, repo)
	return NewSessionHandler(svc, sessions), sessions, u
}

func loginRequest(form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth_session/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func findCookie(resp *http.Response, name string) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// --- POST /api/v1/auth_session/login テスト ---

func TestSessionHandler_Login_Success(t *testing.T) {
	h, sessions, u := newSessionFixture(t)

	w := httptest.NewRecorder()
	h.Login(w, loginRequest(url.Values{"email": {"bob@hbtn.io"}, "password": {"H0lbertonSchool98!"}}))

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	cookie := findCookie(resp, testSessionName)
	if cookie == nil {
		t.Fatal("expected session cookie to be set")
	}
	if !cookie.HttpOnly {
		t.Error("session cookie should be HttpOnly")
	}
	if !cookie.Secure {
		t.Error("session cookie should be Secure")
	}
	if cookie.SameSite != http.SameSiteLaxMode {
		t.Errorf("SameSite = %v, want Lax", cookie.SameSite)
	}
	if cookie.Path != "/" {
		t.Errorf("Path = %q, want %q", cookie.Path, "/")
	}

	userID, ok := sessions.UserIDForSession(cookie.Value)
	if !ok || userID != u.ID {
		t.Errorf("session maps to %q (ok=%v), want %q", userID, ok, u.ID)
	}

	if body := parseJSONObject(t, w); body["email"] != "bob@hbtn.io" {
		t.Errorf("email = %v, want %q", body["email"], "bob@hbtn.io")
	}
}

func TestSessionHandler_Login_Errors(t *testing.T) {
	tests := []struct {
		name     string
		form     url.Values
		wantCode int
		wantBody string
	}{
		{"missing email", url.Values{"password": {"pw"}}, http.StatusBadRequest, model.ErrCodeInvalidInput},
		{"missing password", url.Values{"email": {"bob@hbtn.io"}}, http.StatusBadRequest, model.ErrCodeInvalidInput},
		{"unknown user", url.Values{"email": {"nobody@hbtn.io"}, "password": {"pw"}}, http.StatusNotFound, model.ErrCodeUserNotFound},
		{"wrong password", url.Values{"email": {"bob@hbtn.io"}, "password": {"wrong"}}, http.StatusUnauthorized, model.ErrCodeWrongPassword},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, sessions, _ := newSessionFixture(t)

			w := httptest.NewRecorder()
			h.Login(w, loginRequest(tt.form))

			if w.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", w.Code, tt.wantCode)
			}
			if body := parseAPIErrorResponse(t, w); body["code"] != tt.wantBody {
				t.Errorf("code = %q, want %q", body["code"], tt.wantBody)
			}
			if findCookie(w.Result(), testSessionName) != nil {
				t.Error("session cookie must not be set on failure")
			}
			if n := sessions.ActiveSessions(); n != 0 {
				t.Errorf("active sessions = %d, want 0", n)
			}
		})
	}
}

// --- DELETE /api/v1/auth_session/logout テスト ---

func TestSessionHandler_Logout(t *testing.T) {
	h, sessions, u := newSessionFixture(t)

	sessionID, err := sessions.CreateSession(u.ID)
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}

	logout := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodDelete, "/api/v1/auth_session/logout", nil)
		req.AddCookie(&http.Cookie{Name: testSessionName, Value: sessionID})
		w := httptest.NewRecorder()
		h.Logout(w, req)
		return w
	}

	first := logout()
	if first.Code != http.StatusOK {
		t.Fatalf("first logout status = %d, want %d", first.Code, http.StatusOK)
	}
	if body := strings.TrimSpace(first.Body.String()); body != "{}" {
		t.Errorf("body = %q, want %q", body, "{}")
	}
	cookie := findCookie(first.Result(), testSessionName)
	if cookie == nil || cookie.MaxAge >= 0 {
		t.Errorf("expected expiring session cookie, got %+v", cookie)
	}
	if _, ok := sessions.UserIDForSession(sessionID); ok {
		t.Error("session should be destroyed")
	}

	second := logout()
	if second.Code != http.StatusNotFound {
		t.Errorf("second logout status = %d, want %d", second.Code, http.StatusNotFound)
	}
}

func TestSessionHandler_Logout_NoCookie_Returns404(t *testing.T) {
	h, _, _ := newSessionFixture(t)

	w := httptest.NewRecorder()
	h.Logout(w, httptest.NewRequest(http.MethodDelete, "/api/v1/auth_session/logout", nil))

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

type failingSessionManager struct {
	SessionManager
}

func (f *failingSessionManager) DestroySession(ctx context.Context, r *http.Request) (bool, error) {
	return false, errors.Join(errors.New("lookup failed"), model.ErrDirectoryUnavailable)
}

func TestSessionHandler_Logout_DirectoryUnavailable_Returns503(t *testing.T) {
	h := NewSessionHandler(&mockUserService{}, &failingSessionManager{})

	w := httptest.NewRecorder()
	h.Logout(w, httptest.NewRequest(http.MethodDelete, "/api/v1/auth_session/logout", nil))

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
}
