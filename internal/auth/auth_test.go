package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	repo "Hestia/internal/repo"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type fakeUserRepo struct {
	users     map[string]fakeUser // by login
	nextID    int
	createErr error
}

type fakeUser struct {
	id   int
	hash string
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]fakeUser), nextID: 1}
}

func (f *fakeUserRepo) CreateUser(_ context.Context, login, _, password string) (int, error) {
	if f.createErr != nil {
		return 0, f.createErr
	}
	if _, exists := f.users[login]; exists {
		return 0, errors.New("duplicate login")
	}
	id := f.nextID
	f.nextID++
	f.users[login] = fakeUser{id: id, hash: password}
	return id, nil
}

func (f *fakeUserRepo) GetBylogin(_ context.Context, login string) (int, string, error) {
	u, ok := f.users[login]
	if !ok {
		return 0, "", nil
	}
	return u.id, u.hash, nil
}

func (f *fakeUserRepo) GetProfileByID(_ context.Context, _ int) (repo.Profile, error) {
	return repo.Profile{}, repo.ErrNotFound
}

func (f *fakeUserRepo) UpdateProfile(_ context.Context, _ int, _, _, _ string) error { return nil }
func (f *fakeUserRepo) UpdateLogo(_ context.Context, _ int, _ string) error          { return nil }

func newTestEnv() (*Authenv, *fakeUserRepo) {
	users := newFakeUserRepo()
	return &Authenv{JWTkey: []byte("test-key"), Repo: users, Logger: zap.NewNop()}, users
}

func postJSON(t *testing.T, h http.HandlerFunc, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h(rr, req)
	return rr
}

func TestRegisterHandler_CreatesUserAndSession(t *testing.T) {
	env, users := newTestEnv()

	rr := postJSON(t, env.RegisterHandler, "/api/register", Registerrequest{
		Login: "alice", Email: "alice@example.com", Password: "hunter22",
	})

	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Contains(t, rr.Body.String(), `"login":"alice"`)
	assert.Contains(t, users.users, "alice")

	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "session_token", cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
}

func TestRegisterHandler_Validation(t *testing.T) {
	env, _ := newTestEnv()

	rr := postJSON(t, env.RegisterHandler, "/api/register", Registerrequest{Login: "alice"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = postJSON(t, env.RegisterHandler, "/api/register", Registerrequest{
		Login: "alice", Email: "alice@example.com", Password: "short",
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "at least 6 characters")
}

func TestRegisterHandler_DuplicateConflicts(t *testing.T) {
	env, users := newTestEnv()
	users.users["alice"] = fakeUser{id: 1, hash: "x"}

	rr := postJSON(t, env.RegisterHandler, "/api/register", Registerrequest{
		Login: "alice", Email: "alice@example.com", Password: "hunter22",
	})
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestAuthHandler_LoginFlow(t *testing.T) {
	env, users := newTestEnv()
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter22"), bcrypt.MinCost)
	require.NoError(t, err)
	users.users["alice"] = fakeUser{id: 5, hash: string(hash)}

	rr := postJSON(t, env.AuthHandler, "/api/login", Loginrequest{Login: "alice", Password: "hunter22"})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"id":5`)
	require.Len(t, rr.Result().Cookies(), 1)

	rr = postJSON(t, env.AuthHandler, "/api/login", Loginrequest{Login: "alice", Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	// Unknown logins take the same 401 path as bad passwords.
	rr = postJSON(t, env.AuthHandler, "/api/login", Loginrequest{Login: "ghost", Password: "hunter22"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestAuthMiddleware_RejectsWithoutCookie(t *testing.T) {
	env, _ := newTestEnv()

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/user/profile", nil)

	env.AuthMiddleware(next).ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Contains(t, rr.Body.String(), "Authentication required")
}

func TestAuthMiddleware_RejectsForeignSignature(t *testing.T) {
	env, _ := newTestEnv()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": 5, "login": "alice", "exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte("some-other-key"))
	require.NoError(t, err)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/user/profile", nil)
	req.AddCookie(&http.Cookie{Name: "session_token", Value: signed})

	env.AuthMiddleware(next).ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestAuthMiddleware_PassesIdentityToContext(t *testing.T) {
	env, _ := newTestEnv()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": 5, "login": "alice", "exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString(env.JWTkey)
	require.NoError(t, err)

	var gotID int
	var gotLogin string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID, _ = UserID(r.Context())
		gotLogin, _ = UserLogin(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/user/profile", nil)
	req.AddCookie(&http.Cookie{Name: "session_token", Value: signed})

	env.AuthMiddleware(next).ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 5, gotID)
	assert.Equal(t, "alice", gotLogin)
}

func TestIPRateLimiter(t *testing.T) {
	limiter := NewIPRateLimiter(1, 2)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	h := limiter.LimitMiddleware(next)

	for i := 0; i < 2; i++ {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/login", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		h.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code)
	}

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/login", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)

	// A different address gets its own bucket.
	rr = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/login", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}
