package auth_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/gatewarden/gatewarden/internal/auth"
	"github.com/gatewarden/gatewarden/internal/shared"
	_ "github.com/gatewarden/gatewarden/testing"
)

type stubRepo struct {
	mu     sync.Mutex
	users  map[int64]*auth.User
	nextID int64
}

func newStubRepo() *stubRepo {
	return &stubRepo{users: make(map[int64]*auth.User), nextID: 1}
}

func (s *stubRepo) FindByIdentifier(ctx context.Context, identifier string) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == identifier || u.Email == identifier {
			copied := *u
			return &copied, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (s *stubRepo) FindByID(ctx context.Context, id int64) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (s *stubRepo) Create(ctx context.Context, user *auth.User) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Username == user.Username || existing.Email == user.Email {
			return nil, shared.ErrConflict
		}
	}
	created := *user
	created.ID = s.nextID
	created.CreatedAt = time.Now()
	created.UpdatedAt = created.CreatedAt
	s.nextID++
	s.users[created.ID] = &created
	result := created
	return &result, nil
}

func newAuthRouter(t *testing.T, repo auth.Repository) http.Handler {
	t.Helper()
	tokens := auth.NewTokenManager("handler-test-secret", time.Hour, 24*time.Hour)
	service := auth.NewService(repo, auth.NewHasher(bcrypt.MinCost), tokens)
	handler := auth.NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), service, nil)

	r := chi.NewRouter()
	r.Route("/api/auth", handler.MountRoutes)
	return r
}

func postJSON(t *testing.T, handler http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	return res
}

func TestRegisterEndpoint(t *testing.T) {
	router := newAuthRouter(t, newStubRepo())

	res := postJSON(t, router, "/api/auth/register",
		`{"username":"alice","email":"a@x.com","password":"Pw123!"}`)
	require.Equal(t, http.StatusCreated, res.Code)

	var payload struct {
		Message string `json:"message"`
		User    struct {
			ID       int64  `json:"id"`
			Username string `json:"username"`
			Email    string `json:"email"`
			Role     string `json:"role"`
			IsActive bool   `json:"is_active"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &payload))
	assert.Equal(t, "alice", payload.User.Username)
	assert.Equal(t, "user", payload.User.Role)
	assert.True(t, payload.User.IsActive)

	// The password, hashed or not, never appears in the response.
	assert.NotContains(t, res.Body.String(), "Pw123!")
	assert.NotContains(t, res.Body.String(), "password_hash")
}

func TestRegisterConflict(t *testing.T) {
	router := newAuthRouter(t, newStubRepo())

	res := postJSON(t, router, "/api/auth/register",
		`{"username":"alice","email":"a@x.com","password":"Pw123!"}`)
	require.Equal(t, http.StatusCreated, res.Code)

	res = postJSON(t, router, "/api/auth/register",
		`{"username":"alice","email":"b@x.com","password":"Pw123!"}`)
	assert.Equal(t, http.StatusConflict, res.Code)
	assert.Contains(t, res.Body.String(), "error")
}

func TestRegisterValidation(t *testing.T) {
	router := newAuthRouter(t, newStubRepo())

	cases := []string{
		`{"username":"al","email":"a@x.com","password":"Pw123!"}`,
		`{"username":"alice","email":"not-an-email","password":"Pw123!"}`,
		`{"username":"alice","email":"a@x.com","password":"short"}`,
		`{"email":"a@x.com","password":"Pw123!"}`,
		`not json`,
	}
	for _, body := range cases {
		res := postJSON(t, router, "/api/auth/register", body)
		assert.Equal(t, http.StatusBadRequest, res.Code, "body %q", body)
	}
}

func TestLoginEndpoint(t *testing.T) {
	repo := newStubRepo()
	router := newAuthRouter(t, repo)

	res := postJSON(t, router, "/api/auth/register",
		`{"username":"alice","email":"a@x.com","password":"Pw123!"}`)
	require.Equal(t, http.StatusCreated, res.Code)

	res = postJSON(t, router, "/api/auth/login",
		`{"identifier":"alice","password":"Pw123!"}`)
	require.Equal(t, http.StatusOK, res.Code)

	var payload struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		User         struct {
			Username string `json:"username"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &payload))
	assert.NotEmpty(t, payload.AccessToken)
	assert.NotEmpty(t, payload.RefreshToken)
	assert.Equal(t, "alice", payload.User.Username)
}

func TestLoginWrongPassword(t *testing.T) {
	router := newAuthRouter(t, newStubRepo())

	res := postJSON(t, router, "/api/auth/register",
		`{"username":"alice","email":"a@x.com","password":"Pw123!"}`)
	require.Equal(t, http.StatusCreated, res.Code)

	wrongPassword := postJSON(t, router, "/api/auth/login",
		`{"identifier":"alice","password":"wrong1"}`)
	unknownUser := postJSON(t, router, "/api/auth/login",
		`{"identifier":"mallory","password":"Pw123!"}`)

	assert.Equal(t, http.StatusUnauthorized, wrongPassword.Code)
	assert.Equal(t, http.StatusUnauthorized, unknownUser.Code)
	// Generic error: the two failure modes are indistinguishable.
	assert.Equal(t, wrongPassword.Body.String(), unknownUser.Body.String())
}

func TestRefreshEndpoint(t *testing.T) {
	router := newAuthRouter(t, newStubRepo())

	res := postJSON(t, router, "/api/auth/register",
		`{"username":"alice","email":"a@x.com","password":"Pw123!"}`)
	require.Equal(t, http.StatusCreated, res.Code)

	res = postJSON(t, router, "/api/auth/login",
		`{"identifier":"alice","password":"Pw123!"}`)
	require.Equal(t, http.StatusOK, res.Code)

	var login struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &login))

	res = postJSON(t, router, "/api/auth/refresh",
		`{"refresh_token":"`+login.RefreshToken+`"}`)
	require.Equal(t, http.StatusOK, res.Code)
	var refreshed struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &refreshed))
	assert.NotEmpty(t, refreshed.AccessToken)

	// An access token is rejected by the refresh endpoint.
	res = postJSON(t, router, "/api/auth/refresh",
		`{"refresh_token":"`+login.AccessToken+`"}`)
	assert.Equal(t, http.StatusUnauthorized, res.Code)
}
