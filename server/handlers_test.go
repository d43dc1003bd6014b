package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trackanalyzer/config"
	"trackanalyzer/core/auth"
	"trackanalyzer/gateway"
	"trackanalyzer/model"
	"trackanalyzer/repository"
	"trackanalyzer/storage"
)

// fakeUserRepo backs the middleware's identity resolution.
type fakeUserRepo struct {
	users map[int64]*model.User
	err   error
	delay time.Duration
}

func (r *fakeUserRepo) Create(ctx context.Context, user *model.User) (int64, error) {
	return 0, errors.New("not implemented")
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id int64) (*model.User, error) {
	if r.delay > 0 {
		select {
		case <-time.After(r.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if r.err != nil {
		return nil, r.err
	}
	return r.users[id], nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return nil, nil
}

func (r *fakeUserRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return nil, nil
}

func (r *fakeUserRepo) PurgeUserData(ctx context.Context, userID int64) (*repository.PurgeResult, error) {
	return nil, errors.New("not implemented")
}

// expiryCapturingStore records the expiry each signing request carries.
type expiryCapturingStore struct {
	expiries []time.Duration
}

func (s *expiryCapturingStore) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (string, error) {
	return key, nil
}

func (s *expiryCapturingStore) SignedURL(ctx context.Context, path string, expiry time.Duration) (string, error) {
	s.expiries = append(s.expiries, expiry)
	return "https://signed.test/" + path, nil
}

func (s *expiryCapturingStore) Remove(ctx context.Context, path string) error { return nil }

func (s *expiryCapturingStore) RemoveReadingObjects(ctx context.Context, readingID string) error {
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		SignedURLDetailExpiry:    2 * time.Hour,
		SignedURLDefaultExpiry:   30 * time.Minute,
		IdentityBootstrapTimeout: time.Second,
	}
}

func newAuthTestHandler(t *testing.T, users *fakeUserRepo) (*APIHandler, *auth.TokenIssuer) {
	t.Helper()
	if users == nil {
		users = &fakeUserRepo{users: map[int64]*model.User{
			7: {ID: 7, Username: "crew", Email: "crew@team.test"},
		}}
	}
	tokens := auth.NewTokenIssuer("test-secret", time.Hour)
	return NewAPIHandler(nil, users, tokens, testConfig()), tokens
}

func bearerRequest(t *testing.T, tokens *auth.TokenIssuer, userID int64) *http.Request {
	t.Helper()
	token, err := tokens.Generate(userID, "crew@team.test", time.Now())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/tracks", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	h, tokens := newAuthTestHandler(t, nil)

	var got auth.Identity
	next := func(w http.ResponseWriter, r *http.Request) {
		got = IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}

	rec := httptest.NewRecorder()
	h.AuthMiddleware(next)(rec, bearerRequest(t, tokens, 7))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, got.IsAuthenticated())
	assert.Equal(t, int64(7), got.UserID)
	assert.Equal(t, "crew@team.test", got.Email)
}

func TestAuthMiddleware_MissingHeader(t *testing.T) {
	h, _ := newAuthTestHandler(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/tracks", nil)
	rec := httptest.NewRecorder()

	h.AuthMiddleware(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next handler must not run")
	})(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddleware_MalformedHeader(t *testing.T) {
	h, _ := newAuthTestHandler(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/tracks", nil)
	req.Header.Set("Authorization", "Token abc")
	rec := httptest.NewRecorder()

	h.AuthMiddleware(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next handler must not run")
	})(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddleware_BadToken(t *testing.T) {
	h, _ := newAuthTestHandler(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/tracks", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec := httptest.NewRecorder()

	h.AuthMiddleware(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next handler must not run")
	})(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddleware_LookupFailureDegradesToAnonymous(t *testing.T) {
	h, tokens := newAuthTestHandler(t, &fakeUserRepo{err: errors.New("connection reset")})

	// The request still reaches the handler; the gateway's identity gating
	// turns the degraded session into empty reads and rejected writes.
	var got auth.Identity
	next := func(w http.ResponseWriter, r *http.Request) {
		got = IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}

	rec := httptest.NewRecorder()
	h.AuthMiddleware(next)(rec, bearerRequest(t, tokens, 7))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, got.IsAuthenticated())
	assert.Equal(t, auth.Anonymous(), got)
}

func TestAuthMiddleware_SlowLookupHitsBootstrapTimeout(t *testing.T) {
	users := &fakeUserRepo{
		users: map[int64]*model.User{7: {ID: 7, Email: "crew@team.test"}},
		delay: 500 * time.Millisecond,
	}
	tokens := auth.NewTokenIssuer("test-secret", time.Hour)
	cfg := testConfig()
	cfg.IdentityBootstrapTimeout = 10 * time.Millisecond
	h := NewAPIHandler(nil, users, tokens, cfg)

	var got auth.Identity
	next := func(w http.ResponseWriter, r *http.Request) {
		got = IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}

	rec := httptest.NewRecorder()
	h.AuthMiddleware(next)(rec, bearerRequest(t, tokens, 7))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, got.IsAuthenticated())
}

func TestAuthMiddleware_UnknownUserIsAnonymous(t *testing.T) {
	h, tokens := newAuthTestHandler(t, &fakeUserRepo{users: map[int64]*model.User{}})

	var got auth.Identity
	next := func(w http.ResponseWriter, r *http.Request) {
		got = IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}

	rec := httptest.NewRecorder()
	h.AuthMiddleware(next)(rec, bearerRequest(t, tokens, 42))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, got.IsAuthenticated())
}

func TestIdentityFromContext_Absent(t *testing.T) {
	ident := IdentityFromContext(context.Background())
	assert.False(t, ident.IsAuthenticated())
	assert.Equal(t, auth.Anonymous(), ident)
}

func TestSignedURLHandler_MissingPath(t *testing.T) {
	h, _ := newAuthTestHandler(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/photos/url", nil)
	rec := httptest.NewRecorder()

	h.SignedURLHandler(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSignedURLHandler_ExpiryFromConfig(t *testing.T) {
	store := &expiryCapturingStore{}
	gw := gateway.New(nil, nil, store, nil, storage.ObjectKey, storage.ContentTypeFor)
	h := NewAPIHandler(gw, nil, nil, testConfig())

	rec := httptest.NewRecorder()
	h.SignedURLHandler(rec, httptest.NewRequest(http.MethodGet, "/api/photos/url?path=readings/r1/left-1.jpg", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.SignedURLHandler(rec, httptest.NewRequest(http.MethodGet, "/api/photos/url?path=readings/r1/left-1.jpg&detail=true", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, store.expiries, 2)
	assert.Equal(t, 30*time.Minute, store.expiries[0])
	assert.Equal(t, 2*time.Hour, store.expiries[1])
}
