package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MrEthical07/forumauth"
	"github.com/MrEthical07/forumauth/store/memory"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	engine *forumauth.Engine
	store  *memory.Store
	userID string
	access string
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	cfg := forumauth.DefaultConfig()
	cfg.JWT.AccessSecret = []byte("access-secret-access-secret-0123456789")
	cfg.JWT.RefreshSecret = []byte("refresh-secret-refresh-secret-0123456789")
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1

	store := memory.New()
	engine, err := forumauth.New().WithConfig(cfg).WithCredentialStore(store).Build()
	require.NoError(t, err)
	t.Cleanup(engine.Close)

	ctx := context.Background()
	rec, err := engine.Register(ctx, forumauth.RegisterRequest{
		Email:           "alice@example.com",
		Username:        "alice",
		Password:        "Str0ng!Pass99",
		ConfirmPassword: "Str0ng!Pass99",
	})
	require.NoError(t, err)
	res, err := engine.Login(ctx, "alice@example.com", "Str0ng!Pass99")
	require.NoError(t, err)

	return fixture{engine: engine, store: store, userID: rec.ID, access: res.Tokens.AccessToken}
}

func okHandler(t *testing.T, wantUser string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res, ok := forumauth.AuthResultFromContext(r.Context())
		if assert.True(t, ok) {
			assert.Equal(t, wantUser, res.UserID)
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error.Code
}

func TestGuard_BearerAndCookie(t *testing.T) {
	f := newFixture(t)
	h := RequireStrict(f.engine)(okHandler(t, f.userID))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+f.access)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: f.engine.AccessCookieName(), Value: f.access})
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestGuard_RejectsMissingAndRevoked(t *testing.T) {
	f := newFixture(t)
	h := RequireStrict(f.engine)(okHandler(t, f.userID))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, string(forumauth.CodeTokenMalformed), errorCode(t, rec))

	require.NoError(t, f.engine.Logout(context.Background(), f.access, ""))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+f.access)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, string(forumauth.CodeTokenRevoked), errorCode(t, rec))
}

func TestGuard_JWTOnlyIgnoresDeletedUser(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.Delete(context.Background(), f.userID))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+f.access)

	rec := httptest.NewRecorder()
	RequireJWTOnly(f.engine)(okHandler(t, f.userID)).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	RequireStrict(f.engine)(okHandler(t, f.userID)).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, string(forumauth.CodeTokenInvalid), errorCode(t, rec))
}

func TestGuard_NilEngine(t *testing.T) {
	rec := httptest.NewRecorder()
	Guard(nil, forumauth.ModeStrict)(okHandler(t, "")).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestBearerToken(t *testing.T) {
	tok, ok := bearerToken("bearer abc")
	assert.True(t, ok)
	assert.Equal(t, "abc", tok)

	_, ok = bearerToken("Bearer ")
	assert.False(t, ok)
	_, ok = bearerToken("Basic abc")
	assert.False(t, ok)
}

func TestRequireAccess_Echo(t *testing.T) {
	f := newFixture(t)
	e := echo.New()
	e.GET("/me", func(c echo.Context) error {
		res, ok := AuthResult(c)
		require.True(t, ok)
		fromCtx, ok := forumauth.AuthResultFromContext(c.Request().Context())
		require.True(t, ok)
		assert.Equal(t, res, fromCtx)
		return c.String(http.StatusOK, res.UserID)
	}, RequireAccess(f.engine))

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+f.access)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, f.userID, rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	c := e.NewContext(req, httptest.NewRecorder())
	err := RequireAccess(f.engine)(func(echo.Context) error { return nil })(c)
	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusUnauthorized, he.Code)
	assert.ErrorIs(t, he.Internal, forumauth.ErrTokenMalformed)
}
