package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/MrEthical07/forumauth"
)

// Guard rejects requests without a valid access token with 401 and a JSON
// error body carrying the engine's error code.
func Guard(engine *forumauth.Engine, mode forumauth.ValidationMode) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, err := authenticate(engine, r, func(ctx context.Context, token string) (*forumauth.AuthResult, error) {
				return engine.ValidateAccessWithMode(ctx, token, mode)
			})
			if err != nil {
				writeUnauthorized(w, err)
				return
			}

			ctx := forumauth.WithAuthResult(r.Context(), res)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

var errMissingToken = fmt.Errorf("%w: missing access token", forumauth.ErrTokenMalformed)

type validateFunc func(ctx context.Context, token string) (*forumauth.AuthResult, error)

func authenticate(engine *forumauth.Engine, r *http.Request, validate validateFunc) (*forumauth.AuthResult, error) {
	if engine == nil {
		return nil, forumauth.ErrEngineNotReady
	}
	token, ok := accessToken(engine, r)
	if !ok {
		return nil, errMissingToken
	}
	return validate(r.Context(), token)
}

// accessToken prefers the Authorization header over the cookie.
func accessToken(engine *forumauth.Engine, r *http.Request) (string, bool) {
	if token, ok := bearerToken(r.Header.Get("Authorization")); ok {
		return token, true
	}
	if c, err := r.Cookie(engine.AccessCookieName()); err == nil && c.Value != "" {
		return c.Value, true
	}
	return "", false
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}

func writeUnauthorized(w http.ResponseWriter, err error) {
	code := forumauth.Code(err)
	status := http.StatusUnauthorized
	switch code {
	case forumauth.CodeUnavailable:
		status = http.StatusServiceUnavailable
	case forumauth.CodeInternal:
		status = http.StatusInternalServerError
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{
			"code":    string(code),
			"message": http.StatusText(status),
		},
	})
}
