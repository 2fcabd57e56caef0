package middleware

import (
	"net/http"

	"github.com/MrEthical07/forumauth"
)

// RequireJWTOnly skips the credential store. A deleted user or a password
// change is noticed only once the token expires or is revoked.
func RequireJWTOnly(engine *forumauth.Engine) func(http.Handler) http.Handler {
	return Guard(engine, forumauth.ModeJWTOnly)
}
