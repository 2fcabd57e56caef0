package middleware

import (
	"net/http"

	"github.com/MrEthical07/forumauth"
)

// RequireStrict validates with ModeStrict.
func RequireStrict(engine *forumauth.Engine) func(http.Handler) http.Handler {
	return Guard(engine, forumauth.ModeStrict)
}
