package middleware

import (
	"net/http"

	"github.com/MrEthical07/forumauth"
	"github.com/labstack/echo/v4"
)

// ContextKey is where RequireAccess stores the *forumauth.AuthResult on the
// echo context.
const ContextKey = "forumauth.auth"

// RequireAccess validates with the engine's configured mode. Failures are
// returned as *echo.HTTPError with the engine error as Internal, so a custom
// HTTPErrorHandler can render the precise error code.
func RequireAccess(engine *forumauth.Engine) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			res, err := authenticate(engine, c.Request(), engine.ValidateAccess)
			if err != nil {
				status := http.StatusUnauthorized
				switch forumauth.Code(err) {
				case forumauth.CodeUnavailable:
					status = http.StatusServiceUnavailable
				case forumauth.CodeInternal:
					status = http.StatusInternalServerError
				}
				return &echo.HTTPError{Code: status, Message: http.StatusText(status), Internal: err}
			}

			c.Set(ContextKey, res)
			c.SetRequest(c.Request().WithContext(forumauth.WithAuthResult(c.Request().Context(), res)))
			return next(c)
		}
	}
}

// AuthResult returns what RequireAccess stored, if anything.
func AuthResult(c echo.Context) (*forumauth.AuthResult, bool) {
	res, ok := c.Get(ContextKey).(*forumauth.AuthResult)
	return res, ok && res != nil
}
