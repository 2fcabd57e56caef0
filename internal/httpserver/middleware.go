package httpserver

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/MrEthical07/forumauth"
	"github.com/MrEthical07/forumauth/internal/logging"
	"github.com/MrEthical07/forumauth/internal/observability"
	"github.com/labstack/echo/v4"
)

// RequestLogger puts a request-scoped logger on the request context and
// logs one line per request. Handler errors are rendered here so the logged
// status is the one the client saw.
func RequestLogger(base *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			rid := c.Response().Header().Get(echo.HeaderXRequestID)

			l := base.With(
				"method", c.Request().Method,
				"path", c.Path(),
				"remote_ip", c.RealIP(),
			)
			if rid != "" {
				l = l.With("request_id", rid)
			}
			c.SetRequest(c.Request().WithContext(logging.IntoContext(c.Request().Context(), l)))

			start := time.Now()
			err := next(c)
			if err != nil {
				c.Echo().HTTPErrorHandler(err, c)
			}
			status := c.Response().Status
			dur := time.Since(start)

			switch {
			case status >= 500:
				l.Error("request completed", "status", status, "duration_ms", dur.Milliseconds(), "error", errStr(err))
			case status >= 400:
				l.Warn("request completed", "status", status, "duration_ms", dur.Milliseconds(), "code", forumauth.Code(err))
			default:
				l.Info("request completed", "status", status, "duration_ms", dur.Milliseconds(), "bytes", c.Response().Size)
			}
			return nil
		}
	}
}

// ClientContext hands the caller's IP and User-Agent to the engine for the
// registration throttle and audit events.
func ClientContext() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := forumauth.WithClientIP(c.Request().Context(), c.RealIP())
			ctx = forumauth.WithUserAgent(ctx, c.Request().UserAgent())
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

// Recover turns a panic into a 500 and reports it to Sentry.
func Recover() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				if rec := recover(); rec != nil {
					ctx := c.Request().Context()
					observability.CapturePanic(ctx, rec, debug.Stack(), map[string]string{
						"path":   c.Path(),
						"method": c.Request().Method,
					})
					logging.FromContext(ctx).Error("panic_recovered", "panic", fmt.Sprint(rec))
					err = fmt.Errorf("%w: panic: %v", errPanic, rec)
				}
			}()
			return next(c)
		}
	}
}

func errStr(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
