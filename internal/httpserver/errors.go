package httpserver

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/MrEthical07/forumauth"
	"github.com/MrEthical07/forumauth/internal/logging"
	"github.com/MrEthical07/forumauth/internal/observability"
	"github.com/MrEthical07/forumauth/password"
	"github.com/labstack/echo/v4"
)

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code             forumauth.ErrorCode   `json:"code"`
	Message          string                `json:"message"`
	RemainingMinutes *int                  `json:"remaining_minutes,omitempty"`
	Violations       []password.Violation `json:"violations,omitempty"`
}

// statusFor maps an engine error code to its HTTP status.
func statusFor(code forumauth.ErrorCode) int {
	switch code {
	case forumauth.CodeValidationFailed,
		forumauth.CodePasswordPolicy,
		forumauth.CodePasswordCompromised,
		forumauth.CodeConfirmMismatch,
		forumauth.CodePasswordReuse:
		return http.StatusBadRequest
	case forumauth.CodeInvalidCredentials,
		forumauth.CodeTokenExpired,
		forumauth.CodeTokenRevoked,
		forumauth.CodeTokenMalformed,
		forumauth.CodeTokenInvalid,
		forumauth.CodeTokenTypeMismatch,
		forumauth.CodeUserNotFound,
		forumauth.CodeWrongCurrentPassword:
		return http.StatusUnauthorized
	case forumauth.CodeDuplicateEmail, forumauth.CodeDuplicateUsername:
		return http.StatusConflict
	case forumauth.CodeAccountLocked:
		return http.StatusLocked
	case forumauth.CodeRateLimited:
		return http.StatusTooManyRequests
	case forumauth.CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// publicMessage keeps internal detail out of 5xx bodies.
func publicMessage(code forumauth.ErrorCode, err error) string {
	switch code {
	case forumauth.CodeInternal:
		return "internal server error"
	case forumauth.CodeUnavailable:
		return "service temporarily unavailable"
	}
	return err.Error()
}

// ErrorHandler renders engine errors as {"error": {"code", "message"}}.
// Errors produced by echo itself (unknown route, bad method) keep their
// status. 5xx errors are logged and reported to Sentry.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		if he.Internal != nil && forumauth.Code(he.Internal) != forumauth.CodeInternal {
			err = he.Internal
		} else {
			writeJSON(c, he.Code, errorBody{Error: errorDetail{
				Code:    codeForStatus(he.Code),
				Message: httpMessage(he),
			}})
			if he.Code >= http.StatusInternalServerError {
				report(c, he.Code, err)
			}
			return
		}
	}

	code := forumauth.Code(err)
	status := statusFor(code)
	body := errorBody{Error: errorDetail{Code: code, Message: publicMessage(code, err)}}

	var locked *forumauth.LockedError
	if errors.As(err, &locked) {
		minutes := locked.RemainingMinutes()
		body.Error.RemainingMinutes = &minutes
		c.Response().Header().Set("Retry-After", strconv.FormatInt(int64(locked.Remaining.Seconds()+0.5), 10))
	}
	var policy *forumauth.PolicyError
	if errors.As(err, &policy) {
		body.Error.Violations = policy.Violations
	}

	if status >= http.StatusInternalServerError {
		report(c, status, err)
	}
	writeJSON(c, status, body)
}

func report(c echo.Context, status int, err error) {
	ctx := c.Request().Context()
	logging.FromContext(ctx).Error("request_failed",
		slog.Int("status", status),
		slog.String("code", string(forumauth.Code(err))),
		slog.Any("error", err),
	)
	// Recover has already reported panics with their stack.
	if errors.Is(err, errPanic) {
		return
	}
	observability.CaptureError(ctx, err, map[string]string{
		"code":   string(forumauth.Code(err)),
		"path":   c.Path(),
		"method": c.Request().Method,
	})
}

func writeJSON(c echo.Context, status int, body errorBody) {
	var err error
	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, body)
	}
	if err != nil {
		logging.FromContext(c.Request().Context()).Warn("write_error_response_failed", slog.Any("error", err))
	}
}

func codeForStatus(status int) forumauth.ErrorCode {
	switch {
	case status == http.StatusBadRequest:
		return forumauth.CodeValidationFailed
	case status == http.StatusUnauthorized:
		return forumauth.CodeTokenInvalid
	case status == http.StatusTooManyRequests:
		return forumauth.CodeRateLimited
	case status >= http.StatusInternalServerError:
		return forumauth.CodeInternal
	default:
		return forumauth.ErrorCode(slugStatus(status))
	}
}

// slugStatus turns "Not Found" into "not_found".
func slugStatus(status int) string {
	text := http.StatusText(status)
	out := make([]byte, 0, len(text))
	for i := 0; i < len(text); i++ {
		ch := text[i]
		switch {
		case ch >= 'A' && ch <= 'Z':
			out = append(out, ch+'a'-'A')
		case ch >= 'a' && ch <= 'z', ch >= '0' && ch <= '9':
			out = append(out, ch)
		default:
			if len(out) > 0 && out[len(out)-1] != '_' {
				out = append(out, '_')
			}
		}
	}
	return string(out)
}

func httpMessage(he *echo.HTTPError) string {
	if msg, ok := he.Message.(string); ok && msg != "" {
		return msg
	}
	return http.StatusText(he.Code)
}
