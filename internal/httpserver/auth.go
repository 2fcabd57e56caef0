package httpserver

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/MrEthical07/forumauth"
	"github.com/MrEthical07/forumauth/internal/logging"
	"github.com/MrEthical07/forumauth/middleware"
	"github.com/labstack/echo/v4"
)

// AuthHTTP serves the account and token endpoints.
type AuthHTTP struct {
	Engine *forumauth.Engine
}

// Register handles POST /register.
func (h *AuthHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.register")

	var req forumauth.RegisterRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("register_failed", "status", 400, "reason", "invalid body", "error", err)
		return fmt.Errorf("%w: invalid body", forumauth.ErrValidation)
	}

	record, err := h.Engine.Register(ctx, req)
	if err != nil {
		l.Warn("register_failed", "code", forumauth.Code(err))
		return err
	}

	l.Info("register_success", "user_id", record.ID)
	return c.JSON(http.StatusCreated, record.Public())
}

// Login handles POST /login and sets both cookies.
func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.login")

	var req loginRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("login_failed", "status", 400, "reason", "invalid body", "error", err)
		return fmt.Errorf("%w: invalid body", forumauth.ErrValidation)
	}

	res, err := h.Engine.Login(ctx, req.Email, req.Password)
	if err != nil {
		l.Warn("login_failed", "code", forumauth.Code(err))
		return err
	}

	for _, ck := range h.Engine.TokenCookies(res.Tokens) {
		c.SetCookie(ck)
	}
	l.Info("login_success", "user_id", res.User.ID)
	return c.JSON(http.StatusOK, loginResponse{User: res.User, Tokens: newTokenResponse(res.Tokens)})
}

// Refresh takes the token from the body, falling back to the refresh cookie.
func (h *AuthHTTP) Refresh(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.refresh")

	var req refreshRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("refresh_failed", "status", 400, "reason", "invalid body", "error", err)
		return fmt.Errorf("%w: invalid body", forumauth.ErrValidation)
	}
	token := req.RefreshToken
	if token == "" {
		token = cookieValue(c, h.Engine.RefreshCookieName())
	}

	pair, err := h.Engine.Refresh(ctx, token)
	if err != nil {
		l.Warn("refresh_failed", "code", forumauth.Code(err))
		return err
	}

	for _, ck := range h.Engine.TokenCookies(*pair) {
		c.SetCookie(ck)
	}
	l.Info("refresh_success")
	return c.JSON(http.StatusOK, newTokenResponse(*pair))
}

// Logout revokes whatever tokens the caller presents and always clears the
// cookies. Tokens in the body win over the Authorization header and cookies.
func (h *AuthHTTP) Logout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.logout")

	var req logoutRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("logout_failed", "status", 400, "reason", "invalid body", "error", err)
		return fmt.Errorf("%w: invalid body", forumauth.ErrValidation)
	}
	access := firstNonEmpty(req.AccessToken, bearer(c), cookieValue(c, h.Engine.AccessCookieName()))
	refresh := firstNonEmpty(req.RefreshToken, cookieValue(c, h.Engine.RefreshCookieName()))

	for _, ck := range h.Engine.ClearCookies() {
		c.SetCookie(ck)
	}
	if err := h.Engine.Logout(ctx, access, refresh); err != nil {
		l.Error("logout_failed", "error", err)
		return err
	}

	l.Info("logout_success")
	return c.JSON(http.StatusOK, statusResponse{Status: "logged_out"})
}

// ChangePassword runs behind RequireAccess. Every session of the user is
// invalidated, so the cookies are cleared and the client must log in again.
func (h *AuthHTTP) ChangePassword(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.change_password")

	auth, ok := middleware.AuthResult(c)
	if !ok {
		return forumauth.ErrTokenMalformed
	}

	var req changePasswordRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("change_password_failed", "status", 400, "reason", "invalid body", "error", err)
		return fmt.Errorf("%w: invalid body", forumauth.ErrValidation)
	}

	err := h.Engine.ChangePassword(ctx, forumauth.ChangePasswordRequest{
		UserID:          auth.UserID,
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
		AccessToken:     firstNonEmpty(bearer(c), cookieValue(c, h.Engine.AccessCookieName())),
		RefreshToken:    firstNonEmpty(req.RefreshToken, cookieValue(c, h.Engine.RefreshCookieName())),
	})
	if err != nil {
		l.Warn("change_password_failed", "user_id", auth.UserID, "code", forumauth.Code(err))
		return err
	}

	for _, ck := range h.Engine.ClearCookies() {
		c.SetCookie(ck)
	}
	l.Info("change_password_success", slog.String("user_id", auth.UserID))
	return c.JSON(http.StatusOK, statusResponse{Status: "password_changed"})
}

// ValidateToken runs behind RequireAccess and echoes the verified claims.
func (h *AuthHTTP) ValidateToken(c echo.Context) error {
	auth, ok := middleware.AuthResult(c)
	if !ok {
		return forumauth.ErrTokenMalformed
	}
	return c.JSON(http.StatusOK, newValidateResponse(auth))
}

func cookieValue(c echo.Context, name string) string {
	ck, err := c.Cookie(name)
	if err != nil {
		return ""
	}
	return ck.Value
}

func bearer(c echo.Context) string {
	const prefix = "Bearer "
	v := c.Request().Header.Get(echo.HeaderAuthorization)
	if len(v) > len(prefix) && strings.EqualFold(v[:len(prefix)], prefix) {
		return strings.TrimSpace(v[len(prefix):])
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
