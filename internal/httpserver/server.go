// Package httpserver exposes the forumauth engine over HTTP with echo.
package httpserver

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/MrEthical07/forumauth"
	"github.com/MrEthical07/forumauth/middleware"
	"github.com/labstack/echo/v4"
	ecM "github.com/labstack/echo/v4/middleware"
)

var errPanic = errors.New("recovered panic")

// Deps is what the server needs from main.
type Deps struct {
	Engine *forumauth.Engine
	Logger *slog.Logger
	// Metrics serves GET /metrics when set.
	Metrics http.Handler
	// Ready reports backend health for GET /healthz. Nil means always ready.
	Ready func() error
}

// New builds an echo instance with the error handler, middleware chain and
// routes installed.
func New(d *Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = ErrorHandler
	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 15 * time.Second
	e.Server.ReadHeaderTimeout = 3 * time.Second

	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}

	e.Use(ecM.RequestID())
	e.Use(RequestLogger(logger))
	e.Use(Recover())
	e.Use(ecM.Secure())
	e.Use(ClientContext())

	Register(e, d)
	return e
}

// Register mounts the routes on e.
func Register(e *echo.Echo, d *Deps) {
	e.GET("/healthz", healthz(d.Ready))
	if d.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(d.Metrics))
	}

	h := &AuthHTTP{Engine: d.Engine}
	e.POST("/register", h.Register)
	e.POST("/login", h.Login)
	e.POST("/refresh", h.Refresh)
	e.POST("/logout", h.Logout)

	requireAccess := middleware.RequireAccess(d.Engine)
	e.POST("/change-password", h.ChangePassword, requireAccess)
	e.GET("/validate-token", h.ValidateToken, requireAccess)
}

func healthz(ready func() error) echo.HandlerFunc {
	return func(c echo.Context) error {
		if ready != nil {
			if err := ready(); err != nil {
				return c.JSON(http.StatusServiceUnavailable, statusResponse{Status: "unavailable"})
			}
		}
		return c.JSON(http.StatusOK, statusResponse{Status: "ok"})
	}
}
