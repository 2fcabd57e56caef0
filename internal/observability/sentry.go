// Package observability wires error reporting for the forumauth server.
package observability

import (
	"context"
	"time"

	"github.com/getsentry/sentry-go"
)

// InitSentry configures the global Sentry client. An empty DSN leaves
// reporting disabled.
func InitSentry(dsn, environment string) error {
	if dsn == "" {
		return nil
	}

	return sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      environment,
		AttachStacktrace: true,
	})
}

// FlushSentry waits briefly for buffered events. Call it before exit.
func FlushSentry() {
	sentry.Flush(2 * time.Second)
}

// CaptureError reports err on the hub bound to ctx, falling back to the
// global hub. Tags are attached to this event only.
func CaptureError(ctx context.Context, err error, tags map[string]string) {
	if err == nil {
		return
	}
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	hub.WithScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		hub.CaptureException(err)
	})
}

// CapturePanic reports a recovered panic value with its stack.
func CapturePanic(ctx context.Context, recovered any, stack []byte, tags map[string]string) {
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	hub.WithScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		scope.SetExtra("panic", recovered)
		scope.SetExtra("stack", string(stack))
		hub.CaptureMessage("panic in request")
	})
}
