// Package middleware adapts forumauth.Engine access-token validation to HTTP
// handlers: net/http guards and an echo middleware.
//
// # Guards
//
//   - [Guard] validates with the mode passed in.
//   - [RequireJWTOnly] trusts signature, claims and revocation only.
//   - [RequireStrict] also checks the credential record.
//   - [RequireAccess] is the echo middleware, using the engine's configured mode.
//
// Each guard reads the Authorization bearer token, falling back to the access
// cookie, calls the engine, and stores the *forumauth.AuthResult on the
// request context (and the echo context under [ContextKey]).
//
// This package only translates HTTP into Engine calls. It never parses tokens
// itself.
package middleware
