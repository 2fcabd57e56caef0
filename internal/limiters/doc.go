// Package limiters holds the login lockout policy and the sign-up throttle.
//
//   - [LockoutPolicy]: pure transitions over a credential record's failed
//     attempt counter and lock deadline. No I/O.
//   - [RegistrationLimiter]: Redis fixed-window counter per email and per IP.
//     Nil-safe: a nil limiter allows every call.
//
// # What this package must NOT do
//
//   - Import forumauth or any sibling internal package.
//   - Persist lockout state; the engine writes it to the credential store.
package limiters
