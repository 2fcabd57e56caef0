// Package forumauth is the authentication and token lifecycle engine of the
// forum: registration with password policy and breach checks, login with
// progressive lockout, refresh-token rotation with replay rejection, logout
// and password change with revocation.
//
// Engine methods are safe to call from multiple goroutines after
// initialization through [Builder.Build].
//
// # Architecture boundaries
//
// forumauth is the public surface. It exposes [Engine], [Builder], [Config],
// the [CredentialStore] contract and value types. Hashing lives in password,
// signing in jwt and tokens, revocation bookkeeping in revocation. Lockout
// transitions, the registration throttle and audit dispatch live under
// internal/ and are never exported.
//
// # Consistency
//
// Every read-modify-write of a credential record goes through
// [CredentialStore.Update], so concurrent logins count failures exactly and a
// password change cannot be lost to a racing hash upgrade. Refresh rotation
// consumes the presented token with an insert-if-absent on the revocation
// registry; of concurrent callers exactly one wins.
//
// # Errors
//
// Engine errors match the exported sentinels with errors.Is, and [Code] maps
// any of them to a stable [ErrorCode] for transports.
package forumauth
