// Package revocation keeps identifiers of explicitly revoked tokens until
// those tokens would have expired on their own.
//
// # Backends
//
// [Memory] holds entries in process with one eviction timer per entry and a
// periodic sweep ([Memory.RunSweeper]) as a safety net. [Redis] stores each
// entry as a key with a native TTL so several service instances share one
// registry.
//
// # Architecture boundaries
//
// Entries are opaque ids (usually a token's jti) with an expiry. This package
// does NOT parse tokens or decide what a token's id is; that belongs to the
// token service.
//
// # What this package must NOT do
//
//   - Retain an entry past its expiry once a sweep or timer has run.
//   - Extend an entry's expiry on re-revocation.
package revocation
