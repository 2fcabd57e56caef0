// Package password implements password policy, hashing, and generation.
//
// # Output format
//
// Hashes are encoded in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// Legacy bcrypt hashes ($2a$, $2b$, $2y$) verify normally and always report
// [Argon2.NeedsUpgrade] so the caller can re-hash on the next successful login.
//
// # Policy
//
// [Policy.EvaluateStrength] requires eight runes and all four character
// classes. [Policy.IsCompromised] consults an embedded list identified by
// [BreachListVersion] and also catches trivial variants of listed entries.
//
// # Concurrency
//
// [Pool] moves the KDF onto worker goroutines bounded by a semaphore. A
// cancelled context surfaces as [ErrHashUnavailable].
//
// # What this package must NOT do
//
//   - Store or retrieve passwords; callers supply plaintext and receive hashes.
//   - Import any other forumauth package.
//   - Log plaintext passwords or hash parameters at runtime.
package password
