// Package tokens issues and verifies access/refresh token pairs, rotates
// refresh tokens single-use, and revokes tokens through per-type
// revocation registries.
package tokens
