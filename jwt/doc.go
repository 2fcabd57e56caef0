// Package jwt signs and verifies typed access and refresh tokens. Each token
// type is handled by its own [Manager] with its own key, so a token of one
// type never verifies as the other even if its typ claim is rewritten.
package jwt
