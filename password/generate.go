package password

import (
	"crypto/rand"
	"math/big"
)

const (
	// DefaultGeneratedLength is used when GenerateSecure is called with length <= 0.
	DefaultGeneratedLength = 16
	minGeneratedLength     = 8

	lowerChars  = "abcdefghijkmnopqrstuvwxyz"
	upperChars  = "ABCDEFGHJKLMNPQRSTUVWXYZ"
	digitChars  = "23456789"
	symbolChars = "!@#$%^&*()-_=+[]{}?"
)

// GenerateSecure returns a random password drawn from crypto/rand. Every
// character class appears at least once (symbols only when includeSymbols is
// set) and the result is shuffled so class positions are not predictable.
// Look-alike characters (l, I, O, 0, 1) are excluded.
//
// Policy.EvaluateStrength requires a symbol, so a password generated with
// includeSymbols=false never passes it; that mode is for systems with their
// own rules.
func GenerateSecure(length int, includeSymbols bool) (string, error) {
	if length <= 0 {
		length = DefaultGeneratedLength
	}
	if length < minGeneratedLength {
		length = minGeneratedLength
	}

	classes := []string{lowerChars, upperChars, digitChars}
	if includeSymbols {
		classes = append(classes, symbolChars)
	}
	alphabet := ""
	for _, c := range classes {
		alphabet += c
	}

	out := make([]byte, 0, length)
	for _, c := range classes {
		b, err := randomChar(c)
		if err != nil {
			return "", err
		}
		out = append(out, b)
	}
	for len(out) < length {
		b, err := randomChar(alphabet)
		if err != nil {
			return "", err
		}
		out = append(out, b)
	}

	for i := len(out) - 1; i > 0; i-- {
		j, err := randomIndex(i + 1)
		if err != nil {
			return "", err
		}
		out[i], out[j] = out[j], out[i]
	}

	return string(out), nil
}

func randomChar(set string) (byte, error) {
	i, err := randomIndex(len(set))
	if err != nil {
		return 0, err
	}
	return set[i], nil
}

func randomIndex(n int) (int, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, err
	}
	return int(v.Int64()), nil
}
