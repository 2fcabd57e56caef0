package password

import (
	"strings"
	"unicode"
)

// BreachListVersion identifies the embedded list below. Bump it whenever the
// list changes so deployments can report which list they enforce.
const BreachListVersion = "2025.1"

var commonPasswords = []string{
	"123456", "123456789", "12345678", "1234567", "12345", "1234567890",
	"111111", "000000", "123123", "654321", "666666", "121212", "7777777",
	"password", "passw0rd", "password1", "qwerty", "qwertyuiop", "qwerty123",
	"1q2w3e4r", "1qaz2wsx", "zaq12wsx", "asdfghjkl", "asdf1234", "zxcvbnm",
	"abc123", "abcd1234", "iloveyou", "admin", "administrator", "root",
	"welcome", "letmein", "monkey", "dragon", "football", "baseball",
	"soccer", "hockey", "basketball", "superman", "batman", "trustno1",
	"sunshine", "princess", "starwars", "whatever", "shadow", "master",
	"michael", "jennifer", "jordan", "hunter", "harley", "ranger",
	"charlie", "thomas", "daniel", "jessica", "pepper", "freedom",
	"mustang", "access", "login", "secret", "changeme", "default",
	"summer", "winter", "spring", "autumn", "flower", "cookie",
	"chocolate", "cheese", "pizza", "pasta", "recipe", "recipes",
	"cooking", "kitchen", "chef", "baking", "foodie", "yummy",
	"computer", "internet", "google", "samsung", "apple", "killer",
	"lovely", "loveme", "hello", "hellohello", "test", "test123",
	"guest", "user", "qazwsx", "mypassword", "p@ssw0rd", "p@ssword",
}

type breachSet map[string]struct{}

func newBreachSet(extra []string) breachSet {
	set := make(breachSet, 2*(len(commonPasswords)+len(extra)))
	add := func(pw string) {
		lowered := strings.ToLower(strings.TrimSpace(pw))
		if lowered == "" {
			return
		}
		set[lowered] = struct{}{}
		if n := normalizeNear(lowered); n != "" {
			set[n] = struct{}{}
		}
	}
	for _, pw := range commonPasswords {
		add(pw)
	}
	for _, pw := range extra {
		add(pw)
	}
	return set
}

func (s breachSet) contains(pw string) bool {
	lowered := strings.ToLower(pw)
	if _, ok := s[lowered]; ok {
		return true
	}
	n := normalizeNear(lowered)
	if n == "" {
		return false
	}
	_, ok := s[n]
	return ok
}

var leetFold = strings.NewReplacer(
	"0", "o",
	"1", "i",
	"3", "e",
	"4", "a",
	"5", "s",
	"7", "t",
	"@", "a",
	"$", "s",
	"!", "i",
)

// normalizeNear maps trivial variants onto a common form: trailing digits and
// symbols are dropped ("Password123!" -> "password") and leetspeak is folded
// ("p@ssw0rd" -> "password"). Input must already be lower-cased.
func normalizeNear(lowered string) string {
	trimmed := strings.TrimRightFunc(lowered, func(r rune) bool {
		return unicode.IsDigit(r) || unicode.IsPunct(r) || unicode.IsSymbol(r) || unicode.IsSpace(r)
	})
	return leetFold.Replace(trimmed)
}
