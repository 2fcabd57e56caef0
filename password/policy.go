package password

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultMinLength is the shortest password the policy accepts.
const DefaultMinLength = 8

var (
	// ErrPolicy is matched by every *PolicyError.
	ErrPolicy = errors.New("password does not meet policy")
	// ErrCompromised is matched by a *PolicyError whose password is on the breach list.
	ErrCompromised = errors.New("password is known to be compromised")
)

// Violation names one failed policy rule.
type Violation string

const (
	ViolationTooShort         Violation = "too_short"
	ViolationMissingLowercase Violation = "missing_lowercase"
	ViolationMissingUppercase Violation = "missing_uppercase"
	ViolationMissingDigit     Violation = "missing_digit"
	ViolationMissingSymbol    Violation = "missing_symbol"
	ViolationCompromised      Violation = "compromised"
)

// Strength is the structured result of EvaluateStrength.
type Strength struct {
	Score      int         `json:"score"`
	Label      string      `json:"label"`
	Acceptable bool        `json:"acceptable"`
	Violations []Violation `json:"violations,omitempty"`
}

var strengthLabels = [...]string{"very_weak", "weak", "fair", "strong", "very_strong"}

// PolicyError reports why a candidate password was rejected.
type PolicyError struct {
	Violations  []Violation
	Compromised bool
}

// Error lists the violations.
func (e *PolicyError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, string(v))
	}
	return fmt.Sprintf("password rejected: %s", strings.Join(parts, ", "))
}

// Is lets errors.Is match ErrPolicy and, for breached passwords, ErrCompromised.
func (e *PolicyError) Is(target error) bool {
	switch target {
	case ErrPolicy:
		return true
	case ErrCompromised:
		return e.Compromised
	}
	return false
}

// PolicyConfig tunes the strength and breach rules.
type PolicyConfig struct {
	MinLength int
	// ExtraBreached extends the embedded breach list, e.g. with site-specific words.
	ExtraBreached []string
}

// Policy evaluates candidate passwords. It holds no mutable state after
// construction and is safe for concurrent use.
type Policy struct {
	minLength int
	breached  breachSet
}

// NewPolicy builds a Policy over the embedded breach list.
func NewPolicy(cfg PolicyConfig) *Policy {
	if cfg.MinLength <= 0 {
		cfg.MinLength = DefaultMinLength
	}
	return &Policy{
		minLength: cfg.MinLength,
		breached:  newBreachSet(cfg.ExtraBreached),
	}
}

// EvaluateStrength scores pw from 0 to 4. It never fails; rejected passwords
// carry their violations and score 0.
func (p *Policy) EvaluateStrength(pw string) Strength {
	var lower, upper, digit, symbol int
	for _, r := range pw {
		switch {
		case unicode.IsLower(r):
			lower++
		case unicode.IsUpper(r):
			upper++
		case unicode.IsDigit(r):
			digit++
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			symbol++
		}
	}
	length := utf8.RuneCountInString(pw)

	var violations []Violation
	if length < p.minLength {
		violations = append(violations, ViolationTooShort)
	}
	if lower == 0 {
		violations = append(violations, ViolationMissingLowercase)
	}
	if upper == 0 {
		violations = append(violations, ViolationMissingUppercase)
	}
	if digit == 0 {
		violations = append(violations, ViolationMissingDigit)
	}
	if symbol == 0 {
		violations = append(violations, ViolationMissingSymbol)
	}

	if len(violations) > 0 {
		return Strength{Score: 0, Label: strengthLabels[0], Violations: violations}
	}

	score := 1
	if length >= 12 {
		score++
	}
	if length >= 16 {
		score++
	}
	// Variety bonus: three of either digits or symbols, counted separately.
	if digit >= 3 || symbol >= 3 {
		score++
	}
	if score > 4 {
		score = 4
	}

	return Strength{Score: score, Label: strengthLabels[score], Acceptable: true}
}

// IsCompromised reports whether pw, or a trivial variant of it, is on the
// breach list.
func (p *Policy) IsCompromised(pw string) bool {
	return p.breached.contains(pw)
}

// Check returns nil when pw is acceptable and not compromised, and a
// *PolicyError otherwise.
func (p *Policy) Check(pw string) error {
	strength := p.EvaluateStrength(pw)
	compromised := p.IsCompromised(pw)
	if strength.Acceptable && !compromised {
		return nil
	}

	violations := strength.Violations
	if compromised {
		violations = append(violations, ViolationCompromised)
	}
	return &PolicyError{Violations: violations, Compromised: compromised}
}
