package password

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Validate checks the password against the configured policy.
// Lengths are counted in runes so multi-byte input is not penalized.
func (c Config) Validate(password string) error {
	n := utf8.RuneCountInString(password)
	switch {
	case n < c.Policy.MinLength:
		return ErrPasswordTooShort
	case n > c.Policy.MaxLength:
		return ErrPasswordTooLong
	}

	if c.Policy.RejectVeryWeak && looksVeryWeak(password) {
		return ErrWeakPassword
	}
	return nil
}

var trivialPasswords = map[string]struct{}{
	"password":         {},
	"password123":      {},
	"passwordpassword": {},
	"123456":           {},
	"123456789":        {},
	"123456789012":     {},
	"qwerty":           {},
	"qwerty123":        {},
	"qwertyuiop":       {},
	"letmein":          {},
	"11111111":         {},
}

// looksVeryWeak catches only the most obvious choices. It is not a strength
// estimator.
func looksVeryWeak(pw string) bool {
	s := strings.TrimSpace(pw)
	if s == "" {
		return true
	}

	first, _ := utf8.DecodeRuneInString(s)
	if strings.Trim(s, string(first)) == "" {
		return true
	}

	if utf8.RuneCountInString(s) < 12 && strings.IndexFunc(s, func(r rune) bool { return !unicode.IsDigit(r) }) < 0 {
		return true
	}

	_, trivial := trivialPasswords[strings.ToLower(s)]
	return trivial
}
