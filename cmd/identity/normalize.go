package identity

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxUsernameLength bounds usernames in runes.
const MaxUsernameLength = 64

// NormalizeUsername performs case-insensitive canonicalization.
// Note: for now we only trim + lower-case. Additional rules (unicode confusables)
// can be added later behind a versioned policy.
func NormalizeUsername(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ValidateUsername checks a raw username before it is stored.
func ValidateUsername(s string) error {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return invalid("identity.ValidateUsername", "username is required")
	case utf8.RuneCountInString(s) > MaxUsernameLength:
		return invalid("identity.ValidateUsername", "username too long")
	case strings.IndexFunc(s, unicode.IsControl) >= 0:
		return invalid("identity.ValidateUsername", "username contains control characters")
	}
	return nil
}
