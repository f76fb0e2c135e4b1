package subscriptions

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rivo/uniseg"
)

const (
	// MaxNameGraphemes bounds a subscriber name in user-perceived characters.
	MaxNameGraphemes = 256

	// MaxEmailLength is the RFC 5321 path limit.
	MaxEmailLength = 254

	forbiddenNameChars = `/()"<>\{}`
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Name is a subscriber name that passed ParseName.
type Name string

// ParseName trims s and rejects empty names, names longer than
// MaxNameGraphemes and names containing characters that have a meaning in
// markup or paths.
func ParseName(s string) (Name, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return "", fmt.Errorf("%w: empty", ErrInvalidName)
	case uniseg.GraphemeClusterCount(s) > MaxNameGraphemes:
		return "", fmt.Errorf("%w: longer than %d characters", ErrInvalidName, MaxNameGraphemes)
	case strings.ContainsAny(s, forbiddenNameChars):
		return "", fmt.Errorf("%w: contains one of %s", ErrInvalidName, forbiddenNameChars)
	}
	return Name(s), nil
}

// Email is a syntactically valid address.
type Email string

// ParseEmail trims s and checks it is a single, well-formed address.
func ParseEmail(s string) (Email, error) {
	s = strings.TrimSpace(s)
	if len(s) > MaxEmailLength {
		return "", fmt.Errorf("%w: too long", ErrInvalidEmail)
	}
	if err := validate.Var(s, "required,email"); err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidEmail, s)
	}
	return Email(s), nil
}

// NewSubscriber is a validated subscription request.
type NewSubscriber struct {
	Email Email
	Name  Name
}

// ParseNewSubscriber validates raw form input.
func ParseNewSubscriber(email, name string) (NewSubscriber, error) {
	n, err := ParseName(name)
	if err != nil {
		return NewSubscriber{}, err
	}
	e, err := ParseEmail(email)
	if err != nil {
		return NewSubscriber{}, err
	}
	return NewSubscriber{Email: e, Name: n}, nil
}

// normalizeEmail is the uniqueness key: one subscription per address,
// regardless of case.
func normalizeEmail(e Email) string {
	return strings.ToLower(string(e))
}
