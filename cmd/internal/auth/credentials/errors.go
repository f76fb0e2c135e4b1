package credentials

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by Validator is an *AuthError whose Kind
// is one of these.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnexpected         = errors.New("unexpected error")
	ErrPasswordPolicy     = errors.New("password policy violation")
)

// AuthError is the typed failure of a Validator operation.
//
// Err holds the cause for logging. It is always nil for
// ErrInvalidCredentials, so the error for an unknown user and for a wrong
// password are indistinguishable.
type AuthError struct {
	Op   string
	Kind error
	Err  error
}

func (e *AuthError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *AuthError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func invalidCredentials(op string) error {
	return &AuthError{Op: op, Kind: ErrInvalidCredentials}
}

func unexpected(op string, err error) error {
	return &AuthError{Op: op, Kind: ErrUnexpected, Err: err}
}

// Outcome is the terminal state of one attempt.
type Outcome int

const (
	OutcomeAuthenticated Outcome = iota
	OutcomeInvalidCredentials
	OutcomeUnexpected
	OutcomePasswordPolicy
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAuthenticated:
		return "authenticated"
	case OutcomeInvalidCredentials:
		return "invalid_credentials"
	case OutcomePasswordPolicy:
		return "password_policy"
	default:
		return "unexpected_error"
	}
}

// OutcomeOf maps an error returned by Validator to its Outcome. A nil error
// is OutcomeAuthenticated; anything unrecognised is OutcomeUnexpected.
func OutcomeOf(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeAuthenticated
	case errors.Is(err, ErrInvalidCredentials):
		return OutcomeInvalidCredentials
	case errors.Is(err, ErrPasswordPolicy):
		return OutcomePasswordPolicy
	default:
		return OutcomeUnexpected
	}
}
