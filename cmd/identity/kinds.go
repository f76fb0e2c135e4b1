package identity

import "errors"

// Sentinel kinds for errors.Is. The auth layer maps ErrNotFound on a
// credential lookup to the same outcome as a wrong password.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
)
