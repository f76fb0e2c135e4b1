package msgauth

import "errors"

// Public, stable errors for callers.
var (
	ErrKeyMissing   = errors.New("msgauth: signing key missing")
	ErrKeyTooShort  = errors.New("msgauth: signing key too short")
	ErrMalformedTag = errors.New("msgauth: malformed tag")
	ErrInvalidTag   = errors.New("msgauth: invalid tag")
	ErrMissing      = errors.New("msgauth: no signed message")
)
