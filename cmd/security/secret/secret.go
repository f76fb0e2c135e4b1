package secret

import (
	"fmt"
	"io"
	"log/slog"
)

const redacted = "[REDACTED]"

// Secret holds a sensitive value. Its zero value wraps the zero value of T.
type Secret[T any] struct {
	v T
}

// New wraps v.
func New[T any](v T) Secret[T] {
	return Secret[T]{v: v}
}

// Expose returns the wrapped value. Call it at the point of use only.
func (s Secret[T]) Expose() T {
	return s.v
}

// String implements fmt.Stringer.
func (s Secret[T]) String() string { return redacted }

// GoString implements fmt.GoStringer.
func (s Secret[T]) GoString() string { return "secret.Secret(" + redacted + ")" }

// Format makes every fmt verb (%v, %+v, %#v, %s, %q, %x, ...) print the redaction marker.
func (s Secret[T]) Format(f fmt.State, verb rune) {
	if verb == 'v' && f.Flag('#') {
		_, _ = io.WriteString(f, s.GoString())
		return
	}
	_, _ = io.WriteString(f, redacted)
}

// LogValue implements slog.LogValuer.
func (s Secret[T]) LogValue() slog.Value { return slog.StringValue(redacted) }

// MarshalJSON implements json.Marshaler.
func (s Secret[T]) MarshalJSON() ([]byte, error) {
	return []byte(`"` + redacted + `"`), nil
}

// MarshalText implements encoding.TextMarshaler.
func (s Secret[T]) MarshalText() ([]byte, error) {
	return []byte(redacted), nil
}
