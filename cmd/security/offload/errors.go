package offload

import (
	"errors"
	"fmt"
)

var (
	ErrTaskPanicked = errors.New("offload: task panicked")
	ErrNilTask      = errors.New("offload: nil task")
	ErrNilPool      = errors.New("offload: nil pool")
)

// PanicError carries a recovered panic value and the stack of the worker
// goroutine at the time of the panic.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("%v: %v", ErrTaskPanicked, e.Value)
}

// Unwrap exposes ErrTaskPanicked and, when the panic value was an error, that
// error too.
func (e *PanicError) Unwrap() []error {
	if err, ok := e.Value.(error); ok {
		return []error{ErrTaskPanicked, err}
	}
	return []error{ErrTaskPanicked}
}
