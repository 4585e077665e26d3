// Package model defines the sequential specifications histories are checked
// against.
package model

import (
	"errors"
	"fmt"

	"linverify/internal/history"
)

// ErrInconsistent is wrapped by every error a Model returns from Step.
var ErrInconsistent = errors.New("inconsistent operation")

// Model is an immutable state of a sequential object.
//
// Step applies op and returns the successor state, or an error wrapping
// ErrInconsistent if op cannot happen in this state. Equal and Hash must
// agree: equal states hash equally.
type Model interface {
	Step(op history.Operation) (Model, error)
	Equal(other Model) bool
	Hash() uint64
}

// Inconsistentf builds a Step error.
func Inconsistentf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInconsistent, fmt.Sprintf(format, args...))
}

// Named returns the built-in model with the given name in its initial state.
func Named(name string) (Model, error) {
	switch name {
	case "register":
		return NewRegister(nil), nil
	case "cas-register":
		return NewCASRegister(nil), nil
	case "mutex":
		return NewMutex(), nil
	default:
		return nil, fmt.Errorf("unknown model %q", name)
	}
}
