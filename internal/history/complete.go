package history

import (
	"errors"
	"fmt"
)

var (
	// ErrDoubleInvoke is returned when a process invokes an operation while
	// its previous invocation is still outstanding.
	ErrDoubleInvoke = errors.New("process invoked twice without a response")

	// ErrUnmatchedResponse is returned for an ok or fail with no invocation.
	ErrUnmatchedResponse = errors.New("response without a matching invocation")

	// ErrInvalidProcess is returned for an invoke, ok or fail on a negative
	// process.
	ErrInvalidProcess = errors.New("negative process id")
)

// Error locates a malformed event in a history
type Error struct {
	Position int
	Op       Operation
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("history position %d (%v): %v", e.Position, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Complete pairs every invocation with its outcome.
//
// An invocation answered by ok takes the value of the response. An
// invocation answered by fail is flagged with Fails. An invocation answered
// by info, or never answered, is left pending. The input is not modified.
func Complete(h []Operation) ([]Operation, error) {
	out := make([]Operation, len(h))
	copy(out, h)

	// process -> position of its outstanding invocation
	calls := make(map[int]int)
	for i, op := range out {
		if op.Process < 0 && op.Type != Info {
			return nil, &Error{Position: i, Op: op, Err: ErrInvalidProcess}
		}
		switch op.Type {
		case Invoke:
			if _, ok := calls[op.Process]; ok {
				return nil, &Error{Position: i, Op: op, Err: ErrDoubleInvoke}
			}
			calls[op.Process] = i
		case Ok:
			j, ok := calls[op.Process]
			if !ok {
				return nil, &Error{Position: i, Op: op, Err: ErrUnmatchedResponse}
			}
			out[j].Value = op.Value
			delete(calls, op.Process)
		case Fail:
			j, ok := calls[op.Process]
			if !ok {
				return nil, &Error{Position: i, Op: op, Err: ErrUnmatchedResponse}
			}
			out[j].Fails = true
			delete(calls, op.Process)
		case Info:
			delete(calls, op.Process)
		default:
			return nil, &Error{Position: i, Op: op, Err: fmt.Errorf("unknown operation type %d", int(op.Type))}
		}
	}
	return out, nil
}

// Index returns a copy of h where every operation carries its position.
func Index(h []Operation) []Operation {
	out := make([]Operation, len(h))
	for i, op := range h {
		op.Index = i
		out[i] = op
	}
	return out
}

// WithoutFailures drops failed invocations and their fail responses. A
// failed operation never took effect, so it has no place in a linearization.
// h must already be completed.
func WithoutFailures(h []Operation) []Operation {
	out := make([]Operation, 0, len(h))
	for _, op := range h {
		if op.Fails || op.Type == Fail {
			continue
		}
		out = append(out, op)
	}
	return out
}

// RetireCrashed gives a fresh process id to every process that invokes again
// after an info response. The crashed call stays pending on the old id for
// the rest of the history, so the old id can never be reused.
func RetireCrashed(h []Operation) []Operation {
	next := 0
	for _, op := range h {
		if op.Process >= next {
			next = op.Process + 1
		}
	}

	out := make([]Operation, len(h))
	alias := make(map[int]int)
	crashed := make(map[int]bool)
	for i, op := range h {
		if p, ok := alias[op.Process]; ok {
			op.Process = p
		}
		switch {
		case op.Type == Invoke && crashed[op.Process]:
			orig := h[i].Process
			alias[orig] = next
			op.Process = next
			next++
		case op.Type == Info:
			crashed[op.Process] = true
		}
		out[i] = op
	}
	return out
}

// Prepare completes, filters and indexes a raw history.
func Prepare(h []Operation) ([]Operation, error) {
	completed, err := Complete(h)
	if err != nil {
		return nil, err
	}
	return Index(RetireCrashed(WithoutFailures(completed))), nil
}
