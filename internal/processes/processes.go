// Package processes tracks, for every process of a history, whether it is
// idle, has an outstanding call, or has a linearized call that has not yet
// returned.
//
// Trackers are immutable values. Call, Linearize and Return leave the
// receiver untouched and return a new tracker, so old trackers stay valid
// while a search backtracks and may be read from any goroutine.
//
// Three interchangeable representations are provided:
//
//   - MapProcesses: two maps, process -> operation, for calling and returning
//   - MemoProcesses: the same maps with a cached hash
//   - ArrayProcesses: a sorted packed []int of (process, encoded op) pairs
//
// An out-of-order transition (calling a busy process, linearizing a process
// that is not calling, returning a process that is not returning) means the
// search driver is broken. The tracker panics with a *ProtocolError.
package processes

import (
	"fmt"
	"iter"

	"linverify/internal/history"
)

type Processes interface {
	// Calls yields every operation currently in the calling state, in no
	// particular order. The sequence may be ranged over any number of times.
	Calls() iter.Seq[history.Operation]

	// Call moves op.Process from idle to calling op.
	Call(op history.Operation) Processes
	// Linearize moves op.Process from calling to returning.
	Linearize(op history.Operation) Processes
	// Return moves op.Process from returning back to idle.
	Return(op history.Operation) Processes

	IsIdle(p int) bool
	IsCalling(p int) bool
	IsReturning(p int) bool

	// Equal reports whether other is the same variant and tracks the same
	// operations in the same states.
	Equal(other Processes) bool
	Hash() uint64
}

// State of a single process
type State int

const (
	Idle State = iota
	Calling
	Returning
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Calling:
		return "calling"
	case Returning:
		return "returning"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// StateOf returns the state of process p in ps.
func StateOf(ps Processes, p int) State {
	switch {
	case ps.IsCalling(p):
		return Calling
	case ps.IsReturning(p):
		return Returning
	default:
		return Idle
	}
}

// ProtocolError is the panic value raised on an illegal transition
type ProtocolError struct {
	Transition string
	Process    int
	State      State
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("processes: can't %s process %d: process is %v", e.Transition, e.Process, e.State)
}

func violation(ps Processes, transition string, p int) {
	panic(&ProtocolError{Transition: transition, Process: p, State: StateOf(ps, p)})
}

// Kind selects a tracker representation
type Kind string

const (
	KindMap   Kind = "map"
	KindMemo  Kind = "memo"
	KindArray Kind = "array"
)

var kinds = []Kind{KindMap, KindMemo, KindArray}

// Kinds lists every supported representation.
func Kinds() []Kind {
	out := make([]Kind, len(kinds))
	copy(out, kinds)
	return out
}

func ParseKind(s string) (Kind, error) {
	for _, k := range kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown tracker kind %q (want one of %v)", s, kinds)
}

// New returns an empty tracker of the given kind. h is the prepared history
// the tracked operations come from; only the array representation uses it.
func New(kind Kind, h []history.Operation) Processes {
	switch kind {
	case KindMap:
		return NewMapProcesses()
	case KindMemo:
		return NewMemoProcesses()
	case KindArray:
		return NewArrayProcesses(h)
	default:
		panic(fmt.Sprintf("processes: unknown kind %q", kind))
	}
}
