package processes

import (
	"fmt"
	"iter"
	"strings"

	"golang.org/x/exp/slices"

	"linverify/internal/hashing"
	"linverify/internal/history"
)

// ArrayProcesses packs the tracker into one sorted []int of interleaved
// (process, encoded op) pairs, ordered by process. The encoded op is the
// operation's history index while calling and its one's complement (^index,
// always negative) once linearized. Idle processes have no entry.
//
// Every transition copies the whole array. In exchange two trackers holding
// the same pairs have identical arrays, so equality and hashing are a single
// linear scan over contiguous memory.
type ArrayProcesses struct {
	history []history.Operation
	a       []int
}

// NewArrayProcesses returns an empty tracker resolving indices against h.
// Every operation of h must carry its own position as Index, and every
// operation other than info must have a non-negative process.
func NewArrayProcesses(h []history.Operation) *ArrayProcesses {
	for i, op := range h {
		if op.Index != i {
			panic(fmt.Sprintf("processes: operation at position %d has index %d; history is not indexed", i, op.Index))
		}
		if op.Type != history.Info && op.Process < 0 {
			panic(fmt.Sprintf("processes: operation %d has invalid process %d", i, op.Process))
		}
	}
	return &ArrayProcesses{history: h, a: []int{}}
}

// search looks for process p in the packed array a. It returns the array
// index of p's entry (always even) when present, otherwise -(i+1) where i is
// the array index at which p's entry would be inserted.
func search(a []int, p int) int {
	lo, hi := 0, len(a)/2-1
	for lo <= hi {
		mid := int(uint(lo+hi) >> 1)
		switch q := a[2*mid]; {
		case q < p:
			lo = mid + 1
		case q > p:
			hi = mid - 1
		default:
			return 2 * mid
		}
	}
	return -(2*lo + 1)
}

// assoc returns a copy of a with process p mapped to v.
func assoc(a []int, p, v int) []int {
	i := search(a, p)
	if i >= 0 {
		out := make([]int, len(a))
		copy(out, a)
		out[i+1] = v
		return out
	}
	i = -i - 1
	out := make([]int, len(a)+2)
	copy(out, a[:i])
	out[i] = p
	out[i+1] = v
	copy(out[i+2:], a[i:])
	return out
}

// dissoc returns a copy of a without process p. a is returned as is when p
// has no entry.
func dissoc(a []int, p int) []int {
	i := search(a, p)
	if i < 0 {
		return a
	}
	out := make([]int, len(a)-2)
	copy(out, a[:i])
	copy(out[i:], a[i+2:])
	return out
}

func (ps *ArrayProcesses) with(a []int) *ArrayProcesses {
	return &ArrayProcesses{history: ps.history, a: a}
}

func (ps *ArrayProcesses) Calls() iter.Seq[history.Operation] {
	return func(yield func(history.Operation) bool) {
		for i := 1; i < len(ps.a); i += 2 {
			if ps.a[i] < 0 {
				continue
			}
			if !yield(ps.history[ps.a[i]]) {
				return
			}
		}
	}
}

func (ps *ArrayProcesses) Call(op history.Operation) Processes {
	if op.Index < 0 || op.Index >= len(ps.history) {
		panic(fmt.Sprintf("processes: operation index %d outside history of %d operations", op.Index, len(ps.history)))
	}
	if search(ps.a, op.Process) >= 0 {
		violation(ps, "call", op.Process)
	}
	return ps.with(assoc(ps.a, op.Process, op.Index))
}

func (ps *ArrayProcesses) Linearize(op history.Operation) Processes {
	i := search(ps.a, op.Process)
	if i < 0 || ps.a[i+1] < 0 {
		violation(ps, "linearize", op.Process)
	}
	return ps.with(assoc(ps.a, op.Process, ^ps.a[i+1]))
}

func (ps *ArrayProcesses) Return(op history.Operation) Processes {
	i := search(ps.a, op.Process)
	if i < 0 || ps.a[i+1] >= 0 {
		violation(ps, "return", op.Process)
	}
	return ps.with(dissoc(ps.a, op.Process))
}

func (ps *ArrayProcesses) IsIdle(p int) bool {
	return search(ps.a, p) < 0
}

func (ps *ArrayProcesses) IsCalling(p int) bool {
	i := search(ps.a, p)
	return i >= 0 && ps.a[i+1] >= 0
}

func (ps *ArrayProcesses) IsReturning(p int) bool {
	i := search(ps.a, p)
	return i >= 0 && ps.a[i+1] < 0
}

func (ps *ArrayProcesses) Equal(other Processes) bool {
	o, ok := other.(*ArrayProcesses)
	if !ok {
		return false
	}
	return slices.Equal(ps.a, o.a)
}

func (ps *ArrayProcesses) Hash() uint64 {
	return hashing.Ints(ps.a)
}

func (ps *ArrayProcesses) String() string {
	var b strings.Builder
	b.WriteString("ArrayProcesses{")
	for i := 0; i < len(ps.a); i += 2 {
		if i > 0 {
			b.WriteString(" ")
		}
		v := ps.a[i+1]
		if v >= 0 {
			fmt.Fprintf(&b, "%d:calling:%d", ps.a[i], v)
		} else {
			fmt.Fprintf(&b, "%d:returning:%d", ps.a[i], ^v)
		}
	}
	b.WriteString("}")
	return b.String()
}
