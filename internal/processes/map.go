package processes

import (
	"fmt"
	"iter"

	"golang.org/x/exp/maps"

	"linverify/internal/hashing"
	"linverify/internal/history"
)

// MapProcesses keeps calling and returning operations in two maps keyed by
// process. The maps are never written after construction; every transition
// clones the map it changes.
type MapProcesses struct {
	calling   map[int]history.Operation
	returning map[int]history.Operation
}

func NewMapProcesses() *MapProcesses {
	return &MapProcesses{
		calling:   map[int]history.Operation{},
		returning: map[int]history.Operation{},
	}
}

func (ps *MapProcesses) Calls() iter.Seq[history.Operation] {
	return func(yield func(history.Operation) bool) {
		for _, op := range ps.calling {
			if !yield(op) {
				return
			}
		}
	}
}

func (ps *MapProcesses) Call(op history.Operation) Processes {
	return ps.call(op)
}

func (ps *MapProcesses) call(op history.Operation) *MapProcesses {
	if !ps.IsIdle(op.Process) {
		violation(ps, "call", op.Process)
	}
	calling := maps.Clone(ps.calling)
	calling[op.Process] = op
	return &MapProcesses{calling: calling, returning: ps.returning}
}

func (ps *MapProcesses) Linearize(op history.Operation) Processes {
	return ps.linearize(op)
}

func (ps *MapProcesses) linearize(op history.Operation) *MapProcesses {
	called, ok := ps.calling[op.Process]
	if !ok {
		violation(ps, "linearize", op.Process)
	}
	calling := maps.Clone(ps.calling)
	delete(calling, op.Process)
	returning := maps.Clone(ps.returning)
	returning[op.Process] = called
	return &MapProcesses{calling: calling, returning: returning}
}

func (ps *MapProcesses) Return(op history.Operation) Processes {
	return ps.ret(op)
}

func (ps *MapProcesses) ret(op history.Operation) *MapProcesses {
	if !ps.IsReturning(op.Process) {
		violation(ps, "return", op.Process)
	}
	returning := maps.Clone(ps.returning)
	delete(returning, op.Process)
	return &MapProcesses{calling: ps.calling, returning: returning}
}

func (ps *MapProcesses) IsIdle(p int) bool {
	return !ps.IsCalling(p) && !ps.IsReturning(p)
}

func (ps *MapProcesses) IsCalling(p int) bool {
	_, ok := ps.calling[p]
	return ok
}

func (ps *MapProcesses) IsReturning(p int) bool {
	_, ok := ps.returning[p]
	return ok
}

func (ps *MapProcesses) Equal(other Processes) bool {
	o, ok := other.(*MapProcesses)
	if !ok {
		return false
	}
	return ps.sameMaps(o)
}

func (ps *MapProcesses) sameMaps(o *MapProcesses) bool {
	return maps.EqualFunc(ps.calling, o.calling, history.Same) &&
		maps.EqualFunc(ps.returning, o.returning, history.Same)
}

func (ps *MapProcesses) Hash() uint64 {
	return hashing.Combine(hashOps(ps.calling), hashOps(ps.returning))
}

// hashOps is independent of map iteration order.
func hashOps(m map[int]history.Operation) uint64 {
	var h uint64
	for p, op := range m {
		h += hashing.Mix(hashing.Pair(p, op.Index))
	}
	return h
}

func (ps *MapProcesses) String() string {
	return fmt.Sprintf("MapProcesses{calling: %v, returning: %v}", ps.calling, ps.returning)
}
