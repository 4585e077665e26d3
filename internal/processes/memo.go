package processes

import (
	"iter"
	"sync/atomic"

	"linverify/internal/history"
)

// MemoProcesses behaves like MapProcesses but computes its hash at most once.
//
// The cache is written once through atomics. Two goroutines hashing the same
// fresh tracker may both compute the hash; they compute the same value, so
// the duplicate store is harmless.
type MemoProcesses struct {
	m      *MapProcesses
	hash   atomic.Uint64
	hashed atomic.Bool
}

func NewMemoProcesses() *MemoProcesses {
	return &MemoProcesses{m: NewMapProcesses()}
}

func (ps *MemoProcesses) Calls() iter.Seq[history.Operation] {
	return ps.m.Calls()
}

func (ps *MemoProcesses) Call(op history.Operation) Processes {
	if !ps.IsIdle(op.Process) {
		violation(ps, "call", op.Process)
	}
	return &MemoProcesses{m: ps.m.call(op)}
}

func (ps *MemoProcesses) Linearize(op history.Operation) Processes {
	if !ps.IsCalling(op.Process) {
		violation(ps, "linearize", op.Process)
	}
	return &MemoProcesses{m: ps.m.linearize(op)}
}

func (ps *MemoProcesses) Return(op history.Operation) Processes {
	if !ps.IsReturning(op.Process) {
		violation(ps, "return", op.Process)
	}
	return &MemoProcesses{m: ps.m.ret(op)}
}

func (ps *MemoProcesses) IsIdle(p int) bool { return ps.m.IsIdle(p) }
func (ps *MemoProcesses) IsCalling(p int) bool { return ps.m.IsCalling(p) }
func (ps *MemoProcesses) IsReturning(p int) bool { return ps.m.IsReturning(p) }

// Equal rejects on differing hashes before comparing the maps.
func (ps *MemoProcesses) Equal(other Processes) bool {
	o, ok := other.(*MemoProcesses)
	if !ok {
		return false
	}
	if ps == o {
		return true
	}
	if ps.Hash() != o.Hash() {
		return false
	}
	return ps.m.sameMaps(o.m)
}

func (ps *MemoProcesses) Hash() uint64 {
	if ps.hashed.Load() {
		return ps.hash.Load()
	}
	h := ps.m.Hash()
	ps.hash.Store(h)
	ps.hashed.Store(true)
	return h
}

func (ps *MemoProcesses) String() string {
	return "Memo" + ps.m.String()
}
