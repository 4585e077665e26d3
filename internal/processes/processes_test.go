package processes

import (
	"math/rand"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linverify/internal/history"
)

// testHistory is an indexed history with one invocation per process 0..n-1
// followed by one invocation per process n..2n-1 on the same processes.
func testHistory(n int) []history.Operation {
	h := make([]history.Operation, 0, 2*n)
	for round := 0; round < 2; round++ {
		for p := 0; p < n; p++ {
			h = append(h, history.NewInvoke(p, "write", round*n+p))
		}
	}
	return history.Index(h)
}

func allKinds(t *testing.T, h []history.Operation, f func(t *testing.T, ps Processes)) {
	for _, kind := range Kinds() {
		t.Run(string(kind), func(t *testing.T) {
			f(t, New(kind, h))
		})
	}
}

func collect(ps Processes) []int {
	var out []int
	for op := range ps.Calls() {
		out = append(out, op.Index)
	}
	sort.Ints(out)
	return out
}

func exactlyOneState(t *testing.T, ps Processes, p int) {
	t.Helper()
	n := 0
	for _, b := range []bool{ps.IsIdle(p), ps.IsCalling(p), ps.IsReturning(p)} {
		if b {
			n++
		}
	}
	assert.Equal(t, 1, n, "process %d of %v", p, ps)
}

func TestProcesses_Lifecycle(t *testing.T) {
	h := testHistory(3)
	op := h[1]

	allKinds(t, h, func(t *testing.T, empty Processes) {
		assert.True(t, empty.IsIdle(op.Process))
		assert.Empty(t, collect(empty))

		calling := empty.Call(op)
		assert.Equal(t, Calling, StateOf(calling, op.Process))
		assert.Equal(t, []int{op.Index}, collect(calling))

		returning := calling.Linearize(op)
		assert.Equal(t, Returning, StateOf(returning, op.Process))
		assert.Empty(t, collect(returning))

		idle := returning.Return(op)
		assert.Equal(t, Idle, StateOf(idle, op.Process))

		// earlier values are untouched
		assert.True(t, empty.IsIdle(op.Process))
		assert.True(t, calling.IsCalling(op.Process))
		assert.True(t, returning.IsReturning(op.Process))

		assert.True(t, idle.Equal(empty))
		assert.Equal(t, empty.Hash(), idle.Hash())
		assert.False(t, calling.Equal(empty))
		assert.False(t, calling.Equal(returning))

		for p := 0; p < 3; p++ {
			for _, ps := range []Processes{empty, calling, returning, idle} {
				exactlyOneState(t, ps, p)
			}
		}
	})
}

func TestProcesses_IllegalTransitions(t *testing.T) {
	h := testHistory(2)
	op := h[0]

	allKinds(t, h, func(t *testing.T, empty Processes) {
		calling := empty.Call(op)
		returning := calling.Linearize(op)

		tests := []struct {
			name string
			f    func()
			want State
		}{
			{"call calling", func() { calling.Call(op) }, Calling},
			{"call returning", func() { returning.Call(op) }, Returning},
			{"linearize idle", func() { empty.Linearize(op) }, Idle},
			{"linearize returning", func() { returning.Linearize(op) }, Returning},
			{"return idle", func() { empty.Return(op) }, Idle},
			{"return calling", func() { calling.Return(op) }, Calling},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				defer func() {
					r := recover()
					require.NotNil(t, r)
					perr, ok := r.(*ProtocolError)
					require.True(t, ok, "panic value %v", r)
					assert.Equal(t, op.Process, perr.Process)
					assert.Equal(t, tt.want, perr.State)
					assert.NotEmpty(t, perr.Error())
				}()
				tt.f()
			})
		}
	})
}

func TestProcesses_CallsRestartable(t *testing.T) {
	h := testHistory(4)
	allKinds(t, h, func(t *testing.T, ps Processes) {
		for _, op := range h[:4] {
			ps = ps.Call(op)
		}
		ps = ps.Linearize(h[2])

		want := []int{0, 1, 3}
		assert.Equal(t, want, collect(ps))
		assert.Equal(t, want, collect(ps))

		// early exit
		n := 0
		for range ps.Calls() {
			n++
			break
		}
		assert.Equal(t, 1, n)
	})
}

func TestProcesses_EqualityIsOrderIndependent(t *testing.T) {
	h := testHistory(3)
	allKinds(t, h, func(t *testing.T, empty Processes) {
		a := empty.Call(h[0]).Call(h[1]).Call(h[2]).Linearize(h[1])
		b := empty.Call(h[2]).Call(h[1]).Linearize(h[1]).Call(h[0])
		assert.True(t, a.Equal(b))
		assert.Equal(t, a.Hash(), b.Hash())

		// same processes, different operations
		c := empty.Call(h[3]).Call(h[1]).Call(h[2]).Linearize(h[1])
		assert.False(t, a.Equal(c))
	})
}

// Goroutines racing to hash a fresh tracker may each compute the hash; they
// must all see the same value.
func TestMemoProcesses_ConcurrentFirstHash(t *testing.T) {
	h := testHistory(4)
	want := NewMapProcesses().Call(h[0]).Call(h[1]).Call(h[2]).Linearize(h[2]).Hash()

	for round := 0; round < 50; round++ {
		ps := NewMemoProcesses().Call(h[0]).Call(h[1]).Call(h[2]).Linearize(h[2])

		const workers = 8
		hashes := make([]uint64, workers)
		var start, wg sync.WaitGroup
		start.Add(1)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				start.Wait()
				hashes[i] = ps.Hash()
			}(i)
		}
		start.Done()
		wg.Wait()

		for i, got := range hashes {
			require.Equal(t, want, got, "worker %d", i)
		}
	}
}

func TestProcesses_VariantsAreNotEqual(t *testing.T) {
	h := testHistory(1)
	assert.False(t, NewMapProcesses().Equal(NewMemoProcesses()))
	assert.False(t, NewMemoProcesses().Equal(NewArrayProcesses(h)))
	assert.False(t, NewArrayProcesses(h).Equal(NewMapProcesses()))
}

func TestProcesses_CallingAndReturningSplitsHashApart(t *testing.T) {
	h := testHistory(2)
	for _, kind := range []Kind{KindMap, KindMemo} {
		empty := New(kind, h)
		// p0 calling, p1 returning vs p0 returning, p1 calling
		a := empty.Call(h[0]).Call(h[1]).Linearize(h[1])
		b := empty.Call(h[0]).Call(h[1]).Linearize(h[0])
		assert.False(t, a.Equal(b), kind)
		assert.NotEqual(t, a.Hash(), b.Hash(), kind)
	}
}

// Random walks applied to every representation must agree at every step.
func TestProcesses_CrossVariantEquivalence(t *testing.T) {
	const n = 8
	h := testHistory(n)
	rng := rand.New(rand.NewSource(42))

	trackers := make([]Processes, 0, len(kinds))
	for _, kind := range Kinds() {
		trackers = append(trackers, New(kind, h))
	}
	// per process: which history op is attached, -1 when idle
	attached := make([]int, n)
	for p := range attached {
		attached[p] = -1
	}

	for step := 0; step < 2000; step++ {
		p := rng.Intn(n)
		ref := trackers[0]
		var apply func(Processes) Processes
		switch StateOf(ref, p) {
		case Idle:
			op := h[p+n*rng.Intn(2)]
			attached[p] = op.Index
			apply = func(ps Processes) Processes { return ps.Call(op) }
		case Calling:
			op := h[attached[p]]
			apply = func(ps Processes) Processes { return ps.Linearize(op) }
		case Returning:
			op := h[attached[p]]
			attached[p] = -1
			apply = func(ps Processes) Processes { return ps.Return(op) }
		}
		for i := range trackers {
			trackers[i] = apply(trackers[i])
		}

		want := collect(trackers[0])
		for _, ps := range trackers[1:] {
			require.Equal(t, want, collect(ps), "step %d", step)
			for q := 0; q < n; q++ {
				require.Equal(t, StateOf(trackers[0], q), StateOf(ps, q), "step %d process %d", step, q)
			}
		}
	}
}

func TestNewArrayProcesses_Preconditions(t *testing.T) {
	assert.Panics(t, func() {
		NewArrayProcesses([]history.Operation{{Index: 0}, {Index: 0}})
	})
	assert.Panics(t, func() {
		NewArrayProcesses(history.Index([]history.Operation{history.NewInvoke(-1, "read", nil)}))
	})
	assert.NotPanics(t, func() {
		NewArrayProcesses(history.Index([]history.Operation{history.NewInfo(-1, "kill", nil)}))
	})
	assert.Panics(t, func() {
		NewArrayProcesses(nil).Call(history.Operation{Process: 0, Index: 5})
	})
}

func TestParseKind(t *testing.T) {
	for _, kind := range Kinds() {
		got, err := ParseKind(string(kind))
		require.NoError(t, err)
		assert.Equal(t, kind, got)
	}
	_, err := ParseKind("tree")
	assert.Error(t, err)
	assert.Panics(t, func() { New(Kind("tree"), nil) })
}
