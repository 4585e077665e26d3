package processes

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearch(t *testing.T) {
	a := []int{1, 10, 4, -3, 9, 7}

	tests := []struct {
		p    int
		want int
	}{
		{1, 0},
		{4, 2},
		{9, 4},
		{0, -1},  // before everything
		{2, -3},  // between 1 and 4
		{5, -5},  // between 4 and 9
		{12, -7}, // after everything
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, search(a, tt.p), "search(%d)", tt.p)
	}

	assert.Equal(t, -1, search(nil, 3))
	assert.Equal(t, -1, search([]int{}, 0))
}

func TestAssocDissoc(t *testing.T) {
	a := []int{}
	a = assoc(a, 5, 50)
	a = assoc(a, 1, 10)
	a = assoc(a, 9, ^90)
	a = assoc(a, 3, 30)
	require.Equal(t, []int{1, 10, 3, 30, 5, 50, 9, ^90}, a)

	updated := assoc(a, 5, ^50)
	assert.Equal(t, []int{1, 10, 3, 30, 5, ^50, 9, ^90}, updated)
	assert.Equal(t, 50, a[5], "assoc must not write through")

	removed := dissoc(a, 3)
	assert.Equal(t, []int{1, 10, 5, 50, 9, ^90}, removed)
	assert.Equal(t, []int{1, 10, 3, 30, 5, 50, 9, ^90}, a, "dissoc must not write through")

	assert.Equal(t, a, dissoc(a, 4))
	assert.Empty(t, dissoc([]int{7, 0}, 7))
}

// sorted reports whether the packed array is strictly ascending by process.
func sorted(a []int) bool {
	for i := 2; i < len(a); i += 2 {
		if a[i-2] >= a[i] {
			return false
		}
	}
	return true
}

func TestSearch_Properties(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	a := []int{}
	present := map[int]bool{}

	for step := 0; step < 5000; step++ {
		p := rng.Intn(64)
		if rng.Intn(3) == 0 {
			a = dissoc(a, p)
			delete(present, p)
			require.Less(t, search(a, p), 0)
		} else {
			a = assoc(a, p, rng.Intn(100)-50)
			present[p] = true
			i := search(a, p)
			require.GreaterOrEqual(t, i, 0)
			require.Equal(t, p, a[i])
		}
		require.True(t, sorted(a), "step %d: %v", step, a)
		require.Equal(t, 2*len(present), len(a))

		q := rng.Intn(64)
		i := search(a, q)
		if present[q] {
			require.GreaterOrEqual(t, i, 0)
			require.Zero(t, i%2)
			require.Equal(t, q, a[i])
			continue
		}
		require.Less(t, i, 0)
		ins := -i - 1
		require.Zero(t, ins%2)
		if ins > 0 {
			require.Less(t, a[ins-2], q)
		}
		if ins < len(a) {
			require.Greater(t, a[ins], q)
		}
	}
}

func TestArrayProcesses_String(t *testing.T) {
	h := testHistory(2)
	ps := NewArrayProcesses(h).Call(h[0]).Call(h[3]).Linearize(h[3])
	assert.Equal(t, "ArrayProcesses{0:calling:0 1:returning:3}", ps.(*ArrayProcesses).String())
}
