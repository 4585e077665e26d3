package search

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linverify/internal/history"
	"linverify/internal/model"
	"linverify/internal/processes"
	"linverify/internal/state"
)

func prepare(t *testing.T, raw ...history.Operation) []history.Operation {
	t.Helper()
	h, err := history.Prepare(raw)
	require.NoError(t, err)
	return h
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name  string
		model model.Model
		h     []history.Operation
		valid bool
	}{
		{
			name:  "empty",
			model: model.NewRegister(nil),
			h:     nil,
			valid: true,
		},
		{
			name:  "sequential write then read",
			model: model.NewRegister(0),
			h: []history.Operation{
				history.NewInvoke(0, "write", 1),
				history.NewOK(0, "write", 1),
				history.NewInvoke(1, "read", nil),
				history.NewOK(1, "read", 1),
			},
			valid: true,
		},
		{
			name:  "stale read",
			model: model.NewRegister(0),
			h: []history.Operation{
				history.NewInvoke(0, "write", 1),
				history.NewOK(0, "write", 1),
				history.NewInvoke(1, "read", nil),
				history.NewOK(1, "read", 0),
			},
			valid: false,
		},
		{
			name:  "concurrent read may see either value",
			model: model.NewRegister(0),
			h: []history.Operation{
				history.NewInvoke(0, "write", 1),
				history.NewInvoke(1, "read", nil),
				history.NewOK(1, "read", 0),
				history.NewInvoke(2, "read", nil),
				history.NewOK(0, "write", 1),
				history.NewOK(2, "read", 1),
			},
			valid: true,
		},
		{
			name:  "reads disagree on order",
			model: model.NewRegister(0),
			h: []history.Operation{
				history.NewInvoke(0, "write", 1),
				history.NewInvoke(1, "read", nil),
				history.NewOK(1, "read", 1),
				history.NewInvoke(2, "read", nil),
				history.NewOK(2, "read", 0),
				history.NewOK(0, "write", 1),
			},
			valid: false,
		},
		{
			name:  "crashed write may take effect later",
			model: model.NewRegister(0),
			h: []history.Operation{
				history.NewInvoke(0, "write", 2),
				history.NewInfo(0, "write", nil),
				history.NewInvoke(1, "read", nil),
				history.NewOK(1, "read", 0),
				history.NewInvoke(1, "read", nil),
				history.NewOK(1, "read", 2),
			},
			valid: true,
		},
		{
			name:  "failed write never happened",
			model: model.NewRegister(0),
			h: []history.Operation{
				history.NewInvoke(0, "write", 2),
				history.NewFail(0, "write", 2),
				history.NewInvoke(1, "read", nil),
				history.NewOK(1, "read", 2),
			},
			valid: false,
		},
		{
			name:  "mutex held twice",
			model: model.NewMutex(),
			h: []history.Operation{
				history.NewInvoke(0, "acquire", nil),
				history.NewOK(0, "acquire", nil),
				history.NewInvoke(1, "acquire", nil),
				history.NewOK(1, "acquire", nil),
			},
			valid: false,
		},
		{
			name:  "cas chain",
			model: model.NewCASRegister(0),
			h: []history.Operation{
				history.NewInvoke(0, "cas", [2]any{0, 1}),
				history.NewInvoke(1, "cas", [2]any{1, 2}),
				history.NewOK(1, "cas", [2]any{1, 2}),
				history.NewOK(0, "cas", [2]any{0, 1}),
				history.NewInvoke(2, "read", nil),
				history.NewOK(2, "read", 2),
			},
			valid: true,
		},
	}

	for _, tt := range tests {
		for _, kind := range processes.Kinds() {
			t.Run(tt.name+"/"+string(kind), func(t *testing.T) {
				h := prepare(t, tt.h...)
				res, err := Check(context.Background(), tt.model, h, Options{Kind: kind})
				require.NoError(t, err)
				assert.Equal(t, tt.valid, res.Valid)
				if tt.valid {
					assert.Nil(t, res.FailedAt)
				} else {
					require.NotNil(t, res.FailedAt)
					assert.Equal(t, history.Ok, res.FailedAt.Type)
					assert.NotEmpty(t, res.Frontier)
				}
			})
		}
	}
}

func TestCheck_FailedAtAndFrontier(t *testing.T) {
	h := prepare(t,
		history.NewInvoke(0, "write", 1),
		history.NewOK(0, "write", 1),
		history.NewInvoke(1, "read", nil),
		history.NewOK(1, "read", 0),
	)
	res, err := Check(context.Background(), model.NewRegister(0), h, Options{})
	require.NoError(t, err)
	require.False(t, res.Valid)
	assert.Equal(t, 3, res.FailedAt.Index)

	// the read is pending and could not be linearized
	require.Len(t, res.Frontier, 1)
	c := res.Frontier[0]
	assert.True(t, c.Model.Equal(model.NewRegister(1)))
	assert.True(t, c.Processes.IsCalling(1))
}

// Many concurrent writes of the same value collapse to few configurations.
func TestCheck_Deduplicates(t *testing.T) {
	const n = 6
	var raw []history.Operation
	for p := 0; p < n; p++ {
		raw = append(raw, history.NewInvoke(p, "write", 1))
	}
	for p := 0; p < n; p++ {
		raw = append(raw, history.NewOK(p, "write", 1))
	}
	h := prepare(t, raw...)

	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	res, err := Check(context.Background(), model.NewRegister(0), h, Options{Kind: processes.KindMemo, Metrics: metrics})
	require.NoError(t, err)
	assert.True(t, res.Valid)

	// after all invocations each process is independently calling or
	// returning: 2^n trackers, and the model is 0 only when none returned
	assert.Equal(t, 1<<n, res.MaxFrontier)
	assert.Positive(t, testutil.ToFloat64(metrics.pruned.WithLabelValues("memo")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.results.WithLabelValues("memo", "valid")))
}

func TestCheck_ContextCancelled(t *testing.T) {
	h := prepare(t, history.NewInvoke(0, "read", nil), history.NewOK(0, "read", nil))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Check(ctx, model.NewRegister(nil), h, Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

// Overlapping writes of distinct values make a single invocation expensive to
// close; the deadline must interrupt it rather than wait for the next event.
func TestCheck_DeadlineDuringClosure(t *testing.T) {
	const n = 20
	var raw []history.Operation
	for p := 0; p < n; p++ {
		raw = append(raw, history.NewInvoke(p, "write", p))
	}
	for p := 0; p < n; p++ {
		raw = append(raw, history.NewOK(p, "write", p))
	}
	h := prepare(t, raw...)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := Check(ctx, model.NewRegister(nil), h, Options{Kind: processes.KindArray})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestCloseLinearizations_Cancelled(t *testing.T) {
	h := prepare(t,
		history.NewInvoke(0, "write", 1),
		history.NewInvoke(1, "write", 2),
	)
	ps := processes.New(processes.KindMap, h).Call(h[0]).Call(h[1])
	s := state.NewSet().Add(state.Config{Model: model.NewRegister(nil), Processes: ps})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	added, err := closeLinearizations(ctx, s, nil, "map")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, added)
	assert.Equal(t, 1, s.Len())

	added, err = closeLinearizations(context.Background(), s, nil, "map")
	require.NoError(t, err)
	// each write alone, then both in either order
	assert.Equal(t, 4, added)
}

func TestCheck_RejectsUnpreparedHistory(t *testing.T) {
	h := history.Index([]history.Operation{
		history.NewInvoke(0, "read", nil),
		history.NewFail(0, "read", nil),
	})
	_, err := Check(context.Background(), model.NewRegister(nil), h, Options{Kind: processes.KindMap})
	assert.Error(t, err)
}
