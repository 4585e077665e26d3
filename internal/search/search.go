// Package search checks a prepared history for linearizability by walking it
// event by event while keeping every reachable configuration.
//
// On an invocation every configuration calls the new operation and the
// frontier is then closed under linearization: any pending call the model
// accepts may take effect, in any order. On a completion only configurations
// in which that process has already taken effect survive. Equal
// configurations reached along different paths are kept once.
package search

import (
	"context"
	"fmt"
	"log/slog"

	"linverify/internal/history"
	"linverify/internal/model"
	"linverify/internal/processes"
	"linverify/internal/state"
)

type Options struct {
	// Kind selects the process tracker representation. Defaults to array.
	Kind    processes.Kind
	Logger  *slog.Logger
	Metrics *Metrics
}

// Result of a check
type Result struct {
	Valid bool
	// Visited counts distinct configurations admitted to any frontier.
	Visited     int
	MaxFrontier int
	// FailedAt is the completion no configuration could explain. Only set
	// when Valid is false.
	FailedAt *history.Operation
	// Frontier is the last non-empty frontier.
	Frontier []state.Config
}

// Check searches h, which must come from history.Prepare, starting from m.
// The context is checked between history events and periodically while a
// frontier is closed under linearization.
func Check(ctx context.Context, m model.Model, h []history.Operation, opts Options) (Result, error) {
	if opts.Kind == "" {
		opts.Kind = processes.KindArray
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	kind := string(opts.Kind)

	frontier := state.NewSet().Add(state.Config{Model: m, Processes: processes.New(opts.Kind, h)})
	res := Result{Visited: 1, MaxFrontier: 1}

	for _, op := range h {
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("search aborted at operation %d: %w", op.Index, err)
		}

		switch op.Type {
		case history.Invoke:
			next := state.NewSet()
			for c := range frontier.All() {
				added := next.Insert(state.Config{Model: c.Model, Processes: c.Processes.Call(op)})
				opts.Metrics.visit(kind, added)
			}
			res.Visited += next.Len()
			added, err := closeLinearizations(ctx, next, opts.Metrics, kind)
			res.Visited += added
			if err != nil {
				return res, fmt.Errorf("search aborted at operation %d: %w", op.Index, err)
			}
			frontier = next

		case history.Ok:
			next := state.NewSet()
			for c := range frontier.All() {
				if !c.Processes.IsReturning(op.Process) {
					continue
				}
				added := next.Insert(state.Config{Model: c.Model, Processes: c.Processes.Return(op)})
				opts.Metrics.visit(kind, added)
			}
			if next.Len() == 0 {
				failed := op
				res.FailedAt = &failed
				res.Frontier = frontier.Slice()
				logger.Debug("no configuration explains completion",
					"op", op.String(), "index", op.Index, "frontier", frontier.Len())
				opts.Metrics.result(kind, false)
				return res, nil
			}
			frontier = next

		case history.Info:
			// the call stays pending and may take effect at any later point

		case history.Fail:
			return res, fmt.Errorf("history is not prepared: failed operation at index %d", op.Index)
		}

		if frontier.Len() > res.MaxFrontier {
			res.MaxFrontier = frontier.Len()
		}
		opts.Metrics.observeFrontier(kind, frontier.Len())
		logger.Debug("advanced", "index", op.Index, "type", op.Type.String(), "frontier", frontier.Len())
	}

	res.Valid = true
	res.Frontier = frontier.Slice()
	opts.Metrics.result(kind, true)
	return res, nil
}

// cancelCheckInterval is how many configurations closeLinearizations expands
// between context checks.
const cancelCheckInterval = 1024

// closeLinearizations adds to s every configuration reachable from its
// members by linearizing pending calls, and returns how many were added.
// It stops early with the context's error once ctx is done.
func closeLinearizations(ctx context.Context, s *state.Set, metrics *Metrics, kind string) (int, error) {
	queue := s.Slice()
	added := 0
	for popped := 0; len(queue) > 0; popped++ {
		if popped%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return added, err
			}
		}
		c := queue[len(queue)-1]
		queue = queue[:len(queue)-1]

		for op := range c.Processes.Calls() {
			next, err := c.Model.Step(op)
			if err != nil {
				continue
			}
			succ := state.Config{Model: next, Processes: c.Processes.Linearize(op)}
			ok := s.Insert(succ)
			metrics.visit(kind, ok)
			if ok {
				added++
				queue = append(queue, succ)
			}
		}
	}
	return added, nil
}
