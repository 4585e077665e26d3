package verifier

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/anishathalye/porcupine"

	"linverify/internal/history"
	"linverify/internal/model"
)

// MergeHistories combines multiple history files into a single merged history
func MergeHistories(historyPaths []string) (string, error) {
	var allOps []Operation

	for _, path := range historyPaths {
		ops, err := loadHistory(path)
		if err != nil {
			return "", fmt.Errorf("error loading %s: %w", path, err)
		}
		allOps = append(allOps, ops...)
	}

	// Sort operations by call time to maintain chronological order
	sort.SliceStable(allOps, func(i, j int) bool {
		return allOps[i].Call < allOps[j].Call
	})

	// Write merged history to a new file
	mergedPath := filepath.Join(filepath.Dir(historyPaths[0]), "merged-history.json")
	mergedData, err := json.MarshalIndent(allOps, "", "  ")
	if err != nil {
		return "", fmt.Errorf("error marshaling merged history: %w", err)
	}

	if err := os.WriteFile(mergedPath, mergedData, 0644); err != nil {
		return "", fmt.Errorf("error writing merged history: %w", err)
	}

	return mergedPath, nil
}

// loadHistory loads and parses a history JSON file
func loadHistory(historyPath string) ([]Operation, error) {
	data, err := os.ReadFile(historyPath)
	if err != nil {
		return nil, fmt.Errorf("error reading file: %w", err)
	}

	var ops []Operation
	if err := json.Unmarshal(data, &ops); err != nil {
		return nil, fmt.Errorf("error parsing JSON: %w", err)
	}

	return ops, nil
}

// loadEvents loads a history of invoke/ok/fail/info events
func loadEvents(historyPath string) ([]history.Operation, error) {
	data, err := os.ReadFile(historyPath)
	if err != nil {
		return nil, fmt.Errorf("error reading file: %w", err)
	}

	var ops []history.Operation
	if err := json.Unmarshal(data, &ops); err != nil {
		return nil, fmt.Errorf("error parsing JSON: %w", err)
	}

	return ops, nil
}

// convertToPorcupineOperations converts our Operation format to Porcupine's format.
// Pending operations are skipped.
func convertToPorcupineOperations(ops []Operation) []porcupine.Operation {
	history := make([]porcupine.Operation, 0, len(ops))
	for _, op := range ops {
		if op.Pending() {
			continue
		}
		history = append(history, porcupine.Operation{
			ClientId: int(op.ClientID),
			Input:    op.Input,
			Call:     op.Call,
			Output:   op.Output,
			Return:   op.ReturnTime,
		})
	}
	return history
}

type timedEvent struct {
	time int64
	call bool
	op   history.Operation
}

// convertToEvents turns timed operations into an invoke/ok event history.
// Every operation runs on its own process, numbered by its position in ops,
// since a timed record carries both its call and its return and clients may
// reuse an id at the instant their previous operation returned. Events are
// ordered by time; at equal times calls come before returns, so operations
// touching at an instant are treated as concurrent. Pending operations get no
// completion and may take effect at any later point.
func convertToEvents(ops []Operation) []history.Operation {
	events := make([]timedEvent, 0, 2*len(ops))
	for p, op := range ops {
		call := model.PorcupineCall{Input: op.Input, Output: op.Output}
		f, _ := op.Input["type"].(string)
		events = append(events, timedEvent{time: op.Call, call: true, op: history.NewInvoke(p, f, call)})
		if op.Pending() {
			continue
		}
		events = append(events, timedEvent{time: op.ReturnTime, op: history.NewOK(p, f, call)})
	}

	sort.SliceStable(events, func(i, j int) bool {
		if events[i].time != events[j].time {
			return events[i].time < events[j].time
		}
		return events[i].call && !events[j].call
	})

	out := make([]history.Operation, len(events))
	for i, e := range events {
		out[i] = e.op
	}
	return out
}
