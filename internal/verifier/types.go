package verifier

import (
	"time"

	"github.com/anishathalye/porcupine"
)

// Operation represents a single operation from the history JSON file
type Operation struct {
	ClientID   int64                  `json:"client_id"`
	Input      map[string]interface{} `json:"input"`
	Call       int64                  `json:"call"`
	Output     map[string]interface{} `json:"output"`
	ReturnTime int64                  `json:"return_time"`
}

// Pending reports whether the operation never returned
func (op Operation) Pending() bool {
	return op.ReturnTime == 0
}

// HistoryResult contains the results of checking a history file
type HistoryResult struct {
	RunID          string
	Path           string
	HTMLPath       string
	IsLinearizable bool
	TotalOps       int
	Tracker        string
	Visited        int
	MaxFrontier    int
	Elapsed        time.Duration
	// FailedAt describes the completion no linearization could explain
	FailedAt string

	// Porcupine cross-check, only set when it ran
	CrossChecked  bool
	Result        porcupine.CheckResult
	MaxPartialLen int
	Err           error
}

// Agrees reports whether the porcupine cross-check reached the same verdict.
// An unknown porcupine result (timeout) never disagrees.
func (r HistoryResult) Agrees() bool {
	if !r.CrossChecked || r.Result == porcupine.Unknown {
		return true
	}
	return (r.Result == porcupine.Ok) == r.IsLinearizable
}
