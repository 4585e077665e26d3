// Package state holds search configurations and the set used to visit each
// configuration at most once.
package state

import (
	"fmt"

	"linverify/internal/hashing"
	"linverify/internal/model"
	"linverify/internal/processes"
)

// Config is one node of the search graph: a model state together with the
// per-process call state. It is a value; a search derives new configurations
// and never edits one.
type Config struct {
	Model     model.Model
	Processes processes.Processes
}

func (c Config) Equal(o Config) bool {
	return c.Model.Equal(o.Model) && c.Processes.Equal(o.Processes)
}

func (c Config) Hash() uint64 {
	return hashing.Combine(c.Model.Hash(), c.Processes.Hash())
}

func (c Config) String() string {
	return fmt.Sprintf("{%v %v}", c.Model, c.Processes)
}
