package history

import (
	"fmt"
)

// Type distinguishes invocations from their outcomes
type Type int

const (
	Invoke Type = iota
	Ok
	Fail
	Info
)

var typeNames = [...]string{"invoke", "ok", "fail", "info"}

func (t Type) String() string {
	if t < 0 || int(t) >= len(typeNames) {
		return fmt.Sprintf("Type(%d)", int(t))
	}
	return typeNames[t]
}

func (t Type) MarshalText() ([]byte, error) {
	if t < 0 || int(t) >= len(typeNames) {
		return nil, fmt.Errorf("unknown operation type %d", int(t))
	}
	return []byte(typeNames[t]), nil
}

func (t *Type) UnmarshalText(text []byte) error {
	for i, name := range typeNames {
		if string(text) == name {
			*t = Type(i)
			return nil
		}
	}
	return fmt.Errorf("unknown operation type %q", text)
}

// Operation is a single invocation or response event in a history.
//
// Index is the position of the operation in the completed history and is
// only meaningful once the history has been indexed.
type Operation struct {
	Type    Type   `json:"type" yaml:"type"`
	Process int    `json:"process" yaml:"process"`
	F       string `json:"f" yaml:"f"`
	Value   any    `json:"value" yaml:"value"`
	Index   int    `json:"index" yaml:"index"`
	Fails   bool   `json:"fails,omitempty" yaml:"fails,omitempty"`
}

func NewInvoke(process int, f string, value any) Operation {
	return Operation{Type: Invoke, Process: process, F: f, Value: value}
}

func NewOK(process int, f string, value any) Operation {
	return Operation{Type: Ok, Process: process, F: f, Value: value}
}

func NewFail(process int, f string, value any) Operation {
	return Operation{Type: Fail, Process: process, F: f, Value: value}
}

func NewInfo(process int, f string, value any) Operation {
	return Operation{Type: Info, Process: process, F: f, Value: value}
}

func (op Operation) String() string {
	s := fmt.Sprintf("{%d %v %s %v}", op.Process, op.Type, op.F, op.Value)
	if op.Fails {
		s += " fails"
	}
	return s
}

// Same reports whether a and b are the same event of the same history.
func Same(a, b Operation) bool {
	return a.Index == b.Index && a.Process == b.Process
}
