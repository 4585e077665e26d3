package model

import (
	"fmt"
	"math"
	"reflect"

	"linverify/internal/hashing"
	"linverify/internal/history"
)

// Register is a single read/write register.
//
// A read with a nil value is an unknown result and is always allowed.
type Register struct {
	Value any
}

func NewRegister(v any) Register {
	return Register{Value: v}
}

func (r Register) Step(op history.Operation) (Model, error) {
	switch op.F {
	case "write":
		return Register{Value: op.Value}, nil
	case "read":
		if op.Value == nil || sameValue(op.Value, r.Value) {
			return r, nil
		}
		return nil, Inconsistentf("can't read %v from register %v", op.Value, r.Value)
	default:
		return nil, Inconsistentf("register has no operation %q", op.F)
	}
}

func (r Register) Equal(other Model) bool {
	o, ok := other.(Register)
	return ok && sameValue(r.Value, o.Value)
}

func (r Register) Hash() uint64 {
	return hashValue(r.Value)
}

func (r Register) String() string {
	return fmt.Sprintf("Register(%v)", r.Value)
}

// CASRegister is a register with compare-and-set. A cas takes a two element
// value [expected, new].
type CASRegister struct {
	Value any
}

func NewCASRegister(v any) CASRegister {
	return CASRegister{Value: v}
}

func (r CASRegister) Step(op history.Operation) (Model, error) {
	switch op.F {
	case "write":
		return CASRegister{Value: op.Value}, nil
	case "read":
		if op.Value == nil || sameValue(op.Value, r.Value) {
			return r, nil
		}
		return nil, Inconsistentf("can't read %v from register %v", op.Value, r.Value)
	case "cas":
		expected, next, err := casArgs(op.Value)
		if err != nil {
			return nil, err
		}
		if !sameValue(expected, r.Value) {
			return nil, Inconsistentf("can't cas %v from %v to %v", r.Value, expected, next)
		}
		return CASRegister{Value: next}, nil
	default:
		return nil, Inconsistentf("cas register has no operation %q", op.F)
	}
}

func casArgs(v any) (any, any, error) {
	switch x := v.(type) {
	case [2]any:
		return x[0], x[1], nil
	case []any:
		if len(x) == 2 {
			return x[0], x[1], nil
		}
	}
	return nil, nil, Inconsistentf("cas value %v is not [expected, new]", v)
}

func (r CASRegister) Equal(other Model) bool {
	o, ok := other.(CASRegister)
	return ok && sameValue(r.Value, o.Value)
}

func (r CASRegister) Hash() uint64 {
	return hashValue(r.Value)
}

func (r CASRegister) String() string {
	return fmt.Sprintf("CASRegister(%v)", r.Value)
}

// Mutex is a lock supporting acquire and release.
type Mutex struct {
	Locked bool
}

func NewMutex() Mutex {
	return Mutex{}
}

func (m Mutex) Step(op history.Operation) (Model, error) {
	switch op.F {
	case "acquire":
		if m.Locked {
			return nil, Inconsistentf("already held")
		}
		return Mutex{Locked: true}, nil
	case "release":
		if !m.Locked {
			return nil, Inconsistentf("not held")
		}
		return Mutex{Locked: false}, nil
	default:
		return nil, Inconsistentf("mutex has no operation %q", op.F)
	}
}

func (m Mutex) Equal(other Model) bool {
	o, ok := other.(Mutex)
	return ok && m == o
}

func (m Mutex) Hash() uint64 {
	if m.Locked {
		return 1
	}
	return 0
}

func (m Mutex) String() string {
	if m.Locked {
		return "Mutex(locked)"
	}
	return "Mutex(free)"
}

// sameValue compares register values. JSON decodes every number as float64,
// so numbers are compared by value across numeric types.
func sameValue(a, b any) bool {
	if x, ok := toFloat(a); ok {
		y, ok := toFloat(b)
		return ok && x == y
	}
	return reflect.DeepEqual(a, b)
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case float64:
		return x, true
	default:
		return 0, false
	}
}

// hashValue agrees with sameValue.
func hashValue(v any) uint64 {
	if f, ok := toFloat(v); ok {
		if f == 0 {
			f = 0
		}
		return hashing.Mix(math.Float64bits(f))
	}
	return hashing.Value(v)
}
