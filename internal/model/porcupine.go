package model

import (
	"fmt"
	"reflect"

	"github.com/anishathalye/porcupine"

	"linverify/internal/hashing"
	"linverify/internal/history"
)

// PorcupineCall is the operation value understood by FromPorcupine models:
// the input and output a porcupine Step function receives.
type PorcupineCall struct {
	Input  interface{}
	Output interface{}
}

type porcupineModel struct {
	m     *porcupine.Model
	state interface{}
}

// FromPorcupine adapts a porcupine model, starting from m.Init().
//
// States are compared with m.Equal when set and reflect.DeepEqual otherwise.
// They are hashed through m.DescribeState when set, and otherwise through the
// %v rendering of the state, or of what it points to for a pointer state.
// States that are equal must hash alike or configurations stop being
// deduplicated; a model whose states render differently when equal (nested
// pointers, maps with unordered output) should set DescribeState. m.Step must
// not modify the state it is given.
func FromPorcupine(m porcupine.Model) Model {
	return porcupineModel{m: &m, state: m.Init()}
}

func (pm porcupineModel) Step(op history.Operation) (Model, error) {
	call, ok := op.Value.(PorcupineCall)
	if !ok {
		return nil, Inconsistentf("operation value %T is not a porcupine call", op.Value)
	}
	legal, next := pm.m.Step(pm.state, call.Input, call.Output)
	if !legal {
		return nil, Inconsistentf("%s in state %s", pm.describeOperation(call), pm.describeState())
	}
	return porcupineModel{m: pm.m, state: next}, nil
}

func (pm porcupineModel) Equal(other Model) bool {
	o, ok := other.(porcupineModel)
	if !ok || pm.m != o.m {
		return false
	}
	if pm.m.Equal != nil {
		return pm.m.Equal(pm.state, o.state)
	}
	return reflect.DeepEqual(pm.state, o.state)
}

func (pm porcupineModel) Hash() uint64 {
	if pm.m.DescribeState != nil {
		return hashing.String(pm.m.DescribeState(pm.state))
	}
	v := reflect.ValueOf(pm.state)
	if v.Kind() == reflect.Pointer && !v.IsNil() {
		return hashing.String(fmt.Sprintf("%v", v.Elem().Interface()))
	}
	return hashing.String(fmt.Sprintf("%v", pm.state))
}

func (pm porcupineModel) describeOperation(call PorcupineCall) string {
	if pm.m.DescribeOperation != nil {
		return pm.m.DescribeOperation(call.Input, call.Output)
	}
	return fmt.Sprintf("%v -> %v", call.Input, call.Output)
}

func (pm porcupineModel) describeState() string {
	if pm.m.DescribeState != nil {
		return pm.m.DescribeState(pm.state)
	}
	return fmt.Sprintf("%v", pm.state)
}

func (pm porcupineModel) String() string {
	return pm.describeState()
}
