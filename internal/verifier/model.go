package verifier

import (
	"fmt"
	"strings"

	"github.com/anishathalye/porcupine"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// createKVModel creates a Porcupine model for a key-value store.
// Step never modifies the state it is given.
func createKVModel() porcupine.Model {
	return porcupine.Model{
		Init: func() interface{} {
			return make(map[string]string)
		},
		Step: func(state, input, output interface{}) (bool, interface{}) {
			st := state.(map[string]string)
			in, ok := input.(map[string]interface{})
			if !ok {
				return false, st
			}
			out, _ := output.(map[string]interface{})

			opType, ok := in["type"].(string)
			if !ok {
				return false, st
			}

			switch opType {
			case "Put":
				return handlePut(st, in)
			case "Get":
				return handleGet(st, in, out)
			case "Delete":
				return handleDelete(st, in)
			default:
				return false, st
			}
		},
		Equal: func(a, b interface{}) bool {
			return maps.Equal(a.(map[string]string), b.(map[string]string))
		},
		DescribeOperation: describeOperation,
		DescribeState:     describeState,
		Partition:         partitionByKey,
	}
}

func handlePut(st map[string]string, in map[string]interface{}) (bool, map[string]string) {
	key, ok1 := in["key"].(string)
	value, ok2 := in["value"].(string)
	if !ok1 || !ok2 {
		return false, st
	}
	next := maps.Clone(st)
	next[key] = value
	return true, next
}

func handleGet(st map[string]string, in map[string]interface{}, out map[string]interface{}) (bool, map[string]string) {
	key, ok1 := in["key"].(string)
	if !ok1 {
		return false, st
	}
	expectedValue, exists := st[key]
	outStatus, ok2 := out["status"].(string)
	if !ok2 || outStatus != "ok" {
		return false, st
	}
	outValue := out["value"]
	if !exists {
		// Key doesn't exist, output should be nil
		return outValue == nil, st
	}
	// Key exists, check if output matches
	if outValue == nil {
		return false, st
	}
	outValueStr, ok4 := outValue.(string)
	return ok4 && outValueStr == expectedValue, st
}

func handleDelete(st map[string]string, in map[string]interface{}) (bool, map[string]string) {
	key, ok1 := in["key"].(string)
	if !ok1 {
		return false, st
	}
	if _, ok := st[key]; !ok {
		return true, st
	}
	next := maps.Clone(st)
	delete(next, key)
	return true, next
}

func describeOperation(input, output interface{}) string {
	in, _ := input.(map[string]interface{})
	out, _ := output.(map[string]interface{})

	opType, _ := in["type"].(string)
	key, _ := in["key"].(string)

	switch opType {
	case "Put":
		value, _ := in["value"].(string)
		return fmt.Sprintf("Put('%s', '%s')", key, value)
	case "Get":
		outValue, exists := out["value"]
		if !exists || outValue == nil {
			return fmt.Sprintf("Get('%s') -> nil", key)
		}
		return fmt.Sprintf("Get('%s') -> '%s'", key, outValue)
	case "Delete":
		return fmt.Sprintf("Delete('%s')", key)
	default:
		return fmt.Sprintf("%v -> %v", input, output)
	}
}

// describeState lists keys in sorted order
func describeState(state interface{}) string {
	st := state.(map[string]string)
	if len(st) == 0 {
		return "{}"
	}
	keys := maps.Keys(st)
	slices.Sort(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("'%s': '%s'", k, st[k]))
	}
	return fmt.Sprintf("{%s}", strings.Join(parts, ", "))
}

// keyOf returns the key an operation input touches
func keyOf(input interface{}) string {
	in, _ := input.(map[string]interface{})
	key, ok := in["key"].(string)
	if !ok {
		return "__unknown__"
	}
	return key
}

func partitionByKey(history []porcupine.Operation) [][]porcupine.Operation {
	partitions := make(map[string][]porcupine.Operation)
	for _, op := range history {
		key := keyOf(op.Input)
		partitions[key] = append(partitions[key], op)
	}
	result := make([][]porcupine.Operation, 0, len(partitions))
	for _, ops := range partitions {
		result = append(result, ops)
	}
	return result
}

// partitionOperations splits a history per key, in sorted key order. Keys are
// independent registers, so each partition can be checked on its own.
func partitionOperations(ops []Operation) ([]string, [][]Operation) {
	partitions := make(map[string][]Operation)
	for _, op := range ops {
		key := keyOf(op.Input)
		partitions[key] = append(partitions[key], op)
	}
	keys := maps.Keys(partitions)
	slices.Sort(keys)
	result := make([][]Operation, 0, len(keys))
	for _, k := range keys {
		result = append(result, partitions[k])
	}
	return keys, result
}
