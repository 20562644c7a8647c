package payload

import (
	"encoding/json"
	"fmt"
)

// --------------------------------------------------------------------------
// Method
// --------------------------------------------------------------------------

// Method names an operation of the provider contract
type Method string

const (
	MethodAutoKey    Method = "autoKey"
	MethodClear      Method = "clear"
	MethodDec        Method = "dec"
	MethodDelete     Method = "delete"
	MethodDeleteMany Method = "deleteMany"
	MethodEach       Method = "each"
	MethodEnsure     Method = "ensure"
	MethodEvery      Method = "every"
	MethodFilter     Method = "filter"
	MethodFind       Method = "find"
	MethodGet        Method = "get"
	MethodGetAll     Method = "getAll"
	MethodGetMany    Method = "getMany"
	MethodHas        Method = "has"
	MethodInc        Method = "inc"
	MethodKeys       Method = "keys"
	MethodMap        Method = "map"
	MethodMath       Method = "math"
	MethodPartition  Method = "partition"
	MethodPush       Method = "push"
	MethodRandom     Method = "random"
	MethodRandomKey  Method = "randomKey"
	MethodRemove     Method = "remove"
	MethodSet        Method = "set"
	MethodSetMany    Method = "setMany"
	MethodSize       Method = "size"
	MethodSome       Method = "some"
	MethodUpdate     Method = "update"
	MethodValues     Method = "values"
)

// Methods lists every method of the provider contract
var Methods = []Method{
	MethodAutoKey, MethodClear, MethodDec, MethodDelete, MethodDeleteMany,
	MethodEach, MethodEnsure, MethodEvery, MethodFilter, MethodFind,
	MethodGet, MethodGetAll, MethodGetMany, MethodHas, MethodInc,
	MethodKeys, MethodMap, MethodMath, MethodPartition, MethodPush,
	MethodRandom, MethodRandomKey, MethodRemove, MethodSet, MethodSetMany,
	MethodSize, MethodSome, MethodUpdate, MethodValues,
}

// IsValid reports whether m is a method of the provider contract
func (m Method) IsValid() bool {
	for _, known := range Methods {
		if m == known {
			return true
		}
	}
	return false
}

// IsMutating reports whether the method may change stored data
func (m Method) IsMutating() bool {
	switch m {
	case MethodAutoKey, MethodClear, MethodDec, MethodDelete, MethodDeleteMany,
		MethodEnsure, MethodInc, MethodMath, MethodPush, MethodRemove,
		MethodSet, MethodSetMany, MethodUpdate:
		return true
	}
	return false
}

// --------------------------------------------------------------------------
// Trigger
// --------------------------------------------------------------------------

// Trigger is the pipeline stage a payload is in
type Trigger uint8

const (
	TriggerNone         Trigger = iota // payload has not entered a pipeline
	TriggerPreProvider                 // before the provider is called
	TriggerPostProvider                // after the provider returned
)

// String returns the string representation of a Trigger
func (t Trigger) String() string {
	switch t {
	case TriggerPreProvider:
		return "preProvider"
	case TriggerPostProvider:
		return "postProvider"
	default:
		return "none"
	}
}

// ParseTrigger converts a trigger name into a Trigger
func ParseTrigger(s string) (Trigger, error) {
	switch s {
	case "preProvider":
		return TriggerPreProvider, nil
	case "postProvider":
		return TriggerPostProvider, nil
	case "none", "":
		return TriggerNone, nil
	}
	return TriggerNone, fmt.Errorf("unknown trigger: %s", s)
}

// MarshalJSON encodes the trigger as its name
func (t Trigger) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON decodes a trigger name
func (t *Trigger) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseTrigger(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
