package validate

import (
	"math"
	"reflect"

	"github.com/jdziat/fixed-tick/pkg/core"
)

// Rate validates a tick rate in ticks per second.
func Rate(r float64) error {
	if math.IsNaN(r) || math.IsInf(r, 0) || r <= 0 {
		return core.ErrInvalidRate
	}
	return nil
}

// Action validates that a can be fired and used as a set key.
func Action(a core.Action) error {
	if a == nil {
		return core.ErrNilAction
	}
	v := reflect.ValueOf(a)
	switch v.Kind() {
	case reflect.Pointer, reflect.Func, reflect.Map, reflect.Chan, reflect.Slice:
		if v.IsNil() {
			return core.ErrNilAction
		}
	}
	if !v.Comparable() {
		return core.ErrUncomparableAction
	}
	return nil
}

// Delta validates an elapsed time in seconds.
func Delta(d float64) error {
	if math.IsNaN(d) || math.IsInf(d, 0) || d < 0 {
		return core.ErrInvalidDelta
	}
	return nil
}

// Comparable reports whether a can be used as a set key without panicking.
// Nil and non-comparable actions are never registered, so lookups with them
// can short-circuit.
func Comparable(a core.Action) bool {
	return a != nil && reflect.ValueOf(a).Comparable()
}
