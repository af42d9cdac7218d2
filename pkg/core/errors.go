package core

import (
	"errors"
	"fmt"
	"reflect"
)

// ErrInvalidArgument is the category every validation error below belongs to.
var ErrInvalidArgument = errors.New("tick: invalid argument")

// Validation errors
var (
	ErrNilAction          = fmt.Errorf("%w: action is nil", ErrInvalidArgument)
	ErrInvalidRate        = fmt.Errorf("%w: rate must be a positive finite number", ErrInvalidArgument)
	ErrUncomparableAction = fmt.Errorf("%w: action type is not comparable", ErrInvalidArgument)
	ErrInvalidDelta       = fmt.Errorf("%w: delta must be a non-negative finite number", ErrInvalidArgument)
)

// ActionPanicError records a panic recovered while firing an action.
type ActionPanicError struct {
	Rate     float64
	ActionID string
	Value    any
}

func (e *ActionPanicError) Error() string {
	return fmt.Sprintf("tick: action %s at %g/s panicked: %v", e.ActionID, e.Rate, e.Value)
}

// Unwrap returns the panic value when it is an error.
func (e *ActionPanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

func typeName(v any) string {
	t := reflect.TypeOf(v)
	if t == nil {
		return "<nil>"
	}
	return t.String()
}
