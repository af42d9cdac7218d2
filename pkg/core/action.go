package core

import "github.com/google/uuid"

// Action is invoked once per elapsed tick interval of the rate it is
// registered at. Actions are identified by interface equality, so the dynamic
// type must be comparable; pointer receivers give reference identity.
type Action interface {
	Tick()
}

// FuncAction adapts a closure to Action. Each value returned by Func is a
// distinct action even when two wrap the same function.
type FuncAction struct {
	id string
	fn func()
}

// Func wraps fn as an Action. It returns nil when fn is nil so the scheduler
// rejects it as a nil action.
func Func(fn func()) *FuncAction {
	if fn == nil {
		return nil
	}
	return &FuncAction{id: uuid.New().String(), fn: fn}
}

// Tick calls the wrapped function.
func (a *FuncAction) Tick() { a.fn() }

// ID returns the identifier assigned at construction.
func (a *FuncAction) ID() string { return a.id }

// ActionID returns a printable identifier for a, used in logs and errors.
// FuncAction values report their uuid; other actions report their type.
func ActionID(a Action) string {
	if ia, ok := a.(interface{ ID() string }); ok {
		return ia.ID()
	}
	return typeName(a)
}
