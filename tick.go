// Package tick provides a fixed-rate callback scheduler.
//
// Actions are registered at a rate in ticks per second. The host calls Update
// with the time elapsed since its previous call, and every action fires once
// per whole interval (1/rate seconds) that has elapsed. Leftover time is kept
// per rate, so the average rate holds however irregular the host loop is.
//
// This is the main package users should import. It re-exports the public
// types from the pkg/ packages and owns a process-wide default Scheduler.
//
// Basic usage:
//
//	physics := tick.Func(stepPhysics)
//	if err := tick.Register(50, physics); err != nil {
//	    return err
//	}
//
//	// once per frame, from the goroutine that owns the scheduler
//	if err := tick.Update(frameDelta.Seconds()); err != nil {
//	    log.Printf("tick: %v", err)
//	}
//
//	tick.Unregister(50, physics)
package tick

import (
	"log/slog"
	"time"

	"github.com/jdziat/fixed-tick/pkg/core"
	"github.com/jdziat/fixed-tick/pkg/scheduler"
)

// Type aliases
type (
	// Action is invoked once per elapsed tick interval.
	Action = core.Action

	// FuncAction adapts a closure to Action with its own identity.
	FuncAction = core.FuncAction

	// ActionPanicError records a panic recovered from an action.
	ActionPanicError = core.ActionPanicError

	// Scheduler fires registered actions at fixed rates.
	Scheduler = scheduler.Scheduler

	// GroupInfo describes one rate group in a Snapshot.
	GroupInfo = scheduler.GroupInfo

	// Option configures a Scheduler.
	Option = scheduler.Option

	// Config holds scheduler configuration.
	Config = scheduler.Config
)

// Error variables
var (
	ErrInvalidArgument    = core.ErrInvalidArgument
	ErrNilAction          = core.ErrNilAction
	ErrInvalidRate        = core.ErrInvalidRate
	ErrUncomparableAction = core.ErrUncomparableAction
	ErrInvalidDelta       = core.ErrInvalidDelta
)

var defaultScheduler = scheduler.New()

// New creates an independent Scheduler.
func New(opts ...Option) *Scheduler {
	return scheduler.New(opts...)
}

// Func wraps fn as an Action. It returns nil for a nil fn.
func Func(fn func()) *FuncAction {
	return core.Func(fn)
}

// Default returns the process-wide Scheduler used by the package-level
// functions.
func Default() *Scheduler {
	return defaultScheduler
}

// SetDefault replaces the process-wide Scheduler. Actions registered with the
// previous one stay with it.
func SetDefault(s *Scheduler) {
	if s != nil {
		defaultScheduler = s
	}
}

// Register subscribes action to fire rate times per second on the default
// Scheduler.
func Register(rate float64, action Action) error {
	return defaultScheduler.Register(rate, action)
}

// MustRegister is like Register but panics on invalid arguments.
func MustRegister(rate float64, action Action) {
	defaultScheduler.MustRegister(rate, action)
}

// Unregister removes action from rate on the default Scheduler.
func Unregister(rate float64, action Action) {
	defaultScheduler.Unregister(rate, action)
}

// Update advances the default Scheduler by deltaSeconds.
func Update(deltaSeconds float64) error {
	return defaultScheduler.Update(deltaSeconds)
}

// Advance advances the default Scheduler by d.
func Advance(d time.Duration) error {
	return defaultScheduler.Advance(d)
}

// Clear removes every action from the default Scheduler.
func Clear() {
	defaultScheduler.Clear()
}

// Snapshot describes the default Scheduler's groups ordered by rate.
func Snapshot() []GroupInfo {
	return defaultScheduler.Snapshot()
}

// Scheduler option functions

// WithLogger sets the scheduler logger.
func WithLogger(l *slog.Logger) Option {
	return scheduler.WithLogger(l)
}

// WithRecover controls whether action panics are recovered.
func WithRecover(enabled bool) Option {
	return scheduler.WithRecover(enabled)
}

// WithMaxTicksPerUpdate caps the firings per group in one Update.
func WithMaxTicksPerUpdate(n int) Option {
	return scheduler.WithMaxTicksPerUpdate(n)
}
