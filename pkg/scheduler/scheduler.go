package scheduler

import (
	"errors"
	"log/slog"
	"slices"
	"time"

	"github.com/jdziat/fixed-tick/pkg/core"
	"github.com/jdziat/fixed-tick/pkg/validate"
)

// Scheduler fires registered actions at fixed rates as Update advances time.
type Scheduler struct {
	groups map[float64]*rateGroup
	config Config
	logger *slog.Logger

	// Hooks
	onTick        []func(rate float64, ticks int)
	onActionPanic []func(*core.ActionPanicError)
}

// GroupInfo describes one rate group at the time of a Snapshot.
type GroupInfo struct {
	Rate        float64
	Interval    float64
	Accumulated float64
	Actions     int
}

// New creates an empty Scheduler.
func New(opts ...Option) *Scheduler {
	config := DefaultConfig()
	for _, opt := range opts {
		opt.Apply(&config)
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Scheduler{
		groups: make(map[float64]*rateGroup),
		config: config,
		logger: config.Logger,
	}
}

// Register subscribes action to fire rate times per second. Registering an
// action that is already subscribed at rate has no effect. On error the
// scheduler is left unchanged.
func (s *Scheduler) Register(rate float64, action core.Action) error {
	if err := validate.Action(action); err != nil {
		return err
	}
	if err := validate.Rate(rate); err != nil {
		return err
	}

	g, ok := s.groups[rate]
	if !ok {
		g = newRateGroup(rate)
		s.groups[rate] = g
		s.logger.Debug("group created", "rate", rate, "interval", g.interval)
	}
	if g.add(action) {
		s.logger.Debug("action registered", "rate", rate, "action", core.ActionID(action))
	}
	return nil
}

// MustRegister is like Register but panics on invalid arguments.
func (s *Scheduler) MustRegister(rate float64, action core.Action) {
	if err := s.Register(rate, action); err != nil {
		panic(err)
	}
}

// Unregister removes action from rate. Unknown rates and actions are ignored.
// A group left without actions is removed, so registering at its rate again
// starts from zero accumulated time.
func (s *Scheduler) Unregister(rate float64, action core.Action) {
	if !validate.Comparable(action) {
		return
	}
	g, ok := s.groups[rate]
	if !ok || !g.remove(action) {
		return
	}
	s.logger.Debug("action unregistered", "rate", rate, "action", core.ActionID(action))
	if g.empty() {
		s.removeGroup(g)
	}
}

// Has reports whether action is registered at rate.
func (s *Scheduler) Has(rate float64, action core.Action) bool {
	if !validate.Comparable(action) {
		return false
	}
	g, ok := s.groups[rate]
	return ok && g.has(action)
}

// Update advances every group by deltaSeconds and fires the ticks that became
// due. A negative, NaN or infinite delta is rejected with core.ErrInvalidDelta
// and nothing changes.
//
// With the default config, panics raised by actions are recovered. The group's
// bookkeeping continues and the failures are returned joined once every group
// has been processed. With WithRecover(false) the first panic propagates.
func (s *Scheduler) Update(deltaSeconds float64) error {
	if err := validate.Delta(deltaSeconds); err != nil {
		return err
	}
	if len(s.groups) == 0 {
		return nil
	}

	var errs []error
	for _, g := range s.snapshotGroups() {
		// Removed or replaced by an action fired earlier in this pass.
		if !s.live(g) {
			continue
		}
		g.accumulated += deltaSeconds

		ticks := 0
		for g.due() {
			if s.config.MaxTicksPerUpdate > 0 && ticks >= s.config.MaxTicksPerUpdate {
				dropped := g.discard()
				s.logger.Warn("dropped ticks", "rate", g.rate, "fired", ticks, "dropped", dropped)
				break
			}
			errs = s.fire(g, errs)
			g.consume()
			ticks++
			if !s.live(g) {
				break
			}
		}

		if ticks > 0 {
			for _, fn := range s.onTick {
				fn(g.rate, ticks)
			}
		}
		// Unregister reaps eagerly; this keeps empty groups from outliving Update.
		if g.empty() && s.live(g) {
			s.removeGroup(g)
		}
	}
	return errors.Join(errs...)
}

// Advance is Update for callers that measure time as a time.Duration.
func (s *Scheduler) Advance(d time.Duration) error {
	return s.Update(d.Seconds())
}

// Clear removes every group and action.
func (s *Scheduler) Clear() {
	n := len(s.groups)
	s.groups = make(map[float64]*rateGroup)
	if n > 0 {
		s.logger.Debug("scheduler cleared", "groups", n)
	}
}

// Len returns the number of rate groups.
func (s *Scheduler) Len() int {
	return len(s.groups)
}

// Snapshot returns the current groups ordered by rate.
func (s *Scheduler) Snapshot() []GroupInfo {
	out := make([]GroupInfo, 0, len(s.groups))
	for _, g := range s.snapshotGroups() {
		out = append(out, GroupInfo{
			Rate:        g.rate,
			Interval:    g.interval,
			Accumulated: g.accumulated,
			Actions:     len(g.index),
		})
	}
	return out
}

// OnTick registers a hook called after a group fired during Update, with the
// number of ticks it fired.
func (s *Scheduler) OnTick(fn func(rate float64, ticks int)) {
	s.onTick = append(s.onTick, fn)
}

// OnActionPanic registers a hook called for every recovered action panic.
func (s *Scheduler) OnActionPanic(fn func(*core.ActionPanicError)) {
	s.onActionPanic = append(s.onActionPanic, fn)
}

// fire runs one tick of g. Actions removed earlier in the same tick are
// skipped.
func (s *Scheduler) fire(g *rateGroup, errs []error) []error {
	for _, a := range g.actions() {
		if !s.live(g) || !g.has(a) {
			continue
		}
		if err := s.invoke(g.rate, a); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

func (s *Scheduler) invoke(rate float64, a core.Action) (err error) {
	if !s.config.Recover {
		a.Tick()
		return nil
	}
	defer func() {
		if v := recover(); v != nil {
			perr := &core.ActionPanicError{Rate: rate, ActionID: core.ActionID(a), Value: v}
			s.logger.Error("action panicked", "rate", rate, "action", perr.ActionID, "panic", v)
			for _, fn := range s.onActionPanic {
				fn(perr)
			}
			err = perr
		}
	}()
	a.Tick()
	return nil
}

// live reports whether g is still the registered group for its rate.
func (s *Scheduler) live(g *rateGroup) bool {
	return s.groups[g.rate] == g
}

func (s *Scheduler) removeGroup(g *rateGroup) {
	delete(s.groups, g.rate)
	s.logger.Debug("group removed", "rate", g.rate)
}

// snapshotGroups returns the groups ordered by rate so a pass is reproducible.
func (s *Scheduler) snapshotGroups() []*rateGroup {
	rates := make([]float64, 0, len(s.groups))
	for r := range s.groups {
		rates = append(rates, r)
	}
	slices.Sort(rates)

	out := make([]*rateGroup, len(rates))
	for i, r := range rates {
		out[i] = s.groups[r]
	}
	return out
}
