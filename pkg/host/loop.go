package host

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/time/rate"

	"github.com/jdziat/fixed-tick/pkg/scheduler"
)

// Clock supplies host time.
type Clock interface {
	Now() time.Time
}

// Ticker delivers frame signals.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// Recorder receives measurements while the loop runs and once when it stops.
type Recorder interface {
	Record(ctx context.Context, ms []Measurement) error
}

// RecorderFunc adapts a function to Recorder.
type RecorderFunc func(ctx context.Context, ms []Measurement) error

// Record calls f.
func (f RecorderFunc) Record(ctx context.Context, ms []Measurement) error { return f(ctx, ms) }

// Measurement compares one group's firings with the ideal count.
type Measurement struct {
	Name        string
	Rate        float64
	Elapsed     time.Duration
	Fired       int64
	Expected    int64
	Accumulated float64
	At          time.Time
}

// Drift is Fired minus Expected.
func (m Measurement) Drift() int64 { return m.Fired - m.Expected }

// Counter is the action the loop registers for every configured group.
type Counter struct {
	Name string
	Rate float64
	n    int64
}

// Tick counts one firing.
func (c *Counter) Tick() { c.n++ }

// Count returns the number of firings so far.
func (c *Counter) Count() int64 { return c.n }

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

type timeTicker struct{ t *time.Ticker }

func (t timeTicker) C() <-chan time.Time { return t.t.C }
func (t timeTicker) Stop()               { t.t.Stop() }

func newTimeTicker(d time.Duration) Ticker { return timeTicker{t: time.NewTicker(d)} }

// LoopOption configures a Loop.
type LoopOption func(*Loop)

// WithClock replaces the system clock.
func WithClock(c Clock) LoopOption {
	return func(l *Loop) { l.clock = c }
}

// WithTicker replaces the frame ticker factory.
func WithTicker(fn func(time.Duration) Ticker) LoopOption {
	return func(l *Loop) { l.newTicker = fn }
}

// WithRecorder sets the measurement recorder.
func WithRecorder(r Recorder) LoopOption {
	return func(l *Loop) { l.recorder = r }
}

// WithLogger sets the loop logger.
func WithLogger(logger *slog.Logger) LoopOption {
	return func(l *Loop) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// Loop drives a Scheduler from a frame ticker.
type Loop struct {
	sched     *scheduler.Scheduler
	cfg       Config
	clock     Clock
	newTicker func(time.Duration) Ticker
	recorder  Recorder
	logger    *slog.Logger
	counters  []*Counter
	cadence   cron.Schedule
	rng       *rand.Rand

	// update failures are logged at most this often
	errLimiter *rate.Limiter
	suppressed int

	start      time.Time
	elapsed    time.Duration
	lastRecord time.Time
	last       []Measurement
}

// NewLoop registers a Counter on s for every group in cfg.
func NewLoop(s *scheduler.Scheduler, cfg *Config, opts ...LoopOption) (*Loop, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cadence, err := parseCadence(cfg.Report.Snapshot)
	if err != nil {
		return nil, fmt.Errorf("report.snapshot: %w", err)
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	l := &Loop{
		sched:      s,
		cfg:        *cfg,
		clock:      systemClock{},
		newTicker:  newTimeTicker,
		logger:     slog.Default(),
		cadence:    cadence,
		rng:        rand.New(rand.NewPCG(seed, seed)),
		errLimiter: rate.NewLimiter(rate.Every(time.Second), 3),
	}
	for _, opt := range opts {
		opt(l)
	}

	for _, g := range cfg.Groups {
		c := &Counter{Name: g.Name, Rate: g.Rate}
		if err := s.Register(g.Rate, c); err != nil {
			l.unregister()
			return nil, fmt.Errorf("register %q: %w", g.Name, err)
		}
		l.counters = append(l.counters, c)
	}
	return l, nil
}

// Counters returns the registered counters in configuration order.
func (l *Loop) Counters() []*Counter {
	return l.counters
}

// Last returns the measurements taken most recently. After Run returns they
// describe the whole run.
func (l *Loop) Last() []Measurement {
	return l.last
}

// Run drives the scheduler until ctx is done or the configured duration has
// elapsed. Counters are unregistered when Run returns.
func (l *Loop) Run(ctx context.Context) error {
	defer l.unregister()

	l.start = l.clock.Now()
	l.lastRecord = l.start

	frame := time.Duration(float64(time.Second) / l.cfg.FrameRate)
	t := l.newTicker(frame)
	defer t.Stop()

	prev := l.start
	next := l.nextRecord(l.start)

	l.logger.Info("host loop started",
		"frame", frame,
		"groups", len(l.counters),
		"duration", time.Duration(l.cfg.Duration))

	for {
		select {
		case <-ctx.Done():
			l.finish(context.WithoutCancel(ctx), l.clock.Now())
			return ctx.Err()
		case <-t.C():
			now := l.clock.Now()
			if l.cfg.SkipFrames > 0 && l.rng.Float64() < l.cfg.SkipFrames {
				continue
			}
			l.step(now.Sub(prev))
			prev = now

			if !next.IsZero() && !now.Before(next) {
				l.record(ctx, now)
				next = l.nextRecord(now)
			}
			if d := time.Duration(l.cfg.Duration); d > 0 && now.Sub(l.start) >= d {
				l.finish(ctx, now)
				return nil
			}
		}
	}
}

// Measure compares every counter with floor(elapsed*rate) at host time now.
func (l *Loop) Measure(now time.Time) []Measurement {
	accumulated := make(map[float64]float64)
	for _, g := range l.sched.Snapshot() {
		accumulated[g.Rate] = g.Accumulated
	}
	ms := make([]Measurement, 0, len(l.counters))
	for _, c := range l.counters {
		ms = append(ms, Measurement{
			Name:        c.Name,
			Rate:        c.Rate,
			Elapsed:     l.elapsed,
			Fired:       c.Count(),
			Expected:    int64(math.Floor(l.elapsed.Seconds() * c.Rate)),
			Accumulated: accumulated[c.Rate],
			At:          now,
		})
	}
	return ms
}

func (l *Loop) step(delta time.Duration) {
	if delta < 0 {
		delta = 0
	}
	l.elapsed += delta
	if err := l.sched.Advance(delta); err != nil {
		if !l.errLimiter.Allow() {
			l.suppressed++
			return
		}
		l.logger.Error("update failed", "error", err, "suppressed", l.suppressed)
		l.suppressed = 0
	}
}

func (l *Loop) record(ctx context.Context, now time.Time) {
	l.lastRecord = now
	ms := l.Measure(now)
	l.last = ms
	for _, m := range ms {
		l.logger.Debug("measurement",
			"group", m.Name,
			"rate", m.Rate,
			"fired", m.Fired,
			"expected", m.Expected,
			"drift", m.Drift())
	}
	if l.recorder == nil {
		return
	}
	if err := l.recorder.Record(ctx, ms); err != nil {
		l.logger.Warn("record measurements failed", "error", err)
	}
}

func (l *Loop) finish(ctx context.Context, now time.Time) {
	if !now.Equal(l.lastRecord) {
		l.record(ctx, now)
	}
	l.logger.Info("host loop stopped", "elapsed", l.elapsed)
}

func (l *Loop) nextRecord(from time.Time) time.Time {
	if l.cadence == nil {
		return time.Time{}
	}
	return l.cadence.Next(from)
}

func (l *Loop) unregister() {
	for _, c := range l.counters {
		l.sched.Unregister(c.Rate, c)
	}
}
