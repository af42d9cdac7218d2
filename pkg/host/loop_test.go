package host

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdziat/fixed-tick/pkg/core"
	"github.com/jdziat/fixed-tick/pkg/scheduler"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

type manualTicker struct {
	ch      chan time.Time
	stopped chan struct{}
}

func (m *manualTicker) C() <-chan time.Time { return m.ch }
func (m *manualTicker) Stop()               { close(m.stopped) }

type harness struct {
	clock   *fakeClock
	ticker  *manualTicker
	started chan struct{}
	done    chan error

	mu      sync.Mutex
	records [][]Measurement
}

func newHarness() *harness {
	return &harness{
		clock:   newFakeClock(),
		ticker:  &manualTicker{ch: make(chan time.Time), stopped: make(chan struct{})},
		started: make(chan struct{}),
		done:    make(chan error, 1),
	}
}

func (h *harness) options() []LoopOption {
	return []LoopOption{
		WithClock(h.clock),
		WithTicker(func(time.Duration) Ticker {
			close(h.started)
			return h.ticker
		}),
		WithRecorder(RecorderFunc(func(_ context.Context, ms []Measurement) error {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.records = append(h.records, ms)
			return nil
		})),
	}
}

func (h *harness) run(ctx context.Context, l *Loop) {
	go func() { h.done <- l.Run(ctx) }()
	<-h.started
}

// drive sends frames until the loop returns.
func (h *harness) drive(t *testing.T, frame time.Duration) error {
	t.Helper()
	for i := 0; i < 100000; i++ {
		now := h.clock.Advance(frame)
		select {
		case h.ticker.ch <- now:
		case err := <-h.done:
			return err
		}
	}
	t.Fatal("loop did not stop")
	return nil
}

func testConfig() *Config {
	cfg := DefaultConfig()
	cfg.FrameRate = 50
	cfg.Duration = Duration(2 * time.Second)
	cfg.Groups = []GroupConfig{
		{Name: "physics", Rate: 50},
		{Name: "ai", Rate: 2},
		{Name: "slow", Rate: 0.75},
	}
	return &cfg
}

func byName(ms []Measurement) map[string]Measurement {
	out := make(map[string]Measurement, len(ms))
	for _, m := range ms {
		out[m.Name] = m
	}
	return out
}

func TestNewLoop_RegistersCounters(t *testing.T) {
	s := scheduler.New()
	l, err := NewLoop(s, testConfig())
	require.NoError(t, err)

	require.Len(t, l.Counters(), 3)
	assert.Equal(t, 3, s.Len())
	for _, c := range l.Counters() {
		assert.True(t, s.Has(c.Rate, c))
	}
}

func TestNewLoop_InvalidConfig(t *testing.T) {
	s := scheduler.New()
	cfg := testConfig()
	cfg.Groups[1].Rate = -1

	_, err := NewLoop(s, cfg)

	assert.ErrorIs(t, err, core.ErrInvalidRate)
	assert.Equal(t, 0, s.Len())
}

func TestLoop_RunsForDuration(t *testing.T) {
	s := scheduler.New()
	h := newHarness()
	l, err := NewLoop(s, testConfig(), h.options()...)
	require.NoError(t, err)

	h.run(context.Background(), l)
	require.NoError(t, h.drive(t, 20*time.Millisecond))

	counts := map[string]int64{}
	for _, c := range l.Counters() {
		counts[c.Name] = c.Count()
	}
	assert.Equal(t, map[string]int64{"physics": 100, "ai": 4, "slow": 1}, counts)
	assert.Equal(t, 0, s.Len(), "counters are unregistered when Run returns")

	last := byName(l.Last())
	require.Len(t, last, 3)
	assert.Equal(t, int64(100), last["physics"].Fired)

	select {
	case <-h.ticker.stopped:
	default:
		t.Fatal("ticker not stopped")
	}
}

func TestLoop_RecordsOnCadence(t *testing.T) {
	s := scheduler.New()
	h := newHarness()
	l, err := NewLoop(s, testConfig(), h.options()...)
	require.NoError(t, err)

	h.run(context.Background(), l)
	require.NoError(t, h.drive(t, 20*time.Millisecond))

	require.Len(t, h.records, 2)

	first := byName(h.records[0])
	assert.Equal(t, time.Second, first["physics"].Elapsed)
	assert.Equal(t, int64(50), first["physics"].Fired)
	assert.Equal(t, int64(2), first["ai"].Fired)

	last := byName(h.records[1])
	for _, m := range last {
		assert.Equal(t, 2*time.Second, m.Elapsed)
		assert.Equal(t, int64(0), m.Drift(), m.Name)
	}
	assert.InDelta(t, 2-1/0.75, last["slow"].Accumulated, 1e-9)
}

func TestLoop_SkippedFramesKeepRate(t *testing.T) {
	s := scheduler.New()
	h := newHarness()
	cfg := testConfig()
	cfg.SkipFrames = 0.4
	cfg.Seed = 42
	cfg.Report.Snapshot = ""
	l, err := NewLoop(s, cfg, h.options()...)
	require.NoError(t, err)

	h.run(context.Background(), l)
	require.NoError(t, h.drive(t, 20*time.Millisecond))

	require.Len(t, h.records, 1)
	for _, m := range h.records[0] {
		assert.Equal(t, int64(0), m.Drift(), m.Name)
		assert.GreaterOrEqual(t, m.Elapsed, 2*time.Second)
	}
}

func TestLoop_StopsOnCancel(t *testing.T) {
	s := scheduler.New()
	h := newHarness()
	cfg := testConfig()
	cfg.Duration = 0
	cfg.Report.Snapshot = ""
	l, err := NewLoop(s, cfg, h.options()...)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	h.run(ctx, l)
	for i := 0; i < 25; i++ {
		h.ticker.ch <- h.clock.Advance(20 * time.Millisecond)
	}
	cancel()

	err = <-h.done
	assert.True(t, errors.Is(err, context.Canceled))

	require.Len(t, h.records, 1)
	m := byName(h.records[0])
	assert.Equal(t, 500*time.Millisecond, m["physics"].Elapsed)
	assert.Equal(t, int64(25), m["physics"].Fired)
	assert.Equal(t, int64(1), m["ai"].Fired)
	assert.Equal(t, 0, s.Len())
}

func TestLoop_ThrottlesUpdateFailures(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	s := scheduler.New(scheduler.WithLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))))
	require.NoError(t, s.Register(50, core.Func(func() { panic("boom") })))

	h := newHarness()
	cfg := testConfig()
	cfg.Report.Snapshot = ""
	l, err := NewLoop(s, cfg, append(h.options(), WithLogger(logger))...)
	require.NoError(t, err)

	h.run(context.Background(), l)
	require.NoError(t, h.drive(t, 20*time.Millisecond))

	out := buf.String()
	assert.Contains(t, out, "update failed")
	assert.Less(t, bytes.Count(buf.Bytes(), []byte("update failed")), 100)

	physics := byName(h.records[0])["physics"]
	assert.Equal(t, int64(100), physics.Fired)
}

func TestMeasurement_Drift(t *testing.T) {
	m := Measurement{Fired: 9, Expected: 10}
	assert.Equal(t, int64(-1), m.Drift())
}
