package scheduler

import "log/slog"

// Config holds scheduler configuration.
type Config struct {
	Logger *slog.Logger

	// Recover isolates action panics: each panic is recovered, reported and
	// returned from Update after the pass completes. When false a panic
	// propagates out of Update immediately. Default: true
	Recover bool

	// MaxTicksPerUpdate caps firings per group in a single Update. Whole
	// intervals beyond the cap are dropped; the fractional remainder is kept.
	// Zero means unlimited. Default: 0
	MaxTicksPerUpdate int
}

// DefaultConfig returns the configuration used by New.
func DefaultConfig() Config {
	return Config{
		Logger:  slog.Default(),
		Recover: true,
	}
}

// Option configures a Scheduler.
type Option interface {
	Apply(*Config)
}

type optionFunc func(*Config)

func (f optionFunc) Apply(c *Config) { f(c) }

// WithLogger sets the logger. A nil logger keeps the default.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *Config) {
		if l != nil {
			c.Logger = l
		}
	})
}

// WithRecover controls whether action panics are recovered.
func WithRecover(enabled bool) Option {
	return optionFunc(func(c *Config) {
		c.Recover = enabled
	})
}

// WithMaxTicksPerUpdate caps the firings per group in one Update.
// Negative values are treated as zero (unlimited).
func WithMaxTicksPerUpdate(n int) Option {
	return optionFunc(func(c *Config) {
		if n < 0 {
			n = 0
		}
		c.MaxTicksPerUpdate = n
	})
}
