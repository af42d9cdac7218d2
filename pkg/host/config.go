package host

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	yaml "go.yaml.in/yaml/v3"

	"github.com/jdziat/fixed-tick/pkg/validate"
)

// Config is the host loop configuration.
type Config struct {
	// FrameRate is the number of frames per second the loop is driven at.
	// Default: 60
	FrameRate float64 `yaml:"frame_rate"`

	// SkipFrames is the probability in [0, 1) that a frame is skipped. The
	// skipped time is delivered with the next frame, so the scheduler sees
	// an irregular driver.
	SkipFrames float64 `yaml:"skip_frames"`

	// Seed seeds the frame skipping. Zero picks a random seed.
	Seed uint64 `yaml:"seed"`

	// Duration stops the loop after this much host time. Zero runs until
	// the context is cancelled.
	Duration Duration `yaml:"duration"`

	// MaxTicksPerUpdate is passed to the scheduler. Zero is unlimited.
	MaxTicksPerUpdate int `yaml:"max_ticks_per_update"`

	Groups []GroupConfig `yaml:"groups"`
	Report ReportConfig  `yaml:"report"`
	Log    LogConfig     `yaml:"log"`
}

// GroupConfig declares one counting action.
type GroupConfig struct {
	Name string  `yaml:"name"`
	Rate float64 `yaml:"rate"`
}

// ReportConfig controls measurement recording.
type ReportConfig struct {
	// Database is the SQLite file measurements are written to. Empty
	// disables persistence.
	Database string `yaml:"database"`

	// Snapshot is a cron spec or descriptor ("@every 1s") for periodic
	// measurements. Empty records only when the loop stops.
	// Default: "@every 1s"
	Snapshot string `yaml:"snapshot"`
}

// LogConfig controls the host logger.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error. Default: info
	Format string `yaml:"format"` // text or json. Default: text
}

// Duration is a time.Duration written as a Go duration string in YAML.
type Duration time.Duration

// UnmarshalYAML parses strings such as "1m30s".
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := ParseDurationField("duration", raw)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// ParseDurationField parses a non-negative duration. Empty input is zero.
func ParseDurationField(path, raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", path, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: duration must be >= 0", path)
	}
	return d, nil
}

// DefaultConfig returns a configuration with defaults and no groups.
func DefaultConfig() Config {
	return Config{
		FrameRate: 60,
		Report:    ReportConfig{Snapshot: "@every 1s"},
		Log:       LogConfig{Level: "info", Format: "text"},
	}
}

// LoadConfig reads and validates a YAML configuration file.
func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseConfig(b)
}

// ParseConfig decodes YAML configuration. Unknown fields are rejected and
// missing fields take their defaults.
func ParseConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	// reject a second document
	var extra yaml.Node
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		if err == nil {
			return nil, fmt.Errorf("invalid config: trailing document")
		}
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration and returns the first problem found.
func (c *Config) Validate() error {
	if math.IsNaN(c.FrameRate) || math.IsInf(c.FrameRate, 0) || c.FrameRate <= 0 {
		return fmt.Errorf("frame_rate: must be a positive number")
	}
	if math.IsNaN(c.SkipFrames) || c.SkipFrames < 0 || c.SkipFrames >= 1 {
		return fmt.Errorf("skip_frames: must be in [0, 1)")
	}
	if c.MaxTicksPerUpdate < 0 {
		return fmt.Errorf("max_ticks_per_update: must be >= 0")
	}
	if len(c.Groups) == 0 {
		return fmt.Errorf("groups: at least one group required")
	}
	seen := make(map[string]bool, len(c.Groups))
	for i, g := range c.Groups {
		name := strings.TrimSpace(g.Name)
		if name == "" {
			return fmt.Errorf("groups[%d].name: required", i)
		}
		if seen[name] {
			return fmt.Errorf("groups[%d].name: duplicate %q", i, name)
		}
		seen[name] = true
		if err := validate.Rate(g.Rate); err != nil {
			return fmt.Errorf("groups[%d].rate: %w", i, err)
		}
	}
	if _, err := parseCadence(c.Report.Snapshot); err != nil {
		return fmt.Errorf("report.snapshot: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(c.Log.Format)) {
	case "", "text", "json":
	default:
		return fmt.Errorf("log.format: unknown format %q", c.Log.Format)
	}
	return nil
}

// parseCadence parses a snapshot spec. An empty spec yields a nil schedule.
func parseCadence(spec string) (cron.Schedule, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, nil
	}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	return parser.Parse(spec)
}
