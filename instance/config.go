package instance

import "time"

// Mode selects whether an Instance runs the replication layer at all
// (spec.md §6.1).
type Mode uint8

const (
	// ModeStandalone never touches a CRDT; there is no "tree" to diff against.
	ModeStandalone Mode = iota
	// ModeDistributed diffs every mutation against the previous snapshot and
	// pushes the result to the wired CRDT.
	ModeDistributed
)

// Defaults used by normalize and by WithOption when a recognized field is
// given an out-of-range value (spec.md §6.1, §7's documented lenient policy).
const (
	DefaultWidth          = 6
	DefaultDimensionality = 2
	// DefaultStatsMinInterval/DefaultStatsMaxInterval shape the tree-stats
	// report's backoff (logger.Schedule, SPEC_FULL.md §2.1) when a Config
	// doesn't set its own.
	DefaultStatsMinInterval = 5 * time.Second
	DefaultStatsMaxInterval = 2 * time.Minute
)

// Config is the construction-time configuration record (spec.md §6.1).
type Config struct {
	Width          int
	Mode           Mode
	Verbose        bool
	Seed           int64
	Dimensionality int
	// StatsMinInterval/StatsMaxInterval bound the backoff of the recurring
	// tree-stats report New registers with the logger (logger.Schedule).
	StatsMinInterval time.Duration
	StatsMaxInterval time.Duration
}

// normalize applies the documented lenient policy: out-of-range recognized
// fields fall back to their default rather than producing a construction
// error.
func (c Config) normalize() Config {
	if c.Width <= 0 {
		c.Width = DefaultWidth
	}
	if c.Dimensionality <= 0 {
		c.Dimensionality = DefaultDimensionality
	}
	if c.StatsMinInterval <= 0 {
		c.StatsMinInterval = DefaultStatsMinInterval
	}
	if c.StatsMaxInterval <= 0 {
		c.StatsMaxInterval = DefaultStatsMaxInterval
	}
	return c
}

// Option mutates a Config under construction. WithOption is the entry point
// for the "unknown config options are silently dropped" policy (spec.md §7):
// since Config itself is a typed Go struct, an unknown key can't exist as a
// field, so the policy is expressed as an Option that no-ops on anything it
// doesn't recognize, the same tolerance a file/flag-based loader would need.
type Option func(*Config)

// WithOption sets a single named field from an untyped value, dropping
// anything it doesn't recognize or can't use (wrong key, wrong Go type,
// out-of-range value).
func WithOption(key string, value interface{}) Option {
	return func(c *Config) {
		switch key {
		case "width":
			if v, ok := value.(int); ok && v > 0 {
				c.Width = v
			}
		case "mode":
			if v, ok := value.(string); ok {
				switch v {
				case "distributed":
					c.Mode = ModeDistributed
				case "standalone":
					c.Mode = ModeStandalone
				}
			}
		case "verbose":
			if v, ok := value.(bool); ok {
				c.Verbose = v
			}
		case "seed":
			if v, ok := value.(int64); ok {
				c.Seed = v
			}
		case "dimensionality":
			if v, ok := value.(int); ok && v > 0 {
				c.Dimensionality = v
			}
		case "stats_min_interval":
			if v, ok := value.(time.Duration); ok && v > 0 {
				c.StatsMinInterval = v
			}
		case "stats_max_interval":
			if v, ok := value.(time.Duration); ok && v > 0 {
				c.StatsMaxInterval = v
			}
		}
	}
}

// NewConfig builds a Config from defaults plus options, applied in order.
func NewConfig(opts ...Option) Config {
	c := Config{
		Width:            DefaultWidth,
		Mode:             ModeStandalone,
		Dimensionality:   DefaultDimensionality,
		StatsMinInterval: DefaultStatsMinInterval,
		StatsMaxInterval: DefaultStatsMaxInterval,
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c.normalize()
}
