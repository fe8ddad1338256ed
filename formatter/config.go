package formatter

import (
	"fmt"
	"time"
)

// Default configuration values.
const (
	DefaultBinary        = "ruff"
	DefaultTimeout       = 10 * time.Second
	DefaultMaxConcurrent = 4
)

// DefaultArgs format stdin to stdout.
var DefaultArgs = []string{"format", "-"}

// Config holds external formatter configuration.
type Config struct {
	Enabled bool     `mapstructure:"enabled" json:"enabled"`
	Binary  string   `mapstructure:"binary" json:"binary"`
	Args    []string `mapstructure:"args" json:"args"`
	// Timeout bounds a single formatter run.
	Timeout time.Duration `mapstructure:"timeout" json:"timeout"`
	// MaxConcurrent caps formatter processes running at once.
	MaxConcurrent int `mapstructure:"max_concurrent" json:"max_concurrent"`
}

// ApplyDefaults fills in zero-valued fields with defaults.
func (c *Config) ApplyDefaults() {
	if c.Binary == "" {
		c.Binary = DefaultBinary
		if len(c.Args) == 0 {
			c.Args = append([]string(nil), DefaultArgs...)
		}
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = DefaultMaxConcurrent
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Binary == "" {
		return fmt.Errorf("formatter: binary is required when enabled")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("formatter: timeout must be positive")
	}
	return nil
}
