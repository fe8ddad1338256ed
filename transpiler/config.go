package transpiler

import (
	"fmt"
	"time"
)

// Default configuration values.
const (
	DefaultMaxParallel = 4
	DefaultMaxNodes    = 2000
	DefaultTimeout     = 30 * time.Second
)

// Config tunes request handling.
type Config struct {
	// StrictRoots fails artifacts whose path has more than one root
	// instead of warning.
	StrictRoots bool `mapstructure:"strict_roots" json:"strict_roots"`
	// MaxParallel bounds concurrent artifact composition and formatting.
	MaxParallel int `mapstructure:"max_parallel" json:"max_parallel"`
	// MaxNodes rejects larger graphs. Zero disables the check.
	MaxNodes int           `mapstructure:"max_nodes" json:"max_nodes"`
	Timeout  time.Duration `mapstructure:"timeout" json:"timeout"`
}

// ApplyDefaults fills in zero-valued fields with defaults.
func (c *Config) ApplyDefaults() {
	if c.MaxParallel <= 0 {
		c.MaxParallel = DefaultMaxParallel
	}
	if c.MaxNodes == 0 {
		c.MaxNodes = DefaultMaxNodes
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.MaxParallel < 1 {
		return fmt.Errorf("transpiler: max_parallel must be at least 1")
	}
	if c.MaxNodes < 0 {
		return fmt.Errorf("transpiler: max_nodes must not be negative")
	}
	return nil
}
