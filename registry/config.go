package registry

import (
	"fmt"
	"time"
)

// Default configuration values.
const (
	DefaultPrefix           = "plugins"
	DefaultNamespace        = "community"
	DefaultMaxParallel      = 8
	DefaultMaxAttempts      = 3
	DefaultInitialBackoff   = 200 * time.Millisecond
	DefaultBreakerFailures  = 5
	DefaultBreakerOpenDelay = 30 * time.Second
)

// RemoteConfig configures the storage-backed plugin source.
type RemoteConfig struct {
	Enabled bool `mapstructure:"enabled" json:"enabled"`
	// Prefix is the object key prefix under which manifests live.
	Prefix string `mapstructure:"prefix" json:"prefix"`
	// Namespace is used for types that carry none.
	Namespace        string        `mapstructure:"namespace" json:"namespace"`
	MaxAttempts      int           `mapstructure:"max_attempts" json:"max_attempts"`
	InitialBackoff   time.Duration `mapstructure:"initial_backoff" json:"initial_backoff"`
	BreakerFailures  int           `mapstructure:"breaker_failures" json:"breaker_failures"`
	BreakerOpenDelay time.Duration `mapstructure:"breaker_open_delay" json:"breaker_open_delay"`
}

// Config holds plugin registry configuration.
type Config struct {
	Remote RemoteConfig `mapstructure:"remote" json:"remote"`
	// MaxParallel bounds concurrent plugin fetches per request.
	MaxParallel int `mapstructure:"max_parallel" json:"max_parallel"`
}

// ApplyDefaults fills in zero-valued fields with defaults.
func (c *Config) ApplyDefaults() {
	if c.MaxParallel <= 0 {
		c.MaxParallel = DefaultMaxParallel
	}
	c.Remote.ApplyDefaults()
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.MaxParallel < 1 {
		return fmt.Errorf("registry: max_parallel must be at least 1")
	}
	return c.Remote.Validate()
}

// ApplyDefaults fills in zero-valued fields with defaults.
func (c *RemoteConfig) ApplyDefaults() {
	if c.Prefix == "" {
		c.Prefix = DefaultPrefix
	}
	if c.Namespace == "" {
		c.Namespace = DefaultNamespace
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = DefaultInitialBackoff
	}
	if c.BreakerFailures <= 0 {
		c.BreakerFailures = DefaultBreakerFailures
	}
	if c.BreakerOpenDelay <= 0 {
		c.BreakerOpenDelay = DefaultBreakerOpenDelay
	}
}

// Validate checks the remote configuration.
func (c *RemoteConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Prefix == "" {
		return fmt.Errorf("registry: remote.prefix is required")
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("registry: remote.max_attempts must be at least 1")
	}
	return nil
}
