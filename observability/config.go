package observability

import (
	"fmt"
	"time"
)

// Default configuration values.
const (
	DefaultEndpoint       = "localhost:4318"
	DefaultMetricInterval = 15 * time.Second
)

// Config holds OpenTelemetry export configuration. When Enabled is false
// spans and metrics go to the no-op global providers.
type Config struct {
	Enabled     bool   `mapstructure:"enabled" json:"enabled"`
	Endpoint    string `mapstructure:"endpoint" json:"endpoint"`
	Insecure    bool   `mapstructure:"insecure" json:"insecure"`
	Environment string `mapstructure:"environment" json:"environment"`
	// SampleRate is the fraction of traces kept, 0.0 to 1.0.
	SampleRate     float64       `mapstructure:"sample_rate" json:"sample_rate"`
	MetricInterval time.Duration `mapstructure:"metric_interval" json:"metric_interval"`
}

// ApplyDefaults fills in zero-valued fields with defaults.
func (c *Config) ApplyDefaults() {
	if c.Endpoint == "" {
		c.Endpoint = DefaultEndpoint
	}
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.SampleRate == 0 {
		c.SampleRate = 1.0
	}
	if c.MetricInterval <= 0 {
		c.MetricInterval = DefaultMetricInterval
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.SampleRate < 0 || c.SampleRate > 1 {
		return fmt.Errorf("observability: sample_rate must be between 0 and 1, got %v", c.SampleRate)
	}
	if c.Enabled && c.Endpoint == "" {
		return fmt.Errorf("observability: endpoint is required when enabled")
	}
	return nil
}
