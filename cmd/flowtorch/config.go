package main

import (
	"fmt"
	"os"

	"github.com/kbukum/flowtorch/config"
	"github.com/kbukum/flowtorch/formatter"
	"github.com/kbukum/flowtorch/observability"
	"github.com/kbukum/flowtorch/registry"
	"github.com/kbukum/flowtorch/server"
	"github.com/kbukum/flowtorch/storage"
	"github.com/kbukum/flowtorch/transpiler"
)

// envPrefix scopes environment overrides, e.g. FLOWTORCH_SERVER_PORT.
const envPrefix = "FLOWTORCH"

// AppConfig is the flowtorch process configuration.
type AppConfig struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Server        server.Config        `yaml:"server" mapstructure:"server"`
	Registry      registry.Config      `yaml:"registry" mapstructure:"registry"`
	Storage       storage.Config       `yaml:"storage" mapstructure:"storage"`
	Formatter     formatter.Config     `yaml:"formatter" mapstructure:"formatter"`
	Transpiler    transpiler.Config    `yaml:"transpiler" mapstructure:"transpiler"`
	Observability observability.Config `yaml:"observability" mapstructure:"observability"`
}

// ApplyDefaults applies defaults to every section.
func (c *AppConfig) ApplyDefaults() {
	c.ServiceConfig.ApplyDefaults()
	c.Server.ApplyDefaults()
	c.Registry.ApplyDefaults()
	c.Storage.ApplyDefaults()
	c.Formatter.ApplyDefaults()
	c.Transpiler.ApplyDefaults()
	if c.Observability.Environment == "" {
		c.Observability.Environment = c.Environment
	}
	c.Observability.ApplyDefaults()
}

// Validate validates every section.
func (c *AppConfig) Validate() error {
	checks := []struct {
		section string
		fn      func() error
	}{
		{"service", c.ServiceConfig.Validate},
		{"server", c.Server.Validate},
		{"registry", c.Registry.Validate},
		{"storage", c.Storage.Validate},
		{"formatter", c.Formatter.Validate},
		{"transpiler", c.Transpiler.Validate},
		{"observability", c.Observability.Validate},
	}
	for _, ch := range checks {
		if err := ch.fn(); err != nil {
			return fmt.Errorf("%s: %w", ch.section, err)
		}
	}
	return nil
}

// loadConfig reads config.yml, .env and FLOWTORCH_* variables. An explicit
// path replaces the config file search.
func loadConfig(path string) (*AppConfig, error) {
	opts := []config.LoaderOption{config.WithEnvPrefix(envPrefix)}
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		opts = append(opts, config.WithConfigFile(path))
	}
	cfg := &AppConfig{}
	if err := config.LoadConfig("flowtorch", cfg, opts...); err != nil {
		return nil, err
	}
	return cfg, nil
}
