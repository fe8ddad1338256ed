package main

import (
	"github.com/spf13/cobra"

	"github.com/kbukum/flowtorch/logger"
)

var (
	flagConfig   string
	flagLogLevel string
)

var rootCmd = &cobra.Command{
	Use:   appName,
	Short: "Transpile visual workflow graphs into PyTorch source",
	Long: appName + " turns a workflow graph of plugin nodes into one Python\n" +
		"artifact per terminal node, using built-in torch plugins and\n" +
		"optionally a remote plugin catalog.",
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "",
		"config file (default: ./config.yml when present)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "warn",
		"log level for one-shot commands: debug, info, warn, error")
}

// commandConfig loads the config for cmd. The --log-level flag overrides
// the configured level when set, and always applies to one-shot commands.
func commandConfig(cmd *cobra.Command, oneShot bool) (*AppConfig, error) {
	cfg, err := loadConfig(flagConfig)
	if err != nil {
		return nil, err
	}
	if oneShot || cmd.Flags().Changed("log-level") {
		cfg.Logging.Level = flagLogLevel
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// commandLogger builds the logger of a one-shot command, which writes to
// stderr so generated code on stdout stays clean.
func commandLogger(cfg *AppConfig) *logger.Logger {
	lc := cfg.Logging
	lc.Output = "stderr"
	return logger.New(&lc, cfg.Name)
}
