package main

import (
	"context"
	"encoding/json"
	"io"

	"github.com/spf13/cobra"
)

var flagPluginsJSON bool

var pluginsCmd = &cobra.Command{
	Use:   "plugins",
	Short: "List the plugins available to workflow nodes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := commandConfig(cmd, true)
		if err != nil {
			return err
		}
		return runPlugins(cmd.Context(), cfg, flagPluginsJSON, cmd.OutOrStdout())
	},
}

func init() {
	pluginsCmd.Flags().BoolVar(&flagPluginsJSON, "json", false, "print definitions as JSON")
}

// runPlugins lists the built-in plugins and, when enabled, the remote
// catalog.
func runPlugins(ctx context.Context, cfg *AppConfig, asJSON bool, w io.Writer) error {
	log := commandLogger(cfg)
	d, err := wire(ctx, cfg, nil, needsStorage(cfg, false), log)
	if err != nil {
		return err
	}
	defs, err := d.service.Plugins(ctx)
	if err != nil {
		return err
	}
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(defs)
	}
	printPlugins(w, defs)
	return nil
}
