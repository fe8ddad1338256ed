package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kbukum/flowtorch/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), appName, version.Get().String())
	},
}
