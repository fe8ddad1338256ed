package main

import (
	"fmt"
	"os"
)

const appName = "flowtorch"

func main() {
	rootCmd.AddCommand(generateCmd, pluginsCmd, serveCmd, versionCmd)

	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err.Error())
		os.Exit(1)
	}
}
