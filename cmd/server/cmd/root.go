package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	logLevel  string
	logFormat string

	rootCmd = &cobra.Command{
		Use:   "server",
		Short: "Tomato federated meeting-directory aggregator and query gateway",
		Long: `Tomato periodically crawls a network of upstream meeting-directory root
servers, reconciles the combined catalog into a local store, and exposes a
single read-only query API that mirrors the upstream semantic protocol.

Subcommands:
  serve           run the HTTP query gateway and the periodic import scheduler
  import          run one federation import pass and exit
  admin-bootstrap create the first administrative user if none exists`,
	}
)

// Execute runs the selected subcommand, printing any error to stderr and
// exiting non-zero (spec §6.4 CLI surface).
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (json, console)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(adminBootstrapCmd)
	rootCmd.AddCommand(versionCmd)
}
