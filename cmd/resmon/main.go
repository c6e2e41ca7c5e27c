// Package main is the entry point for resmon, the in-process resource
// monitor run as a standalone process. It loads configuration, opens the
// configured connection pools, and runs the collection engine in the
// foreground or as a Windows service.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

// globalFlags holds flags shared by every subcommand.
type globalFlags struct {
	configPath string
	interval   string
	logLevel   string
}

var flags globalFlags

var rootCmd = &cobra.Command{
	Use:   "resmon",
	Short: "In-process resource monitor",
	Long: `resmon periodically samples memory, CPU, goroutine and connection-pool
statistics of the running process and publishes each report to the log,
the console and an optional webhook.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Path to configuration file (default: search standard locations)")
	rootCmd.PersistentFlags().StringVar(&flags.interval, "interval", "", "Collection interval, e.g. 30s or 30 (seconds)")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level: debug|info|warn|error")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
