// Package main is the entry point for the livesql CLI.
//
// The library is usable programmatically; this binary covers the common
// cases without writing Go:
//
//	livesql query "SELECT * FROM data" -s data.csv   # One-shot query
//	livesql watch -c config.yaml -n prices "SELECT..." # Repeat on each poll
//	livesql validate -c config.yaml                   # Validate configuration
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// Version information - set at build time via ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd is the base command when called without subcommands.
var rootCmd = &cobra.Command{
	Use:   "livesql",
	Short: "SQL over live tabular data",
	Long: `livesql polls a tabular data source (CSV/TSV/LTSV/Parquet/XLSX over
HTTP or on disk, or a PostgreSQL query) and answers SQL queries against the
latest capture through an embedded SQLite engine.

Quick start:
  livesql query "SELECT * FROM data LIMIT 10" -s https://example.com/prices.csv

Example config (for watch/validate):
  interval: 30s
  sources:
    - name: prices
      location: https://example.com/prices.csv
      timeout: 5s`,
}

// newLogger creates a JSON logger for CLI use.
func newLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("livesql %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error, just exit with code 1
		os.Exit(1)
	}
}
