package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/livesql/livesql"
	"github.com/livesql/livesql/config"
	"github.com/spf13/cobra"
)

// watchCmd polls a configured source and re-runs a query on each refresh.
var watchCmd = &cobra.Command{
	Use:   "watch [sql]",
	Short: "Poll a configured source and repeat a query",
	Long: `Start polling one source from a config file and print the query result
as CSV every refresh interval until interrupted (Ctrl+C or SIGTERM).

Example:
  livesql watch -c config.yaml -n prices "SELECT symbol, price FROM data"`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	watchCmd.Flags().StringP("name", "n", "", "source name from the config (required)")
	_ = watchCmd.MarkFlagRequired("config")
	_ = watchCmd.MarkFlagRequired("name")
}

func runWatch(cmd *cobra.Command, args []string) error {
	logger := newLogger()

	configFile, _ := cmd.Flags().GetString("config")
	name, _ := cmd.Flags().GetString("name")

	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	src, ok := cfg.Source(name)
	if !ok {
		return fmt.Errorf("source %q not found in %s", name, configFile)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	data, err := startSource(ctx, src, logger)
	if err != nil {
		return err
	}
	defer data.Stop()

	logger.Info("watching source",
		"name", src.Name,
		"location", data.Source().Location,
		"interval", data.Interval())

	ticker := time.NewTicker(src.Interval.Duration())
	defer ticker.Stop()

	for {
		result, err := data.Query(ctx, args[0])
		if err != nil {
			return err
		}
		if fetchErr := data.LastError(); fetchErr != nil {
			logger.Warn("serving stale data", "name", src.Name, "error", fetchErr)
		}
		if err := printResult(result); err != nil {
			return err
		}
		fmt.Println()

		select {
		case <-ctx.Done():
			logger.Info("shutting down", "name", src.Name)
			return nil
		case <-ticker.C:
		}
	}
}

// startSource turns one config entry into a running stream.
func startSource(ctx context.Context, src config.SourceConfig, logger *slog.Logger) (*livesql.LiveData, error) {
	builder := livesql.NewBuilder().
		WithSource(src.Location).
		WithInterval(src.Interval.Duration()).
		WithTimeout(src.Timeout.Duration()).
		WithLogger(logger)
	if src.Format != "" {
		format, err := livesql.ParseFormat(src.Format)
		if err != nil {
			return nil, err
		}
		builder = builder.WithFormat(format)
	}
	if src.Query != "" {
		builder = builder.WithQuery(src.Query)
	}
	if src.Table != "" {
		builder = builder.WithTable(src.Table)
	}
	for k, v := range src.Headers {
		builder = builder.WithHTTPHeader(k, v)
	}

	built, err := builder.Build(ctx)
	if err != nil {
		return nil, err
	}
	return built.Start(ctx)
}
