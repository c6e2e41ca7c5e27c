package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Guliveer/vitalis/resmon/internal/config"
	"github.com/Guliveer/vitalis/resmon/internal/engine"
	"github.com/Guliveer/vitalis/resmon/internal/logging"
	"github.com/Guliveer/vitalis/resmon/internal/pool"
	"github.com/Guliveer/vitalis/resmon/internal/provider"
	"github.com/Guliveer/vitalis/resmon/internal/report"
	"github.com/Guliveer/vitalis/resmon/internal/service"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the monitor until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		logger, err := logging.New(cfg.Logging)
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		logger.Info("Starting resmon", zap.String("version", version))

		// Check if running as Windows service
		if service.IsWindowsService() {
			logger.Info("Running as Windows service")
			var runErr error
			svc := service.New(logger, cfg.Monitor.DrainTimeout.Duration+time.Second, func(ctx context.Context) {
				runErr = runMonitor(ctx, cfg, logger)
			})
			if err := svc.Run(); err != nil {
				return fmt.Errorf("service failed: %w", err)
			}
			return runErr
		}

		// Running as standalone foreground process
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := runMonitor(ctx, cfg, logger); err != nil {
			return err
		}
		logger.Info("Monitor stopped")
		return nil
	},
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run a single collection round and print it",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		logger, err := logging.New(cfg.Logging)
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		handles, closePools, err := pool.Open(cfg.Pools)
		if err != nil {
			return err
		}
		defer func() { _ = closePools() }()

		p := provider.NewRuntime(provider.WithStuckThreshold(cfg.Monitor.Threads.StuckThreshold.Duration))
		eng, err := engine.New(cfg, p, handles, nil, logger)
		if err != nil {
			return err
		}

		r := eng.Tick(cmd.Context())
		opts := []report.ConsoleOption{report.WithWriter(cmd.OutOrStdout())}
		if !cfg.Reporting.Color {
			opts = append(opts, report.WithoutColor())
		}
		return report.NewConsoleReporter(opts...).Publish(cmd.Context(), r)
	},
}

// loadConfig applies the layered configuration and validates it.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	var cli config.CLIOverrides
	if cmd.Flags().Changed("interval") {
		d, err := parseInterval(flags.interval)
		if err != nil {
			return nil, err
		}
		cli.Interval = &d
	}
	cli.LogLevel = flags.logLevel

	var (
		cfg *config.Config
		err error
	)
	if cmd.Flags().Changed("config") {
		cfg, err = config.LoadLayered(cli, embeddedConfig, flags.configPath)
	} else {
		cfg, err = config.LoadLayered(cli, embeddedConfig)
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parseInterval accepts a Go duration or a plain number of seconds.
func parseInterval(s string) (time.Duration, error) {
	d, err := config.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%w: --interval: %v", config.ErrInvalidConfiguration, err)
	}
	return d, nil
}

// runMonitor opens the pools, starts the engine and blocks until ctx is
// cancelled, then drains the engine.
func runMonitor(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	handles, closePools, err := pool.Open(cfg.Pools)
	if err != nil {
		return err
	}
	defer func() {
		if err := closePools(); err != nil {
			logger.Warn("Closing pools failed", zap.Error(err))
		}
	}()

	p := provider.NewRuntime(provider.WithStuckThreshold(cfg.Monitor.Threads.StuckThreshold.Duration))

	eng, err := engine.New(cfg, p, handles, buildReporter(cfg, logger), logger)
	if err != nil {
		return err
	}
	if err := eng.Start(); err != nil {
		return err
	}

	logger.Info("Monitor running",
		zap.Duration("interval", cfg.Monitor.Interval.Duration),
		zap.Int("pools", len(handles)))

	<-ctx.Done()
	logger.Info("Shutting down", zap.Duration("drain_timeout", cfg.Monitor.DrainTimeout.Duration))

	if err := eng.Stop(cfg.Monitor.DrainTimeout.Duration); err != nil && !errors.Is(err, engine.ErrShutdownTimeout) {
		return err
	}
	return nil
}

func buildReporter(cfg *config.Config, logger *zap.Logger) report.Reporter {
	var reporters report.Multi
	if cfg.Reporting.Log {
		reporters = append(reporters, report.NewLogReporter(logger))
	}
	if cfg.Reporting.Console {
		opts := []report.ConsoleOption{}
		if !cfg.Reporting.Color {
			opts = append(opts, report.WithoutColor())
		}
		reporters = append(reporters, report.NewConsoleReporter(opts...))
	}
	if wh := cfg.Reporting.Webhook; wh.URL != "" {
		// Retries must not hold the tick past half the interval.
		reporters = append(reporters, report.NewWebhookReporter(wh.URL, logger,
			report.WithToken(wh.Token),
			report.WithTimeout(wh.Timeout.Duration),
			report.WithSendBudget(cfg.Monitor.Interval.Duration/2)))
	}
	if len(reporters) == 0 {
		logger.Warn("No reporters enabled, reports will be discarded")
	}
	return reporters
}
