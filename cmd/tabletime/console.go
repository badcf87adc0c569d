package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goodtune/tabletime/internal/config"
	"github.com/goodtune/tabletime/internal/console"
	"github.com/goodtune/tabletime/internal/journal"
	"github.com/goodtune/tabletime/internal/metrics"
	"github.com/goodtune/tabletime/internal/timer"
	"github.com/goodtune/tabletime/internal/tracker"
	"github.com/goodtune/tabletime/internal/workbook"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Run the interactive table console",
	Long: `Load today's tab from the workbook and run the interactive console. Tables
are started, paused and stopped by typing commands; every stop rewrites the
workbook.`,
	RunE: runConsole,
}

func init() {
	rootCmd.AddCommand(consoleCmd)
}

func runConsole(cmd *cobra.Command, args []string) error {
	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Setup logger
	logger := setupLogger(cfg.Logging)
	log.Logger = logger

	logger.Info().
		Str("version", version).
		Str("config", configPath).
		Msg("Starting tabletime")

	resetTime, err := tracker.ParseResetTime(cfg.Day.ResetTime)
	if err != nil {
		return fmt.Errorf("invalid reset time: %w", err)
	}
	mode, err := timer.ParseMode(cfg.Timer.Mode)
	if err != nil {
		return err
	}
	location := cfg.Location()

	// Initialize workbook
	wb := openWorkbook(cfg, logger)
	logger.Info().Str("path", wb.Path()).Int("tables", cfg.Tables.Count).Msg("Workbook ready")

	// Initialize journal
	j := openJournal(cfg.Journal, logger)
	defer func() {
		if err := j.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close journal")
		}
	}()

	// Initialize tracker, loading or creating today's tab
	tr := tracker.New(wb, j, timer.RealClock{}, tracker.Config{
		Timer: timer.Config{
			Interval: cfg.TimerInterval(),
			Mode:     mode,
		},
		ResetTime: resetTime,
		Location:  location,
	}, logger)

	history, err := workbook.NewHistory(wb, cfg.Workbook.HistoryCacheSize, tr.Day)
	if err != nil {
		return err
	}

	// Start metrics server
	var metricsServer *metrics.Server
	if cfg.Metrics.Enabled {
		metricsServer = metrics.NewServer(cfg.Metrics.BindAddress, logger)
		if err := metricsServer.Start(); err != nil {
			logger.Warn().Err(err).Str("addr", cfg.Metrics.BindAddress).Msg("Failed to start metrics server, continuing without it")
			metricsServer = nil
		}
	}

	// Start day rollover scheduler
	rolloverScheduler := tracker.NewRolloverScheduler(tr, logger)
	rolloverScheduler.Start()

	// Run the console until quit, end of input or a shutdown signal
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	con := console.New(tr, history, location, os.Stdin, os.Stdout, logger)
	done := make(chan error, 1)
	go func() {
		done <- con.Run(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case err := <-done:
		if err != nil {
			logger.Error().Err(err).Msg("Console input failed")
		}
	case sig := <-sigChan:
		logger.Info().Str("signal", sig.String()).Msg("Shutdown signal received, gracefully stopping...")
		cancel()
	}

	// Stop background work before the final save
	rolloverScheduler.Stop()

	if cfg.Workbook.SaveOnExit {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := tr.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("Failed to save tables on shutdown")
		}
	} else {
		if running := len(tr.Running()); running > 0 {
			logger.Warn().Int("running", running).Msg("Exiting with running tables; unstopped time is not saved")
		}
		tr.Close()
	}

	if metricsServer != nil {
		if err := metricsServer.Stop(); err != nil {
			logger.Error().Err(err).Msg("Error stopping metrics server")
		}
	}

	logger.Info().Msg("tabletime stopped")
	return nil
}

// openWorkbook builds the workbook adapter from configuration
func openWorkbook(cfg *config.Config, logger zerolog.Logger) *workbook.Workbook {
	return workbook.New(workbook.Config{
		Path:        cfg.Workbook.Path,
		Tables:      cfg.Tables.Count,
		DefaultRate: cfg.DefaultHourlyRate(),
	}, logger)
}

// openJournal connects the Redis journal when enabled. An unreachable Redis
// never stops the console; events are then discarded.
func openJournal(cfg config.JournalConfig, logger zerolog.Logger) journal.Journal {
	if !cfg.Enabled {
		return journal.Nop{}
	}

	j, err := journal.Open(cfg.Redis, cfg.RetentionDays)
	if err != nil {
		logger.Warn().
			Err(err).
			Str("redis_host", cfg.Redis.Host).
			Int("redis_port", cfg.Redis.Port).
			Msg("Journal unavailable, continuing without it")
		return journal.Nop{}
	}

	logger.Info().
		Str("redis_host", cfg.Redis.Host).
		Int("redis_port", cfg.Redis.Port).
		Int("retention_days", cfg.RetentionDays).
		Msg("Journal initialized")

	return j
}
