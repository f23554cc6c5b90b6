// Command patternscan detects and ranks chart patterns in OHLCV bar series.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"chartpattern-scanner/internal/cli"
	"chartpattern-scanner/internal/config"
	apperrors "chartpattern-scanner/internal/errors"
	"chartpattern-scanner/internal/logging"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	configDir := configDirFromArgs(args)
	if configDir == "" {
		configDir = config.DefaultConfigDir()
	}

	cfg, err := config.Load(configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		return 2
	}

	logger := logging.NewLoggerWithConfig(logging.LogConfig{
		Level:      cfg.Logging.Level,
		Console:    cfg.Logging.Console,
		File:       cfg.Logging.File,
		FilePath:   cfg.Logging.FilePath,
		MaxSize:    cfg.Logging.MaxSize,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAge:     cfg.Logging.MaxAge,
	})

	app := &cli.App{
		Config:    cfg,
		ConfigDir: configDir,
		Logger:    logger,
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Warn().Err(err).Msg("Failed to close store")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logging.WithLogger(ctx, logger)

	root := cli.NewRootCmd(app)
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if apperrors.Is(err, apperrors.ErrInputValidation) || apperrors.Is(err, apperrors.ErrConfigInvalid) {
			return 2
		}
		return 1
	}
	return 0
}

// configDirFromArgs finds --config before cobra parses flags, since the
// config shapes the logger and the command defaults.
func configDirFromArgs(args []string) string {
	for i, a := range args {
		if a == "--" {
			break
		}
		if v, ok := strings.CutPrefix(a, "--config="); ok {
			return v
		}
		if a == "--config" && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}
