// Package cli provides the command-line interface for the pattern scanner.
package cli

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"chartpattern-scanner/internal/analysis/patterns"
	"chartpattern-scanner/internal/config"
	"chartpattern-scanner/internal/metrics"
	"chartpattern-scanner/internal/store"
)

// Version information
const (
	Version   = "0.3.0"
	BuildDate = "2024-06-01"
)

// App holds the application dependencies.
type App struct {
	Config    *config.Config
	ConfigDir string
	Logger    zerolog.Logger
	Analyzer  *patterns.Analyzer
	Recorder  *metrics.Recorder
	store     store.DataStore
}

// Store opens the result journal on first use. It returns nil when storage is disabled.
func (a *App) Store() (store.DataStore, error) {
	if a.store != nil || !a.Config.Storage.Enabled {
		return a.store, nil
	}
	st, err := store.NewSQLiteStore(a.Config.Storage.Path)
	if err != nil {
		return nil, err
	}
	a.Logger.Debug().Str("path", a.Config.Storage.Path).Msg("SQLite store initialized")
	a.store = st
	return st, nil
}

// Close releases the store if it was opened.
func (a *App) Close() error {
	if a.store == nil {
		return nil
	}
	return a.store.Close()
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(app *App) *cobra.Command {
	if app.Analyzer == nil {
		app.Analyzer = patterns.NewAnalyzer()
	}
	if app.Recorder == nil {
		app.Recorder = metrics.New()
	}

	rootCmd := &cobra.Command{
		Use:   "patternscan",
		Short: "Chart pattern scanner for OHLCV bar series",
		Long: `patternscan detects cup & handle, inverse head & shoulders, bull flag and
flat base formations in OHLCV bar series, scores them 0-100 and suggests a
pivot, stop-loss and target for each match.

Bar series are read from CSV files with date,open,high,low,close,volume columns.

Use 'patternscan detect <file.csv>' to inspect one symbol.
Use 'patternscan scan <dir|file.csv>...' to rank matches across many symbols.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
	}

	// Global flags. --config is consumed by main before the command tree is built.
	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/chartpattern-scanner)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
	rootCmd.AddCommand(newDetectCmd(app))
	rootCmd.AddCommand(newScanCmd(app))
	rootCmd.AddCommand(newHistoryCmd(app))

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			} else {
				output.Printf("patternscan v%s\n", Version)
				output.Dim("Build date: %s", BuildDate)
			}
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and validate application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}
			return showConfig(output, app.Config)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			path := config.ConfigPath(app.ConfigDir)
			if output.IsJSON() {
				output.JSON(map[string]string{"path": path})
			} else {
				output.Println(path)
			}
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				output.JSON(map[string]bool{"valid": true})
			} else {
				output.Success("✓ Configuration is valid")
			}
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) error {
	output.Bold("Scanner")
	output.Printf("  Workers:         %d\n", cfg.Scanner.Workers)
	output.Printf("  Min Score:       %d\n", cfg.Scanner.MinScore)
	output.Printf("  Max Results:     %s\n", limitLabel(cfg.Scanner.MaxResults))
	output.Printf("  Require Trend:   %v\n", cfg.Scanner.RequireTrend)
	output.Printf("  Resample:        %s\n", orDash(cfg.Scanner.Resample))
	output.Println()

	output.Bold("Storage")
	output.Printf("  Enabled:         %v\n", cfg.Storage.Enabled)
	output.Printf("  Path:            %s\n", cfg.Storage.Path)
	output.Println()

	output.Bold("Logging")
	output.Printf("  Level:           %s\n", cfg.Logging.Level)
	output.Printf("  File:            %v\n", cfg.Logging.File)
	if cfg.Logging.File {
		output.Printf("  File Path:       %s\n", cfg.Logging.FilePath)
	}
	output.Println()

	output.Bold("Metrics")
	output.Printf("  Textfile:        %s\n", orDash(cfg.Metrics.Textfile))

	return nil
}

func limitLabel(n int) string {
	if n <= 0 {
		return "unlimited"
	}
	return fmt.Sprintf("%d", n)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
