package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	apperrors "chartpattern-scanner/internal/errors"
	"chartpattern-scanner/internal/marketdata"
	"chartpattern-scanner/internal/report"
	"chartpattern-scanner/internal/scanner"
	"chartpattern-scanner/internal/store"
)

type scanOutput struct {
	RunID    int64        `json:"run_id,omitempty"`
	Symbols  int          `json:"symbols"`
	Analyzed int          `json:"analyzed"`
	Total    int          `json:"total_matches"`
	Elapsed  string       `json:"elapsed"`
	Results  []report.Row `json:"results"`
	Errors   []scanIssue  `json:"errors,omitempty"`
}

type scanIssue struct {
	Symbol string `json:"symbol"`
	Stage  string `json:"stage"`
	Error  string `json:"error"`
}

func newScanCmd(app *App) *cobra.Command {
	var (
		minScore     int
		maxResults   int
		workers      int
		requireTrend bool
		resample     string
		outPath      string
		noStore      bool
		timeout      time.Duration
	)

	cmd := &cobra.Command{
		Use:   "scan <file.csv|dir>...",
		Short: "Scan many symbols and rank the strongest setups",
		Long: `Scan every CSV bar series given (directories are expanded to their *.csv files),
keep matches at or above the minimum score and print them ranked by score.

Defaults come from the [scanner] section of the config file.`,
		Example: `  patternscan scan data/
  patternscan scan data/*.csv --min-score 70 --max-results 10
  patternscan scan data/ --require-trend --out results.csv`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx := cmd.Context()

			cfg := scanner.Config{
				Workers:      app.Config.Scanner.Workers,
				MinScore:     app.Config.Scanner.MinScore,
				MaxResults:   app.Config.Scanner.MaxResults,
				RequireTrend: app.Config.Scanner.RequireTrend,
			}
			if cmd.Flags().Changed("min-score") {
				cfg.MinScore = minScore
			}
			if cmd.Flags().Changed("max-results") {
				cfg.MaxResults = maxResults
			}
			if cmd.Flags().Changed("workers") {
				cfg.Workers = workers
			}
			if cmd.Flags().Changed("require-trend") {
				cfg.RequireTrend = requireTrend
			}
			if cfg.MinScore < 0 || cfg.MinScore > 100 {
				return apperrors.NewValidationError("min-score", cfg.MinScore, "must be between 0 and 100")
			}
			if cfg.MaxResults < 0 {
				return apperrors.NewValidationError("max-results", cfg.MaxResults, "must be non-negative")
			}

			interval, err := app.Config.ResampleInterval()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("resample") {
				interval = 0
				if resample != "" {
					interval, err = time.ParseDuration(resample)
					if err != nil || interval <= 0 {
						return apperrors.NewValidationError("resample", resample, "must be a positive duration")
					}
				}
			}
			cfg.Resample = interval

			sources, err := collectSources(args)
			if err != nil {
				return err
			}

			var st store.DataStore
			if !noStore {
				st, err = app.Store()
				if err != nil {
					app.Logger.Warn().Err(err).Msg("Result journal unavailable, continuing without persistence")
					st = nil
				}
			}

			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			sc := scanner.New(app.Analyzer, st, app.Recorder, cfg, app.Logger)
			summary, err := sc.Run(ctx, sources)
			if errors.Is(err, context.DeadlineExceeded) {
				return apperrors.Wrapf(apperrors.ErrTimeout, "scan of %d symbols did not finish within %s", len(sources), timeout)
			}
			if err != nil {
				return err
			}

			if path := app.Config.Metrics.Textfile; path != "" {
				if err := app.Recorder.WriteTextfile(path); err != nil {
					app.Logger.Warn().Err(err).Str("path", path).Msg("Failed to write metrics textfile")
				}
			}

			if outPath != "" {
				if err := writeReport(outPath, summary.Hits); err != nil {
					return err
				}
			}

			if output.IsJSON() {
				return output.JSON(buildScanOutput(summary))
			}
			printScanSummary(output, summary, cfg)
			if outPath != "" {
				output.Dim("Report written to %s", outPath)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&minScore, "min-score", 80, "minimum score to report (0-100)")
	cmd.Flags().IntVar(&maxResults, "max-results", 5, "maximum matches to report (0 = unlimited)")
	cmd.Flags().IntVarP(&workers, "workers", "w", 4, "symbols analyzed in parallel")
	cmd.Flags().BoolVar(&requireTrend, "require-trend", false, "only report matches that pass the trend template")
	cmd.Flags().StringVar(&resample, "resample", "", "aggregate bars to this interval first (e.g. 4h, 24h)")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "write ranked matches as CSV to this file")
	cmd.Flags().BoolVar(&noStore, "no-store", false, "do not journal this run")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "abort the scan after this long (0 = no limit)")

	return cmd
}

// collectSources expands directories to their CSV files and de-duplicates paths.
func collectSources(args []string) ([]scanner.Source, error) {
	seen := make(map[string]bool)
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, apperrors.NewDataError(arg, 0, "stat", apperrors.ErrDataNotFound)
		}
		if !info.IsDir() {
			if !seen[arg] {
				seen[arg] = true
				paths = append(paths, arg)
			}
			continue
		}
		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, apperrors.NewDataError(arg, 0, "read dir", err)
		}
		for _, e := range entries {
			if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
				continue
			}
			p := filepath.Join(arg, e.Name())
			if !seen[p] {
				seen[p] = true
				paths = append(paths, p)
			}
		}
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no CSV files found", apperrors.ErrDataNotFound)
	}
	sort.Strings(paths)

	sources := make([]scanner.Source, len(paths))
	for i, p := range paths {
		sources[i] = scanner.Source{Symbol: marketdata.SymbolFromPath(p), Path: p}
	}
	return sources, nil
}

func writeReport(path string, hits []scanner.Hit) error {
	f, err := os.Create(path)
	if err != nil {
		return apperrors.Wrap(err, "create report")
	}
	if err := report.WriteCSV(f, hits); err != nil {
		f.Close()
		return apperrors.Wrap(err, "write report")
	}
	return f.Close()
}

func buildScanOutput(s *scanner.Summary) scanOutput {
	out := scanOutput{
		RunID:    s.RunID,
		Symbols:  s.Symbols,
		Analyzed: s.Analyzed,
		Total:    s.Total,
		Elapsed:  s.FinishedAt.Sub(s.StartedAt).String(),
		Results:  report.Rows(s.Hits),
	}
	for _, e := range s.Errors {
		out.Errors = append(out.Errors, scanIssue{Symbol: e.Symbol, Stage: e.Stage, Error: e.Err.Error()})
	}
	return out
}

func printScanSummary(output *Output, s *scanner.Summary, cfg scanner.Config) {
	output.Bold("Scanned %d symbols (%d analyzed) in %s", s.Symbols, s.Analyzed, FormatDuration(s.FinishedAt.Sub(s.StartedAt)))
	output.Dim("Min score %d, timeframe %s, trend required: %v", cfg.MinScore, cfg.Timeframe(), cfg.RequireTrend)
	output.Println()

	if len(s.Hits) == 0 {
		output.Warning("No patterns at or above score %d", cfg.MinScore)
	} else {
		table := NewTable(output, "#", "Ticker", "Pattern", "Status", "Score", "Pivot", "Stop", "Target", "Bar")
		for i, h := range s.Hits {
			m := h.Match
			table.AddRow(
				fmt.Sprintf("%d", i+1),
				h.Symbol,
				m.Kind.DisplayName(),
				output.StatusLabel(m.Status),
				output.ScoreLabel(m.Score),
				FormatPrice(m.Plan.Pivot),
				FormatPrice(m.Plan.StopLoss),
				FormatPrice(m.Plan.Target),
				FormatDate(h.BarTime),
			)
		}
		table.Render()
		if s.Total > len(s.Hits) {
			output.Dim("Showing top %d of %d matches", len(s.Hits), s.Total)
		}
	}

	if len(s.Errors) > 0 {
		output.Println()
		output.Warning("%d symbols skipped:", len(s.Errors))
		for _, e := range s.Errors {
			output.Dim("  %s [%s]: %v", e.Symbol, e.Stage, e.Err)
		}
	}
	if s.RunID > 0 {
		output.Println()
		output.Dim("Run #%d journaled", s.RunID)
	}
}
