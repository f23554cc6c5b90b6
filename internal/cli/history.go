package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"chartpattern-scanner/internal/analysis"
	apperrors "chartpattern-scanner/internal/errors"
	"chartpattern-scanner/internal/marketdata"
	"chartpattern-scanner/internal/store"
)

func newHistoryCmd(app *App) *cobra.Command {
	var (
		symbol   string
		pattern  string
		runID    int64
		minScore int
		days     int
		limit    int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show journaled matches from previous scans",
		Example: `  patternscan history --symbol AAPL
  patternscan history --pattern CUP_AND_HANDLE --limit 50
  patternscan history runs`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			st, err := journal(app)
			if err != nil {
				return err
			}

			if symbol != "" {
				normalized, err := marketdata.NormalizeSymbol(symbol)
				if err != nil {
					return err
				}
				symbol = normalized
			}

			filter := store.MatchFilter{
				RunID:    runID,
				Symbol:   symbol,
				Pattern:  normalizePattern(pattern),
				MinScore: minScore,
				Limit:    limit,
			}
			if days > 0 {
				filter.Since = time.Now().UTC().AddDate(0, 0, -days)
			}

			matches, err := st.GetMatches(cmd.Context(), filter)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(matches)
			}
			if len(matches) == 0 {
				output.Info("No journaled matches")
				return nil
			}

			table := NewTable(output, "Detected", "Run", "Ticker", "Pattern", "Status", "Score", "Pivot", "Stop", "Target")
			for _, m := range matches {
				table.AddRow(
					FormatDateTime(m.DetectedAt),
					fmt.Sprintf("%d", m.RunID),
					m.Symbol,
					analysis.PatternKind(m.Pattern).DisplayName(),
					output.StatusLabel(analysis.PatternStatus(m.Status)),
					output.ScoreLabel(m.Score),
					FormatPrice(m.Pivot),
					FormatPrice(m.StopLoss),
					FormatPrice(m.Target),
				)
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().StringVarP(&symbol, "symbol", "s", "", "filter by symbol")
	cmd.Flags().StringVarP(&pattern, "pattern", "p", "", "filter by pattern (cup, ihs, flag, base or full kind)")
	cmd.Flags().Int64Var(&runID, "run", 0, "filter by scan run ID")
	cmd.Flags().IntVar(&minScore, "min-score", 0, "minimum score")
	cmd.Flags().IntVar(&days, "days", 0, "only matches detected in the last N days")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum rows (0 = unlimited)")

	cmd.AddCommand(newHistoryRunsCmd(app))
	return cmd
}

func newHistoryRunsCmd(app *App) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List previous scan runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			st, err := journal(app)
			if err != nil {
				return err
			}
			runs, err := st.GetRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(runs)
			}
			if len(runs) == 0 {
				output.Info("No scan runs journaled")
				return nil
			}

			table := NewTable(output, "Run", "Started", "Duration", "Symbols", "Matches", "Errors", "Min Score", "Timeframe")
			for _, r := range runs {
				duration := "-"
				if !r.FinishedAt.IsZero() {
					duration = FormatDuration(r.FinishedAt.Sub(r.StartedAt))
				}
				table.AddRow(
					fmt.Sprintf("%d", r.ID),
					FormatDateTime(r.StartedAt),
					duration,
					fmt.Sprintf("%d", r.Symbols),
					fmt.Sprintf("%d", r.Matches),
					fmt.Sprintf("%d", r.Errors),
					fmt.Sprintf("%d", r.MinScore),
					r.Timeframe,
				)
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum runs")
	return cmd
}

func journal(app *App) (store.DataStore, error) {
	st, err := app.Store()
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, fmt.Errorf("%w: storage is disabled in config", apperrors.ErrDataNotFound)
	}
	return st, nil
}

// normalizePattern accepts short aliases for pattern kinds.
func normalizePattern(p string) string {
	switch strings.ToLower(strings.TrimSpace(p)) {
	case "":
		return ""
	case "cup", "cup-handle", "cuphandle":
		return string(analysis.CupAndHandle)
	case "ihs", "inv-hs", "invhs":
		return string(analysis.InverseHeadAndShoulders)
	case "flag", "bull-flag":
		return string(analysis.BullFlag)
	case "base", "flat-base", "vcp":
		return string(analysis.FlatBase)
	default:
		return strings.ToUpper(p)
	}
}
