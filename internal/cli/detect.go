package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"chartpattern-scanner/internal/analysis"
	"chartpattern-scanner/internal/analysis/patterns"
	apperrors "chartpattern-scanner/internal/errors"
	"chartpattern-scanner/internal/marketdata"
	"chartpattern-scanner/internal/models"
)

// detectResult is the JSON shape of one detector outcome.
type detectResult struct {
	Pattern string          `json:"pattern"`
	Found   bool            `json:"found"`
	Reason  string          `json:"reason,omitempty"`
	Detail  string          `json:"detail,omitempty"`
	Match   *analysis.Match `json:"match,omitempty"`
}

type detectReport struct {
	Symbol         string         `json:"symbol"`
	Bars           int            `json:"bars"`
	LastBar        time.Time      `json:"last_bar"`
	LastClose      float64        `json:"last_close"`
	TrendTemplate  bool           `json:"trend_template"`
	TrendReason    string         `json:"trend_reason"`
	VolumeBreakout bool           `json:"volume_breakout"`
	Results        []detectResult `json:"results"`
}

func newDetectCmd(app *App) *cobra.Command {
	var (
		symbol    string
		timeframe string
		resample  string
	)

	cmd := &cobra.Command{
		Use:   "detect [file.csv]",
		Short: "Run every pattern detector on one bar series",
		Long: `Run every pattern detector on one bar series and print each result.

Bars come from a CSV file, or from the candle cache when --symbol is given
without a file (candles are cached by previous scans).`,
		Example: `  patternscan detect data/AAPL.csv
  patternscan detect data/AAPL.csv --resample 24h
  patternscan detect --symbol AAPL --timeframe source`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx := cmd.Context()

			if symbol != "" {
				normalized, err := marketdata.NormalizeSymbol(symbol)
				if err != nil {
					return err
				}
				symbol = normalized
			}

			var candles []models.Candle
			switch {
			case len(args) == 1:
				derived, loaded, err := marketdata.LoadFile(args[0])
				if err != nil {
					return err
				}
				if symbol == "" {
					symbol = derived
				}
				candles = loaded
			case symbol != "":
				st, err := app.Store()
				if err != nil {
					return err
				}
				if st == nil {
					return fmt.Errorf("%w: storage is disabled, pass a CSV file", apperrors.ErrDataNotFound)
				}
				candles, err = st.GetCandles(ctx, symbol, timeframe, time.Time{}, time.Time{})
				if err != nil {
					return err
				}
				if len(candles) == 0 {
					return fmt.Errorf("%w: no cached %s bars for %s", apperrors.ErrDataNotFound, timeframe, symbol)
				}
			default:
				return fmt.Errorf("%w: pass a CSV file or --symbol", apperrors.ErrInputValidation)
			}

			if resample != "" {
				d, err := time.ParseDuration(resample)
				if err != nil || d <= 0 {
					return apperrors.NewValidationError("resample", resample, "must be a positive duration")
				}
				candles = models.Resample(candles, d)
			}

			report, err := app.Analyzer.Analyze(ctx, patterns.Input{Symbol: symbol, Candles: candles})
			if err != nil {
				return err
			}

			out := buildDetectReport(report, candles)
			if output.IsJSON() {
				return output.JSON(out)
			}
			printDetectReport(output, out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&symbol, "symbol", "s", "", "symbol name (default: derived from the file name)")
	cmd.Flags().StringVar(&timeframe, "timeframe", "source", "cached timeframe to read with --symbol")
	cmd.Flags().StringVar(&resample, "resample", "", "aggregate bars to this interval first (e.g. 4h, 24h)")

	return cmd
}

func buildDetectReport(report *patterns.Report, candles []models.Candle) detectReport {
	out := detectReport{
		Symbol:         report.Symbol,
		Bars:           report.Bars,
		TrendTemplate:  report.TrendTemplate,
		TrendReason:    report.TrendReason,
		VolumeBreakout: report.VolumeBreakout,
	}
	if len(candles) > 0 {
		last := models.Last(candles)
		out.LastBar = last.Timestamp
		out.LastClose = last.Close
	}
	for _, r := range report.Results {
		out.Results = append(out.Results, detectResult{
			Pattern: string(r.Kind),
			Found:   r.Found,
			Reason:  string(r.Reason),
			Detail:  r.Detail,
			Match:   r.Match,
		})
	}
	return out
}

func printDetectReport(output *Output, r detectReport) {
	output.Bold("%s  (%d bars)", r.Symbol, r.Bars)
	if r.Bars > 0 {
		output.Dim("Last bar %s  close %s", FormatDateTime(r.LastBar), FormatPrice(r.LastClose))
	}
	trend := output.Red("✗ " + r.TrendReason)
	if r.TrendTemplate {
		trend = output.Green("✓ " + r.TrendReason)
	}
	output.Printf("Trend template:  %s\n", trend)
	output.Printf("Volume breakout: %v\n", r.VolumeBreakout)
	output.Println()

	for _, res := range r.Results {
		kind := analysis.PatternKind(res.Pattern)
		if !res.Found {
			output.Printf("%s  %s\n", PadRight(kind.DisplayName(), 16), output.DimText(fmt.Sprintf("%s: %s", res.Reason, res.Detail)))
			continue
		}
		m := res.Match
		output.Printf("%s  %s  score %s\n", PadRight(kind.DisplayName(), 16), output.StatusLabel(m.Status), output.ScoreLabel(m.Score))
		output.Printf("    Pivot %s  Stop %s  Target %s  R/R %s  (%s from pivot)\n",
			FormatPrice(m.Plan.Pivot), FormatPrice(m.Plan.StopLoss), FormatPrice(m.Plan.Target),
			FormatRiskReward(m.Plan.RewardRisk()), FormatDistance(r.LastClose, m.Plan.Pivot))
		if len(m.Components) > 0 {
			output.Dim("    %s", formatComponents(m.Components))
		}
	}
}
