package patterns

import (
	"context"

	"github.com/sourcegraph/conc"

	"chartpattern-scanner/internal/analysis"
	"chartpattern-scanner/internal/analysis/indicators"
	"chartpattern-scanner/internal/analysis/trend"
	"chartpattern-scanner/internal/models"
)

// DefaultDetectors returns every detector in reporting order.
func DefaultDetectors() []analysis.Detector {
	return []analysis.Detector{
		NewCupAndHandleDetector(),
		NewInverseHeadAndShouldersDetector(),
		NewBullFlagDetector(),
		NewFlatBaseDetector(),
	}
}

// Analyzer runs a fixed set of independent detectors over one bar series.
type Analyzer struct {
	detectors []analysis.Detector
}

// NewAnalyzer creates an analyzer. With no detectors it uses DefaultDetectors.
func NewAnalyzer(detectors ...analysis.Detector) *Analyzer {
	if len(detectors) == 0 {
		detectors = DefaultDetectors()
	}
	return &Analyzer{detectors: detectors}
}

// Detectors returns the configured detectors.
func (a *Analyzer) Detectors() []analysis.Detector {
	return a.detectors
}

// Input is one analysis request.
type Input struct {
	Symbol  string
	Candles []models.Candle
	// Benchmark is accepted for comparative use and does not affect scoring.
	Benchmark []models.Candle
}

// Report collects every detector result for one series.
type Report struct {
	Symbol         string
	Bars           int
	Results        []analysis.Result
	TrendTemplate  bool
	TrendReason    string
	VolumeBreakout bool
}

// Analyze runs every detector concurrently. Results keep detector order.
// The context is only consulted before work starts; detectors are not interruptible.
func (a *Analyzer) Analyze(ctx context.Context, in Input) (*Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	results := make([]analysis.Result, len(a.detectors))
	var wg conc.WaitGroup
	for i, det := range a.detectors {
		i, det := i, det
		wg.Go(func() {
			results[i] = det.Detect(in.Candles)
		})
	}

	report := &Report{Symbol: in.Symbol, Bars: len(in.Candles)}
	if len(in.Candles) > 0 {
		derived := indicators.Annotate(in.Candles)
		report.TrendTemplate, report.TrendReason = trend.CheckTrendTemplate(in.Candles, derived)
		report.VolumeBreakout = trend.CheckVolumeBreakout(in.Candles, derived)
	} else {
		report.TrendReason = "no data"
	}

	wg.Wait()
	report.Results = results
	return report, nil
}

// Matches returns the positive results in detector order.
func (r *Report) Matches() []*analysis.Match {
	var out []*analysis.Match
	for _, res := range r.Results {
		if res.Found && res.Match != nil {
			out = append(out, res.Match)
		}
	}
	return out
}

// Best returns the highest-scoring match, earliest detector first on ties, or nil.
func (r *Report) Best() *analysis.Match {
	var best *analysis.Match
	for _, m := range r.Matches() {
		if best == nil || m.Score > best.Score {
			best = m
		}
	}
	return best
}
