// Package scanner runs the pattern analyzer over many symbols, filters and
// ranks the matches, and journals each run.
package scanner

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"

	"chartpattern-scanner/internal/analysis"
	"chartpattern-scanner/internal/analysis/patterns"
	apperrors "chartpattern-scanner/internal/errors"
	"chartpattern-scanner/internal/logging"
	"chartpattern-scanner/internal/marketdata"
	"chartpattern-scanner/internal/metrics"
	"chartpattern-scanner/internal/models"
	"chartpattern-scanner/internal/store"
	"chartpattern-scanner/pkg/utils"
)

// Config controls filtering and concurrency of a scan.
type Config struct {
	Workers      int
	MinScore     int
	MaxResults   int // 0 = unlimited
	RequireTrend bool
	Resample     time.Duration
}

// Timeframe labels the bar interval the detectors saw.
func (c Config) Timeframe() string {
	if c.Resample <= 0 {
		return "source"
	}
	return c.Resample.String()
}

// Source is one symbol to scan. Candles are used as given when set,
// otherwise the CSV at Path is loaded.
type Source struct {
	Symbol  string
	Path    string
	Candles []models.Candle
}

// Hit is a match that passed the scan filters.
type Hit struct {
	Symbol  string
	Bars    int
	BarTime time.Time
	Match   *analysis.Match
}

// ScanError records a symbol that could not be analyzed.
type ScanError struct {
	Symbol string
	Stage  string
	Err    error
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("%s [%s]: %v", e.Symbol, e.Stage, e.Err)
}

func (e *ScanError) Unwrap() error {
	return e.Err
}

// Summary is the outcome of one scan run.
type Summary struct {
	RunID      int64
	StartedAt  time.Time
	FinishedAt time.Time
	Symbols    int
	Analyzed   int
	// Total counts hits before the MaxResults cap.
	Total  int
	Hits   []Hit
	Errors []*ScanError
}

// Scanner analyzes symbols concurrently.
type Scanner struct {
	analyzer *patterns.Analyzer
	store    store.DataStore
	recorder *metrics.Recorder
	cfg      Config
	retry    utils.RetryConfig
	logger   zerolog.Logger
}

// New creates a scanner. The store and recorder are optional.
func New(analyzer *patterns.Analyzer, st store.DataStore, rec *metrics.Recorder, cfg Config, logger zerolog.Logger) *Scanner {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	retry := utils.DefaultRetryConfig()
	retry.Retryable = apperrors.IsRetryable
	return &Scanner{
		analyzer: analyzer,
		store:    st,
		recorder: rec,
		cfg:      cfg,
		retry:    retry,
		logger:   logging.WithOperation(logger, "scan"),
	}
}

type symbolResult struct {
	symbol string
	hits   []Hit
	err    *ScanError
}

// Run scans every source. Per-symbol failures are collected in the summary;
// only cancellation of ctx aborts the run.
func (s *Scanner) Run(ctx context.Context, sources []Source) (*Summary, error) {
	summary := &Summary{StartedAt: time.Now().UTC(), Symbols: len(sources)}

	run := &models.ScanRun{
		StartedAt: summary.StartedAt,
		Symbols:   len(sources),
		MinScore:  s.cfg.MinScore,
		Timeframe: s.cfg.Timeframe(),
	}
	persist := s.store != nil
	if persist {
		err := utils.Retry(ctx, s.retry, func() error { return s.store.CreateRun(ctx, run) })
		if err != nil {
			s.logger.Warn().Err(err).Msg("Failed to journal scan run, continuing without persistence")
			s.recordError("store")
			persist = false
		}
	}
	summary.RunID = run.ID

	p := pool.NewWithResults[symbolResult]().
		WithContext(ctx).
		WithMaxGoroutines(s.cfg.Workers)
	for _, src := range sources {
		src := src
		p.Go(func(ctx context.Context) (symbolResult, error) {
			if err := ctx.Err(); err != nil {
				return symbolResult{}, err
			}
			return s.scanOne(ctx, src), nil
		})
	}
	results, err := p.Wait()
	if err != nil {
		return nil, err
	}

	var hits []Hit
	for _, r := range results {
		if r.err != nil {
			summary.Errors = append(summary.Errors, r.err)
			continue
		}
		summary.Analyzed++
		hits = append(hits, r.hits...)
	}
	sort.Slice(summary.Errors, func(i, j int) bool {
		return summary.Errors[i].Symbol < summary.Errors[j].Symbol
	})

	Rank(hits)
	summary.Total = len(hits)
	if s.cfg.MaxResults > 0 && len(hits) > s.cfg.MaxResults {
		hits = hits[:s.cfg.MaxResults]
	}
	summary.Hits = hits
	summary.FinishedAt = time.Now().UTC()

	if persist {
		s.persist(ctx, run, summary)
	}

	s.logger.Info().
		Int("symbols", summary.Symbols).
		Int("analyzed", summary.Analyzed).
		Int("matches", summary.Total).
		Int("reported", len(summary.Hits)).
		Int("errors", len(summary.Errors)).
		Dur("elapsed", summary.FinishedAt.Sub(summary.StartedAt)).
		Msg("Scan complete")

	return summary, nil
}

func (s *Scanner) scanOne(ctx context.Context, src Source) symbolResult {
	symbol := src.Symbol
	candles := src.Candles

	if candles == nil {
		start := time.Now()
		derived, loaded, err := marketdata.LoadFile(src.Path)
		if symbol == "" {
			symbol = derived
		}
		logging.LogLoad(s.logger, src.Path, len(loaded), time.Since(start), err)
		if err != nil {
			s.recordError("load")
			s.logger.Warn().Err(err).Str("symbol", symbol).Msg("Skipping symbol")
			return symbolResult{symbol: symbol, err: &ScanError{Symbol: symbol, Stage: "load", Err: err}}
		}
		candles = loaded
	}
	logger := logging.WithSymbol(s.logger, symbol)

	if s.cfg.Resample > 0 {
		candles = models.Resample(candles, s.cfg.Resample)
	}

	if s.store != nil && len(candles) > 0 {
		if err := s.store.SaveCandles(ctx, symbol, s.cfg.Timeframe(), candles); err != nil {
			s.recordError("store")
			logger.Warn().Err(err).Msg("Failed to cache candles")
		}
	}

	start := time.Now()
	report, err := s.analyzer.Analyze(ctx, patterns.Input{Symbol: symbol, Candles: candles})
	if s.recorder != nil {
		s.recorder.RecordDuration(time.Since(start))
	}
	if err != nil {
		s.recordError("analyze")
		return symbolResult{symbol: symbol, err: &ScanError{Symbol: symbol, Stage: "analyze", Err: err}}
	}

	var barTime time.Time
	if len(candles) > 0 {
		barTime = models.Last(candles).Timestamp
	}

	var hits []Hit
	for _, res := range report.Results {
		pattern := string(res.Kind)
		if !res.Found {
			logging.LogRejection(logger, symbol, pattern, string(res.Reason), res.Detail)
			if s.recorder != nil {
				s.recorder.RecordRejection(pattern, string(res.Reason))
			}
			continue
		}

		m := res.Match
		logging.LogMatch(logger, symbol, pattern, string(m.Status), m.Score, m.Plan.Pivot)
		if s.recorder != nil {
			s.recorder.RecordDetection(symbol, pattern, string(m.Status), m.Score)
		}
		if s.accept(m) {
			hits = append(hits, Hit{Symbol: symbol, Bars: report.Bars, BarTime: barTime, Match: m})
		}
	}
	return symbolResult{symbol: symbol, hits: hits}
}

// accept applies the score and trend filters.
func (s *Scanner) accept(m *analysis.Match) bool {
	if m.Score < s.cfg.MinScore {
		return false
	}
	return !s.cfg.RequireTrend || m.TrendTemplate
}

func (s *Scanner) persist(ctx context.Context, run *models.ScanRun, summary *Summary) {
	for _, h := range summary.Hits {
		rec := &models.MatchRecord{
			RunID:          run.ID,
			Symbol:         h.Symbol,
			Pattern:        string(h.Match.Kind),
			Status:         string(h.Match.Status),
			Score:          h.Match.Score,
			Pivot:          h.Match.Plan.Pivot,
			StopLoss:       h.Match.Plan.StopLoss,
			Target:         h.Match.Plan.Target,
			TrendTemplate:  h.Match.TrendTemplate,
			VolumeBreakout: h.Match.VolumeBreakout,
			Components:     h.Match.Components,
			BarTime:        h.BarTime,
			DetectedAt:     summary.FinishedAt,
		}
		err := utils.Retry(ctx, s.retry, func() error { return s.store.SaveMatch(ctx, rec) })
		if err != nil {
			s.recordError("store")
			s.logger.Warn().Err(err).Str("symbol", h.Symbol).Msg("Failed to journal match")
		}
	}

	run.FinishedAt = summary.FinishedAt
	run.Matches = len(summary.Hits)
	run.Errors = len(summary.Errors)
	err := utils.Retry(ctx, s.retry, func() error { return s.store.FinishRun(ctx, run) })
	if err != nil {
		s.recordError("store")
		s.logger.Warn().Err(err).Int64("run_id", run.ID).Msg("Failed to finish scan run")
	}
}

func (s *Scanner) recordError(stage string) {
	if s.recorder != nil {
		s.recorder.RecordError(stage)
	}
}

// Rank orders hits by score descending, then symbol, then pattern kind.
func Rank(hits []Hit) {
	sort.SliceStable(hits, func(i, j int) bool {
		a, b := hits[i], hits[j]
		if a.Match.Score != b.Match.Score {
			return a.Match.Score > b.Match.Score
		}
		if a.Symbol != b.Symbol {
			return a.Symbol < b.Symbol
		}
		return a.Match.Kind < b.Match.Kind
	})
}
