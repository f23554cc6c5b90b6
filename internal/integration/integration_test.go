// Package integration provides end-to-end tests for the scan pipeline:
// CSV ingest, concurrent analysis, the SQLite journal and the CSV report.
package integration

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"chartpattern-scanner/internal/analysis"
	"chartpattern-scanner/internal/analysis/patterns"
	"chartpattern-scanner/internal/marketdata"
	"chartpattern-scanner/internal/metrics"
	"chartpattern-scanner/internal/report"
	"chartpattern-scanner/internal/scanner"
	"chartpattern-scanner/internal/store"
)

type knot struct {
	i int
	p float64
}

func linear(knots ...knot) []float64 {
	last := knots[len(knots)-1]
	prices := make([]float64, last.i+1)
	for k := 0; k+1 < len(knots); k++ {
		a, b := knots[k], knots[k+1]
		for i := a.i; i <= b.i; i++ {
			prices[i] = a.p + (b.p-a.p)*float64(i-a.i)/float64(b.i-a.i)
		}
	}
	return prices
}

// writeCSV writes 4h bars whose OHLC all equal the price. Prices are written
// with the shortest exact representation so they parse back unchanged.
func writeCSV(t *testing.T, path string, prices []float64, volume func(i int) int64) {
	t.Helper()
	var b strings.Builder
	b.WriteString("datetime,open,high,low,close,volume\n")
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, p := range prices {
		s := strconv.FormatFloat(p, 'f', -1, 64)
		fmt.Fprintf(&b, "%s,%s,%s,%s,%s,%d\n",
			start.Add(time.Duration(i)*4*time.Hour).Format("2006-01-02 15:04:05"), s, s, s, s, volume(i))
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// cupPrices: left rim 100 at bar 30, bottom 80 at bar 55, right rim 102 at bar 80,
// a handle to 98 and a last close of 101.
func cupPrices() []float64 {
	return linear(
		knot{0, 90}, knot{29, 90}, knot{30, 100}, knot{55, 80},
		knot{80, 102}, knot{89, 98}, knot{99, 101},
	)
}

func cupVolume(i int) int64 {
	switch {
	case i >= 81 && i <= 89:
		return 2000
	case i >= 90:
		return 500
	default:
		return 1000
	}
}

func constVolume(int) int64 { return 1000 }

func fixtureDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeCSV(t, filepath.Join(dir, "CUP.csv"), cupPrices(), cupVolume)

	flat := make([]float64, 40)
	for i := range flat {
		flat[i] = 100
	}
	flat[39] = 101
	writeCSV(t, filepath.Join(dir, "BASE.csv"), flat, constVolume)
	return dir
}

func sources(t *testing.T, dir string) []scanner.Source {
	t.Helper()
	paths, err := filepath.Glob(filepath.Join(dir, "*.csv"))
	if err != nil {
		t.Fatal(err)
	}
	out := make([]scanner.Source, len(paths))
	for i, p := range paths {
		out[i] = scanner.Source{Path: p}
	}
	return out
}

// TestEndToEndScan covers CSV ingest through ranking, journaling and export.
func TestEndToEndScan(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	dir := fixtureDir(t)
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "patterns.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer st.Close()
	rec := metrics.New()

	sc := scanner.New(patterns.NewAnalyzer(), st, rec, scanner.Config{Workers: 2}, zerolog.Nop())
	summary, err := sc.Run(ctx, sources(t, dir))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if summary.Symbols != 2 || summary.Analyzed != 2 || len(summary.Errors) != 0 {
		t.Fatalf("symbols/analyzed/errors = %d/%d/%d, want 2/2/0", summary.Symbols, summary.Analyzed, len(summary.Errors))
	}

	var cup *scanner.Hit
	for i := range summary.Hits {
		h := &summary.Hits[i]
		if h.Symbol == "CUP" && h.Match.Kind == analysis.CupAndHandle {
			cup = h
		}
	}
	if cup == nil {
		t.Fatalf("no cup & handle hit for CUP in %d hits", len(summary.Hits))
	}
	if cup.Match.Score != 90 || cup.Match.Status != analysis.StatusBreakout {
		t.Errorf("cup = %d %s, want 90 BREAKOUT", cup.Match.Score, cup.Match.Status)
	}
	if cup.Bars != 100 {
		t.Errorf("cup bars = %d, want 100", cup.Bars)
	}
	for i := 1; i < len(summary.Hits); i++ {
		if summary.Hits[i].Match.Score > summary.Hits[i-1].Match.Score {
			t.Fatalf("hits not ranked by score: %d before %d", summary.Hits[i-1].Match.Score, summary.Hits[i].Match.Score)
		}
	}

	// Journal
	journaled, err := st.GetMatches(ctx, store.MatchFilter{RunID: summary.RunID})
	if err != nil {
		t.Fatalf("GetMatches: %v", err)
	}
	if len(journaled) != len(summary.Hits) {
		t.Errorf("journaled %d matches, want %d", len(journaled), len(summary.Hits))
	}
	runs, err := st.GetRuns(ctx, 1)
	if err != nil || len(runs) != 1 {
		t.Fatalf("GetRuns = %v, %v", runs, err)
	}
	if runs[0].ID != summary.RunID || runs[0].Matches != len(summary.Hits) || runs[0].FinishedAt.IsZero() {
		t.Errorf("run = %+v", runs[0])
	}

	// Candle cache
	cached, err := st.GetCandles(ctx, "CUP", "source", time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("GetCandles: %v", err)
	}
	_, loaded, err := marketdata.LoadFile(filepath.Join(dir, "CUP.csv"))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if len(cached) != len(loaded) {
		t.Fatalf("cached %d candles, want %d", len(cached), len(loaded))
	}
	for i := range cached {
		if !cached[i].Timestamp.Equal(loaded[i].Timestamp) || cached[i].Close != loaded[i].Close || cached[i].Volume != loaded[i].Volume {
			t.Fatalf("cached bar %d = %+v, want %+v", i, cached[i], loaded[i])
		}
	}

	// Metrics
	n, err := testutil.GatherAndCount(rec.Registry(), "patternscan_last_score")
	if err != nil {
		t.Fatalf("GatherAndCount: %v", err)
	}
	if n < 1 {
		t.Errorf("last score series = %d, want at least 1", n)
	}

	// Report
	var buf bytes.Buffer
	if err := report.WriteCSV(&buf, summary.Hits); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	if !strings.Contains(buf.String(), "CUP,Cup & Handle,BREAKOUT,90,") {
		t.Errorf("report missing cup row:\n%s", buf.String())
	}
}

// TestResampledScan aggregates 4h bars to daily before analysis.
func TestResampledScan(t *testing.T) {
	dir := fixtureDir(t)
	sc := scanner.New(patterns.NewAnalyzer(), nil, nil, scanner.Config{Workers: 1, Resample: 24 * time.Hour}, zerolog.Nop())

	summary, err := sc.Run(context.Background(), []scanner.Source{{Path: filepath.Join(dir, "CUP.csv")}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Analyzed != 1 {
		t.Fatalf("analyzed = %d, want 1", summary.Analyzed)
	}
	// 100 4h bars starting at midnight fill 17 daily buckets.
	for _, h := range summary.Hits {
		if h.Bars != 17 {
			t.Errorf("%s bars = %d, want 17", h.Match.Kind, h.Bars)
		}
	}
	if summary.RunID != 0 {
		t.Errorf("RunID = %d without a store, want 0", summary.RunID)
	}
}

// TestConcurrentAnalysis runs one analyzer from many goroutines and expects identical reports.
func TestConcurrentAnalysis(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	dir := fixtureDir(t)
	_, candles, err := marketdata.LoadFile(filepath.Join(dir, "CUP.csv"))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	analyzer := patterns.NewAnalyzer()
	want, err := analyzer.Analyze(ctx, patterns.Input{Symbol: "CUP", Candles: candles})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	const workers = 8
	var wg sync.WaitGroup
	reports := make(chan *patterns.Report, workers)
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := analyzer.Analyze(ctx, patterns.Input{Symbol: "CUP", Candles: candles})
			if err != nil {
				errs <- err
				return
			}
			reports <- r
		}()
	}
	wg.Wait()
	close(reports)
	close(errs)

	for err := range errs {
		t.Errorf("concurrent Analyze: %v", err)
	}
	n := 0
	for r := range reports {
		n++
		if !reflect.DeepEqual(r, want) {
			t.Error("concurrent report differs from sequential report")
		}
	}
	if n != workers {
		t.Errorf("got %d reports, want %d", n, workers)
	}
}
