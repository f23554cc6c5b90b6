package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"chartpattern-scanner/internal/config"
	apperrors "chartpattern-scanner/internal/errors"
)

// writeSeries writes 40 flat daily bars at 100 with the given last close.
func writeSeries(t *testing.T, dir, symbol string, lastClose float64) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("Date,Open,High,Low,Close,Volume\n")
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 40; i++ {
		p := 100.0
		if i == 39 {
			p = lastClose
		}
		fmt.Fprintf(&b, "%s,%.2f,%.2f,%.2f,%.2f,1000\n", start.AddDate(0, 0, i).Format("2006-01-02"), p, p, p, p)
	}
	path := filepath.Join(dir, symbol+".csv")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func newTestApp(t *testing.T) *App {
	t.Helper()
	cfg := config.Default()
	cfg.Storage.Path = filepath.Join(t.TempDir(), "patterns.db")
	app := &App{Config: cfg, ConfigDir: t.TempDir(), Logger: zerolog.Nop()}
	t.Cleanup(func() { app.Close() })
	return app
}

func execute(t *testing.T, app *App, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd(app)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersionJSON(t *testing.T) {
	out, err := execute(t, newTestApp(t), "version", "--json")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	var got map[string]string
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if got["version"] != Version {
		t.Errorf("version = %q, want %q", got["version"], Version)
	}
}

func TestDetect_ReportsEveryDetector(t *testing.T) {
	path := writeSeries(t, t.TempDir(), "acme", 101)

	out, err := execute(t, newTestApp(t), "detect", path, "--json")
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	var rep detectReport
	if err := json.Unmarshal([]byte(out), &rep); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, key := range []string{`"stop_loss"`, `"right_rim_index"`, `"trend_template"`, `"components"`} {
		if !strings.Contains(out, key) {
			t.Errorf("output missing %s key", key)
		}
	}
	if strings.Contains(out, `"RightRimIndex"`) || strings.Contains(out, `"Kind"`) {
		t.Error("match fields should use snake_case keys")
	}
	if rep.Symbol != "ACME" || rep.Bars != 40 {
		t.Errorf("symbol/bars = %s/%d, want ACME/40", rep.Symbol, rep.Bars)
	}
	if len(rep.Results) != 4 {
		t.Fatalf("results = %d, want 4", len(rep.Results))
	}
	for _, r := range rep.Results {
		if r.Pattern == "FLAT_BASE" {
			if !r.Found || r.Match.Score != 80 {
				t.Errorf("flat base = %+v, want found with score 80", r)
			}
		} else if r.Found || r.Reason == "" {
			t.Errorf("%s should be rejected with a reason, got %+v", r.Pattern, r)
		}
	}
}

func TestDetect_RequiresInput(t *testing.T) {
	if _, err := execute(t, newTestApp(t), "detect"); err == nil {
		t.Fatal("expected an error without a file or --symbol")
	}
}

func TestScan_RanksAndJournals(t *testing.T) {
	dir := t.TempDir()
	writeSeries(t, dir, "aaa", 100)
	writeSeries(t, dir, "bbb", 101)
	if err := os.WriteFile(filepath.Join(dir, "broken.csv"), []byte("date,close\nnot-a-date,1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	report := filepath.Join(t.TempDir(), "out.csv")

	app := newTestApp(t)
	out, err := execute(t, app, "scan", dir, "--min-score", "70", "--out", report, "--json")
	if err != nil {
		t.Fatalf("scan: %v", err)
	}

	var got scanOutput
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Symbols != 3 || got.Analyzed != 2 || len(got.Errors) != 1 {
		t.Errorf("symbols/analyzed/errors = %d/%d/%d, want 3/2/1", got.Symbols, got.Analyzed, len(got.Errors))
	}
	if len(got.Results) != 2 || got.Results[0].Ticker != "BBB" || got.Results[0].Score != 80 {
		t.Fatalf("results = %+v, want BBB first with 80", got.Results)
	}

	data, err := os.ReadFile(report)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 || !strings.HasPrefix(lines[1], "BBB,VCP / Flat Base,BREAKOUT,80") {
		t.Errorf("report = %q", data)
	}

	hist, err := execute(t, app, "history", "--pattern", "base", "--json")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	var records []map[string]interface{}
	if err := json.Unmarshal([]byte(hist), &records); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("history rows = %d, want 2", len(records))
	}
}

func TestScan_MinScoreOutOfRange(t *testing.T) {
	dir := t.TempDir()
	writeSeries(t, dir, "aaa", 100)
	if _, err := execute(t, newTestApp(t), "scan", dir, "--min-score", "120"); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestScan_Timeout(t *testing.T) {
	dir := t.TempDir()
	writeSeries(t, dir, "aaa", 100)

	_, err := execute(t, newTestApp(t), "scan", dir, "--no-store", "--timeout", "1ns")
	if !apperrors.Is(err, apperrors.ErrTimeout) {
		t.Fatalf("error = %v, want ErrTimeout", err)
	}
}

func TestScan_ReportPathError(t *testing.T) {
	dir := t.TempDir()
	writeSeries(t, dir, "aaa", 100)

	out := filepath.Join(t.TempDir(), "missing", "out.csv")
	_, err := execute(t, newTestApp(t), "scan", dir, "--no-store", "--out", out)
	if err == nil || !strings.Contains(err.Error(), "create report") {
		t.Fatalf("error = %v, want create report failure", err)
	}
}

func TestHistory_StorageDisabled(t *testing.T) {
	app := newTestApp(t)
	app.Config.Storage.Enabled = false
	if _, err := execute(t, app, "history"); err == nil {
		t.Fatal("expected error when storage is disabled")
	}
}

func TestNormalizePattern(t *testing.T) {
	tests := map[string]string{
		"":               "",
		"cup":            "CUP_AND_HANDLE",
		"IHS":            "INVERSE_HEAD_AND_SHOULDERS",
		"flag":           "BULL_FLAG",
		"vcp":            "FLAT_BASE",
		"cup_and_handle": "CUP_AND_HANDLE",
	}
	for in, want := range tests {
		if got := normalizePattern(in); got != want {
			t.Errorf("normalizePattern(%q) = %q, want %q", in, got, want)
		}
	}
}
