package marketdata

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	apperrors "chartpattern-scanner/internal/errors"
)

func TestLoadCSV_MixedCaseHeaderAndUnsortedRows(t *testing.T) {
	data := `Date,Open,High,Low,Close,Adj Close,Volume
2024-01-03,11,12,10,11.5,11.4,1500
2024-01-02,10,11,9,10.5,10.4,1000.0
`
	candles, err := LoadCSV(strings.NewReader(data))
	if err != nil {
		t.Fatalf("LoadCSV() error = %v", err)
	}
	if len(candles) != 2 {
		t.Fatalf("got %d candles, want 2", len(candles))
	}
	first := candles[0]
	if !first.Timestamp.Equal(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("first timestamp = %v, want 2024-01-02", first.Timestamp)
	}
	if first.Close != 10.5 || first.Volume != 1000 {
		t.Errorf("first candle = %+v", first)
	}
}

func TestLoadCSV_DateLayouts(t *testing.T) {
	tests := []struct {
		name string
		date string
		want time.Time
	}{
		{"rfc3339", "2024-03-01T13:30:00Z", time.Date(2024, 3, 1, 13, 30, 0, 0, time.UTC)},
		{"datetime", "2024-03-01 13:30:00", time.Date(2024, 3, 1, 13, 30, 0, 0, time.UTC)},
		{"date", "2024-03-01", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := "timestamp,open,high,low,close,volume\n" + tt.date + ",1,2,0.5,1.5,10\n"
			candles, err := LoadCSV(strings.NewReader(data))
			if err != nil {
				t.Fatalf("LoadCSV() error = %v", err)
			}
			if !candles[0].Timestamp.Equal(tt.want) {
				t.Errorf("Timestamp = %v, want %v", candles[0].Timestamp, tt.want)
			}
		})
	}
}

func TestLoadCSV_Rejects(t *testing.T) {
	const header = "date,open,high,low,close,volume\n"
	tests := []struct {
		name string
		data string
		want error
	}{
		{"duplicate timestamp", header + "2024-01-02,1,2,1,1.5,10\n2024-01-02,1,2,1,1.5,10\n", apperrors.ErrInvalidSeries},
		{"zero close", header + "2024-01-02,1,2,1,0,10\n", apperrors.ErrInvalidSeries},
		{"high below low", header + "2024-01-02,1,1,2,1.5,10\n", apperrors.ErrInvalidSeries},
		{"NaN high", header + "2024-01-02,1,2,1,1.5,10\n2024-01-03,1,NaN,1,1.5,10\n", apperrors.ErrInvalidSeries},
		{"infinite close", header + "2024-01-02,1,2,1,+Inf,10\n", apperrors.ErrInvalidSeries},
		{"NaN volume", header + "2024-01-02,1,2,1,1.5,NaN\n", apperrors.ErrInvalidSeries},
		{"empty file", "", apperrors.ErrDataNotFound},
		{"header only", header, apperrors.ErrDataNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadCSV(strings.NewReader(tt.data))
			if !apperrors.Is(err, tt.want) {
				t.Errorf("LoadCSV() error = %v, want %v", err, tt.want)
			}
		})
	}

	if _, err := LoadCSV(strings.NewReader(header + "yesterday,1,2,1,1.5,10\n")); err == nil {
		t.Error("expected error for unparseable date")
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "msft.csv")
	data := "date,open,high,low,close,volume\n2024-01-02,1,2,1,1.5,10\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	symbol, candles, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if symbol != "MSFT" || len(candles) != 1 {
		t.Errorf("got %s with %d candles", symbol, len(candles))
	}

	_, _, err = LoadFile(filepath.Join(dir, "missing.csv"))
	if !apperrors.Is(err, apperrors.ErrDataNotFound) {
		t.Errorf("missing file error = %v, want ErrDataNotFound", err)
	}
}

func TestSymbolFromPath(t *testing.T) {
	if got := SymbolFromPath("/data/brk.b.csv"); got != "BRK.B" {
		t.Errorf("SymbolFromPath() = %q, want BRK.B", got)
	}
}
