// Package marketdata loads OHLCV bar series from CSV exports.
package marketdata

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gocarina/gocsv"

	apperrors "chartpattern-scanner/internal/errors"
	"chartpattern-scanner/internal/models"
)

// dateLayouts are tried in order when parsing the date column.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// headerAliases maps normalized header names onto the row struct tags.
var headerAliases = map[string]string{
	"datetime":  "date",
	"timestamp": "date",
	"time":      "date",
}

// barTime parses the date column in any of dateLayouts.
type barTime struct {
	time.Time
}

func (t *barTime) UnmarshalCSV(s string) error {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("unrecognized date %q", s)
}

// barRow is one CSV data row. Volume is parsed as a float since many
// exports write it with a decimal point.
type barRow struct {
	Date   barTime `csv:"date"`
	Open   float64 `csv:"open"`
	High   float64 `csv:"high"`
	Low    float64 `csv:"low"`
	Close  float64 `csv:"close"`
	Volume float64 `csv:"volume"`
}

// headerReader lower-cases and aliases the header row so exports using
// "Date,Open,..." or "timestamp,open,..." decode into the same struct.
type headerReader struct {
	*csv.Reader
}

func (r headerReader) ReadAll() ([][]string, error) {
	rows, err := r.Reader.ReadAll()
	if err != nil || len(rows) == 0 {
		return rows, err
	}
	for i, h := range rows[0] {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if alias, ok := headerAliases[h]; ok {
			h = alias
		}
		rows[0][i] = h
	}
	return rows, nil
}

// LoadCSV reads a bar series from r. Rows are returned oldest first.
// Duplicate timestamps, non-positive prices and inverted high/low are rejected
// with an error wrapping ErrInvalidSeries.
func LoadCSV(r io.Reader) ([]models.Candle, error) {
	return loadCSV(r, "csv")
}

func loadCSV(r io.Reader, source string) ([]models.Candle, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	var rows []*barRow
	if err := gocsv.UnmarshalCSV(headerReader{reader}, &rows); err != nil {
		if err == gocsv.ErrEmptyCSVFile {
			return nil, apperrors.NewDataError(source, 0, "empty file", apperrors.ErrDataNotFound)
		}
		return nil, apperrors.NewDataError(source, 0, "decode", err)
	}
	if len(rows) == 0 {
		return nil, apperrors.NewDataError(source, 0, "no rows", apperrors.ErrDataNotFound)
	}

	candles := make([]models.Candle, len(rows))
	for i, row := range rows {
		if row.Date.IsZero() {
			return nil, apperrors.NewDataError(source, i+1, "missing date", apperrors.ErrInvalidSeries)
		}
		if math.IsNaN(row.Volume) || math.IsInf(row.Volume, 0) {
			return nil, apperrors.NewDataError(source, i+1, "non-finite volume", apperrors.ErrInvalidSeries)
		}
		candles[i] = models.Candle{
			Timestamp: row.Date.Time,
			Open:      row.Open,
			High:      row.High,
			Low:       row.Low,
			Close:     row.Close,
			Volume:    int64(math.Round(row.Volume)),
		}
	}

	models.SortChronological(candles)
	if idx, problem := models.ValidateSeries(candles); idx >= 0 {
		return nil, apperrors.NewDataError(source, 0,
			fmt.Sprintf("bar at %s: %s", candles[idx].Timestamp.Format(time.RFC3339), problem),
			apperrors.ErrInvalidSeries)
	}
	return candles, nil
}

// LoadFile reads a CSV file and derives the symbol from its base name,
// so "data/AAPL.csv" yields "AAPL".
func LoadFile(path string) (string, []models.Candle, error) {
	symbol := SymbolFromPath(path)

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return symbol, nil, apperrors.NewDataError(path, 0, "open", apperrors.ErrDataNotFound)
		}
		return symbol, nil, apperrors.NewDataError(path, 0, "open", err)
	}
	defer f.Close()

	candles, err := loadCSV(f, path)
	return symbol, candles, err
}

// SymbolFromPath returns the upper-cased file name without its extension.
func SymbolFromPath(path string) string {
	base := filepath.Base(path)
	return strings.ToUpper(strings.TrimSuffix(base, filepath.Ext(base)))
}
