// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"chartpattern-scanner/internal/models"
)

// DataStore defines the interface for data persistence.
type DataStore interface {
	// Candles
	SaveCandles(ctx context.Context, symbol, timeframe string, candles []models.Candle) error
	GetCandles(ctx context.Context, symbol, timeframe string, from, to time.Time) ([]models.Candle, error)

	// Scan runs
	CreateRun(ctx context.Context, run *models.ScanRun) error
	FinishRun(ctx context.Context, run *models.ScanRun) error
	GetRuns(ctx context.Context, limit int) ([]models.ScanRun, error)

	// Matches
	SaveMatch(ctx context.Context, match *models.MatchRecord) error
	GetMatches(ctx context.Context, filter MatchFilter) ([]models.MatchRecord, error)

	// Lifecycle
	Close() error
}

// MatchFilter represents filters for querying matches. Zero values match everything.
type MatchFilter struct {
	RunID    int64
	Symbol   string
	Pattern  string
	MinScore int
	Since    time.Time
	Limit    int
}
