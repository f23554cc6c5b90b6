package models

import "time"

// ScanRun is one pass of the scanner over a set of symbols.
type ScanRun struct {
	ID         int64
	StartedAt  time.Time
	FinishedAt time.Time
	Symbols    int
	Matches    int
	Errors     int
	MinScore   int
	Timeframe  string
}

// MatchRecord is a persisted pattern match.
type MatchRecord struct {
	ID             int64
	RunID          int64
	Symbol         string
	Pattern        string
	Status         string
	Score          int
	Pivot          float64
	StopLoss       float64
	Target         float64
	TrendTemplate  bool
	VolumeBreakout bool
	Components     map[string]int
	BarTime        time.Time
	DetectedAt     time.Time
}
