package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	apperrors "chartpattern-scanner/internal/errors"
	"chartpattern-scanner/internal/models"
)

// SQLiteStore implements DataStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-based data store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, apperrors.NewStoreError("open", err)
	}

	// Scanner workers write concurrently; WAL plus the busy timeout serializes them.
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{db: db}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, apperrors.NewStoreError("init_schema", err)
	}

	return store, nil
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Candles table for cached OHLCV data
	CREATE TABLE IF NOT EXISTS candles (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT NOT NULL,
		timeframe TEXT NOT NULL,
		timestamp DATETIME NOT NULL,
		open REAL NOT NULL,
		high REAL NOT NULL,
		low REAL NOT NULL,
		close REAL NOT NULL,
		volume INTEGER NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(symbol, timeframe, timestamp)
	);

	-- Scan runs
	CREATE TABLE IF NOT EXISTS scan_runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		started_at DATETIME NOT NULL,
		finished_at DATETIME,
		symbols INTEGER NOT NULL DEFAULT 0,
		matches INTEGER NOT NULL DEFAULT 0,
		errors INTEGER NOT NULL DEFAULT 0,
		min_score INTEGER NOT NULL,
		timeframe TEXT NOT NULL
	);

	-- Pattern matches, one row per reported match
	CREATE TABLE IF NOT EXISTS matches (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL,
		symbol TEXT NOT NULL,
		pattern TEXT NOT NULL,
		status TEXT NOT NULL,
		score INTEGER NOT NULL,
		pivot REAL NOT NULL,
		stop_loss REAL NOT NULL,
		target REAL NOT NULL,
		trend_template INTEGER DEFAULT 0,
		volume_breakout INTEGER DEFAULT 0,
		components TEXT,
		bar_time DATETIME NOT NULL,
		detected_at DATETIME NOT NULL,
		FOREIGN KEY (run_id) REFERENCES scan_runs(id)
	);

	CREATE INDEX IF NOT EXISTS idx_candles_symbol_tf ON candles(symbol, timeframe, timestamp);
	CREATE INDEX IF NOT EXISTS idx_matches_symbol ON matches(symbol, detected_at);
	CREATE INDEX IF NOT EXISTS idx_matches_run ON matches(run_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ============================================================================
// Candles Methods
// ============================================================================

// SaveCandles saves candles to the database, replacing bars with the same timestamp.
func (s *SQLiteStore) SaveCandles(ctx context.Context, symbol, timeframe string, candles []models.Candle) error {
	if len(candles) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.NewStoreError("save_candles", fmt.Errorf("begin transaction: %w", err))
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO candles (symbol, timeframe, timestamp, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return apperrors.NewStoreError("save_candles", fmt.Errorf("prepare statement: %w", err))
	}
	defer stmt.Close()

	for _, c := range candles {
		if _, err := stmt.ExecContext(ctx, symbol, timeframe, c.Timestamp.UTC(), c.Open, c.High, c.Low, c.Close, c.Volume); err != nil {
			return apperrors.NewStoreError("save_candles", fmt.Errorf("insert candle: %w", err))
		}
	}

	if err := tx.Commit(); err != nil {
		return apperrors.NewStoreError("save_candles", fmt.Errorf("commit: %w", err))
	}
	return nil
}

// GetCandles retrieves candles in [from, to], oldest first. A zero to means no upper bound.
func (s *SQLiteStore) GetCandles(ctx context.Context, symbol, timeframe string, from, to time.Time) ([]models.Candle, error) {
	query := `
		SELECT timestamp, open, high, low, close, volume
		FROM candles
		WHERE symbol = ? AND timeframe = ? AND timestamp >= ?`
	args := []interface{}{symbol, timeframe, from.UTC()}
	if !to.IsZero() {
		query += " AND timestamp <= ?"
		args = append(args, to.UTC())
	}
	query += " ORDER BY timestamp ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewStoreError("get_candles", err)
	}
	defer rows.Close()

	var candles []models.Candle
	for rows.Next() {
		var c models.Candle
		if err := rows.Scan(&c.Timestamp, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, apperrors.NewStoreError("get_candles", fmt.Errorf("scan candle: %w", err))
		}
		candles = append(candles, c)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStoreError("get_candles", err)
	}
	return candles, nil
}

// ============================================================================
// Scan Run Methods
// ============================================================================

// CreateRun inserts a scan run and sets its ID.
func (s *SQLiteStore) CreateRun(ctx context.Context, run *models.ScanRun) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO scan_runs (started_at, symbols, min_score, timeframe)
		VALUES (?, ?, ?, ?)
	`, run.StartedAt.UTC(), run.Symbols, run.MinScore, run.Timeframe)
	if err != nil {
		return apperrors.NewStoreError("create_run", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return apperrors.NewStoreError("create_run", err)
	}
	run.ID = id
	return nil
}

// FinishRun records the completion time and totals of a run.
func (s *SQLiteStore) FinishRun(ctx context.Context, run *models.ScanRun) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE scan_runs SET finished_at = ?, symbols = ?, matches = ?, errors = ? WHERE id = ?
	`, run.FinishedAt.UTC(), run.Symbols, run.Matches, run.Errors, run.ID)
	if err != nil {
		return apperrors.NewStoreError("finish_run", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return apperrors.NewStoreError("finish_run", fmt.Errorf("run %d: %w", run.ID, apperrors.ErrDataNotFound))
	}
	return nil
}

// GetRuns returns the most recent runs first.
func (s *SQLiteStore) GetRuns(ctx context.Context, limit int) ([]models.ScanRun, error) {
	query := "SELECT id, started_at, finished_at, symbols, matches, errors, min_score, timeframe FROM scan_runs ORDER BY started_at DESC, id DESC"
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewStoreError("get_runs", err)
	}
	defer rows.Close()

	var runs []models.ScanRun
	for rows.Next() {
		var r models.ScanRun
		var finished sql.NullTime
		if err := rows.Scan(&r.ID, &r.StartedAt, &finished, &r.Symbols, &r.Matches, &r.Errors, &r.MinScore, &r.Timeframe); err != nil {
			return nil, apperrors.NewStoreError("get_runs", fmt.Errorf("scan run: %w", err))
		}
		if finished.Valid {
			r.FinishedAt = finished.Time
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// ============================================================================
// Match Methods
// ============================================================================

// SaveMatch inserts a match and sets its ID.
func (s *SQLiteStore) SaveMatch(ctx context.Context, m *models.MatchRecord) error {
	components, err := json.Marshal(m.Components)
	if err != nil {
		return apperrors.NewStoreError("save_match", err)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO matches (run_id, symbol, pattern, status, score, pivot, stop_loss, target,
			trend_template, volume_breakout, components, bar_time, detected_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, m.RunID, m.Symbol, m.Pattern, m.Status, m.Score, m.Pivot, m.StopLoss, m.Target,
		boolToInt(m.TrendTemplate), boolToInt(m.VolumeBreakout), string(components),
		m.BarTime.UTC(), m.DetectedAt.UTC())
	if err != nil {
		return apperrors.NewStoreError("save_match", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return apperrors.NewStoreError("save_match", err)
	}
	m.ID = id
	return nil
}

// GetMatches retrieves matches, highest score first then most recent.
func (s *SQLiteStore) GetMatches(ctx context.Context, filter MatchFilter) ([]models.MatchRecord, error) {
	query := `SELECT id, run_id, symbol, pattern, status, score, pivot, stop_loss, target,
		trend_template, volume_breakout, components, bar_time, detected_at FROM matches WHERE 1=1`
	args := []interface{}{}

	if filter.RunID > 0 {
		query += " AND run_id = ?"
		args = append(args, filter.RunID)
	}
	if filter.Symbol != "" {
		query += " AND symbol = ?"
		args = append(args, filter.Symbol)
	}
	if filter.Pattern != "" {
		query += " AND pattern = ?"
		args = append(args, filter.Pattern)
	}
	if filter.MinScore > 0 {
		query += " AND score >= ?"
		args = append(args, filter.MinScore)
	}
	if !filter.Since.IsZero() {
		query += " AND detected_at >= ?"
		args = append(args, filter.Since.UTC())
	}

	query += " ORDER BY score DESC, detected_at DESC, symbol ASC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewStoreError("get_matches", err)
	}
	defer rows.Close()

	var matches []models.MatchRecord
	for rows.Next() {
		var m models.MatchRecord
		var trend, volume int
		var components sql.NullString

		if err := rows.Scan(&m.ID, &m.RunID, &m.Symbol, &m.Pattern, &m.Status, &m.Score, &m.Pivot, &m.StopLoss, &m.Target,
			&trend, &volume, &components, &m.BarTime, &m.DetectedAt); err != nil {
			return nil, apperrors.NewStoreError("get_matches", fmt.Errorf("scan match: %w", err))
		}

		m.TrendTemplate = trend == 1
		m.VolumeBreakout = volume == 1
		if components.Valid && components.String != "" {
			if err := json.Unmarshal([]byte(components.String), &m.Components); err != nil {
				return nil, apperrors.NewStoreError("get_matches", fmt.Errorf("decode components: %w", err))
			}
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
