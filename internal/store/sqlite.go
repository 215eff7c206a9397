package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"sweepstat/pkg/model"
)

// SQLite stores candles in a single-file database.
type SQLite struct {
	db  *sql.DB
	log *zap.Logger
	mu  sync.Mutex
}

// OpenSQLite opens (or creates) the database and runs migrations.
func OpenSQLite(ctx context.Context, path string, log *zap.Logger) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets the API read while a sync writes.
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	s := &SQLite{db: db, log: log}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info("sqlite store opened", zap.String("path", path))
	return s, nil
}

func (s *SQLite) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS ohlcv_data (
			exchange  TEXT    NOT NULL,
			symbol    TEXT    NOT NULL,
			timeframe TEXT    NOT NULL,
			timestamp INTEGER NOT NULL,
			open      REAL    NOT NULL,
			high      REAL    NOT NULL,
			low       REAL    NOT NULL,
			close     REAL    NOT NULL,
			volume    REAL    NOT NULL,
			PRIMARY KEY (exchange, symbol, timeframe, timestamp)
		)`,
	}
	for _, q := range stmts {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("exec %q: %w", q[:40], err)
		}
	}
	return nil
}

// Upsert writes candles in one transaction.
func (s *SQLite) Upsert(ctx context.Context, key Key, candles []model.Candle) (int, error) {
	if len(candles) == 0 {
		return 0, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("upsert %s: begin: %w", key, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO ohlcv_data
		(exchange, symbol, timeframe, timestamp, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (exchange, symbol, timeframe, timestamp) DO UPDATE SET
			open = excluded.open,
			high = excluded.high,
			low = excluded.low,
			close = excluded.close,
			volume = excluded.volume`)
	if err != nil {
		return 0, fmt.Errorf("upsert %s: prepare: %w", key, err)
	}
	defer stmt.Close()

	for _, c := range candles {
		if _, err := stmt.ExecContext(ctx, key.Exchange, key.Symbol, key.Timeframe,
			c.Time.UnixMilli(), c.Open, c.High, c.Low, c.Close, c.Volume); err != nil {
			return 0, fmt.Errorf("upsert %s: %w", key, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("upsert %s: commit: %w", key, err)
	}
	return len(candles), nil
}

// Last returns the newest stored timestamp for key.
func (s *SQLite) Last(ctx context.Context, key Key) (time.Time, bool, error) {
	var ms sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT MAX(timestamp) FROM ohlcv_data WHERE exchange = ? AND symbol = ? AND timeframe = ?`,
		key.Exchange, key.Symbol, key.Timeframe).Scan(&ms)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("last %s: %w", key, err)
	}
	if !ms.Valid {
		return time.Time{}, false, nil
	}
	return time.UnixMilli(ms.Int64).UTC(), true, nil
}

// Load returns candles in [from, to].
func (s *SQLite) Load(ctx context.Context, key Key, from, to time.Time) ([]model.Candle, error) {
	lo, hi := bounds(from, to)
	rows, err := s.db.QueryContext(ctx, `SELECT timestamp, open, high, low, close, volume
		FROM ohlcv_data
		WHERE exchange = ? AND symbol = ? AND timeframe = ? AND timestamp BETWEEN ? AND ?
		ORDER BY timestamp`,
		key.Exchange, key.Symbol, key.Timeframe, lo, hi)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", key, err)
	}
	defer rows.Close()

	var out []model.Candle
	for rows.Next() {
		var (
			ms int64
			c  model.Candle
		)
		if err := rows.Scan(&ms, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, fmt.Errorf("load %s: scan: %w", key, err)
		}
		c.Time = time.UnixMilli(ms).UTC()
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load %s: %w", key, err)
	}
	return out, nil
}

// Series lists stored keys with their coverage.
func (s *SQLite) Series(ctx context.Context) ([]Series, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT exchange, symbol, timeframe, COUNT(*), MIN(timestamp), MAX(timestamp)
		FROM ohlcv_data
		GROUP BY exchange, symbol, timeframe
		ORDER BY exchange, symbol, timeframe`)
	if err != nil {
		return nil, fmt.Errorf("list series: %w", err)
	}
	defer rows.Close()

	var out []Series
	for rows.Next() {
		var (
			sr            Series
			first, latest int64
		)
		if err := rows.Scan(&sr.Exchange, &sr.Symbol, &sr.Timeframe, &sr.Count, &first, &latest); err != nil {
			return nil, fmt.Errorf("list series: scan: %w", err)
		}
		sr.First = time.UnixMilli(first).UTC()
		sr.Last = time.UnixMilli(latest).UTC()
		out = append(out, sr)
	}
	return out, rows.Err()
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}
