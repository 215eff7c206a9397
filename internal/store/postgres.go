package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"sweepstat/pkg/model"
)

// Postgres stores candles in PostgreSQL.
type Postgres struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

// OpenPostgres connects, pings and runs migrations.
func OpenPostgres(ctx context.Context, dsn string, log *zap.Logger) (*Postgres, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}
	poolConfig.MaxConns = 10
	poolConfig.MinConns = 1
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	p := &Postgres{pool: pool, log: log}
	if err := p.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	log.Info("postgres store opened", zap.String("database", poolConfig.ConnConfig.Database))
	return p, nil
}

func (p *Postgres) migrate(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS ohlcv_data (
			exchange  VARCHAR(32)      NOT NULL,
			symbol    VARCHAR(32)      NOT NULL,
			timeframe VARCHAR(8)       NOT NULL,
			timestamp TIMESTAMPTZ      NOT NULL,
			open      DOUBLE PRECISION NOT NULL,
			high      DOUBLE PRECISION NOT NULL,
			low       DOUBLE PRECISION NOT NULL,
			close     DOUBLE PRECISION NOT NULL,
			volume    DOUBLE PRECISION NOT NULL,
			PRIMARY KEY (exchange, symbol, timeframe, timestamp)
		)`,
	}
	for _, m := range migrations {
		if _, err := p.pool.Exec(ctx, m); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

const upsertSQL = `INSERT INTO ohlcv_data
	(exchange, symbol, timeframe, timestamp, open, high, low, close, volume)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (exchange, symbol, timeframe, timestamp) DO UPDATE SET
		open = EXCLUDED.open,
		high = EXCLUDED.high,
		low = EXCLUDED.low,
		close = EXCLUDED.close,
		volume = EXCLUDED.volume`

// Upsert sends all candles in one batch inside a transaction.
func (p *Postgres) Upsert(ctx context.Context, key Key, candles []model.Candle) (int, error) {
	if len(candles) == 0 {
		return 0, nil
	}
	batch := &pgx.Batch{}
	for _, c := range candles {
		batch.Queue(upsertSQL, key.Exchange, key.Symbol, key.Timeframe,
			c.Time.UTC(), c.Open, c.High, c.Low, c.Close, c.Volume)
	}

	err := pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return 0, fmt.Errorf("upsert %s: %w", key, err)
	}
	return len(candles), nil
}

// Last returns the newest stored timestamp for key.
func (p *Postgres) Last(ctx context.Context, key Key) (time.Time, bool, error) {
	var ts *time.Time
	err := p.pool.QueryRow(ctx,
		`SELECT MAX(timestamp) FROM ohlcv_data WHERE exchange = $1 AND symbol = $2 AND timeframe = $3`,
		key.Exchange, key.Symbol, key.Timeframe).Scan(&ts)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("last %s: %w", key, err)
	}
	if ts == nil {
		return time.Time{}, false, nil
	}
	return ts.UTC(), true, nil
}

// Load returns candles in [from, to].
func (p *Postgres) Load(ctx context.Context, key Key, from, to time.Time) ([]model.Candle, error) {
	lo, hi := bounds(from, to)
	rows, err := p.pool.Query(ctx, `SELECT timestamp, open, high, low, close, volume
		FROM ohlcv_data
		WHERE exchange = $1 AND symbol = $2 AND timeframe = $3
		  AND timestamp BETWEEN $4 AND $5
		ORDER BY timestamp`,
		key.Exchange, key.Symbol, key.Timeframe, time.UnixMilli(lo).UTC(), time.UnixMilli(hi).UTC())
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", key, err)
	}
	candles, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Candle, error) {
		var c model.Candle
		err := row.Scan(&c.Time, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume)
		c.Time = c.Time.UTC()
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", key, err)
	}
	return candles, nil
}

// Series lists stored keys with their coverage.
func (p *Postgres) Series(ctx context.Context) ([]Series, error) {
	rows, err := p.pool.Query(ctx, `SELECT exchange, symbol, timeframe, COUNT(*), MIN(timestamp), MAX(timestamp)
		FROM ohlcv_data
		GROUP BY exchange, symbol, timeframe
		ORDER BY exchange, symbol, timeframe`)
	if err != nil {
		return nil, fmt.Errorf("list series: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Series, error) {
		var s Series
		err := row.Scan(&s.Exchange, &s.Symbol, &s.Timeframe, &s.Count, &s.First, &s.Last)
		s.First, s.Last = s.First.UTC(), s.Last.UTC()
		return s, err
	})
	if err != nil {
		return nil, fmt.Errorf("list series: %w", err)
	}
	return out, nil
}

// Close closes the pool.
func (p *Postgres) Close() error {
	p.pool.Close()
	p.log.Info("postgres store closed")
	return nil
}
