// Package store persists candles keyed by exchange, symbol, timeframe and
// timestamp.
package store

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"sweepstat/pkg/model"
)

// Key identifies one candle series.
type Key struct {
	Exchange  string `json:"exchange"`
	Symbol    string `json:"symbol"`
	Timeframe string `json:"timeframe"`
}

func (k Key) String() string {
	return k.Exchange + ":" + k.Symbol + "@" + k.Timeframe
}

// Series describes what is stored for a key.
type Series struct {
	Key
	Count int       `json:"count"`
	First time.Time `json:"first"`
	Last  time.Time `json:"last"`
}

// Store is a candle repository. Upsert overwrites candles with an existing
// (key, timestamp). Load with a zero from or to leaves that side unbounded and
// returns candles in ascending time order.
type Store interface {
	Upsert(ctx context.Context, key Key, candles []model.Candle) (int, error)
	Last(ctx context.Context, key Key) (time.Time, bool, error)
	Load(ctx context.Context, key Key, from, to time.Time) ([]model.Candle, error)
	Series(ctx context.Context) ([]Series, error)
	Close() error
}

// Open connects to a store. driver is "sqlite" (dsn is a file path) or
// "postgres" (dsn is a connection string).
func Open(ctx context.Context, driver, dsn string, log *zap.Logger) (Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	switch driver {
	case "sqlite":
		return OpenSQLite(ctx, dsn, log)
	case "postgres":
		return OpenPostgres(ctx, dsn, log)
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
}

var farFuture = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)

func bounds(from, to time.Time) (int64, int64) {
	lo, hi := int64(0), farFuture.UnixMilli()
	if !from.IsZero() {
		lo = from.UnixMilli()
	}
	if !to.IsZero() {
		hi = to.UnixMilli()
	}
	return lo, hi
}
