package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"sweepstat/pkg/model"
)

func openTemp(t *testing.T) *SQLite {
	t.Helper()
	s, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "candles.db"), zap.NewNop())
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func candlesFrom(start time.Time, n int) []model.Candle {
	out := make([]model.Candle, n)
	for i := range out {
		p := 100 + float64(i)
		out[i] = model.Candle{
			Time: start.Add(time.Duration(i) * 15 * time.Minute),
			Open: p, High: p + 1, Low: p - 1, Close: p + 0.5, Volume: 10,
		}
	}
	return out
}

func TestSQLite_UpsertAndLoad(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)
	key := Key{Exchange: "binance", Symbol: "BTC/USDT", Timeframe: "15m"}
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	if _, ok, err := s.Last(ctx, key); err != nil || ok {
		t.Fatalf("Last on empty store = ok %v err %v", ok, err)
	}

	n, err := s.Upsert(ctx, key, candlesFrom(start, 8))
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if n != 8 {
		t.Errorf("written = %d, want 8", n)
	}

	last, ok, err := s.Last(ctx, key)
	if err != nil || !ok {
		t.Fatalf("Last: ok %v err %v", ok, err)
	}
	if want := start.Add(7 * 15 * time.Minute); !last.Equal(want) {
		t.Errorf("Last = %s, want %s", last, want)
	}

	got, err := s.Load(ctx, key, time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 8 {
		t.Fatalf("loaded %d candles, want 8", len(got))
	}
	if !got[0].Time.Equal(start) || got[0].Close != 100.5 {
		t.Errorf("first candle = %+v", got[0])
	}
}

func TestSQLite_UpsertOverwrites(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)
	key := Key{Exchange: "bybit", Symbol: "BTC/USDT:USDT", Timeframe: "15m"}
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	if _, err := s.Upsert(ctx, key, candlesFrom(start, 3)); err != nil {
		t.Fatal(err)
	}
	revised := candlesFrom(start, 3)
	revised[2].Close = 99
	if _, err := s.Upsert(ctx, key, revised[2:]); err != nil {
		t.Fatal(err)
	}

	got, err := s.Load(ctx, key, time.Time{}, time.Time{})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("loaded %d candles, want 3", len(got))
	}
	if got[2].Close != 99 {
		t.Errorf("close = %g, want 99", got[2].Close)
	}
}

func TestSQLite_LoadRangeAndKeys(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	btc := Key{Exchange: "binance", Symbol: "BTC/USDT", Timeframe: "15m"}
	eth := Key{Exchange: "binance", Symbol: "ETH/USDT", Timeframe: "15m"}

	if _, err := s.Upsert(ctx, btc, candlesFrom(start, 10)); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Upsert(ctx, eth, candlesFrom(start, 4)); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		from, to time.Time
		want     int
	}{
		{"unbounded", time.Time{}, time.Time{}, 10},
		{"from only", start.Add(time.Hour), time.Time{}, 6},
		{"to only", time.Time{}, start.Add(30 * time.Minute), 3},
		{"inclusive window", start.Add(15 * time.Minute), start.Add(45 * time.Minute), 3},
		{"empty window", start.AddDate(1, 0, 0), time.Time{}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Load(ctx, btc, tt.from, tt.to)
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != tt.want {
				t.Errorf("loaded %d, want %d", len(got), tt.want)
			}
		})
	}

	series, err := s.Series(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(series) != 2 {
		t.Fatalf("series = %+v", series)
	}
	if series[0].Key != btc || series[0].Count != 10 {
		t.Errorf("series[0] = %+v", series[0])
	}
	if series[1].Key != eth || !series[1].Last.Equal(start.Add(45*time.Minute)) {
		t.Errorf("series[1] = %+v", series[1])
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	if _, err := Open(context.Background(), "mysql", "x", nil); err == nil {
		t.Error("expected error for unknown driver")
	}
}

func TestKeyString(t *testing.T) {
	k := Key{Exchange: "coinbase", Symbol: "BTC/USD", Timeframe: "15m"}
	if got := k.String(); got != "coinbase:BTC/USD@15m" {
		t.Errorf("String() = %q", got)
	}
}
