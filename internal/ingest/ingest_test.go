package ingest

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"sweepstat/internal/config"
	"sweepstat/internal/ratelimit"
	"sweepstat/internal/store"
	"sweepstat/internal/timeframe"
	"sweepstat/pkg/model"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// fakeExchange serves a fixed 15m history.
type fakeExchange struct {
	name    string
	candles []model.Candle
	fail    map[string]bool
	calls   []time.Time
}

func newFakeExchange(name string, n int) *fakeExchange {
	f := &fakeExchange{name: name, fail: map[string]bool{}}
	for i := 0; i < n; i++ {
		p := 100 + float64(i%50)
		f.candles = append(f.candles, model.Candle{
			Time: t0.Add(time.Duration(i) * 15 * time.Minute),
			Open: p, High: p + 2, Low: p - 2, Close: p + 1, Volume: 1,
		})
	}
	return f
}

func (f *fakeExchange) Name() string  { return f.name }
func (f *fakeExchange) MaxLimit() int { return 1000 }

func (f *fakeExchange) FetchOHLCV(ctx context.Context, symbol string, tf timeframe.Timeframe, since time.Time, limit int) ([]model.Candle, error) {
	if f.fail[symbol] {
		return nil, errors.New("exchange down")
	}
	f.calls = append(f.calls, since)
	var out []model.Candle
	for _, c := range f.candles {
		if c.Time.Before(since) {
			continue
		}
		out = append(out, c)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func openStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "sync.db"), zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func newTestSyncer(st store.Store, sources []Source) *Syncer {
	s := NewSyncer(st, sources, Options{Timeframe: timeframe.M15, LookbackDays: 365}, nil)
	s.now = func() time.Time { return t0.AddDate(0, 1, 0) }
	return s
}

func TestSyncer_FullThenIncremental(t *testing.T) {
	ctx := context.Background()
	st := openStore(t)
	ex := newFakeExchange("binance", 2500)
	s := newTestSyncer(st, []Source{{Provider: ex, Symbols: []string{"BTC/USDT"}, PageLimit: 1000}})

	var written []store.Key
	s.OnWrite = func(k store.Key) { written = append(written, k) }

	res, err := s.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Written != 2500 || res.Failed != 0 {
		t.Errorf("result = %+v", res)
	}
	if len(ex.calls) != 3 {
		t.Errorf("pages = %d, want 3", len(ex.calls))
	}
	if want := t0.AddDate(-1, 1, 0); !ex.calls[0].Equal(want) {
		t.Errorf("first since = %s, want lookback start %s", ex.calls[0], want)
	}
	if len(written) != 1 || written[0].Symbol != "BTC/USDT" {
		t.Errorf("OnWrite keys = %v", written)
	}

	ex.calls = nil
	res, err = s.Run(ctx)
	if err != nil {
		t.Fatal(err)
	}
	last := ex.candles[len(ex.candles)-1].Time
	if len(ex.calls) != 1 || !ex.calls[0].Equal(last) {
		t.Errorf("resume calls = %v, want one from %s", ex.calls, last)
	}
	if res.Written != 1 {
		t.Errorf("incremental written = %d, want 1", res.Written)
	}

	key := store.Key{Exchange: "binance", Symbol: "BTC/USDT", Timeframe: "15m"}
	got, err := st.Load(ctx, key, time.Time{}, time.Time{})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2500 {
		t.Errorf("stored %d candles, want 2500", len(got))
	}
}

func TestSyncer_FailingPairSkipped(t *testing.T) {
	st := openStore(t)
	ex := newFakeExchange("bybit", 10)
	ex.fail["ETH/USDT:USDT"] = true
	s := newTestSyncer(st, []Source{{Provider: ex, Symbols: []string{"ETH/USDT:USDT", "BTC/USDT:USDT"}}})

	res, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Failed != 1 || res.Written != 10 || len(res.Pairs) != 2 {
		t.Errorf("result = %+v", res)
	}
	if res.Pairs[0].Err == "" || res.Pairs[1].Err != "" {
		t.Errorf("pairs = %+v", res.Pairs)
	}
}

func TestSyncer_Cancelled(t *testing.T) {
	st := openStore(t)
	ex := newFakeExchange("binance", 10)
	s := newTestSyncer(st, []Source{{Provider: ex, Symbols: []string{"BTC/USDT", "ETH/USDT"}}})
	s.opts.SymbolPause = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	s.OnWrite = func(store.Key) { cancel() }

	if _, err := s.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestSources(t *testing.T) {
	ml := ratelimit.NewMultiLimiter()
	sources, err := Sources([]config.ExchangeConfig{
		{Name: "binance", Enabled: true, Symbols: []string{"BTC/USDT"}, RateLimit: 2},
		{Name: "coinbase", Enabled: false},
	}, ml)
	if err != nil {
		t.Fatal(err)
	}
	if len(sources) != 1 || sources[0].Provider.Name() != "binance" {
		t.Errorf("sources = %+v", sources)
	}
	if ml.Get("binance") == nil {
		t.Error("limiter not registered")
	}

	if _, err := Sources([]config.ExchangeConfig{{Name: "kraken", Enabled: true}}, ml); err == nil {
		t.Error("expected error for unknown exchange")
	}
}

func TestScheduler(t *testing.T) {
	st := openStore(t)
	ex := newFakeExchange("binance", 5)
	s := newTestSyncer(st, []Source{{Provider: ex, Symbols: []string{"BTC/USDT"}}})

	sch := NewScheduler(context.Background(), s, nil)
	if err := sch.Register("not a cron spec"); err == nil {
		t.Error("expected error for bad spec")
	}
	if err := sch.Register("0 */15 * * * *"); err != nil {
		t.Fatal(err)
	}

	sch.RunNow()
	if sch.Runs() != 1 {
		t.Errorf("runs = %d", sch.Runs())
	}
	sch.Start()
	sch.Stop()
}
