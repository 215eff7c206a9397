// Package ingest keeps the candle store up to date with exchange history.
package ingest

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"sweepstat/internal/config"
	"sweepstat/internal/provider"
	"sweepstat/internal/ratelimit"
	"sweepstat/internal/store"
	"sweepstat/internal/timeframe"
)

// Source is one exchange and the symbols synced from it.
type Source struct {
	Provider  provider.Provider
	Symbols   []string
	PageLimit int
}

// Options configures a sync run.
type Options struct {
	Timeframe    timeframe.Timeframe
	LookbackDays int
	SymbolPause  time.Duration
	Progress     io.Writer // nil disables progress bars
}

// PairResult is the outcome for one exchange/symbol.
type PairResult struct {
	Key     store.Key `json:"key"`
	Written int       `json:"written"`
	Err     string    `json:"error,omitempty"`
}

// Result summarises a sync run.
type Result struct {
	Pairs   []PairResult  `json:"pairs"`
	Written int           `json:"written"`
	Failed  int           `json:"failed"`
	Elapsed time.Duration `json:"elapsed"`
}

// Syncer fetches everything newer than the last stored candle for each pair.
type Syncer struct {
	store   store.Store
	sources []Source
	opts    Options
	log     *zap.Logger
	now     func() time.Time

	// OnWrite is called after a pair received new candles.
	OnWrite func(store.Key)
}

// NewSyncer creates a syncer.
func NewSyncer(st store.Store, sources []Source, opts Options, log *zap.Logger) *Syncer {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.LookbackDays <= 0 {
		opts.LookbackDays = 365
	}
	return &Syncer{store: st, sources: sources, opts: opts, log: log, now: time.Now}
}

// Sources builds exchange sources from config, one limiter per exchange.
// Disabled exchanges are skipped.
func Sources(exchanges []config.ExchangeConfig, limiters *ratelimit.MultiLimiter) ([]Source, error) {
	var out []Source
	for _, ex := range exchanges {
		if !ex.Enabled {
			continue
		}
		limiter := limiters.Add(ex.Name, ex.RateLimit)
		p, err := provider.New(ex.Name, ex.BaseURL, limiter)
		if err != nil {
			return nil, err
		}
		out = append(out, Source{Provider: p, Symbols: ex.Symbols, PageLimit: ex.PageLimit})
	}
	return out, nil
}

// Run syncs every pair. A failing pair is logged and skipped; only context
// cancellation aborts the run.
func (s *Syncer) Run(ctx context.Context) (Result, error) {
	start := s.now()
	var res Result

	first := true
	for _, src := range s.sources {
		for _, symbol := range src.Symbols {
			if !first && s.opts.SymbolPause > 0 {
				if err := sleep(ctx, s.opts.SymbolPause); err != nil {
					return res, err
				}
			}
			first = false

			key := store.Key{Exchange: src.Provider.Name(), Symbol: symbol, Timeframe: s.opts.Timeframe.String()}
			n, err := s.SyncPair(ctx, src, symbol)
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			pr := PairResult{Key: key, Written: n}
			if err != nil {
				pr.Err = err.Error()
				res.Failed++
				s.log.Warn("sync failed", zap.Stringer("key", key), zap.Error(err))
			}
			res.Written += n
			res.Pairs = append(res.Pairs, pr)
			if n > 0 && s.OnWrite != nil {
				s.OnWrite(key)
			}
		}
	}

	res.Elapsed = s.now().Sub(start)
	s.log.Info("sync finished",
		zap.Int("pairs", len(res.Pairs)),
		zap.Int("failed", res.Failed),
		zap.Int("written", res.Written),
		zap.Duration("elapsed", res.Elapsed))
	return res, nil
}

// SyncPair pages from the last stored timestamp (or the lookback start on
// first sync) until a short page, upserting each page. It returns how many
// candles were written, including those written before a failure.
func (s *Syncer) SyncPair(ctx context.Context, src Source, symbol string) (int, error) {
	key := store.Key{Exchange: src.Provider.Name(), Symbol: symbol, Timeframe: s.opts.Timeframe.String()}

	since, ok, err := s.store.Last(ctx, key)
	if err != nil {
		return 0, err
	}
	if !ok {
		since = s.now().AddDate(0, 0, -s.opts.LookbackDays).Truncate(s.opts.Timeframe.Duration())
	}
	s.log.Info("syncing", zap.Stringer("key", key), zap.Time("since", since), zap.Bool("resume", ok))

	limit := src.PageLimit
	if limit <= 0 || limit > src.Provider.MaxLimit() {
		limit = src.Provider.MaxLimit()
	}

	bar := s.progress(key, since)
	defer bar.Finish()

	written := 0
	for {
		page, err := src.Provider.FetchOHLCV(ctx, symbol, s.opts.Timeframe, since, limit)
		if err != nil {
			return written, fmt.Errorf("fetching %s since %s: %w", key, since.Format(time.RFC3339), err)
		}
		if len(page) == 0 {
			break
		}
		n, err := s.store.Upsert(ctx, key, page)
		if err != nil {
			return written, err
		}
		written += n
		bar.Add(n)

		if len(page) < limit {
			break
		}
		next := page[len(page)-1].Time.Add(time.Millisecond)
		if !next.After(since) {
			return written, fmt.Errorf("fetching %s: page did not advance past %s", key, since.Format(time.RFC3339))
		}
		since = next
		s.log.Debug("page stored", zap.Stringer("key", key), zap.Int("total", written), zap.Time("up_to", page[len(page)-1].Time))
	}
	return written, nil
}

func (s *Syncer) progress(key store.Key, since time.Time) *progressbar.ProgressBar {
	expected := int64(s.now().Sub(since) / s.opts.Timeframe.Duration())
	if s.opts.Progress == nil {
		return progressbar.NewOptions64(max(expected, 1), progressbar.OptionSetWriter(io.Discard))
	}
	return progressbar.NewOptions64(max(expected, 1),
		progressbar.OptionSetWriter(s.opts.Progress),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription(key.String()),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]█[reset]",
			SaucerHead:    "[green]█[reset]",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
