package provider

import (
	"context"
	"slices"
	"sync"
	"time"

	"sweepstat/internal/store"
	"sweepstat/pkg/model"
)

// DefaultCacheTTL is how long a loaded series is reused.
const DefaultCacheTTL = 5 * time.Minute

// Source returns the stored candles for a key within [from, to].
type Source interface {
	Load(ctx context.Context, key store.Key, from, to time.Time) ([]model.Candle, error)
}

// Loader wraps a Source with an in-memory cache keyed by series and range,
// so repeated analyses over the same window read the database once.
type Loader struct {
	src Source
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[cacheKey]cacheEntry
}

type cacheKey struct {
	key      store.Key
	from, to int64
}

type cacheEntry struct {
	candles []model.Candle
	expires time.Time
}

// NewLoader creates a caching loader. ttl <= 0 disables caching.
func NewLoader(src Source, ttl time.Duration) *Loader {
	return &Loader{
		src:     src,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[cacheKey]cacheEntry),
	}
}

// Load returns a copy of the series, from cache when fresh.
func (l *Loader) Load(ctx context.Context, key store.Key, from, to time.Time) ([]model.Candle, error) {
	ck := cacheKey{key: key, from: unixOrZero(from), to: unixOrZero(to)}

	l.mu.Lock()
	if e, ok := l.entries[ck]; ok && l.now().Before(e.expires) {
		l.mu.Unlock()
		return slices.Clone(e.candles), nil
	}
	l.mu.Unlock()

	candles, err := l.src.Load(ctx, key, from, to)
	if err != nil {
		return nil, err
	}
	if l.ttl <= 0 {
		return candles, nil
	}

	l.mu.Lock()
	l.entries[ck] = cacheEntry{candles: candles, expires: l.now().Add(l.ttl)}
	l.evict()
	l.mu.Unlock()

	return slices.Clone(candles), nil
}

// Invalidate drops every cached range of key, e.g. after a sync wrote to it.
func (l *Loader) Invalidate(key store.Key) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for ck := range l.entries {
		if ck.key == key {
			delete(l.entries, ck)
		}
	}
}

// evict removes expired entries. Caller holds mu.
func (l *Loader) evict() {
	now := l.now()
	for ck, e := range l.entries {
		if !now.Before(e.expires) {
			delete(l.entries, ck)
		}
	}
}

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}
