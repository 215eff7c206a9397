// Package ratelimit paces REST calls to exchanges.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	initialBackoff = 500 * time.Millisecond
	maxBackoff     = time.Minute
)

// Limiter paces requests to one exchange and backs off after a 429.
type Limiter struct {
	limiter *rate.Limiter
	name    string

	mu      sync.Mutex
	backoff time.Duration
	limited bool
}

// NewLimiter allows perSecond requests per second with no burst, so pages
// are evenly spaced. perSecond < 1 means unlimited.
func NewLimiter(name string, perSecond int) *Limiter {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	return &Limiter{
		limiter: rate.NewLimiter(limit, 1),
		name:    name,
		backoff: initialBackoff,
	}
}

// Wait blocks until the next request may be sent. After SignalRateLimited it
// first sleeps for the current backoff.
func (l *Limiter) Wait(ctx context.Context) error {
	l.mu.Lock()
	pause := time.Duration(0)
	if l.limited {
		pause = l.backoff
	}
	l.mu.Unlock()

	if pause > 0 {
		t := time.NewTimer(pause)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
	return l.limiter.Wait(ctx)
}

// Allow reports whether a request may be sent now.
func (l *Limiter) Allow() bool {
	return l.limiter.Allow()
}

// SignalRateLimited records a 429 and doubles the backoff.
func (l *Limiter) SignalRateLimited() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.limited {
		l.backoff = min(l.backoff*2, maxBackoff)
	}
	l.limited = true
}

// ResetBackoff clears the backoff after a successful request.
func (l *Limiter) ResetBackoff() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.backoff = initialBackoff
	l.limited = false
}

// Backoff returns the pause applied before the next request, zero when the
// exchange has not rate limited us.
func (l *Limiter) Backoff() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.limited {
		return 0
	}
	return l.backoff
}

// Name returns the limiter name
func (l *Limiter) Name() string {
	return l.name
}

// MultiLimiter holds one limiter per exchange.
type MultiLimiter struct {
	limiters map[string]*Limiter
	mu       sync.RWMutex
}

// NewMultiLimiter creates an empty set.
func NewMultiLimiter() *MultiLimiter {
	return &MultiLimiter{limiters: make(map[string]*Limiter)}
}

// Add registers a limiter for name and returns it.
func (m *MultiLimiter) Add(name string, perSecond int) *Limiter {
	m.mu.Lock()
	defer m.mu.Unlock()
	l := NewLimiter(name, perSecond)
	m.limiters[name] = l
	return l
}

// Get returns a limiter by name
func (m *MultiLimiter) Get(name string) *Limiter {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.limiters[name]
}

// Wait waits on the named limiter; unknown names proceed immediately.
func (m *MultiLimiter) Wait(ctx context.Context, name string) error {
	limiter := m.Get(name)
	if limiter == nil {
		return nil
	}
	return limiter.Wait(ctx)
}
