// Package provider fetches OHLCV history from exchanges and loads analysis
// series from the store or CSV files.
package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"sweepstat/internal/ratelimit"
	"sweepstat/internal/timeframe"
	"sweepstat/pkg/model"
)

// Provider pages through an exchange's candle history.
type Provider interface {
	// Name returns the exchange name
	Name() string

	// FetchOHLCV returns up to limit candles opening at or after since, in
	// ascending time order. A page shorter than limit means history is
	// exhausted.
	FetchOHLCV(ctx context.Context, symbol string, tf timeframe.Timeframe, since time.Time, limit int) ([]model.Candle, error)

	// MaxLimit is the largest page the exchange serves.
	MaxLimit() int
}

// Error is an exchange failure.
type Error struct {
	Exchange  string
	Err       error
	Retryable bool
}

func (e *Error) Error() string {
	return e.Exchange + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether err is a transient exchange failure.
func IsRetryable(err error) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.Retryable
}

// Names lists the supported exchanges.
var Names = []string{"binance", "bybit", "coinbase"}

// New creates the named exchange provider. An empty baseURL selects the
// public production endpoint; a nil limiter means no pacing.
func New(name, baseURL string, limiter *ratelimit.Limiter) (Provider, error) {
	if limiter == nil {
		limiter = ratelimit.NewLimiter(name, 0)
	}
	client := &http.Client{Timeout: 30 * time.Second}
	switch name {
	case "binance":
		return NewBinance(orDefault(baseURL, binanceBaseURL), client, limiter), nil
	case "bybit":
		return NewBybit(orDefault(baseURL, bybitBaseURL), client, limiter), nil
	case "coinbase":
		return NewCoinbase(orDefault(baseURL, coinbaseBaseURL), client, limiter), nil
	default:
		return nil, fmt.Errorf("unknown exchange %q (supported: %s)", name, strings.Join(Names, ", "))
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return strings.TrimRight(s, "/")
}

// splitSymbol splits "BASE/QUOTE" or "BASE/QUOTE:SETTLE".
func splitSymbol(symbol string) (base, quote, settle string, err error) {
	pair, settle, _ := strings.Cut(symbol, ":")
	base, quote, ok := strings.Cut(pair, "/")
	if !ok || base == "" || quote == "" {
		return "", "", "", fmt.Errorf("symbol %q is not BASE/QUOTE", symbol)
	}
	return strings.ToUpper(base), strings.ToUpper(quote), strings.ToUpper(settle), nil
}

func unsupported(exchange string, tf timeframe.Timeframe) error {
	return &Error{Exchange: exchange, Err: fmt.Errorf("timeframe %s not supported", tf)}
}
