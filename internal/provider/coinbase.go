package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"sweepstat/internal/ratelimit"
	"sweepstat/internal/timeframe"
	"sweepstat/pkg/model"
)

const coinbaseBaseURL = "https://api.exchange.coinbase.com"

// Coinbase only serves these granularities.
var coinbaseGranularity = map[timeframe.Timeframe]int{
	timeframe.M15: 900,
	timeframe.H1:  3600,
	timeframe.D1:  86400,
}

// Coinbase serves Exchange product candles.
type Coinbase struct {
	rest restClient
}

// NewCoinbase creates a Coinbase provider
func NewCoinbase(baseURL string, client *http.Client, limiter *ratelimit.Limiter) *Coinbase {
	return &Coinbase{rest: restClient{exchange: "coinbase", baseURL: baseURL, client: client, limiter: limiter}}
}

// Name returns the provider name
func (p *Coinbase) Name() string { return "coinbase" }

// MaxLimit returns the candle page cap
func (p *Coinbase) MaxLimit() int { return 300 }

// CoinbaseProduct maps "BTC/USD" to "BTC-USD".
func CoinbaseProduct(symbol string) (string, error) {
	base, quote, _, err := splitSymbol(symbol)
	if err != nil {
		return "", err
	}
	return base + "-" + quote, nil
}

// FetchOHLCV fetches one window of candles. Rows are
// [time, low, high, open, close, volume] with time in seconds, newest first.
func (p *Coinbase) FetchOHLCV(ctx context.Context, symbol string, tf timeframe.Timeframe, since time.Time, limit int) ([]model.Candle, error) {
	gran, ok := coinbaseGranularity[tf]
	if !ok {
		return nil, unsupported(p.Name(), tf)
	}
	product, err := CoinbaseProduct(symbol)
	if err != nil {
		return nil, &Error{Exchange: p.Name(), Err: err}
	}
	limit = min(limit, p.MaxLimit())
	end := since.Add(time.Duration(limit-1) * time.Duration(gran) * time.Second)

	q := url.Values{}
	q.Set("granularity", strconv.Itoa(gran))
	q.Set("start", since.UTC().Format(time.RFC3339))
	q.Set("end", end.UTC().Format(time.RFC3339))

	var raw [][]any
	if err := p.rest.getJSON(ctx, "/products/"+product+"/candles", q, &raw); err != nil {
		return nil, err
	}

	candles := make([]model.Candle, 0, len(raw))
	for i, k := range raw {
		c, err := parseKline(k, klineLayout{time: 0, low: 1, high: 2, open: 3, close: 4, volume: 5, seconds: true})
		if err != nil {
			return nil, &Error{Exchange: p.Name(), Err: fmt.Errorf("candle %d: %w", i, err)}
		}
		if c.Time.Before(since) {
			continue
		}
		candles = append(candles, c)
	}
	sort.Slice(candles, func(i, j int) bool { return candles[i].Time.Before(candles[j].Time) })
	if len(candles) > limit {
		candles = candles[:limit]
	}
	return candles, nil
}
