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

const bybitBaseURL = "https://api.bybit.com"

// bybitRateLimited is retCode for "too many visits".
const bybitRateLimited = 10006

var bybitIntervals = map[timeframe.Timeframe]string{
	timeframe.M15: "15",
	timeframe.M30: "30",
	timeframe.H1:  "60",
	timeframe.H4:  "240",
	timeframe.D1:  "D",
	timeframe.W1:  "W",
	timeframe.MN1: "M",
}

// Bybit serves v5 market klines. Symbols with a settle currency
// ("BTC/USDT:USDT") are linear perpetuals, others spot.
type Bybit struct {
	rest restClient
}

// NewBybit creates a Bybit provider
func NewBybit(baseURL string, client *http.Client, limiter *ratelimit.Limiter) *Bybit {
	return &Bybit{rest: restClient{exchange: "bybit", baseURL: baseURL, client: client, limiter: limiter}}
}

// Name returns the provider name
func (p *Bybit) Name() string { return "bybit" }

// MaxLimit returns the kline page cap
func (p *Bybit) MaxLimit() int { return 1000 }

// BybitSymbol maps a unified symbol to the Bybit symbol and category.
func BybitSymbol(symbol string) (sym, category string, err error) {
	base, quote, settle, err := splitSymbol(symbol)
	if err != nil {
		return "", "", err
	}
	switch {
	case settle == "":
		category = "spot"
	case settle == quote:
		category = "linear"
	default:
		category = "inverse"
	}
	return base + quote, category, nil
}

type bybitResponse struct {
	RetCode int    `json:"retCode"`
	RetMsg  string `json:"retMsg"`
	Result  struct {
		List [][]any `json:"list"`
	} `json:"result"`
}

// FetchOHLCV fetches one page of klines. Bybit returns the newest candles of
// the window first, so the window end is pinned to since plus one page.
func (p *Bybit) FetchOHLCV(ctx context.Context, symbol string, tf timeframe.Timeframe, since time.Time, limit int) ([]model.Candle, error) {
	interval, ok := bybitIntervals[tf]
	if !ok {
		return nil, unsupported(p.Name(), tf)
	}
	sym, category, err := BybitSymbol(symbol)
	if err != nil {
		return nil, &Error{Exchange: p.Name(), Err: err}
	}
	limit = min(limit, p.MaxLimit())
	end := since.Add(time.Duration(limit)*tf.Duration() - time.Millisecond)

	q := url.Values{}
	q.Set("category", category)
	q.Set("symbol", sym)
	q.Set("interval", interval)
	q.Set("start", strconv.FormatInt(since.UnixMilli(), 10))
	q.Set("end", strconv.FormatInt(end.UnixMilli(), 10))
	q.Set("limit", strconv.Itoa(limit))

	var resp bybitResponse
	if err := p.rest.getJSON(ctx, "/v5/market/kline", q, &resp); err != nil {
		return nil, err
	}
	if resp.RetCode != 0 {
		if resp.RetCode == bybitRateLimited {
			p.rest.limiter.SignalRateLimited()
		}
		return nil, &Error{
			Exchange:  p.Name(),
			Err:       fmt.Errorf("retCode %d: %s", resp.RetCode, resp.RetMsg),
			Retryable: resp.RetCode == bybitRateLimited,
		}
	}

	candles := make([]model.Candle, 0, len(resp.Result.List))
	for i, k := range resp.Result.List {
		c, err := parseKline(k, klineLayout{time: 0, open: 1, high: 2, low: 3, close: 4, volume: 5})
		if err != nil {
			return nil, &Error{Exchange: p.Name(), Err: fmt.Errorf("kline %d: %w", i, err)}
		}
		if c.Time.Before(since) {
			continue
		}
		candles = append(candles, c)
	}
	sort.Slice(candles, func(i, j int) bool { return candles[i].Time.Before(candles[j].Time) })
	return candles, nil
}
