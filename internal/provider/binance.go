package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"sweepstat/internal/ratelimit"
	"sweepstat/internal/timeframe"
	"sweepstat/pkg/model"
)

const binanceBaseURL = "https://api.binance.com"

var binanceIntervals = map[timeframe.Timeframe]string{
	timeframe.M15: "15m",
	timeframe.M30: "30m",
	timeframe.H1:  "1h",
	timeframe.H4:  "4h",
	timeframe.D1:  "1d",
	timeframe.W1:  "1w",
	timeframe.MN1: "1M",
}

// Binance serves spot klines.
type Binance struct {
	rest restClient
}

// NewBinance creates a Binance spot provider
func NewBinance(baseURL string, client *http.Client, limiter *ratelimit.Limiter) *Binance {
	return &Binance{rest: restClient{exchange: "binance", baseURL: baseURL, client: client, limiter: limiter}}
}

// Name returns the provider name
func (p *Binance) Name() string { return "binance" }

// MaxLimit returns the kline page cap
func (p *Binance) MaxLimit() int { return 1000 }

// BinanceSymbol maps "BTC/USDT" to "BTCUSDT".
func BinanceSymbol(symbol string) (string, error) {
	base, quote, _, err := splitSymbol(symbol)
	if err != nil {
		return "", err
	}
	return base + quote, nil
}

// FetchOHLCV fetches one page of klines.
func (p *Binance) FetchOHLCV(ctx context.Context, symbol string, tf timeframe.Timeframe, since time.Time, limit int) ([]model.Candle, error) {
	interval, ok := binanceIntervals[tf]
	if !ok {
		return nil, unsupported(p.Name(), tf)
	}
	sym, err := BinanceSymbol(symbol)
	if err != nil {
		return nil, &Error{Exchange: p.Name(), Err: err}
	}

	q := url.Values{}
	q.Set("symbol", sym)
	q.Set("interval", interval)
	q.Set("startTime", strconv.FormatInt(since.UnixMilli(), 10))
	q.Set("limit", strconv.Itoa(min(limit, p.MaxLimit())))

	var raw [][]any
	if err := p.rest.getJSON(ctx, "/api/v3/klines", q, &raw); err != nil {
		return nil, err
	}

	candles := make([]model.Candle, 0, len(raw))
	for i, k := range raw {
		c, err := parseKline(k, klineLayout{time: 0, open: 1, high: 2, low: 3, close: 4, volume: 5})
		if err != nil {
			return nil, &Error{Exchange: p.Name(), Err: fmt.Errorf("kline %d: %w", i, err)}
		}
		candles = append(candles, c)
	}
	return candles, nil
}

// klineLayout gives the array positions of each field.
type klineLayout struct {
	time, open, high, low, close, volume int
	seconds                              bool // time is unix seconds, not ms
}

func parseKline(k []any, l klineLayout) (model.Candle, error) {
	need := max(l.time, l.open, l.high, l.low, l.close, l.volume) + 1
	if len(k) < need {
		return model.Candle{}, fmt.Errorf("expected %d fields, got %d", need, len(k))
	}
	ts, err := number(k[l.time])
	if err != nil {
		return model.Candle{}, err
	}
	var c model.Candle
	if l.seconds {
		c.Time = time.Unix(int64(ts), 0).UTC()
	} else {
		c.Time = time.UnixMilli(int64(ts)).UTC()
	}
	for _, f := range []struct {
		dst *float64
		idx int
	}{
		{&c.Open, l.open}, {&c.High, l.high}, {&c.Low, l.low}, {&c.Close, l.close}, {&c.Volume, l.volume},
	} {
		if *f.dst, err = number(k[f.idx]); err != nil {
			return model.Candle{}, err
		}
	}
	return c, nil
}
