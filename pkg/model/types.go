package model

import (
	"fmt"
	"sort"
	"time"
)

// Candle represents a single candlestick (OHLCV data)
type Candle struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Valid reports whether the candle satisfies low <= open,close <= high.
func (c Candle) Valid() bool {
	return c.Low <= c.High &&
		c.Low <= c.Open && c.Open <= c.High &&
		c.Low <= c.Close && c.Close <= c.High
}

// Bullish reports close > open.
func (c Candle) Bullish() bool { return c.Close > c.Open }

// Bearish reports close < open.
func (c Candle) Bearish() bool { return c.Close < c.Open }

// Range returns high - low.
func (c Candle) Range() float64 { return c.High - c.Low }

// Touches reports whether price traded at level during the candle.
func (c Candle) Touches(level float64) bool {
	return c.Low <= level && level <= c.High
}

// Normalize sorts candles by time, drops duplicate timestamps (first wins)
// and drops candles that violate the OHLC ordering. The input is not modified.
// It returns the cleaned series and the number of candles dropped.
func Normalize(candles []Candle) ([]Candle, int) {
	out := make([]Candle, len(candles))
	copy(out, candles)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Time.Before(out[j].Time)
	})

	clean := out[:0]
	dropped := 0
	for _, c := range out {
		if !c.Valid() {
			dropped++
			continue
		}
		if len(clean) > 0 && clean[len(clean)-1].Time.Equal(c.Time) {
			dropped++
			continue
		}
		clean = append(clean, c)
	}
	return clean, dropped
}

// CheckSeries returns an error if timestamps are not strictly increasing.
func CheckSeries(candles []Candle) error {
	for i := 1; i < len(candles); i++ {
		if !candles[i].Time.After(candles[i-1].Time) {
			return fmt.Errorf("candle %d (%s) is not after candle %d (%s)",
				i, candles[i].Time.Format(time.RFC3339), i-1, candles[i-1].Time.Format(time.RFC3339))
		}
	}
	return nil
}

// Direction tells which side of the market an event refers to.
type Direction string

const (
	Above   Direction = "above"
	Below   Direction = "below"
	Upper   Direction = "upper"
	Lower   Direction = "lower"
	GapUp   Direction = "gap_up"
	GapDown Direction = "gap_down"
	Top     Direction = "top"
	Bottom  Direction = "bottom"
	Bullish Direction = "bullish"
	Bearish Direction = "bearish"
)

// FillStatus is the outcome classification of a forward scan.
type FillStatus string

const (
	Unfilled FillStatus = "unfilled"
	Partial  FillStatus = "partial"
	Full     FillStatus = "full"
)

// Event is a detected pattern occurrence.
type Event struct {
	ID         string             `json:"id"`
	Kind       string             `json:"kind"`
	AnchorTime time.Time          `json:"anchor_time"`
	AnchorIdx  int                `json:"anchor_idx"`
	Level      *float64           `json:"level,omitempty"`
	Direction  Direction          `json:"direction"`
	Meta       map[string]float64 `json:"meta,omitempty"`
}

// Outcome is what happened after an event.
type Outcome struct {
	Hit           bool       `json:"hit"`
	BarsToHit     *int       `json:"bars_to_hit"`
	HitTime       *time.Time `json:"hit_time"`
	PartialHit    bool       `json:"partial_hit,omitempty"`
	BarsToPartial *int       `json:"bars_to_partial,omitempty"`
	FillStatus    FillStatus `json:"fill_status"`
	MAE           float64    `json:"mae"`
	MAEPercent    float64    `json:"mae_pct"`
	BarsObserved  int        `json:"bars_observed"`
}

// EventOutcome pairs an event with its outcome.
type EventOutcome struct {
	Event   Event   `json:"event"`
	Outcome Outcome `json:"outcome"`
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v.
func Int(v int) *int { return &v }
