package tpo

import (
	"math"

	"github.com/markcheno/go-talib"

	"sweepstat/pkg/model"
)

// Tick size defaults.
const (
	DefaultATRPeriod      = 14
	DefaultTickMultiplier = 0.1
	MinTick               = 1.0
	FallbackTick          = 100.0
)

// AutoTick derives a tick size from the ATR at the last bar of history. The
// result is never below MinTick; FallbackTick is used when history is too
// short for the ATR to be defined.
func AutoTick(history []model.Candle, period int, multiplier float64) float64 {
	if period < 1 {
		period = DefaultATRPeriod
	}
	if multiplier <= 0 {
		multiplier = DefaultTickMultiplier
	}
	if len(history) <= period {
		return FallbackTick
	}

	high := make([]float64, len(history))
	low := make([]float64, len(history))
	closes := make([]float64, len(history))
	for i, c := range history {
		high[i], low[i], closes[i] = c.High, c.Low, c.Close
	}
	atr := talib.Atr(high, low, closes, period)
	last := atr[len(atr)-1]
	if last <= 0 || math.IsNaN(last) {
		return FallbackTick
	}
	return math.Max(last*multiplier, MinTick)
}
