package detect

import (
	"fmt"

	"github.com/shopspring/decimal"

	"sweepstat/internal/scan"
	"sweepstat/pkg/model"
)

// RoundNumberConfig configures round-number front-run detection.
type RoundNumberConfig struct {
	Interval     float64 // spacing of round levels, e.g. 1000
	ThresholdPct float64 // how close (percent of level) a miss must come
	Lookback     int     // bars a level must have gone untouched
	Lookforward  int
}

// RoundLevels returns the nearest round numbers at or below and above price.
// Decimal arithmetic keeps levels exact for fractional intervals.
func RoundLevels(price, interval float64) (below, above float64) {
	p := decimal.NewFromFloat(price)
	step := decimal.NewFromFloat(interval)
	lo := p.Div(step).Floor().Mul(step)
	hi := lo.Add(step)
	return lo.InexactFloat64(), hi.InexactFloat64()
}

// RoundNumbers finds bars that came within the threshold of a round level
// without touching it, where the level was not touched in the lookback
// window. While an event on a level is still open (before its hit, or
// through its window when unfilled) the level is not re-reported.
func RoundNumbers(candles []model.Candle, cfg RoundNumberConfig) ([]Setup, error) {
	if cfg.Interval <= 0 {
		return nil, fmt.Errorf("round-number interval must be positive, got %g", cfg.Interval)
	}
	if cfg.ThresholdPct <= 0 {
		return nil, fmt.Errorf("front-run threshold must be positive, got %g", cfg.ThresholdPct)
	}
	if cfg.Lookback < 0 {
		return nil, fmt.Errorf("lookback must not be negative, got %d", cfg.Lookback)
	}
	if err := checkLookforward(cfg.Lookforward); err != nil {
		return nil, err
	}

	busyUntil := make(map[float64]int)
	var out []Setup
	for i := cfg.Lookback; i < len(candles); i++ {
		c := candles[i]
		below, above := RoundLevels(c.Close, cfg.Interval)

		candidates := []struct {
			level float64
			dir   model.Direction
			side  scan.Side
			miss  float64
		}{
			{above, model.Above, scan.Up, above - c.High},
			{below, model.Below, scan.Down, c.Low - below},
		}
		for _, cand := range candidates {
			if cand.level <= 0 || cand.miss <= 0 {
				continue // touched, or degenerate level
			}
			if scan.Percent(cand.miss, cand.level) > cfg.ThresholdPct {
				continue
			}
			if until, ok := busyUntil[cand.level]; ok && i <= until {
				continue
			}
			if mitigated(candles[i-cfg.Lookback:i], cand.level) {
				continue
			}

			req := scan.Request{
				Start:     i,
				Reference: c.Close,
				Target:    cand.level,
				Side:      cand.side,
				MaxBars:   cfg.Lookforward,
				Unfilled:  scan.UnfilledNull,
			}
			o, err := scan.Scan(candles, req)
			if err != nil {
				return nil, err
			}
			busy := i + o.BarsObserved
			if o.BarsToHit != nil {
				busy = i + *o.BarsToHit
			}
			busyUntil[cand.level] = busy

			meta := map[string]float64{
				"interval": cfg.Interval,
				"miss":     cand.miss,
				"miss_pct": scan.Percent(cand.miss, cand.level),
			}
			out = append(out, Setup{
				Event:   newEvent("round-number", candles, i, model.Float(cand.level), cand.dir, meta),
				Request: req,
				Outcome: &o,
			})
		}
	}
	return out, nil
}

func mitigated(window []model.Candle, level float64) bool {
	for _, c := range window {
		if c.Touches(level) {
			return true
		}
	}
	return false
}
