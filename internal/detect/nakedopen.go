package detect

import (
	"math"

	"sweepstat/internal/scan"
	"sweepstat/pkg/model"
)

// DefaultFlatTolerance is how close low/high must be to the open, in price units.
const DefaultFlatTolerance = 0.01

// NakedOpenConfig configures naked-open detection.
type NakedOpenConfig struct {
	Tolerance   float64
	Lookforward int
}

// NakedOpens finds flat-bottom bullish and flat-top bearish bars and targets
// a retest of their open. Unfilled events report the observed bar count.
func NakedOpens(candles []model.Candle, cfg NakedOpenConfig) ([]Setup, error) {
	if err := checkLookforward(cfg.Lookforward); err != nil {
		return nil, err
	}
	tol := cfg.Tolerance
	if tol < 0 {
		tol = DefaultFlatTolerance
	}

	var out []Setup
	for i, c := range candles {
		var (
			dir  model.Direction
			side scan.Side
		)
		switch {
		case c.Bullish() && math.Abs(c.Low-c.Open) <= tol:
			dir, side = model.Bullish, scan.Down
		case c.Bearish() && math.Abs(c.High-c.Open) <= tol:
			dir, side = model.Bearish, scan.Up
		default:
			continue
		}
		level := c.Open
		out = append(out, Setup{
			Event: newEvent("naked-open", candles, i, model.Float(level), dir, nil),
			Request: scan.Request{
				Start:     i,
				Reference: c.Close,
				Target:    level,
				Side:      side,
				MaxBars:   cfg.Lookforward,
				Unfilled:  scan.UnfilledWindow,
			},
		})
	}
	return out, nil
}
