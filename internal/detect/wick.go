package detect

import (
	"fmt"
	"math"

	"sweepstat/internal/scan"
	"sweepstat/pkg/model"
)

// WickMode selects how wick size is measured.
type WickMode string

const (
	// WickOfPrice is wick / close * 100.
	WickOfPrice WickMode = "price"
	// WickOfBody is wick / (body + wick) * 100.
	WickOfBody WickMode = "body"
)

// WickSide filters which wicks qualify.
type WickSide string

const (
	WickTop    WickSide = "top"
	WickBottom WickSide = "bottom"
	WickBoth   WickSide = "both"
)

// WickConfig configures large-wick detection.
type WickConfig struct {
	Mode        WickMode
	Side        WickSide
	MinPercent  float64
	PartialPct  float64 // 0 disables partial tracking
	Lookforward int
}

// Validate rejects unknown modes and sides.
func (c WickConfig) Validate() error {
	switch c.Mode {
	case WickOfPrice, WickOfBody:
	default:
		return fmt.Errorf("unknown wick mode %q", c.Mode)
	}
	switch c.Side {
	case WickTop, WickBottom, WickBoth:
	default:
		return fmt.Errorf("unknown wick side %q", c.Side)
	}
	if c.PartialPct < 0 || c.PartialPct > 100 {
		return fmt.Errorf("partial fill percent must be within 0-100, got %g", c.PartialPct)
	}
	return checkLookforward(c.Lookforward)
}

// WickPercent measures a wick of the given size on candle c.
func WickPercent(c model.Candle, wick float64, mode WickMode) float64 {
	if mode == WickOfBody {
		body := math.Abs(c.Close - c.Open)
		return scan.Percent(wick, body+wick)
	}
	return scan.Percent(wick, c.Close)
}

// Wicks finds wicks at or above the size threshold. A top wick targets the
// candle high, measured up from the upper body edge; a bottom wick targets
// the low, down from the lower body edge. Unfilled events report the
// observed bar count.
func Wicks(candles []model.Candle, cfg WickConfig) ([]Setup, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var out []Setup
	for i, c := range candles {
		upper := math.Max(c.Open, c.Close)
		lower := math.Min(c.Open, c.Close)

		if cfg.Side != WickBottom {
			if s, ok := wickSetup(candles, i, upper, c.High, model.Top, scan.Up, cfg); ok {
				out = append(out, s)
			}
		}
		if cfg.Side != WickTop {
			if s, ok := wickSetup(candles, i, lower, c.Low, model.Bottom, scan.Down, cfg); ok {
				out = append(out, s)
			}
		}
	}
	return out, nil
}

func wickSetup(candles []model.Candle, i int, base, tip float64, dir model.Direction, side scan.Side, cfg WickConfig) (Setup, bool) {
	c := candles[i]
	size := math.Abs(tip - base)
	if size == 0 {
		return Setup{}, false
	}
	pct := WickPercent(c, size, cfg.Mode)
	if pct < cfg.MinPercent {
		return Setup{}, false
	}

	req := scan.Request{
		Start:     i,
		Reference: base,
		Target:    tip,
		Side:      side,
		MaxBars:   cfg.Lookforward,
		Unfilled:  scan.UnfilledWindow,
	}
	meta := map[string]float64{
		"wick_size": size,
		"wick_pct":  pct,
		"base":      base,
	}
	if cfg.PartialPct > 0 {
		partial := scan.PartialPrice(base, tip, cfg.PartialPct)
		req.PartialLevel = model.Float(partial)
		meta["partial"] = partial
	}
	return Setup{
		Event:   newEvent("wick-fill", candles, i, model.Float(tip), dir, meta),
		Request: req,
	}, true
}
