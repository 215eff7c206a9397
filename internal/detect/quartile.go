package detect

import (
	"sweepstat/internal/scan"
	"sweepstat/pkg/model"
)

// QuartileConfig configures quartile-open detection.
type QuartileConfig struct {
	Lookforward int // bars, starting with the quartile-open bar itself
}

// QuartileOpens flags bars opening in the top or bottom quarter of the
// previous bar's range. An upper open targets the previous high, a lower open
// the previous low. Zero-range previous bars are skipped. The quartile-open
// bar is the first bar scanned; MAE is measured from its open.
func QuartileOpens(candles []model.Candle, cfg QuartileConfig) ([]Setup, error) {
	if err := checkLookforward(cfg.Lookforward); err != nil {
		return nil, err
	}
	var out []Setup
	for i := 1; i < len(candles); i++ {
		prev, cur := candles[i-1], candles[i]
		rng := prev.Range()
		if rng <= 0 {
			continue
		}

		var (
			dir    model.Direction
			target float64
			side   scan.Side
		)
		switch {
		case cur.Open >= prev.Low+0.75*rng:
			dir, target, side = model.Upper, prev.High, scan.Up
		case cur.Open <= prev.Low+0.25*rng:
			dir, target, side = model.Lower, prev.Low, scan.Down
		default:
			continue
		}

		meta := map[string]float64{
			"prev_high": prev.High,
			"prev_low":  prev.Low,
			"open":      cur.Open,
			"open_pos":  (cur.Open - prev.Low) / rng * 100,
		}
		out = append(out, Setup{
			Event: newEvent("quartile-open", candles, i, model.Float(target), dir, meta),
			Request: scan.Request{
				Start:     i - 1,
				Reference: cur.Open,
				Target:    target,
				Side:      side,
				MaxBars:   cfg.Lookforward,
				Unfilled:  scan.UnfilledNull,
			},
		})
	}
	return out, nil
}
