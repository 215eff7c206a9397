package detect

import (
	"fmt"

	"sweepstat/pkg/model"
)

// OTFConfig holds one-time-framing run settings. Each check is independent.
type OTFConfig struct {
	Run            int  // consecutive bars in the run
	CheckColor     bool // every bar closes in the run direction
	CheckIntact    bool // bullish: low >= previous low; bearish: high <= previous high
	CheckBeyondPrv bool // bullish: close > previous high; bearish: close < previous low
}

// DefaultOTFConfig returns the default run settings.
func DefaultOTFConfig() OTFConfig {
	return OTFConfig{Run: 3, CheckColor: true, CheckIntact: true, CheckBeyondPrv: false}
}

// OTFRun is a qualifying run and what the following bar did.
type OTFRun struct {
	Event      model.Event `json:"event"`
	RunStart   int         `json:"run_start"`
	Success    bool        `json:"success"`     // next bar closed in the run direction
	NetPercent float64     `json:"net_percent"` // last run close -> next close
}

// OneTimeFraming slides an n-bar window over the series. A window that
// qualifies as bullish is recorded as bullish even if bearish rules could
// also hold; otherwise it is tested for bearish. The event anchors on the bar
// after the run, so the last possible window ends one bar before the series.
func OneTimeFraming(candles []model.Candle, cfg OTFConfig) ([]OTFRun, error) {
	if cfg.Run < 1 {
		return nil, fmt.Errorf("run length must be at least 1, got %d", cfg.Run)
	}
	var out []OTFRun
	for i := 0; i+cfg.Run < len(candles); i++ {
		window := candles[i : i+cfg.Run]
		next := candles[i+cfg.Run]
		last := window[len(window)-1]

		var dir model.Direction
		switch {
		case otfBullish(window, cfg):
			dir = model.Bullish
		case otfBearish(window, cfg):
			dir = model.Bearish
		default:
			continue
		}

		success := next.Bullish()
		if dir == model.Bearish {
			success = next.Bearish()
		}
		net := 0.0
		if last.Close != 0 {
			net = (next.Close - last.Close) / last.Close * 100
		}

		idx := i + cfg.Run
		out = append(out, OTFRun{
			Event:      newEvent("one-time-framing", candles, idx, nil, dir, map[string]float64{"run": float64(cfg.Run)}),
			RunStart:   i,
			Success:    success,
			NetPercent: net,
		})
	}
	return out, nil
}

func otfBullish(w []model.Candle, cfg OTFConfig) bool {
	for j, c := range w {
		if cfg.CheckColor && !(c.Close > c.Open) {
			return false
		}
		if j == 0 {
			continue
		}
		prev := w[j-1]
		if cfg.CheckIntact && !(c.Low >= prev.Low) {
			return false
		}
		if cfg.CheckBeyondPrv && !(c.Close > prev.High) {
			return false
		}
	}
	return true
}

func otfBearish(w []model.Candle, cfg OTFConfig) bool {
	for j, c := range w {
		if cfg.CheckColor && !(c.Close < c.Open) {
			return false
		}
		if j == 0 {
			continue
		}
		prev := w[j-1]
		if cfg.CheckIntact && !(c.High <= prev.High) {
			return false
		}
		if cfg.CheckBeyondPrv && !(c.Close < prev.Low) {
			return false
		}
	}
	return true
}
