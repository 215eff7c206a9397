package detect

import (
	"fmt"
	"math"
	"time"

	"sweepstat/internal/scan"
	"sweepstat/pkg/model"
)

// ClockTime is a time of day in UTC.
type ClockTime struct {
	Hour   int
	Minute int
}

// ParseClock parses "HH:MM".
func ParseClock(s string) (ClockTime, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return ClockTime{}, fmt.Errorf("invalid time of day %q: %w", s, err)
	}
	return ClockTime{Hour: t.Hour(), Minute: t.Minute()}, nil
}

func (c ClockTime) String() string { return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute) }

func (c ClockTime) minutes() int { return c.Hour*60 + c.Minute }

// On returns the clock time on t's UTC date.
func (c ClockTime) On(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), c.Hour, c.Minute, 0, 0, time.UTC)
}

// GapConfig configures custom time-window gaps. The gap opens between the
// close of the bar at End and the open of the bar at Start.
type GapConfig struct {
	End         ClockTime // bar whose close is the gap-close price
	Start       ClockTime // bar whose open is the gap-open price
	MinPercent  float64
	PartialPct  float64
	Lookforward int
}

// Gaps finds one gap per calendar date. The gap-open bar is on the same day,
// or the next day when Start is earlier than End. The gap-open bar is the
// first bar scanned, since a gap can fill on the bar that opens it. Unfilled
// events report the observed bar count.
func Gaps(candles []model.Candle, cfg GapConfig) ([]Setup, error) {
	if err := checkLookforward(cfg.Lookforward); err != nil {
		return nil, err
	}
	if cfg.PartialPct < 0 || cfg.PartialPct > 100 {
		return nil, fmt.Errorf("partial fill percent must be within 0-100, got %g", cfg.PartialPct)
	}

	index := make(map[int64]int, len(candles))
	for i, c := range candles {
		index[c.Time.Unix()] = i
	}

	var out []Setup
	for i, c := range candles {
		if !c.Time.Equal(cfg.End.On(c.Time)) {
			continue
		}

		openAt := cfg.Start.On(c.Time)
		if cfg.Start.minutes() < cfg.End.minutes() {
			openAt = openAt.AddDate(0, 0, 1)
		}
		j, ok := index[openAt.Unix()]
		if !ok || j <= i {
			continue
		}

		gapClose := c.Close
		gapOpen := candles[j].Open
		if gapClose == 0 || gapOpen == gapClose {
			continue
		}
		size := math.Abs(gapOpen-gapClose) / gapClose * 100
		if size < cfg.MinPercent {
			continue
		}

		dir, side := model.GapDown, scan.Up
		if gapOpen > gapClose {
			dir, side = model.GapUp, scan.Down
		}
		req := scan.Request{
			Start:     j - 1,
			Reference: gapOpen,
			Target:    gapClose,
			Side:      side,
			MaxBars:   cfg.Lookforward,
			Unfilled:  scan.UnfilledWindow,
		}
		meta := map[string]float64{
			"gap_open":  gapOpen,
			"gap_close": gapClose,
			"gap_pct":   size,
		}
		if cfg.PartialPct > 0 {
			partial := scan.PartialPrice(gapOpen, gapClose, cfg.PartialPct)
			req.PartialLevel = model.Float(partial)
			meta["partial"] = partial
		}
		out = append(out, Setup{
			Event:   newEvent("gap-fill", candles, j, model.Float(gapClose), dir, meta),
			Request: req,
		})
	}
	return out, nil
}
