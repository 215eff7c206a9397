// Package scan measures what happens after an event: whether a target level
// is touched within a bounded number of bars, when, and how far price moved
// the other way first.
package scan

import (
	"fmt"
	"math"

	"sweepstat/pkg/model"
)

// Side says which bar extreme must reach the target.
type Side int

const (
	// Up targets sit above the reference; a bar hits when High >= target.
	Up Side = iota
	// Down targets sit below the reference; a bar hits when Low <= target.
	Down
)

func (s Side) String() string {
	if s == Up {
		return "up"
	}
	return "down"
}

// UnfilledBars is the convention for BarsToHit when the target is not hit.
type UnfilledBars int

const (
	// UnfilledNull leaves BarsToHit nil.
	UnfilledNull UnfilledBars = iota
	// UnfilledWindow reports the number of bars observed, so callers can
	// measure how long an event stayed open. Branch on FillStatus, not on
	// BarsToHit being set.
	UnfilledWindow
)

// Request describes one forward scan.
type Request struct {
	Start     int     // anchor index; scanning begins at Start+1
	Reference float64 // price MAE is measured from
	Target    float64
	Side      Side
	MaxBars   int
	// PartialLevel, when set, is a price between Reference and Target whose
	// first touch is recorded separately.
	PartialLevel *float64
	Unfilled     UnfilledBars
}

// Validate checks the request against a series of n bars.
func (r Request) Validate(n int) error {
	if r.MaxBars < 1 {
		return fmt.Errorf("lookforward must be at least 1 bar, got %d", r.MaxBars)
	}
	if r.Start < -1 || r.Start >= n {
		return fmt.Errorf("start index %d outside series of %d bars", r.Start, n)
	}
	return nil
}

// Scan runs the request over candles. It never looks past Start+MaxBars.
func Scan(candles []model.Candle, r Request) (model.Outcome, error) {
	if err := r.Validate(len(candles)); err != nil {
		return model.Outcome{}, err
	}

	out := model.Outcome{FillStatus: model.Unfilled}
	end := r.Start + r.MaxBars
	if end > len(candles)-1 {
		end = len(candles) - 1
	}

	worst := r.Reference
	for i := r.Start + 1; i <= end; i++ {
		c := candles[i]
		bars := i - r.Start
		out.BarsObserved = bars

		if r.PartialLevel != nil && !out.PartialHit && reaches(c, *r.PartialLevel, r.Side) {
			out.PartialHit = true
			out.BarsToPartial = model.Int(bars)
		}

		if reaches(c, r.Target, r.Side) {
			out.Hit = true
			out.BarsToHit = model.Int(bars)
			t := c.Time
			out.HitTime = &t
			out.FillStatus = model.Full
			break
		}

		// Adverse excursion only counts bars that closed out without a hit.
		if r.Side == Up {
			worst = math.Min(worst, c.Low)
		} else {
			worst = math.Max(worst, c.High)
		}
	}

	if !out.Hit {
		if out.PartialHit {
			out.FillStatus = model.Partial
		}
		if r.Unfilled == UnfilledWindow {
			out.BarsToHit = model.Int(out.BarsObserved)
		}
	}

	out.MAE = math.Abs(worst - r.Reference)
	out.MAEPercent = Percent(out.MAE, r.Reference)
	return out, nil
}

func reaches(c model.Candle, level float64, side Side) bool {
	if side == Up {
		return c.High >= level
	}
	return c.Low <= level
}

// SideFor returns Up when target is at or above reference.
func SideFor(reference, target float64) Side {
	if target >= reference {
		return Up
	}
	return Down
}

// PartialPrice returns the price pct percent of the way from base to target.
func PartialPrice(base, target, pct float64) float64 {
	return base + (target-base)*pct/100
}

// Percent returns v as a percentage of base, or 0 when base is zero or NaN.
func Percent(v, base float64) float64 {
	if base == 0 || math.IsNaN(base) || math.IsNaN(v) {
		return 0
	}
	return v / math.Abs(base) * 100
}
