package tpo

import (
	"math"
	"sort"

	"sweepstat/internal/detect"
	"sweepstat/internal/scan"
	"sweepstat/internal/segment"
	"sweepstat/pkg/model"
)

// DefaultMaxPeriods bounds how many future periods a poor extreme is
// tracked for.
const DefaultMaxPeriods = 30

// Poor is one poor extreme and what happened to it.
type Poor struct {
	Period         segment.Period
	Analysis       Analysis
	Side           model.Direction // Top for a poor high, Bottom for a poor low
	Level          float64
	Swept          bool
	PeriodsToSweep int // 0 when not swept
	Outcome        model.Outcome
}

// Sweeps checks each poor extreme of profiles[k] (built from periods[k])
// against the following periods, up to maxPeriods of them. A sweep belongs
// to the first period whose bars cross the level. For a swept extreme MAE
// from the profile close only counts the sweeping period's bars before the
// crossing bar; an unswept one counts every bar tracked. Profiles with no
// following period are skipped.
func Sweeps(candles []model.Candle, periods []segment.Period, profiles []*Profile, maxPeriods int) ([]Poor, error) {
	if maxPeriods < 1 {
		maxPeriods = DefaultMaxPeriods
	}
	var out []Poor
	for k, p := range profiles {
		if p == nil || k+1 >= len(periods) {
			continue
		}
		last := k + maxPeriods
		if last > len(periods)-1 {
			last = len(periods) - 1
		}
		horizon := periods[last].LastIdx - p.LastIdx
		if horizon < 1 {
			continue
		}

		a := Analyze(p)
		sides := []struct {
			poor  bool
			dir   model.Direction
			level float64
			side  scan.Side
		}{
			{a.PoorHigh, model.Top, a.High, scan.Up},
			{a.PoorLow, model.Bottom, a.Low, scan.Down},
		}
		for _, s := range sides {
			if !s.poor {
				continue
			}
			o, err := scan.Scan(candles, scan.Request{
				Start:     p.LastIdx,
				Reference: p.Close,
				Target:    s.level,
				Side:      s.side,
				MaxBars:   horizon,
				Unfilled:  scan.UnfilledNull,
			})
			if err != nil {
				return nil, err
			}
			poor := Poor{Period: periods[k], Analysis: a, Side: s.dir, Level: s.level, Outcome: o}
			if o.Hit {
				cross := p.LastIdx + *o.BarsToHit
				sp := periodOf(periods, cross)
				poor.Swept = true
				poor.PeriodsToSweep = sp - k
				mae, pct := sweepMAE(candles, periods[sp].FirstIdx, cross, p.Close, s.side)
				poor.Outcome.MAE, poor.Outcome.MAEPercent = mae, pct
			}
			out = append(out, poor)
		}
	}
	return out, nil
}

// sweepMAE measures adverse excursion from ref over the sweeping period's
// bars before the crossing bar only.
func sweepMAE(candles []model.Candle, first, cross int, ref float64, side scan.Side) (float64, float64) {
	worst := ref
	if first > cross {
		first = cross
	}
	for _, c := range candles[first:cross] {
		if side == scan.Up {
			worst = math.Min(worst, c.Low)
		} else {
			worst = math.Max(worst, c.High)
		}
	}
	mae := math.Abs(worst - ref)
	return mae, scan.Percent(mae, ref)
}

// periodOf returns the first period ending at or after series index idx.
func periodOf(periods []segment.Period, idx int) int {
	return sort.Search(len(periods), func(i int) bool { return periods[i].LastIdx >= idx })
}

// Event converts a poor extreme to the common event form.
func (p Poor) Event(candles []model.Candle) model.EventOutcome {
	kind := "tpo-poor-high"
	tpos := p.Analysis.TPOsAtHigh
	if p.Side == model.Bottom {
		kind = "tpo-poor-low"
		tpos = p.Analysis.TPOsAtLow
	}
	meta := map[string]float64{
		"tpos":             float64(tpos),
		"periods_to_sweep": float64(p.PeriodsToSweep),
		"range":            p.Analysis.Range,
	}
	idx := p.Period.LastIdx
	return model.EventOutcome{
		Event: model.Event{
			ID:         detect.EventID(kind, candles[idx].Time, model.Float(p.Level), p.Side),
			Kind:       kind,
			AnchorTime: candles[idx].Time,
			AnchorIdx:  idx,
			Level:      model.Float(p.Level),
			Direction:  p.Side,
			Meta:       meta,
		},
		Outcome: p.Outcome,
	}
}
