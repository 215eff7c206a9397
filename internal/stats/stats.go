// Package stats aggregates event outcomes into hit rates, bars-to-hit
// distributions and MAE histograms.
package stats

import (
	"math"
	"sort"

	"sweepstat/pkg/model"
)

// Summary holds the headline numbers for a set of events.
type Summary struct {
	Events       int      `json:"events"`
	Hits         int      `json:"hits"`
	Partials     int      `json:"partials"`
	HitRate      float64  `json:"hit_rate"`
	MedianBars   *float64 `json:"median_bars,omitempty"`
	WinsorMean   *float64 `json:"winsorized_mean_bars,omitempty"`
	AvgMAEPct    float64  `json:"avg_mae_pct"`
	AvgMAEPctHit float64  `json:"avg_mae_pct_hit"`
}

// Summarize computes a Summary. Bars-to-hit figures only use hit events, so
// window-sentinel counts on unfilled events never leak into them.
func Summarize(results []model.EventOutcome) Summary {
	s := Summary{Events: len(results)}
	if len(results) == 0 {
		return s
	}

	var bars, mae, maeHit []float64
	for _, r := range results {
		o := r.Outcome
		mae = append(mae, o.MAEPercent)
		if o.FillStatus == model.Partial {
			s.Partials++
		}
		if !o.Hit {
			continue
		}
		s.Hits++
		maeHit = append(maeHit, o.MAEPercent)
		if o.BarsToHit != nil {
			bars = append(bars, float64(*o.BarsToHit))
		}
	}

	s.HitRate = Rate(s.Hits, s.Events)
	s.AvgMAEPct = Mean(mae)
	s.AvgMAEPctHit = Mean(maeHit)
	if m, ok := Median(bars); ok {
		s.MedianBars = &m
	}
	if w, ok := WinsorizedMean(bars, 5, 95); ok {
		s.WinsorMean = &w
	}
	return s
}

// Rate returns n/total as a percentage, or 0 for an empty total.
func Rate(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}

// Mean returns the arithmetic mean, or 0 for no values.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// Median returns the middle value, averaging the two central values for an
// even count.
func Median(xs []float64) (float64, bool) {
	if len(xs) == 0 {
		return 0, false
	}
	return Percentile(sorted(xs), 50), true
}

// Percentile interpolates linearly between closest ranks. xs must be sorted.
func Percentile(xs []float64, p float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	if len(xs) == 1 {
		return xs[0]
	}
	rank := p / 100 * float64(len(xs)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo < 0 {
		return xs[0]
	}
	if hi >= len(xs) {
		return xs[len(xs)-1]
	}
	frac := rank - float64(lo)
	return xs[lo] + (xs[hi]-xs[lo])*frac
}

// WinsorizedMean clips values to the [lo, hi] percentiles before averaging.
func WinsorizedMean(xs []float64, lo, hi float64) (float64, bool) {
	if len(xs) == 0 {
		return 0, false
	}
	s := sorted(xs)
	floor, ceil := Percentile(s, lo), Percentile(s, hi)
	sum := 0.0
	for _, x := range s {
		sum += math.Min(math.Max(x, floor), ceil)
	}
	return sum / float64(len(s)), true
}

func sorted(xs []float64) []float64 {
	s := make([]float64, len(xs))
	copy(s, xs)
	sort.Float64s(s)
	return s
}
