package stats

import (
	"math"

	"sweepstat/pkg/model"
)

// ProbPoint is the share of all events hit within Bars bars.
type ProbPoint struct {
	Bars    int     `json:"bars"`
	Percent float64 `json:"percent"`
}

// CumulativeProbability returns P(hit within k bars) for k = 1..maxBars,
// over every event, hit or not.
func CumulativeProbability(results []model.EventOutcome, maxBars int) []ProbPoint {
	if maxBars < 1 || len(results) == 0 {
		return nil
	}
	counts := make([]int, maxBars+1)
	for _, r := range results {
		if !r.Outcome.Hit || r.Outcome.BarsToHit == nil {
			continue
		}
		if b := *r.Outcome.BarsToHit; b >= 1 && b <= maxBars {
			counts[b]++
		}
	}
	out := make([]ProbPoint, 0, maxBars)
	running := 0
	for k := 1; k <= maxBars; k++ {
		running += counts[k]
		out = append(out, ProbPoint{Bars: k, Percent: Rate(running, len(results))})
	}
	return out
}

// Bin is one histogram bucket covering [Lo, Hi). The last bin also holds Hi.
type Bin struct {
	Lo    float64 `json:"lo"`
	Hi    float64 `json:"hi"`
	Count int     `json:"count"`
}

// MAEHistogram buckets MAE percentages into n equal-width bins.
func MAEHistogram(results []model.EventOutcome, n int) []Bin {
	if n < 1 || len(results) == 0 {
		return nil
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, r := range results {
		lo = math.Min(lo, r.Outcome.MAEPercent)
		hi = math.Max(hi, r.Outcome.MAEPercent)
	}
	width := (hi - lo) / float64(n)
	if width == 0 {
		return []Bin{{Lo: lo, Hi: hi, Count: len(results)}}
	}

	bins := make([]Bin, n)
	for i := range bins {
		bins[i].Lo = lo + float64(i)*width
		bins[i].Hi = lo + float64(i+1)*width
	}
	for _, r := range results {
		i := int((r.Outcome.MAEPercent - lo) / width)
		if i >= n {
			i = n - 1
		}
		bins[i].Count++
	}
	return bins
}

// Group is a Summary for events sharing a key.
type Group struct {
	Key     string  `json:"key"`
	Summary Summary `json:"summary"`
}

// GroupBy summarises events per key, in order of first appearance.
func GroupBy(results []model.EventOutcome, key func(model.EventOutcome) string) []Group {
	var order []string
	buckets := make(map[string][]model.EventOutcome)
	for _, r := range results {
		k := key(r)
		if _, ok := buckets[k]; !ok {
			order = append(order, k)
		}
		buckets[k] = append(buckets[k], r)
	}
	out := make([]Group, 0, len(order))
	for _, k := range order {
		out = append(out, Group{Key: k, Summary: Summarize(buckets[k])})
	}
	return out
}
