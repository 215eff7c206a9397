// Package timing tabulates when period extremes occur.
package timing

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"sweepstat/internal/segment"
	"sweepstat/internal/session"
)

// Metric selects which extreme of a period is bucketed.
type Metric string

const (
	MetricHigh Metric = "High"
	MetricLow  Metric = "Low"
	MetricP1   Metric = "P1"
	MetricP2   Metric = "P2"
)

// Metrics lists every metric in report order.
func Metrics() []Metric {
	return []Metric{MetricHigh, MetricLow, MetricP1, MetricP2}
}

// Bucketing names the bucket key family.
type Bucketing string

const (
	ByHour       Bucketing = "hour"
	BySession    Bucketing = "session"
	ByDayOfWeek  Bucketing = "weekday"
	ByDayOfMonth Bucketing = "monthday"
)

// Time returns the timestamp of metric m in period p.
func Time(p segment.Period, m Metric) time.Time {
	switch m {
	case MetricHigh:
		return p.HighTime
	case MetricLow:
		return p.LowTime
	case MetricP1:
		_, t := p.P1()
		return t
	default:
		_, t := p.P2()
		return t
	}
}

// Key returns the bucket label of t.
func Key(b Bucketing, t time.Time) string {
	u := t.UTC()
	switch b {
	case ByHour:
		return strconv.Itoa(u.Hour())
	case BySession:
		return session.Name(u)
	case ByDayOfWeek:
		return u.Weekday().String()
	default:
		return strconv.Itoa(u.Day())
	}
}

// Keys returns every bucket label of b in display order.
func Keys(b Bucketing) []string {
	var out []string
	switch b {
	case ByHour:
		for h := 0; h < 24; h++ {
			out = append(out, strconv.Itoa(h))
		}
	case BySession:
		for _, s := range session.Default() {
			out = append(out, s.Name)
		}
	case ByDayOfWeek:
		for _, d := range []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday, time.Sunday} {
			out = append(out, d.String())
		}
	default:
		for d := 1; d <= 31; d++ {
			out = append(out, strconv.Itoa(d))
		}
	}
	return out
}

// Bucket is one row of a frequency table.
type Bucket struct {
	Key     string  `json:"key"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// Table is the distribution of one metric across buckets.
type Table struct {
	Metric    Metric    `json:"metric"`
	Bucketing Bucketing `json:"bucketing"`
	Total     int       `json:"total"`
	Buckets   []Bucket  `json:"buckets"`
}

// Top returns the bucket with the highest count, first in display order on ties.
func (t Table) Top() (Bucket, bool) {
	var best Bucket
	found := false
	for _, b := range t.Buckets {
		if !found || b.Count > best.Count {
			best = b
			found = true
		}
	}
	return best, found && best.Count > 0
}

// Frequency counts how many periods had metric m in each bucket. Every
// bucket of b is present, zero counts included.
func Frequency(periods []segment.Period, m Metric, b Bucketing) Table {
	counts := make(map[string]int)
	for _, p := range periods {
		counts[Key(b, Time(p, m))]++
	}
	t := Table{Metric: m, Bucketing: b, Total: len(periods)}
	for _, k := range Keys(b) {
		t.Buckets = append(t.Buckets, Bucket{Key: k, Count: counts[k], Percent: pct(counts[k], len(periods))})
	}
	return t
}

// FrequencyAll builds the tables of all four metrics.
func FrequencyAll(periods []segment.Period, b Bucketing) []Table {
	out := make([]Table, 0, 4)
	for _, m := range Metrics() {
		out = append(out, Frequency(periods, m, b))
	}
	return out
}

// P1Split counts periods whose first extreme was the high versus the low.
type P1Split struct {
	HighFirst    int     `json:"high_first"`
	LowFirst     int     `json:"low_first"`
	HighFirstPct float64 `json:"high_first_pct"`
	LowFirstPct  float64 `json:"low_first_pct"`
}

// SplitP1 tallies P1 types.
func SplitP1(periods []segment.Period) P1Split {
	var s P1Split
	for _, p := range periods {
		if e, _ := p.P1(); e == segment.High {
			s.HighFirst++
		} else {
			s.LowFirst++
		}
	}
	s.HighFirstPct = pct(s.HighFirst, len(periods))
	s.LowFirstPct = pct(s.LowFirst, len(periods))
	return s
}

// Since is how many periods ago a bucket last held the metric.
type Since struct {
	Key     string `json:"key"`
	Periods int    `json:"periods"` // 0 = the most recent period; -1 = never
}

// PeriodsSince reports, for every bucket, the distance in periods from the
// most recent period back to the latest period whose metric fell in it.
func PeriodsSince(periods []segment.Period, m Metric, b Bucketing) []Since {
	last := make(map[string]int)
	for i, p := range periods {
		last[Key(b, Time(p, m))] = i
	}
	out := make([]Since, 0)
	for _, k := range Keys(b) {
		s := Since{Key: k, Periods: -1}
		if i, ok := last[k]; ok {
			s.Periods = len(periods) - 1 - i
		}
		out = append(out, s)
	}
	return out
}

// Gap reports the distance between the most recent period and the previous
// period sharing its bucket. ok is false when there is no earlier match.
func Gap(periods []segment.Period, m Metric, b Bucketing) (key string, gap int, ok bool) {
	if len(periods) == 0 {
		return "", 0, false
	}
	n := len(periods) - 1
	key = Key(b, Time(periods[n], m))
	for i := n - 1; i >= 0; i-- {
		if Key(b, Time(periods[i], m)) == key {
			return key, n - i, true
		}
	}
	return key, 0, false
}

// HitPoint is one step of a hit-rate time series.
type HitPoint struct {
	Start      time.Time `json:"start"`
	Hit        bool      `json:"hit"`
	Cumulative float64   `json:"cumulative"`
	Rolling    float64   `json:"rolling"`
}

// HitRateSeries tracks how often metric m fell in bucket key: an expanding
// percentage and a trailing-window percentage (window clamped to the
// available history, minimum one period).
func HitRateSeries(periods []segment.Period, m Metric, b Bucketing, key string, window int) ([]HitPoint, error) {
	if window < 1 {
		return nil, fmt.Errorf("rolling window must be at least 1, got %d", window)
	}
	hits := make([]bool, len(periods))
	for i, p := range periods {
		hits[i] = Key(b, Time(p, m)) == key
	}

	out := make([]HitPoint, len(periods))
	running := 0
	inWindow := 0
	for i, p := range periods {
		if hits[i] {
			running++
			inWindow++
		}
		if i >= window && hits[i-window] {
			inWindow--
		}
		n := window
		if i+1 < window {
			n = i + 1
		}
		out[i] = HitPoint{
			Start:      p.Start,
			Hit:        hits[i],
			Cumulative: pct(running, i+1),
			Rolling:    pct(inWindow, n),
		}
	}
	return out, nil
}

// Ranked returns the buckets sorted by count descending, display order on ties.
func Ranked(t Table) []Bucket {
	out := make([]Bucket, len(t.Buckets))
	copy(out, t.Buckets)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

func pct(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}
