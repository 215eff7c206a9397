package analyzer

import (
	"fmt"
	"time"

	"sweepstat/internal/timeframe"
	"sweepstat/pkg/model"
)

// Annotation marks a price or a bar on a chart.
type Annotation struct {
	Kind  string     `json:"kind"` // anchor, target, partial, hit
	Price float64    `json:"price"`
	Time  *time.Time `json:"time,omitempty"` // nil for horizontal lines
}

// ChartData is the candle window around one event and its overlays.
type ChartData struct {
	Candles     []model.Candle `json:"candles"`
	Annotations []Annotation   `json:"annotations"`
}

// Chart cuts the series from before bars ahead of the event's anchor to
// after bars past it, extended to include the hit bar when there is one.
func Chart(series []model.Candle, eo model.EventOutcome, before, after int) (ChartData, error) {
	if before < 0 || after < 0 {
		return ChartData{}, fmt.Errorf("chart window must not be negative, got %d/%d", before, after)
	}
	anchor := indexAt(series, eo.Event.AnchorTime)
	if anchor < 0 {
		return ChartData{}, fmt.Errorf("anchor %s not in series", eo.Event.AnchorTime.Format(time.RFC3339))
	}

	lo := max(anchor-before, 0)
	hi := anchor + after
	if eo.Outcome.HitTime != nil {
		if h := indexAt(series, *eo.Outcome.HitTime); h > hi {
			hi = h
		}
	}
	hi = min(hi, len(series)-1)

	at := series[anchor].Time
	out := ChartData{
		Candles: series[lo : hi+1],
		Annotations: []Annotation{
			{Kind: "anchor", Price: series[anchor].Close, Time: &at},
		},
	}
	if eo.Event.Level != nil {
		out.Annotations = append(out.Annotations, Annotation{Kind: "target", Price: *eo.Event.Level})
		if eo.Outcome.HitTime != nil {
			ht := *eo.Outcome.HitTime
			out.Annotations = append(out.Annotations, Annotation{Kind: "hit", Price: *eo.Event.Level, Time: &ht})
		}
	}
	if p, ok := eo.Event.Meta["partial"]; ok {
		out.Annotations = append(out.Annotations, Annotation{Kind: "partial", Price: p})
	}
	return out, nil
}

// ChartSeries returns the bars the named analysis anchors its events on: the
// normalized base series for gap-fills and pivot-hits, the resampled series
// otherwise.
func ChartSeries(name string, series []model.Candle, base timeframe.Timeframe, p Params) ([]model.Candle, error) {
	if _, err := Get(name); err != nil {
		return nil, err
	}
	clean, _ := model.Normalize(series)
	switch name {
	case "gap-fills", "pivot-hits":
		return clean, nil
	}
	in := &Input{Series: clean, Base: base, Params: p.Merge(DefaultParams())}
	if err := in.resolve(false); err != nil {
		return nil, err
	}
	return in.bars()
}

// indexAt finds the bar stamped t by binary search, or -1.
func indexAt(series []model.Candle, t time.Time) int {
	lo, hi := 0, len(series)
	for lo < hi {
		mid := (lo + hi) / 2
		if series[mid].Time.Before(t) {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < len(series) && series[lo].Time.Equal(t) {
		return lo
	}
	return -1
}
