package analyzer

import (
	"context"
	"errors"
	"testing"
	"time"

	"sweepstat/internal/timeframe"
	"sweepstat/pkg/model"
)

func TestChart(t *testing.T) {
	series := wave(50)
	hit := series[30].Time
	eo := model.EventOutcome{
		Event: model.Event{
			AnchorTime: series[10].Time,
			Level:      model.Float(1000),
			Meta:       map[string]float64{"partial": 990},
		},
		Outcome: model.Outcome{Hit: true, HitTime: &hit},
	}
	c, err := Chart(series, eo, 5, 5)
	if err != nil {
		t.Fatal(err)
	}
	if !c.Candles[0].Time.Equal(series[5].Time) || !c.Candles[len(c.Candles)-1].Time.Equal(hit) {
		t.Errorf("window %s..%s", c.Candles[0].Time, c.Candles[len(c.Candles)-1].Time)
	}
	kinds := map[string]bool{}
	for _, a := range c.Annotations {
		kinds[a.Kind] = true
	}
	for _, k := range []string{"anchor", "target", "hit", "partial"} {
		if !kinds[k] {
			t.Errorf("missing %s annotation", k)
		}
	}

	eo.Event.AnchorTime = series[0].Time.Add(-time.Hour)
	if _, err := Chart(series, eo, 1, 1); err == nil {
		t.Error("expected error for anchor outside series")
	}
}

func TestChartSeries(t *testing.T) {
	series := wave(96) // one day of 15m bars

	tests := []struct {
		name     string
		analysis string
		tf       string
		want     int
	}{
		{"resampled to 1h", "naked-opens", "1h", 24},
		{"base for gaps", "gap-fills", "1h", 96},
		{"base for pivots", "pivot-hits", "1h", 96},
		{"sessions", "session-extremes", "Session", 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ChartSeries(tt.analysis, series, timeframe.M15, Params{Timeframe: tt.tf})
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != tt.want {
				t.Errorf("bars = %d, want %d", len(got), tt.want)
			}
		})
	}

	if _, err := ChartSeries("nope", series, timeframe.M15, Params{}); !errors.Is(err, ErrUnknownAnalysis) {
		t.Errorf("err = %v, want ErrUnknownAnalysis", err)
	}
}

func TestChartSeries_PivotHitsOnBaseBars(t *testing.T) {
	series := wave(96 * 4)
	p := Params{Timeframe: "1h", PivotPeriod: "day"}
	rep, err := Run(context.Background(), "pivot-hits", series, timeframe.M15, p, nil)
	if err != nil {
		t.Fatal(err)
	}
	bars, err := ChartSeries("pivot-hits", series, timeframe.M15, rep.Params)
	if err != nil {
		t.Fatal(err)
	}

	charted := 0
	for _, eo := range rep.Events {
		if eo.Outcome.HitTime == nil {
			continue
		}
		c, err := Chart(bars, eo, 2, 2)
		if err != nil {
			t.Fatalf("%s: %v", eo.Event.ID, err)
		}
		if indexAt(c.Candles, *eo.Outcome.HitTime) < 0 {
			t.Errorf("%s: hit bar %s outside chart window", eo.Event.Kind, eo.Outcome.HitTime.Format(time.RFC3339))
		}
		charted++
	}
	if charted == 0 {
		t.Fatal("no pivot hits to chart")
	}
}
