package resample

import (
	"testing"
	"time"

	"sweepstat/internal/session"
	"sweepstat/internal/timeframe"
	"sweepstat/pkg/model"
)

func bars15m(start time.Time, n int) []model.Candle {
	out := make([]model.Candle, n)
	price := 100.0
	for i := 0; i < n; i++ {
		o := price
		c := price + float64(i%3) - 1
		hi, lo := o, c
		if c > hi {
			hi, lo = c, o
		}
		out[i] = model.Candle{
			Time:   start.Add(time.Duration(i) * 15 * time.Minute),
			Open:   o,
			High:   hi + 0.5,
			Low:    lo - 0.5,
			Close:  c,
			Volume: 10,
		}
		price = c
	}
	return out
}

func TestResample_Hourly(t *testing.T) {
	start := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	candles := bars15m(start, 8)

	got, err := Resample(candles, timeframe.H1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 bars, got %d", len(got))
	}

	first := got[0]
	if !first.Time.Equal(start) {
		t.Errorf("expected first bar at %s, got %s", start, first.Time)
	}
	if first.Open != candles[0].Open {
		t.Errorf("expected open %f, got %f", candles[0].Open, first.Open)
	}
	if first.Close != candles[3].Close {
		t.Errorf("expected close %f, got %f", candles[3].Close, first.Close)
	}
	if first.Volume != 40 {
		t.Errorf("expected volume 40, got %f", first.Volume)
	}
	for _, c := range candles[:4] {
		if c.High > first.High {
			t.Errorf("bar high %f below member high %f", first.High, c.High)
		}
		if c.Low < first.Low {
			t.Errorf("bar low %f above member low %f", first.Low, c.Low)
		}
	}
	for _, b := range got {
		if !b.Valid() {
			t.Errorf("resampled bar violates OHLC ordering: %+v", b)
		}
	}
}

func TestResample_EpochAligned(t *testing.T) {
	// First candle at 00:45 still lands in the 00:00 hour bucket.
	start := time.Date(2024, 3, 4, 0, 45, 0, 0, time.UTC)
	got, err := Resample(bars15m(start, 2), timeframe.H1)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 bars, got %d", len(got))
	}
	if got[0].Time.Hour() != 0 || got[1].Time.Hour() != 1 {
		t.Errorf("expected buckets at 00:00 and 01:00, got %s and %s", got[0].Time, got[1].Time)
	}
}

func TestResample_Idempotent(t *testing.T) {
	start := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	hourly, err := Resample(bars15m(start, 96), timeframe.H1)
	if err != nil {
		t.Fatal(err)
	}
	again, err := Resample(hourly, timeframe.H1)
	if err != nil {
		t.Fatal(err)
	}
	if len(again) != len(hourly) {
		t.Fatalf("expected %d bars, got %d", len(hourly), len(again))
	}
	for i := range hourly {
		if hourly[i] != again[i] {
			t.Errorf("bar %d differs: %+v vs %+v", i, hourly[i], again[i])
		}
	}
}

func TestResample_Empty(t *testing.T) {
	got, err := Resample(nil, timeframe.D1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty output, got %d bars", len(got))
	}
}

func TestResample_WeekStartsMonday(t *testing.T) {
	sunday := time.Date(2024, 3, 10, 23, 0, 0, 0, time.UTC)
	monday := time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)
	candles := []model.Candle{
		{Time: sunday, Open: 1, High: 2, Low: 1, Close: 2},
		{Time: monday, Open: 2, High: 3, Low: 2, Close: 3},
	}
	got, err := Resample(candles, timeframe.W1)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("expected Sunday and Monday in different weeks, got %d bars", len(got))
	}
	if !got[1].Time.Equal(monday) {
		t.Errorf("expected second week to start %s, got %s", monday, got[1].Time)
	}
}

func TestResample_Monthly(t *testing.T) {
	candles := []model.Candle{
		{Time: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), Open: 10, High: 12, Low: 9, Close: 11, Volume: 1},
		{Time: time.Date(2024, 1, 31, 23, 0, 0, 0, time.UTC), Open: 11, High: 15, Low: 10, Close: 14, Volume: 2},
		{Time: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), Open: 14, High: 14.5, Low: 8, Close: 9, Volume: 3},
		{Time: time.Date(2024, 2, 29, 12, 0, 0, 0, time.UTC), Open: 9, High: 10, Low: 8.5, Close: 9.5, Volume: 4},
	}
	got, err := Resample(candles, timeframe.MN1)
	if err != nil {
		t.Fatal(err)
	}
	want := []model.Candle{
		{Time: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Open: 10, High: 15, Low: 9, Close: 14, Volume: 3},
		{Time: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), Open: 14, High: 14.5, Low: 8, Close: 9.5, Volume: 7},
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d months, got %d", len(want), len(got))
	}
	for i := range want {
		g, w := got[i], want[i]
		if !g.Time.Equal(w.Time) || g.Open != w.Open || g.High != w.High || g.Low != w.Low || g.Close != w.Close || g.Volume != w.Volume {
			t.Errorf("month %d = %+v, want %+v", i, g, w)
		}
	}
}

func TestResample_MissingSessionIsAbsent(t *testing.T) {
	day := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	all := bars15m(day, 96)

	// Drop the whole London window (06:00-12:00).
	var gapped []model.Candle
	for _, c := range all {
		if h := c.Time.Hour(); h >= 6 && h < 12 {
			continue
		}
		gapped = append(gapped, c)
	}

	got, err := Sessions(gapped, session.Default())
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 session bars, got %d", len(got))
	}
	for _, b := range got {
		if session.Name(b.Time) == "London" {
			t.Errorf("London bucket should be absent, got %+v", b)
		}
	}
}

func TestTo_RejectsUpsampling(t *testing.T) {
	if _, err := To(nil, timeframe.H1, timeframe.M15); err == nil {
		t.Error("expected error when resampling 1h to 15m")
	}
}
