package model

import (
	"testing"
	"time"
)

func TestNormalize(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	in := []Candle{
		{Time: t0.Add(30 * time.Minute), Open: 3, High: 4, Low: 2, Close: 3},
		{Time: t0, Open: 1, High: 2, Low: 0.5, Close: 1.5},
		{Time: t0, Open: 9, High: 9, Low: 9, Close: 9},
		{Time: t0.Add(15 * time.Minute), Open: 5, High: 4, Low: 3, Close: 3.5},
	}
	got, dropped := Normalize(in)
	if dropped != 2 {
		t.Errorf("dropped = %d, want 2", dropped)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Open != 1 || !got[1].Time.Equal(t0.Add(30*time.Minute)) {
		t.Errorf("unexpected order: %+v", got)
	}
	if !in[0].Time.Equal(t0.Add(30 * time.Minute)) {
		t.Error("input was modified")
	}
	if err := CheckSeries(got); err != nil {
		t.Error(err)
	}
}

func TestCheckSeries(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if err := CheckSeries([]Candle{{Time: t0}, {Time: t0}}); err == nil {
		t.Error("expected error for duplicate timestamps")
	}
}

func TestCandleHelpers(t *testing.T) {
	c := Candle{Open: 10, High: 12, Low: 9, Close: 11}
	if !c.Valid() || !c.Bullish() || c.Bearish() {
		t.Error("unexpected candle classification")
	}
	if c.Range() != 3 {
		t.Errorf("range = %g", c.Range())
	}
	if !c.Touches(12) || c.Touches(12.5) {
		t.Error("unexpected Touches result")
	}
}
