package scan

import (
	"testing"
	"time"

	"sweepstat/pkg/model"
)

func series(bars ...[2]float64) []model.Candle {
	start := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	out := make([]model.Candle, len(bars))
	for i, b := range bars {
		lo, hi := b[0], b[1]
		out[i] = model.Candle{
			Time: start.Add(time.Duration(i) * time.Hour),
			Open: lo, High: hi, Low: lo, Close: hi,
		}
	}
	return out
}

func TestScan_DownTargetHit(t *testing.T) {
	candles := series(
		[2]float64{100, 103}, // anchor
		[2]float64{100.5, 104},
		[2]float64{101, 106},
		[2]float64{99, 102}, // hit
	)
	out, err := Scan(candles, Request{Start: 0, Reference: 102, Target: 100, Side: Down, MaxBars: 10})
	if err != nil {
		t.Fatal(err)
	}
	if !out.Hit || out.FillStatus != model.Full {
		t.Fatalf("expected full hit, got %+v", out)
	}
	if *out.BarsToHit != 3 {
		t.Errorf("expected 3 bars to hit, got %d", *out.BarsToHit)
	}
	if !out.HitTime.Equal(candles[3].Time) {
		t.Errorf("expected hit time %s, got %s", candles[3].Time, out.HitTime)
	}
	// Worst high before the hit bar is 106 against reference 102.
	if out.MAE != 4 {
		t.Errorf("expected MAE 4, got %f", out.MAE)
	}
}

func TestScan_Bounded(t *testing.T) {
	candles := series(
		[2]float64{100, 101},
		[2]float64{100, 101},
		[2]float64{100, 101},
		[2]float64{100, 120}, // would hit but is beyond the window
	)
	out, err := Scan(candles, Request{Start: 0, Reference: 101, Target: 110, Side: Up, MaxBars: 2})
	if err != nil {
		t.Fatal(err)
	}
	if out.Hit {
		t.Fatal("hit outside the lookforward window")
	}
	if out.BarsToHit != nil || out.HitTime != nil {
		t.Errorf("expected nil bars/time for null convention, got %+v", out)
	}
	if out.BarsObserved != 2 {
		t.Errorf("expected 2 bars observed, got %d", out.BarsObserved)
	}
	if out.MAE != 1 {
		t.Errorf("expected MAE 1 over the whole window, got %f", out.MAE)
	}
}

func TestScan_UnfilledWindowSentinel(t *testing.T) {
	candles := series([2]float64{100, 101}, [2]float64{100, 101}, [2]float64{100, 101})
	out, err := Scan(candles, Request{Start: 0, Reference: 100, Target: 110, Side: Up, MaxBars: 5, Unfilled: UnfilledWindow})
	if err != nil {
		t.Fatal(err)
	}
	if out.FillStatus != model.Unfilled {
		t.Errorf("expected unfilled, got %s", out.FillStatus)
	}
	if out.BarsToHit == nil || *out.BarsToHit != 2 {
		t.Errorf("expected sentinel of 2 observed bars, got %v", out.BarsToHit)
	}
}

func TestScan_PartialThenFull(t *testing.T) {
	candles := series(
		[2]float64{100, 100},
		[2]float64{100, 105}, // partial at 105
		[2]float64{99, 104},
		[2]float64{100, 111}, // full at 110
	)
	partial := PartialPrice(100, 110, 50)
	out, err := Scan(candles, Request{Start: 0, Reference: 100, Target: 110, Side: Up, MaxBars: 10, PartialLevel: &partial})
	if err != nil {
		t.Fatal(err)
	}
	if !out.PartialHit || *out.BarsToPartial != 1 {
		t.Errorf("expected partial at bar 1, got %+v", out)
	}
	if !out.Hit || *out.BarsToHit != 3 {
		t.Errorf("expected full at bar 3, got %+v", out)
	}
	if *out.BarsToPartial > *out.BarsToHit {
		t.Error("partial recorded after full")
	}
	if out.MAE != 1 || out.MAEPercent != 1 {
		t.Errorf("expected MAE 1 (1%%), got %f (%f%%)", out.MAE, out.MAEPercent)
	}
}

func TestScan_PartialOnly(t *testing.T) {
	candles := series([2]float64{100, 100}, [2]float64{100, 106})
	partial := 105.0
	out, err := Scan(candles, Request{Start: 0, Reference: 100, Target: 110, Side: Up, MaxBars: 3, PartialLevel: &partial})
	if err != nil {
		t.Fatal(err)
	}
	if out.FillStatus != model.Partial {
		t.Errorf("expected partial fill status, got %s", out.FillStatus)
	}
}

func TestScan_InvalidRequests(t *testing.T) {
	candles := series([2]float64{100, 101})
	tests := []struct {
		name string
		req  Request
	}{
		{"zero lookforward", Request{Start: 0, MaxBars: 0}},
		{"start past end", Request{Start: 5, MaxBars: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Scan(candles, tt.req); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestPercent_DegenerateBase(t *testing.T) {
	if Percent(5, 0) != 0 {
		t.Error("expected 0 for zero base")
	}
}
