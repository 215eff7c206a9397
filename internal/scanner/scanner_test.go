package scanner

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"sweepstat/internal/analyzer"
	"sweepstat/internal/timeframe"
	"sweepstat/pkg/model"
)

func wave(n int) []model.Candle {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]model.Candle, n)
	for i := range out {
		mid := 1000 + 40*math.Sin(float64(i)/37)
		out[i] = model.Candle{
			Time:  start.Add(time.Duration(i) * 15 * time.Minute),
			Open:  mid - 2,
			High:  mid + 5,
			Low:   mid - 5,
			Close: mid + 2,
		}
	}
	return out
}

func TestScan(t *testing.T) {
	names := analyzer.List()
	s := NewScanner(4, time.Minute, nil)

	var calls atomic.Int32
	var last atomic.Int32
	s.SetProgressCallback(func(done, total int) {
		calls.Add(1)
		if total != len(names) {
			t.Errorf("total = %d", total)
		}
		last.Store(int32(done))
	})

	res, err := s.Scan(context.Background(), names, wave(96*21), timeframe.M15, analyzer.Params{RoundInterval: 10})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(res.Results) != len(names) {
		t.Fatalf("results = %d, want %d", len(res.Results), len(names))
	}
	for i, r := range res.Results {
		if r.Name != names[i] {
			t.Errorf("result %d = %s, want %s", i, r.Name, names[i])
		}
		if r.Err != nil {
			t.Errorf("%s: %v", r.Name, r.Err)
		} else if r.Report.Analysis != r.Name {
			t.Errorf("report analysis = %s", r.Report.Analysis)
		}
	}
	if int(calls.Load()) != len(names) || int(last.Load()) != len(names) {
		t.Errorf("progress calls = %d, last = %d", calls.Load(), last.Load())
	}
}

func TestScan_FailureRecorded(t *testing.T) {
	s := NewScanner(2, 0, nil)
	res, err := s.Scan(context.Background(), []string{"naked-opens", "nope"}, wave(200), timeframe.M15, analyzer.Params{})
	if err != nil {
		t.Fatal(err)
	}
	if res.Failed != 1 || res.Results[0].Err != nil {
		t.Errorf("result = %+v", res)
	}
	if !errors.Is(res.Results[1].Err, analyzer.ErrUnknownAnalysis) {
		t.Errorf("err = %v", res.Results[1].Err)
	}
}

func TestScan_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := NewScanner(2, 0, nil)
	if _, err := s.Scan(ctx, analyzer.List(), wave(200), timeframe.M15, analyzer.Params{}); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
