// Package scanner runs many analyses over one series in parallel.
package scanner

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"sweepstat/internal/analyzer"
	"sweepstat/internal/timeframe"
	"sweepstat/pkg/model"
)

// ProgressCallback is called with progress updates
type ProgressCallback func(done, total int)

// Result is one analysis outcome. Exactly one of Report and Err is set.
type Result struct {
	Name   string
	Report *analyzer.Report
	Err    error
}

// ScanResult holds every result, in the order the names were given.
type ScanResult struct {
	Results  []Result
	Failed   int
	ScanTime time.Duration
}

// Scanner fans analyses out to a worker pool.
type Scanner struct {
	workers      int
	timeout      time.Duration
	log          *zap.Logger
	progressFunc ProgressCallback
}

// NewScanner creates a scanner. workers < 1 means one per CPU; timeout <= 0
// means none.
func NewScanner(workers int, timeout time.Duration, log *zap.Logger) *Scanner {
	if workers < 1 {
		workers = runtime.NumCPU()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Scanner{workers: workers, timeout: timeout, log: log}
}

// SetProgressCallback sets the progress callback function
func (s *Scanner) SetProgressCallback(fn ProgressCallback) {
	s.progressFunc = fn
}

// Scan runs the named analyses. Failures of individual analyses are recorded
// in their Result; the error is non-nil only when ctx ends first.
func (s *Scanner) Scan(ctx context.Context, names []string, series []model.Candle, base timeframe.Timeframe, p analyzer.Params) (*ScanResult, error) {
	startTime := time.Now()
	results := make([]Result, len(names))

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	jobs := make(chan int, len(names))
	for i := range names {
		jobs <- i
	}
	close(jobs)

	var done int64
	var wg sync.WaitGroup
	for w := 0; w < min(s.workers, len(names)); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if ctx.Err() != nil {
					return
				}
				rep, err := analyzer.Run(ctx, names[i], series, base, p, s.log)
				results[i] = Result{Name: names[i], Report: rep, Err: err}

				count := atomic.AddInt64(&done, 1)
				if s.progressFunc != nil {
					s.progressFunc(int(count), len(names))
				}
			}
		}()
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := &ScanResult{Results: results, ScanTime: time.Since(startTime)}
	for _, r := range results {
		if r.Err != nil {
			out.Failed++
			s.log.Warn("analysis failed", zap.String("analysis", r.Name), zap.Error(r.Err))
		}
	}
	return out, nil
}
