// Package analyzer runs named analyses over a candle series: it validates
// parameters, wires resampling, segmentation, detection and scanning
// together, and assembles the results into a Report.
package analyzer

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"sweepstat/internal/detect"
	"sweepstat/internal/resample"
	"sweepstat/internal/segment"
	"sweepstat/internal/stats"
	"sweepstat/internal/timeframe"
	"sweepstat/internal/timing"
	"sweepstat/pkg/model"
)

// Func is the body of an analysis.
type Func func(ctx context.Context, in *Input) (*Report, error)

// Input is what an analysis runs on. Series must be at Base resolution.
type Input struct {
	Series []model.Candle
	Base   timeframe.Timeframe
	Params Params
	Log    *zap.Logger

	res resolved
}

// Report is the result of one analysis run.
type Report struct {
	Analysis  string               `json:"analysis"`
	Params    Params               `json:"params"`
	Timeframe string               `json:"timeframe,omitempty"`
	Bars      int                  `json:"bars"`
	Periods   int                  `json:"periods,omitempty"`
	Skipped   int                  `json:"skipped"`
	Elapsed   time.Duration        `json:"-"`
	Timing    *TimingReport        `json:"timing,omitempty"`
	OTF       *OTFReport           `json:"otf,omitempty"`
	Events    []model.EventOutcome `json:"events,omitempty"`
	Summary   *stats.Summary       `json:"summary,omitempty"`
	Groups    []stats.Group        `json:"groups,omitempty"`
	Curve     []stats.ProbPoint    `json:"curve,omitempty"`
	Histogram []stats.Bin          `json:"histogram,omitempty"`
	Profiles  []ProfileRow         `json:"profiles,omitempty"`
}

// TimingReport holds the extremum-timing tables.
type TimingReport struct {
	Bucketing timing.Bucketing          `json:"bucketing"`
	Tables    []timing.Table            `json:"tables"`
	P1        timing.P1Split            `json:"p1"`
	Since     map[string][]timing.Since `json:"since"`
	LastGap   []GapRow                  `json:"last_gap"`
	HitRate   []timing.HitPoint         `json:"hit_rate,omitempty"`
	HitKey    string                    `json:"hit_key,omitempty"`
}

// GapRow is the distance from the latest period back to the previous one
// sharing its bucket.
type GapRow struct {
	Metric  timing.Metric `json:"metric"`
	Key     string        `json:"key"`
	Periods int           `json:"periods"`
	Found   bool          `json:"found"`
}

// OTFReport summarises one-time-framing runs.
type OTFReport struct {
	Runs          []detect.OTFRun `json:"runs"`
	Bullish       int             `json:"bullish"`
	Bearish       int             `json:"bearish"`
	SuccessRate   float64         `json:"success_rate"`
	BullishRate   float64         `json:"bullish_success_rate"`
	BearishRate   float64         `json:"bearish_success_rate"`
	AvgNetPercent float64         `json:"avg_net_percent"`
}

// Run executes the named analysis. The series is normalized first; candles
// that fail the OHLC ordering or repeat a timestamp are counted as skipped.
func Run(ctx context.Context, name string, series []model.Candle, base timeframe.Timeframe, p Params, log *zap.Logger) (*Report, error) {
	a, err := Get(name)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	p = p.Merge(DefaultParams())

	clean, dropped := model.Normalize(series)
	in := &Input{Series: clean, Base: base, Params: p, Log: log.With(zap.String("analysis", name))}

	start := time.Now()
	rep, err := a.Run(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	rep.Analysis = name
	rep.Params = p
	rep.Skipped += dropped
	rep.Elapsed = time.Since(start)
	in.Log.Debug("analysis finished",
		zap.Int("bars", rep.Bars),
		zap.Int("events", len(rep.Events)),
		zap.Int("skipped", rep.Skipped),
		zap.Duration("elapsed", rep.Elapsed))
	return rep, nil
}

func (in *Input) resolve(needSessions bool) error {
	r, err := resolve(in.Params, needSessions)
	if err != nil {
		return err
	}
	in.res = r
	return nil
}

// bars resamples the input to the requested timeframe and cuts it to the
// date range.
func (in *Input) bars() ([]model.Candle, error) {
	var (
		out []model.Candle
		err error
	)
	if in.res.Timeframe == timeframe.Session {
		out, err = resample.Sessions(in.Series, in.res.Sessions)
	} else {
		out, err = resample.To(in.Series, in.Base, in.res.Timeframe)
	}
	if err != nil {
		return nil, configErr("timeframe", "%v", err)
	}
	return inRange(out, in.res.Range), nil
}

func inRange(candles []model.Candle, r segment.DateRange) []model.Candle {
	lo, hi := 0, len(candles)
	for lo < hi && !r.Contains(candles[lo].Time) {
		lo++
	}
	for hi > lo && !r.Contains(candles[hi-1].Time) {
		hi--
	}
	return candles[lo:hi]
}

// evaluate scans every setup, checking for cancellation between batches.
func evaluate(ctx context.Context, candles []model.Candle, setups []detect.Setup) ([]model.EventOutcome, error) {
	const batch = 512
	out := make([]model.EventOutcome, 0, len(setups))
	for i := 0; i < len(setups); i += batch {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := i + batch
		if end > len(setups) {
			end = len(setups)
		}
		res, err := detect.Evaluate(candles, setups[i:end])
		if err != nil {
			return nil, err
		}
		out = append(out, res...)
	}
	return out, nil
}

// eventReport fills the summary fields shared by event analyses.
func eventReport(events []model.EventOutcome, bins, maxBars int) *Report {
	s := stats.Summarize(events)
	return &Report{
		Events:    events,
		Summary:   &s,
		Curve:     stats.CumulativeProbability(events, maxBars),
		Histogram: stats.MAEHistogram(events, bins),
	}
}

// keepDays drops events whose anchor weekday fails the filter.
func keepDays(events []model.EventOutcome, days segment.Weekdays) []model.EventOutcome {
	if len(days) == 0 {
		return events
	}
	out := events[:0]
	for _, e := range events {
		if days.Has(e.Event.AnchorTime.UTC().Weekday()) {
			out = append(out, e)
		}
	}
	return out
}
