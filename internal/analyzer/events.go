package analyzer

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"sweepstat/internal/detect"
	"sweepstat/internal/segment"
	"sweepstat/internal/stats"
	"sweepstat/internal/timeframe"
	"sweepstat/pkg/model"
)

// defaultLookforwardDays is the forward window, in days of bars, for
// analyses without a fixed lookforward table.
const defaultLookforwardDays = 5

func (in *Input) lookforward(tf timeframe.Timeframe) int {
	if in.Params.Lookforward > 0 {
		return in.Params.Lookforward
	}
	return tf.BarsPerDay() * defaultLookforwardDays
}

func oneTimeFraming(ctx context.Context, in *Input) (*Report, error) {
	if err := in.resolve(false); err != nil {
		return nil, err
	}
	cfg := in.Params.otfConfig()
	if cfg.Run < 1 {
		return nil, configErr("otf_run", "must be at least 1, got %d", cfg.Run)
	}
	bars, err := in.bars()
	if err != nil {
		return nil, err
	}
	runs, err := detect.OneTimeFraming(bars, cfg)
	if err != nil {
		return nil, err
	}

	rep := &OTFReport{}
	var wins, bullWins, bearWins int
	var net []float64
	for _, r := range runs {
		if !in.res.Days.Has(r.Event.AnchorTime.UTC().Weekday()) {
			continue
		}
		rep.Runs = append(rep.Runs, r)
		net = append(net, r.NetPercent)
		if r.Success {
			wins++
		}
		if r.Event.Direction == model.Bullish {
			rep.Bullish++
			if r.Success {
				bullWins++
			}
		} else {
			rep.Bearish++
			if r.Success {
				bearWins++
			}
		}
	}
	rep.SuccessRate = stats.Rate(wins, len(rep.Runs))
	rep.BullishRate = stats.Rate(bullWins, rep.Bullish)
	rep.BearishRate = stats.Rate(bearWins, rep.Bearish)
	rep.AvgNetPercent = stats.Mean(net)
	return &Report{Timeframe: in.res.Timeframe.String(), Bars: len(bars), OTF: rep}, nil
}

func nakedOpens(ctx context.Context, in *Input) (*Report, error) {
	if err := in.resolve(false); err != nil {
		return nil, err
	}
	bars, err := in.bars()
	if err != nil {
		return nil, err
	}
	tol := detect.DefaultFlatTolerance
	if in.Params.FlatTolerance != nil {
		if tol = *in.Params.FlatTolerance; tol < 0 {
			return nil, configErr("flat_tolerance", "must not be negative, got %g", tol)
		}
	}
	n := in.lookforward(in.res.Timeframe)
	setups, err := detect.NakedOpens(bars, detect.NakedOpenConfig{Tolerance: tol, Lookforward: n})
	if err != nil {
		return nil, configErr("lookforward", "%v", err)
	}
	return in.finish(ctx, bars, setups, n, byDirection)
}

func wickFills(ctx context.Context, in *Input) (*Report, error) {
	if err := in.resolve(false); err != nil {
		return nil, err
	}
	n := in.lookforward(in.res.Timeframe)
	cfg := detect.WickConfig{
		Mode:        detect.WickMode(lower(in.Params.WickMode)),
		Side:        detect.WickSide(lower(in.Params.WickSide)),
		MinPercent:  in.Params.WickMinPct,
		PartialPct:  in.Params.PartialPct,
		Lookforward: n,
	}
	if err := cfg.Validate(); err != nil {
		return nil, configErr("wick", "%v", err)
	}
	bars, err := in.bars()
	if err != nil {
		return nil, err
	}
	setups, err := detect.Wicks(bars, cfg)
	if err != nil {
		return nil, err
	}
	return in.finish(ctx, bars, setups, n, byDirection)
}

func gapFills(ctx context.Context, in *Input) (*Report, error) {
	if err := in.resolve(false); err != nil {
		return nil, err
	}
	end, err := detect.ParseClock(in.Params.GapEnd)
	if err != nil {
		return nil, configErr("gap_end", "%v", err)
	}
	start, err := detect.ParseClock(in.Params.GapStart)
	if err != nil {
		return nil, configErr("gap_start", "%v", err)
	}
	if end == start {
		return nil, configErr("gap_start", "must differ from gap_end %s", end)
	}
	if in.Params.PartialPct < 0 || in.Params.PartialPct > 100 {
		return nil, configErr("partial_pct", "must be within 0-100, got %g", in.Params.PartialPct)
	}

	// Gaps are read off the base series, where the clock times are exact.
	bars := inRange(in.Series, in.res.Range)
	n := in.lookforward(in.Base)
	setups, err := detect.Gaps(bars, detect.GapConfig{
		End:         end,
		Start:       start,
		MinPercent:  in.Params.GapMinPct,
		PartialPct:  in.Params.PartialPct,
		Lookforward: n,
	})
	if err != nil {
		return nil, err
	}
	rep, err := in.finish(ctx, bars, setups, n, byDirection)
	if err != nil {
		return nil, err
	}
	rep.Timeframe = in.Base.String()
	return rep, nil
}

func quartileOpens(ctx context.Context, in *Input) (*Report, error) {
	if err := in.resolve(false); err != nil {
		return nil, err
	}
	bars, err := in.bars()
	if err != nil {
		return nil, err
	}
	n := in.res.Timeframe.QuartileLookforward()
	if in.Params.Lookforward > 0 {
		n = in.Params.Lookforward
	}
	setups, err := detect.QuartileOpens(bars, detect.QuartileConfig{Lookforward: n})
	if err != nil {
		return nil, err
	}
	rep, err := in.finish(ctx, bars, setups, n, byDirection)
	if err != nil {
		return nil, err
	}
	for i := 0; i+1 < len(bars); i++ {
		if bars[i].Range() <= 0 {
			rep.Skipped++
		}
	}
	return rep, nil
}

func roundNumbers(ctx context.Context, in *Input) (*Report, error) {
	if err := in.resolve(false); err != nil {
		return nil, err
	}
	if in.Params.RoundInterval <= 0 {
		return nil, configErr("round_interval", "must be positive, got %g", in.Params.RoundInterval)
	}
	if in.Params.RoundThresholdPct <= 0 {
		return nil, configErr("round_threshold_pct", "must be positive, got %g", in.Params.RoundThresholdPct)
	}
	bars, err := in.bars()
	if err != nil {
		return nil, err
	}
	n := in.lookforward(in.res.Timeframe)
	setups, err := detect.RoundNumbers(bars, detect.RoundNumberConfig{
		Interval:     in.Params.RoundInterval,
		ThresholdPct: in.Params.RoundThresholdPct,
		Lookback:     in.Params.RoundLookback,
		Lookforward:  n,
	})
	if err != nil {
		return nil, configErr("round", "%v", err)
	}
	return in.finish(ctx, bars, setups, n, byDirection)
}

func pivotHits(ctx context.Context, in *Input) (*Report, error) {
	if err := in.resolve(false); err != nil {
		return nil, err
	}
	g, err := segment.ParseGranularity(in.Params.PivotPeriod)
	if err != nil || (g != segment.Day && g != segment.Week) {
		return nil, configErr("pivot_period", "must be day or week, got %q", in.Params.PivotPeriod)
	}

	// The weekday filter applies to the period being traded, not to the one
	// the pivots come from, so segmentation itself is unfiltered.
	bars := inRange(in.Series, in.res.Range)
	periods, err := segment.Segment(bars, segment.Params{Granularity: g})
	if err != nil {
		return nil, err
	}
	longest := 1
	for _, p := range periods {
		if p.Bars() > longest {
			longest = p.Bars()
		}
	}

	rep, err := in.finish(ctx, bars, detect.PivotHits(bars, periods), longest, func(e model.EventOutcome) string {
		return strings.TrimPrefix(e.Event.Kind, "pivot-")
	})
	if err != nil {
		return nil, err
	}
	rep.Timeframe = in.Base.String()
	rep.Periods = len(periods)
	return rep, nil
}

func byDirection(e model.EventOutcome) string { return string(e.Event.Direction) }

// finish evaluates setups, applies the weekday filter to anchors and builds
// the event report.
func (in *Input) finish(ctx context.Context, bars []model.Candle, setups []detect.Setup, maxBars int, group func(model.EventOutcome) string) (*Report, error) {
	events, err := evaluate(ctx, bars, setups)
	if err != nil {
		return nil, err
	}
	before := len(events)
	events = keepDays(events, in.res.Days)
	in.Log.Debug("events evaluated", zap.Int("detected", before), zap.Int("kept", len(events)))

	rep := eventReport(events, in.Params.HistogramBins, maxBars)
	rep.Timeframe = in.res.Timeframe.String()
	rep.Bars = len(bars)
	rep.Groups = stats.GroupBy(events, group)
	return rep, nil
}
