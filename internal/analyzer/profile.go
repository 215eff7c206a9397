package analyzer

import (
	"context"
	"time"

	"go.uber.org/zap"

	"sweepstat/internal/segment"
	"sweepstat/internal/stats"
	"sweepstat/internal/timeframe"
	"sweepstat/internal/tpo"
	"sweepstat/pkg/model"
)

// ProfileRow is one period's TPO profile summary.
type ProfileRow struct {
	Start    time.Time    `json:"start"`
	Label    string       `json:"label"`
	Session  string       `json:"session,omitempty"`
	Tick     float64      `json:"tick"`
	Letters  int          `json:"letters"`
	Analysis tpo.Analysis `json:"analysis"`
	// Sweep results; zero when the extreme is not poor.
	HighSwept   bool `json:"high_swept"`
	HighPeriods int  `json:"high_periods,omitempty"`
	LowSwept    bool `json:"low_swept"`
	LowPeriods  int  `json:"low_periods,omitempty"`
}

func tpoPoorExtremes(ctx context.Context, in *Input) (*Report, error) {
	g, err := segment.ParseGranularity(in.Params.TPOPeriod)
	if err != nil || (g != segment.Day && g != segment.Session) {
		return nil, configErr("tpo_period", "must be day or session, got %q", in.Params.TPOPeriod)
	}
	if err := in.resolve(g == segment.Session); err != nil {
		return nil, err
	}
	if tf := in.res.Timeframe; tf == timeframe.Session || !tf.Finer(timeframe.D1) {
		return nil, configErr("timeframe", "TPO letters need intraday bars, got %s", tf)
	}
	if in.Params.TPOTick < 0 {
		return nil, configErr("tpo_tick", "must not be negative, got %g", in.Params.TPOTick)
	}

	bars, err := in.bars()
	if err != nil {
		return nil, err
	}
	// Every period is kept for sweep lookups; the weekday filter only picks
	// which periods get a profile.
	periods, err := segment.Segment(bars, segment.Params{Granularity: g, Sessions: in.res.Sessions})
	if err != nil {
		return nil, err
	}

	rep := &Report{Timeframe: in.res.Timeframe.String(), Bars: len(bars), Periods: len(periods)}
	profiles := make([]*tpo.Profile, len(periods))
	rowOf := make(map[int]int)
	for k, p := range periods {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !in.res.Days.Has(p.Start.Weekday()) {
			continue
		}
		if p.High-p.Low == 0 {
			rep.Skipped++
			continue
		}
		pb := bars[p.FirstIdx : p.LastIdx+1]
		tick := in.Params.TPOTick
		if tick == 0 {
			tick = tpo.AutoTick(pb, in.Params.TPOATRPeriod, in.Params.TPOTickMultiplier)
		}
		prof, err := tpo.Build(pb, p.FirstIdx, tick)
		if err != nil {
			in.Log.Debug("profile skipped", zap.Time("start", p.Start), zap.Error(err))
			rep.Skipped++
			continue
		}
		profiles[k] = prof
		rowOf[p.FirstIdx] = len(rep.Profiles)
		rep.Profiles = append(rep.Profiles, ProfileRow{
			Start:    p.Start,
			Label:    p.Label,
			Session:  p.Session,
			Tick:     tick,
			Letters:  len(pb),
			Analysis: tpo.Analyze(prof),
		})
	}

	poors, err := tpo.Sweeps(bars, periods, profiles, in.Params.TPOMaxPeriods)
	if err != nil {
		return nil, err
	}
	events := make([]model.EventOutcome, 0, len(poors))
	maxBars := 1
	for _, pr := range poors {
		events = append(events, pr.Event(bars))
		if pr.Outcome.BarsObserved > maxBars {
			maxBars = pr.Outcome.BarsObserved
		}
		row := &rep.Profiles[rowOf[pr.Period.FirstIdx]]
		if pr.Side == model.Top {
			row.HighSwept, row.HighPeriods = pr.Swept, pr.PeriodsToSweep
		} else {
			row.LowSwept, row.LowPeriods = pr.Swept, pr.PeriodsToSweep
		}
	}

	s := stats.Summarize(events)
	rep.Events = events
	rep.Summary = &s
	rep.Curve = stats.CumulativeProbability(events, maxBars)
	rep.Histogram = stats.MAEHistogram(events, in.Params.HistogramBins)
	rep.Groups = stats.GroupBy(events, func(e model.EventOutcome) string { return e.Event.Kind })
	return rep, nil
}
