package analyzer

import (
	"context"

	"go.uber.org/zap"

	"sweepstat/internal/segment"
	"sweepstat/internal/timing"
)

// extremes builds an extremum-timing analysis for one granularity and
// bucketing. Periods are segmented from the base series so extreme times
// keep full resolution.
func extremes(g segment.Granularity, b timing.Bucketing) Func {
	return func(ctx context.Context, in *Input) (*Report, error) {
		needSessions := g == segment.Session || b == timing.BySession
		if err := in.resolve(needSessions); err != nil {
			return nil, err
		}
		if in.Params.HitRateWindow < 1 {
			return nil, configErr("hit_rate_window", "must be at least 1, got %d", in.Params.HitRateWindow)
		}
		metric := timing.Metric(in.Params.HitRateMetric)
		if !validMetric(metric) {
			return nil, configErr("hit_rate_metric", "unknown metric %q", in.Params.HitRateMetric)
		}

		periods, err := segment.Segment(in.Series, segment.Params{
			Granularity: g,
			Range:       in.res.Range,
			Days:        in.res.Days,
			Sessions:    in.res.Sessions,
		})
		if err != nil {
			return nil, err
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		in.Log.Debug("segmented", zap.String("granularity", string(g)), zap.Int("periods", len(periods)))

		tr := &TimingReport{
			Bucketing: b,
			Tables:    timing.FrequencyAll(periods, b),
			P1:        timing.SplitP1(periods),
			Since:     make(map[string][]timing.Since),
		}
		for _, m := range timing.Metrics() {
			tr.Since[string(m)] = timing.PeriodsSince(periods, m, b)
			key, gap, ok := timing.Gap(periods, m, b)
			tr.LastGap = append(tr.LastGap, GapRow{Metric: m, Key: key, Periods: gap, Found: ok})
		}

		key := in.Params.HitRateKey
		if key == "" {
			for _, t := range tr.Tables {
				if t.Metric == metric {
					if top, ok := t.Top(); ok {
						key = top.Key
					}
				}
			}
		}
		if key != "" {
			series, err := timing.HitRateSeries(periods, metric, b, key, in.Params.HitRateWindow)
			if err != nil {
				return nil, err
			}
			tr.HitRate, tr.HitKey = series, key
		}

		return &Report{Bars: len(in.Series), Periods: len(periods), Timing: tr}, nil
	}
}

func validMetric(m timing.Metric) bool {
	for _, x := range timing.Metrics() {
		if x == m {
			return true
		}
	}
	return false
}
