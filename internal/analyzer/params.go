package analyzer

import (
	"strings"
	"time"

	"sweepstat/internal/detect"
	"sweepstat/internal/segment"
	"sweepstat/internal/session"
	"sweepstat/internal/timeframe"
	"sweepstat/internal/timing"
)

const dateLayout = "2006-01-02"

// Params carries every knob an analysis may read. Zero values fall back to
// the per-analysis defaults, so one Params value can drive any analysis.
type Params struct {
	From      string   `json:"from,omitempty" yaml:"from"` // inclusive, YYYY-MM-DD
	To        string   `json:"to,omitempty" yaml:"to"`     // inclusive, YYYY-MM-DD
	Days      []string `json:"days,omitempty" yaml:"days"`
	Timeframe string   `json:"timeframe,omitempty" yaml:"timeframe"`
	// Sessions left nil means all four; an explicit empty list is rejected.
	Sessions    []string `json:"sessions,omitempty" yaml:"sessions"`
	Lookforward int      `json:"lookforward,omitempty" yaml:"lookforward"`

	HitRateMetric string `json:"hit_rate_metric,omitempty" yaml:"hit_rate_metric"`
	HitRateKey    string `json:"hit_rate_key,omitempty" yaml:"hit_rate_key"`
	HitRateWindow int    `json:"hit_rate_window,omitempty" yaml:"hit_rate_window"`

	OTFRun         int   `json:"otf_run,omitempty" yaml:"otf_run"`
	OTFCheckColor  *bool `json:"otf_check_color,omitempty" yaml:"otf_check_color"`
	OTFCheckIntact *bool `json:"otf_check_intact,omitempty" yaml:"otf_check_intact"`
	OTFCheckBeyond *bool `json:"otf_check_beyond,omitempty" yaml:"otf_check_beyond"`

	// FlatTolerance left nil means detect.DefaultFlatTolerance; 0 asks for
	// an exact match.
	FlatTolerance *float64 `json:"flat_tolerance,omitempty" yaml:"flat_tolerance"`

	WickMode   string  `json:"wick_mode,omitempty" yaml:"wick_mode"`
	WickSide   string  `json:"wick_side,omitempty" yaml:"wick_side"`
	WickMinPct float64 `json:"wick_min_pct,omitempty" yaml:"wick_min_pct"`
	PartialPct float64 `json:"partial_pct,omitempty" yaml:"partial_pct"`

	GapEnd    string  `json:"gap_end,omitempty" yaml:"gap_end"`
	GapStart  string  `json:"gap_start,omitempty" yaml:"gap_start"`
	GapMinPct float64 `json:"gap_min_pct,omitempty" yaml:"gap_min_pct"`

	RoundInterval     float64 `json:"round_interval,omitempty" yaml:"round_interval"`
	RoundThresholdPct float64 `json:"round_threshold_pct,omitempty" yaml:"round_threshold_pct"`
	RoundLookback     int     `json:"round_lookback,omitempty" yaml:"round_lookback"`

	PivotPeriod string `json:"pivot_period,omitempty" yaml:"pivot_period"` // day or week

	TPOPeriod         string  `json:"tpo_period,omitempty" yaml:"tpo_period"` // day or session
	TPOTick           float64 `json:"tpo_tick,omitempty" yaml:"tpo_tick"`     // 0 = from ATR
	TPOATRPeriod      int     `json:"tpo_atr_period,omitempty" yaml:"tpo_atr_period"`
	TPOTickMultiplier float64 `json:"tpo_tick_multiplier,omitempty" yaml:"tpo_tick_multiplier"`
	TPOMaxPeriods     int     `json:"tpo_max_periods,omitempty" yaml:"tpo_max_periods"`

	HistogramBins int `json:"histogram_bins,omitempty" yaml:"histogram_bins"`
}

// Merge returns p with zero fields filled from base.
func (p Params) Merge(base Params) Params {
	out := p
	str := func(dst *string, v string) {
		if *dst == "" {
			*dst = v
		}
	}
	num := func(dst *float64, v float64) {
		if *dst == 0 {
			*dst = v
		}
	}
	in := func(dst *int, v int) {
		if *dst == 0 {
			*dst = v
		}
	}
	str(&out.From, base.From)
	str(&out.To, base.To)
	if out.Days == nil {
		out.Days = base.Days
	}
	str(&out.Timeframe, base.Timeframe)
	if out.Sessions == nil {
		out.Sessions = base.Sessions
	}
	in(&out.Lookforward, base.Lookforward)
	str(&out.HitRateMetric, base.HitRateMetric)
	str(&out.HitRateKey, base.HitRateKey)
	in(&out.HitRateWindow, base.HitRateWindow)
	in(&out.OTFRun, base.OTFRun)
	if out.OTFCheckColor == nil {
		out.OTFCheckColor = base.OTFCheckColor
	}
	if out.OTFCheckIntact == nil {
		out.OTFCheckIntact = base.OTFCheckIntact
	}
	if out.OTFCheckBeyond == nil {
		out.OTFCheckBeyond = base.OTFCheckBeyond
	}
	if out.FlatTolerance == nil {
		out.FlatTolerance = base.FlatTolerance
	}
	str(&out.WickMode, base.WickMode)
	str(&out.WickSide, base.WickSide)
	num(&out.WickMinPct, base.WickMinPct)
	num(&out.PartialPct, base.PartialPct)
	str(&out.GapEnd, base.GapEnd)
	str(&out.GapStart, base.GapStart)
	num(&out.GapMinPct, base.GapMinPct)
	num(&out.RoundInterval, base.RoundInterval)
	num(&out.RoundThresholdPct, base.RoundThresholdPct)
	in(&out.RoundLookback, base.RoundLookback)
	str(&out.PivotPeriod, base.PivotPeriod)
	str(&out.TPOPeriod, base.TPOPeriod)
	num(&out.TPOTick, base.TPOTick)
	in(&out.TPOATRPeriod, base.TPOATRPeriod)
	num(&out.TPOTickMultiplier, base.TPOTickMultiplier)
	in(&out.TPOMaxPeriods, base.TPOMaxPeriods)
	in(&out.HistogramBins, base.HistogramBins)
	return out
}

// DefaultParams returns the defaults used when a field is left zero.
func DefaultParams() Params {
	return Params{
		Timeframe:         "1h",
		HitRateMetric:     string(timing.MetricHigh),
		HitRateWindow:     20,
		OTFRun:            3,
		WickMode:          string(detect.WickOfPrice),
		WickSide:          string(detect.WickBoth),
		WickMinPct:        1.0,
		GapEnd:            "20:00",
		GapStart:          "00:00",
		GapMinPct:         0.1,
		RoundInterval:     1000,
		RoundThresholdPct: 0.3,
		RoundLookback:     24,
		PivotPeriod:       "day",
		TPOPeriod:         "day",
		TPOATRPeriod:      14,
		TPOTickMultiplier: 0.1,
		TPOMaxPeriods:     30,
		HistogramBins:     10,
	}
}

// resolved holds the parsed, validated common parameters.
type resolved struct {
	Range     segment.DateRange
	Days      segment.Weekdays
	Timeframe timeframe.Timeframe
	Sessions  []session.Session
}

// resolve parses the common parameters. Session selection is only checked
// when the analysis buckets by session or runs on session bars.
func resolve(p Params, needSessions bool) (resolved, error) {
	var r resolved
	var err error

	if p.From != "" {
		if r.Range.From, err = time.Parse(dateLayout, p.From); err != nil {
			return r, configErr("from", "expected YYYY-MM-DD, got %q", p.From)
		}
	}
	if p.To != "" {
		if r.Range.To, err = time.Parse(dateLayout, p.To); err != nil {
			return r, configErr("to", "expected YYYY-MM-DD, got %q", p.To)
		}
	}
	if !r.Range.From.IsZero() && !r.Range.To.IsZero() && r.Range.To.Before(r.Range.From) {
		return r, configErr("to", "%s is before from %s", p.To, p.From)
	}

	if r.Days, err = segment.ParseWeekdays(p.Days); err != nil {
		return r, configErr("days", "%v", err)
	}

	tf := p.Timeframe
	if tf == "" {
		tf = DefaultParams().Timeframe
	}
	if r.Timeframe, err = timeframe.Parse(tf); err != nil {
		return r, configErr("timeframe", "%v", err)
	}

	r.Sessions = session.Default()
	if p.Sessions != nil && (needSessions || r.Timeframe == timeframe.Session) {
		if r.Sessions, err = session.Select(p.Sessions); err != nil {
			return r, configErr("sessions", "%v", err)
		}
	}
	return r, nil
}

func (p Params) otfConfig() detect.OTFConfig {
	cfg := detect.DefaultOTFConfig()
	if p.OTFRun != 0 {
		cfg.Run = p.OTFRun
	}
	if p.OTFCheckColor != nil {
		cfg.CheckColor = *p.OTFCheckColor
	}
	if p.OTFCheckIntact != nil {
		cfg.CheckIntact = *p.OTFCheckIntact
	}
	if p.OTFCheckBeyond != nil {
		cfg.CheckBeyondPrv = *p.OTFCheckBeyond
	}
	return cfg
}

func lower(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
