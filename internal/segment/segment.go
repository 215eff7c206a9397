// Package segment partitions a candle series into calendar periods and
// locates each period's high and low.
package segment

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"sweepstat/internal/resample"
	"sweepstat/internal/session"
	"sweepstat/pkg/model"
)

// Granularity selects the period bucket.
type Granularity string

const (
	Day     Granularity = "day"
	Week    Granularity = "week"
	Month   Granularity = "month"
	Session Granularity = "session"
)

// ParseGranularity parses a granularity name.
func ParseGranularity(s string) (Granularity, error) {
	switch g := Granularity(strings.ToLower(strings.TrimSpace(s))); g {
	case Day, Week, Month, Session:
		return g, nil
	}
	return "", fmt.Errorf("unknown granularity %q", s)
}

// Extreme names which extreme of a period an observation refers to.
type Extreme string

const (
	High Extreme = "High"
	Low  Extreme = "Low"
)

// Period is one contiguous bucket of the series.
type Period struct {
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Label    string    `json:"label"`
	Session  string    `json:"session,omitempty"`
	Open     float64   `json:"open"`
	Close    float64   `json:"close"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	HighTime time.Time `json:"high_time"`
	LowTime  time.Time `json:"low_time"`
	FirstIdx int       `json:"first_idx"`
	LastIdx  int       `json:"last_idx"`
}

// Bars returns the number of candles in the period.
func (p Period) Bars() int { return p.LastIdx - p.FirstIdx + 1 }

// P1 returns the extreme that occurred first and its time. When high and
// low share a timestamp the high is reported first.
func (p Period) P1() (Extreme, time.Time) {
	if p.LowTime.Before(p.HighTime) {
		return Low, p.LowTime
	}
	return High, p.HighTime
}

// P2 returns the extreme that occurred second and its time.
func (p Period) P2() (Extreme, time.Time) {
	if p.LowTime.Before(p.HighTime) {
		return High, p.HighTime
	}
	return Low, p.LowTime
}

// DateRange is an inclusive range of UTC calendar dates. Zero values are open.
type DateRange struct {
	From time.Time
	To   time.Time
}

// Contains reports whether t's UTC date is inside the range.
func (r DateRange) Contains(t time.Time) bool {
	d := dateOf(t)
	if !r.From.IsZero() && d.Before(dateOf(r.From)) {
		return false
	}
	if !r.To.IsZero() && d.After(dateOf(r.To)) {
		return false
	}
	return true
}

// Weekdays is a day-of-week filter; empty means every day.
type Weekdays []time.Weekday

// Has reports whether d passes the filter.
func (w Weekdays) Has(d time.Weekday) bool {
	if len(w) == 0 {
		return true
	}
	for _, x := range w {
		if x == d {
			return true
		}
	}
	return false
}

// ParseWeekdays accepts full or three-letter English day names.
func ParseWeekdays(names []string) (Weekdays, error) {
	var out Weekdays
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n == "" {
			continue
		}
		found := false
		for d := time.Sunday; d <= time.Saturday; d++ {
			full := strings.ToLower(d.String())
			if n == full || n == full[:3] {
				out = append(out, d)
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("unknown weekday %q", n)
		}
	}
	return out, nil
}

// Params selects which periods are produced.
type Params struct {
	Granularity Granularity
	Range       DateRange
	Days        Weekdays
	Sessions    []session.Session // Session granularity only; defaults to all four
}

// Segment splits time-ordered candles into periods ordered by start.
//
// Day and Session periods are filtered on their own weekday. Week periods are
// kept when the weekday of the high OR of the low passes the filter. Month
// periods apply the filter per candle, so extremes are located among the
// matching days only.
func Segment(candles []model.Candle, p Params) ([]Period, error) {
	var (
		key func(t time.Time) (start, end time.Time, label, sess string, ok bool)
	)
	switch p.Granularity {
	case Day:
		key = func(t time.Time) (time.Time, time.Time, string, string, bool) {
			d := dateOf(t)
			return d, d.AddDate(0, 0, 1), d.Weekday().String(), "", true
		}
	case Week:
		key = func(t time.Time) (time.Time, time.Time, string, string, bool) {
			ws := resample.WeekStart(t)
			y, w := ws.ISOWeek()
			return ws, ws.AddDate(0, 0, 7), fmt.Sprintf("%d-W%02d", y, w), "", true
		}
	case Month:
		key = func(t time.Time) (time.Time, time.Time, string, string, bool) {
			u := t.UTC()
			ms := time.Date(u.Year(), u.Month(), 1, 0, 0, 0, 0, time.UTC)
			return ms, ms.AddDate(0, 1, 0), ms.Month().String(), "", true
		}
	case Session:
		sessions := p.Sessions
		if sessions == nil {
			sessions = session.Default()
		}
		if err := session.Validate(sessions); err != nil {
			return nil, err
		}
		key = func(t time.Time) (time.Time, time.Time, string, string, bool) {
			s, ok := session.Of(t, sessions)
			if !ok {
				return time.Time{}, time.Time{}, "", "", false
			}
			return s.Start(t), s.End(t), dateOf(t).Weekday().String(), s.Name, true
		}
	default:
		return nil, fmt.Errorf("unknown granularity %q", p.Granularity)
	}

	var (
		periods []Period
		cur     *Period
	)
	flush := func() {
		if cur != nil {
			periods = append(periods, *cur)
			cur = nil
		}
	}

	for i, c := range candles {
		if !p.Range.Contains(c.Time) {
			continue
		}
		if p.Granularity == Month && !p.Days.Has(c.Time.UTC().Weekday()) {
			continue
		}
		start, end, label, sess, ok := key(c.Time)
		if !ok {
			continue
		}
		if cur != nil && !cur.Start.Equal(start) {
			flush()
		}
		if cur == nil {
			cur = &Period{
				Start:    start,
				End:      end,
				Label:    label,
				Session:  sess,
				Open:     c.Open,
				High:     c.High,
				Low:      c.Low,
				HighTime: c.Time,
				LowTime:  c.Time,
				FirstIdx: i,
			}
		}
		// Strictly greater/less keeps the first occurrence of a tied extreme.
		if c.High > cur.High {
			cur.High = c.High
			cur.HighTime = c.Time
		}
		if c.Low < cur.Low {
			cur.Low = c.Low
			cur.LowTime = c.Time
		}
		cur.Close = c.Close
		cur.LastIdx = i
	}
	flush()

	return filter(periods, p), nil
}

func filter(periods []Period, p Params) []Period {
	if len(p.Days) == 0 {
		return periods
	}
	out := periods[:0]
	for _, per := range periods {
		switch p.Granularity {
		case Day, Session:
			if !p.Days.Has(per.Start.Weekday()) {
				continue
			}
		case Week:
			if !p.Days.Has(per.HighTime.UTC().Weekday()) && !p.Days.Has(per.LowTime.UTC().Weekday()) {
				continue
			}
		}
		out = append(out, per)
	}
	return out
}

func dateOf(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// DayOfMonthLabel formats a day-of-month bucket.
func DayOfMonthLabel(t time.Time) string {
	return strconv.Itoa(t.UTC().Day())
}
