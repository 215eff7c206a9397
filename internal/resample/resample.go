// Package resample aggregates a base-resolution candle series into coarser bars.
package resample

import (
	"fmt"
	"time"

	"sweepstat/internal/session"
	"sweepstat/internal/timeframe"
	"sweepstat/pkg/model"
)

// BucketFunc maps a candle time to the start of its bucket. ok=false drops
// the candle (for example a timestamp outside every selected session).
type BucketFunc func(t time.Time) (start time.Time, ok bool)

// Resample converts candles into bars of tf. Fixed intervals are aligned to
// epoch boundaries, weeks start on Monday 00:00 UTC, months on the 1st.
// Sessions use the default four UTC sessions. Empty buckets are not emitted.
func Resample(candles []model.Candle, tf timeframe.Timeframe) ([]model.Candle, error) {
	if tf == timeframe.Session {
		return Sessions(candles, session.Default())
	}
	fn, err := bucketFor(tf)
	if err != nil {
		return nil, err
	}
	return Aggregate(candles, fn), nil
}

// Sessions buckets candles into the given sessions, one bar per
// (date, session) with at least one candle.
func Sessions(candles []model.Candle, sessions []session.Session) ([]model.Candle, error) {
	if err := session.Validate(sessions); err != nil {
		return nil, err
	}
	return Aggregate(candles, func(t time.Time) (time.Time, bool) {
		s, ok := session.Of(t, sessions)
		if !ok {
			return time.Time{}, false
		}
		return s.Start(t), true
	}), nil
}

func bucketFor(tf timeframe.Timeframe) (BucketFunc, error) {
	switch tf {
	case timeframe.M15, timeframe.M30, timeframe.H1, timeframe.H4, timeframe.D1:
		d := tf.Duration()
		return func(t time.Time) (time.Time, bool) {
			return t.UTC().Truncate(d), true
		}, nil
	case timeframe.W1:
		return func(t time.Time) (time.Time, bool) {
			return WeekStart(t), true
		}, nil
	case timeframe.MN1:
		return func(t time.Time) (time.Time, bool) {
			u := t.UTC()
			return time.Date(u.Year(), u.Month(), 1, 0, 0, 0, 0, time.UTC), true
		}, nil
	}
	return nil, fmt.Errorf("cannot resample to %s", tf)
}

// WeekStart returns Monday 00:00 UTC of t's ISO week.
func WeekStart(t time.Time) time.Time {
	u := t.UTC()
	day := time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
	offset := (int(day.Weekday()) + 6) % 7 // Monday=0 .. Sunday=6
	return day.AddDate(0, 0, -offset)
}

// Aggregate groups time-ordered candles by bucket: open=first, high=max,
// low=min, close=last, volume=sum. Bars are stamped with the bucket start.
func Aggregate(candles []model.Candle, bucket BucketFunc) []model.Candle {
	out := make([]model.Candle, 0, len(candles)/2+1)
	var (
		cur     model.Candle
		curKey  time.Time
		started bool
	)
	for _, c := range candles {
		key, ok := bucket(c.Time)
		if !ok {
			continue
		}
		if started && key.Equal(curKey) {
			if c.High > cur.High {
				cur.High = c.High
			}
			if c.Low < cur.Low {
				cur.Low = c.Low
			}
			cur.Close = c.Close
			cur.Volume += c.Volume
			continue
		}
		if started {
			out = append(out, cur)
		}
		curKey = key
		cur = model.Candle{
			Time:   key,
			Open:   c.Open,
			High:   c.High,
			Low:    c.Low,
			Close:  c.Close,
			Volume: c.Volume,
		}
		started = true
	}
	if started {
		out = append(out, cur)
	}
	return out
}

// To resamples candles of base resolution into tf, rejecting upsampling.
// Resampling to the base resolution returns an aligned copy.
func To(candles []model.Candle, base, tf timeframe.Timeframe) ([]model.Candle, error) {
	if tf != timeframe.Session && tf.Finer(base) {
		return nil, fmt.Errorf("cannot upsample %s series to %s", base, tf)
	}
	return Resample(candles, tf)
}
