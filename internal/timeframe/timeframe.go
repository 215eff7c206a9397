// Package timeframe defines the bar resolutions the toolkit resamples to.
package timeframe

import (
	"fmt"
	"strings"
	"time"
)

type Timeframe int

const (
	M15 Timeframe = iota
	M30
	H1
	H4
	D1
	W1
	MN1
	Session
)

var names = map[Timeframe]string{
	M15:     "15m",
	M30:     "30m",
	H1:      "1h",
	H4:      "4h",
	D1:      "1D",
	W1:      "1W",
	MN1:     "1M",
	Session: "Session",
}

// All lists every timeframe in ascending resolution.
func All() []Timeframe {
	return []Timeframe{M15, M30, H1, H4, D1, W1, MN1, Session}
}

func (t Timeframe) String() string {
	if s, ok := names[t]; ok {
		return s
	}
	return fmt.Sprintf("Timeframe(%d)", int(t))
}

// Parse accepts the canonical names plus a few common aliases.
func Parse(s string) (Timeframe, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "15m", "15min":
		return M15, nil
	case "30m", "30min":
		return M30, nil
	case "1h", "60m", "h1":
		return H1, nil
	case "4h", "h4":
		return H4, nil
	case "1d", "d", "daily", "d1":
		return D1, nil
	case "1w", "w", "weekly", "w1":
		return W1, nil
	case "1mo", "1mn", "monthly", "mn1", "month":
		return MN1, nil
	case "session", "sessions":
		return Session, nil
	}
	// "1M" is monthly, "1m" would be one minute and is not supported.
	if strings.TrimSpace(s) == "1M" {
		return MN1, nil
	}
	return 0, fmt.Errorf("unknown timeframe %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (t Timeframe) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Timeframe) UnmarshalText(b []byte) error {
	v, err := Parse(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Fixed reports whether the timeframe has a constant bar duration
// (weeks and months are calendar buckets, sessions are named hour ranges).
func (t Timeframe) Fixed() bool {
	switch t {
	case M15, M30, H1, H4, D1:
		return true
	}
	return false
}

// Duration returns the nominal bar length. Months report 30 days and sessions
// their longest span; callers needing exact bucket bounds use the resampler.
func (t Timeframe) Duration() time.Duration {
	switch t {
	case M15:
		return 15 * time.Minute
	case M30:
		return 30 * time.Minute
	case H1:
		return time.Hour
	case H4:
		return 4 * time.Hour
	case D1:
		return 24 * time.Hour
	case W1:
		return 7 * 24 * time.Hour
	case MN1:
		return 30 * 24 * time.Hour
	case Session:
		return 8 * time.Hour
	default:
		return 0
	}
}

// Finer reports whether t has a shorter bar than o.
func (t Timeframe) Finer(o Timeframe) bool {
	return t.Duration() < o.Duration()
}

// quartileLookforward is how many bars after the previous bar a quartile-open
// target may be swept in, roughly one trading day for intraday frames.
var quartileLookforward = map[Timeframe]int{
	M15:     96,
	M30:     48,
	H1:      24,
	H4:      6,
	D1:      1,
	W1:      1,
	MN1:     1,
	Session: 1,
}

// QuartileLookforward returns the quartile-open lookforward window in bars.
func (t Timeframe) QuartileLookforward() int {
	if n, ok := quartileLookforward[t]; ok {
		return n
	}
	return 1
}

// BarsPerDay returns how many bars of t fit in one day, at least 1.
func (t Timeframe) BarsPerDay() int {
	switch t {
	case Session:
		return 4
	}
	d := t.Duration()
	if d <= 0 || d >= 24*time.Hour {
		return 1
	}
	return int((24 * time.Hour) / d)
}
