// Package detect finds price-action setups in a candle series. Each setup
// pairs an event with the forward scan that decides its outcome, so every
// detector shares one evaluation path.
package detect

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"sweepstat/internal/scan"
	"sweepstat/pkg/model"
)

// Setup is a detected event plus the scan that evaluates it. Detectors that
// already ran the scan set Outcome so Evaluate does not repeat it.
type Setup struct {
	Event   model.Event
	Request scan.Request
	Outcome *model.Outcome
}

// eventNamespace seeds deterministic event IDs so reruns are identical.
var eventNamespace = uuid.MustParse("6f1d7a52-3c0e-4b8e-9a57-2f4c1b9e0d31")

// EventID derives a stable ID from the event's identity.
func EventID(kind string, anchor time.Time, level *float64, dir model.Direction) string {
	key := kind + "|" + anchor.UTC().Format(time.RFC3339Nano) + "|" + string(dir)
	if level != nil {
		key += "|" + strconv.FormatFloat(*level, 'f', -1, 64)
	}
	return uuid.NewSHA1(eventNamespace, []byte(key)).String()
}

func newEvent(kind string, candles []model.Candle, idx int, level *float64, dir model.Direction, meta map[string]float64) model.Event {
	return model.Event{
		ID:         EventID(kind, candles[idx].Time, level, dir),
		Kind:       kind,
		AnchorTime: candles[idx].Time,
		AnchorIdx:  idx,
		Level:      level,
		Direction:  dir,
		Meta:       meta,
	}
}

// Evaluate runs every setup's scan in order, reusing precomputed outcomes.
func Evaluate(candles []model.Candle, setups []Setup) ([]model.EventOutcome, error) {
	out := make([]model.EventOutcome, 0, len(setups))
	for _, s := range setups {
		if s.Outcome != nil {
			out = append(out, model.EventOutcome{Event: s.Event, Outcome: *s.Outcome})
			continue
		}
		o, err := scan.Scan(candles, s.Request)
		if err != nil {
			return nil, fmt.Errorf("evaluating %s at %s: %w", s.Event.Kind, s.Event.AnchorTime.Format(time.RFC3339), err)
		}
		out = append(out, model.EventOutcome{Event: s.Event, Outcome: o})
	}
	return out, nil
}

func checkLookforward(n int) error {
	if n < 1 {
		return fmt.Errorf("lookforward must be at least 1 bar, got %d", n)
	}
	return nil
}
