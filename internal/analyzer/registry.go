package analyzer

import (
	"fmt"
	"sort"
	"sync"

	"sweepstat/internal/segment"
	"sweepstat/internal/timing"
)

// Analysis is a named pipeline from a series to a Report.
type Analysis struct {
	Name        string
	Description string
	Run         Func
}

var (
	registry     = make(map[string]Analysis)
	registryLock sync.RWMutex
)

// Register adds an analysis, replacing any with the same name.
func Register(a Analysis) {
	registryLock.Lock()
	defer registryLock.Unlock()
	registry[a.Name] = a
}

// Get looks up an analysis by name.
func Get(name string) (Analysis, error) {
	registryLock.RLock()
	a, ok := registry[name]
	registryLock.RUnlock()
	if !ok {
		return Analysis{}, fmt.Errorf("%w: %s (available: %v)", ErrUnknownAnalysis, name, List())
	}
	return a, nil
}

// List returns registered names in alphabetical order.
func List() []string {
	registryLock.RLock()
	defer registryLock.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns every registered analysis ordered by name.
func All() []Analysis {
	names := List()
	out := make([]Analysis, 0, len(names))
	registryLock.RLock()
	defer registryLock.RUnlock()
	for _, n := range names {
		out = append(out, registry[n])
	}
	return out
}

func init() {
	Register(Analysis{"extremes-hour", "Hour of day of daily highs, lows, P1 and P2", extremes(segment.Day, timing.ByHour)})
	Register(Analysis{"extremes-session", "Session of daily highs, lows, P1 and P2", extremes(segment.Day, timing.BySession)})
	Register(Analysis{"weekly-extremes", "Weekday of weekly highs and lows", extremes(segment.Week, timing.ByDayOfWeek)})
	Register(Analysis{"monthly-extremes", "Day of month of monthly highs and lows", extremes(segment.Month, timing.ByDayOfMonth)})
	Register(Analysis{"session-extremes", "Hour of session highs and lows", extremes(segment.Session, timing.ByHour)})
	Register(Analysis{"one-time-framing", "Consecutive directional runs and the bar after", oneTimeFraming})
	Register(Analysis{"naked-opens", "Flat-open candles and retests of their open", nakedOpens})
	Register(Analysis{"wick-fills", "Large wicks and how often they are filled", wickFills})
	Register(Analysis{"gap-fills", "Custom time-window gaps and their fills", gapFills})
	Register(Analysis{"quartile-opens", "Opens in the outer quarter of the previous bar and sweeps of its extreme", quartileOpens})
	Register(Analysis{"round-numbers", "Front-runs of round price levels", roundNumbers})
	Register(Analysis{"pivot-hits", "Floor pivot levels touched within the next period", pivotHits})
	Register(Analysis{"tpo-poor-extremes", "TPO poor highs and lows and their sweeps", tpoPoorExtremes})
}
