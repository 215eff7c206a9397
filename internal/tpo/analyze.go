package tpo

// DefaultValueAreaPct is the share of touches the value area covers.
const DefaultValueAreaPct = 68.0

// Analysis summarises a profile.
type Analysis struct {
	High       float64 `json:"high"`
	Low        float64 `json:"low"`
	TPOsAtHigh int     `json:"tpos_at_high"`
	TPOsAtLow  int     `json:"tpos_at_low"`
	PoorHigh   bool    `json:"poor_high"`
	PoorLow    bool    `json:"poor_low"`
	Range      float64 `json:"range"`
	POC        float64 `json:"poc"`
	VAHigh     float64 `json:"va_high"`
	VALow      float64 `json:"va_low"`
	Total      int     `json:"total"`
}

// Analyze reports the profile's extremes, whether they are poor (two or
// more touches at the single most extreme level) and its value area.
func Analyze(p *Profile) Analysis {
	keys := p.Keys()
	if len(keys) == 0 {
		return Analysis{}
	}
	top, bottom := keys[0], keys[len(keys)-1]
	a := Analysis{
		High:       p.Price(top),
		Low:        p.Price(bottom),
		TPOsAtHigh: len(p.Levels[top]),
		TPOsAtLow:  len(p.Levels[bottom]),
		Total:      p.Total(),
	}
	a.PoorHigh = a.TPOsAtHigh >= 2
	a.PoorLow = a.TPOsAtLow >= 2
	a.Range = a.High - a.Low

	va := ValueArea(p, DefaultValueAreaPct)
	a.POC = p.Price(va.POC)
	a.VAHigh = p.Price(va.High)
	a.VALow = p.Price(va.Low)
	return a
}

// Area is a value area in tick indices.
type Area struct {
	POC     int64
	High    int64
	Low     int64
	Covered int
}

// ValueArea expands from the point of control, the level with the most
// touches (the highest such level on ties). Each step claims the next
// populated level above or below, whichever has more touches, preferring
// the upper one on ties, until pct percent of touches is covered or no
// levels remain.
func ValueArea(p *Profile, pct float64) Area {
	keys := p.Keys()
	if len(keys) == 0 {
		return Area{}
	}
	poc := 0
	for i, k := range keys {
		if len(p.Levels[k]) > len(p.Levels[keys[poc]]) {
			poc = i
		}
	}

	target := float64(p.Total()) * pct / 100
	covered := len(p.Levels[keys[poc]])
	up, down := poc, poc // keys are descending: up moves toward 0
	for float64(covered) < target && (up > 0 || down < len(keys)-1) {
		above, below := -1, -1
		if up > 0 {
			above = len(p.Levels[keys[up-1]])
		}
		if down < len(keys)-1 {
			below = len(p.Levels[keys[down+1]])
		}
		if above >= below {
			up--
			covered += above
		} else {
			down++
			covered += below
		}
	}
	return Area{POC: keys[poc], High: keys[up], Low: keys[down], Covered: covered}
}
