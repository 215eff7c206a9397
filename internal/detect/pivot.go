package detect

import (
	"sweepstat/internal/scan"
	"sweepstat/internal/segment"
	"sweepstat/pkg/model"
)

// PivotLevels are classic floor pivots derived from one period.
type PivotLevels struct {
	P  float64 `json:"p"`
	R1 float64 `json:"r1"`
	R2 float64 `json:"r2"`
	R3 float64 `json:"r3"`
	S1 float64 `json:"s1"`
	S2 float64 `json:"s2"`
	S3 float64 `json:"s3"`
}

// FloorPivots computes pivots from a period's high, low and close.
func FloorPivots(high, low, close float64) PivotLevels {
	p := (high + low + close) / 3
	return PivotLevels{
		P:  p,
		R1: 2*p - low,
		S1: 2*p - high,
		R2: p + (high - low),
		S2: p - (high - low),
		R3: high + 2*(p-low),
		S3: low - 2*(high-p),
	}
}

// Named returns the levels in report order.
func (l PivotLevels) Named() []NamedLevel {
	return []NamedLevel{
		{"R3", l.R3}, {"R2", l.R2}, {"R1", l.R1},
		{"P", l.P},
		{"S1", l.S1}, {"S2", l.S2}, {"S3", l.S3},
	}
}

// NamedLevel is a labelled price.
type NamedLevel struct {
	Name  string
	Price float64
}

// PivotHits builds one setup per pivot level per period, using the previous
// period's pivots. The scan covers the current period only and MAE is
// measured from its open. Level names are kept in Meta as an index into
// PivotNames.
func PivotHits(candles []model.Candle, periods []segment.Period) []Setup {
	var out []Setup
	for k := 1; k < len(periods); k++ {
		prev, cur := periods[k-1], periods[k]
		levels := FloorPivots(prev.High, prev.Low, prev.Close)
		open := candles[cur.FirstIdx].Open

		for li, lv := range levels.Named() {
			side := scan.SideFor(open, lv.Price)
			dir := model.Above
			if side == scan.Down {
				dir = model.Below
			}
			meta := map[string]float64{
				"level_idx":   float64(li),
				"period_open": open,
			}
			out = append(out, Setup{
				Event: newEvent("pivot-"+lv.Name, candles, cur.FirstIdx, model.Float(lv.Price), dir, meta),
				Request: scan.Request{
					// The first bar of the period is scanned too.
					Start:     cur.FirstIdx - 1,
					Reference: open,
					Target:    lv.Price,
					Side:      side,
					MaxBars:   cur.Bars(),
					Unfilled:  scan.UnfilledNull,
				},
			})
		}
	}
	return out
}

// PivotNames lists level names in the order of PivotLevels.Named.
var PivotNames = []string{"R3", "R2", "R1", "P", "S1", "S2", "S3"}
