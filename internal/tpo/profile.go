// Package tpo builds time-price-opportunity profiles: for each tick-sized
// price level, the letters of the bars that traded there.
package tpo

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"sweepstat/pkg/model"
)

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// Letter returns the label of the i-th bar in a profile: A..Z, a..z, then
// A1..z1, A2.. and so on without bound.
func Letter(i int) string {
	n := len(alphabet)
	l := string(alphabet[i%n])
	if round := i / n; round > 0 {
		l += strconv.Itoa(round)
	}
	return l
}

// Profile maps tick indices to the letters that touched them. A tick index k
// stands for the price k*Tick.
type Profile struct {
	Tick     float64
	Start    time.Time
	End      time.Time
	FirstIdx int // series index of the first bar
	LastIdx  int // series index of the last bar
	Close    float64
	Levels   map[int64][]string
}

// Build creates a profile from one period's bars. firstIdx is the series
// index of bars[0] and is carried through so sweeps can resume the scan.
func Build(bars []model.Candle, firstIdx int, tick float64) (*Profile, error) {
	if tick <= 0 || math.IsNaN(tick) {
		return nil, fmt.Errorf("tick size must be positive, got %g", tick)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("cannot build a profile from no bars")
	}
	p := &Profile{
		Tick:     tick,
		Start:    bars[0].Time,
		End:      bars[len(bars)-1].Time,
		FirstIdx: firstIdx,
		LastIdx:  firstIdx + len(bars) - 1,
		Close:    bars[len(bars)-1].Close,
		Levels:   make(map[int64][]string),
	}
	for i, b := range bars {
		letter := Letter(i)
		for k := p.index(b.Low); k <= p.index(b.High); k++ {
			p.Levels[k] = append(p.Levels[k], letter)
		}
	}
	return p, nil
}

func (p *Profile) index(price float64) int64 {
	return int64(math.Round(price / p.Tick))
}

// Price converts a tick index back to a price.
func (p *Profile) Price(k int64) float64 { return float64(k) * p.Tick }

// Keys returns the populated tick indices from highest to lowest.
func (p *Profile) Keys() []int64 {
	keys := make([]int64, 0, len(p.Levels))
	for k := range p.Levels {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] > keys[j] })
	return keys
}

// Total returns the number of touches across all levels.
func (p *Profile) Total() int {
	n := 0
	for _, l := range p.Levels {
		n += len(l)
	}
	return n
}
