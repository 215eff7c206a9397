package segment

import (
	"testing"
	"time"

	"sweepstat/pkg/model"
)

func hourly(start time.Time, prices ...[2]float64) []model.Candle {
	out := make([]model.Candle, len(prices))
	for i, p := range prices {
		lo, hi := p[0], p[1]
		out[i] = model.Candle{
			Time:  start.Add(time.Duration(i) * time.Hour),
			Open:  lo,
			High:  hi,
			Low:   lo,
			Close: hi,
		}
	}
	return out
}

func TestSegment_DayExtremes(t *testing.T) {
	day := time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC) // Monday
	candles := hourly(day,
		[2]float64{100, 101},
		[2]float64{95, 99}, // low
		[2]float64{97, 105}, // high
		[2]float64{98, 105}, // tied high, later
	)

	periods, err := Segment(candles, Params{Granularity: Day})
	if err != nil {
		t.Fatal(err)
	}
	if len(periods) != 1 {
		t.Fatalf("expected 1 period, got %d", len(periods))
	}
	p := periods[0]
	if p.High != 105 || !p.HighTime.Equal(day.Add(2*time.Hour)) {
		t.Errorf("expected first high 105 at 02:00, got %f at %s", p.High, p.HighTime)
	}
	if p.Low != 95 || !p.LowTime.Equal(day.Add(time.Hour)) {
		t.Errorf("expected low 95 at 01:00, got %f at %s", p.Low, p.LowTime)
	}
	if p.Label != "Monday" {
		t.Errorf("expected label Monday, got %s", p.Label)
	}

	first, ft := p.P1()
	second, st := p.P2()
	if first != Low || second != High {
		t.Errorf("expected P1=Low P2=High, got %s/%s", first, second)
	}
	if !ft.Before(st) {
		t.Errorf("expected P1 time before P2 time")
	}
}

func TestSegment_P1P2Exhaustive(t *testing.T) {
	start := time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC)
	var candles []model.Candle
	for i := 0; i < 24*10; i++ {
		base := 100 + float64((i*37)%23)
		candles = append(candles, model.Candle{
			Time: start.Add(time.Duration(i) * time.Hour),
			Open: base, High: base + 2, Low: base - 2, Close: base + 1,
		})
	}

	periods, err := Segment(candles, Params{Granularity: Day})
	if err != nil {
		t.Fatal(err)
	}
	if len(periods) != 10 {
		t.Fatalf("expected 10 days, got %d", len(periods))
	}
	for _, p := range periods {
		e1, t1 := p.P1()
		e2, t2 := p.P2()
		if e1 == e2 {
			t.Errorf("%s: P1 and P2 both %s", p.Start, e1)
		}
		if t2.Before(t1) {
			t.Errorf("%s: P2 before P1", p.Start)
		}
	}
}

func TestSegment_DayFilterAndRange(t *testing.T) {
	start := time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC) // Monday
	var candles []model.Candle
	for d := 0; d < 7; d++ {
		candles = append(candles, model.Candle{
			Time: start.AddDate(0, 0, d), Open: 1, High: 2, Low: 1, Close: 2,
		})
	}

	periods, err := Segment(candles, Params{
		Granularity: Day,
		Range:       DateRange{From: start.AddDate(0, 0, 1), To: start.AddDate(0, 0, 5)},
		Days:        Weekdays{time.Tuesday, time.Saturday, time.Sunday},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(periods) != 2 {
		t.Fatalf("expected Tuesday and Saturday, got %d periods", len(periods))
	}
	if periods[0].Label != "Tuesday" || periods[1].Label != "Saturday" {
		t.Errorf("unexpected labels %s, %s", periods[0].Label, periods[1].Label)
	}
}

func TestSegment_WeekFilterUsesExtremeDays(t *testing.T) {
	monday := time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC)
	candles := []model.Candle{
		{Time: monday, Open: 100, High: 101, Low: 90, Close: 100},                // low on Monday
		{Time: monday.AddDate(0, 0, 2), Open: 100, High: 110, Low: 99, Close: 105}, // high on Wednesday
		{Time: monday.AddDate(0, 0, 4), Open: 100, High: 102, Low: 98, Close: 101},
	}

	tests := []struct {
		name string
		days Weekdays
		want int
	}{
		{"low day matches", Weekdays{time.Monday}, 1},
		{"high day matches", Weekdays{time.Wednesday}, 1},
		{"only a non-extreme day", Weekdays{time.Friday}, 0},
		{"no filter", nil, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			periods, err := Segment(candles, Params{Granularity: Week, Days: tt.days})
			if err != nil {
				t.Fatal(err)
			}
			if len(periods) != tt.want {
				t.Errorf("expected %d weeks, got %d", tt.want, len(periods))
			}
		})
	}
}

func TestSegment_Month(t *testing.T) {
	day := func(m time.Month, d int) time.Time { return time.Date(2024, m, d, 0, 0, 0, 0, time.UTC) }
	candles := []model.Candle{
		{Time: day(time.January, 29), Open: 90, High: 101, Low: 90, Close: 101}, // Monday
		{Time: day(time.January, 30), Open: 95, High: 110, Low: 95, Close: 110}, // Tuesday
		{Time: day(time.January, 31), Open: 85, High: 100, Low: 85, Close: 100}, // Wednesday
		{Time: day(time.February, 1), Open: 96, High: 120, Low: 96, Close: 120}, // Thursday
		{Time: day(time.February, 2), Open: 80, High: 105, Low: 80, Close: 105}, // Friday
		{Time: day(time.February, 3), Open: 97, High: 104, Low: 97, Close: 104}, // Saturday
	}

	type month struct {
		label    string
		high     float64
		highTime time.Time
		low      float64
		lowTime  time.Time
	}
	tests := []struct {
		name string
		days Weekdays
		want []month
	}{
		{"month boundary", nil, []month{
			{"January", 110, day(time.January, 30), 85, day(time.January, 31)},
			{"February", 120, day(time.February, 1), 80, day(time.February, 2)},
		}},
		{"extremes among matching days only", Weekdays{time.Monday, time.Thursday}, []month{
			{"January", 101, day(time.January, 29), 90, day(time.January, 29)},
			{"February", 120, day(time.February, 1), 96, day(time.February, 1)},
		}},
		{"month without matching days dropped", Weekdays{time.Saturday}, []month{
			{"February", 104, day(time.February, 3), 97, day(time.February, 3)},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			periods, err := Segment(candles, Params{Granularity: Month, Days: tt.days})
			if err != nil {
				t.Fatal(err)
			}
			if len(periods) != len(tt.want) {
				t.Fatalf("expected %d months, got %d", len(tt.want), len(periods))
			}
			for i, w := range tt.want {
				p := periods[i]
				if p.Label != w.label || !p.Start.Equal(day(p.Start.Month(), 1)) || !p.End.Equal(p.Start.AddDate(0, 1, 0)) {
					t.Errorf("month %d: label %s, %s..%s", i, p.Label, p.Start, p.End)
				}
				if p.High != w.high || !p.HighTime.Equal(w.highTime) {
					t.Errorf("%s: high %g at %s, want %g at %s", w.label, p.High, p.HighTime, w.high, w.highTime)
				}
				if p.Low != w.low || !p.LowTime.Equal(w.lowTime) {
					t.Errorf("%s: low %g at %s, want %g at %s", w.label, p.Low, p.LowTime, w.low, w.lowTime)
				}
			}
		})
	}
}

func TestSegment_Sessions(t *testing.T) {
	day := time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC)
	var candles []model.Candle
	for h := 0; h < 24; h++ {
		candles = append(candles, model.Candle{
			Time: day.Add(time.Duration(h) * time.Hour), Open: 1, High: 2, Low: 1, Close: 2,
		})
	}
	periods, err := Segment(candles, Params{Granularity: Session})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"Asia", "London", "NewYork", "Close"}
	if len(periods) != len(want) {
		t.Fatalf("expected %d sessions, got %d", len(want), len(periods))
	}
	for i, p := range periods {
		if p.Session != want[i] {
			t.Errorf("period %d: expected %s, got %s", i, want[i], p.Session)
		}
	}
	if periods[2].Bars() != 8 {
		t.Errorf("expected 8 NewYork bars, got %d", periods[2].Bars())
	}
}

func TestParseWeekdays(t *testing.T) {
	days, err := ParseWeekdays([]string{"mon", "Friday"})
	if err != nil {
		t.Fatal(err)
	}
	if len(days) != 2 || days[0] != time.Monday || days[1] != time.Friday {
		t.Errorf("unexpected days %v", days)
	}
	if _, err := ParseWeekdays([]string{"funday"}); err == nil {
		t.Error("expected error for unknown weekday")
	}
}
