package session

import (
	"testing"
	"time"
)

func TestName(t *testing.T) {
	day := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		hour int
		want string
	}{
		{0, "Asia"},
		{5, "Asia"},
		{6, "London"},
		{11, "London"},
		{12, "NewYork"},
		{19, "NewYork"},
		{20, "Close"},
		{23, "Close"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := Name(day.Add(time.Duration(tt.hour) * time.Hour)); got != tt.want {
				t.Errorf("hour %d: got %s, want %s", tt.hour, got, tt.want)
			}
		})
	}
}

func TestBounds(t *testing.T) {
	at := time.Date(2024, 3, 4, 14, 30, 0, 0, time.UTC)
	if got := NewYork.Start(at); !got.Equal(time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("start = %v", got)
	}
	if got := Close.End(at); !got.Equal(time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("end = %v", got)
	}
}

func TestSelect(t *testing.T) {
	got, err := Select([]string{"newyork", " Asia "})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0] != Asia || got[1] != NewYork {
		t.Errorf("Select = %v, want chronological Asia, NewYork", got)
	}
	if _, err := Select(nil); err == nil {
		t.Error("expected error for empty selection")
	}
	if _, err := Select([]string{"Tokyo"}); err == nil {
		t.Error("expected error for unknown session")
	}
}

func TestValidate(t *testing.T) {
	if err := Validate(Default()); err != nil {
		t.Errorf("defaults: %v", err)
	}
	overlap := []Session{{Name: "a", StartHour: 0, EndHour: 8}, {Name: "b", StartHour: 6, EndHour: 10}}
	if err := Validate(overlap); err == nil {
		t.Error("expected overlap error")
	}
	if err := Validate([]Session{{Name: "x", StartHour: 5, EndHour: 5}}); err == nil {
		t.Error("expected invalid hours error")
	}
}
