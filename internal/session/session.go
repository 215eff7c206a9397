// Package session names the fixed UTC trading sessions of a calendar day.
package session

import (
	"fmt"
	"strings"
	"time"
)

// Session is a named UTC hour range [StartHour, EndHour).
type Session struct {
	Name      string `json:"name" yaml:"name"`
	StartHour int    `json:"start_hour" yaml:"start_hour"`
	EndHour   int    `json:"end_hour" yaml:"end_hour"`
}

var (
	Asia    = Session{Name: "Asia", StartHour: 0, EndHour: 6}
	London  = Session{Name: "London", StartHour: 6, EndHour: 12}
	NewYork = Session{Name: "NewYork", StartHour: 12, EndHour: 20}
	Close   = Session{Name: "Close", StartHour: 20, EndHour: 24}
)

// Default returns the four sessions in chronological order.
func Default() []Session {
	return []Session{Asia, London, NewYork, Close}
}

// Contains reports whether t's UTC hour falls in the session.
func (s Session) Contains(t time.Time) bool {
	h := t.UTC().Hour()
	return h >= s.StartHour && h < s.EndHour
}

// Start returns the session start on t's UTC calendar date.
func (s Session) Start(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), s.StartHour, 0, 0, 0, time.UTC)
}

// End returns the exclusive session end on t's UTC calendar date.
func (s Session) End(t time.Time) time.Time {
	return s.Start(t).Add(time.Duration(s.EndHour-s.StartHour) * time.Hour)
}

// Of returns the session containing t among the given sessions.
func Of(t time.Time, sessions []Session) (Session, bool) {
	for _, s := range sessions {
		if s.Contains(t) {
			return s, true
		}
	}
	return Session{}, false
}

// Name returns the default session name of t.
func Name(t time.Time) string {
	s, _ := Of(t, Default())
	return s.Name
}

// Index returns the position of name in sessions or -1.
func Index(name string, sessions []Session) int {
	for i, s := range sessions {
		if strings.EqualFold(s.Name, name) {
			return i
		}
	}
	return -1
}

// Select picks sessions from the defaults by name. An empty list is an error:
// a session analysis with nothing selected would be silently empty.
func Select(names []string) ([]Session, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("no sessions selected")
	}
	var out []Session
	seen := make(map[string]bool)
	for _, d := range Default() {
		for _, n := range names {
			if strings.EqualFold(strings.TrimSpace(n), d.Name) && !seen[d.Name] {
				out = append(out, d)
				seen[d.Name] = true
			}
		}
	}
	for _, n := range names {
		if Index(strings.TrimSpace(n), Default()) < 0 {
			return nil, fmt.Errorf("unknown session %q", n)
		}
	}
	return out, nil
}

// Validate checks hour bounds and overlaps.
func Validate(sessions []Session) error {
	if len(sessions) == 0 {
		return fmt.Errorf("no sessions selected")
	}
	for i, s := range sessions {
		if s.StartHour < 0 || s.EndHour > 24 || s.StartHour >= s.EndHour {
			return fmt.Errorf("session %s: invalid hours %d-%d", s.Name, s.StartHour, s.EndHour)
		}
		for _, o := range sessions[i+1:] {
			if s.StartHour < o.EndHour && o.StartHour < s.EndHour {
				return fmt.Errorf("sessions %s and %s overlap", s.Name, o.Name)
			}
		}
	}
	return nil
}
