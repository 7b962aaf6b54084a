package clock

import "time"

// Clock provides the current instant and the location used for calendar dates.
type Clock interface {
	Now() time.Time
	Location() *time.Location
}

type System struct {
	Loc *time.Location
}

func NewSystem(loc *time.Location) System {
	if loc == nil {
		loc = time.Local
	}
	return System{Loc: loc}
}

func (s System) Now() time.Time {
	return time.Now().In(s.Location())
}

func (s System) Location() *time.Location {
	if s.Loc == nil {
		return time.Local
	}
	return s.Loc
}

// Fixed always reports T. Used by tests.
type Fixed struct {
	T time.Time
}

func (f Fixed) Now() time.Time {
	return f.T
}

func (f Fixed) Location() *time.Location {
	return f.T.Location()
}

// Today returns the current local calendar date as midnight UTC, which is how
// calendar dates are stored.
func Today(c Clock) time.Time {
	return DateOf(c.Now().In(c.Location()))
}

// DateOf drops the time-of-day of t, keeping its calendar date, as midnight UTC.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func LoadLocation(name string) (*time.Location, error) {
	if name == "" || name == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(name)
}
