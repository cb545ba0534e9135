package solar

import (
	"fmt"
	"time"
)

// Date is a civil calendar date with no time-of-day or zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the civil date of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// AddDays returns the date n days later (n may be negative).
func (d Date) AddDays(n int) Date {
	return DateOf(time.Date(d.Year, d.Month, d.Day+n, 12, 0, 0, 0, time.UTC))
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// day is the half-open instant range [start, end) covering one civil day.
type day struct {
	start time.Time
	end   time.Time
}

// civilDay converts a civil date in loc to its instant range. Days with a
// DST transition are 23 or 25 hours long.
func civilDay(d Date, loc *time.Location) day {
	start := time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
	return day{start: start, end: start.AddDate(0, 0, 1)}
}

// last is the final instant searched within the day.
func (d day) last() time.Time {
	return d.end.Add(-endOfDayEpsilon)
}

// endOfDayEpsilon separates the last searched instant from midnight.
const endOfDayEpsilon = time.Second

// LockoutWindow is the interval of a civil day during which the sun stands
// above the lockout threshold.
//
// A nil Start means the sun never reaches the threshold that day. A nil End
// with a non-nil Start means the lockout runs through the end of the day.
type LockoutWindow struct {
	Start *time.Time
	End   *time.Time
}

// HasLockout reports whether the window contains any lockout time.
func (w LockoutWindow) HasLockout() bool {
	return w.Start != nil
}

// Contains reports whether t falls inside the window, inclusive at both ends.
func (w LockoutWindow) Contains(t time.Time) bool {
	if w.Start == nil || t.Before(*w.Start) {
		return false
	}
	return w.End == nil || !t.After(*w.End)
}

// In returns a copy with both instants expressed in loc.
func (w LockoutWindow) In(loc *time.Location) LockoutWindow {
	var out LockoutWindow
	if w.Start != nil {
		s := w.Start.In(loc)
		out.Start = &s
	}
	if w.End != nil {
		e := w.End.In(loc)
		out.End = &e
	}
	return out
}

// Equal reports whether both windows describe the same instants.
func (w LockoutWindow) Equal(o LockoutWindow) bool {
	return sameInstant(w.Start, o.Start) && sameInstant(w.End, o.End)
}

func sameInstant(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

// ResolveLocation loads an IANA zone. An empty id means UTC. An unknown id
// also yields UTC, with ok=false so the caller can log the substitution.
func ResolveLocation(tz string) (loc *time.Location, ok bool) {
	if tz == "" || tz == "UTC" {
		return time.UTC, true
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.UTC, false
	}
	return loc, true
}

func timePtr(t time.Time) *time.Time {
	return &t
}
