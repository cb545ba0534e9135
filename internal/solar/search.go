package solar

import (
	"fmt"
	"time"
)

// Root search defaults. A bracket whose endpoints are both below the threshold
// can still hide a short excursion above it when the threshold sits just under
// the daily peak, so such brackets are also searched for an interior maximum.
// Bisection reaches one second from ten minutes in about ten halvings.
const (
	DefaultBracketStep   = 10 * time.Minute
	DefaultTolerance     = time.Second
	DefaultMaxIterations = 40
)

// rootSearch finds threshold crossings by stepping through the day in fixed
// brackets and bisecting the first bracket whose endpoints straddle the
// threshold in the requested direction.
type rootSearch struct {
	ephem         Ephemeris
	step          time.Duration
	tolerance     time.Duration
	maxIterations int
}

type direction int

const (
	ascending direction = iota
	descending
)

func (d direction) String() string {
	if d == ascending {
		return "ascending"
	}
	return "descending"
}

// find returns the lockout window of the day or an error when any crossing
// cannot be established. It never returns a partially reconciled window.
func (s rootSearch) find(d day, lat, lon, threshold float64) (LockoutWindow, error) {
	f := func(t time.Time) (float64, error) {
		alt, err := AltitudeOrZero(s.ephem, lat, lon, t)
		if err != nil {
			return 0, err
		}
		return alt - threshold, nil
	}

	last := d.last()

	rise, hasRise, err := s.crossing(f, d.start, last, ascending)
	if err != nil {
		return LockoutWindow{}, err
	}

	if hasRise {
		w := LockoutWindow{Start: timePtr(rise)}
		set, hasSet, err := s.crossing(f, rise, last, descending)
		if err != nil {
			return LockoutWindow{}, err
		}
		if hasSet {
			w.End = timePtr(set)
			return w, nil
		}
		// Risen and never set: clamp to the end of the day if still above.
		above, err := f(last)
		if err != nil {
			return LockoutWindow{}, err
		}
		if above > 0 {
			w.End = timePtr(last)
		}
		return w, nil
	}

	atStart, err := f(d.start)
	if err != nil {
		return LockoutWindow{}, err
	}

	set, hasSet, err := s.crossing(f, d.start, last, descending)
	if err != nil {
		return LockoutWindow{}, err
	}
	switch {
	case hasSet && atStart > 0:
		// Already locked out at midnight, cleared later in the day.
		return LockoutWindow{Start: timePtr(d.start), End: timePtr(set)}, nil
	case !hasSet && atStart > 0:
		// No crossing and above at midnight: above all day.
		return LockoutWindow{Start: timePtr(d.start), End: timePtr(last)}, nil
	default:
		return LockoutWindow{}, nil
	}
}

// crossing scans [from, to] in step-sized brackets for the first crossing in
// direction dir and refines it by bisection. The returned instant is the first
// one on the far side of the threshold, within tolerance. A bracket with both
// ends on the near side is searched for an interior turning point that reaches
// the far side.
func (s rootSearch) crossing(f func(time.Time) (float64, error), from, to time.Time, dir direction) (time.Time, bool, error) {
	a := from
	fa, err := f(a)
	if err != nil {
		return time.Time{}, false, err
	}

	for a.Before(to) {
		b := a.Add(s.step)
		if b.After(to) {
			b = to
		}
		fb, err := f(b)
		if err != nil {
			return time.Time{}, false, err
		}

		if straddles(fa, fb, dir) {
			t, err := s.bisect(f, a, b, dir)
			if err != nil {
				return time.Time{}, false, err
			}
			return t, true, nil
		}
		if !farSide(fa, dir) && !farSide(fb, dir) {
			m, ok, err := s.excursion(f, a, b, fa, fb, dir)
			if err != nil {
				return time.Time{}, false, err
			}
			if ok {
				t, err := s.bisect(f, a, m, dir)
				if err != nil {
					return time.Time{}, false, err
				}
				return t, true, nil
			}
		}
		a, fa = b, fb
	}
	return time.Time{}, false, nil
}

// excursion looks for an instant inside (a, b) on the far side of the
// threshold when both ends are on the near side. It only searches brackets
// that turn towards the far side at both ends, and narrows them by ternary
// search on the oriented value.
func (s rootSearch) excursion(f func(time.Time) (float64, error), a, b time.Time, fa, fb float64, dir direction) (time.Time, bool, error) {
	if b.Sub(a) <= 2*s.tolerance {
		return time.Time{}, false, nil
	}
	sign := 1.0
	if dir == descending {
		sign = -1
	}
	oriented := func(t time.Time) (float64, float64, error) {
		v, err := f(t)
		if err != nil {
			return 0, 0, err
		}
		return v, sign * v, nil
	}

	_, afterA, err := oriented(a.Add(s.tolerance))
	if err != nil {
		return time.Time{}, false, err
	}
	_, beforeB, err := oriented(b.Add(-s.tolerance))
	if err != nil {
		return time.Time{}, false, err
	}
	if afterA <= sign*fa || beforeB <= sign*fb {
		return time.Time{}, false, nil
	}

	lo, hi := a, b
	for i := 0; i < s.maxIterations; i++ {
		if hi.Sub(lo) <= s.tolerance {
			return time.Time{}, false, nil
		}
		third := hi.Sub(lo) / 3
		m1, m2 := lo.Add(third), hi.Add(-third)
		v1, o1, err := oriented(m1)
		if err != nil {
			return time.Time{}, false, err
		}
		if farSide(v1, dir) {
			return m1, true, nil
		}
		v2, o2, err := oriented(m2)
		if err != nil {
			return time.Time{}, false, err
		}
		if farSide(v2, dir) {
			return m2, true, nil
		}
		if o1 < o2 {
			lo = m1
		} else {
			hi = m2
		}
	}
	return time.Time{}, false, fmt.Errorf("%w: %s turning point still %v wide after %d iterations",
		ErrNoConvergence, dir, hi.Sub(lo), s.maxIterations)
}

func straddles(fa, fb float64, dir direction) bool {
	return !farSide(fa, dir) && farSide(fb, dir)
}

// farSide reports whether v lies past the threshold for a crossing in dir.
func farSide(v float64, dir direction) bool {
	if dir == ascending {
		return v > 0
	}
	return v <= 0
}

// bisect narrows [lo, hi] where lo is on the near side of the threshold and
// hi on the far side.
func (s rootSearch) bisect(f func(time.Time) (float64, error), lo, hi time.Time, dir direction) (time.Time, error) {
	for i := 0; i < s.maxIterations; i++ {
		if hi.Sub(lo) <= s.tolerance {
			return hi, nil
		}
		mid := lo.Add(hi.Sub(lo) / 2)
		fm, err := f(mid)
		if err != nil {
			return time.Time{}, err
		}
		if farSide(fm, dir) {
			hi = mid
		} else {
			lo = mid
		}
	}
	return time.Time{}, fmt.Errorf("%w: %s crossing still %v wide after %d iterations",
		ErrNoConvergence, dir, hi.Sub(lo), s.maxIterations)
}
