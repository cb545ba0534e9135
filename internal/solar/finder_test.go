package solar

import (
	"errors"
	"math"
	"sync"
	"testing"
	"time"
	_ "time/tzdata"
)

// sinusoid peaks at 12:00 UTC with the given amplitude and crosses zero at
// 06:00 and 18:00 UTC, independent of the observer.
func sinusoid(amplitude float64) Ephemeris {
	return EphemerisFunc(func(_, _, _ float64, t time.Time) (float64, error) {
		u := t.UTC()
		h := float64(u.Hour()) + float64(u.Minute())/60 + float64(u.Second())/3600
		return amplitude * math.Sin(2*math.Pi*(h-6)/24), nil
	})
}

// linear returns base + slope*hours since UTC midnight.
func linear(base, slope float64) Ephemeris {
	return EphemerisFunc(func(_, _, _ float64, t time.Time) (float64, error) {
		u := t.UTC()
		midnight := time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
		return base + slope*u.Sub(midnight).Hours(), nil
	})
}

func constant(alt float64) Ephemeris {
	return EphemerisFunc(func(float64, float64, float64, time.Time) (float64, error) {
		return alt, nil
	})
}

type recordingLogger struct {
	mu    sync.Mutex
	warns []string
}

func (r *recordingLogger) Debug(string, ...any) {}

func (r *recordingLogger) Warn(msg string, _ ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.warns = append(r.warns, msg)
}

func (r *recordingLogger) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.warns)
}

var solstice = Date{Year: 2024, Month: time.June, Day: 21}

func utc(h, m, s int) time.Time {
	return time.Date(2024, time.June, 21, h, m, s, 0, time.UTC)
}

func within(t *testing.T, name string, got *time.Time, want time.Time, tol time.Duration) {
	t.Helper()
	if got == nil {
		t.Fatalf("%s = nil, want %s", name, want)
	}
	if d := got.Sub(want); d < -tol || d > tol {
		t.Errorf("%s = %s, want %s ± %s", name, got.UTC().Format(time.TimeOnly), want.UTC().Format(time.TimeOnly), tol)
	}
}

func TestFindLockoutWindow_Sinusoid(t *testing.T) {
	eph := sinusoid(60)
	f := NewFinder(eph)

	w := f.FindLockoutWindow(solstice, 45, 10, 30, "UTC")

	within(t, "Start", w.Start, utc(8, 0, 0), 2*time.Second)
	within(t, "End", w.End, utc(16, 0, 0), 2*time.Second)

	if w.Start.After(*w.End) {
		t.Fatalf("Start %s after End %s", w.Start, w.End)
	}

	for name, at := range map[string]time.Time{"start": *w.Start, "end": *w.End} {
		alt, _ := eph.Altitude(45, 10, 0, at)
		if math.Abs(alt-30) > 0.1 {
			t.Errorf("altitude at %s = %.4f, want ≈30", name, alt)
		}
	}

	mid := w.Start.Add(w.End.Sub(*w.Start) / 2)
	if alt, _ := eph.Altitude(45, 10, 0, mid); alt <= 30 {
		t.Errorf("altitude between crossings = %.2f, want > 30", alt)
	}
}

func TestFindLockoutWindow_Idempotent(t *testing.T) {
	f := NewFinder(sinusoid(60))

	a := f.FindLockoutWindow(solstice, 45, 10, 12.5, "UTC")
	b := f.FindLockoutWindow(solstice, 45, 10, 12.5, "UTC")

	if !a.Equal(b) {
		t.Errorf("repeated calls differ: %+v vs %+v", a, b)
	}
}

func TestFindLockoutWindow_ConcurrentCalls(t *testing.T) {
	f := NewFinder(sinusoid(60))
	want := f.FindLockoutWindow(solstice, 45, 10, 20, "UTC")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if got := f.FindLockoutWindow(solstice, 45, 10, 20, "UTC"); !got.Equal(want) {
				t.Errorf("concurrent result %+v, want %+v", got, want)
			}
		}()
	}
	wg.Wait()
}

func TestFindLockoutWindow_FallbackAgreesWithPrimary(t *testing.T) {
	eph := sinusoid(60)
	logger := &recordingLogger{}

	primary := NewFinder(eph).FindLockoutWindow(solstice, 45, 10, 25, "UTC")
	// One iteration can never narrow a 15 minute bracket to a second.
	sampled := NewFinder(eph, WithLogger(logger), WithSearchLimits(15*time.Minute, time.Second, 1)).
		FindLockoutWindow(solstice, 45, 10, 25, "UTC")

	if logger.count() == 0 {
		t.Fatal("expected a fallback warning")
	}
	if sampled.Start == nil || sampled.End == nil {
		t.Fatalf("fallback window = %+v, want both ends", sampled)
	}
	if sampled.Start.Minute()%10 != 0 || sampled.Start.Second() != 0 {
		t.Errorf("fallback start %s not on the sampling grid", sampled.Start)
	}

	within(t, "fallback Start", sampled.Start, *primary.Start, SampleInterval)
	within(t, "fallback End", sampled.End, *primary.End, SampleInterval)
}

func TestFindLockoutWindow_EdgeReconciliation(t *testing.T) {
	dayEnd := utc(23, 59, 59)

	tests := []struct {
		name      string
		eph       Ephemeris
		threshold float64
		wantStart *time.Time
		wantEnd   *time.Time
	}{
		{
			name:      "above at midnight then sets",
			eph:       linear(50, -4),
			threshold: 30,
			wantStart: timePtr(utc(0, 0, 0)),
			wantEnd:   timePtr(utc(5, 0, 0)),
		},
		{
			name:      "rises and never sets",
			eph:       linear(-20, 4),
			threshold: 30,
			wantStart: timePtr(utc(12, 30, 0)),
			wantEnd:   timePtr(dayEnd),
		},
		{
			name:      "above all day",
			eph:       constant(50),
			threshold: 30,
			wantStart: timePtr(utc(0, 0, 0)),
			wantEnd:   timePtr(dayEnd),
		},
		{
			name:      "never reaches threshold",
			eph:       constant(-10),
			threshold: 0,
		},
		{
			name:      "peak below threshold",
			eph:       sinusoid(20),
			threshold: 25,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewFinder(tt.eph).FindLockoutWindow(solstice, 10, 10, tt.threshold, "UTC")

			if tt.wantStart == nil {
				if w.HasLockout() || w.End != nil {
					t.Fatalf("window = %+v, want none", w)
				}
				return
			}
			within(t, "Start", w.Start, *tt.wantStart, 2*time.Second)
			if tt.wantEnd == nil {
				if w.End != nil {
					t.Errorf("End = %s, want nil", w.End)
				}
				return
			}
			within(t, "End", w.End, *tt.wantEnd, 2*time.Second)
		})
	}
}

func TestFindLockoutWindow_EphemerisFailureFallsBack(t *testing.T) {
	failing := EphemerisFunc(func(float64, float64, float64, time.Time) (float64, error) {
		return 0, ErrEphemeris
	})
	logger := &recordingLogger{}
	f := NewFinder(failing, WithLogger(logger))

	// Failing altitudes read as 0.0, which is above a negative threshold
	// from the first sample and never drops back.
	w := f.FindLockoutWindow(solstice, 10, 10, -5, "UTC")
	within(t, "Start", w.Start, utc(0, 0, 0), 0)
	if w.End != nil {
		t.Errorf("End = %s, want nil (open-ended)", w.End)
	}

	if got := f.FindLockoutWindow(solstice, 10, 10, 5, "UTC"); got.HasLockout() {
		t.Errorf("window = %+v, want none", got)
	}
	if logger.count() < 2 {
		t.Errorf("warnings = %d, want one per fallback", logger.count())
	}
}

func TestFindLockoutWindow_LocalTime(t *testing.T) {
	f := NewFinder(sinusoid(60))

	w := f.FindLockoutWindow(solstice, 40, -74, 30, "America/New_York")
	if w.Start == nil || w.End == nil {
		t.Fatalf("window = %+v, want both ends", w)
	}
	if got := w.Start.Location().String(); got != "America/New_York" {
		t.Errorf("Start location = %s, want America/New_York", got)
	}
	// 08:00 UTC is 04:00 EDT.
	if w.Start.Hour() != 4 {
		t.Errorf("Start local hour = %d, want 4", w.Start.Hour())
	}
	within(t, "Start", w.Start, utc(8, 0, 0), 2*time.Second)
}

func TestFindLockoutWindow_UnknownTimezone(t *testing.T) {
	logger := &recordingLogger{}
	f := NewFinder(sinusoid(60), WithLogger(logger))

	w := f.FindLockoutWindow(solstice, 45, 10, 30, "Mars/Olympus_Mons")

	if w.Start == nil {
		t.Fatal("expected a window in UTC")
	}
	if w.Start.Location() != time.UTC {
		t.Errorf("Start location = %s, want UTC", w.Start.Location())
	}
	if logger.count() != 1 {
		t.Errorf("warnings = %d, want 1", logger.count())
	}
}

func TestFinder_Altitude(t *testing.T) {
	logger := &recordingLogger{}
	f := NewFinder(SunCalc{}, WithLogger(logger))

	if got := f.Altitude(91, 181, utc(12, 0, 0)); got != 0 {
		t.Errorf("Altitude(invalid) = %v, want 0", got)
	}
	if logger.count() != 1 {
		t.Errorf("warnings = %d, want 1", logger.count())
	}
}

func TestResolveLocation(t *testing.T) {
	tests := []struct {
		tz     string
		wantOK bool
		want   string
	}{
		{"", true, "UTC"},
		{"UTC", true, "UTC"},
		{"Europe/Madrid", true, "Europe/Madrid"},
		{"Not/AZone", false, "UTC"},
	}
	for _, tt := range tests {
		t.Run(tt.tz, func(t *testing.T) {
			loc, ok := ResolveLocation(tt.tz)
			if ok != tt.wantOK || loc.String() != tt.want {
				t.Errorf("ResolveLocation(%q) = %s, %v; want %s, %v", tt.tz, loc, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestCivilDay_DST(t *testing.T) {
	loc, _ := ResolveLocation("America/New_York")

	spring := civilDay(Date{Year: 2024, Month: time.March, Day: 10}, loc)
	if got := spring.end.Sub(spring.start); got != 23*time.Hour {
		t.Errorf("spring-forward day length = %s, want 23h", got)
	}
	autumn := civilDay(Date{Year: 2024, Month: time.November, Day: 3}, loc)
	if got := autumn.end.Sub(autumn.start); got != 25*time.Hour {
		t.Errorf("fall-back day length = %s, want 25h", got)
	}
}

func TestDate(t *testing.T) {
	d := Date{Year: 2024, Month: time.December, Day: 31}
	if got := d.AddDays(1).String(); got != "2025-01-01" {
		t.Errorf("AddDays(1) = %s, want 2025-01-01", got)
	}
	if got := (Date{Year: 2024, Month: time.March, Day: 1}).AddDays(-1).String(); got != "2024-02-29" {
		t.Errorf("AddDays(-1) = %s, want 2024-02-29", got)
	}
	if got := DateOf(time.Date(2024, 6, 21, 23, 30, 0, 0, time.UTC)); got != solstice {
		t.Errorf("DateOf = %v, want %v", got, solstice)
	}
}

func TestLockoutWindow_Contains(t *testing.T) {
	start, end := utc(8, 0, 0), utc(16, 0, 0)

	tests := []struct {
		name string
		w    LockoutWindow
		at   time.Time
		want bool
	}{
		{"inside", LockoutWindow{Start: &start, End: &end}, utc(12, 0, 0), true},
		{"at start", LockoutWindow{Start: &start, End: &end}, start, true},
		{"at end", LockoutWindow{Start: &start, End: &end}, end, true},
		{"before", LockoutWindow{Start: &start, End: &end}, utc(7, 59, 0), false},
		{"after", LockoutWindow{Start: &start, End: &end}, utc(16, 0, 1), false},
		{"open ended", LockoutWindow{Start: &start}, utc(23, 0, 0), true},
		{"empty", LockoutWindow{}, utc(12, 0, 0), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.w.Contains(tt.at); got != tt.want {
				t.Errorf("Contains() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRootSearch_NoConvergence(t *testing.T) {
	s := rootSearch{ephem: sinusoid(60), step: DefaultBracketStep, tolerance: time.Second, maxIterations: 2}
	_, err := s.find(civilDay(solstice, time.UTC), 0, 0, 30)
	if !errors.Is(err, ErrNoConvergence) {
		t.Errorf("find() error = %v, want ErrNoConvergence", err)
	}
}

// peakingAt is a sinusoid of the given amplitude whose maximum falls at the
// given offset from UTC midnight.
func peakingAt(amplitude float64, peak time.Duration) Ephemeris {
	return EphemerisFunc(func(_, _, _ float64, t time.Time) (float64, error) {
		u := t.UTC()
		midnight := time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
		h := (u.Sub(midnight) - peak + 6*time.Hour).Hours()
		return amplitude * math.Sin(2*math.Pi*h/24), nil
	})
}

func TestFindLockoutWindow_ThresholdJustBelowPeak(t *testing.T) {
	tests := []struct {
		name      string
		peak      time.Duration
		threshold float64
	}{
		{"window straddles grid point", 12*time.Hour + 7*time.Minute + 30*time.Second, 59.99},
		{"window between grid points", 12*time.Hour + 5*time.Minute, 59.999},
		{"window inside first bracket", 12*time.Hour + 2*time.Minute, 59.9999},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFinder(peakingAt(60, tt.peak), WithLogger(&recordingLogger{}))
			w := f.FindLockoutWindow(solstice, 45, 10, tt.threshold, "UTC")

			if !w.HasLockout() {
				t.Fatalf("window = %+v, want a lockout around the peak", w)
			}
			half := time.Duration((6 - math.Asin(tt.threshold/60)*12/math.Pi) * float64(time.Hour))
			peak := utc(0, 0, 0).Add(tt.peak)
			within(t, "Start", w.Start, peak.Add(-half), 2*time.Second)
			within(t, "End", w.End, peak.Add(half), 2*time.Second)
			if w.End.Before(*w.Start) {
				t.Errorf("End %s before Start %s", w.End, w.Start)
			}
		})
	}
}

func TestFindLockoutWindow_PeakJustBelowThreshold(t *testing.T) {
	f := NewFinder(peakingAt(60, 12*time.Hour+5*time.Minute))
	if w := f.FindLockoutWindow(solstice, 45, 10, 60.0001, "UTC"); w.HasLockout() {
		t.Errorf("window = %+v, want none", w)
	}
}

func TestWithSearchLimits_IgnoresNonPositive(t *testing.T) {
	logger := &recordingLogger{}
	done := make(chan LockoutWindow, 1)
	go func() {
		f := NewFinder(sinusoid(60), WithLogger(logger), WithSearchLimits(0, -time.Second, 0))
		done <- f.FindLockoutWindow(solstice, 45, 10, 30, "UTC")
	}()

	select {
	case w := <-done:
		want := NewFinder(sinusoid(60)).FindLockoutWindow(solstice, 45, 10, 30, "UTC")
		if w.Start == nil || w.End == nil {
			t.Fatalf("window = %+v, want both ends", w)
		}
		within(t, "Start", w.Start, *want.Start, 0)
		within(t, "End", w.End, *want.End, 0)
		if logger.count() != 0 {
			t.Errorf("unexpected fallback warnings: %v", logger.warns)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("FindLockoutWindow did not return with non-positive search limits")
	}
}

func TestWithSearchLimits_Applied(t *testing.T) {
	f := NewFinder(constant(0), WithSearchLimits(time.Minute, 2*time.Second, 7))
	if f.primary.step != time.Minute || f.primary.tolerance != 2*time.Second || f.primary.maxIterations != 7 {
		t.Errorf("primary = %+v, want step 1m tolerance 2s iterations 7", f.primary)
	}
}
