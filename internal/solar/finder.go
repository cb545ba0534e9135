package solar

import "time"

// Logger is the logging surface the finder needs.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Finder locates lockout windows. The zero value is not usable; build one
// with NewFinder.
//
// Thread Safety: Find is safe for concurrent use.
type Finder struct {
	ephem    Ephemeris
	primary  rootSearch
	fallback sampleScan
	logger   Logger
}

// FinderOption customises a Finder.
type FinderOption func(*Finder)

// WithLogger sets the logger used for fallback and timezone notices.
func WithLogger(l Logger) FinderOption {
	return func(f *Finder) {
		if l != nil {
			f.logger = l
		}
	}
}

// WithSearchLimits overrides the bracket step, tolerance and iteration cap
// of the root search. Non-positive values leave the current setting.
func WithSearchLimits(step, tolerance time.Duration, maxIterations int) FinderOption {
	return func(f *Finder) {
		if step > 0 {
			f.primary.step = step
		}
		if tolerance > 0 {
			f.primary.tolerance = tolerance
		}
		if maxIterations > 0 {
			f.primary.maxIterations = maxIterations
		}
	}
}

// NewFinder builds a Finder over the given ephemeris.
func NewFinder(ephem Ephemeris, opts ...FinderOption) *Finder {
	f := &Finder{
		ephem: ephem,
		primary: rootSearch{
			ephem:         ephem,
			step:          DefaultBracketStep,
			tolerance:     DefaultTolerance,
			maxIterations: DefaultMaxIterations,
		},
		fallback: sampleScan{ephem: ephem, interval: SampleInterval},
		logger:   noopLogger{},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FindLockoutWindow returns the part of the civil date, in timezone tz,
// during which solar altitude exceeds threshold degrees. Instants are
// returned in the observatory's local time; an unknown tz is treated as UTC.
//
// The result depends only on its arguments.
func (f *Finder) FindLockoutWindow(date Date, lat, lon, threshold float64, tz string) LockoutWindow {
	loc, ok := ResolveLocation(tz)
	if !ok {
		f.logger.Warn("unknown observatory timezone, using UTC", "timezone", tz)
	}

	d := civilDay(date, loc)
	w, err := f.primary.find(d, lat, lon, threshold)
	if err != nil {
		f.logger.Warn("altitude search failed, sampling instead",
			"date", date.String(),
			"threshold", threshold,
			"error", err,
		)
		w = f.fallback.find(d, lat, lon, threshold)
	}
	return w.In(loc)
}

// Altitude returns the current altitude for lat/lon, 0.0 on failure.
func (f *Finder) Altitude(lat, lon float64, t time.Time) float64 {
	alt, err := AltitudeOrZero(f.ephem, lat, lon, t)
	if err != nil {
		f.logger.Warn("solar altitude unavailable, using 0", "lat", lat, "lon", lon, "error", err)
	}
	return alt
}
