package settings

import (
	"github.com/skyroof/safetymonitor/internal/safety"
)

// Logger is the logging surface the stores need.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Option configures a store.
type Option func(*options)

type options struct {
	logger Logger
}

// WithLogger sets the store logger.
func WithLogger(l Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func applyOptions(opts []Option) options {
	o := options{logger: noopLogger{}}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Compile-time interface checks.
var (
	_ safety.Store = (*FileStore)(nil)
	_ safety.Store = (*SQLiteStore)(nil)
)

// populateCoordinates fills unset observatory coordinates (and an empty
// timezone) from the registry location. It reports whether s changed.
func populateCoordinates(s *safety.Settings, reg safety.Registry) bool {
	loc := reg.Location
	if s.HasCoordinates() || loc == nil {
		return false
	}
	if loc.Latitude == 0 && loc.Longitude == 0 {
		return false
	}
	s.ObservatoryLatitude = loc.Latitude
	s.ObservatoryLongitude = loc.Longitude
	if s.ObservatoryTimezone == "" {
		s.ObservatoryTimezone = loc.Timezone
	}
	return true
}
