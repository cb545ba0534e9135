package solar

import (
	"fmt"
	"math"
	"time"

	"github.com/sixdouglas/suncalc"
)

// Ephemeris returns the sun's altitude in degrees above the horizon for an
// observer at the given latitude, longitude (degrees) and elevation (metres).
type Ephemeris interface {
	Altitude(lat, lon, elevation float64, t time.Time) (float64, error)
}

// EphemerisFunc adapts a plain function to the Ephemeris interface.
type EphemerisFunc func(lat, lon, elevation float64, t time.Time) (float64, error)

// Altitude calls f.
func (f EphemerisFunc) Altitude(lat, lon, elevation float64, t time.Time) (float64, error) {
	return f(lat, lon, elevation, t)
}

// SunCalc is the production Ephemeris backed by the suncalc library.
// Elevation is accepted for interface symmetry; suncalc models a sea-level
// observer, which is well inside the one-minute precision target.
type SunCalc struct{}

// Altitude implements Ephemeris.
func (SunCalc) Altitude(lat, lon, _ float64, t time.Time) (float64, error) {
	if err := ValidateCoordinates(lat, lon); err != nil {
		return 0, err
	}

	pos := suncalc.GetPosition(t.UTC(), lat, lon)
	alt := pos.Altitude * 180 / math.Pi
	if math.IsNaN(alt) || math.IsInf(alt, 0) {
		return 0, fmt.Errorf("%w: non-finite altitude at %s", ErrEphemeris, t.UTC().Format(time.RFC3339))
	}
	return alt, nil
}

// ValidateCoordinates reports whether lat/lon are finite and in range.
func ValidateCoordinates(lat, lon float64) error {
	switch {
	case math.IsNaN(lat) || math.IsNaN(lon):
		return fmt.Errorf("%w: NaN coordinate", ErrInvalidCoordinates)
	case lat < -90 || lat > 90:
		return fmt.Errorf("%w: latitude %v out of range", ErrInvalidCoordinates, lat)
	case lon < -180 || lon > 180:
		return fmt.Errorf("%w: longitude %v out of range", ErrInvalidCoordinates, lon)
	}
	return nil
}

// AltitudeOrZero evaluates e and maps any failure to 0.0 degrees. The error
// is still returned so the caller can log it.
func AltitudeOrZero(e Ephemeris, lat, lon float64, t time.Time) (float64, error) {
	alt, err := e.Altitude(lat, lon, 0, t)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(alt) || math.IsInf(alt, 0) {
		return 0, fmt.Errorf("%w: non-finite altitude", ErrEphemeris)
	}
	return alt, nil
}
