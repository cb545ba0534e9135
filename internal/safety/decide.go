package safety

import (
	"context"
	"time"

	"github.com/skyroof/safetymonitor/internal/roof"
)

// AltitudeFunc returns the sun's altitude in degrees at t. Failures must
// already be mapped to a value (0.0 by convention).
type AltitudeFunc func(lat, lon float64, t time.Time) float64

// FetchFunc retrieves the status text of a roof.
type FetchFunc func(ctx context.Context, r RoofConfig) (string, error)

// Decide fuses the three safety signals. Gates are evaluated in order and
// each one short-circuits the rest:
//
//  1. manual override
//  2. solar lockout (only with coordinates set)
//  3. roof selection
//  4. remote roof status
//
// Decide never fails: any uncertainty yields an unsafe decision. fetch is
// called at most once and only when gates 1 to 3 pass.
func Decide(ctx context.Context, snap Snapshot, now time.Time, altitude AltitudeFunc, fetch FetchFunc) Decision {
	s := snap.Settings
	d := Decision{EvaluatedAt: now}

	if s.ManualOverrideEnabled {
		d.IsSafe = s.ManualOverrideValue
		d.Reason = ReasonManualOverride
		return d
	}

	if s.SolarLockoutActive() {
		alt := altitude(s.ObservatoryLatitude, s.ObservatoryLongitude, now)
		d.SolarAltitude = &alt
		if alt > s.MaxSolarAltitude {
			d.Reason = ReasonSolarLockout
			return d
		}
	}

	r, ok := snap.Registry.Find(s.SelectedRoofName)
	if !ok {
		d.Reason = ReasonNoRoofSelected
		return d
	}
	d.RoofName = r.Name

	body, err := fetch(ctx, r)
	if err != nil {
		d.Reason = ReasonRoofUnreachable
		d.FetchErr = err
		return d
	}

	d.IsSafe = roof.ParseSafety(body)
	if d.IsSafe {
		d.Reason = ReasonRoofOpen
	} else {
		d.Reason = ReasonRoofUnsafe
	}
	return d
}
