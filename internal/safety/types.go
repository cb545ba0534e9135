package safety

import (
	"fmt"
	"math"
	"time"
)

// RoofConfig names a roof and the endpoint that reports its state.
type RoofConfig struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// LocationInfo is the observatory location published with the roof registry.
type LocationInfo struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timezone  string  `json:"timezone"`
}

// Registry is the read-only list of known roofs, in configured order.
type Registry struct {
	Location *LocationInfo `json:"location,omitempty"`
	Roofs    []RoofConfig  `json:"roofs"`
}

// Find returns the roof with the given name.
func (r Registry) Find(name string) (RoofConfig, bool) {
	if name == "" {
		return RoofConfig{}, false
	}
	for _, roof := range r.Roofs {
		if roof.Name == name {
			return roof, true
		}
	}
	return RoofConfig{}, false
}

// Settings is the persisted operator state.
type Settings struct {
	SelectedRoofName      string  `json:"selectedRoofName"`
	ManualOverrideEnabled bool    `json:"manualOverrideEnabled"`
	ManualOverrideValue   bool    `json:"manualOverrideValue"`
	SolarLockoutEnabled   bool    `json:"solarLockoutEnabled"`
	MaxSolarAltitude      float64 `json:"maxSolarAltitude"`
	ObservatoryLatitude   float64 `json:"observatoryLatitude"`
	ObservatoryLongitude  float64 `json:"observatoryLongitude"`
	ObservatoryTimezone   string  `json:"observatoryTimezone"`
}

// DefaultSettings returns the state used on first run: solar lockout on,
// sun must stay below the horizon, nothing selected, coordinates unset.
func DefaultSettings() Settings {
	return Settings{
		SolarLockoutEnabled: true,
		MaxSolarAltitude:    0,
	}
}

// HasCoordinates reports whether the observatory position is set. 0,0 is
// the "unset" sentinel, not a location.
func (s Settings) HasCoordinates() bool {
	return s.ObservatoryLatitude != 0 || s.ObservatoryLongitude != 0
}

// SolarLockoutActive reports whether the solar gate applies at all.
func (s Settings) SolarLockoutActive() bool {
	return s.SolarLockoutEnabled && s.HasCoordinates()
}

// Validate checks operator-entered values.
func (s Settings) Validate() error {
	switch {
	case !finite(s.MaxSolarAltitude) || s.MaxSolarAltitude < -90 || s.MaxSolarAltitude > 90:
		return fmt.Errorf("%w: maxSolarAltitude must be within [-90, 90]", ErrInvalidSettings)
	case !finite(s.ObservatoryLatitude) || s.ObservatoryLatitude < -90 || s.ObservatoryLatitude > 90:
		return fmt.Errorf("%w: observatoryLatitude must be within [-90, 90]", ErrInvalidSettings)
	case !finite(s.ObservatoryLongitude) || s.ObservatoryLongitude < -180 || s.ObservatoryLongitude > 180:
		return fmt.Errorf("%w: observatoryLongitude must be within [-180, 180]", ErrInvalidSettings)
	}
	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Snapshot is the configuration read once at the start of an evaluation.
type Snapshot struct {
	Settings Settings
	Registry Registry
}

// Reason explains a decision.
type Reason string

// Decision reasons, in gate order.
const (
	ReasonManualOverride  Reason = "manual_override"
	ReasonSolarLockout    Reason = "solar_lockout"
	ReasonNoRoofSelected  Reason = "no_roof_selected"
	ReasonRoofUnreachable Reason = "roof_unreachable"
	ReasonRoofUnsafe      Reason = "roof_unsafe"
	ReasonRoofOpen        Reason = "roof_open"
)

// Reasons lists every reason, for metric label pre-registration.
var Reasons = []Reason{
	ReasonManualOverride,
	ReasonSolarLockout,
	ReasonNoRoofSelected,
	ReasonRoofUnreachable,
	ReasonRoofUnsafe,
	ReasonRoofOpen,
}

// Description returns a short operator-facing sentence for the reason.
func (r Reason) Description() string {
	switch r {
	case ReasonManualOverride:
		return "Manual override in effect"
	case ReasonSolarLockout:
		return "Sun is above the lockout altitude"
	case ReasonNoRoofSelected:
		return "No roof selected"
	case ReasonRoofUnreachable:
		return "Roof status endpoint unreachable"
	case ReasonRoofUnsafe:
		return "Roof is not open"
	case ReasonRoofOpen:
		return "Roof is open"
	default:
		return string(r)
	}
}

// Decision is the fused safety verdict.
type Decision struct {
	IsSafe bool   `json:"isSafe"`
	Reason Reason `json:"reason"`

	// SolarAltitude is set when the solar gate evaluated the sun.
	SolarAltitude *float64 `json:"solarAltitude"`
	// RoofName is set when a roof was consulted.
	RoofName    string    `json:"roofName,omitempty"`
	EvaluatedAt time.Time `json:"evaluatedAt"`

	// FetchErr holds the cause behind ReasonRoofUnreachable, for logging.
	FetchErr error `json:"-"`
}

// SameVerdict reports whether two decisions agree on safety and reason.
func (d Decision) SameVerdict(o Decision) bool {
	return d.IsSafe == o.IsSafe && d.Reason == o.Reason
}
