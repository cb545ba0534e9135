package solar

import "errors"

var (
	// ErrInvalidCoordinates is returned for latitudes outside [-90, 90] or
	// longitudes outside [-180, 180].
	ErrInvalidCoordinates = errors.New("invalid observer coordinates")

	// ErrEphemeris indicates the ephemeris produced no usable altitude.
	ErrEphemeris = errors.New("ephemeris computation failed")

	// ErrNoConvergence is returned by the root search when a crossing could
	// not be narrowed to the required tolerance within the iteration cap.
	ErrNoConvergence = errors.New("altitude search did not converge")
)
