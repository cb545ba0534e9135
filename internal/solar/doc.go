// Package solar computes the sun's altitude and the daily window during which
// it stands above an operator-chosen threshold.
//
// The ephemeris itself is consumed through the Ephemeris interface. SunCalc is
// the production implementation; tests substitute EphemerisFunc stubs with a
// synthetic altitude curve.
//
// FindLockoutWindow runs a bracketed bisection search first and falls back to
// ten-minute sampling when the search fails. Both strategies are pure and safe
// for concurrent use.
package solar
