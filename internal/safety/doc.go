// Package safety fuses the manual override, the solar lockout and the remote
// roof status into a single is-safe verdict.
//
// Decide is the pure decision function. Service wraps it with a settings
// store, the solar Finder and a roof Fetcher, and exposes the read and write
// operations used by the HTTP surface and the background monitor.
//
// Every uncertainty (no roof selected, unreachable roof, unparseable status)
// resolves to unsafe.
package safety
