// Package api implements the HTTP surface of the safety monitor.
//
// This package provides:
//   - The ASCOM Alpaca SafetyMonitor device API and the management API
//   - Extension endpoints exposing solar status, the lockout period, the
//     manual override, roof diagnostics and the full decision
//   - An HTML setup page with roof selection and solar settings
//   - A WebSocket hub pushing decision events to browsers
//   - Health, system and Prometheus metrics endpoints
//   - Middleware stack (request ID, logging, recovery, CORS, body limit)
//
// # Alpaca conventions
//
// Device routes answer HTTP 200 with the Alpaca envelope even when the
// underlying operation fails; the failure travels in ErrorNumber and
// ErrorMessage. Only an unknown device number or a malformed PUT form
// produce HTTP 400 with a plain-text body. ServerTransactionID comes from
// one counter per server and strictly increases across responses.
//
// # Security
//
// When a JWT secret is configured, the mutating setup routes and the
// override write require a bearer token with the operator role. Read routes
// are always open: Alpaca clients cannot send credentials.
package api
