// Package observability exports the service's Prometheus metrics: safety
// verdicts and reasons, roof fetch latency and failures, the solar altitude
// and per-route HTTP counters.
package observability
