// Package influxdb records safety decisions and solar altitude as InfluxDB
// v2 time series.
//
// Points are written through the client's non-blocking API: they are
// batched (batch_size points or every flush_interval seconds) and errors
// are reported asynchronously via SetOnError. Two measurements are written:
//
//	safety_decision  tags: site, reason, roof   fields: is_safe (0/1), changed
//	solar_altitude   tags: site                 fields: degrees
package influxdb
