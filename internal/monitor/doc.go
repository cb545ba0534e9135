// Package monitor evaluates the safety decision on a fixed period and hands
// every result to a set of sinks: the retained MQTT state topic, InfluxDB
// points and WebSocket clients. A failing sink is logged and skipped; it
// never stops the loop or the other sinks.
package monitor
