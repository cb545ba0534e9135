// Package logging provides structured logging for the safety monitor.
//
// It wraps log/slog so every component emits the same JSON (or text)
// records with service and version fields attached.
//
// Configuration lives in the logging section of config.yaml:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// Usage:
//
//	logger := logging.New(cfg.Logging, version)
//	logger.Info("http server listening", "port", 11111)
//	logger.Warn("roof fetch failed", "roof", name, "error", err)
//
// Never log the JWT secret, MQTT password or InfluxDB token.
package logging
