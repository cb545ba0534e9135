// Package config handles loading and validating safety monitor configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Loading an optional .env file into the environment
//   - Overriding with SAFETYMONITOR_* environment variables
//   - Validation of required fields
//
// Operator state (selected roof, override, lockout threshold, coordinates)
// is not configuration; it lives in the settings store and changes at runtime.
//
// Usage:
//
//	if err := config.LoadEnvFile(".env"); err != nil {
//	    log.Fatal(err)
//	}
//	cfg, err := config.Load(config.DefaultPath)
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
