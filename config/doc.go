// Package config loads service and client configuration.
//
// Values come from a YAML file found in the usual locations (or passed
// explicitly), an optional .env file, and the process environment. Environment
// variables are matched against nested keys, so TRANSCRIBE_RETRY_MAX_ATTEMPTS
// sets retry.max_attempts when the loader runs with the TRANSCRIBE prefix.
//
//	var cfg relay.Config
//	err := config.LoadConfig("relay", &cfg, config.WithEnvPrefix("RELAY"))
package config
