// Package config loads AB Pulse settings.
//
// Values come from ABPULSE_* environment variables (envconfig, with
// defaults declared in struct tags) and an optional YAML file found at
// ABPULSE_CONFIG_FILE, ./config.yaml or ./configs/config.yaml. An
// explicitly set environment variable always wins over the file.
package config
