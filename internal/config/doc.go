// Package config loads, normalizes, and validates clipress configuration data.
//
// It supplies defaults, expands user paths (including tilde shortcuts), reads
// TOML files, loads an optional .env file next to the config, and honours
// environment fallbacks such as CLIPRESS_API_TOKEN and REDIS_ADDR. The Config
// type centralizes every knob the daemon and CLI need.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, validated default job settings, and
// clear validation errors.
package config
