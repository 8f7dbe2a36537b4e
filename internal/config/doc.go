// Package config loads, normalizes, and validates the TOML configuration
// that wires streamlet's stores and components together.
package config
