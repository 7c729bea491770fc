// Package config loads railyard configuration.
//
// Precedence, lowest first: DefaultConfig, the YAML file, RAILYARD_*
// environment variables, then command-line overrides given as dot paths
// (for example "pool.workers=8").
package config
