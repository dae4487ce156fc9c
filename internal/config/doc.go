// Package config loads, validates, and defaults the TOML configuration for the
// oasis backend, including the tracer end-member reference tables consumed by
// the mixing models.
package config
