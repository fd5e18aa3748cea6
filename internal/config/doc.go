// Package config defines the application configuration structure and
// loading logic. Configuration comes from environment variables with
// the COACH_ prefix and an optional YAML file, validated with
// struct-level validation tags before use.
package config
