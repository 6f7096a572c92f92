// Package config loads and validates the pipeline configuration from YAML.
package config
