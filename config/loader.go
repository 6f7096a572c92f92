package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Load reads, validates and defaults the application configuration. When
// path is empty the usual locations are tried in order.
func Load(path string) (*AppConfig, error) {
	paths := []string{path}
	if path == "" {
		paths = []string{"config.yml", "./config/config.yml"}
	}
	var data []byte
	var err error
	for _, p := range paths {
		data, err = os.ReadFile(p)
		if err == nil {
			break
		}
	}
	if err != nil {
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	applyDefaults(&cfg)
	v := validator.New()
	if err := v.Struct(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	for mode := range cfg.Isochrones.Profiles {
		if cfg.Isochrones.Profiles[mode] == "" {
			return nil, fmt.Errorf("validate config: empty profile for mode %q", mode)
		}
	}
	for _, mode := range cfg.Isochrones.Modes {
		if _, ok := cfg.Isochrones.Profiles[mode]; !ok {
			return nil, fmt.Errorf("validate config: mode %q has no routing profile", mode)
		}
	}
	return &cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.API.TimeoutSeconds == 0 {
		cfg.API.TimeoutSeconds = 30
	}
	if cfg.API.MaxRetries == 0 {
		cfg.API.MaxRetries = 10
	}
	if cfg.API.BackoffFactor == 0 {
		cfg.API.BackoffFactor = 5
	}
	if cfg.API.PauseSeconds == 0 {
		cfg.API.PauseSeconds = 3
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}
