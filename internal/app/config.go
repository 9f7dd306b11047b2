package app

import (
	"errors"
	"fmt"
)

// Config holds the startup settings of an App. Empty or nil fields leave the
// value from the configuration files untouched.
type Config struct {
	// ConfigPaths lists HCL files or directories. Missing paths are skipped.
	ConfigPaths []string

	LogLevel    string
	LogFormat   string
	Workers     *int
	ImportDepth *int
	// MetricsListen overrides metrics.listen, e.g. ":9090".
	MetricsListen string
}

// NewConfig validates cfg and returns a copy of it.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.Workers != nil && *cfg.Workers < 0 {
		return nil, fmt.Errorf("workers must not be negative, got %d", *cfg.Workers)
	}
	for _, p := range cfg.ConfigPaths {
		if p == "" {
			return nil, errors.New("config path cannot be empty")
		}
	}
	return &cfg, nil
}
