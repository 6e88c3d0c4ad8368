// Package config loads process configuration from environment variables.
package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Config holds configuration shared by the supervisor and generator
// processes. Both read the same variables so they agree on the names and
// geometry of the shared resources.
type Config struct {
	Ring      RingConfig
	Generator GeneratorConfig
	Diag      DiagConfig
	Logging   LogConfig
}

// RingConfig names and sizes the shared ring.
type RingConfig struct {
	NamePrefix string `envconfig:"SHM3C_PREFIX" default:"shm3c"`
	Capacity   uint32 `envconfig:"SHM3C_CAPACITY" default:"400"`
}

// GeneratorConfig tunes the worker search loop.
type GeneratorConfig struct {
	// Threshold is the highest conflicting-edge count still worth
	// reporting to the supervisor.
	Threshold int `envconfig:"SHM3C_THRESHOLD" default:"8"`
	// Workers is the number of concurrent search workers per generator
	// process.
	Workers int `envconfig:"SHM3C_WORKERS" default:"1"`
}

// DiagConfig controls the supervisor's diagnostics endpoint. An empty
// address disables it.
type DiagConfig struct {
	Addr string `envconfig:"SHM3C_DIAG_ADDR" default:""`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"SHM3C_LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"SHM3C_LOG_DEV" default:"false"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.Ring.Capacity == 0 {
		return nil, fmt.Errorf("SHM3C_CAPACITY must be positive")
	}
	if cfg.Generator.Workers < 1 {
		return nil, fmt.Errorf("SHM3C_WORKERS must be at least 1")
	}
	return &cfg, nil
}

// Default returns the built-in default configuration.
func Default() *Config {
	return &Config{
		Ring:      RingConfig{NamePrefix: "shm3c", Capacity: 400},
		Generator: GeneratorConfig{Threshold: 8, Workers: 1},
		Logging:   LogConfig{Level: "info"},
	}
}
