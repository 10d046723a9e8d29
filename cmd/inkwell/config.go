package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// config is the optional inkwell.yaml configuration.
type config struct {
	Listen   string        `yaml:"listen,omitempty"`
	Measure  measureConfig `yaml:"measure,omitempty"`
	LogLevel string        `yaml:"log_level,omitempty"`
}

type measureConfig struct {
	TimeoutMS int `yaml:"timeout_ms,omitempty"`
}

func defaultConfig() config {
	return config{
		Listen:   ":8080",
		Measure:  measureConfig{TimeoutMS: 250},
		LogLevel: "info",
	}
}

// loadConfig reads path if it exists; a missing file yields defaults.
func loadConfig(path string) (config, error) {
	cfg := defaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if cfg.Listen == "" {
		cfg.Listen = ":8080"
	}
	if cfg.Measure.TimeoutMS <= 0 {
		cfg.Measure.TimeoutMS = 250
	}
	return cfg, nil
}

func (c config) measureTimeout() time.Duration {
	return time.Duration(c.Measure.TimeoutMS) * time.Millisecond
}
