// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package config loads optional YAML overrides for per-operation
// tolerance budgets and path forcing.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// OpOverride adjusts one operation. Nil fields keep the catalog default.
type OpOverride struct {
	Abs            *float64 `yaml:"abs"`
	Rel            *float64 `yaml:"rel"`
	MaxMismatches  *int     `yaml:"max_mismatches"`
	ForceReference bool     `yaml:"force_reference"`
}

// Config is the file root: a map from operation name to its override.
type Config struct {
	Ops map[string]OpOverride `yaml:"ops"`
}

// Load parses the YAML file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return &cfg, nil
}
