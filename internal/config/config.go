// Eventcube - OLAP Rollup Query Engine for Ad-Tech Event Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventcube

// Package config loads PREPARE and RUN configuration through koanf's
// layered provider model: built-in defaults, then an optional YAML file,
// then environment variables — each layer overriding the last. CLI flags are
// not read here; the front ends apply them on top of the returned struct.
package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix every environment-variable override must carry,
// e.g. EVENTCUBE_DATA_DIR for the data_dir key.
const EnvPrefix = "EVENTCUBE_"

// PrepareConfig holds every setting the prepare front end needs.
type PrepareConfig struct {
	DataDir     string `koanf:"data_dir" validate:"required"`
	OutputDir   string `koanf:"output_dir" validate:"required"`
	FallbackDir string `koanf:"fallback_dir" validate:"required"`
	Workers     int    `koanf:"workers" validate:"gte=0"`
}

// RunConfig holds every setting the run front end needs.
type RunConfig struct {
	QueryFile    string `koanf:"query_file"`
	QueryDir     string `koanf:"query_dir"`
	OutputDir    string `koanf:"output_dir" validate:"required"`
	RollupDir    string `koanf:"rollup_dir" validate:"required"`
	FallbackPath string `koanf:"fallback_path" validate:"required"`
}

func defaultPrepareConfig() PrepareConfig {
	return PrepareConfig{
		DataDir:     "data",
		OutputDir:   "rollups",
		FallbackDir: "fallback",
		Workers:     0, // 0 = runtime.NumCPU()
	}
}

func defaultRunConfig() RunConfig {
	return RunConfig{
		QueryFile:    "",
		QueryDir:     "",
		OutputDir:    "results",
		RollupDir:    "rollups",
		FallbackPath: "fallback/events.duckdb",
	}
}

var validate = validator.New()

// LoadPrepareConfig layers defaults, an optional YAML file, and
// EVENTCUBE_-prefixed environment variables into a PrepareConfig.
func LoadPrepareConfig(configPath string) (PrepareConfig, error) {
	k := koanf.New(".")
	defaults := defaultPrepareConfig()

	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return PrepareConfig{}, fmt.Errorf("load prepare defaults: %w", err)
	}
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
				return PrepareConfig{}, fmt.Errorf("load config file %s: %w", configPath, err)
			}
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envTransform), nil); err != nil {
		return PrepareConfig{}, fmt.Errorf("load environment overrides: %w", err)
	}

	var cfg PrepareConfig
	if err := k.Unmarshal("", &cfg); err != nil {
		return PrepareConfig{}, fmt.Errorf("unmarshal prepare config: %w", err)
	}
	if err := validate.Struct(cfg); err != nil {
		return PrepareConfig{}, fmt.Errorf("invalid prepare config: %w", err)
	}
	return cfg, nil
}

// LoadRunConfig layers defaults, an optional YAML file, and
// EVENTCUBE_-prefixed environment variables into a RunConfig.
func LoadRunConfig(configPath string) (RunConfig, error) {
	k := koanf.New(".")
	defaults := defaultRunConfig()

	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return RunConfig{}, fmt.Errorf("load run defaults: %w", err)
	}
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
				return RunConfig{}, fmt.Errorf("load config file %s: %w", configPath, err)
			}
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envTransform), nil); err != nil {
		return RunConfig{}, fmt.Errorf("load environment overrides: %w", err)
	}

	var cfg RunConfig
	if err := k.Unmarshal("", &cfg); err != nil {
		return RunConfig{}, fmt.Errorf("unmarshal run config: %w", err)
	}
	if err := validate.Struct(cfg); err != nil {
		return RunConfig{}, fmt.Errorf("invalid run config: %w", err)
	}
	return cfg, nil
}

// envTransform turns EVENTCUBE_DATA_DIR into "data_dir", matching the
// koanf struct tags above.
func envTransform(s string) string {
	without := s[len(EnvPrefix):]
	out := make([]byte, len(without))
	for i := 0; i < len(without); i++ {
		c := without[i]
		if c >= 'A' && c <= 'Z' {
			c = c - 'A' + 'a'
		}
		out[i] = c
	}
	return string(out)
}
