// Eventcube - OLAP Rollup Query Engine for Ad-Tech Event Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventcube

package config

import (
	"os"
	"testing"
)

func TestLoadPrepareConfig_Defaults(t *testing.T) {
	cfg, err := LoadPrepareConfig("")
	if err != nil {
		t.Fatalf("LoadPrepareConfig: %v", err)
	}
	want := defaultPrepareConfig()
	if cfg != want {
		t.Errorf("LoadPrepareConfig(\"\") = %+v, want defaults %+v", cfg, want)
	}
}

func TestLoadPrepareConfig_EnvOverride(t *testing.T) {
	t.Setenv("EVENTCUBE_DATA_DIR", "/tmp/custom-data")
	t.Setenv("EVENTCUBE_WORKERS", "4")

	cfg, err := LoadPrepareConfig("")
	if err != nil {
		t.Fatalf("LoadPrepareConfig: %v", err)
	}
	if cfg.DataDir != "/tmp/custom-data" {
		t.Errorf("DataDir = %q, want env override", cfg.DataDir)
	}
	if cfg.Workers != 4 {
		t.Errorf("Workers = %d, want 4 from env", cfg.Workers)
	}
}

func TestLoadPrepareConfig_FileOverride(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/config.yaml"
	if err := os.WriteFile(path, []byte("output_dir: /tmp/custom-rollups\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := LoadPrepareConfig(path)
	if err != nil {
		t.Fatalf("LoadPrepareConfig: %v", err)
	}
	if cfg.OutputDir != "/tmp/custom-rollups" {
		t.Errorf("OutputDir = %q, want file override", cfg.OutputDir)
	}
	// Unset keys must retain their defaults.
	if cfg.DataDir != defaultPrepareConfig().DataDir {
		t.Errorf("DataDir = %q, want untouched default", cfg.DataDir)
	}
}

func TestLoadPrepareConfig_EnvWinsOverFile(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/config.yaml"
	if err := os.WriteFile(path, []byte("data_dir: /from-file\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	t.Setenv("EVENTCUBE_DATA_DIR", "/from-env")

	cfg, err := LoadPrepareConfig(path)
	if err != nil {
		t.Fatalf("LoadPrepareConfig: %v", err)
	}
	if cfg.DataDir != "/from-env" {
		t.Errorf("DataDir = %q, want env to win over file", cfg.DataDir)
	}
}

func TestLoadPrepareConfig_NegativeWorkersRejected(t *testing.T) {
	t.Setenv("EVENTCUBE_WORKERS", "-1")
	if _, err := LoadPrepareConfig(""); err == nil {
		t.Error("expected validation error for negative workers")
	}
}

func TestLoadRunConfig_Defaults(t *testing.T) {
	cfg, err := LoadRunConfig("")
	if err != nil {
		t.Fatalf("LoadRunConfig: %v", err)
	}
	if cfg.OutputDir != "results" || cfg.RollupDir != "rollups" {
		t.Errorf("LoadRunConfig defaults = %+v", cfg)
	}
}

func TestEnvTransform(t *testing.T) {
	if got := envTransform("EVENTCUBE_DATA_DIR"); got != "data_dir" {
		t.Errorf("envTransform = %q, want data_dir", got)
	}
	if got := envTransform("EVENTCUBE_FALLBACK_DIR"); got != "fallback_dir" {
		t.Errorf("envTransform = %q, want fallback_dir", got)
	}
}
