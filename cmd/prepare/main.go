// Eventcube - OLAP Rollup Query Engine for Ad-Tech Event Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventcube

// Command prepare runs the PREPARE phase: reads the raw
// CSV event corpus, builds every rollup cube in the catalog, and
// materializes the sorted fact store the fallback executor queries at RUN
// time. Each cube file is written to a temporary name and renamed into place
// only once complete, but cubes are published one after another and the
// fact store is built afterwards, directly at its final path. A failure
// partway through therefore leaves the cubes already published in place,
// and a failed fact store build leaves a partial file behind.
//
// # Configuration
//
// Settings load through internal/config's layered koanf provider: built-in
// defaults, an optional YAML file (--config), then EVENTCUBE_-prefixed
// environment variables.
//
//	prepare --data-dir data --output-dir rollups --fallback-dir fallback
//
// # Exit codes
//
// A failure's errkind.Kind selects the process exit code, so a caller
// scripting PREPARE can distinguish "bad input" from "disk full" without
// parsing log output.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/tomtom215/eventcube/internal/catalog"
	"github.com/tomtom215/eventcube/internal/config"
	"github.com/tomtom215/eventcube/internal/errkind"
	"github.com/tomtom215/eventcube/internal/factstore"
	"github.com/tomtom215/eventcube/internal/logging"
	"github.com/tomtom215/eventcube/internal/metrics"
	"github.com/tomtom215/eventcube/internal/rollup"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to an optional YAML config file")
		dataDir    = flag.String("data-dir", "", "directory of input CSV files (overrides config/env)")
		outputDir  = flag.String("output-dir", "", "directory to publish rollup cubes into")
		fallback   = flag.String("fallback-dir", "", "directory to publish the sorted fact store into")
		workers    = flag.Int("workers", -1, "parallel ingest workers (0 or unset = runtime.NumCPU())")
		logLevel   = flag.String("log-level", "info", "trace, debug, info, warn, or error")
		logFormat  = flag.String("log-format", "console", "json or console")
	)
	flag.Parse()

	logging.Init(logging.Config{Level: *logLevel, Format: *logFormat, Output: os.Stderr})

	cfg, err := config.LoadPrepareConfig(*configPath)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to load prepare configuration")
		os.Exit(1)
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	if *outputDir != "" {
		cfg.OutputDir = *outputDir
	}
	if *fallback != "" {
		cfg.FallbackDir = *fallback
	}
	if *workers >= 0 {
		cfg.Workers = *workers
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.Info().Str("data_dir", cfg.DataDir).Str("output_dir", cfg.OutputDir).
		Str("fallback_dir", cfg.FallbackDir).Msg("PREPARE: starting")

	cat := catalog.Default()

	builder := rollup.NewBuilder(cat)
	if err := builder.Run(ctx, cfg.DataDir, cfg.OutputDir, cfg.Workers); err != nil {
		fail(err, "Failed to build rollup cubes")
	}

	fallbackPath := fallbackDBPath(cfg.FallbackDir)
	if err := factstore.Build(ctx, cfg.DataDir, fallbackPath, cfg.Workers); err != nil {
		fail(err, "Failed to build sorted fact store")
	}

	logging.Info().Msg("PREPARE: complete")
	dumpMetrics()
}

// fallbackDBPath places the DuckDB file inside cfg.FallbackDir under a fixed
// name, so run's default config can find it without extra wiring.
func fallbackDBPath(dir string) string {
	return dir + "/events.duckdb"
}

// fail logs the error, dumps whatever metrics accumulated before the
// failure, and exits with the code its errkind.Kind maps to, so a caller
// scripting PREPARE can distinguish failure kinds from the exit code alone
// instead of a single fixed exit status.
func fail(err error, msg string) {
	logging.Error().Err(err).Msg(msg)
	dumpMetrics()
	os.Exit(errkind.ExitCode(errkind.Of(err)))
}

func dumpMetrics() {
	text, err := metrics.DumpText()
	if err != nil {
		logging.Warn().Err(err).Msg("PREPARE: failed to render metrics")
		return
	}
	fmt.Fprint(os.Stderr, text)
}
