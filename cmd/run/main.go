// Eventcube - OLAP Rollup Query Engine for Ad-Tech Event Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventcube

// Command run executes a batch of queries against a prepared rollup set and
// sorted fact store, writing one CSV result file per query. Each query is
// isolated: a query document that fails to decode, route, or execute fails
// on its own and run continues to the rest, but the process still exits
// nonzero if any query failed.
//
//	run --query-dir queries --output-dir results --rollup-dir rollups --fallback-path fallback/events.duckdb
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/tomtom215/eventcube/internal/catalog"
	"github.com/tomtom215/eventcube/internal/config"
	"github.com/tomtom215/eventcube/internal/errkind"
	"github.com/tomtom215/eventcube/internal/factstore"
	"github.com/tomtom215/eventcube/internal/fallback"
	"github.com/tomtom215/eventcube/internal/logging"
	"github.com/tomtom215/eventcube/internal/metrics"
	"github.com/tomtom215/eventcube/internal/querydoc"
	"github.com/tomtom215/eventcube/internal/resultio"
	"github.com/tomtom215/eventcube/internal/rollup"
	"github.com/tomtom215/eventcube/internal/rollupexec"
	"github.com/tomtom215/eventcube/internal/router"
)

func main() {
	var (
		configPath   = flag.String("config", "", "path to an optional YAML config file")
		queryFile    = flag.String("query-file", "", "a single JSON file holding an array of query documents")
		queryDir     = flag.String("query-dir", "", "a directory of *.json files, each an array of query documents")
		outputDir    = flag.String("output-dir", "", "directory to write q<n> result CSVs into")
		rollupDir    = flag.String("rollup-dir", "", "directory PREPARE published rollup cubes into")
		fallbackPath = flag.String("fallback-path", "", "path to the sorted fact store PREPARE published")
		logLevel     = flag.String("log-level", "info", "trace, debug, info, warn, or error")
		logFormat    = flag.String("log-format", "console", "json or console")
	)
	flag.Parse()

	logging.Init(logging.Config{Level: *logLevel, Format: *logFormat, Output: os.Stderr})

	cfg, err := config.LoadRunConfig(*configPath)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to load run configuration")
		os.Exit(1)
	}
	if *queryFile != "" {
		cfg.QueryFile = *queryFile
	}
	if *queryDir != "" {
		cfg.QueryDir = *queryDir
	}
	if *outputDir != "" {
		cfg.OutputDir = *outputDir
	}
	if *rollupDir != "" {
		cfg.RollupDir = *rollupDir
	}
	if *fallbackPath != "" {
		cfg.FallbackPath = *fallbackPath
	}
	if cfg.QueryFile == "" && cfg.QueryDir == "" {
		logging.Error().Msg("one of --query-file or --query-dir is required")
		os.Exit(1)
	}

	ctx := context.Background()
	cat := catalog.Default()

	loader, err := rollup.NewLoader(cfg.RollupDir, cat)
	if err != nil {
		fail(err, "Failed to load rollup cubes")
	}

	store, err := factstore.Open(cfg.FallbackPath)
	if err != nil {
		fail(err, "Failed to open sorted fact store")
	}
	defer func() { _ = store.Close() }()

	entries := loadQueryDocuments(cfg)

	logging.Info().Int("queries", len(entries)).Str("output_dir", cfg.OutputDir).Msg("RUN: starting")

	failures := 0
	for i, e := range entries {
		n := i + 1
		if e.Err != nil {
			failures++
			metrics.QueryFailuresTotal.WithLabelValues(errkind.Of(e.Err).String()).Inc()
			logging.Error().Err(e.Err).Int("query", n).Msg("RUN: query failed to decode")
			continue
		}
		if err := runOne(ctx, cat, loader, store, e.Doc, cfg.OutputDir, n); err != nil {
			failures++
			metrics.QueryFailuresTotal.WithLabelValues(errkind.Of(err).String()).Inc()
			logging.Error().Err(err).Int("query", n).Msg("RUN: query failed")
			continue
		}
	}

	dumpMetrics()
	logging.Info().Int("queries", len(entries)).Int("failed", failures).Msg("RUN: complete")
	if failures > 0 {
		os.Exit(1)
	}
}

// runOne routes, executes, and serializes one query. Every failure it
// returns is tagged with an errkind.Kind for the caller's per-query
// accounting; it never aborts the batch itself.
func runOne(ctx context.Context, cat *catalog.Catalog, loader *rollup.Loader, store *factstore.Store, doc querydoc.Document, outputDir string, n int) error {
	start := time.Now()

	routeStart := time.Now()
	plan := router.Route(cat, doc)
	metrics.RouterDecisionDuration.Observe(time.Since(routeStart).Seconds())

	var (
		result rollupexec.Result
		err    error
		source string
	)
	if plan.Fallback {
		source = "fallback"
		result, err = fallback.Execute(ctx, store, doc)
	} else {
		source = plan.CubeID
		cube, cubeErr := loader.Cube(plan.CubeID)
		if cubeErr != nil {
			return cubeErr
		}
		result, err = rollupexec.Execute(plan, cube, doc)
	}

	metrics.PlanKindTotal.WithLabelValues(source).Inc()
	metrics.QueryDuration.WithLabelValues(source).Observe(time.Since(start).Seconds())
	if err != nil {
		return err
	}

	path := filepath.Join(outputDir, resultio.FileName(n))
	if err := resultio.Write(path, result); err != nil {
		return err
	}
	logging.Debug().Int("query", n).Str("source", source).Int("rows", len(result.Rows)).Msg("RUN: query complete")
	return nil
}

func fail(err error, msg string) {
	logging.Error().Err(err).Msg(msg)
	dumpMetrics()
	os.Exit(errkind.ExitCode(errkind.Of(err)))
}

func dumpMetrics() {
	text, err := metrics.DumpText()
	if err != nil {
		logging.Warn().Err(err).Msg("RUN: failed to render metrics")
		return
	}
	fmt.Fprint(os.Stdout, text)
}

// loadQueryDocuments reads and decodes every configured query source,
// concatenating their arrays in a stable order: the single file first (if
// set), then every *.json file in the directory in sorted name order. A
// failure reading or decoding one file never drops queries found anywhere
// else: it contributes one failed Entry at its position and processing of
// the remaining sources continues.
func loadQueryDocuments(cfg config.RunConfig) []querydoc.Entry {
	var entries []querydoc.Entry

	if cfg.QueryFile != "" {
		entries = append(entries, decodeFile(cfg.QueryFile)...)
	}

	if cfg.QueryDir != "" {
		dirEntries, err := os.ReadDir(cfg.QueryDir)
		if err != nil {
			entries = append(entries, querydoc.Entry{
				Err: errkind.Wrap(errkind.IoFailure, fmt.Errorf("read query dir %s: %w", cfg.QueryDir, err)),
			})
			return entries
		}
		var names []string
		for _, e := range dirEntries {
			if !e.IsDir() && filepath.Ext(e.Name()) == ".json" {
				names = append(names, e.Name())
			}
		}
		sort.Strings(names)
		for _, name := range names {
			entries = append(entries, decodeFile(filepath.Join(cfg.QueryDir, name))...)
		}
	}

	return entries
}

// decodeFile reads and decodes one query file into its array of entries. A
// file that cannot be read or whose top-level value isn't a JSON array
// yields a single failed Entry rather than an error, so the caller can
// isolate it from every other file's queries.
func decodeFile(path string) []querydoc.Entry {
	raw, err := os.ReadFile(path) //nolint:gosec // path comes from operator-supplied config/flags
	if err != nil {
		return []querydoc.Entry{{Err: errkind.Wrap(errkind.IoFailure, fmt.Errorf("read query file %s: %w", path, err))}}
	}
	entries, err := querydoc.DecodeAll(raw)
	if err != nil {
		return []querydoc.Entry{{Err: err}}
	}
	return entries
}
