// Eventcube - OLAP Rollup Query Engine for Ad-Tech Event Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventcube

// Package ingest implements the row source: a lazy, finite,
// single-consumption sequence of typed event records read from the raw CSV
// corpus, partitioned into the ~10^6-row batches the builder folds over.
package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/eventcube/internal/errkind"
	"github.com/tomtom215/eventcube/internal/eventmodel"
	"github.com/tomtom215/eventcube/internal/logging"
)

// BatchSize is the target row count per batch: one CSV file, or an N-row
// slice of a larger one.
const BatchSize = 1_000_000

// Batch is one slice of the row sequence, tagged with its source file for
// error messages and logging.
type Batch struct {
	SourceFile string
	Events     []eventmodel.Event
}

// Scan walks dataDir for CSV files and streams decoded batches onto the
// returned channel, one per-file decode goroutine bounded by
// errgroup.SetLimit, exploiting data parallelism across CPU cores. The
// channel is closed, and the returned error (from the group's Wait) set,
// once every file has been scanned or one has failed — CSV read errors
// abort the whole scan, since PREPARE is atomic at the file level.
//
// Each sequence Scan returns is consumed exactly once, per the Row Source's
// single-consumption contract; the rollup builder and the fact store build
// each call Scan for their own pass. workers <= 0 means runtime.NumCPU().
func Scan(ctx context.Context, dataDir string, workers int) (<-chan Batch, func() error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	out := make(chan Batch, workers*2)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	files, err := csvFiles(dataDir)
	if err != nil {
		close(out)
		wrapped := errkind.Wrap(errkind.IoFailure, err)
		return out, func() error { return wrapped }
	}

	for _, f := range files {
		f := f
		g.Go(func() error {
			if err := scanFile(gctx, f, out); err != nil {
				return errkind.Wrap(errkind.InputFormat, fmt.Errorf("scan %s: %w", f, err))
			}
			return nil
		})
	}

	var waitErr error
	done := make(chan struct{})
	go func() {
		waitErr = g.Wait()
		close(out)
		close(done)
	}()

	wait := func() error {
		<-done
		return waitErr
	}
	return out, wait
}

func csvFiles(dataDir string) ([]string, error) {
	entries, err := os.ReadDir(dataDir)
	if err != nil {
		return nil, fmt.Errorf("read data dir %s: %w", dataDir, err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".csv" {
			continue
		}
		files = append(files, filepath.Join(dataDir, e.Name()))
	}
	sort.Strings(files) // deterministic order; correctness never depends on it
	return files, nil
}

func scanFile(ctx context.Context, path string, out chan<- Batch) error {
	f, err := os.Open(path) //nolint:gosec // path enumerated from a trusted, operator-supplied data dir
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	decoder, err := eventmodel.NewRowDecoder(header)
	if err != nil {
		return err
	}

	logging.Debug().Str("file", path).Msg("INGEST: scanning file")

	batch := make([]eventmodel.Event, 0, BatchSize)
	rowNum := 1
	for {
		record, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return fmt.Errorf("read row %d: %w", rowNum, err)
		}
		rowNum++

		event, err := decoder.Decode(record)
		if err != nil {
			return fmt.Errorf("decode row %d: %w", rowNum, err)
		}
		batch = append(batch, event)

		if len(batch) >= BatchSize {
			select {
			case out <- Batch{SourceFile: path, Events: batch}:
			case <-ctx.Done():
				return ctx.Err()
			}
			batch = make([]eventmodel.Event, 0, BatchSize)
		}
	}

	if len(batch) > 0 {
		select {
		case out <- Batch{SourceFile: path, Events: batch}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}
