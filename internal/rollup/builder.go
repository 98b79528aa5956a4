// Eventcube - OLAP Rollup Query Engine for Ad-Tech Event Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventcube

package rollup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/eventcube/internal/catalog"
	"github.com/tomtom215/eventcube/internal/columnar"
	"github.com/tomtom215/eventcube/internal/errkind"
	"github.com/tomtom215/eventcube/internal/eventmodel"
	"github.com/tomtom215/eventcube/internal/ingest"
	"github.com/tomtom215/eventcube/internal/logging"
	"github.com/tomtom215/eventcube/internal/metrics"
)

// foldEvery is the batch cadence at which a cube's active accumulator is
// folded (housekeeping only; does not affect results).
const foldEvery = 50

// cubeState is the builder's per-descriptor working set: the long-lived
// active accumulator plus the batch counter driving the fold cadence.
type cubeState struct {
	descriptor catalog.Descriptor
	keys       []catalog.Dimension
	active     *accumulator
	batches    int
}

// Builder runs the single-pass streaming rollup build: one pass over every
// event in the corpus, maintaining one hash accumulator per catalog
// descriptor, and atomically publishing each finalized cube to outDir.
type Builder struct {
	cat    *catalog.Catalog
	states []*cubeState
}

// NewBuilder constructs a Builder for every descriptor in cat.
func NewBuilder(cat *catalog.Catalog) *Builder {
	states := make([]*cubeState, 0, len(cat.All()))
	for _, d := range cat.All() {
		keyCols := make([]columnar.Column, len(d.Keys))
		for i, dim := range d.Keys {
			keyCols[i] = columnar.DimensionColumn(dim)
		}
		states = append(states, &cubeState{
			descriptor: d,
			keys:       d.Keys,
			active:     newAccumulator(keyCols),
		})
	}
	return &Builder{cat: cat, states: states}
}

// Run consumes every batch from dataDir (via ingest.Scan), folding each one
// into every cube's accumulator, then writes every finalized cube to outDir.
// A cube is never partially published: each is written to a temp file under
// outDir and renamed into place only after the write succeeds, so a process
// crash mid-build leaves outDir with either a complete prior cube or none.
func (b *Builder) Run(ctx context.Context, dataDir, outDir string, workers int) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return errkind.Wrap(errkind.IoFailure, fmt.Errorf("create output dir: %w", err))
	}

	batches, wait := ingest.Scan(ctx, dataDir, workers)

	rowsFolded := int64(0)
	for batch := range batches {
		start := time.Now()
		b.foldBatch(batch.Events)
		metrics.BatchDuration.Observe(time.Since(start).Seconds())
		metrics.RowsFoldedTotal.Add(float64(len(batch.Events)))
		rowsFolded += int64(len(batch.Events))
		logging.Debug().Str("file", batch.SourceFile).Int("rows", len(batch.Events)).
			Int64("total_rows_folded", rowsFolded).Msg("ROLLUP: folded batch")
	}
	if err := wait(); err != nil {
		return err
	}

	logging.Info().Int64("rows_folded", rowsFolded).Int("cubes", len(b.states)).
		Msg("ROLLUP: fold complete, finalizing cubes")

	for _, st := range b.states {
		cube := st.active.finalize(st.descriptor.ID)
		if err := publishCube(outDir, st.descriptor, cube); err != nil {
			return err
		}
		logging.Info().Str("cube", st.descriptor.ID).Int("rows", len(cube.Rows)).
			Msg("ROLLUP: published cube")
	}
	return nil
}

// foldBatch folds one batch of events into every cube's active accumulator.
// Each batch is first grouped locally (a fresh accumulator scoped to the
// batch), then merged into the cube's long-lived active accumulator — this
// keeps the per-event work proportional to the batch's own cardinality
// rather than the active accumulator's, which can be far larger.
func (b *Builder) foldBatch(events []eventmodel.Event) {
	for _, st := range b.states {
		local := newAccumulator(st.active.keyColumns)
		for _, e := range events {
			keys, err := keyTuple(st.keys, e)
			if err != nil {
				continue
			}
			local.add(keys, e.BidPrice, e.TotalPrice)
		}
		st.active.mergeFrom(local)
		st.batches++
		if st.batches%foldEvery == 0 {
			st.active.fold()
			metrics.FoldsTotal.Inc()
		}
	}
}

func keyTuple(dims []catalog.Dimension, e eventmodel.Event) ([]columnar.Value, error) {
	keys := make([]columnar.Value, len(dims))
	for i, dim := range dims {
		v, err := columnar.KeyValueFromEvent(dim, e)
		if err != nil {
			return nil, err
		}
		keys[i] = v
	}
	return keys, nil
}

// publishCube writes cube to a temp file under outDir and renames it to the
// descriptor's fixed file name only once the write has fully succeeded.
func publishCube(outDir string, d catalog.Descriptor, cube *columnar.Cube) error {
	finalPath := filepath.Join(outDir, d.FileName())
	tmpPath := filepath.Join(outDir, fmt.Sprintf(".%s.%s.tmp", d.ID, uuid.NewString()))

	f, err := os.Create(tmpPath) //nolint:gosec // path built from operator-supplied outDir and a generated name
	if err != nil {
		return errkind.Wrap(errkind.IoFailure, fmt.Errorf("create temp cube file: %w", err))
	}

	if err := columnar.Write(f, cube); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return errkind.Wrap(errkind.IoFailure, fmt.Errorf("write cube %s: %w", d.ID, err))
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return errkind.Wrap(errkind.IoFailure, fmt.Errorf("close cube file %s: %w", d.ID, err))
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		_ = os.Remove(tmpPath)
		return errkind.Wrap(errkind.IoFailure, fmt.Errorf("publish cube %s: %w", d.ID, err))
	}
	return nil
}
