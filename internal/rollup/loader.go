// Eventcube - OLAP Rollup Query Engine for Ad-Tech Event Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventcube

package rollup

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/tomtom215/eventcube/internal/catalog"
	"github.com/tomtom215/eventcube/internal/columnar"
	"github.com/tomtom215/eventcube/internal/errkind"
	"github.com/tomtom215/eventcube/internal/logging"
)

// Loader serves finalized cubes to the query router and executor. Small
// cubes (per catalog.Descriptor.SizeClass) are loaded eagerly at startup;
// large cubes are opened from disk on first request and cached, so a RUN
// process that only ever queries a handful of cubes never pays the cost of
// reading the wide cube's tens of millions of rows.
type Loader struct {
	dir string
	cat *catalog.Catalog

	mu    sync.RWMutex
	cubes map[string]*columnar.Cube
}

// NewLoader opens a Loader over dir, eagerly reading every small cube in
// cat. dir must contain a complete rollup set written by Builder.Run; a
// missing file for any descriptor is reported as errkind.CatalogAbsent.
func NewLoader(dir string, cat *catalog.Catalog) (*Loader, error) {
	l := &Loader{
		dir:   dir,
		cat:   cat,
		cubes: make(map[string]*columnar.Cube),
	}
	for _, d := range cat.All() {
		path := filepath.Join(dir, d.FileName())
		if _, err := os.Stat(path); err != nil {
			return nil, errkind.Wrap(errkind.CatalogAbsent, fmt.Errorf("rollup %s missing at %s: %w", d.ID, path, err))
		}
		if d.SizeClass() == catalog.Small {
			cube, err := l.readCube(d)
			if err != nil {
				return nil, err
			}
			l.cubes[d.ID] = cube
			logging.Debug().Str("cube", d.ID).Int("rows", len(cube.Rows)).Msg("ROLLUP: eagerly loaded cube")
		}
	}
	return l, nil
}

// Cube returns the finalized cube for descriptor id, loading it from disk on
// first request if it was not eagerly loaded at startup. The returned cube
// must be treated as read-only: Loader never mutates a cube in place once
// cached, and callers must not either.
func (l *Loader) Cube(id string) (*columnar.Cube, error) {
	l.mu.RLock()
	cube, ok := l.cubes[id]
	l.mu.RUnlock()
	if ok {
		return cube, nil
	}

	d, ok := l.cat.Lookup(id)
	if !ok {
		return nil, errkind.Wrap(errkind.CatalogAbsent, fmt.Errorf("unknown rollup %q", id))
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if cube, ok := l.cubes[id]; ok {
		return cube, nil
	}
	cube, err := l.readCube(d)
	if err != nil {
		return nil, err
	}
	l.cubes[id] = cube
	logging.Debug().Str("cube", id).Int("rows", len(cube.Rows)).Msg("ROLLUP: lazily loaded cube")
	return cube, nil
}

func (l *Loader) readCube(d catalog.Descriptor) (*columnar.Cube, error) {
	path := filepath.Join(l.dir, d.FileName())
	f, err := os.Open(path) //nolint:gosec // path built from operator-supplied rollup dir and catalog file names
	if err != nil {
		return nil, errkind.Wrap(errkind.IoFailure, fmt.Errorf("open cube %s: %w", d.ID, err))
	}
	defer func() { _ = f.Close() }()

	keyCols := make([]columnar.Column, len(d.Keys))
	for i, dim := range d.Keys {
		keyCols[i] = columnar.DimensionColumn(dim)
	}
	cube, err := columnar.Read(f, d.ID, keyCols)
	if err != nil {
		return nil, errkind.Wrap(errkind.IoFailure, fmt.Errorf("read cube %s: %w", d.ID, err))
	}
	return cube, nil
}
