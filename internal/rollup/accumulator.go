// Eventcube - OLAP Rollup Query Engine for Ad-Tech Event Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventcube

// Package rollup implements the single-pass streaming rollup builder and the
// rollup loader.
package rollup

import (
	"strings"

	"github.com/tomtom215/eventcube/internal/columnar"
)

// accumulator is one cube's associative map from key tuple to aggregate
// cells, backed by an open-addressed hash table with a dense key encoding.
// Go's built-in map already gives us open addressing-adjacent behavior; the
// dense encoding is the string key produced by encodeKey.
type accumulator struct {
	keyColumns []columnar.Column
	groups     map[string]*group
}

type group struct {
	keys []columnar.Value
	agg  columnar.Aggregates
}

func newAccumulator(keyColumns []columnar.Column) *accumulator {
	return &accumulator{
		keyColumns: keyColumns,
		groups:     make(map[string]*group),
	}
}

// encodeKey renders a key tuple as a single string for use as a Go map key.
// \x1f (unit separator) cannot appear in any of the source fields (numeric
// strings, ISO dates, 2-letter country codes, the closed type enum), so this
// never collides two distinct tuples.
func encodeKey(values []columnar.Value) string {
	var b strings.Builder
	for i, v := range values {
		if i > 0 {
			b.WriteByte('\x1f')
		}
		b.WriteString(v.Encode())
	}
	return b.String()
}

// add folds one event's key tuple and aggregate contribution into the
// accumulator, creating the group on first sight.
func (a *accumulator) add(keys []columnar.Value, bidPrice, totalPrice *float64) {
	k := encodeKey(keys)
	g, ok := a.groups[k]
	if !ok {
		g = &group{keys: keys}
		a.groups[k] = g
	}
	g.agg.AddEvent(bidPrice, totalPrice)
}

// mergeFrom merges every group of other into a. Used to fold a batch-local
// accumulator into the cube's long-lived active accumulator; merging is
// associative and commutative, the same property NULL-safe aggregates need.
func (a *accumulator) mergeFrom(other *accumulator) {
	for k, og := range other.groups {
		g, ok := a.groups[k]
		if !ok {
			g = &group{keys: og.keys}
			a.groups[k] = g
		}
		g.agg.Merge(og.agg)
	}
}

// fold rebuilds the accumulator's backing map in place. This is a
// housekeeping no-op on semantics: it reclaims transient bucket overhead
// from Go's map growth strategy without changing any group's contents,
// keeping heap fragmentation bounded over a long PREPARE run.
func (a *accumulator) fold() {
	rebuilt := make(map[string]*group, len(a.groups))
	for k, g := range a.groups {
		rebuilt[k] = g
	}
	a.groups = rebuilt
}

// finalize drains the accumulator into a columnar.Cube, ready for Write.
func (a *accumulator) finalize(id string) *columnar.Cube {
	cube := &columnar.Cube{ID: id, KeyColumns: a.keyColumns}
	cube.Rows = make([]columnar.Row, 0, len(a.groups))
	for _, g := range a.groups {
		cube.Rows = append(cube.Rows, columnar.Row{Keys: g.keys, Agg: g.agg})
	}
	return cube
}
