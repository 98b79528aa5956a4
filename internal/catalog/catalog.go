// Eventcube - OLAP Rollup Query Engine for Ad-Tech Event Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventcube

// Package catalog holds the immutable rollup descriptor set: each rollup's
// key dimensions, stored aggregate columns (fixed across every cube), file
// name, and rough size class.
package catalog

// SizeClass classifies a cube by expected row count: a cube is small if its
// expected row count is under 100,000, large otherwise. The loader
// (internal/rollup) uses this to choose eager residency vs. lazy mapping.
type SizeClass int

const (
	Small SizeClass = iota
	Large
)

// smallCubeThreshold is the row-count boundary between Small and Large.
const smallCubeThreshold = 100_000

// Descriptor is the catalog's entry for one rollup: its id, key dimensions,
// on-disk file name, and size class. Descriptors are immutable after
// Default() constructs them.
type Descriptor struct {
	ID   string
	Keys []Dimension

	// ExpectedRows is a rough cardinality estimate used only to classify
	// SizeClass and to rank cubes by "smallest that matches" in the router;
	// it is never used as ground truth for query results.
	ExpectedRows int64

	// FileExt is the on-disk extension for this cube's columnar file.
	FileExt string
}

// SizeClass classifies d by its expected row count.
func (d Descriptor) SizeClass() SizeClass {
	if d.ExpectedRows < smallCubeThreshold {
		return Small
	}
	return Large
}

// FileName returns the fixed-naming-convention file name for this cube.
func (d Descriptor) FileName() string {
	ext := d.FileExt
	if ext == "" {
		ext = "parquet"
	}
	return d.ID + "." + ext
}

// Catalog is the read-only registry of all rollups a conforming PREPARE
// builds and a conforming RUN may route to.
type Catalog struct {
	descriptors []Descriptor
	byID        map[string]Descriptor
}

// New builds a Catalog from an explicit descriptor list, preserving
// declaration order (the router breaks matching ties on it).
func New(descriptors []Descriptor) *Catalog {
	byID := make(map[string]Descriptor, len(descriptors))
	for _, d := range descriptors {
		byID[d.ID] = d
	}
	return &Catalog{descriptors: descriptors, byID: byID}
}

// All returns every rollup descriptor, in declaration order.
func (c *Catalog) All() []Descriptor {
	return c.descriptors
}

// Lookup returns the descriptor for id, or false if no such rollup exists.
func (c *Catalog) Lookup(id string) (Descriptor, bool) {
	d, ok := c.byID[id]
	return d, ok
}

// Default returns the minimum conforming rollup set: the seven
// single-dimension cubes paired with type, the three composite cubes, and
// the one wide cube. Row-count estimates come from the event corpus's
// stated cardinalities (country ~12, advertiser_id ~1.6K, publisher_id
// ~1.1K) times a generous per-key multiplier for the time dimension, since
// PREPARE has not run yet when the catalog is constructed.
func Default() *Catalog {
	return New([]Descriptor{
		{ID: "day_type", Keys: []Dimension{DimDay, DimType}, ExpectedRows: 2_000},
		{ID: "hour_type", Keys: []Dimension{DimHour, DimType}, ExpectedRows: 96},
		{ID: "minute_type", Keys: []Dimension{DimMinute, DimType}, ExpectedRows: 3_000_000},
		{ID: "week_type", Keys: []Dimension{DimWeek, DimType}, ExpectedRows: 300},
		{ID: "country_type", Keys: []Dimension{DimCountry, DimType}, ExpectedRows: 48},
		{ID: "advertiser_type", Keys: []Dimension{DimAdvertiserID, DimType}, ExpectedRows: 6_400},
		{ID: "publisher_type", Keys: []Dimension{DimPublisherID, DimType}, ExpectedRows: 4_400},

		{ID: "day_country_type", Keys: []Dimension{DimDay, DimCountry, DimType}, ExpectedRows: 24_000},
		{ID: "day_advertiser_type", Keys: []Dimension{DimDay, DimAdvertiserID, DimType}, ExpectedRows: 2_560_000},
		{ID: "hour_country_type", Keys: []Dimension{DimHour, DimCountry, DimType}, ExpectedRows: 4_600},

		{ID: "day_publisher_country_type", Keys: []Dimension{DimDay, DimPublisherID, DimCountry, DimType}, ExpectedRows: 21_120_000},
	})
}
