// Eventcube - OLAP Rollup Query Engine for Ad-Tech Event Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventcube

package rollup

import (
	"testing"

	"github.com/tomtom215/eventcube/internal/catalog"
	"github.com/tomtom215/eventcube/internal/columnar"
	"github.com/tomtom215/eventcube/internal/errkind"
)

func TestNewLoader_MissingCubeFileIsCatalogAbsent(t *testing.T) {
	cat := catalog.New([]catalog.Descriptor{
		{ID: "day_type", Keys: []catalog.Dimension{catalog.DimDay, catalog.DimType}, ExpectedRows: 2_000},
	})

	_, err := NewLoader(t.TempDir(), cat)
	if err == nil {
		t.Fatal("expected an error opening a loader over an empty directory")
	}
	if errkind.Of(err) != errkind.CatalogAbsent {
		t.Errorf("errkind = %v, want CatalogAbsent", errkind.Of(err))
	}
}

func TestLoader_Cube_UnknownID(t *testing.T) {
	cat := catalog.New([]catalog.Descriptor{
		{ID: "day_type", Keys: []catalog.Dimension{catalog.DimDay, catalog.DimType}, ExpectedRows: 2_000},
	})
	l := &Loader{dir: t.TempDir(), cat: cat, cubes: make(map[string]*columnar.Cube)}

	_, err := l.Cube("nonexistent")
	if err == nil {
		t.Fatal("expected an error looking up an unknown cube id")
	}
	if errkind.Of(err) != errkind.CatalogAbsent {
		t.Errorf("errkind = %v, want CatalogAbsent", errkind.Of(err))
	}
}
