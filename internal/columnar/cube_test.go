// Eventcube - OLAP Rollup Query Engine for Ad-Tech Event Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventcube

package columnar

import "testing"

func TestAggregates_AddEvent_NullSafe(t *testing.T) {
	var a Aggregates
	bid := 2.5
	a.AddEvent(&bid, nil)
	a.AddEvent(nil, nil)

	if a.RowCount != 2 {
		t.Errorf("RowCount = %d, want 2", a.RowCount)
	}
	if a.BidPriceCount != 1 || a.BidPriceSum != 2.5 {
		t.Errorf("bid price aggregate = sum %v count %v, want 2.5/1", a.BidPriceSum, a.BidPriceCount)
	}
	if a.TotalPriceCount != 0 {
		t.Errorf("total_price_count = %d, want 0 (all nil)", a.TotalPriceCount)
	}
}

func TestAggregates_Merge(t *testing.T) {
	a := Aggregates{BidPriceSum: 10, BidPriceCount: 2, RowCount: 3}
	b := Aggregates{BidPriceSum: 5, BidPriceCount: 1, RowCount: 2, TotalPriceSum: 4, TotalPriceCount: 1}
	a.Merge(b)

	if a.BidPriceSum != 15 || a.BidPriceCount != 3 || a.RowCount != 5 {
		t.Errorf("merged aggregate = %+v", a)
	}
	if a.TotalPriceSum != 4 || a.TotalPriceCount != 1 {
		t.Errorf("merged total_price aggregate = %+v", a)
	}
}

func TestAggregates_MergeIsCommutative(t *testing.T) {
	a := Aggregates{BidPriceSum: 10, BidPriceCount: 2, RowCount: 3}
	b := Aggregates{BidPriceSum: 5, BidPriceCount: 1, RowCount: 2}

	ab := a
	ab.Merge(b)
	ba := b
	ba.Merge(a)

	if ab != ba {
		t.Errorf("Merge not commutative: a.Merge(b)=%+v, b.Merge(a)=%+v", ab, ba)
	}
}

func TestCube_Columns(t *testing.T) {
	c := &Cube{
		ID:         "day_type",
		KeyColumns: []Column{{Name: "day", Kind: KindString}, {Name: "type", Kind: KindString}},
	}
	cols := c.Columns()
	if len(cols) != 2+5 {
		t.Fatalf("Columns() length = %d, want 7", len(cols))
	}
	if cols[0].Name != "day" || cols[1].Name != "type" {
		t.Errorf("key columns not in declared order: %v", cols[:2])
	}
	if cols[2].Name != "bid_price_sum" {
		t.Errorf("aggregate columns must follow key columns: %v", cols[2:])
	}
}
