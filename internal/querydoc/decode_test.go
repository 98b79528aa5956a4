// Eventcube - OLAP Rollup Query Engine for Ad-Tech Event Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventcube

package querydoc

import (
	"testing"

	"github.com/tomtom215/eventcube/internal/errkind"
)

func TestDecodeAll_BareAndAggregateSelect(t *testing.T) {
	raw := []byte(`[
		{
			"select": ["day", {"func": "SUM", "column": "bid_price"}],
			"group_by": ["day"],
			"where": [{"column": "country", "op": "eq", "value": "US"}],
			"order_by": [{"ref": "day", "direction": "asc"}]
		}
	]`)
	entries, err := DecodeAll(raw)
	if err != nil {
		t.Fatalf("DecodeAll: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Err != nil {
		t.Fatalf("entry 0 failed to decode: %v", entries[0].Err)
	}
	d := entries[0].Doc
	if len(d.Select) != 2 || d.Select[0].Column != "day" || d.Select[1].Func != FuncSum {
		t.Errorf("select list decoded wrong: %+v", d.Select)
	}
	if len(d.Where) != 1 || d.Where[0].Op != OpEq || d.Where[0].Value != "US" {
		t.Errorf("where decoded wrong: %+v", d.Where)
	}
	if len(d.OrderBy) != 1 || d.OrderBy[0].Desc {
		t.Errorf("order_by decoded wrong: %+v", d.OrderBy)
	}
}

func TestDecodeAll_DescDirection(t *testing.T) {
	raw := []byte(`[{"select": ["day"], "group_by": ["day"], "order_by": [{"ref": "day", "direction": "desc"}]}]`)
	entries, err := DecodeAll(raw)
	if err != nil {
		t.Fatalf("DecodeAll: %v", err)
	}
	if entries[0].Err != nil {
		t.Fatalf("entry 0 failed to decode: %v", entries[0].Err)
	}
	if !entries[0].Doc.OrderBy[0].Desc {
		t.Error("direction \"desc\" should set Desc = true")
	}
}

func TestDecodeAll_BetweenPredicate(t *testing.T) {
	raw := []byte(`[{"select": ["day"], "group_by": ["day"], "where": [{"column": "day", "op": "between", "low": "2024-01-01", "high": "2024-01-31"}]}]`)
	entries, err := DecodeAll(raw)
	if err != nil {
		t.Fatalf("DecodeAll: %v", err)
	}
	if entries[0].Err != nil {
		t.Fatalf("entry 0 failed to decode: %v", entries[0].Err)
	}
	p := entries[0].Doc.Where[0]
	if p.Low != "2024-01-01" || p.High != "2024-01-31" {
		t.Errorf("between bounds decoded wrong: %+v", p)
	}
}

func TestDecodeAll_MalformedJSON(t *testing.T) {
	_, err := DecodeAll([]byte(`not json`))
	if err == nil {
		t.Fatal("expected error for malformed JSON")
	}
	if errkind.Of(err) != errkind.QueryMalformed {
		t.Errorf("Of(err) = %v, want QueryMalformed", errkind.Of(err))
	}
}

func TestDecodeAll_EmptySelectRejected(t *testing.T) {
	raw := []byte(`[{"select": [], "group_by": ["day"]}]`)
	entries, err := DecodeAll(raw)
	if err != nil {
		t.Fatalf("DecodeAll: %v", err)
	}
	if entries[0].Err == nil {
		t.Fatal("expected entry 0 to fail for an empty select list")
	}
	if errkind.Of(entries[0].Err) != errkind.QueryMalformed {
		t.Errorf("Of(err) = %v, want QueryMalformed", errkind.Of(entries[0].Err))
	}
}

func TestDecodeAll_UnrecognizedAggFunc(t *testing.T) {
	raw := []byte(`[{"select": [{"func": "MEDIAN", "column": "bid_price"}], "group_by": []}]`)
	entries, err := DecodeAll(raw)
	if err != nil {
		t.Fatalf("DecodeAll: %v", err)
	}
	if entries[0].Err == nil {
		t.Fatal("expected entry 0 to fail for an unrecognized aggregate function")
	}
}

func TestDecodeAll_MultipleQueriesIndependent(t *testing.T) {
	raw := []byte(`[
		{"select": ["day"], "group_by": ["day"]},
		{"select": ["country"], "group_by": ["country"]}
	]`)
	entries, err := DecodeAll(raw)
	if err != nil {
		t.Fatalf("DecodeAll: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	for i, e := range entries {
		if e.Err != nil {
			t.Errorf("entry %d failed to decode: %v", i, e.Err)
		}
	}
}

// TestDecodeAll_OneMalformedEntryDoesNotDiscardOthers pins the isolation
// contract: a malformed entry anywhere in the array must not prevent its
// neighbors from decoding successfully.
func TestDecodeAll_OneMalformedEntryDoesNotDiscardOthers(t *testing.T) {
	raw := []byte(`[
		{"select": ["day"], "group_by": ["day"]},
		{"select": [], "group_by": ["day"]},
		{"select": ["country"], "group_by": ["country"]}
	]`)
	entries, err := DecodeAll(raw)
	if err != nil {
		t.Fatalf("DecodeAll: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].Err != nil {
		t.Errorf("entry 0 should decode cleanly, got %v", entries[0].Err)
	}
	if entries[1].Err == nil {
		t.Error("entry 1 should fail (empty select)")
	}
	if entries[2].Err != nil {
		t.Errorf("entry 2 should decode cleanly despite entry 1 failing, got %v", entries[2].Err)
	}
}
