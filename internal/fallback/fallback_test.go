// Eventcube - OLAP Rollup Query Engine for Ad-Tech Event Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventcube

package fallback

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/tomtom215/eventcube/internal/factstore"
	"github.com/tomtom215/eventcube/internal/querydoc"
)

func newTestStore(t *testing.T) *factstore.Store {
	t.Helper()
	dataDir := t.TempDir()
	csv := "ts,type,auction_id,advertiser_id,publisher_id,bid_price,user_id,total_price,country\n" +
		"1709510400000,click,a1,1,2,1.0,99,,US\n" +
		"1709510400000,click,a2,1,2,3.0,99,,US\n" +
		"1709596800000,click,a3,1,2,,99,,DE\n"
	if err := os.WriteFile(filepath.Join(dataDir, "events.csv"), []byte(csv), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	dbPath := filepath.Join(t.TempDir(), "events.duckdb")
	ctx := context.Background()
	if err := factstore.Build(ctx, dataDir, dbPath, 1); err != nil {
		t.Fatalf("Build: %v", err)
	}
	store, err := factstore.Open(dbPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestExecute_SumGroupedByDay(t *testing.T) {
	store := newTestStore(t)
	doc := querydoc.Document{
		Select:  []querydoc.SelectItem{{Column: "day"}, {Func: querydoc.FuncSum, Column: "bid_price"}},
		GroupBy: []string{"day"},
	}
	result, err := Execute(context.Background(), store, doc)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(result.Rows) != 2 {
		t.Fatalf("expected 2 day groups, got %d: %+v", len(result.Rows), result.Rows)
	}
}

func TestExecute_BetweenLoGreaterThanHiSelectsNothing(t *testing.T) {
	store := newTestStore(t)
	doc := querydoc.Document{
		Select:  []querydoc.SelectItem{{Column: "day"}},
		GroupBy: []string{"day"},
		Where:   []querydoc.Predicate{{Column: "day", Op: querydoc.OpBetween, Low: "2024-03-05", High: "2024-03-04"}},
	}
	result, err := Execute(context.Background(), store, doc)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(result.Rows) != 0 {
		t.Errorf("lo > hi should select nothing, got %d rows", len(result.Rows))
	}
}

func TestExecute_EmptyInSelectsNothing(t *testing.T) {
	store := newTestStore(t)
	doc := querydoc.Document{
		Select:  []querydoc.SelectItem{{Column: "country"}},
		GroupBy: []string{"country"},
		Where:   []querydoc.Predicate{{Column: "country", Op: querydoc.OpIn, Values: nil}},
	}
	result, err := Execute(context.Background(), store, doc)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(result.Rows) != 0 {
		t.Errorf("empty IN set should select nothing, got %d rows", len(result.Rows))
	}
}

func TestExecute_MinMax(t *testing.T) {
	store := newTestStore(t)
	doc := querydoc.Document{
		Select: []querydoc.SelectItem{{Func: querydoc.FuncMax, Column: "bid_price"}},
	}
	result, err := Execute(context.Background(), store, doc)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(result.Rows) != 1 || result.Rows[0][0].Str != "3" {
		t.Errorf("MAX(bid_price) = %+v, want 3", result.Rows)
	}
}

func TestQuoteIdent(t *testing.T) {
	if got := quoteIdent(`SUM(bid_price)`); got != `"SUM(bid_price)"` {
		t.Errorf("quoteIdent = %q", got)
	}
	if got := quoteIdent(`a"b`); got != `"a""b"` {
		t.Errorf("quoteIdent should double embedded quotes, got %q", got)
	}
}

func TestNormalizeNumeric(t *testing.T) {
	if got := normalizeNumeric("5.500000000000000"); got != "5.5" {
		t.Errorf("normalizeNumeric = %q, want 5.5", got)
	}
	if got := normalizeNumeric("US"); got != "US" {
		t.Errorf("normalizeNumeric on a non-numeric string should pass through, got %q", got)
	}
}
