// Eventcube - OLAP Rollup Query Engine for Ad-Tech Event Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventcube

package router

import (
	"testing"

	"github.com/tomtom215/eventcube/internal/catalog"
	"github.com/tomtom215/eventcube/internal/querydoc"
)

func testCatalog() *catalog.Catalog {
	return catalog.New([]catalog.Descriptor{
		{ID: "minute_type", Keys: []catalog.Dimension{catalog.DimMinute, catalog.DimType}, ExpectedRows: 3_000_000},
		{ID: "day_type", Keys: []catalog.Dimension{catalog.DimDay, catalog.DimType}, ExpectedRows: 2_000},
		{ID: "week_type", Keys: []catalog.Dimension{catalog.DimWeek, catalog.DimType}, ExpectedRows: 300},
		{ID: "country_type", Keys: []catalog.Dimension{catalog.DimCountry, catalog.DimType}, ExpectedRows: 48},
		{ID: "day_country_type", Keys: []catalog.Dimension{catalog.DimDay, catalog.DimCountry, catalog.DimType}, ExpectedRows: 24_000},
	})
}

func TestRoute_SmallestMatchingCubeWins(t *testing.T) {
	// Both day_type and minute_type (via derivation) can answer a
	// group-by-day query, but day_type has fewer expected rows.
	doc := querydoc.Document{
		Select:  []querydoc.SelectItem{{Column: "day"}, {Func: querydoc.FuncSum, Column: "bid_price"}},
		GroupBy: []string{"day"},
	}
	plan := Route(testCatalog(), doc)
	if plan.Fallback {
		t.Fatal("expected a rollup plan, got fallback")
	}
	if plan.CubeID != "day_type" {
		t.Errorf("CubeID = %q, want day_type (smallest matching cube)", plan.CubeID)
	}
}

func TestRoute_FilterColumnMustBeCubeKey(t *testing.T) {
	// A country filter is a dimension requirement: day_type and minute_type
	// can group by day but lack country, so only day_country_type matches.
	doc := querydoc.Document{
		Select:  []querydoc.SelectItem{{Column: "day"}},
		GroupBy: []string{"day"},
		Where:   []querydoc.Predicate{{Column: "country", Op: querydoc.OpEq, Value: "US"}},
	}
	plan := Route(testCatalog(), doc)
	if plan.Fallback {
		t.Fatal("expected a rollup plan")
	}
	if plan.CubeID != "day_country_type" {
		t.Errorf("CubeID = %q, want day_country_type", plan.CubeID)
	}
}

func TestRoute_WeekPrefersSmallerDirectCube(t *testing.T) {
	doc := querydoc.Document{
		Select:  []querydoc.SelectItem{{Column: "week"}},
		GroupBy: []string{"week"},
	}
	plan := Route(testCatalog(), doc)
	if plan.Fallback {
		t.Fatal("expected a rollup plan (week derives from day_type or week_type)")
	}
	// week_type (300 rows) is narrower than day_type (2000) and also
	// satisfies week directly; it should win.
	if plan.CubeID != "week_type" {
		t.Errorf("CubeID = %q, want week_type", plan.CubeID)
	}
}

func TestRoute_ArithmeticOnAggregateForcesFallback(t *testing.T) {
	doc := querydoc.Document{
		Select:  []querydoc.SelectItem{{Column: "day"}},
		GroupBy: []string{"day"},
		Where:   []querydoc.Predicate{{Column: "bid_price", Op: querydoc.OpGt, Value: "1.0"}},
	}
	plan := Route(testCatalog(), doc)
	if !plan.Fallback {
		t.Error("arithmetic predicate on an aggregated column must force fallback")
	}
}

func TestRoute_MinMaxForcesFallback(t *testing.T) {
	doc := querydoc.Document{
		Select:  []querydoc.SelectItem{{Func: querydoc.FuncMax, Column: "bid_price"}},
		GroupBy: []string{},
	}
	plan := Route(testCatalog(), doc)
	if !plan.Fallback {
		t.Error("MIN/MAX should always force fallback (no cube stores extrema)")
	}
}

func TestRoute_UnknownColumnForcesFallback(t *testing.T) {
	doc := querydoc.Document{
		Select:  []querydoc.SelectItem{{Column: "auction_id"}},
		GroupBy: []string{"auction_id"},
	}
	plan := Route(testCatalog(), doc)
	if !plan.Fallback {
		t.Error("a non-dimension column reference should force fallback")
	}
}

func TestRoute_NoMatchingCubeForcesFallback(t *testing.T) {
	doc := querydoc.Document{
		Select:  []querydoc.SelectItem{{Column: "advertiser_id"}},
		GroupBy: []string{"advertiser_id"},
	}
	plan := Route(testCatalog(), doc)
	if !plan.Fallback {
		t.Error("no cube in this catalog keys on advertiser_id; must fall back")
	}
}

func TestRoute_FilterRewritePlan(t *testing.T) {
	doc := querydoc.Document{
		Select:  []querydoc.SelectItem{{Column: "country"}},
		GroupBy: []string{"country"},
		Where:   []querydoc.Predicate{{Column: "week", Op: querydoc.OpEq, Value: "2024-W10"}},
	}
	plan := Route(testCatalog(), doc)
	if plan.Fallback {
		t.Fatal("expected a rollup plan")
	}
	if plan.CubeID != "day_country_type" {
		t.Fatalf("CubeID = %q, want day_country_type", plan.CubeID)
	}
	if len(plan.FilterRewrite) != 1 || plan.FilterRewrite[0].To != catalog.DimWeek || plan.FilterRewrite[0].From != catalog.DimDay {
		t.Errorf("FilterRewrite = %+v, want one step day->week", plan.FilterRewrite)
	}
}

func TestNormalizeDateLiteral(t *testing.T) {
	if got := NormalizeDateLiteral("2024-03-04"); got != "2024-03-04" {
		t.Errorf("NormalizeDateLiteral well-formed date = %q", got)
	}
	if got := NormalizeDateLiteral("not-a-date"); got != "not-a-date" {
		t.Errorf("NormalizeDateLiteral should pass through unparseable input unchanged, got %q", got)
	}
}
