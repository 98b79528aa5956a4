// Eventcube - OLAP Rollup Query Engine for Ad-Tech Event Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventcube

// Package router implements the query router: maps a query document
// to either a rollup plan or a directive to fall back to the sorted fact
// store.
package router

import (
	"sort"
	"time"

	"github.com/tomtom215/eventcube/internal/catalog"
	"github.com/tomtom215/eventcube/internal/querydoc"
)

// columnDimension maps a query document's fact-column names to the
// catalog dimensions they correspond to as key/group columns. bid_price and
// total_price are never dimensions — they are aggregated values, and any
// arithmetic predicate against them always forces fallback.
var columnDimension = map[string]catalog.Dimension{
	"day":           catalog.DimDay,
	"hour":          catalog.DimHour,
	"minute":        catalog.DimMinute,
	"week":          catalog.DimWeek,
	"country":       catalog.DimCountry,
	"advertiser_id": catalog.DimAdvertiserID,
	"publisher_id":  catalog.DimPublisherID,
	"type":          catalog.DimType,
}

// RewriteStep describes one derived-column projection the executor must
// apply before filtering/grouping, e.g. extracting day from a minute-keyed
// cube's minute column.
type RewriteStep struct {
	// From is the cube's physical key column the projection reads.
	From catalog.Dimension
	// To is the dimension the query actually references.
	To catalog.Dimension
}

// Plan is the router's decision for one query: either a rollup plan (fields
// CubeID/FilterRewrite/GroupbyRewrite populated) or a fallback directive
// (Fallback set, every other field meaningless).
type Plan struct {
	// Fallback is true iff no cube can answer the query; every other field
	// is meaningless when it is set.
	Fallback bool

	CubeID         string
	FilterRewrite  []RewriteStep
	GroupbyRewrite []RewriteStep
}

// Route selects a plan for doc against cat. It never returns an error: a
// query the router cannot serve from any cube simply yields a fallback
// plan — rejecting a query outright (errkind.RollupUnfit) is the fallback
// executor's responsibility, not the router's.
func Route(cat *catalog.Catalog, doc querydoc.Document) Plan {
	if usesUnsupportedPredicate(doc) {
		return Plan{Fallback: true}
	}

	required, ok := requiredDimensions(doc)
	if !ok {
		// References a column the router has no dimension mapping for
		// (not one of the eight key-eligible columns) — only fallback can
		// judge whether that is legal.
		return Plan{Fallback: true}
	}
	if usesUnsupportedAggregate(doc) {
		return Plan{Fallback: true}
	}

	var best *catalog.Descriptor
	for i, d := range cat.All() {
		d := d
		if !matches(required, d.Keys) {
			continue
		}
		if best == nil || d.ExpectedRows < best.ExpectedRows {
			best = &cat.All()[i]
		}
	}
	if best == nil {
		return Plan{Fallback: true}
	}

	return Plan{
		CubeID:         best.ID,
		FilterRewrite:  rewritesFor(doc.Where, best.Keys),
		GroupbyRewrite: groupbyRewritesFor(doc.GroupBy, best.Keys),
	}
}

// requiredDimensions computes the set of dimensions a plan must cover: the
// query's group-by columns union the dimension-eligible columns referenced
// in its filters. The second return is false if any referenced column is
// not one of the eight key-eligible dimensions (e.g. auction_id, user_id)
// — the router cannot judge those and defers to the fallback.
func requiredDimensions(doc querydoc.Document) ([]catalog.Dimension, bool) {
	seen := make(map[catalog.Dimension]bool)
	var out []catalog.Dimension
	add := func(col string) bool {
		dim, ok := columnDimension[col]
		if !ok {
			return false
		}
		if !seen[dim] {
			seen[dim] = true
			out = append(out, dim)
		}
		return true
	}

	for _, g := range doc.GroupBy {
		if !add(g) {
			return nil, false
		}
	}
	for _, p := range doc.Where {
		if querydoc.AggregableColumns[p.Column] {
			// bid_price/total_price filters never impose a dimension
			// requirement; arithmetic ones are rejected separately.
			continue
		}
		if !add(p.Column) {
			return nil, false
		}
	}
	return out, true
}

// usesUnsupportedPredicate reports whether doc filters with an arithmetic
// comparator on an aggregated column, or any like/regex predicate — both
// force fallback unconditionally. This implementation has no like/regex
// operator in its closed predicate set, so only the arithmetic-on-aggregate
// case applies.
func usesUnsupportedPredicate(doc querydoc.Document) bool {
	for _, p := range doc.Where {
		if querydoc.AggregableColumns[p.Column] && querydoc.ArithmeticOps[p.Op] {
			return true
		}
	}
	return false
}

// usesUnsupportedAggregate reports whether doc selects MIN or MAX. No
// descriptor in this catalog stores per-group extrema, so MIN/MAX always
// force fallback.
func usesUnsupportedAggregate(doc querydoc.Document) bool {
	for _, item := range doc.Select {
		if item.Func == querydoc.FuncMin || item.Func == querydoc.FuncMax {
			return true
		}
	}
	return false
}

// matches reports whether required ⊆ keys ∪ derivable(keys).
func matches(required []catalog.Dimension, keys []catalog.Dimension) bool {
	avail := catalog.Derivable(keys)
	for _, r := range required {
		if !avail[r] {
			return false
		}
	}
	return true
}

// rewritesFor builds the filter rewrite plan: for every WHERE column not
// literally present in keys but reachable via derivation, record the
// projection the executor must apply before evaluating the predicate.
func rewritesFor(where []querydoc.Predicate, keys []catalog.Dimension) []RewriteStep {
	keySet := dimensionSet(keys)
	var steps []RewriteStep
	seen := make(map[catalog.Dimension]bool)
	for _, p := range where {
		dim, ok := columnDimension[p.Column]
		if !ok || keySet[dim] || seen[dim] {
			continue
		}
		if src, ok := derivationSource(dim, keys); ok {
			steps = append(steps, RewriteStep{From: src, To: dim})
			seen[dim] = true
		}
	}
	sortSteps(steps)
	return steps
}

func groupbyRewritesFor(groupBy []string, keys []catalog.Dimension) []RewriteStep {
	keySet := dimensionSet(keys)
	var steps []RewriteStep
	seen := make(map[catalog.Dimension]bool)
	for _, col := range groupBy {
		dim, ok := columnDimension[col]
		if !ok || keySet[dim] || seen[dim] {
			continue
		}
		if src, ok := derivationSource(dim, keys); ok {
			steps = append(steps, RewriteStep{From: src, To: dim})
			seen[dim] = true
		}
	}
	sortSteps(steps)
	return steps
}

func dimensionSet(keys []catalog.Dimension) map[catalog.Dimension]bool {
	set := make(map[catalog.Dimension]bool, len(keys))
	for _, k := range keys {
		set[k] = true
	}
	return set
}

// derivationSource finds a key in keys that derives target, preferring the
// first such key in declared order.
func derivationSource(target catalog.Dimension, keys []catalog.Dimension) (catalog.Dimension, bool) {
	for _, k := range keys {
		if k != target && catalog.DerivesFrom(k, target) {
			return k, true
		}
	}
	return "", false
}

func sortSteps(steps []RewriteStep) {
	sort.Slice(steps, func(i, j int) bool { return steps[i].To < steps[j].To })
}

// NormalizeDateLiteral canonicalizes a date-valued filter literal (month
// and day with or without a leading zero, e.g. "2024-6-1") to the same
// zero-padded YYYY-MM-DD form the day dimension derives from ts, including
// day values rewritten from a minute-keyed cube.
// Returns the input unchanged if it does not parse as a calendar date, so
// non-date columns pass through.
func NormalizeDateLiteral(s string) string {
	t, err := time.Parse("2006-1-2", s)
	if err != nil {
		return s
	}
	return t.Format("2006-01-02")
}
