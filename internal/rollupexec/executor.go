// Eventcube - OLAP Rollup Query Engine for Ad-Tech Event Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventcube

// Package rollupexec implements the rollup query executor: applies a router
// plan to a loaded cube, re-aggregating its stored partial sums into the
// requested group-by and computing the final SELECT list with
// SQL-faithful NULL semantics.
package rollupexec

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/tomtom215/eventcube/internal/catalog"
	"github.com/tomtom215/eventcube/internal/columnar"
	"github.com/tomtom215/eventcube/internal/errkind"
	"github.com/tomtom215/eventcube/internal/querydoc"
	"github.com/tomtom215/eventcube/internal/router"
)

// Result is the executor's (and fallback executor's) output: a header and
// one row per group, aligned positionally with the header.
type Result struct {
	Header []string
	Rows   [][]Cell
}

// Cell is one result value. Null is true iff the cell serializes as the
// empty CSV field.
type Cell struct {
	Null bool
	Str  string
}

func strCell(s string) Cell { return Cell{Str: s} }
func nullCell() Cell        { return Cell{Null: true} }

// columnIndex maps a cube's physical column name to its position, built
// once per Execute call.
type columnIndex map[string]int

// Execute runs plan against cube, producing doc's result table.
func Execute(plan router.Plan, cube *columnar.Cube, doc querydoc.Document) (Result, error) {
	if plan.Fallback {
		return Result{}, errkind.Wrap(errkind.UnsupportedOperation, fmt.Errorf("rollupexec.Execute called with a fallback plan"))
	}

	idx := make(columnIndex, len(cube.KeyColumns))
	for i, c := range cube.KeyColumns {
		idx[string(c.Name)] = i
	}

	rewriteSources := rewriteSourceIndex(plan, idx)

	filtered := make([]columnar.Row, 0, len(cube.Rows))
	for _, row := range cube.Rows {
		ok, err := matchesWhere(doc.Where, row, idx, rewriteSources)
		if err != nil {
			return Result{}, err
		}
		if ok {
			filtered = append(filtered, row)
		}
	}

	groups, order := reduceToGroupBy(doc.GroupBy, filtered, idx, rewriteSources)

	header := make([]string, len(doc.Select))
	for i, item := range doc.Select {
		header[i] = item.Name()
	}

	rows := make([][]Cell, 0, len(order))
	for _, key := range order {
		g := groups[key]
		row := make([]Cell, len(doc.Select))
		for i, item := range doc.Select {
			cell, err := computeCell(item, g)
			if err != nil {
				return Result{}, err
			}
			row[i] = cell
		}
		rows = append(rows, row)
	}

	result := Result{Header: header, Rows: rows}
	sortResult(&result, doc)
	return result, nil
}

// rewriteSourceIndex maps a derived dimension name (from both the filter
// and group-by rewrite lists) to the physical column index it reads.
func rewriteSourceIndex(plan router.Plan, idx columnIndex) map[string]int {
	out := make(map[string]int)
	for _, step := range plan.FilterRewrite {
		if i, ok := idx[string(step.From)]; ok {
			out[string(step.To)] = i
		}
	}
	for _, step := range plan.GroupbyRewrite {
		if i, ok := idx[string(step.From)]; ok {
			out[string(step.To)] = i
		}
	}
	return out
}

// cellValue resolves column's value for row, following a rewrite if column
// is not one of the cube's physical key columns.
func cellValue(column string, row columnar.Row, idx columnIndex, rewrites map[string]int) (columnar.Value, bool) {
	if i, ok := idx[column]; ok {
		return row.Keys[i], true
	}
	if i, ok := rewrites[column]; ok {
		return deriveValue(column, row.Keys[i]), true
	}
	return columnar.Value{}, false
}

// deriveValue projects a derived dimension's value out of a physical
// source value, e.g. day/hour/week out of a minute string or week out of a
// day string.
func deriveValue(target string, source columnar.Value) columnar.Value {
	day, hour, _, week := deriveTimeParts(source)
	switch catalog.Dimension(target) {
	case catalog.DimDay:
		return columnar.StringValue(day)
	case catalog.DimHour:
		return columnar.Int32Value(int32(hour))
	case catalog.DimWeek:
		return columnar.StringValue(week)
	default:
		return source
	}
}

// deriveTimeParts extracts day/hour/week out of a minute-string source
// value ("YYYY-MM-DD HH:MM") or a day-string source value ("YYYY-MM-DD").
func deriveTimeParts(source columnar.Value) (day string, hour int, minute string, week string) {
	s := source.Str
	switch len(s) {
	case 16: // "YYYY-MM-DD HH:MM"
		day = s[:10]
		hh, _ := strconv.Atoi(s[11:13])
		hour = hh
	case 10: // "YYYY-MM-DD"
		day = s
	}
	if day != "" {
		week = isoWeekOf(day)
	}
	return
}

func matchesWhere(preds []querydoc.Predicate, row columnar.Row, idx columnIndex, rewrites map[string]int) (bool, error) {
	for _, p := range preds {
		ok, err := matchesPredicate(p, row, idx, rewrites)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func matchesPredicate(p querydoc.Predicate, row columnar.Row, idx columnIndex, rewrites map[string]int) (bool, error) {
	val, ok := cellValue(p.Column, row, idx, rewrites)
	if !ok {
		return false, errkind.Wrap(errkind.QueryMalformed, fmt.Errorf("column %q not available on this cube", p.Column))
	}

	switch p.Op {
	case querydoc.OpEq:
		return val.Equal(literalValue(val.Kind, normalizeLiteral(p.Column, p.Value))), nil
	case querydoc.OpNeq:
		return !val.Equal(literalValue(val.Kind, normalizeLiteral(p.Column, p.Value))), nil
	case querydoc.OpIn:
		for _, v := range p.Values {
			if val.Equal(literalValue(val.Kind, normalizeLiteral(p.Column, v))) {
				return true, nil
			}
		}
		return false, nil
	case querydoc.OpBetween:
		if p.Low == "" && p.High == "" {
			return false, nil
		}
		lo := literalValue(val.Kind, normalizeLiteral(p.Column, p.Low))
		hi := literalValue(val.Kind, normalizeLiteral(p.Column, p.High))
		if hi.Less(lo) {
			return false, nil // lo > hi selects nothing
		}
		return !val.Less(lo) && !hi.Less(val), nil
	case querydoc.OpGt, querydoc.OpGte, querydoc.OpLt, querydoc.OpLte:
		lit := literalValue(val.Kind, normalizeLiteral(p.Column, p.Value))
		switch p.Op {
		case querydoc.OpGt:
			return lit.Less(val), nil
		case querydoc.OpGte:
			return !val.Less(lit), nil
		case querydoc.OpLt:
			return val.Less(lit), nil
		default:
			return !lit.Less(val), nil
		}
	default:
		return false, errkind.Wrap(errkind.UnsupportedOperation, fmt.Errorf("unsupported operator %q", p.Op))
	}
}

func normalizeLiteral(column, s string) string {
	if column == "day" {
		return router.NormalizeDateLiteral(s)
	}
	return s
}

func literalValue(kind columnar.Kind, s string) columnar.Value {
	switch kind {
	case columnar.KindInt32:
		n, _ := strconv.ParseInt(s, 10, 32)
		return columnar.Int32Value(int32(n))
	case columnar.KindInt64:
		n, _ := strconv.ParseInt(s, 10, 64)
		return columnar.Int64Value(n)
	case columnar.KindFloat64:
		f, _ := strconv.ParseFloat(s, 64)
		return columnar.Float64Value(f)
	default:
		return columnar.StringValue(s)
	}
}

// group is one output group's resolved key tuple (by column name) and
// merged aggregates.
type group struct {
	keys map[string]columnar.Value
	agg  columnar.Aggregates
}

// reduceToGroupBy re-aggregates filtered rows onto groupBy's columns,
// returning the groups by encoded key plus their encounter order (stable,
// matching the order ORDER BY would otherwise leave untouched).
func reduceToGroupBy(groupBy []string, rows []columnar.Row, idx columnIndex, rewrites map[string]int) (map[string]*group, []string) {
	groups := make(map[string]*group)
	var order []string
	for _, row := range rows {
		keys := make(map[string]columnar.Value, len(groupBy))
		var keyEnc string
		for _, col := range groupBy {
			v, _ := cellValue(col, row, idx, rewrites)
			keys[col] = v
			keyEnc += v.Encode() + "\x1f"
		}
		g, ok := groups[keyEnc]
		if !ok {
			g = &group{keys: keys}
			groups[keyEnc] = g
			order = append(order, keyEnc)
		}
		g.agg.Merge(row.Agg)
	}
	return groups, order
}

func computeCell(item querydoc.SelectItem, g *group) (Cell, error) {
	if !item.IsAggregate() {
		v, ok := g.keys[item.Column]
		if !ok {
			return Cell{}, errkind.Wrap(errkind.QueryMalformed, fmt.Errorf("column %q not in group_by", item.Column))
		}
		return strCell(v.Encode()), nil
	}
	switch item.Func {
	case querydoc.FuncSum:
		sum, count := sumAndCount(item.Column, g.agg)
		if count == 0 {
			return nullCell(), nil
		}
		return strCell(formatFloat(sum)), nil
	case querydoc.FuncAvg:
		sum, count := sumAndCount(item.Column, g.agg)
		if count == 0 {
			return nullCell(), nil
		}
		return strCell(formatFloat(sum / float64(count))), nil
	case querydoc.FuncCount:
		if item.Column == "*" {
			return strCell(strconv.FormatInt(g.agg.RowCount, 10)), nil
		}
		_, count := sumAndCount(item.Column, g.agg)
		return strCell(strconv.FormatInt(count, 10)), nil
	default:
		return Cell{}, errkind.Wrap(errkind.UnsupportedOperation, fmt.Errorf("%s not supported on rollup cubes", item.Func))
	}
}

func sumAndCount(column string, agg columnar.Aggregates) (float64, int64) {
	switch column {
	case "bid_price":
		return agg.BidPriceSum, agg.BidPriceCount
	case "total_price":
		return agg.TotalPriceSum, agg.TotalPriceCount
	default:
		return 0, 0
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// isoWeekOf computes the YYYY-WNN ISO week string for a YYYY-MM-DD day
// string, matching eventmodel.DeriveTimeFields exactly.
func isoWeekOf(day string) string {
	t, err := time.Parse("2006-01-02", day)
	if err != nil {
		return ""
	}
	isoYear, isoWeek := t.ISOWeek()
	return fmt.Sprintf("%04d-W%02d", isoYear, isoWeek)
}

// sortResult applies doc's ORDER BY: NULLs sort last for ascending, first
// for descending.
func sortResult(result *Result, doc querydoc.Document) {
	if len(doc.OrderBy) == 0 {
		return
	}
	colIdx := make(map[string]int, len(result.Header))
	for i, h := range result.Header {
		colIdx[h] = i
	}

	sort.SliceStable(result.Rows, func(i, j int) bool {
		for _, o := range doc.OrderBy {
			ci, ok := colIdx[o.Ref]
			if !ok {
				continue
			}
			a, b := result.Rows[i][ci], result.Rows[j][ci]
			if a.Null && b.Null {
				continue
			}
			if a.Null {
				return o.Desc // ascending: a (NULL) never sorts before b; descending: it always does
			}
			if b.Null {
				return !o.Desc
			}
			if a.Str == b.Str {
				continue
			}
			less := compareCells(a.Str, b.Str)
			if o.Desc {
				return !less
			}
			return less
		}
		return false
	})
}

// compareCells compares two result cells numerically when both parse as
// floats, falling back to lexicographic order for string-valued columns.
func compareCells(a, b string) bool {
	af, aerr := strconv.ParseFloat(a, 64)
	bf, berr := strconv.ParseFloat(b, 64)
	if aerr == nil && berr == nil {
		return af < bf
	}
	return a < b
}
