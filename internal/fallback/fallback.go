// Eventcube - OLAP Rollup Query Engine for Ad-Tech Event Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventcube

// Package fallback implements the fallback executor: translates a
// query document into parameterized SQL against the sorted fact store for
// queries no rollup can answer.
package fallback

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/tomtom215/eventcube/internal/errkind"
	"github.com/tomtom215/eventcube/internal/factstore"
	"github.com/tomtom215/eventcube/internal/querydoc"
	"github.com/tomtom215/eventcube/internal/rollupexec"
	"github.com/tomtom215/eventcube/internal/router"
)

// columnCast maps each query-document column the fallback accepts to its
// SQL column reference in the events table; a name missing from it is
// rejected as an unknown column.
var columnCast = map[string]string{
	"day":           "day",
	"hour":          "hour",
	"minute":        "minute",
	"week":          "week",
	"country":       "country",
	"advertiser_id": "advertiser_id",
	"publisher_id":  "publisher_id",
	"type":          "type",
	"bid_price":     "bid_price",
	"total_price":   "total_price",
}

// Execute runs doc against store, producing the same conceptual result
// table rollupexec.Execute would for a query the router could have routed
// to a rollup.
func Execute(ctx context.Context, store *factstore.Store, doc querydoc.Document) (rollupexec.Result, error) {
	selectSQL, header, err := buildSelectList(doc.Select)
	if err != nil {
		return rollupexec.Result{}, err
	}

	whereSQL, args, err := buildWhereClause(doc.Where)
	if err != nil {
		return rollupexec.Result{}, err
	}

	groupSQL := buildGroupBy(doc.GroupBy)
	orderSQL := buildOrderBy(doc.OrderBy)

	query := fmt.Sprintf("SELECT %s FROM events", selectSQL)
	if whereSQL != "" {
		query += " WHERE " + whereSQL
	}
	if groupSQL != "" {
		query += " GROUP BY " + groupSQL
	}
	if orderSQL != "" {
		query += " ORDER BY " + orderSQL
	}

	rows, err := store.Conn().QueryContext(ctx, query, args...)
	if err != nil {
		return rollupexec.Result{}, errkind.Wrap(errkind.IoFailure, fmt.Errorf("fallback query: %w", err))
	}
	defer func() { _ = rows.Close() }()

	return scanResult(rows, header)
}

func buildSelectList(items []querydoc.SelectItem) (string, []string, error) {
	parts := make([]string, len(items))
	header := make([]string, len(items))
	for i, item := range items {
		name := item.Name()
		header[i] = name
		if !item.IsAggregate() {
			col, ok := columnCast[item.Column]
			if !ok {
				return "", nil, errkind.Wrap(errkind.RollupUnfit, fmt.Errorf("unknown column %q", item.Column))
			}
			parts[i] = fmt.Sprintf("%s AS %s", col, quoteIdent(name))
			continue
		}
		sql, err := aggregateSQL(item)
		if err != nil {
			return "", nil, err
		}
		parts[i] = fmt.Sprintf("%s AS %s", sql, quoteIdent(name))
	}
	return strings.Join(parts, ", "), header, nil
}

// quoteIdent wraps name as a DuckDB quoted identifier, doubling any
// embedded double quotes.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func aggregateSQL(item querydoc.SelectItem) (string, error) {
	switch item.Func {
	case querydoc.FuncSum:
		return fmt.Sprintf("SUM(%s)", item.Column), nil
	case querydoc.FuncAvg:
		return fmt.Sprintf("AVG(%s)", item.Column), nil
	case querydoc.FuncCount:
		if item.Column == "*" {
			return "COUNT(*)", nil
		}
		return fmt.Sprintf("COUNT(%s)", item.Column), nil
	case querydoc.FuncMin:
		return fmt.Sprintf("MIN(%s)", item.Column), nil
	case querydoc.FuncMax:
		return fmt.Sprintf("MAX(%s)", item.Column), nil
	default:
		return "", errkind.Wrap(errkind.UnsupportedOperation, fmt.Errorf("unrecognized function %q", item.Func))
	}
}

// buildWhereClause accumulates clauses and their positional args in
// lockstep, one predicate at a time, so the returned arg slice lines up
// with the "?" placeholders in the returned clause string.
func buildWhereClause(preds []querydoc.Predicate) (string, []interface{}, error) {
	var clauses []string
	var args []interface{}

	for _, p := range preds {
		col, ok := columnCast[p.Column]
		if !ok {
			return "", nil, errkind.Wrap(errkind.RollupUnfit, fmt.Errorf("unknown column %q", p.Column))
		}
		clause, clauseArgs, err := predicateClause(col, p)
		if err != nil {
			return "", nil, err
		}
		if clause == "" {
			continue
		}
		clauses = append(clauses, clause)
		args = append(args, clauseArgs...)
	}
	return strings.Join(clauses, " AND "), args, nil
}

func predicateClause(col string, p querydoc.Predicate) (string, []interface{}, error) {
	switch p.Op {
	case querydoc.OpEq:
		return col + " = ?", []interface{}{normalizeLiteral(p.Column, p.Value)}, nil
	case querydoc.OpNeq:
		return col + " != ?", []interface{}{normalizeLiteral(p.Column, p.Value)}, nil
	case querydoc.OpGt:
		return col + " > ?", []interface{}{normalizeLiteral(p.Column, p.Value)}, nil
	case querydoc.OpGte:
		return col + " >= ?", []interface{}{normalizeLiteral(p.Column, p.Value)}, nil
	case querydoc.OpLt:
		return col + " < ?", []interface{}{normalizeLiteral(p.Column, p.Value)}, nil
	case querydoc.OpLte:
		return col + " <= ?", []interface{}{normalizeLiteral(p.Column, p.Value)}, nil
	case querydoc.OpIn:
		return appendInClause(col, normalizeLiterals(p.Column, p.Values))
	case querydoc.OpBetween:
		lo, hi := normalizeLiteral(p.Column, p.Low), normalizeLiteral(p.Column, p.High)
		if lo == "" && hi == "" {
			return "1 = 0", nil, nil
		}
		if lf, lerr := strconv.ParseFloat(lo, 64); lerr == nil {
			if hf, herr := strconv.ParseFloat(hi, 64); herr == nil {
				if hf < lf {
					return "1 = 0", nil, nil // numeric lo > hi selects nothing
				}
				return col + " BETWEEN ? AND ?", []interface{}{lo, hi}, nil
			}
		}
		if hi < lo {
			return "1 = 0", nil, nil // lo > hi selects nothing
		}
		return col + " BETWEEN ? AND ?", []interface{}{lo, hi}, nil
	default:
		return "", nil, errkind.Wrap(errkind.UnsupportedOperation, fmt.Errorf("unsupported operator %q", p.Op))
	}
}

// normalizeLiteral canonicalizes a date-valued filter literal so a day
// predicate matches the same YYYY-MM-DD form the rollup executor enforces.
// Every other column passes through unchanged.
func normalizeLiteral(column, s string) string {
	if column == "day" {
		return router.NormalizeDateLiteral(s)
	}
	return s
}

func normalizeLiterals(column string, values []string) []string {
	if column != "day" {
		return values
	}
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = router.NormalizeDateLiteral(v)
	}
	return out
}

// appendInClause builds a "col IN (?, ?, ...)" clause. An empty values set
// selects nothing, expressed as an always-false clause rather than
// an empty IN list (which DuckDB, like most SQL engines, rejects).
func appendInClause(col string, values []string) (string, []interface{}, error) {
	if len(values) == 0 {
		return "1 = 0", nil, nil
	}
	placeholders := make([]string, len(values))
	args := make([]interface{}, len(values))
	for i, v := range values {
		placeholders[i] = "?"
		args[i] = v
	}
	return col + " IN (" + strings.Join(placeholders, ", ") + ")", args, nil
}

// scanResult drains rows into a rollupexec.Result, treating each
// driver-reported NULL as rollupexec.Cell{Null: true} so the CSV writer
// serializes it as an empty field, matching the rollup executor's output.
func scanResult(rows *sql.Rows, header []string) (rollupexec.Result, error) {
	result := rollupexec.Result{Header: header}

	dest := make([]interface{}, len(header))
	raw := make([]sql.NullString, len(header))
	for i := range dest {
		dest[i] = &raw[i]
	}

	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return rollupexec.Result{}, errkind.Wrap(errkind.IoFailure, fmt.Errorf("scan fallback row: %w", err))
		}
		row := make([]rollupexec.Cell, len(header))
		for i, v := range raw {
			if !v.Valid {
				row[i] = rollupexec.Cell{Null: true}
				continue
			}
			row[i] = rollupexec.Cell{Str: normalizeNumeric(v.String)}
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return rollupexec.Result{}, errkind.Wrap(errkind.IoFailure, fmt.Errorf("iterate fallback rows: %w", err))
	}
	return result, nil
}

// normalizeNumeric re-renders a float the driver returned in its own
// formatting (e.g. "5.500000000000000") through strconv, so a fallback
// result is byte-identical to the rollup executor's for the same query.
func normalizeNumeric(s string) string {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return s
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func buildGroupBy(groupBy []string) string {
	cols := make([]string, len(groupBy))
	for i, g := range groupBy {
		cols[i] = columnCast[g]
	}
	return strings.Join(cols, ", ")
}

func buildOrderBy(orderBy []querydoc.OrderItem) string {
	parts := make([]string, len(orderBy))
	for i, o := range orderBy {
		dir := "ASC NULLS LAST"
		if o.Desc {
			dir = "DESC NULLS FIRST"
		}
		parts[i] = fmt.Sprintf("%s %s", quoteIdent(o.Ref), dir)
	}
	return strings.Join(parts, ", ")
}
