// Eventcube - OLAP Rollup Query Engine for Ad-Tech Event Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventcube

// Package querydoc defines the query document: an abstract representation
// of one OLAP query, independent of its JSON serialization.
package querydoc

import (
	"fmt"
	"strings"
)

// Op is a WHERE predicate operator.
type Op string

const (
	OpEq      Op = "eq"
	OpNeq     Op = "neq"
	OpGt      Op = "gt"
	OpGte     Op = "gte"
	OpLt      Op = "lt"
	OpLte     Op = "lte"
	OpIn      Op = "in"
	OpBetween Op = "between"
)

func validOp(op Op) bool {
	switch op {
	case OpEq, OpNeq, OpGt, OpGte, OpLt, OpLte, OpIn, OpBetween:
		return true
	}
	return false
}

// ArithmeticOps are the operators that compare against an ordered value;
// the router rejects these when applied to an aggregated (non-key) column.
var ArithmeticOps = map[Op]bool{
	OpGt: true, OpGte: true, OpLt: true, OpLte: true, OpBetween: true,
}

// AggFunc is an aggregate function name.
type AggFunc string

const (
	FuncSum   AggFunc = "SUM"
	FuncAvg   AggFunc = "AVG"
	FuncCount AggFunc = "COUNT"
	FuncMin   AggFunc = "MIN"
	FuncMax   AggFunc = "MAX"
)

// ParseAggFunc validates and canonicalizes a function name, matching it
// case-insensitively against the closed set of recognized functions.
func ParseAggFunc(s string) (AggFunc, error) {
	switch strings.ToUpper(s) {
	case string(FuncSum):
		return FuncSum, nil
	case string(FuncAvg):
		return FuncAvg, nil
	case string(FuncCount):
		return FuncCount, nil
	case string(FuncMin):
		return FuncMin, nil
	case string(FuncMax):
		return FuncMax, nil
	default:
		return "", fmt.Errorf("unrecognized aggregate function %q", s)
	}
}

// AggregableColumns are the only fact columns SUM/AVG/MIN/MAX may reference;
// COUNT additionally accepts "*".
var AggregableColumns = map[string]bool{
	"bid_price":   true,
	"total_price": true,
}

// SelectItem is one entry of a query's select list: either a bare column
// (which must also appear in GroupBy) or an aggregate expression.
type SelectItem struct {
	Column string  // set when this is a bare column reference
	Func   AggFunc // set, with Column, when this is an aggregate expression
}

// IsAggregate reports whether s is an aggregate expression rather than a
// bare column reference.
func (s SelectItem) IsAggregate() bool { return s.Func != "" }

// Name renders s the way the result header and order_by references name it:
// the bare column name, or the canonical FUNC(column) form.
func (s SelectItem) Name() string {
	if !s.IsAggregate() {
		return s.Column
	}
	return string(s.Func) + "(" + s.Column + ")"
}

// Predicate is one WHERE clause entry. Exactly one of Value, Values, or
// (Low, High) is populated, depending on Op.
type Predicate struct {
	Column string
	Op     Op

	Value  string   // eq, neq, gt, gte, lt, lte
	Values []string // in
	Low    string   // between
	High   string   // between
}

// OrderItem is one ORDER BY entry: a reference to a select/group-by column
// or a canonical aggregate-expression name, plus sort direction.
type OrderItem struct {
	Ref  string
	Desc bool
}

// Document is one abstract query: select/where/group_by/order_by, decoupled
// from how it was read off the wire.
type Document struct {
	Select  []SelectItem
	Where   []Predicate
	GroupBy []string
	OrderBy []OrderItem
}

// Validate checks the document's well-formedness invariants: every bare
// select column appears in group_by; every aggregate uses a legal
// function/column pair; every predicate uses a recognized operator with the
// right value shape; every order_by reference names a select or group_by
// entry.
func (d Document) Validate() error {
	groupSet := make(map[string]bool, len(d.GroupBy))
	for _, c := range d.GroupBy {
		groupSet[c] = true
	}

	selectNames := make(map[string]bool, len(d.Select))
	if len(d.Select) == 0 {
		return fmt.Errorf("select list must not be empty")
	}
	for _, item := range d.Select {
		if item.IsAggregate() {
			if err := validateAggregate(item); err != nil {
				return err
			}
		} else {
			if item.Column == "" {
				return fmt.Errorf("select item has neither a column nor a function")
			}
			if !groupSet[item.Column] {
				return fmt.Errorf("select column %q must appear in group_by", item.Column)
			}
		}
		selectNames[item.Name()] = true
	}

	for _, p := range d.Where {
		if err := validatePredicate(p); err != nil {
			return err
		}
	}

	for _, o := range d.OrderBy {
		if !selectNames[o.Ref] && !groupSet[o.Ref] {
			return fmt.Errorf("order_by reference %q must appear in select or group_by", o.Ref)
		}
	}

	return nil
}

func validateAggregate(item SelectItem) error {
	switch item.Func {
	case FuncSum, FuncAvg, FuncMin, FuncMax:
		if !AggregableColumns[item.Column] {
			return fmt.Errorf("%s(%s): column must be one of bid_price, total_price", item.Func, item.Column)
		}
	case FuncCount:
		if item.Column != "*" && !AggregableColumns[item.Column] {
			return fmt.Errorf("COUNT(%s): column must be \"*\", bid_price, or total_price", item.Column)
		}
	default:
		return fmt.Errorf("unrecognized aggregate function %q", item.Func)
	}
	return nil
}

func validatePredicate(p Predicate) error {
	if !validOp(p.Op) {
		return fmt.Errorf("%s: unrecognized operator %q", p.Column, p.Op)
	}
	switch p.Op {
	case OpIn:
		if len(p.Values) == 0 {
			return nil // an empty "in" set is well-formed; it selects nothing
		}
	case OpBetween:
		if p.Low == "" && p.High == "" {
			return fmt.Errorf("%s: between requires low and high bounds", p.Column)
		}
	default:
		if p.Value == "" {
			return fmt.Errorf("%s: %s requires a value", p.Column, p.Op)
		}
	}
	return nil
}
