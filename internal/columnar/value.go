// Eventcube - OLAP Rollup Query Engine for Ad-Tech Event Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventcube

// Package columnar implements the on-disk cube format: a columnar table
// with LZ4-compressed blocks, written and read through Apache Arrow's
// Parquet implementation so any self-describing-columnar-format reader can
// open it.
package columnar

import (
	"fmt"
	"strconv"

	"github.com/tomtom215/eventcube/internal/catalog"
	"github.com/tomtom215/eventcube/internal/eventmodel"
)

// Kind is the physical type of one column in a cube's schema.
type Kind int

const (
	KindInt32 Kind = iota
	KindInt64
	KindFloat64
	KindString
)

// Column describes one column of a cube's schema: a key dimension or one of
// the five fixed aggregate columns.
type Column struct {
	Name string
	Kind Kind
}

// Value is a single cell, tagged with the Kind that determines which field
// is meaningful. Values compare equal iff Kind and the corresponding field
// match, which is what the builder's accumulator and the router/executor's
// filter evaluation rely on for exact-match grouping and predicates.
type Value struct {
	Kind Kind
	I32  int32
	I64  int64
	F64  float64
	Str  string
}

func Int32Value(v int32) Value   { return Value{Kind: KindInt32, I32: v} }
func Int64Value(v int64) Value   { return Value{Kind: KindInt64, I64: v} }
func Float64Value(v float64) Value { return Value{Kind: KindFloat64, F64: v} }
func StringValue(v string) Value { return Value{Kind: KindString, Str: v} }

// Equal reports whether two values of the same kind are equal.
func (v Value) Equal(other Value) bool {
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case KindInt32:
		return v.I32 == other.I32
	case KindInt64:
		return v.I64 == other.I64
	case KindFloat64:
		return v.F64 == other.F64
	case KindString:
		return v.Str == other.Str
	}
	return false
}

// Less gives a total order over values of the same kind, used for ORDER BY.
func (v Value) Less(other Value) bool {
	switch v.Kind {
	case KindInt32:
		return v.I32 < other.I32
	case KindInt64:
		return v.I64 < other.I64
	case KindFloat64:
		return v.F64 < other.F64
	case KindString:
		return v.Str < other.Str
	}
	return false
}

// Encode renders v as a string, used both for CSV result output and as a
// component of the accumulator's hash-map key encoding.
func (v Value) Encode() string {
	switch v.Kind {
	case KindInt32:
		return strconv.FormatInt(int64(v.I32), 10)
	case KindInt64:
		return strconv.FormatInt(v.I64, 10)
	case KindFloat64:
		return strconv.FormatFloat(v.F64, 'g', -1, 64)
	case KindString:
		return v.Str
	}
	return ""
}

// DimensionColumn maps a catalog dimension to its physical column
// definition and semantic type.
func DimensionColumn(dim catalog.Dimension) Column {
	switch dim {
	case catalog.DimDay:
		return Column{Name: "day", Kind: KindString}
	case catalog.DimHour:
		return Column{Name: "hour", Kind: KindInt32}
	case catalog.DimMinute:
		return Column{Name: "minute", Kind: KindString}
	case catalog.DimWeek:
		return Column{Name: "week", Kind: KindString}
	case catalog.DimCountry:
		return Column{Name: "country", Kind: KindString}
	case catalog.DimAdvertiserID:
		return Column{Name: "advertiser_id", Kind: KindInt32}
	case catalog.DimPublisherID:
		return Column{Name: "publisher_id", Kind: KindInt32}
	case catalog.DimType:
		return Column{Name: "type", Kind: KindString}
	default:
		return Column{Name: string(dim), Kind: KindString}
	}
}

// AggregateColumns are the five stored aggregate columns, fixed regardless
// of the rollup.
func AggregateColumns() []Column {
	return []Column{
		{Name: "bid_price_sum", Kind: KindFloat64},
		{Name: "bid_price_count", Kind: KindInt64},
		{Name: "total_price_sum", Kind: KindFloat64},
		{Name: "total_price_count", Kind: KindInt64},
		{Name: "row_count", Kind: KindInt64},
	}
}

// KeyValueFromEvent extracts dim's value from e as a Value, reading the
// time-derived fields where applicable: these are pure functions of Ts,
// already computed by eventmodel.Event.WithDerived.
func KeyValueFromEvent(dim catalog.Dimension, e eventmodel.Event) (Value, error) {
	switch dim {
	case catalog.DimDay:
		return StringValue(e.Day), nil
	case catalog.DimHour:
		return Int32Value(int32(e.Hour)), nil
	case catalog.DimMinute:
		return StringValue(e.Minute), nil
	case catalog.DimWeek:
		return StringValue(e.Week), nil
	case catalog.DimCountry:
		return StringValue(e.Country), nil
	case catalog.DimAdvertiserID:
		return Int32Value(e.AdvertiserID), nil
	case catalog.DimPublisherID:
		return Int32Value(e.PublisherID), nil
	case catalog.DimType:
		return StringValue(string(e.Type)), nil
	default:
		return Value{}, fmt.Errorf("unknown dimension %q", dim)
	}
}
