// Eventcube - OLAP Rollup Query Engine for Ad-Tech Event Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventcube

package columnar

// Aggregates holds the five stored aggregate cells for one group.
//
// Invariants (checked by tests, not enforced at the type level):
//   - BidPriceCount == 0 implies the true SUM(bid_price) is NULL, not 0.
//   - RowCount >= BidPriceCount and RowCount >= TotalPriceCount.
type Aggregates struct {
	BidPriceSum     float64
	BidPriceCount   int64
	TotalPriceSum   float64
	TotalPriceCount int64
	RowCount        int64
}

// Merge combines other into a in place. Merging is associative and
// commutative, which is what makes batch folding and cross-cube
// re-aggregation order-independent.
func (a *Aggregates) Merge(other Aggregates) {
	a.BidPriceSum += other.BidPriceSum
	a.BidPriceCount += other.BidPriceCount
	a.TotalPriceSum += other.TotalPriceSum
	a.TotalPriceCount += other.TotalPriceCount
	a.RowCount += other.RowCount
}

// AddEvent folds one event's contribution into a. BidPrice/TotalPrice
// contribute to sum/count only when non-nil, keeping accumulation NULL-safe.
func (a *Aggregates) AddEvent(bidPrice, totalPrice *float64) {
	if bidPrice != nil {
		a.BidPriceSum += *bidPrice
		a.BidPriceCount++
	}
	if totalPrice != nil {
		a.TotalPriceSum += *totalPrice
		a.TotalPriceCount++
	}
	a.RowCount++
}

// Row is one finalized group of a cube: its key tuple (aligned with the
// cube's key columns) and its merged aggregates.
type Row struct {
	Keys []Value
	Agg  Aggregates
}

// Cube is the in-memory form of one rollup's finalized table, ready to be
// written via columnar.Write or produced by columnar.Read.
type Cube struct {
	ID         string
	KeyColumns []Column
	Rows       []Row
}

// Columns returns the cube's full physical schema: key columns in declared
// order, followed by the five fixed aggregate columns.
func (c *Cube) Columns() []Column {
	return append(append([]Column{}, c.KeyColumns...), AggregateColumns()...)
}
