// Eventcube - OLAP Rollup Query Engine for Ad-Tech Event Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventcube

package catalog

// Dimension is a key column a rollup cube may be keyed by.
type Dimension string

// The eight dimensions a rollup key may draw from.
const (
	DimDay          Dimension = "day"
	DimHour         Dimension = "hour"
	DimMinute       Dimension = "minute"
	DimWeek         Dimension = "week"
	DimCountry      Dimension = "country"
	DimAdvertiserID Dimension = "advertiser_id"
	DimPublisherID  Dimension = "publisher_id"
	DimType         Dimension = "type"
)

// derivesTo maps a dimension to the set of dimensions it derives:
//
//	minute ⇒ day, hour, week   (pure projection on the time encoding)
//	day    ⇒ week              (calendar mapping)
//	hour   derives nothing else — it lacks date context.
//
// Centralized here as data so the router and executor can consult the
// derivation relation without embedding it as branching logic of their own.
var derivesTo = map[Dimension][]Dimension{
	DimMinute: {DimDay, DimHour, DimWeek},
	DimDay:    {DimWeek},
}

// Derivable returns the set of dimensions present in keys, plus every
// dimension any member of keys can derive (transitively).
func Derivable(keys []Dimension) map[Dimension]bool {
	out := make(map[Dimension]bool, len(keys)*2)
	var visit func(d Dimension)
	visit = func(d Dimension) {
		if out[d] {
			return
		}
		out[d] = true
		for _, derived := range derivesTo[d] {
			visit(derived)
		}
	}
	for _, k := range keys {
		visit(k)
	}
	return out
}

// DerivesFrom reports whether target is directly or transitively derivable
// from source (source ⊢ target). Used by the router to decide whether a
// filter/group-by column can be rewritten against a narrower cube key.
func DerivesFrom(source, target Dimension) bool {
	if source == target {
		return true
	}
	for _, d := range derivesTo[source] {
		if d == target || DerivesFrom(d, target) {
			return true
		}
	}
	return false
}
