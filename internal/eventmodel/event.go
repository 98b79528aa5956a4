// Eventcube - OLAP Rollup Query Engine for Ad-Tech Event Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventcube

// Package eventmodel defines the ad-tech event record and its time-derived
// dimensions, computed once on ingest as pure functions of ts.
package eventmodel

import (
	"fmt"
	"time"
)

// Type is the low-cardinality event type enum.
type Type string

// The four event types the fact table carries.
const (
	TypeServe       Type = "serve"
	TypeImpression  Type = "impression"
	TypeClick       Type = "click"
	TypePurchase    Type = "purchase"
	TypeUnspecified Type = ""
)

// ParseType validates a raw CSV type field against the closed enum.
func ParseType(s string) (Type, error) {
	switch Type(s) {
	case TypeServe, TypeImpression, TypeClick, TypePurchase:
		return Type(s), nil
	default:
		return TypeUnspecified, fmt.Errorf("unrecognized event type %q", s)
	}
}

// Event is one row of the fact table, including its time-derived dimensions.
//
// Invariant: Day, Hour, Minute, Week are pure functions of Ts — no row may
// carry a derived field inconsistent with its Ts.
type Event struct {
	Ts            int64 // Unix milliseconds, UTC
	Type          Type
	AuctionID     string
	AdvertiserID  int32
	PublisherID   int32
	BidPrice      *float64 // NULL except for serve/impression
	UserID        int64
	TotalPrice    *float64 // NULL except for purchase
	Country       string   // 2-character ISO code

	// Derived time dimensions, computed from Ts at ingest.
	Day    string // YYYY-MM-DD
	Hour   int    // 0-23
	Minute string // YYYY-MM-DD HH:MM, unique per wall-clock minute
	Week   string // YYYY-WNN, ISO week
}

// DeriveTimeFields populates Day, Hour, Minute and Week from Ts, treating Ts
// as UTC Unix milliseconds. It is the single source of truth for the
// derived-field invariant and must be called for every ingested row.
func DeriveTimeFields(ts int64) (day string, hour int, minute string, week string) {
	t := time.UnixMilli(ts).UTC()
	day = t.Format("2006-01-02")
	hour = t.Hour()
	minute = t.Format("2006-01-02 15:04")
	isoYear, isoWeek := t.ISOWeek()
	week = fmt.Sprintf("%04d-W%02d", isoYear, isoWeek)
	return
}

// WithDerived returns a copy of e with the derived time fields populated
// from e.Ts.
func (e Event) WithDerived() Event {
	e.Day, e.Hour, e.Minute, e.Week = DeriveTimeFields(e.Ts)
	return e
}
