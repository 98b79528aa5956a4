// Eventcube - OLAP Rollup Query Engine for Ad-Tech Event Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventcube

package eventmodel

import (
	"fmt"
	"strconv"
	"strings"
)

// Columns lists the nine raw CSV fields in the canonical header order.
var Columns = []string{
	"ts", "type", "auction_id", "advertiser_id", "publisher_id",
	"bid_price", "user_id", "total_price", "country",
}

// RowDecoder maps a CSV header row to column positions and decodes data rows
// into Events. Implementations must tolerate any header column order as long
// as all nine fields are present.
type RowDecoder struct {
	idx map[string]int
}

// NewRowDecoder builds a decoder from a CSV header row.
func NewRowDecoder(header []string) (*RowDecoder, error) {
	idx := make(map[string]int, len(header))
	for i, col := range header {
		idx[strings.TrimSpace(col)] = i
	}
	for _, want := range Columns {
		if _, ok := idx[want]; !ok {
			return nil, fmt.Errorf("csv header missing required column %q", want)
		}
	}
	return &RowDecoder{idx: idx}, nil
}

// Decode converts one CSV data row into an Event with derived time fields
// populated. Empty numeric fields decode to NULL (nil pointer), never zero.
func (d *RowDecoder) Decode(record []string) (Event, error) {
	field := func(name string) string {
		return strings.TrimSpace(record[d.idx[name]])
	}

	tsStr := field("ts")
	ts, err := strconv.ParseInt(tsStr, 10, 64)
	if err != nil {
		return Event{}, fmt.Errorf("parse ts %q: %w", tsStr, err)
	}

	typ, err := ParseType(field("type"))
	if err != nil {
		return Event{}, err
	}

	advertiserID, err := parseInt32(field("advertiser_id"))
	if err != nil {
		return Event{}, fmt.Errorf("parse advertiser_id: %w", err)
	}
	publisherID, err := parseInt32(field("publisher_id"))
	if err != nil {
		return Event{}, fmt.Errorf("parse publisher_id: %w", err)
	}
	userID, err := parseInt64(field("user_id"))
	if err != nil {
		return Event{}, fmt.Errorf("parse user_id: %w", err)
	}

	bidPrice, err := parseNullableFloat(field("bid_price"))
	if err != nil {
		return Event{}, fmt.Errorf("parse bid_price: %w", err)
	}
	totalPrice, err := parseNullableFloat(field("total_price"))
	if err != nil {
		return Event{}, fmt.Errorf("parse total_price: %w", err)
	}

	e := Event{
		Ts:           ts,
		Type:         typ,
		AuctionID:    field("auction_id"),
		AdvertiserID: advertiserID,
		PublisherID:  publisherID,
		BidPrice:     bidPrice,
		UserID:       userID,
		TotalPrice:   totalPrice,
		Country:      field("country"),
	}
	return e.WithDerived(), nil
}

func parseNullableFloat(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func parseInt32(s string) (int32, error) {
	v, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, err
	}
	return int32(v), nil
}

func parseInt64(s string) (int64, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return v, nil
}
