// Eventcube - OLAP Rollup Query Engine for Ad-Tech Event Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventcube

package querydoc

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/tomtom215/eventcube/internal/errkind"
)

// wireDocument mirrors the on-the-wire JSON shape: queries are supplied as a
// JSON array of query documents. Decoding and struct-tag validation of the
// wire shape sit outside the core query document model; toDocument converts
// a validated wireDocument into the core Document.
type wireDocument struct {
	Select  []wireSelectItem `json:"select" validate:"required,min=1,dive"`
	Where   []wirePredicate  `json:"where" validate:"dive"`
	GroupBy []string         `json:"group_by" validate:"dive,required"`
	OrderBy []wireOrderItem  `json:"order_by" validate:"dive"`
}

type wireSelectItem struct {
	Column string `json:"-"`
	Func   string `json:"-"`
}

// UnmarshalJSON accepts either a bare string ("day") or an object
// ({"func": "SUM", "column": "bid_price"}): a select entry is either a bare
// column name or an aggregate {func, column} pair.
func (s *wireSelectItem) UnmarshalJSON(data []byte) error {
	var bare string
	if err := json.Unmarshal(data, &bare); err == nil {
		s.Column = bare
		return nil
	}
	var obj struct {
		Func   string `json:"func"`
		Column string `json:"column"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("select item must be a string or {func, column} object: %w", err)
	}
	s.Func = obj.Func
	s.Column = obj.Column
	return nil
}

type wirePredicate struct {
	Column string   `json:"column" validate:"required"`
	Op     string   `json:"op" validate:"required"`
	Value  string   `json:"value"`
	Values []string `json:"values"`
	Low    string   `json:"low"`
	High   string   `json:"high"`
}

type wireOrderItem struct {
	Ref       string `json:"ref" validate:"required"`
	Direction string `json:"direction"`
}

var wireValidate = validator.New()

// Entry is one decoded slot of a query array: exactly one of Doc or Err is
// set. A malformed entry never prevents its neighbors in the same array
// from decoding; each is independent.
type Entry struct {
	Doc Document
	Err error
}

// DecodeAll parses a JSON array of query documents, decoding and validating
// each entry on its own. One entry's malformed shape never discards any
// other entry in the array: the caller gets one Entry per array element, in
// order, and decides how to handle a failed one independently of the rest.
// The only whole-batch error is a top-level value that isn't even a JSON
// array, since there is nothing to split into entries at that point.
func DecodeAll(raw []byte) ([]Entry, error) {
	var rawDocs []json.RawMessage
	if err := json.Unmarshal(raw, &rawDocs); err != nil {
		return nil, errkind.Wrap(errkind.QueryMalformed, fmt.Errorf("parse query array: %w", err))
	}

	entries := make([]Entry, len(rawDocs))
	for i, rd := range rawDocs {
		doc, err := decodeOne(rd)
		if err != nil {
			entries[i] = Entry{Err: errkind.Wrap(errkind.QueryMalformed, fmt.Errorf("query %d: %w", i+1, err))}
			continue
		}
		entries[i] = Entry{Doc: doc}
	}
	return entries, nil
}

func decodeOne(raw json.RawMessage) (Document, error) {
	var wd wireDocument
	if err := json.Unmarshal(raw, &wd); err != nil {
		return Document{}, fmt.Errorf("parse query document: %w", err)
	}
	return wd.toDocument()
}

func (wd wireDocument) toDocument() (Document, error) {
	if err := wireValidate.Struct(wd); err != nil {
		return Document{}, err
	}

	doc := Document{
		GroupBy: wd.GroupBy,
	}

	for _, ws := range wd.Select {
		if ws.Func == "" {
			doc.Select = append(doc.Select, SelectItem{Column: ws.Column})
			continue
		}
		fn, err := ParseAggFunc(ws.Func)
		if err != nil {
			return Document{}, err
		}
		doc.Select = append(doc.Select, SelectItem{Func: fn, Column: ws.Column})
	}

	for _, wp := range wd.Where {
		doc.Where = append(doc.Where, Predicate{
			Column: wp.Column,
			Op:     Op(wp.Op),
			Value:  wp.Value,
			Values: wp.Values,
			Low:    wp.Low,
			High:   wp.High,
		})
	}

	for _, wo := range wd.OrderBy {
		doc.OrderBy = append(doc.OrderBy, OrderItem{
			Ref:  wo.Ref,
			Desc: wo.Direction == "desc" || wo.Direction == "DESC",
		})
	}

	if err := doc.Validate(); err != nil {
		return Document{}, err
	}
	return doc, nil
}
