// Eventcube - OLAP Rollup Query Engine for Ad-Tech Event Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventcube

// Package errkind classifies errors into a closed taxonomy so CLI front ends
// can map a failure to the right exit behavior (PREPARE: abort everything;
// RUN: isolate to the one query).
package errkind

import "errors"

// Kind is one of the error kinds a PREPARE or RUN failure can carry.
type Kind int

const (
	// Unknown is the zero value; Of returns it for errors with no attached kind.
	Unknown Kind = iota

	// InputFormat: malformed CSV, bad timestamp, schema mismatch. PREPARE fatal.
	InputFormat

	// CatalogAbsent: rollup directory missing or incomplete at RUN start.
	CatalogAbsent

	// QueryMalformed: select/group_by/order_by/where violates the query
	// document's well-formedness invariant. Per-query fatal.
	QueryMalformed

	// UnsupportedOperation: query uses a feature not supported anywhere.
	UnsupportedOperation

	// RollupUnfit: no cube matches and the fallback also rejects the query.
	RollupUnfit

	// IoFailure: disk read/write error.
	IoFailure
)

func (k Kind) String() string {
	switch k {
	case InputFormat:
		return "InputFormat"
	case CatalogAbsent:
		return "CatalogAbsent"
	case QueryMalformed:
		return "QueryMalformed"
	case UnsupportedOperation:
		return "UnsupportedOperation"
	case RollupUnfit:
		return "RollupUnfit"
	case IoFailure:
		return "IoFailure"
	default:
		return "Unknown"
	}
}

// kindError wraps an error with a Kind, preserving the original error as the
// unwrap target so errors.Is / errors.As keep working across the boundary.
type kindError struct {
	kind Kind
	err  error
}

func (e *kindError) Error() string { return e.kind.String() + ": " + e.err.Error() }
func (e *kindError) Unwrap() error { return e.err }
func (e *kindError) Kind() Kind    { return e.kind }

// Wrap attaches kind to err. Wrapping a nil error returns nil.
func Wrap(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &kindError{kind: kind, err: err}
}

// Of recovers the Kind attached to err via Wrap, or Unknown if none was attached.
func Of(err error) Kind {
	var ke *kindError
	if errors.As(err, &ke) {
		return ke.kind
	}
	return Unknown
}

// ExitCode maps a Kind to a process exit code for the CLI front ends.
func ExitCode(k Kind) int {
	switch k {
	case Unknown:
		return 0
	default:
		return int(k) + 1
	}
}
