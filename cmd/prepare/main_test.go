// Eventcube - OLAP Rollup Query Engine for Ad-Tech Event Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventcube

package main

import "testing"

func TestFallbackDBPath(t *testing.T) {
	if got := fallbackDBPath("fallback"); got != "fallback/events.duckdb" {
		t.Errorf("fallbackDBPath(%q) = %q, want %q", "fallback", got, "fallback/events.duckdb")
	}
}
