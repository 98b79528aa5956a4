// Eventcube - OLAP Rollup Query Engine for Ad-Tech Event Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventcube

package metrics

import (
	"strings"
	"testing"
)

func TestDumpText_IncludesRegisteredMetrics(t *testing.T) {
	FoldsTotal.Inc()
	PlanKindTotal.WithLabelValues("fallback").Inc()

	text, err := DumpText()
	if err != nil {
		t.Fatalf("DumpText: %v", err)
	}
	if !strings.Contains(text, "eventcube_prepare_folds_total") {
		t.Error("dumped text should contain the folds counter name")
	}
	if !strings.Contains(text, "eventcube_router_plan_kind_total") {
		t.Error("dumped text should contain the plan kind counter name")
	}
}

func TestRegistry_IsolatedFromDefault(t *testing.T) {
	families, err := Registry.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	for _, mf := range families {
		if strings.HasPrefix(mf.GetName(), "go_") || strings.HasPrefix(mf.GetName(), "process_") {
			t.Errorf("dedicated registry should not carry Go/process collectors, found %q", mf.GetName())
		}
	}
}
