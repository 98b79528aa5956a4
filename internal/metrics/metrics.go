// Eventcube - OLAP Rollup Query Engine for Ad-Tech Event Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventcube

// Package metrics instruments PREPARE and RUN with Prometheus collectors,
// rendered to text at process exit rather than served over HTTP — both
// front ends are short-lived batch CLIs with no long-lived server to scrape.
package metrics

import (
	"bytes"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"
)

// Registry isolates this process's collectors from the global default
// registry, so dumping text output never picks up stray third-party
// collectors.
var Registry = prometheus.NewRegistry()

var (
	// BatchDuration measures ingest.Scan batch-to-fold latency during PREPARE.
	BatchDuration = promauto.With(Registry).NewHistogram(prometheus.HistogramOpts{
		Name:    "eventcube_prepare_batch_duration_seconds",
		Help:    "Time to fold one ingest batch into every cube's accumulator.",
		Buckets: prometheus.DefBuckets,
	})

	// FoldsTotal counts fold() housekeeping passes across all cubes.
	FoldsTotal = promauto.With(Registry).NewCounter(prometheus.CounterOpts{
		Name: "eventcube_prepare_folds_total",
		Help: "Total number of accumulator fold passes.",
	})

	// RowsFoldedTotal counts events folded into the builder's accumulators.
	RowsFoldedTotal = promauto.With(Registry).NewCounter(prometheus.CounterOpts{
		Name: "eventcube_prepare_rows_folded_total",
		Help: "Total number of event rows folded during PREPARE.",
	})

	// RouterDecisionDuration measures how long Route takes per query.
	RouterDecisionDuration = promauto.With(Registry).NewHistogram(prometheus.HistogramOpts{
		Name:    "eventcube_router_decision_duration_seconds",
		Help:    "Time to produce a routing plan for one query.",
		Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01},
	})

	// PlanKindTotal counts how many queries were routed to a rollup vs. the
	// fallback, labeled by which.
	PlanKindTotal = promauto.With(Registry).NewCounterVec(prometheus.CounterOpts{
		Name: "eventcube_router_plan_kind_total",
		Help: "Total number of queries routed, by plan kind.",
	}, []string{"kind"})

	// QueryDuration measures end-to-end duration for one RUN query.
	QueryDuration = promauto.With(Registry).NewHistogramVec(prometheus.HistogramOpts{
		Name:    "eventcube_run_query_duration_seconds",
		Help:    "Time to execute and serialize one query.",
		Buckets: prometheus.DefBuckets,
	}, []string{"source"}) // source: rollup id, or "fallback"

	// QueryFailuresTotal counts per-query failures, labeled by error kind.
	QueryFailuresTotal = promauto.With(Registry).NewCounterVec(prometheus.CounterOpts{
		Name: "eventcube_run_query_failures_total",
		Help: "Total number of per-query failures, by error kind.",
	}, []string{"kind"})
)

// DumpText renders every registered metric in Prometheus's text exposition
// format, for a process that never serves HTTP to print or log at exit.
func DumpText() (string, error) {
	families, err := Registry.Gather()
	if err != nil {
		return "", fmt.Errorf("gather metrics: %w", err)
	}
	var buf bytes.Buffer
	enc := expfmt.NewEncoder(&buf, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return "", fmt.Errorf("encode metric family %s: %w", mf.GetName(), err)
		}
	}
	return buf.String(), nil
}
