// Eventcube - OLAP Rollup Query Engine for Ad-Tech Event Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventcube

package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/tomtom215/eventcube/internal/eventmodel"
)

func writeCSV(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestScan_DecodesAllRows(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "a.csv", "ts,type,auction_id,advertiser_id,publisher_id,bid_price,user_id,total_price,country\n"+
		"1709510400000,serve,a1,1,2,,99,,US\n"+
		"1709510400000,impression,a2,1,2,1.5,99,,US\n")
	writeCSV(t, dir, "b.csv", "ts,type,auction_id,advertiser_id,publisher_id,bid_price,user_id,total_price,country\n"+
		"1709510400000,purchase,a3,1,2,,99,9.99,DE\n")

	batches, wait := Scan(context.Background(), dir, 2)
	var all []eventmodel.Event
	for b := range batches {
		all = append(all, b.Events...)
	}
	if err := wait(); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 decoded events, got %d", len(all))
	}
}

func TestScan_MissingDataDir(t *testing.T) {
	batches, wait := Scan(context.Background(), filepath.Join(t.TempDir(), "missing"), 1)
	for range batches {
		t.Error("no batches should be produced for a missing data dir")
	}
	if err := wait(); err == nil {
		t.Fatal("expected an error for a missing data dir")
	}
}

func TestScan_MalformedRowFailsTheWait(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "bad.csv", "ts,type,auction_id,advertiser_id,publisher_id,bid_price,user_id,total_price,country\n"+
		"not-a-timestamp,serve,a1,1,2,,99,,US\n")

	batches, wait := Scan(context.Background(), dir, 1)
	for range batches {
	}
	if err := wait(); err == nil {
		t.Fatal("expected a decode error to surface from wait()")
	}
}

func TestScan_IgnoresNonCSVFiles(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "readme.txt", "not a csv")
	writeCSV(t, dir, "a.csv", "ts,type,auction_id,advertiser_id,publisher_id,bid_price,user_id,total_price,country\n"+
		"1709510400000,serve,a1,1,2,,99,,US\n")

	batches, wait := Scan(context.Background(), dir, 1)
	count := 0
	for b := range batches {
		count += len(b.Events)
	}
	if err := wait(); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 event from the single csv file, got %d", count)
	}
}
