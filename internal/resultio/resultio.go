// Eventcube - OLAP Rollup Query Engine for Ad-Tech Event Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventcube

// Package resultio serializes a query's result table to CSV, one file per
// query: header row naming the output columns, one data row per result
// tuple, NULLs as the empty field.
package resultio

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tomtom215/eventcube/internal/errkind"
	"github.com/tomtom215/eventcube/internal/rollupexec"
)

// FileName returns the fixed naming convention for the n'th query's result
// file (1-indexed): q1, q2, ...
func FileName(n int) string {
	return fmt.Sprintf("q%d", n)
}

// Write serializes result as CSV to path, creating parent directories as
// needed. An empty result set still produces a header-only file.
func Write(path string, result rollupexec.Result) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errkind.Wrap(errkind.IoFailure, fmt.Errorf("create result dir: %w", err))
		}
	}

	f, err := os.Create(path) //nolint:gosec // path built from operator-supplied output dir and a fixed q<n> name
	if err != nil {
		return errkind.Wrap(errkind.IoFailure, fmt.Errorf("create result file %s: %w", path, err))
	}
	defer func() { _ = f.Close() }()

	w := csv.NewWriter(f)
	if err := w.Write(result.Header); err != nil {
		return errkind.Wrap(errkind.IoFailure, fmt.Errorf("write header: %w", err))
	}
	for _, row := range result.Rows {
		record := make([]string, len(row))
		for i, cell := range row {
			if !cell.Null {
				record[i] = cell.Str
			}
		}
		if err := w.Write(record); err != nil {
			return errkind.Wrap(errkind.IoFailure, fmt.Errorf("write row: %w", err))
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return errkind.Wrap(errkind.IoFailure, fmt.Errorf("flush result file %s: %w", path, err))
	}
	return f.Close()
}
