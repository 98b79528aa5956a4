// Eventcube - OLAP Rollup Query Engine for Ad-Tech Event Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventcube

// Package factstore implements the sorted fact store: a full materialization
// of the ingested events, physically ordered by (week, country, type),
// serving only the fallback executor.
package factstore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/tomtom215/eventcube/internal/errkind"
	"github.com/tomtom215/eventcube/internal/eventmodel"
	"github.com/tomtom215/eventcube/internal/ingest"
	"github.com/tomtom215/eventcube/internal/logging"
)

const createTableSQL = `
CREATE TABLE events (
	ts            BIGINT NOT NULL,
	type          VARCHAR NOT NULL,
	auction_id    VARCHAR NOT NULL,
	advertiser_id INTEGER NOT NULL,
	publisher_id  INTEGER NOT NULL,
	bid_price     DOUBLE,
	user_id       BIGINT NOT NULL,
	total_price   DOUBLE,
	country       VARCHAR NOT NULL,
	day           VARCHAR NOT NULL,
	hour          INTEGER NOT NULL,
	minute        VARCHAR NOT NULL,
	week          VARCHAR NOT NULL
)`

const insertSQL = `INSERT INTO events (
	ts, type, auction_id, advertiser_id, publisher_id, bid_price, user_id, total_price, country, day, hour, minute, week
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// Store wraps the DuckDB-backed fact table connection. Read-only once
// Build has published it; concurrent readers are safe.
type Store struct {
	conn *sql.DB
}

// Build materializes every event under dataDir into a fresh DuckDB database
// at path, physically sorted by (week, country, type), then closes
// the write handle. Build is run once during PREPARE and writes directly to
// path (any existing file there is removed first); RUN attaches to the
// result read-only via Open.
func Build(ctx context.Context, dataDir, path string, workers int) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errkind.Wrap(errkind.IoFailure, fmt.Errorf("create fallback dir: %w", err))
		}
	}
	_ = os.Remove(path) // never append to a stale sorted fact store

	conn, err := openConn(path)
	if err != nil {
		return errkind.Wrap(errkind.IoFailure, err)
	}
	defer func() { _ = conn.Close() }()

	if _, err := conn.ExecContext(ctx, createTableSQL); err != nil {
		return errkind.Wrap(errkind.IoFailure, fmt.Errorf("create events table: %w", err))
	}

	batches, wait := ingest.Scan(ctx, dataDir, workers)
	rows := int64(0)
	for batch := range batches {
		if err := insertBatch(ctx, conn, batch.Events); err != nil {
			return errkind.Wrap(errkind.IoFailure, fmt.Errorf("insert batch from %s: %w", batch.SourceFile, err))
		}
		rows += int64(len(batch.Events))
	}
	if err := wait(); err != nil {
		return err
	}

	logging.Info().Int64("rows", rows).Msg("FACTSTORE: inserted raw events, sorting")

	if _, err := conn.ExecContext(ctx, `CREATE TABLE events_sorted AS SELECT * FROM events ORDER BY week, country, type`); err != nil {
		return errkind.Wrap(errkind.IoFailure, fmt.Errorf("materialize sorted copy: %w", err))
	}
	if _, err := conn.ExecContext(ctx, `DROP TABLE events`); err != nil {
		return errkind.Wrap(errkind.IoFailure, fmt.Errorf("drop unsorted table: %w", err))
	}
	if _, err := conn.ExecContext(ctx, `ALTER TABLE events_sorted RENAME TO events`); err != nil {
		return errkind.Wrap(errkind.IoFailure, fmt.Errorf("rename sorted table: %w", err))
	}

	logging.Info().Str("path", path).Msg("FACTSTORE: published sorted fact store")
	return nil
}

func insertBatch(ctx context.Context, conn *sql.DB, events []eventmodel.Event) error {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, insertSQL)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, e := range events {
		if _, err := stmt.ExecContext(ctx,
			e.Ts, string(e.Type), e.AuctionID, e.AdvertiserID, e.PublisherID,
			nullableFloat(e.BidPrice), e.UserID, nullableFloat(e.TotalPrice), e.Country,
			e.Day, e.Hour, e.Minute, e.Week,
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert row: %w", err)
		}
	}
	return tx.Commit()
}

func nullableFloat(f *float64) interface{} {
	if f == nil {
		return nil
	}
	return *f
}

// Open attaches to an existing sorted fact store at path for read-only use
// during RUN.
func Open(path string) (*Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, errkind.Wrap(errkind.CatalogAbsent, fmt.Errorf("fallback store missing at %s: %w", path, err))
	}
	conn, err := openReadOnlyConn(path)
	if err != nil {
		return nil, errkind.Wrap(errkind.IoFailure, err)
	}
	conn.SetMaxOpenConns(runtime.NumCPU())
	return &Store{conn: conn}, nil
}

func openConn(path string) (*sql.DB, error) {
	connStr := fmt.Sprintf("%s?access_mode=READ_WRITE&threads=%d", path, runtime.NumCPU())
	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("open duckdb %s: %w", path, err)
	}
	return conn, nil
}

// openReadOnlyConn opens path read-only: the sorted fact store is read-only
// after PREPARE publishes it, and concurrent readers are safe.
func openReadOnlyConn(path string) (*sql.DB, error) {
	connStr := fmt.Sprintf("%s?access_mode=READ_ONLY&threads=%d", path, runtime.NumCPU())
	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("open duckdb %s read-only: %w", path, err)
	}
	return conn, nil
}

// Close releases the store's connection.
func (s *Store) Close() error { return s.conn.Close() }

// Conn exposes the underlying *sql.DB for the fallback executor to issue
// parameterized queries against the events table.
func (s *Store) Conn() *sql.DB { return s.conn }
