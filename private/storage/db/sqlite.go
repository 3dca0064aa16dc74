// Copyright 2025 ETH Zurich, Anapaya Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package db opens sqlite databases with a single writer connection and a
// pool of readers, and versions their schema with PRAGMA user_version.
//
// The driver is modernc.org/sqlite by default. Building with the
// sqlite_mattn tag switches to github.com/mattn/go-sqlite3.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"runtime"
	"strings"
)

// Reader is the read-only subset of *sql.DB.
type Reader interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	Stats() sql.DBStats
}

// SqliteConfig allows configuring the sqlite database instance.
type SqliteConfig struct {
	MaxOpenReadConns int
	MaxIdleReadConns int
}

// Sqlite holds the write and read connection pools of a database.
type Sqlite struct {
	// Full is limited to one open connection. It can be used for any
	// operation including transactions.
	Full *sql.DB
	// ReadOnly must only be used for reads.
	ReadOnly Reader

	read *sql.DB
}

// NewSqlite opens the database at path. The write pool is limited to one
// open connection to avoid SQLITE_BUSY contention, the read pool defaults to
// one connection per CPU with a minimum of four.
func NewSqlite(path string, cfg *SqliteConfig) (*Sqlite, error) {
	var c SqliteConfig
	if cfg != nil {
		c = *cfg
	}
	if strings.Contains(path, ":memory:") {
		return nil, fmt.Errorf("use a file backed database")
	}
	noFile, _ := strings.CutPrefix(path, "file:")
	params := make(url.Values)
	addPragmas(params)
	connURL := "file:" + noFile + "?" + params.Encode()

	write, err := sql.Open(driverName(), connURL)
	if err != nil {
		return nil, fmt.Errorf("opening write database: %w", err)
	}
	write.SetMaxOpenConns(1)

	read, err := sql.Open(driverName(), connURL)
	if err != nil {
		write.Close()
		return nil, fmt.Errorf("opening read database: %w", err)
	}
	if c.MaxOpenReadConns == 0 {
		c.MaxOpenReadConns = max(4, runtime.NumCPU())
	}
	read.SetMaxOpenConns(c.MaxOpenReadConns)
	if c.MaxIdleReadConns != 0 {
		read.SetMaxIdleConns(c.MaxIdleReadConns)
	}
	return &Sqlite{Full: write, ReadOnly: read, read: read}, nil
}

// Setup applies schema to an empty database and records schemaVersion. An
// existing database must already be at schemaVersion.
func (db *Sqlite) Setup(schema string, schemaVersion int) error {
	var existingVersion int
	if err := db.Full.QueryRow("PRAGMA user_version;").Scan(&existingVersion); err != nil {
		return fmt.Errorf("checking database schema version: %w", err)
	}
	switch {
	case existingVersion == 0:
		if _, err := db.Full.Exec(schema); err != nil {
			return fmt.Errorf("applying schema: %w", err)
		}
		_, err := db.Full.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion))
		if err != nil {
			return fmt.Errorf("writing schema version: %w", err)
		}
		return nil
	case existingVersion != schemaVersion:
		return fmt.Errorf("database schema version mismatch: expected %d, have %d",
			schemaVersion, existingVersion,
		)
	default:
		return nil
	}
}

// Close closes both connection pools.
func (db *Sqlite) Close() error {
	rerr := db.read.Close()
	if err := db.Full.Close(); err != nil {
		return err
	}
	return rerr
}
