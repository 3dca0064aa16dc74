// Copyright 2020 Anapaya Systems
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

// Package storage provides factories for the application storage backends.
package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/jackerost/attendance/pkg/log"
	"github.com/jackerost/attendance/pkg/metrics/v2"
	"github.com/jackerost/attendance/private/config"
	"github.com/jackerost/attendance/private/periodic"
	"github.com/jackerost/attendance/private/storage/cleaner"
	"github.com/jackerost/attendance/private/storage/db"
	"github.com/jackerost/attendance/private/storage/directory"
	"github.com/jackerost/attendance/private/storage/directory/sqlite"
)

// Backend indicates the database backend type.
type Backend string

const (
	// BackendSqlite indicates an sqlite backend.
	BackendSqlite Backend = "sqlite"
	// DefaultDirectoryPath is the default connection string of the directory.
	DefaultDirectoryPath = "/var/lib/attendance/%s.directory.db"
	// DefaultCleanInterval is the interval in which expiring presence
	// records are cleared.
	DefaultCleanInterval = 5 * time.Second
)

// SetID returns a clone of the configuration that has the ID set on the connection string.
func SetID(cfg DBConfig, id string) *DBConfig {
	cfg.Connection = fmt.Sprintf(cfg.Connection, id)
	return &cfg
}

var _ (config.Config) = (*DBConfig)(nil)

// DBConfig is the configuration for the connection to a database.
type DBConfig struct {
	Connection   string `toml:"connection,omitempty"`
	MaxOpenConns int    `toml:"max_open_conns,omitempty"`
	MaxIdleConns int    `toml:"max_idle_conns,omitempty"`
}

func (cfg *DBConfig) InitDefaults() {
	if cfg.Connection == "" {
		cfg.Connection = DefaultDirectoryPath
	}
}

func (cfg *DBConfig) Validate() error {
	return nil
}

// Sample writes a config sample to the writer.
func (cfg *DBConfig) Sample(dst io.Writer, path config.Path, ctx config.CtxMap) {
	config.WriteString(dst, fmt.Sprintf(dbSample, ctx[config.ID]))
}

// ConfigName is the key in the toml file.
func (cfg *DBConfig) ConfigName() string {
	return "directory_db"
}

// DirectoryOptions are optional settings of NewDirectoryStorage.
type DirectoryOptions struct {
	// CleanInterval defaults to DefaultCleanInterval.
	CleanInterval time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
	// Metrics are the cleaner metrics. Zero value disables them.
	Metrics cleaner.Metrics
	// RunnerMetrics are the periodic runner metrics of the cleaner.
	RunnerMetrics *periodic.Metrics
}

// NewDirectoryStorage opens the directory and starts a periodic task that
// clears presence records whose stop grace period ended without the
// presenter clearing them.
func NewDirectoryStorage(c DBConfig, opts DirectoryOptions) (directory.DB, error) {
	log.Info("Connecting directory", "backend", BackendSqlite, "connection", c.Connection)
	backend, err := sqlite.New(c.Connection, &db.SqliteConfig{
		MaxOpenReadConns: c.MaxOpenConns,
		MaxIdleReadConns: c.MaxIdleConns,
	})
	if err != nil {
		return nil, err
	}
	interval := opts.CleanInterval
	if interval == 0 {
		interval = DefaultCleanInterval
	}
	task := cleaner.New(
		func(ctx context.Context, now time.Time) (int, error) {
			return backend.ClearExpired(ctx, now)
		},
		"presence",
		opts.Now,
		opts.Metrics,
	)
	runner := periodic.StartWithMetrics(task, opts.RunnerMetrics, interval, interval)
	return directoryWithCleaner{DB: backend, cleaner: runner}, nil
}

// directoryWithCleaner stops both the database and the cleanup task on
// Close.
type directoryWithCleaner struct {
	directory.DB
	cleaner *periodic.Runner
}

func (d directoryWithCleaner) Close() error {
	d.cleaner.Kill()
	return d.DB.Close()
}

// NewCleanerMetrics is a convenience wrapper creating cleaner metrics with
// the default registry.
func NewCleanerMetrics() cleaner.Metrics {
	return cleaner.NewMetrics(metrics.ApplyOptions().Auto(), "directory")
}

const dbSample = `
# The connection string of the database.
# (default /var/lib/attendance/<id>.directory.db)
connection = "/var/lib/attendance/%s.directory.db"

# The maximum number of open read connections. (default max(4, #cpus))
max_open_conns = 0

# The maximum number of idle read connections. 0 keeps the Go default. (default 0)
max_idle_conns = 0
`
