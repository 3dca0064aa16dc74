// Copyright 2026 Anapaya Systems
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

package sqlite

const (
	// SchemaVersion is the version of the SQLite schema understood by this
	// backend. Whenever changes to the schema are made, this version number
	// should be increased to prevent data corruption between incompatible
	// database schemas.
	SchemaVersion = 1
	// Schema is the SQLite database layout.
	// Timestamps are stored as unix nanoseconds, 0 meaning unset.
	Schema = `CREATE TABLE sessions(
		id TEXT NOT NULL PRIMARY KEY,
		owner_id TEXT NOT NULL,
		scope_id TEXT NOT NULL,
		starts_at INTEGER NOT NULL,
		ends_at INTEGER NOT NULL,
		closed INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE presence(
		session_id TEXT NOT NULL PRIMARY KEY,
		rotation_origin INTEGER NOT NULL,
		slot_interval INTEGER NOT NULL,
		grace INTEGER NOT NULL,
		pre_roll_tolerance INTEGER NOT NULL,
		pool TEXT NOT NULL,
		handover INTEGER,
		pool_start_slot INTEGER NOT NULL,
		pool_version INTEGER NOT NULL,
		major INTEGER NOT NULL,
		heartbeat_at INTEGER NOT NULL,
		mode TEXT NOT NULL,
		phase TEXT NOT NULL,
		expires_at INTEGER NOT NULL
	);
	CREATE INDEX presence_expiring ON presence(phase, expires_at);

	CREATE TABLE subjects(
		id TEXT NOT NULL PRIMARY KEY,
		name TEXT NOT NULL
	);

	CREATE TABLE roster(
		scope_id TEXT NOT NULL,
		subject_id TEXT NOT NULL,
		PRIMARY KEY (scope_id, subject_id),
		FOREIGN KEY (subject_id) REFERENCES subjects(id) ON DELETE CASCADE
	);

	CREATE TABLE credentials(
		credential_id TEXT NOT NULL PRIMARY KEY,
		subject_id TEXT NOT NULL,
		FOREIGN KEY (subject_id) REFERENCES subjects(id) ON DELETE CASCADE
	);

	CREATE TABLE attendance(
		session_id TEXT NOT NULL,
		subject_id TEXT NOT NULL,
		scope_id TEXT NOT NULL,
		entry_at INTEGER NOT NULL,
		exit_at INTEGER,
		status TEXT NOT NULL,
		exception_reason TEXT,
		PRIMARY KEY (session_id, subject_id)
	);`
)
