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

// Package directory defines the shared directory the coordinator, the
// presenter and the ledger read and write: sessions, presence records,
// rosters, credentials and attendance records.
package directory

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/jackerost/attendance/pkg/attendance"
	"github.com/jackerost/attendance/pkg/presence"
	"github.com/jackerost/attendance/pkg/session"
)

// ErrNotFound is returned when the requested entry does not exist.
var ErrNotFound = errors.New("not found")

// Sessions stores the scheduled sessions.
type Sessions interface {
	// Session returns the session with the given id or ErrNotFound.
	Session(ctx context.Context, id string) (*session.Session, error)
	// InsertSession inserts or replaces s.
	InsertSession(ctx context.Context, s session.Session) error
}

// Presence stores the session presence records.
type Presence interface {
	// PresenceRecord returns the record of the session or ErrNotFound.
	PresenceRecord(ctx context.Context, sessionID string) (*presence.Record, error)
	// UpdatePresence atomically applies update to the record of the session
	// and stores the result. The record passed to update is a zero record
	// with SessionID set if none is stored yet. If update returns an error
	// nothing is written.
	UpdatePresence(ctx context.Context, sessionID string,
		update func(*presence.Record) error) (*presence.Record, error)
	// TouchHeartbeat sets the heartbeat of the record to at. It returns
	// ErrNotFound if the session has no record.
	TouchHeartbeat(ctx context.Context, sessionID string, at time.Time) error
	// ClearExpired clears the pools of all expiring records whose expiry is
	// not after now and returns how many were cleared.
	ClearExpired(ctx context.Context, now time.Time) (int, error)
}

// Roster stores subjects, their credentials and scope memberships.
type Roster interface {
	// InsertSubject registers a subject.
	InsertSubject(ctx context.Context, subjectID, name string) error
	// SubjectExists reports whether subjectID is a registered subject.
	SubjectExists(ctx context.Context, subjectID string) (bool, error)
	// Enroll adds the subject to the roster of scope.
	Enroll(ctx context.Context, scopeID, subjectID string) error
	// Enrolled reports whether the subject is on the roster of scope.
	Enrolled(ctx context.Context, scopeID, subjectID string) (bool, error)
	// BindCredential associates a physical credential with a subject.
	BindCredential(ctx context.Context, credentialID, subjectID string) error
	// CredentialOwner returns the subject owning the credential or
	// ErrNotFound.
	CredentialOwner(ctx context.Context, credentialID string) (string, error)
}

// Ledger stores attendance records.
type Ledger interface {
	// Attendance returns the record of the pair or ErrNotFound.
	Attendance(ctx context.Context, sessionID, subjectID string) (*attendance.Record, error)
	// InsertEntry inserts rec unless a record for the pair exists. It
	// reports whether rec was inserted.
	InsertEntry(ctx context.Context, rec attendance.Record) (bool, error)
	// SealExit stamps the exit time of an open record and marks it
	// complete. It reports whether an open record was sealed.
	SealExit(ctx context.Context, sessionID, subjectID string, at time.Time) (bool, error)
}

// DB is the full directory.
type DB interface {
	Sessions
	Presence
	Roster
	Ledger
	io.Closer
}
