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

// Package sqlite implements the directory on top of SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackerost/attendance/pkg/attendance"
	"github.com/jackerost/attendance/pkg/presence"
	"github.com/jackerost/attendance/pkg/session"
	"github.com/jackerost/attendance/private/storage/db"
	"github.com/jackerost/attendance/private/storage/directory"
)

var _ directory.DB = (*Backend)(nil)

// Backend is the SQLite directory backend.
type Backend struct {
	db *db.Sqlite
}

// New returns a new SQLite backend opening a database at the given path. If
// no database exists a new database is created. If the schema version of the
// stored database is different from the one in schema.go, an error is returned.
func New(path string, cfg *db.SqliteConfig) (*Backend, error) {
	d, err := db.NewSqlite(path, cfg)
	if err != nil {
		return nil, err
	}
	if err := d.Setup(Schema, SchemaVersion); err != nil {
		d.Close()
		return nil, err
	}
	return &Backend{db: d}, nil
}

// Close closes the database.
func (b *Backend) Close() error {
	return b.db.Close()
}

func (b *Backend) Session(ctx context.Context, id string) (*session.Session, error) {
	query := `SELECT owner_id, scope_id, starts_at, ends_at, closed FROM sessions WHERE id = ?`
	s := session.Session{ID: id}
	var startsAt, endsAt int64
	err := b.db.ReadOnly.QueryRowContext(ctx, query, id).Scan(
		&s.OwnerID, &s.ScopeID, &startsAt, &endsAt, &s.Closed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, directory.ErrNotFound
	}
	if err != nil {
		return nil, db.NewReadError("selecting session", err, "session", id)
	}
	s.StartsAt, s.EndsAt = fromNanos(startsAt), fromNanos(endsAt)
	return &s, nil
}

func (b *Backend) InsertSession(ctx context.Context, s session.Session) error {
	query := `INSERT OR REPLACE INTO sessions (id, owner_id, scope_id, starts_at, ends_at, closed)
		VALUES (?, ?, ?, ?, ?, ?)`
	_, err := b.db.Full.ExecContext(ctx, query, s.ID, s.OwnerID, s.ScopeID,
		toNanos(s.StartsAt), toNanos(s.EndsAt), s.Closed)
	if err != nil {
		return db.NewWriteError("inserting session", err, "session", s.ID)
	}
	return nil
}

const presenceColumns = `rotation_origin, slot_interval, grace, pre_roll_tolerance, pool,
	handover, pool_start_slot, pool_version, major, heartbeat_at, mode, phase, expires_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPresence(row rowScanner, sessionID string) (*presence.Record, error) {
	rec := presence.Record{SessionID: sessionID}
	var (
		origin, heartbeat, expires   int64
		slotInterval, grace, preRoll int64
		rawPool, mode, phase         string
		handover                     sql.NullInt64
	)
	err := row.Scan(&origin, &slotInterval, &grace, &preRoll, &rawPool, &handover,
		&rec.PoolStartSlot, &rec.PoolVersion, &rec.Major, &heartbeat, &mode, &phase, &expires)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(rawPool), &rec.Pool); err != nil {
		return nil, db.NewDataError("parsing pool", err, "session", sessionID)
	}
	if err := rec.Phase.UnmarshalText([]byte(phase)); err != nil {
		return nil, db.NewDataError("parsing phase", err, "session", sessionID)
	}
	if handover.Valid {
		h := uint16(handover.Int64)
		rec.Handover = &h
	}
	rec.RotationOrigin = fromNanos(origin)
	rec.HeartbeatAt = fromNanos(heartbeat)
	rec.ExpiresAt = fromNanos(expires)
	rec.SlotInterval = time.Duration(slotInterval)
	rec.Grace = time.Duration(grace)
	rec.PreRollTolerance = time.Duration(preRoll)
	rec.Mode = presence.Mode(mode)
	return &rec, nil
}

func (b *Backend) PresenceRecord(ctx context.Context, sessionID string) (*presence.Record, error) {
	query := `SELECT ` + presenceColumns + ` FROM presence WHERE session_id = ?`
	rec, err := scanPresence(b.db.ReadOnly.QueryRowContext(ctx, query, sessionID), sessionID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, directory.ErrNotFound
	}
	if err != nil {
		return nil, db.NewReadError("selecting presence", err, "session", sessionID)
	}
	return rec, nil
}

func (b *Backend) UpdatePresence(
	ctx context.Context,
	sessionID string,
	update func(*presence.Record) error,
) (*presence.Record, error) {

	tx, err := b.db.Full.BeginTx(ctx, nil)
	if err != nil {
		return nil, db.NewTxError("begin", err)
	}
	defer tx.Rollback()

	query := `SELECT ` + presenceColumns + ` FROM presence WHERE session_id = ?`
	rec, err := scanPresence(tx.QueryRowContext(ctx, query, sessionID), sessionID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		rec = &presence.Record{SessionID: sessionID}
	case err != nil:
		return nil, db.NewReadError("selecting presence", err, "session", sessionID)
	}
	if err := update(rec); err != nil {
		return nil, err
	}
	rawPool, err := json.Marshal(rec.Pool)
	if err != nil {
		return nil, db.NewInputDataError("encoding pool", err, "session", sessionID)
	}
	phase, err := rec.Phase.MarshalText()
	if err != nil {
		return nil, db.NewInputDataError("encoding phase", err, "session", sessionID)
	}
	var handover sql.NullInt64
	if rec.Handover != nil {
		handover = sql.NullInt64{Int64: int64(*rec.Handover), Valid: true}
	}
	insert := `INSERT OR REPLACE INTO presence (session_id, ` + presenceColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = tx.ExecContext(ctx, insert, sessionID,
		toNanos(rec.RotationOrigin), int64(rec.SlotInterval), int64(rec.Grace),
		int64(rec.PreRollTolerance), string(rawPool), handover, rec.PoolStartSlot, rec.PoolVersion,
		rec.Major, toNanos(rec.HeartbeatAt), string(rec.Mode), string(phase),
		toNanos(rec.ExpiresAt))
	if err != nil {
		return nil, db.NewWriteError("storing presence", err, "session", sessionID)
	}
	if err := tx.Commit(); err != nil {
		return nil, db.NewTxError("commit", err, "session", sessionID)
	}
	return rec, nil
}

func (b *Backend) TouchHeartbeat(ctx context.Context, sessionID string, at time.Time) error {
	query := `UPDATE presence SET heartbeat_at = ? WHERE session_id = ?`
	res, err := b.db.Full.ExecContext(ctx, query, toNanos(at), sessionID)
	if err != nil {
		return db.NewWriteError("touching heartbeat", err, "session", sessionID)
	}
	if n, err := res.RowsAffected(); err != nil {
		return db.NewWriteError("touching heartbeat", err, "session", sessionID)
	} else if n == 0 {
		return directory.ErrNotFound
	}
	return nil
}

func (b *Backend) ClearExpired(ctx context.Context, now time.Time) (int, error) {
	query := `UPDATE presence SET pool = '[]', handover = NULL, phase = 'absent',
		expires_at = 0 WHERE phase = 'expiring' AND expires_at <= ?`
	res, err := b.db.Full.ExecContext(ctx, query, toNanos(now))
	if err != nil {
		return 0, db.NewWriteError("clearing expired presence", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, db.NewWriteError("clearing expired presence", err)
	}
	return int(n), nil
}

func (b *Backend) InsertSubject(ctx context.Context, subjectID, name string) error {
	query := `INSERT OR REPLACE INTO subjects (id, name) VALUES (?, ?)`
	if _, err := b.db.Full.ExecContext(ctx, query, subjectID, name); err != nil {
		return db.NewWriteError("inserting subject", err, "subject", subjectID)
	}
	return nil
}

func (b *Backend) SubjectExists(ctx context.Context, subjectID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM subjects WHERE id = ?)`
	var exists bool
	if err := b.db.ReadOnly.QueryRowContext(ctx, query, subjectID).Scan(&exists); err != nil {
		return false, db.NewReadError("selecting subject", err, "subject", subjectID)
	}
	return exists, nil
}

func (b *Backend) Enroll(ctx context.Context, scopeID, subjectID string) error {
	query := `INSERT OR IGNORE INTO roster (scope_id, subject_id) VALUES (?, ?)`
	if _, err := b.db.Full.ExecContext(ctx, query, scopeID, subjectID); err != nil {
		return db.NewWriteError("enrolling subject", err,
			"scope", scopeID, "subject", subjectID)
	}
	return nil
}

func (b *Backend) Enrolled(ctx context.Context, scopeID, subjectID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM roster WHERE scope_id = ? AND subject_id = ?)`
	var exists bool
	err := b.db.ReadOnly.QueryRowContext(ctx, query, scopeID, subjectID).Scan(&exists)
	if err != nil {
		return false, db.NewReadError("selecting roster", err,
			"scope", scopeID, "subject", subjectID)
	}
	return exists, nil
}

func (b *Backend) BindCredential(ctx context.Context, credentialID, subjectID string) error {
	query := `INSERT OR REPLACE INTO credentials (credential_id, subject_id) VALUES (?, ?)`
	if _, err := b.db.Full.ExecContext(ctx, query, credentialID, subjectID); err != nil {
		return db.NewWriteError("binding credential", err, "subject", subjectID)
	}
	return nil
}

func (b *Backend) CredentialOwner(ctx context.Context, credentialID string) (string, error) {
	query := `SELECT subject_id FROM credentials WHERE credential_id = ?`
	var subjectID string
	err := b.db.ReadOnly.QueryRowContext(ctx, query, credentialID).Scan(&subjectID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", directory.ErrNotFound
	}
	if err != nil {
		return "", db.NewReadError("selecting credential", err)
	}
	return subjectID, nil
}

func (b *Backend) Attendance(
	ctx context.Context,
	sessionID, subjectID string,
) (*attendance.Record, error) {

	query := `SELECT scope_id, entry_at, exit_at, status, exception_reason
		FROM attendance WHERE session_id = ? AND subject_id = ?`
	rec := attendance.Record{SessionID: sessionID, SubjectID: subjectID}
	var (
		entryAt int64
		exitAt  sql.NullInt64
		status  string
		reason  sql.NullString
	)
	err := b.db.ReadOnly.QueryRowContext(ctx, query, sessionID, subjectID).Scan(
		&rec.ScopeID, &entryAt, &exitAt, &status, &reason)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, directory.ErrNotFound
	}
	if err != nil {
		return nil, db.NewReadError("selecting attendance", err,
			"session", sessionID, "subject", subjectID)
	}
	rec.EntryAt = fromNanos(entryAt)
	if exitAt.Valid {
		t := fromNanos(exitAt.Int64)
		rec.ExitAt = &t
	}
	rec.Status = attendance.Status(status)
	rec.ExceptionReason = reason.String
	return &rec, nil
}

func (b *Backend) InsertEntry(ctx context.Context, rec attendance.Record) (bool, error) {
	query := `INSERT INTO attendance
		(session_id, subject_id, scope_id, entry_at, exit_at, status, exception_reason)
		VALUES (?, ?, ?, ?, NULL, ?, ?)
		ON CONFLICT (session_id, subject_id) DO NOTHING`
	var reason sql.NullString
	if rec.ExceptionReason != "" {
		reason = sql.NullString{String: rec.ExceptionReason, Valid: true}
	}
	res, err := b.db.Full.ExecContext(ctx, query, rec.SessionID, rec.SubjectID, rec.ScopeID,
		toNanos(rec.EntryAt), string(rec.Status), reason)
	if err != nil {
		return false, db.NewWriteError("inserting entry", err,
			"session", rec.SessionID, "subject", rec.SubjectID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, db.NewWriteError("inserting entry", err,
			"session", rec.SessionID, "subject", rec.SubjectID)
	}
	return n == 1, nil
}

func (b *Backend) SealExit(
	ctx context.Context,
	sessionID, subjectID string,
	at time.Time,
) (bool, error) {

	query := `UPDATE attendance SET exit_at = ?, status = ?
		WHERE session_id = ? AND subject_id = ? AND status = ? AND exit_at IS NULL`
	res, err := b.db.Full.ExecContext(ctx, query, toNanos(at),
		string(attendance.StatusComplete), sessionID, subjectID,
		string(attendance.StatusEntryOpen))
	if err != nil {
		return false, db.NewWriteError("sealing exit", err,
			"session", sessionID, "subject", subjectID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, db.NewWriteError("sealing exit", err,
			"session", sessionID, "subject", subjectID)
	}
	return n == 1, nil
}

func toNanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromNanos(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}
