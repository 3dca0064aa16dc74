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

// Package ledger records attendance. Every (session, subject) pair has at
// most one record, which moves from entry-open to complete exactly once.
package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/jackerost/attendance/pkg/attendance"
	"github.com/jackerost/attendance/pkg/log"
	"github.com/jackerost/attendance/pkg/presence"
	"github.com/jackerost/attendance/pkg/private/serrors"
	"github.com/jackerost/attendance/pkg/session"
	"github.com/jackerost/attendance/private/storage/directory"
)

var (
	// ErrSessionInactive indicates that the session is closed or outside of
	// its declared window.
	ErrSessionInactive = errors.New("session not active")
	// ErrNotEnrolled indicates that the subject is not on the roster.
	ErrNotEnrolled = errors.New("subject not enrolled")
	// ErrNoEntryRecord indicates an exit without an open entry.
	ErrNoEntryRecord = errors.New("no entry record")
	// ErrAlreadyComplete indicates an exit for a sealed record.
	ErrAlreadyComplete = errors.New("attendance already complete")
	// ErrInvalidRequest indicates a malformed request.
	ErrInvalidRequest = errors.New("invalid request")
)

// DB is the part of the directory the ledger uses.
type DB interface {
	Session(ctx context.Context, id string) (*session.Session, error)
	SubjectExists(ctx context.Context, subjectID string) (bool, error)
	Enrolled(ctx context.Context, scopeID, subjectID string) (bool, error)
	CredentialOwner(ctx context.Context, credentialID string) (string, error)
	directory.Ledger
}

// Outcome is the result of a successful mark.
type Outcome int

const (
	// OutcomeCreated means an entry-open record was created.
	OutcomeCreated Outcome = iota
	// OutcomeAlreadyOpen means an entry was already recorded.
	OutcomeAlreadyOpen
	// OutcomeAlreadyComplete means an entry was requested for a sealed
	// record.
	OutcomeAlreadyComplete
	// OutcomeSealed means the exit was recorded.
	OutcomeSealed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCreated:
		return "created"
	case OutcomeAlreadyOpen:
		return "already_open"
	case OutcomeAlreadyComplete:
		return "already_complete"
	case OutcomeSealed:
		return "sealed"
	default:
		return "unknown"
	}
}

// MarshalText encodes the outcome as its name.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalText decodes an outcome name.
func (o *Outcome) UnmarshalText(b []byte) error {
	for _, c := range []Outcome{
		OutcomeCreated, OutcomeAlreadyOpen, OutcomeAlreadyComplete, OutcomeSealed,
	} {
		if c.String() == string(b) {
			*o = c
			return nil
		}
	}
	return serrors.New("unknown outcome", "outcome", string(b))
}

// Request is a mark request.
type Request struct {
	SessionID string `json:"session_id"`
	SubjectID string `json:"subject_id"`
	// ScopeID defaults to the scope of the session.
	ScopeID  string        `json:"scope_id,omitempty"`
	ScanType presence.Mode `json:"scan_type"`
	// IsException admits a subject outside the roster.
	IsException     bool   `json:"is_exception,omitempty"`
	ExceptionReason string `json:"exception_reason,omitempty"`
}

// Result is the outcome of a mark together with the stored record.
type Result struct {
	Outcome Outcome            `json:"outcome"`
	Record  *attendance.Record `json:"record"`
}

// Ledger marks attendance against the directory.
type Ledger struct {
	DB    DB
	Clock presence.Clock
	// Checks is the self-service check chain. Defaults to DefaultChecks.
	Checks  []Check
	Metrics Metrics
}

// MarkAttendance records an entry or an exit. Entries are idempotent: an
// existing record is reported without mutation. Concurrent entries for the
// same pair create a single record.
func (l *Ledger) MarkAttendance(ctx context.Context, req Request) (res Result, err error) {
	defer func() { l.Metrics.observe(req.ScanType, res.Outcome, err) }()
	if err := req.validate(); err != nil {
		return Result{}, err
	}
	s, err := l.DB.Session(ctx, req.SessionID)
	if err != nil {
		return Result{}, serrors.Wrap("loading session", err, "session", req.SessionID)
	}
	now := l.now()
	if !s.Active(now) {
		return Result{}, serrors.JoinNoStack(ErrSessionInactive, nil,
			"session", s.ID, "closed", s.Closed, "starts_at", s.StartsAt, "ends_at", s.EndsAt)
	}
	scopeID := req.ScopeID
	if scopeID == "" {
		scopeID = s.ScopeID
	}
	if !req.IsException {
		enrolled, err := l.DB.Enrolled(ctx, scopeID, req.SubjectID)
		if err != nil {
			return Result{}, err
		}
		if !enrolled {
			return Result{}, serrors.JoinNoStack(ErrNotEnrolled, nil,
				"scope", scopeID, "subject", req.SubjectID)
		}
	}

	logger := log.FromCtx(ctx).New("session", req.SessionID, "subject", req.SubjectID)
	if req.ScanType == presence.ModeEntry {
		res, err = l.markEntry(ctx, req, scopeID, now)
	} else {
		res, err = l.markExit(ctx, req, now)
	}
	if err != nil {
		return Result{}, err
	}
	logger.Debug("Attendance marked", "scan_type", req.ScanType, "outcome", res.Outcome)
	return res, nil
}

func (l *Ledger) markEntry(
	ctx context.Context,
	req Request,
	scopeID string,
	now time.Time,
) (Result, error) {

	existing, err := l.DB.Attendance(ctx, req.SessionID, req.SubjectID)
	switch {
	case err == nil:
		return alreadyMarked(existing), nil
	case !errors.Is(err, directory.ErrNotFound):
		return Result{}, err
	}
	rec := attendance.Record{
		SessionID: req.SessionID,
		SubjectID: req.SubjectID,
		ScopeID:   scopeID,
		EntryAt:   now,
		Status:    attendance.StatusEntryOpen,
	}
	if req.IsException {
		rec.ExceptionReason = req.ExceptionReason
	}
	inserted, err := l.DB.InsertEntry(ctx, rec)
	if err != nil {
		return Result{}, err
	}
	if !inserted {
		// A concurrent entry won the race.
		existing, err := l.DB.Attendance(ctx, req.SessionID, req.SubjectID)
		if err != nil {
			return Result{}, serrors.Wrap("reading concurrent entry", err)
		}
		return alreadyMarked(existing), nil
	}
	return Result{Outcome: OutcomeCreated, Record: &rec}, nil
}

func (l *Ledger) markExit(ctx context.Context, req Request, now time.Time) (Result, error) {
	existing, err := l.DB.Attendance(ctx, req.SessionID, req.SubjectID)
	if errors.Is(err, directory.ErrNotFound) {
		return Result{}, serrors.JoinNoStack(ErrNoEntryRecord, nil,
			"session", req.SessionID, "subject", req.SubjectID)
	}
	if err != nil {
		return Result{}, err
	}
	if existing.Terminal() {
		return Result{}, alreadyComplete(existing)
	}
	sealed, err := l.DB.SealExit(ctx, req.SessionID, req.SubjectID, now)
	if err != nil {
		return Result{}, err
	}
	rec, err := l.DB.Attendance(ctx, req.SessionID, req.SubjectID)
	if err != nil {
		return Result{}, serrors.Wrap("reading sealed record", err)
	}
	if !sealed {
		// A concurrent exit sealed the record first.
		return Result{}, alreadyComplete(rec)
	}
	return Result{Outcome: OutcomeSealed, Record: rec}, nil
}

func alreadyMarked(rec *attendance.Record) Result {
	if rec.Terminal() {
		return Result{Outcome: OutcomeAlreadyComplete, Record: rec}
	}
	return Result{Outcome: OutcomeAlreadyOpen, Record: rec}
}

func alreadyComplete(rec *attendance.Record) error {
	return serrors.JoinNoStack(ErrAlreadyComplete, nil,
		"session", rec.SessionID, "subject", rec.SubjectID, "exit_at", rec.ExitAt)
}

func (r Request) validate() error {
	if r.SessionID == "" || r.SubjectID == "" {
		return serrors.JoinNoStack(ErrInvalidRequest, nil,
			"session", r.SessionID, "subject", r.SubjectID)
	}
	if err := r.ScanType.Validate(); err != nil {
		return serrors.JoinNoStack(ErrInvalidRequest, err)
	}
	return nil
}

func (l *Ledger) now() time.Time {
	if l.Clock == nil {
		return time.Now()
	}
	return l.Clock.Now()
}
