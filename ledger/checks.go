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

package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackerost/attendance/pkg/presence"
	"github.com/jackerost/attendance/pkg/private/serrors"
	"github.com/jackerost/attendance/pkg/session"
	"github.com/jackerost/attendance/private/storage/directory"
)

var (
	// ErrCredentialMismatch indicates that the presented credential does not
	// belong to the caller.
	ErrCredentialMismatch = errors.New("credential does not belong to caller")
	// ErrUnknownSubject indicates that the caller is not a registered
	// subject.
	ErrUnknownSubject = errors.New("unknown subject")
	// ErrAlreadyMarked indicates that the requested transition is already
	// recorded.
	ErrAlreadyMarked = errors.New("attendance already marked")
)

// CheckInput is the state a check validates.
type CheckInput struct {
	CallerID     string
	CredentialID string
	Session      *session.Session
	ScanType     presence.Mode
}

// Check validates one precondition of a self-service mark. Run returns a
// *CheckError if the precondition does not hold and a plain error if the
// directory could not be read. Checks never write.
type Check struct {
	Name string
	Run  func(ctx context.Context, db DB, in CheckInput) error
}

// CheckError is the failure of a single check.
type CheckError struct {
	Check   string
	Message string
	// Err is the sentinel the failure maps to.
	Err error
}

func (e *CheckError) Error() string {
	return fmt.Sprintf("check %s failed: %s", e.Check, e.Message)
}

func (e *CheckError) Unwrap() error {
	return e.Err
}

var (
	// CredentialOwnership verifies that the credential is bound to the
	// caller.
	CredentialOwnership = Check{Name: "credential_ownership", Run: credentialOwnership}
	// RecognizedSubject verifies that the caller is a registered subject.
	RecognizedSubject = Check{Name: "recognized_subject", Run: recognizedSubject}
	// RosterMembership verifies that the caller is on the session's roster.
	RosterMembership = Check{Name: "roster_membership", Run: rosterMembership}
	// NoDuplicate verifies that the transition was not recorded yet.
	NoDuplicate = Check{Name: "no_duplicate", Run: noDuplicate}
)

// DefaultChecks returns the self-service check chain in order.
func DefaultChecks() []Check {
	return []Check{CredentialOwnership, RecognizedSubject, RosterMembership, NoDuplicate}
}

// RunChecks runs the checks in order and stops at the first failure.
func RunChecks(ctx context.Context, db DB, in CheckInput, checks ...Check) error {
	for _, c := range checks {
		err := c.Run(ctx, db, in)
		if err == nil {
			continue
		}
		var checkErr *CheckError
		if errors.As(err, &checkErr) {
			if checkErr.Check == "" {
				checkErr.Check = c.Name
			}
			return checkErr
		}
		return serrors.Wrap("running check", err, "check", c.Name)
	}
	return nil
}

func credentialOwnership(ctx context.Context, db DB, in CheckInput) error {
	owner, err := db.CredentialOwner(ctx, in.CredentialID)
	if errors.Is(err, directory.ErrNotFound) {
		return &CheckError{Message: "credential is not registered", Err: ErrCredentialMismatch}
	}
	if err != nil {
		return err
	}
	if owner != in.CallerID {
		return &CheckError{
			Message: "credential belongs to another subject",
			Err:     ErrCredentialMismatch,
		}
	}
	return nil
}

func recognizedSubject(ctx context.Context, db DB, in CheckInput) error {
	ok, err := db.SubjectExists(ctx, in.CallerID)
	if err != nil {
		return err
	}
	if !ok {
		return &CheckError{Message: "caller is not a registered subject", Err: ErrUnknownSubject}
	}
	return nil
}

func rosterMembership(ctx context.Context, db DB, in CheckInput) error {
	ok, err := db.Enrolled(ctx, in.Session.ScopeID, in.CallerID)
	if err != nil {
		return err
	}
	if !ok {
		return &CheckError{Message: "caller is not enrolled in the scope", Err: ErrNotEnrolled}
	}
	return nil
}

func noDuplicate(ctx context.Context, db DB, in CheckInput) error {
	rec, err := db.Attendance(ctx, in.Session.ID, in.CallerID)
	if errors.Is(err, directory.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	switch {
	case in.ScanType == presence.ModeEntry:
		return &CheckError{Message: "entry already recorded", Err: ErrAlreadyMarked}
	case rec.Terminal():
		return &CheckError{Message: "exit already recorded", Err: ErrAlreadyComplete}
	}
	return nil
}

// MarkSelf is the self-service mark of a caller presenting a credential. It
// runs the check chain and marks attendance only if every check passes.
func (l *Ledger) MarkSelf(
	ctx context.Context,
	callerID, credentialID, sessionID string,
	scanType presence.Mode,
) (Result, error) {

	if callerID == "" || credentialID == "" {
		return Result{}, serrors.JoinNoStack(ErrInvalidRequest, nil,
			"caller", callerID, "session", sessionID)
	}
	s, err := l.DB.Session(ctx, sessionID)
	if err != nil {
		return Result{}, serrors.Wrap("loading session", err, "session", sessionID)
	}
	in := CheckInput{
		CallerID:     callerID,
		CredentialID: credentialID,
		Session:      s,
		ScanType:     scanType,
	}
	checks := l.Checks
	if checks == nil {
		checks = DefaultChecks()
	}
	if err := RunChecks(ctx, l.DB, in, checks...); err != nil {
		l.Metrics.observe(scanType, 0, err)
		return Result{}, err
	}
	return l.MarkAttendance(ctx, Request{
		SessionID: sessionID,
		SubjectID: callerID,
		ScopeID:   s.ScopeID,
		ScanType:  scanType,
	})
}
