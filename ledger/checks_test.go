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

package ledger_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jackerost/attendance/ledger"
	"github.com/jackerost/attendance/ledger/mock_ledger"
	"github.com/jackerost/attendance/pkg/attendance"
	"github.com/jackerost/attendance/pkg/presence"
	"github.com/jackerost/attendance/pkg/session"
	"github.com/jackerost/attendance/private/storage/directory"
)

func TestRunChecks(t *testing.T) {
	in := ledger.CheckInput{
		CallerID:     "alice",
		CredentialID: "card-1",
		Session:      &session.Session{ID: "s1", ScopeID: "group-a"},
		ScanType:     presence.ModeEntry,
	}
	errDB := errors.New("disk on fire")
	testCases := map[string]struct {
		prepare   func(db *mock_ledger.MockDB)
		check     string
		sentinel  error
		assertErr assert.ErrorAssertionFunc
	}{
		"all pass": {
			prepare: func(db *mock_ledger.MockDB) {
				db.EXPECT().CredentialOwner(gomock.Any(), "card-1").Return("alice", nil)
				db.EXPECT().SubjectExists(gomock.Any(), "alice").Return(true, nil)
				db.EXPECT().Enrolled(gomock.Any(), "group-a", "alice").Return(true, nil)
				db.EXPECT().Attendance(gomock.Any(), "s1", "alice").
					Return(nil, directory.ErrNotFound)
			},
			assertErr: assert.NoError,
		},
		"unregistered credential": {
			prepare: func(db *mock_ledger.MockDB) {
				db.EXPECT().CredentialOwner(gomock.Any(), "card-1").
					Return("", directory.ErrNotFound)
			},
			check:     "credential_ownership",
			sentinel:  ledger.ErrCredentialMismatch,
			assertErr: assert.Error,
		},
		"foreign credential": {
			prepare: func(db *mock_ledger.MockDB) {
				db.EXPECT().CredentialOwner(gomock.Any(), "card-1").Return("bob", nil)
			},
			check:     "credential_ownership",
			sentinel:  ledger.ErrCredentialMismatch,
			assertErr: assert.Error,
		},
		"unknown subject": {
			prepare: func(db *mock_ledger.MockDB) {
				db.EXPECT().CredentialOwner(gomock.Any(), "card-1").Return("alice", nil)
				db.EXPECT().SubjectExists(gomock.Any(), "alice").Return(false, nil)
			},
			check:     "recognized_subject",
			sentinel:  ledger.ErrUnknownSubject,
			assertErr: assert.Error,
		},
		"not on roster": {
			prepare: func(db *mock_ledger.MockDB) {
				db.EXPECT().CredentialOwner(gomock.Any(), "card-1").Return("alice", nil)
				db.EXPECT().SubjectExists(gomock.Any(), "alice").Return(true, nil)
				db.EXPECT().Enrolled(gomock.Any(), "group-a", "alice").Return(false, nil)
			},
			check:     "roster_membership",
			sentinel:  ledger.ErrNotEnrolled,
			assertErr: assert.Error,
		},
		"duplicate entry": {
			prepare: func(db *mock_ledger.MockDB) {
				db.EXPECT().CredentialOwner(gomock.Any(), "card-1").Return("alice", nil)
				db.EXPECT().SubjectExists(gomock.Any(), "alice").Return(true, nil)
				db.EXPECT().Enrolled(gomock.Any(), "group-a", "alice").Return(true, nil)
				db.EXPECT().Attendance(gomock.Any(), "s1", "alice").Return(
					&attendance.Record{Status: attendance.StatusEntryOpen}, nil)
			},
			check:     "no_duplicate",
			sentinel:  ledger.ErrAlreadyMarked,
			assertErr: assert.Error,
		},
		"directory failure": {
			prepare: func(db *mock_ledger.MockDB) {
				db.EXPECT().CredentialOwner(gomock.Any(), "card-1").Return("", errDB)
			},
			sentinel:  errDB,
			assertErr: assert.Error,
		},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			db := mock_ledger.NewMockDB(ctrl)
			tc.prepare(db)

			err := ledger.RunChecks(context.Background(), db, in, ledger.DefaultChecks()...)
			tc.assertErr(t, err)
			if tc.sentinel != nil {
				assert.ErrorIs(t, err, tc.sentinel)
			}
			var checkErr *ledger.CheckError
			if tc.check == "" {
				assert.False(t, errors.As(err, &checkErr))
				return
			}
			require.ErrorAs(t, err, &checkErr)
			assert.Equal(t, tc.check, checkErr.Check)
			assert.NotEmpty(t, checkErr.Message)
		})
	}
}

func TestNoDuplicateExit(t *testing.T) {
	exitAt := time.Now()
	testCases := map[string]struct {
		rec      *attendance.Record
		err      error
		sentinel error
	}{
		"open entry": {
			rec: &attendance.Record{Status: attendance.StatusEntryOpen},
		},
		"no entry": {
			err: directory.ErrNotFound,
		},
		"sealed": {
			rec:      &attendance.Record{Status: attendance.StatusComplete, ExitAt: &exitAt},
			sentinel: ledger.ErrAlreadyComplete,
		},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			db := mock_ledger.NewMockDB(ctrl)
			db.EXPECT().Attendance(gomock.Any(), "s1", "alice").Return(tc.rec, tc.err)

			err := ledger.RunChecks(context.Background(), db, ledger.CheckInput{
				CallerID: "alice",
				Session:  &session.Session{ID: "s1"},
				ScanType: presence.ModeExit,
			}, ledger.NoDuplicate)
			if tc.sentinel == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.sentinel)
		})
	}
}
