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

package sqlite_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jackerost/attendance/pkg/attendance"
	"github.com/jackerost/attendance/pkg/presence"
	"github.com/jackerost/attendance/pkg/private/serrors"
	"github.com/jackerost/attendance/pkg/session"
	"github.com/jackerost/attendance/private/storage/directory"
	"github.com/jackerost/attendance/private/storage/directory/sqlite"
)

var now = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func newBackend(t *testing.T) *sqlite.Backend {
	t.Helper()
	b, err := sqlite.New(filepath.Join(t.TempDir(), "directory.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })
	return b
}

func TestSessions(t *testing.T) {
	ctx := context.Background()
	b := newBackend(t)

	_, err := b.Session(ctx, "missing")
	assert.ErrorIs(t, err, directory.ErrNotFound)

	s := session.Session{
		ID: "s1", OwnerID: "owner", ScopeID: "group-a",
		StartsAt: now, EndsAt: now.Add(time.Hour),
	}
	require.NoError(t, b.InsertSession(ctx, s))
	got, err := b.Session(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, s, *got)
}

func TestPresence(t *testing.T) {
	ctx := context.Background()
	b := newBackend(t)

	_, err := b.PresenceRecord(ctx, "s1")
	assert.ErrorIs(t, err, directory.ErrNotFound)
	assert.ErrorIs(t, b.TouchHeartbeat(ctx, "s1", now), directory.ErrNotFound)

	stored, err := b.UpdatePresence(ctx, "s1", func(r *presence.Record) error {
		assert.False(t, r.Rotating())
		r.RotationOrigin = now
		r.SlotInterval = 8 * time.Second
		r.Grace = 3 * time.Second
		r.PreRollTolerance = 300 * time.Millisecond
		r.Pool = []uint16{1, 2, 3}
		r.PoolStartSlot = 4
		r.PoolVersion = 1
		r.Major = 77
		r.HeartbeatAt = now
		r.Mode = presence.ModeExit
		r.Phase = presence.PhaseActive
		return nil
	})
	require.NoError(t, err)

	got, err := b.PresenceRecord(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, stored, got)

	later := now.Add(10 * time.Second)
	require.NoError(t, b.TouchHeartbeat(ctx, "s1", later))
	got, err = b.PresenceRecord(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, later, got.HeartbeatAt)
	assert.Equal(t, uint64(1), got.PoolVersion)

	t.Run("failed update writes nothing", func(t *testing.T) {
		errBoom := serrors.New("boom")
		_, err := b.UpdatePresence(ctx, "s1", func(r *presence.Record) error {
			r.PoolVersion = 99
			return errBoom
		})
		assert.ErrorIs(t, err, errBoom)
		got, err := b.PresenceRecord(ctx, "s1")
		require.NoError(t, err)
		assert.Equal(t, uint64(1), got.PoolVersion)
	})
}

func TestClearExpired(t *testing.T) {
	ctx := context.Background()
	b := newBackend(t)
	set := func(id string, phase presence.Phase, expires time.Time) {
		_, err := b.UpdatePresence(ctx, id, func(r *presence.Record) error {
			r.Pool = []uint16{1, 2}
			r.Mode = presence.ModeEntry
			r.Phase = phase
			r.ExpiresAt = expires
			return nil
		})
		require.NoError(t, err)
	}
	set("expired", presence.PhaseExpiring, now.Add(-time.Second))
	set("pending", presence.PhaseExpiring, now.Add(time.Second))
	set("active", presence.PhaseActive, time.Time{})

	n, err := b.ClearExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	rec, err := b.PresenceRecord(ctx, "expired")
	require.NoError(t, err)
	assert.Equal(t, presence.PhaseAbsent, rec.Phase)
	assert.Empty(t, rec.Pool)

	rec, err = b.PresenceRecord(ctx, "pending")
	require.NoError(t, err)
	assert.Equal(t, presence.PhaseExpiring, rec.Phase)
}

func TestRoster(t *testing.T) {
	ctx := context.Background()
	b := newBackend(t)

	require.NoError(t, b.InsertSubject(ctx, "alice", "Alice"))
	ok, err := b.SubjectExists(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = b.SubjectExists(ctx, "bob")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, b.Enroll(ctx, "group-a", "alice"))
	require.NoError(t, b.Enroll(ctx, "group-a", "alice"))
	ok, err = b.Enrolled(ctx, "group-a", "alice")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = b.Enrolled(ctx, "group-b", "alice")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, b.BindCredential(ctx, "card-1", "alice"))
	owner, err := b.CredentialOwner(ctx, "card-1")
	require.NoError(t, err)
	assert.Equal(t, "alice", owner)
	_, err = b.CredentialOwner(ctx, "card-2")
	assert.ErrorIs(t, err, directory.ErrNotFound)
}

func TestLedger(t *testing.T) {
	ctx := context.Background()
	b := newBackend(t)
	entry := attendance.Record{
		SessionID: "s1", SubjectID: "alice", ScopeID: "group-a",
		EntryAt: now, Status: attendance.StatusEntryOpen,
	}

	sealed, err := b.SealExit(ctx, "s1", "alice", now)
	require.NoError(t, err)
	assert.False(t, sealed)

	inserted, err := b.InsertEntry(ctx, entry)
	require.NoError(t, err)
	assert.True(t, inserted)
	inserted, err = b.InsertEntry(ctx, entry)
	require.NoError(t, err)
	assert.False(t, inserted)

	got, err := b.Attendance(ctx, "s1", "alice")
	require.NoError(t, err)
	assert.Equal(t, entry, *got)

	exit := now.Add(time.Hour)
	sealed, err = b.SealExit(ctx, "s1", "alice", exit)
	require.NoError(t, err)
	assert.True(t, sealed)
	sealed, err = b.SealExit(ctx, "s1", "alice", exit.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, sealed)

	got, err = b.Attendance(ctx, "s1", "alice")
	require.NoError(t, err)
	assert.Equal(t, attendance.StatusComplete, got.Status)
	require.NotNil(t, got.ExitAt)
	assert.Equal(t, exit, *got.ExitAt)
}

func TestConcurrentEntries(t *testing.T) {
	ctx := context.Background()
	b := newBackend(t)
	entry := attendance.Record{
		SessionID: "s1", SubjectID: "alice", ScopeID: "group-a",
		EntryAt: now, Status: attendance.StatusEntryOpen,
		ExceptionReason: "visiting",
	}
	var wg sync.WaitGroup
	var mu sync.Mutex
	inserted := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := b.InsertEntry(ctx, entry)
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				inserted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, inserted)
	got, err := b.Attendance(ctx, "s1", "alice")
	require.NoError(t, err)
	assert.Equal(t, "visiting", got.ExceptionReason)
}
