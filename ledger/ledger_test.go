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
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jackerost/attendance/ledger"
	"github.com/jackerost/attendance/pkg/attendance"
	"github.com/jackerost/attendance/pkg/metrics/v2"
	"github.com/jackerost/attendance/pkg/presence"
	"github.com/jackerost/attendance/pkg/private/prom"
	"github.com/jackerost/attendance/pkg/session"
	"github.com/jackerost/attendance/private/storage/directory/sqlite"
)

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type counters struct {
	mu sync.Mutex
	m  map[string]*metrics.TestCounter
}

func (c *counters) get(mode, outcome, result string) metrics.Counter {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := mode + "/" + outcome + "/" + result
	if c.m == nil {
		c.m = map[string]*metrics.TestCounter{}
	}
	if _, ok := c.m[k]; !ok {
		c.m[k] = metrics.NewTestCounter()
	}
	return c.m[k]
}

func setup(t *testing.T) (*ledger.Ledger, *presence.ManualClock, *counters) {
	t.Helper()
	ctx := context.Background()
	b, err := sqlite.New(filepath.Join(t.TempDir(), "dir.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })
	require.NoError(t, b.InsertSession(ctx, session.Session{
		ID: "s1", OwnerID: "lecturer", ScopeID: "group-a",
		StartsAt: t0, EndsAt: t0.Add(2 * time.Hour),
	}))
	require.NoError(t, b.InsertSession(ctx, session.Session{
		ID: "closed", OwnerID: "lecturer", ScopeID: "group-a",
		StartsAt: t0, EndsAt: t0.Add(2 * time.Hour), Closed: true,
	}))
	for _, s := range []string{"alice", "bob"} {
		require.NoError(t, b.InsertSubject(ctx, s, s))
	}
	require.NoError(t, b.Enroll(ctx, "group-a", "alice"))
	require.NoError(t, b.BindCredential(ctx, "card-alice", "alice"))
	require.NoError(t, b.BindCredential(ctx, "card-bob", "bob"))

	clock := presence.NewManualClock(t0.Add(10 * time.Minute))
	c := &counters{}
	return &ledger.Ledger{
		DB:      b,
		Clock:   clock,
		Metrics: ledger.Metrics{Marks: c.get},
	}, clock, c
}

func entry(subject string) ledger.Request {
	return ledger.Request{SessionID: "s1", SubjectID: subject, ScanType: presence.ModeEntry}
}

func exit(subject string) ledger.Request {
	return ledger.Request{SessionID: "s1", SubjectID: subject, ScanType: presence.ModeExit}
}

func TestEntryThenExit(t *testing.T) {
	ctx := context.Background()
	l, clock, c := setup(t)
	entryAt := clock.Now()

	res, err := l.MarkAttendance(ctx, entry("alice"))
	require.NoError(t, err)
	assert.Equal(t, ledger.OutcomeCreated, res.Outcome)
	assert.Equal(t, attendance.StatusEntryOpen, res.Record.Status)
	assert.Equal(t, "group-a", res.Record.ScopeID)

	clock.Advance(time.Hour)
	res, err = l.MarkAttendance(ctx, exit("alice"))
	require.NoError(t, err)
	assert.Equal(t, ledger.OutcomeSealed, res.Outcome)
	assert.Equal(t, attendance.StatusComplete, res.Record.Status)
	assert.Equal(t, entryAt, res.Record.EntryAt)
	require.NotNil(t, res.Record.ExitAt)
	assert.Equal(t, entryAt.Add(time.Hour), *res.Record.ExitAt)

	_, err = l.MarkAttendance(ctx, exit("alice"))
	assert.ErrorIs(t, err, ledger.ErrAlreadyComplete)

	res, err = l.MarkAttendance(ctx, entry("alice"))
	require.NoError(t, err)
	assert.Equal(t, ledger.OutcomeAlreadyComplete, res.Outcome)

	assert.Equal(t, float64(1), metrics.CounterValue(c.get("exit", "none", prom.ErrRejected)))
	assert.Equal(t, float64(1), metrics.CounterValue(c.get("entry", "created", prom.Success)))
}

func TestEntryIdempotent(t *testing.T) {
	ctx := context.Background()
	l, clock, _ := setup(t)

	first, err := l.MarkAttendance(ctx, entry("alice"))
	require.NoError(t, err)
	clock.Advance(time.Minute)
	for i := 0; i < 2; i++ {
		res, err := l.MarkAttendance(ctx, entry("alice"))
		require.NoError(t, err)
		assert.Equal(t, ledger.OutcomeAlreadyOpen, res.Outcome)
		assert.Equal(t, first.Record.EntryAt, res.Record.EntryAt)
	}
}

func TestConcurrentEntries(t *testing.T) {
	ctx := context.Background()
	l, _, _ := setup(t)

	const n = 8
	var wg sync.WaitGroup
	results := make([]ledger.Result, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = l.MarkAttendance(ctx, entry("alice"))
		}(i)
	}
	wg.Wait()
	created := 0
	for i := range results {
		require.NoError(t, errs[i])
		if results[i].Outcome == ledger.OutcomeCreated {
			created++
			continue
		}
		assert.Equal(t, ledger.OutcomeAlreadyOpen, results[i].Outcome)
	}
	assert.Equal(t, 1, created)
}

func TestRejections(t *testing.T) {
	testCases := map[string]struct {
		req     ledger.Request
		prepare func(t *testing.T, l *ledger.Ledger, clock *presence.ManualClock)
		err     error
	}{
		"before session start": {
			req: entry("alice"),
			prepare: func(t *testing.T, _ *ledger.Ledger, clock *presence.ManualClock) {
				clock.Set(t0.Add(-time.Second))
			},
			err: ledger.ErrSessionInactive,
		},
		"at session end": {
			req: entry("alice"),
			prepare: func(t *testing.T, _ *ledger.Ledger, clock *presence.ManualClock) {
				clock.Set(t0.Add(2 * time.Hour))
			},
			err: ledger.ErrSessionInactive,
		},
		"closed session": {
			req: ledger.Request{SessionID: "closed", SubjectID: "alice",
				ScanType: presence.ModeEntry},
			err: ledger.ErrSessionInactive,
		},
		"not enrolled": {
			req: entry("bob"),
			err: ledger.ErrNotEnrolled,
		},
		"exit without entry": {
			req: exit("alice"),
			err: ledger.ErrNoEntryRecord,
		},
		"unknown scan type": {
			req: ledger.Request{SessionID: "s1", SubjectID: "alice", ScanType: "lunch"},
			err: ledger.ErrInvalidRequest,
		},
		"missing subject": {
			req: ledger.Request{SessionID: "s1", ScanType: presence.ModeEntry},
			err: ledger.ErrInvalidRequest,
		},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			l, clock, _ := setup(t)
			if tc.prepare != nil {
				tc.prepare(t, l, clock)
			}
			_, err := l.MarkAttendance(context.Background(), tc.req)
			assert.ErrorIs(t, err, tc.err)
		})
	}
}

func TestException(t *testing.T) {
	ctx := context.Background()
	l, _, _ := setup(t)

	req := entry("bob")
	req.IsException = true
	req.ExceptionReason = "visiting"
	res, err := l.MarkAttendance(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, ledger.OutcomeCreated, res.Outcome)
	assert.Equal(t, "visiting", res.Record.ExceptionReason)

	// The exit of an exception is not checked against the roster either.
	req.ScanType = presence.ModeExit
	res, err = l.MarkAttendance(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, ledger.OutcomeSealed, res.Outcome)
	assert.Equal(t, "visiting", res.Record.ExceptionReason)
}

func TestMarkSelf(t *testing.T) {
	ctx := context.Background()
	l, _, _ := setup(t)

	res, err := l.MarkSelf(ctx, "alice", "card-alice", "s1", presence.ModeEntry)
	require.NoError(t, err)
	assert.Equal(t, ledger.OutcomeCreated, res.Outcome)

	_, err = l.MarkSelf(ctx, "alice", "card-alice", "s1", presence.ModeEntry)
	assert.ErrorIs(t, err, ledger.ErrAlreadyMarked)

	_, err = l.MarkSelf(ctx, "alice", "card-bob", "s1", presence.ModeExit)
	assert.ErrorIs(t, err, ledger.ErrCredentialMismatch)

	res, err = l.MarkSelf(ctx, "alice", "card-alice", "s1", presence.ModeExit)
	require.NoError(t, err)
	assert.Equal(t, ledger.OutcomeSealed, res.Outcome)

	_, err = l.MarkSelf(ctx, "alice", "card-alice", "s1", presence.ModeExit)
	assert.ErrorIs(t, err, ledger.ErrAlreadyComplete)
	var checkErr *ledger.CheckError
	require.ErrorAs(t, err, &checkErr)
	assert.Equal(t, "no_duplicate", checkErr.Check)

	_, err = l.MarkSelf(ctx, "bob", "card-bob", "s1", presence.ModeEntry)
	assert.ErrorIs(t, err, ledger.ErrNotEnrolled)
}
