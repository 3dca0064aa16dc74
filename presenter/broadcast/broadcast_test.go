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

package broadcast_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/jackerost/attendance/coordinator/pool"
	"github.com/jackerost/attendance/pkg/metrics/v2"
	"github.com/jackerost/attendance/pkg/presence"
	"github.com/jackerost/attendance/pkg/private/util"
	"github.com/jackerost/attendance/pkg/private/xtest"
	"github.com/jackerost/attendance/pkg/radio"
	"github.com/jackerost/attendance/pkg/radio/mock_radio"
	"github.com/jackerost/attendance/pkg/radio/simradio"
	"github.com/jackerost/attendance/pkg/session"
	"github.com/jackerost/attendance/presenter/broadcast"
	"github.com/jackerost/attendance/presenter/broadcast/mock_broadcast"
	"github.com/jackerost/attendance/private/storage/directory/sqlite"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func fastParams() presence.Params {
	p := presence.Params{
		SlotInterval:       dur(40 * time.Millisecond),
		Grace:              dur(10 * time.Millisecond),
		PreRollTolerance:   dur(5 * time.Millisecond),
		PoolSize:           4,
		RefreshBufferSlots: 1,
		HeartbeatFreshness: dur(time.Second),
		StopGrace:          dur(100 * time.Millisecond),
	}
	p.InitDefaults()
	return p
}

func dur(d time.Duration) util.DurWrap {
	return util.DurWrap{Duration: d}
}

func activeSession(now time.Time) *session.Session {
	return &session.Session{
		ID:       "s1",
		OwnerID:  "lecturer",
		ScopeID:  "group-a",
		StartsAt: now.Add(-time.Hour),
		EndsAt:   now.Add(time.Hour),
	}
}

func TestStartFailures(t *testing.T) {
	ctx := context.Background()
	errRadio := errors.New("radio off")
	testCases := map[string]struct {
		prepare   func(r *mock_broadcast.MockRotator, s *mock_broadcast.MockSessions,
			a *mock_radio.MockAdvertiser)
		assertErr assert.ErrorAssertionFunc
	}{
		"session not yet started": {
			prepare: func(r *mock_broadcast.MockRotator, s *mock_broadcast.MockSessions,
				a *mock_radio.MockAdvertiser) {

				sess := activeSession(time.Now())
				sess.StartsAt = time.Now().Add(time.Minute)
				s.EXPECT().Session(gomock.Any(), "s1").Return(sess, nil)
			},
			assertErr: func(t assert.TestingT, err error, _ ...interface{}) bool {
				return assert.ErrorIs(t, err, broadcast.ErrSessionInactive)
			},
		},
		"session closed": {
			prepare: func(r *mock_broadcast.MockRotator, s *mock_broadcast.MockSessions,
				a *mock_radio.MockAdvertiser) {

				sess := activeSession(time.Now())
				sess.Closed = true
				s.EXPECT().Session(gomock.Any(), "s1").Return(sess, nil)
			},
			assertErr: func(t assert.TestingT, err error, _ ...interface{}) bool {
				return assert.ErrorIs(t, err, broadcast.ErrSessionInactive)
			},
		},
		"not the owner": {
			prepare: func(r *mock_broadcast.MockRotator, s *mock_broadcast.MockSessions,
				a *mock_radio.MockAdvertiser) {

				s.EXPECT().Session(gomock.Any(), "s1").Return(activeSession(time.Now()), nil)
				r.EXPECT().StartRotation(gomock.Any(), "s1", presence.ModeEntry).
					Return(nil, pool.ErrUnauthorized)
			},
			assertErr: func(t assert.TestingT, err error, _ ...interface{}) bool {
				return assert.ErrorIs(t, err, pool.ErrUnauthorized)
			},
		},
		"radio unavailable": {
			prepare: func(r *mock_broadcast.MockRotator, s *mock_broadcast.MockSessions,
				a *mock_radio.MockAdvertiser) {

				s.EXPECT().Session(gomock.Any(), "s1").Return(activeSession(time.Now()), nil)
				r.EXPECT().StartRotation(gomock.Any(), "s1", presence.ModeEntry).
					Return(&presence.Record{
						SessionID:      "s1",
						RotationOrigin: time.Now(),
						SlotInterval:   time.Second,
						Pool:           []uint16{7, 8},
						Major:          3,
					}, nil)
				a.EXPECT().SetIdentity(gomock.Any())
				a.EXPECT().Start(gomock.Any()).Return(
					errors.Join(radio.ErrRadioUnavailable, errRadio))
				r.EXPECT().Clear(gomock.Any(), "s1")
			},
			assertErr: func(t assert.TestingT, err error, _ ...interface{}) bool {
				return assert.ErrorIs(t, err, radio.ErrRadioUnavailable)
			},
		},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			rotator := mock_broadcast.NewMockRotator(ctrl)
			sessions := mock_broadcast.NewMockSessions(ctrl)
			adv := mock_radio.NewMockAdvertiser(ctrl)
			tc.prepare(rotator, sessions, adv)

			e := &broadcast.Engine{
				Advertiser: adv,
				Rotator:    rotator,
				Sessions:   sessions,
				Params:     presence.DefaultParams(),
			}
			tc.assertErr(t, e.Start(ctx, "s1", presence.ModeEntry))
			state, sid := e.State()
			assert.Equal(t, broadcast.StateIdle, state)
			assert.Empty(t, sid)
		})
	}
}

type fixture struct {
	engine  *broadcast.Engine
	manager *pool.Manager
	adv     *simradio.Advertiser
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	b, err := sqlite.New(filepath.Join(t.TempDir(), "dir.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })
	require.NoError(t, b.InsertSession(context.Background(), *activeSession(time.Now())))

	params := fastParams()
	m := &pool.Manager{DB: b, Params: params}
	adv := simradio.NewAir(0).NewAdvertiser()
	return fixture{
		engine: &broadcast.Engine{
			Advertiser: adv,
			Rotator:    pool.Caller{Manager: m, ID: "lecturer"},
			Sessions:   m,
			Params:     params,
			Metrics: broadcast.Metrics{
				Active:    metrics.NewTestGauge(),
				Refreshes: metrics.NewTestCounter(),
				Ticks:     metrics.NewTestCounter(),
			},
		},
		manager: m,
		adv:     adv,
	}
}

func TestRotation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	defer f.engine.Dispose(ctx)

	require.NoError(t, f.engine.Start(ctx, "s1", presence.ModeEntry))
	state, sid := f.engine.State()
	assert.Equal(t, broadcast.StateActive, state)
	assert.Equal(t, "s1", sid)
	assert.Equal(t, float64(1), metrics.GaugeValue(f.engine.Metrics.Active))
	assert.ErrorIs(t, f.engine.Start(ctx, "s1", presence.ModeEntry),
		broadcast.ErrAlreadyActive)

	id, ok := f.adv.Advertised()
	require.True(t, ok)
	assert.Equal(t, radio.Namespace, id.Namespace)
	assert.Equal(t, session.MajorFor("lecturer"), id.Major)

	// A pool of four slots with a buffer of one is refreshed every third
	// slot, the advertised identifier always validates against the record.
	assert.Eventually(t, func() bool {
		return metrics.CounterValue(f.engine.Metrics.Refreshes) >= 2
	}, 2*time.Second, 10*time.Millisecond)
	rec, err := f.manager.Record(ctx, "s1")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, rec.PoolVersion, uint64(3))
	assert.True(t, rec.Live(time.Now(), time.Second))
	assert.Eventually(t, func() bool {
		rec, err := f.manager.Record(ctx, "s1")
		if err != nil {
			return false
		}
		id, ok := f.adv.Advertised()
		return ok && rec.Match(id.Minor, time.Now()).Accepted()
	}, time.Second, 5*time.Millisecond)
}

func TestStopKeepsPoolForGrace(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	require.NoError(t, f.engine.Start(ctx, "s1", presence.ModeExit))
	require.NoError(t, f.engine.Stop(ctx))
	require.NoError(t, f.engine.Stop(ctx), "stop is idempotent")

	_, ok := f.adv.Advertised()
	assert.False(t, ok)
	state, _ := f.engine.State()
	assert.Equal(t, broadcast.StateIdle, state)
	assert.Equal(t, float64(0), metrics.GaugeValue(f.engine.Metrics.Active))

	rec, err := f.manager.Record(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, presence.PhaseExpiring, rec.Phase)
	assert.NotEmpty(t, rec.Pool)
	assert.True(t, rec.Advertising(time.Now()))

	assert.Eventually(t, func() bool {
		rec, err := f.manager.Record(ctx, "s1")
		return err == nil && rec.Phase == presence.PhaseAbsent && len(rec.Pool) == 0
	}, time.Second, 10*time.Millisecond)
	require.NoError(t, f.engine.Dispose(ctx))
}

func TestRestartCancelsPendingClear(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	defer f.engine.Dispose(ctx)

	require.NoError(t, f.engine.Start(ctx, "s1", presence.ModeEntry))
	require.NoError(t, f.engine.Stop(ctx))
	require.NoError(t, f.engine.Start(ctx, "s1", presence.ModeExit))

	time.Sleep(2 * f.engine.Params.StopGrace.Duration)
	rec, err := f.manager.Record(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, presence.PhaseActive, rec.Phase)
	assert.Equal(t, presence.ModeExit, rec.Mode)
	assert.NotEmpty(t, rec.Pool)
}

func TestDispose(t *testing.T) {
	ctx := context.Background()
	testCases := map[string]struct {
		stopFirst bool
	}{
		"while active":     {},
		"during the grace": {stopFirst: true},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			require.NoError(t, f.engine.Start(ctx, "s1", presence.ModeEntry))
			if tc.stopFirst {
				require.NoError(t, f.engine.Stop(ctx))
			}
			require.NoError(t, f.engine.Dispose(ctx))

			_, ok := f.adv.Advertised()
			assert.False(t, ok)
			rec, err := f.manager.Record(ctx, "s1")
			require.NoError(t, err)
			assert.Equal(t, presence.PhaseAbsent, rec.Phase)
			assert.Empty(t, rec.Pool)
			require.NoError(t, f.engine.Dispose(ctx), "dispose is idempotent")
		})
	}
}

// slowRetire holds Retire until release is closed.
type slowRetire struct {
	broadcast.Rotator
	entered chan struct{}
	release chan struct{}
}

func (r *slowRetire) Retire(ctx context.Context, sessionID string, until time.Time) error {
	close(r.entered)
	<-r.release
	return r.Rotator.Retire(ctx, sessionID, until)
}

func TestStartDuringStop(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	r := &slowRetire{
		Rotator: f.engine.Rotator,
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	f.engine.Rotator = r
	defer f.engine.Dispose(ctx)

	require.NoError(t, f.engine.Start(ctx, "s1", presence.ModeEntry))
	stopped := make(chan error, 1)
	go func() { stopped <- f.engine.Stop(ctx) }()
	xtest.AssertReadReturnsBefore(t, r.entered, time.Second)

	started := make(chan error, 1)
	go func() { started <- f.engine.Start(ctx, "s1", presence.ModeExit) }()
	xtest.AssertReadDoesNotReturnBefore(t, started, 50*time.Millisecond)
	close(r.release)
	require.NoError(t, xtest.AssertReadReturnsBefore(t, stopped, time.Second))
	require.NoError(t, xtest.AssertReadReturnsBefore(t, started, time.Second))

	// The stop grace of the earlier broadcast must not end the new one.
	time.Sleep(2 * f.engine.Params.StopGrace.Duration)
	state, sid := f.engine.State()
	assert.Equal(t, broadcast.StateActive, state)
	assert.Equal(t, "s1", sid)
	rec, err := f.manager.Record(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, presence.PhaseActive, rec.Phase)
	assert.Equal(t, presence.ModeExit, rec.Mode)
	assert.NotEmpty(t, rec.Pool)
}
