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

// Package broadcast implements the presenter side of the protocol. The
// engine advertises the session's current identifier, re-advertises it at
// every slot boundary, refreshes the pool before it runs out and keeps the
// heartbeat fresh.
package broadcast

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jackerost/attendance/pkg/log"
	"github.com/jackerost/attendance/pkg/metrics/v2"
	"github.com/jackerost/attendance/pkg/presence"
	"github.com/jackerost/attendance/pkg/private/serrors"
	"github.com/jackerost/attendance/pkg/radio"
	"github.com/jackerost/attendance/pkg/session"
	"github.com/jackerost/attendance/private/periodic"
)

var (
	// ErrAlreadyActive is returned by Start while the engine broadcasts.
	ErrAlreadyActive = errors.New("broadcast already active")
	// ErrSessionInactive is returned by Start outside the session window.
	ErrSessionInactive = errors.New("session not active")
)

// Rotator is the presenter's view of the identity pool manager. The caller
// identity is bound to the implementation.
type Rotator interface {
	StartRotation(ctx context.Context, sessionID string,
		mode presence.Mode) (*presence.Record, error)
	RefreshPool(ctx context.Context, sessionID string) (*presence.Record, error)
	TouchHeartbeat(ctx context.Context, sessionID string) error
	Retire(ctx context.Context, sessionID string, until time.Time) error
	Clear(ctx context.Context, sessionID string) error
}

// Sessions resolves sessions.
type Sessions interface {
	Session(ctx context.Context, id string) (*session.Session, error)
}

// State is the engine state.
type State int

const (
	StateIdle State = iota
	StateActive
)

func (s State) String() string {
	if s == StateActive {
		return "active"
	}
	return "idle"
}

// DefaultRequestTimeout bounds the directory requests issued outside of a
// caller's context.
const DefaultRequestTimeout = 5 * time.Second

// Engine is the presenter broadcast engine. It is safe for concurrent use.
type Engine struct {
	Advertiser radio.Advertiser
	Rotator    Rotator
	Sessions   Sessions
	// Clock is the presenter clock aligned to the coordinator.
	Clock   presence.Clock
	Params  presence.Params
	Metrics Metrics

	// lifecycle serializes Start, Stop and Dispose, including the directory
	// requests they issue. mu guards the state shared with the rotation
	// task.
	lifecycle     sync.Mutex
	mu            sync.Mutex
	state         State
	sessionID     string
	rec           *presence.Record
	lastHeartbeat time.Time
	runner        *periodic.Runner
	// pending is the session whose pool is still published after Stop.
	pending    string
	clearTimer *time.Timer
	clears     sync.WaitGroup
}

// Start begins broadcasting for the session in mode. The caller must own the
// session and the session must be active.
func (e *Engine) Start(ctx context.Context, sessionID string, mode presence.Mode) error {
	e.lifecycle.Lock()
	defer e.lifecycle.Unlock()
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == StateActive {
		return serrors.JoinNoStack(ErrAlreadyActive, nil, "session", e.sessionID)
	}
	logger := log.FromCtx(ctx).New("session", sessionID)
	e.cancelPendingClear(ctx, sessionID)

	s, err := e.Sessions.Session(ctx, sessionID)
	if err != nil {
		return serrors.Wrap("loading session", err, "session", sessionID)
	}
	now := e.now()
	if !s.Active(now) {
		return serrors.JoinNoStack(ErrSessionInactive, nil,
			"session", sessionID, "starts_at", s.StartsAt, "ends_at", s.EndsAt)
	}
	rec, err := e.Rotator.StartRotation(ctx, sessionID, mode)
	if err != nil {
		return err
	}
	if err := e.advertise(ctx, rec, now); err != nil {
		return err
	}
	if err := e.Advertiser.Start(ctx); err != nil {
		metrics.CounterInc(e.Metrics.AdvertiseErrors)
		if cerr := e.Rotator.Clear(ctx, sessionID); cerr != nil {
			logger.Error("Failed to clear pool after radio failure", "err", cerr)
		}
		return serrors.Wrap("starting advertiser", err, "session", sessionID)
	}

	e.state = StateActive
	e.sessionID = sessionID
	e.rec = rec
	e.lastHeartbeat = now
	firstDelay := rec.SlotStart(rec.Slot(now) + 1).Sub(now)
	e.runner = periodic.StartAligned(
		periodic.Func{
			TaskName: "broadcast_rotation",
			Task:     e.tick,
		},
		e.Metrics.Runner,
		firstDelay,
		rec.SlotInterval,
		rec.SlotInterval,
	)
	metrics.GaugeSet(e.Metrics.Active, 1)
	logger.Info("Broadcast started", "mode", mode, "major", rec.Major,
		"pool_version", rec.PoolVersion, "first_rotation_in", firstDelay)
	return nil
}

// Stop halts advertising and the rotation immediately. The published pool
// stays valid for the stop grace period so that receivers in the middle of a
// validation are not starved, then it is cleared. The heartbeat is not
// touched. Stop on an idle engine is a no-op.
func (e *Engine) Stop(ctx context.Context) error {
	e.lifecycle.Lock()
	defer e.lifecycle.Unlock()
	e.mu.Lock()
	if e.state != StateActive {
		e.mu.Unlock()
		return nil
	}
	runner, sessionID := e.runner, e.sessionID
	e.resetLocked()
	e.mu.Unlock()

	// The rotation task locks mu, Kill waits for it.
	var errs serrors.List
	runner.Kill()
	if err := e.Advertiser.Stop(); err != nil {
		errs = append(errs, serrors.Wrap("stopping advertiser", err))
	}
	grace := e.Params.StopGrace.Duration
	if err := e.Rotator.Retire(ctx, sessionID, e.now().Add(grace)); err != nil {
		errs = append(errs, serrors.Wrap("retiring pool", err))
	}

	e.mu.Lock()
	e.pending = sessionID
	e.clears.Add(1)
	e.clearTimer = time.AfterFunc(grace, func() {
		defer log.HandlePanic()
		defer e.clears.Done()
		e.clearPending(sessionID)
	})
	e.mu.Unlock()
	log.FromCtx(ctx).Info("Broadcast stopped", "session", sessionID, "clear_in", grace)
	return errs.ToError()
}

// Dispose halts advertising and the rotation and clears the published pool
// immediately, including one still in its stop grace period. It waits for
// pending clears to finish.
func (e *Engine) Dispose(ctx context.Context) error {
	e.lifecycle.Lock()
	defer e.lifecycle.Unlock()
	e.mu.Lock()
	runner, sessionID := e.runner, e.sessionID
	if e.state != StateActive {
		sessionID = e.pending
	}
	if e.clearTimer != nil && e.clearTimer.Stop() {
		e.clears.Done()
	}
	e.clearTimer, e.pending = nil, ""
	e.resetLocked()
	e.mu.Unlock()

	var errs serrors.List
	if runner != nil {
		runner.Kill()
		if err := e.Advertiser.Stop(); err != nil {
			errs = append(errs, serrors.Wrap("stopping advertiser", err))
		}
	}
	if sessionID != "" {
		if err := e.Rotator.Clear(ctx, sessionID); err != nil {
			errs = append(errs, serrors.Wrap("clearing pool", err))
		}
		log.FromCtx(ctx).Info("Broadcast disposed", "session", sessionID)
	}
	e.clears.Wait()
	return errs.ToError()
}

// State returns the engine state and the session being broadcast.
func (e *Engine) State() (State, string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state, e.sessionID
}

func (e *Engine) tick(ctx context.Context) {
	e.mu.Lock()
	if e.state != StateActive {
		e.mu.Unlock()
		return
	}
	sessionID, rec, lastHeartbeat := e.sessionID, e.rec, e.lastHeartbeat
	e.mu.Unlock()

	logger := log.FromCtx(ctx).New("session", sessionID)
	metrics.CounterInc(e.Metrics.Ticks)
	now := e.now()
	refreshed := false
	if rec.NeedsRefresh(now, e.Params.RefreshBufferSlots) {
		fresh, err := e.Rotator.RefreshPool(ctx, sessionID)
		if err != nil {
			logger.Error("Failed to refresh pool", "err", err)
			metrics.CounterInc(e.Metrics.RefreshErrors)
		} else {
			rec, refreshed = fresh, true
			lastHeartbeat = now
			metrics.CounterInc(e.Metrics.Refreshes)
		}
	}
	if err := e.advertise(ctx, rec, now); err != nil {
		logger.Error("Failed to advertise", "err", err)
	}
	// The refresh already stamped the heartbeat.
	if !refreshed && e.heartbeatDue(lastHeartbeat, now) {
		if err := e.Rotator.TouchHeartbeat(ctx, sessionID); err != nil {
			logger.Error("Failed to touch heartbeat", "err", err)
			metrics.CounterInc(e.Metrics.HeartbeatErrors)
		} else {
			lastHeartbeat = now
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == StateActive && e.sessionID == sessionID {
		e.rec, e.lastHeartbeat = rec, lastHeartbeat
	}
}

func (e *Engine) heartbeatDue(last, now time.Time) bool {
	// Ticks are one slot apart, allow half a slot of jitter.
	return now.Sub(last) >= e.Params.HeartbeatInterval.Duration-e.Params.SlotInterval.Duration/2
}

func (e *Engine) advertise(ctx context.Context, rec *presence.Record, now time.Time) error {
	minor, ok := rec.Identifier(now)
	if !ok {
		metrics.CounterInc(e.Metrics.AdvertiseErrors)
		return serrors.New("record has no pool", "session", rec.SessionID)
	}
	id := radio.Identity{Namespace: radio.Namespace, Major: rec.Major, Minor: minor}
	if err := e.Advertiser.SetIdentity(id); err != nil {
		metrics.CounterInc(e.Metrics.AdvertiseErrors)
		return serrors.Wrap("setting identity", err, "session", rec.SessionID)
	}
	log.FromCtx(ctx).Debug("Advertising", "identity", id, "slot", rec.Slot(now))
	return nil
}

// cancelPendingClear stops the clear timer of a previous Stop. If the
// pending session differs from next, it is cleared right away.
func (e *Engine) cancelPendingClear(ctx context.Context, next string) {
	if e.clearTimer == nil {
		return
	}
	pending := e.pending
	if e.clearTimer.Stop() {
		e.clears.Done()
		if pending != next {
			if err := e.Rotator.Clear(ctx, pending); err != nil {
				log.FromCtx(ctx).Error("Failed to clear previous pool",
					"session", pending, "err", err)
			}
		}
	}
	e.clearTimer, e.pending = nil, ""
}

func (e *Engine) clearPending(sessionID string) {
	e.mu.Lock()
	if e.pending != sessionID {
		e.mu.Unlock()
		return
	}
	e.pending, e.clearTimer = "", nil
	e.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), DefaultRequestTimeout)
	defer cancel()
	if err := e.Rotator.Clear(ctx, sessionID); err != nil {
		log.Error("Failed to clear pool after stop grace", "session", sessionID, "err", err)
		return
	}
	log.Debug("Pool cleared after stop grace", "session", sessionID)
}

func (e *Engine) resetLocked() {
	if e.state == StateActive {
		metrics.GaugeSet(e.Metrics.Active, 0)
	}
	e.state = StateIdle
	e.sessionID = ""
	e.rec = nil
	e.runner = nil
}

func (e *Engine) now() time.Time {
	if e.Clock == nil {
		return time.Now()
	}
	return e.Clock.Now()
}
