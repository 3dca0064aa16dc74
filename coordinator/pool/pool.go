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

// Package pool implements the identity pool manager. It issues rotating
// identifier pools for sessions and publishes them, with the rotation
// bookkeeping, in the directory.
package pool

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/jackerost/attendance/pkg/log"
	"github.com/jackerost/attendance/pkg/presence"
	"github.com/jackerost/attendance/pkg/private/serrors"
	"github.com/jackerost/attendance/pkg/session"
	"github.com/jackerost/attendance/private/storage/directory"
)

var (
	// ErrUnauthorized indicates that the caller does not own the session.
	ErrUnauthorized = errors.New("caller does not own the session")
	// ErrNotRotating indicates that the session has no rotation origin yet.
	ErrNotRotating = errors.New("rotation not started")
)

// DB is the part of the directory the manager uses.
type DB interface {
	directory.Sessions
	directory.Presence
}

// Manager issues and rotates identifier pools. All operations are
// authorized against the session owner.
type Manager struct {
	DB DB
	// Rand is the source of identifiers. Defaults to crypto/rand.
	Rand io.Reader
	// Clock is the coordinator clock. Defaults to the system clock.
	Clock   presence.Clock
	Params  presence.Params
	Metrics Metrics
}

// StartRotation publishes a fresh pool anchored at the current slot and
// marks the session as actively broadcasting in mode. The rotation origin is
// established on the first call and kept afterwards.
func (m *Manager) StartRotation(
	ctx context.Context,
	caller, sessionID string,
	mode presence.Mode,
) (rec *presence.Record, err error) {

	defer func() { m.Metrics.observe(opStartRotation, err) }()
	if err := mode.Validate(); err != nil {
		return nil, err
	}
	s, err := m.authorize(ctx, caller, sessionID)
	if err != nil {
		return nil, err
	}
	ids, err := presence.GeneratePool(m.Rand, m.Params.PoolSize)
	if err != nil {
		return nil, err
	}
	now := m.now()
	rec, err = m.DB.UpdatePresence(ctx, sessionID, func(r *presence.Record) error {
		if !r.Rotating() {
			r.RotationOrigin = now
		}
		r.SlotInterval = m.Params.SlotInterval.Duration
		r.Grace = m.Params.Grace.Duration
		r.PreRollTolerance = m.Params.PreRollTolerance.Duration
		r.Pool = ids
		r.Handover = nil
		r.PoolStartSlot = r.Slot(now)
		r.PoolVersion++
		r.Major = session.MajorFor(s.OwnerID)
		r.HeartbeatAt = now
		r.Mode = mode
		r.Phase = presence.PhaseActive
		r.ExpiresAt = time.Time{}
		return nil
	})
	if err != nil {
		return nil, serrors.Wrap("starting rotation", err, "session", sessionID)
	}
	log.FromCtx(ctx).Info("Rotation started", "session", sessionID, "mode", mode,
		"pool_version", rec.PoolVersion, "pool_start_slot", rec.PoolStartSlot)
	return rec, nil
}

// RefreshPool replaces the pool with a fresh one anchored at the current
// slot. The presenter calls it before it would run off the end of the pool.
func (m *Manager) RefreshPool(
	ctx context.Context,
	caller, sessionID string,
) (rec *presence.Record, err error) {

	defer func() { m.Metrics.observe(opRefreshPool, err) }()
	if _, err := m.authorize(ctx, caller, sessionID); err != nil {
		return nil, err
	}
	ids, err := presence.GeneratePool(m.Rand, m.Params.PoolSize)
	if err != nil {
		return nil, err
	}
	now := m.now()
	rec, err = m.DB.UpdatePresence(ctx, sessionID, func(r *presence.Record) error {
		if !r.Rotating() {
			return serrors.JoinNoStack(ErrNotRotating, nil, "session", sessionID)
		}
		slot := r.Slot(now)
		r.Handover = nil
		if prev, ok := r.Identifier(r.SlotStart(slot - 1)); ok {
			r.Handover = &prev
		}
		r.Pool = ids
		r.PoolStartSlot = slot
		r.PoolVersion++
		r.HeartbeatAt = now
		return nil
	})
	if err != nil {
		return nil, serrors.Wrap("refreshing pool", err, "session", sessionID)
	}
	log.FromCtx(ctx).Debug("Pool refreshed", "session", sessionID,
		"pool_version", rec.PoolVersion, "pool_start_slot", rec.PoolStartSlot)
	return rec, nil
}

// TouchHeartbeat stamps the heartbeat of the session's record.
func (m *Manager) TouchHeartbeat(ctx context.Context, caller, sessionID string) (err error) {
	defer func() { m.Metrics.observe(opTouchHeartbeat, err) }()
	if _, err := m.authorize(ctx, caller, sessionID); err != nil {
		return err
	}
	err = m.DB.TouchHeartbeat(ctx, sessionID, m.now())
	if errors.Is(err, directory.ErrNotFound) {
		return serrors.JoinNoStack(ErrNotRotating, nil, "session", sessionID)
	}
	return err
}

// Retire keeps the published pool valid until the given instant, after
// which it is cleared. The heartbeat is left untouched so that it ages out.
func (m *Manager) Retire(
	ctx context.Context,
	caller, sessionID string,
	until time.Time,
) (err error) {

	defer func() { m.Metrics.observe(opRetire, err) }()
	if _, err := m.authorize(ctx, caller, sessionID); err != nil {
		return err
	}
	_, err = m.DB.UpdatePresence(ctx, sessionID, func(r *presence.Record) error {
		if !r.Rotating() {
			return serrors.JoinNoStack(ErrNotRotating, nil, "session", sessionID)
		}
		r.Phase = presence.PhaseExpiring
		r.ExpiresAt = until
		return nil
	})
	if err != nil {
		return serrors.Wrap("retiring pool", err, "session", sessionID)
	}
	log.FromCtx(ctx).Debug("Pool retired", "session", sessionID, "until", until)
	return nil
}

// Clear removes the published pool immediately. The heartbeat is left
// untouched. Clearing a session without a record is a no-op.
func (m *Manager) Clear(ctx context.Context, caller, sessionID string) (err error) {
	defer func() { m.Metrics.observe(opClear, err) }()
	if _, err := m.authorize(ctx, caller, sessionID); err != nil {
		return err
	}
	if _, err := m.DB.PresenceRecord(ctx, sessionID); err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return nil
		}
		return err
	}
	_, err = m.DB.UpdatePresence(ctx, sessionID, func(r *presence.Record) error {
		r.Pool, r.Handover = nil, nil
		r.Phase = presence.PhaseAbsent
		r.ExpiresAt = time.Time{}
		return nil
	})
	if err != nil {
		return serrors.Wrap("clearing pool", err, "session", sessionID)
	}
	log.FromCtx(ctx).Debug("Pool cleared", "session", sessionID)
	return nil
}

// Record returns the published record of the session. Reading is not
// restricted to the owner.
func (m *Manager) Record(ctx context.Context, sessionID string) (*presence.Record, error) {
	return m.DB.PresenceRecord(ctx, sessionID)
}

// Session returns the session. Reading is not restricted to the owner.
func (m *Manager) Session(ctx context.Context, sessionID string) (*session.Session, error) {
	return m.DB.Session(ctx, sessionID)
}

// Now returns the coordinator time. Presenters and receivers estimate their
// clock offset against it.
func (m *Manager) Now() time.Time {
	return m.now()
}

func (m *Manager) authorize(
	ctx context.Context,
	caller, sessionID string,
) (*session.Session, error) {

	s, err := m.DB.Session(ctx, sessionID)
	if err != nil {
		return nil, serrors.Wrap("loading session", err, "session", sessionID)
	}
	if caller == "" || s.OwnerID != caller {
		return nil, serrors.JoinNoStack(ErrUnauthorized, nil,
			"session", sessionID, "caller", caller)
	}
	return s, nil
}

func (m *Manager) now() time.Time {
	if m.Clock == nil {
		return time.Now()
	}
	return m.Clock.Now()
}
