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

package presence

import (
	"time"
)

// Record is the session presence record published by the coordinator.
type Record struct {
	SessionID string `json:"session_id"`
	// RotationOrigin anchors the slot arithmetic. It is set once on the
	// first rotation of the session and never changes afterwards.
	RotationOrigin   time.Time     `json:"rotation_origin"`
	SlotInterval     time.Duration `json:"slot_interval"`
	Grace            time.Duration `json:"grace"`
	PreRollTolerance time.Duration `json:"pre_roll_tolerance"`
	// Pool is replaced wholesale on every refresh.
	Pool []uint16 `json:"pool"`
	// PoolStartSlot is the slot at which Pool[0] became valid.
	PoolStartSlot int64 `json:"pool_start_slot"`
	// Handover is the identifier the replaced pool assigned to the slot
	// before PoolStartSlot. It is nil until the first refresh.
	Handover *uint16 `json:"handover,omitempty"`
	// PoolVersion increases with every pool replacement.
	PoolVersion uint64    `json:"pool_version"`
	Major       uint16    `json:"major"`
	HeartbeatAt time.Time `json:"heartbeat_at"`
	Mode        Mode      `json:"mode"`
	Phase       Phase     `json:"phase"`
	// ExpiresAt is the end of the stop grace period. It is only meaningful
	// in PhaseExpiring.
	ExpiresAt time.Time `json:"expires_at,omitzero"`
}

// Rotating reports whether a rotation origin was ever established.
func (r *Record) Rotating() bool {
	return !r.RotationOrigin.IsZero()
}

// Slot returns the slot index of t. Instants before the origin have
// negative slots.
func (r *Record) Slot(t time.Time) int64 {
	if r.SlotInterval <= 0 {
		return 0
	}
	d := t.Sub(r.RotationOrigin)
	s := int64(d / r.SlotInterval)
	if d%r.SlotInterval < 0 {
		s--
	}
	return s
}

// SlotStart returns the instant at which slot begins.
func (r *Record) SlotStart(slot int64) time.Time {
	return r.RotationOrigin.Add(time.Duration(slot) * r.SlotInterval)
}

// PoolIndex returns the unclamped pool index of t.
func (r *Record) PoolIndex(t time.Time) int64 {
	return r.Slot(t) - r.PoolStartSlot
}

// Identifier returns the identifier valid at t. Indices outside the pool are
// clamped to its first or last element. The second return value is false if
// the pool is empty.
func (r *Record) Identifier(t time.Time) (uint16, bool) {
	if len(r.Pool) == 0 {
		return 0, false
	}
	return r.Pool[r.clamp(r.PoolIndex(t))], true
}

// NeedsRefresh reports whether the presenter should request a new pool at t
// given a buffer of slots before exhaustion.
func (r *Record) NeedsRefresh(t time.Time, buffer int) bool {
	return r.PoolIndex(t) >= int64(len(r.Pool)-buffer)
}

// HeartbeatAge returns the age of the heartbeat at t.
func (r *Record) HeartbeatAge(t time.Time) time.Duration {
	return t.Sub(r.HeartbeatAt)
}

// Live reports whether the heartbeat is at most freshness old at t.
func (r *Record) Live(t time.Time, freshness time.Duration) bool {
	if r.HeartbeatAt.IsZero() {
		return false
	}
	return r.HeartbeatAge(t) <= freshness
}

// Advertising reports whether the published pool is valid at t.
func (r *Record) Advertising(t time.Time) bool {
	switch r.Phase {
	case PhaseActive:
		return true
	case PhaseExpiring:
		return t.Before(r.ExpiresAt)
	default:
		return false
	}
}

// Verdict is the result of matching an observed identifier.
type Verdict int

const (
	MatchNone Verdict = iota
	MatchCurrent
	MatchPrevious
	MatchPreRoll
)

// Accepted reports whether v accepts the identifier.
func (v Verdict) Accepted() bool {
	return v != MatchNone
}

func (v Verdict) String() string {
	switch v {
	case MatchCurrent:
		return "current"
	case MatchPrevious:
		return "previous"
	case MatchPreRoll:
		return "pre_roll"
	default:
		return "none"
	}
}

// Match validates the observed identifier minor at t.
//
// The current identifier always matches. The previous slot's identifier
// matches while less than Grace has passed since the last rotation. Only if
// neither applies, an identifier of an adjacent slot matches within
// PreRollTolerance of a slot boundary: the next one shortly before a
// boundary and the previous one shortly after it. Right after a refresh the
// previous slot's identifier is the handover identifier.
func (r *Record) Match(minor uint16, t time.Time) Verdict {
	if len(r.Pool) == 0 {
		return MatchNone
	}
	idx := r.PoolIndex(t)
	cur := r.clamp(idx)
	if r.Pool[cur] == minor {
		return MatchCurrent
	}
	slot := r.Slot(t)
	sinceRotation := t.Sub(r.SlotStart(slot))
	if v, ok := r.at(idx - 1); ok && v == minor && sinceRotation <= r.Grace {
		return MatchPrevious
	}
	if r.PreRollTolerance <= 0 {
		return MatchNone
	}
	if v, ok := r.at(idx + 1); ok && v == minor &&
		r.SlotStart(slot+1).Sub(t) <= r.PreRollTolerance {
		return MatchPreRoll
	}
	if v, ok := r.at(idx - 1); ok && v == minor && sinceRotation <= r.PreRollTolerance {
		return MatchPreRoll
	}
	return MatchNone
}

func (r *Record) at(idx int64) (uint16, bool) {
	if idx == -1 && r.Handover != nil {
		return *r.Handover, true
	}
	if idx < 0 || idx >= int64(len(r.Pool)) {
		return 0, false
	}
	return r.Pool[idx], true
}

func (r *Record) clamp(idx int64) int64 {
	if idx < 0 {
		return 0
	}
	if last := int64(len(r.Pool) - 1); idx > last {
		return last
	}
	return idx
}

// Clone returns a deep copy of r.
func (r *Record) Clone() *Record {
	c := *r
	c.Pool = append([]uint16(nil), r.Pool...)
	if r.Handover != nil {
		h := *r.Handover
		c.Handover = &h
	}
	return &c
}
