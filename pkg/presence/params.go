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
	"io"
	"time"

	"github.com/jackerost/attendance/pkg/private/serrors"
	"github.com/jackerost/attendance/pkg/private/util"
	"github.com/jackerost/attendance/private/config"
)

const (
	DefaultSlotInterval       = 8 * time.Second
	DefaultGrace              = 3 * time.Second
	DefaultPreRollTolerance   = 300 * time.Millisecond
	DefaultPoolSize           = 12
	DefaultRefreshBufferSlots = 2
	DefaultHeartbeatFreshness = 35 * time.Second
	DefaultStopGrace          = 10 * time.Second
)

var _ config.Config = (*Params)(nil)

// Params are the protocol constants. The coordinator copies the timing
// fields into every record it publishes, so receivers always validate with
// the values the presenter rotates with.
type Params struct {
	// SlotInterval is the duration of one slot.
	SlotInterval util.DurWrap `toml:"slot_interval,omitempty"`
	// Grace is how long after a rotation the previous identifier is still
	// accepted.
	Grace util.DurWrap `toml:"grace,omitempty"`
	// PreRollTolerance is the window around a slot boundary in which the
	// adjacent identifier is accepted.
	PreRollTolerance util.DurWrap `toml:"pre_roll_tolerance,omitempty"`
	// PoolSize is the number of identifiers in a pool.
	PoolSize int `toml:"pool_size,omitempty"`
	// RefreshBufferSlots is how many slots before the end of the pool the
	// presenter requests a new pool.
	RefreshBufferSlots int `toml:"refresh_buffer_slots,omitempty"`
	// HeartbeatFreshness is the maximum heartbeat age a receiver accepts.
	HeartbeatFreshness util.DurWrap `toml:"heartbeat_freshness,omitempty"`
	// HeartbeatInterval is the minimum time between heartbeat writes of the
	// presenter. Heartbeats are written on rotation ticks, so values below
	// SlotInterval behave like SlotInterval.
	HeartbeatInterval util.DurWrap `toml:"heartbeat_interval,omitempty"`
	// StopGrace is how long a stopped presenter's pool stays published.
	StopGrace util.DurWrap `toml:"stop_grace,omitempty"`
}

// DefaultParams returns the reference protocol constants.
func DefaultParams() Params {
	var p Params
	p.InitDefaults()
	return p
}

func (p *Params) InitDefaults() {
	if p.SlotInterval.Duration == 0 {
		p.SlotInterval.Duration = DefaultSlotInterval
	}
	if p.Grace.Duration == 0 {
		p.Grace.Duration = DefaultGrace
	}
	if p.PreRollTolerance.Duration == 0 {
		p.PreRollTolerance.Duration = DefaultPreRollTolerance
	}
	if p.PoolSize == 0 {
		p.PoolSize = DefaultPoolSize
	}
	if p.RefreshBufferSlots == 0 {
		p.RefreshBufferSlots = DefaultRefreshBufferSlots
	}
	if p.HeartbeatFreshness.Duration == 0 {
		p.HeartbeatFreshness.Duration = DefaultHeartbeatFreshness
	}
	if p.HeartbeatInterval.Duration == 0 {
		p.HeartbeatInterval.Duration = p.SlotInterval.Duration
	}
	if p.StopGrace.Duration == 0 {
		p.StopGrace.Duration = DefaultStopGrace
	}
}

func (p *Params) Validate() error {
	switch {
	case p.SlotInterval.Duration <= 0:
		return serrors.New("slot_interval must be positive", "value", p.SlotInterval)
	case p.Grace.Duration < 0 || p.Grace.Duration >= p.SlotInterval.Duration:
		return serrors.New("grace must be within one slot",
			"grace", p.Grace, "slot_interval", p.SlotInterval)
	case p.PreRollTolerance.Duration < 0 ||
		2*p.PreRollTolerance.Duration >= p.SlotInterval.Duration:
		return serrors.New("pre_roll_tolerance must be below half a slot",
			"pre_roll_tolerance", p.PreRollTolerance, "slot_interval", p.SlotInterval)
	case p.PoolSize < 2 || p.PoolSize > maxPoolSize:
		return serrors.New("pool_size out of range", "pool_size", p.PoolSize)
	case p.RefreshBufferSlots < 1 || p.RefreshBufferSlots >= p.PoolSize:
		return serrors.New("refresh_buffer_slots must be in [1, pool_size)",
			"refresh_buffer_slots", p.RefreshBufferSlots, "pool_size", p.PoolSize)
	case p.HeartbeatInterval.Duration <= 0:
		return serrors.New("heartbeat_interval must be positive",
			"value", p.HeartbeatInterval)
	case p.HeartbeatFreshness.Duration <= p.HeartbeatInterval.Duration:
		return serrors.New("heartbeat_freshness must exceed heartbeat_interval",
			"heartbeat_freshness", p.HeartbeatFreshness,
			"heartbeat_interval", p.HeartbeatInterval)
	case p.StopGrace.Duration < 0:
		return serrors.New("stop_grace must not be negative", "value", p.StopGrace)
	}
	return nil
}

func (p *Params) Sample(dst io.Writer, _ config.Path, _ config.CtxMap) {
	config.WriteString(dst, paramsSample)
}

func (p *Params) ConfigName() string {
	return "protocol"
}

const paramsSample = `
# Duration of one identifier slot. (default 8s)
slot_interval = "8s"

# How long after a rotation the previous identifier is accepted. (default 3s)
grace = "3s"

# Window around a slot boundary in which the adjacent identifier is
# accepted. (default 300ms)
pre_roll_tolerance = "300ms"

# Number of identifiers per pool. (default 12)
pool_size = 12

# Slots before pool exhaustion at which the presenter refreshes. (default 2)
refresh_buffer_slots = 2

# Maximum heartbeat age accepted by receivers. (default 35s)
heartbeat_freshness = "35s"

# Minimum time between heartbeat writes. (default slot_interval)
heartbeat_interval = "8s"

# How long a stopped presenter's pool stays published. (default 10s)
stop_grace = "10s"
`
