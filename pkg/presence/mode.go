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
	"github.com/jackerost/attendance/pkg/private/serrors"
)

// Mode selects which ledger transition a verified detection attempts.
type Mode string

const (
	ModeEntry Mode = "entry"
	ModeExit  Mode = "exit"
)

// ParseMode parses s into a Mode.
func ParseMode(s string) (Mode, error) {
	m := Mode(s)
	if err := m.Validate(); err != nil {
		return "", err
	}
	return m, nil
}

// Validate returns an error if m is not a known mode.
func (m Mode) Validate() error {
	switch m {
	case ModeEntry, ModeExit:
		return nil
	default:
		return serrors.New("unknown mode", "mode", string(m))
	}
}

// Phase is the explicit broadcasting state of a presence record.
type Phase int

const (
	// PhaseAbsent means no identifier is published for the session.
	PhaseAbsent Phase = iota
	// PhaseActive means a presenter is broadcasting the published pool.
	PhaseActive
	// PhaseExpiring means the presenter stopped and the published pool
	// stays valid until the record's ExpiresAt.
	PhaseExpiring
)

func (p Phase) String() string {
	switch p {
	case PhaseAbsent:
		return "absent"
	case PhaseActive:
		return "active"
	case PhaseExpiring:
		return "expiring"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (p Phase) MarshalText() ([]byte, error) {
	if p < PhaseAbsent || p > PhaseExpiring {
		return nil, serrors.New("invalid phase", "phase", int(p))
	}
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Phase) UnmarshalText(b []byte) error {
	switch string(b) {
	case "absent":
		*p = PhaseAbsent
	case "active":
		*p = PhaseActive
	case "expiring":
		*p = PhaseExpiring
	default:
		return serrors.New("invalid phase", "phase", string(b))
	}
	return nil
}
