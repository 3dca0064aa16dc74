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

// Package session describes a scheduled attendance session as seen by the
// proximity core.
package session

import (
	"hash/fnv"
	"time"
)

// Session is a scheduled meeting of a scope (for example one enrollment
// group) owned by a single presenter.
type Session struct {
	ID       string    `json:"id"`
	OwnerID  string    `json:"owner_id"`
	ScopeID  string    `json:"scope_id"`
	StartsAt time.Time `json:"starts_at"`
	EndsAt   time.Time `json:"ends_at"`
	// Closed is set when the session was administratively closed before
	// its declared end.
	Closed bool `json:"closed"`
}

// Active reports whether t lies within [StartsAt, EndsAt) and the session is
// not closed.
func (s *Session) Active(t time.Time) bool {
	return !s.Closed && !t.Before(s.StartsAt) && t.Before(s.EndsAt)
}

// MajorFor derives the broadcaster-stable major value from the owner's
// identity. It is never zero.
func MajorFor(ownerID string) uint16 {
	h := fnv.New32a()
	h.Write([]byte(ownerID))
	sum := h.Sum32()
	major := uint16(sum>>16) ^ uint16(sum)
	if major == 0 {
		return 1
	}
	return major
}
