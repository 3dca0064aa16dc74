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

// Package attendance contains the ledger record written for every
// (session, subject) pair.
package attendance

import (
	"time"
)

// Status is the state of an attendance record.
type Status string

const (
	// StatusEntryOpen means entry was recorded and exit is pending.
	StatusEntryOpen Status = "entry-open"
	// StatusComplete means both entry and exit were recorded. The record is
	// terminal.
	StatusComplete Status = "complete"
)

// Record is the attendance of one subject in one session. At most one
// record exists per (SessionID, SubjectID).
type Record struct {
	SessionID string    `json:"session_id"`
	SubjectID string    `json:"subject_id"`
	ScopeID   string    `json:"scope_id"`
	EntryAt   time.Time `json:"entry_at"`
	// ExitAt is nil until the exit transition sealed the record.
	ExitAt *time.Time `json:"exit_at,omitempty"`
	Status Status     `json:"status"`
	// ExceptionReason is set only for subjects admitted outside the roster.
	ExceptionReason string `json:"exception_reason,omitempty"`
}

// Terminal reports whether the record was sealed.
func (r *Record) Terminal() bool {
	return r.Status == StatusComplete
}
