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

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jackerost/attendance/coordinator/pool"
	"github.com/jackerost/attendance/ledger"
	"github.com/jackerost/attendance/pkg/log"
	"github.com/jackerost/attendance/private/storage/directory"
)

// ErrUnauthenticated indicates a request without a resolvable caller.
var ErrUnauthenticated = errors.New("unauthenticated")

// errBadRequest indicates a malformed request.
var errBadRequest = errors.New("bad request")

// Problem is an RFC 7807 problem response.
type Problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// ProblemKind associates a sentinel error with its problem type and status.
type ProblemKind struct {
	Err    error
	Type   string
	Status int
}

// ProblemKinds lists the errors the API reports with a dedicated problem
// type. The first matching kind wins.
var ProblemKinds = []ProblemKind{
	{Err: ErrUnauthenticated, Type: "unauthenticated", Status: http.StatusUnauthorized},
	{Err: pool.ErrUnauthorized, Type: "unauthorized", Status: http.StatusForbidden},
	{Err: ledger.ErrCredentialMismatch, Type: "credential_mismatch",
		Status: http.StatusForbidden},
	{Err: ledger.ErrUnknownSubject, Type: "unknown_subject", Status: http.StatusForbidden},
	{Err: ledger.ErrAlreadyComplete, Type: "already_complete", Status: http.StatusConflict},
	{Err: ledger.ErrAlreadyMarked, Type: "already_marked", Status: http.StatusConflict},
	{Err: ledger.ErrSessionInactive, Type: "session_inactive",
		Status: http.StatusPreconditionFailed},
	{Err: ledger.ErrNoEntryRecord, Type: "no_entry_record",
		Status: http.StatusPreconditionFailed},
	{Err: pool.ErrNotRotating, Type: "not_rotating", Status: http.StatusPreconditionFailed},
	{Err: ledger.ErrNotEnrolled, Type: "not_enrolled", Status: http.StatusUnprocessableEntity},
	{Err: ledger.ErrInvalidRequest, Type: "invalid_request", Status: http.StatusBadRequest},
	{Err: errBadRequest, Type: "bad_request", Status: http.StatusBadRequest},
	{Err: directory.ErrNotFound, Type: "not_found", Status: http.StatusNotFound},
}

// KindByType returns the problem kind with the given type.
func KindByType(typ string) (ProblemKind, bool) {
	for _, k := range ProblemKinds {
		if k.Type == typ {
			return k, true
		}
	}
	return ProblemKind{}, false
}

func writeProblem(w http.ResponseWriter, r *http.Request, err error) {
	p := Problem{
		Type:   "internal",
		Title:  http.StatusText(http.StatusInternalServerError),
		Status: http.StatusInternalServerError,
	}
	for _, k := range ProblemKinds {
		if errors.Is(err, k.Err) {
			p = Problem{
				Type:   k.Type,
				Title:  k.Err.Error(),
				Status: k.Status,
				Detail: err.Error(),
			}
			break
		}
	}
	if p.Status == http.StatusInternalServerError {
		log.FromCtx(r.Context()).Error("Request failed", "method", r.Method,
			"path", r.URL.Path, "err", err)
	}
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	// The status is sent, a failing encode has no one to report to.
	_ = enc.Encode(p)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	_ = enc.Encode(v)
}
