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

// Package api exposes the coordinator over HTTP. All routes live under
// /api/v1 and exchange JSON; failures are RFC 7807 problems.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/jackerost/attendance/coordinator/pool"
	"github.com/jackerost/attendance/ledger"
	"github.com/jackerost/attendance/pkg/presence"
	"github.com/jackerost/attendance/pkg/private/serrors"
	"github.com/jackerost/attendance/pkg/session"
)

// BaseURL is the path prefix of all routes.
const BaseURL = "/api/v1"

// CallerHeader is the header HeaderAuthenticator reads the caller from.
const CallerHeader = "X-Caller-ID"

const maxBodySize = 1 << 20

// Pool is the identity pool manager.
type Pool interface {
	StartRotation(ctx context.Context, caller, sessionID string,
		mode presence.Mode) (*presence.Record, error)
	RefreshPool(ctx context.Context, caller, sessionID string) (*presence.Record, error)
	TouchHeartbeat(ctx context.Context, caller, sessionID string) error
	Retire(ctx context.Context, caller, sessionID string, until time.Time) error
	Clear(ctx context.Context, caller, sessionID string) error
	Record(ctx context.Context, sessionID string) (*presence.Record, error)
	Session(ctx context.Context, sessionID string) (*session.Session, error)
	Now() time.Time
}

// Ledger is the attendance ledger.
type Ledger interface {
	MarkAttendance(ctx context.Context, req ledger.Request) (ledger.Result, error)
	MarkSelf(ctx context.Context, callerID, credentialID, sessionID string,
		scanType presence.Mode) (ledger.Result, error)
}

// Authenticator resolves the caller of a request.
type Authenticator interface {
	Authenticate(r *http.Request) (string, error)
}

// HeaderAuthenticator trusts the caller named in a request header. It is
// meant for development and for deployments behind an authenticating proxy.
type HeaderAuthenticator struct {
	// Header defaults to CallerHeader.
	Header string
}

func (a HeaderAuthenticator) Authenticate(r *http.Request) (string, error) {
	header := a.Header
	if header == "" {
		header = CallerHeader
	}
	caller := r.Header.Get(header)
	if caller == "" {
		return "", serrors.JoinNoStack(ErrUnauthenticated, nil, "header", header)
	}
	return caller, nil
}

// Server implements the coordinator API.
type Server struct {
	Pool   Pool
	Ledger Ledger
	// Auth defaults to HeaderAuthenticator.
	Auth Authenticator
}

// RotationRequest is the body of a rotation start.
type RotationRequest struct {
	Mode presence.Mode `json:"mode"`
}

// RetireRequest is the body of a rotation retirement.
type RetireRequest struct {
	Until time.Time `json:"until"`
}

// SelfRequest is the body of a self-service mark.
type SelfRequest struct {
	SessionID    string        `json:"session_id"`
	CredentialID string        `json:"credential_id"`
	ScanType     presence.Mode `json:"scan_type"`
}

// TimeResponse carries the coordinator clock.
type TimeResponse struct {
	Now time.Time `json:"now"`
}

// Handler returns the API mounted under BaseURL. Requests from the allowed
// origins may be cross-origin; an empty list disables CORS.
func Handler(s *Server, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	if len(allowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: allowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
			AllowedHeaders: []string{"Content-Type", CallerHeader},
		}))
	}
	r.Route(BaseURL, func(r chi.Router) {
		r.Get("/time", s.GetTime)
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/", s.GetSession)
			r.Get("/presence", s.GetPresence)
			r.Post("/rotation", s.StartRotation)
			r.Delete("/rotation", s.ClearRotation)
			r.Post("/rotation/refresh", s.RefreshPool)
			r.Post("/rotation/retire", s.RetireRotation)
			r.Post("/heartbeat", s.TouchHeartbeat)
		})
		r.Post("/attendance", s.MarkAttendance)
		r.Post("/attendance/self", s.MarkSelf)
	})
	return r
}

// GetTime returns the coordinator clock.
func (s *Server) GetTime(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, TimeResponse{Now: s.Pool.Now()})
}

// GetSession returns a session.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.Pool.Session(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeProblem(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// GetPresence returns the presence record of a session.
func (s *Server) GetPresence(w http.ResponseWriter, r *http.Request) {
	rec, err := s.Pool.Record(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeProblem(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// StartRotation starts or restarts the rotation of a session.
func (s *Server) StartRotation(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	var req RotationRequest
	if !decode(w, r, &req) {
		return
	}
	rec, err := s.Pool.StartRotation(r.Context(), caller, chi.URLParam(r, "id"), req.Mode)
	if err != nil {
		writeProblem(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// RefreshPool replaces the pool of a rotating session.
func (s *Server) RefreshPool(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	rec, err := s.Pool.RefreshPool(r.Context(), caller, chi.URLParam(r, "id"))
	if err != nil {
		writeProblem(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// TouchHeartbeat stamps the heartbeat of a session.
func (s *Server) TouchHeartbeat(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	if err := s.Pool.TouchHeartbeat(r.Context(), caller, chi.URLParam(r, "id")); err != nil {
		writeProblem(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RetireRotation keeps the pool of a session valid until the given instant.
func (s *Server) RetireRotation(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	var req RetireRequest
	if !decode(w, r, &req) {
		return
	}
	err := s.Pool.Retire(r.Context(), caller, chi.URLParam(r, "id"), req.Until)
	if err != nil {
		writeProblem(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ClearRotation removes the pool of a session.
func (s *Server) ClearRotation(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	if err := s.Pool.Clear(r.Context(), caller, chi.URLParam(r, "id")); err != nil {
		writeProblem(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MarkAttendance marks attendance on behalf of a subject. Only the session
// owner may do so.
func (s *Server) MarkAttendance(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	var req ledger.Request
	if !decode(w, r, &req) {
		return
	}
	sess, err := s.Pool.Session(r.Context(), req.SessionID)
	if err != nil {
		writeProblem(w, r, err)
		return
	}
	if sess.OwnerID != caller {
		writeProblem(w, r, serrors.JoinNoStack(pool.ErrUnauthorized, nil,
			"session", req.SessionID, "caller", caller))
		return
	}
	res, err := s.Ledger.MarkAttendance(r.Context(), req)
	if err != nil {
		writeProblem(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// MarkSelf marks the attendance of the caller presenting a credential.
func (s *Server) MarkSelf(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	var req SelfRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := s.Ledger.MarkSelf(r.Context(), caller, req.CredentialID, req.SessionID,
		req.ScanType)
	if err != nil {
		writeProblem(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) authenticate(w http.ResponseWriter, r *http.Request) (string, bool) {
	var auth Authenticator = HeaderAuthenticator{}
	if s.Auth != nil {
		auth = s.Auth
	}
	caller, err := auth.Authenticate(r)
	if err != nil {
		writeProblem(w, r, err)
		return "", false
	}
	return caller, true
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeProblem(w, r, serrors.JoinNoStack(errBadRequest, err))
		return false
	}
	return true
}
