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

package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jackerost/attendance/coordinator/api"
	"github.com/jackerost/attendance/coordinator/api/mock_api"
	"github.com/jackerost/attendance/coordinator/pool"
	"github.com/jackerost/attendance/ledger"
	"github.com/jackerost/attendance/pkg/presence"
	"github.com/jackerost/attendance/pkg/session"
	"github.com/jackerost/attendance/private/storage/directory/sqlite"
)

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

// newServer builds a server over a fresh directory. Session s1 is owned by
// lecturer, alice is enrolled in its scope and bob is not.
func newServer(t *testing.T) (*api.Server, *presence.ManualClock) {
	t.Helper()
	ctx := context.Background()
	b, err := sqlite.New(filepath.Join(t.TempDir(), "dir.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })
	require.NoError(t, b.InsertSession(ctx, session.Session{
		ID: "s1", OwnerID: "lecturer", ScopeID: "group-a",
		StartsAt: t0, EndsAt: t0.Add(2 * time.Hour),
	}))
	for _, s := range []string{"alice", "bob"} {
		require.NoError(t, b.InsertSubject(ctx, s, s))
	}
	require.NoError(t, b.Enroll(ctx, "group-a", "alice"))
	require.NoError(t, b.BindCredential(ctx, "card-alice", "alice"))
	require.NoError(t, b.BindCredential(ctx, "card-bob", "bob"))

	clock := presence.NewManualClock(t0.Add(10 * time.Minute))
	return &api.Server{
		Pool:   &pool.Manager{DB: b, Clock: clock, Params: presence.DefaultParams()},
		Ledger: &ledger.Ledger{DB: b, Clock: clock},
	}, clock
}

func do(t *testing.T, h http.Handler, method, path, caller, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if caller != "" {
		req.Header.Set(api.CallerHeader, caller)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func problemType(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	assert.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))
	var p api.Problem
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &p))
	assert.Equal(t, rr.Code, p.Status)
	return p.Type
}

func TestAPI(t *testing.T) {
	testCases := map[string]struct {
		Method  string
		Path    string
		Caller  string
		Body    string
		Prepare func(t *testing.T, h http.Handler)
		Status  int
		Problem string
	}{
		"time": {
			Method: http.MethodGet,
			Path:   "/api/v1/time",
			Status: http.StatusOK,
		},
		"session": {
			Method: http.MethodGet,
			Path:   "/api/v1/sessions/s1",
			Status: http.StatusOK,
		},
		"unknown session": {
			Method:  http.MethodGet,
			Path:    "/api/v1/sessions/nope",
			Status:  http.StatusNotFound,
			Problem: "not_found",
		},
		"presence before rotation": {
			Method:  http.MethodGet,
			Path:    "/api/v1/sessions/s1/presence",
			Status:  http.StatusNotFound,
			Problem: "not_found",
		},
		"rotation without caller": {
			Method:  http.MethodPost,
			Path:    "/api/v1/sessions/s1/rotation",
			Body:    `{"mode":"entry"}`,
			Status:  http.StatusUnauthorized,
			Problem: "unauthenticated",
		},
		"rotation by other caller": {
			Method:  http.MethodPost,
			Path:    "/api/v1/sessions/s1/rotation",
			Caller:  "alice",
			Body:    `{"mode":"entry"}`,
			Status:  http.StatusForbidden,
			Problem: "unauthorized",
		},
		"rotation malformed body": {
			Method:  http.MethodPost,
			Path:    "/api/v1/sessions/s1/rotation",
			Caller:  "lecturer",
			Body:    `{"mode":`,
			Status:  http.StatusBadRequest,
			Problem: "bad_request",
		},
		"rotation": {
			Method: http.MethodPost,
			Path:   "/api/v1/sessions/s1/rotation",
			Caller: "lecturer",
			Body:   `{"mode":"entry"}`,
			Status: http.StatusOK,
		},
		"heartbeat before rotation": {
			Method:  http.MethodPost,
			Path:    "/api/v1/sessions/s1/heartbeat",
			Caller:  "lecturer",
			Status:  http.StatusPreconditionFailed,
			Problem: "not_rotating",
		},
		"heartbeat": {
			Method:  http.MethodPost,
			Path:    "/api/v1/sessions/s1/heartbeat",
			Caller:  "lecturer",
			Prepare: startRotation,
			Status:  http.StatusNoContent,
		},
		"retire": {
			Method:  http.MethodPost,
			Path:    "/api/v1/sessions/s1/rotation/retire",
			Caller:  "lecturer",
			Body:    `{"until":"2026-03-02T09:11:00Z"}`,
			Prepare: startRotation,
			Status:  http.StatusNoContent,
		},
		"clear without record": {
			Method: http.MethodDelete,
			Path:   "/api/v1/sessions/s1/rotation",
			Caller: "lecturer",
			Status: http.StatusNoContent,
		},
		"mark by owner": {
			Method: http.MethodPost,
			Path:   "/api/v1/attendance",
			Caller: "lecturer",
			Body:   `{"session_id":"s1","subject_id":"alice","scan_type":"entry"}`,
			Status: http.StatusOK,
		},
		"mark by non owner": {
			Method:  http.MethodPost,
			Path:    "/api/v1/attendance",
			Caller:  "alice",
			Body:    `{"session_id":"s1","subject_id":"alice","scan_type":"entry"}`,
			Status:  http.StatusForbidden,
			Problem: "unauthorized",
		},
		"mark not enrolled": {
			Method:  http.MethodPost,
			Path:    "/api/v1/attendance",
			Caller:  "lecturer",
			Body:    `{"session_id":"s1","subject_id":"bob","scan_type":"entry"}`,
			Status:  http.StatusUnprocessableEntity,
			Problem: "not_enrolled",
		},
		"mark exit without entry": {
			Method:  http.MethodPost,
			Path:    "/api/v1/attendance",
			Caller:  "lecturer",
			Body:    `{"session_id":"s1","subject_id":"alice","scan_type":"exit"}`,
			Status:  http.StatusPreconditionFailed,
			Problem: "no_entry_record",
		},
		"mark unknown field": {
			Method:  http.MethodPost,
			Path:    "/api/v1/attendance",
			Caller:  "lecturer",
			Body:    `{"session_id":"s1","subject":"alice"}`,
			Status:  http.StatusBadRequest,
			Problem: "bad_request",
		},
		"self": {
			Method: http.MethodPost,
			Path:   "/api/v1/attendance/self",
			Caller: "alice",
			Body:   `{"session_id":"s1","credential_id":"card-alice","scan_type":"entry"}`,
			Status: http.StatusOK,
		},
		"self with foreign credential": {
			Method:  http.MethodPost,
			Path:    "/api/v1/attendance/self",
			Caller:  "bob",
			Body:    `{"session_id":"s1","credential_id":"card-alice","scan_type":"entry"}`,
			Status:  http.StatusForbidden,
			Problem: "credential_mismatch",
		},
		"self twice": {
			Method: http.MethodPost,
			Path:   "/api/v1/attendance/self",
			Caller: "alice",
			Body:   `{"session_id":"s1","credential_id":"card-alice","scan_type":"entry"}`,
			Prepare: func(t *testing.T, h http.Handler) {
				rr := do(t, h, http.MethodPost, "/api/v1/attendance/self", "alice",
					`{"session_id":"s1","credential_id":"card-alice","scan_type":"entry"}`)
				require.Equal(t, http.StatusOK, rr.Code)
			},
			Status:  http.StatusConflict,
			Problem: "already_marked",
		},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			s, _ := newServer(t)
			h := api.Handler(s, nil)
			if tc.Prepare != nil {
				tc.Prepare(t, h)
			}
			rr := do(t, h, tc.Method, tc.Path, tc.Caller, tc.Body)
			assert.Equal(t, tc.Status, rr.Code, rr.Body.String())
			if tc.Problem != "" {
				assert.Equal(t, tc.Problem, problemType(t, rr))
			}
		})
	}
}

func startRotation(t *testing.T, h http.Handler) {
	rr := do(t, h, http.MethodPost, "/api/v1/sessions/s1/rotation", "lecturer",
		`{"mode":"entry"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
}

func TestRotationLifecycle(t *testing.T) {
	s, clock := newServer(t)
	h := api.Handler(s, nil)
	startRotation(t, h)

	rr := do(t, h, http.MethodGet, "/api/v1/sessions/s1/presence", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var rec presence.Record
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rec))
	assert.Equal(t, presence.PhaseActive, rec.Phase)
	assert.Equal(t, uint64(1), rec.PoolVersion)

	clock.Advance(time.Minute)
	rr = do(t, h, http.MethodPost, "/api/v1/sessions/s1/rotation/refresh", "lecturer", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rec))
	assert.Equal(t, uint64(2), rec.PoolVersion)

	rr = do(t, h, http.MethodDelete, "/api/v1/sessions/s1/rotation", "lecturer", "")
	require.Equal(t, http.StatusNoContent, rr.Code)
	rr = do(t, h, http.MethodGet, "/api/v1/sessions/s1/presence", "", "")
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rec))
	assert.Equal(t, presence.PhaseAbsent, rec.Phase)
	assert.Empty(t, rec.Pool)
}

func TestMarkResult(t *testing.T) {
	s, _ := newServer(t)
	h := api.Handler(s, nil)
	rr := do(t, h, http.MethodPost, "/api/v1/attendance/self", "alice",
		`{"session_id":"s1","credential_id":"card-alice","scan_type":"entry"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	var res ledger.Result
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	assert.Equal(t, ledger.OutcomeCreated, res.Outcome)
	require.NotNil(t, res.Record)
	assert.Equal(t, "alice", res.Record.SubjectID)
	assert.Equal(t, t0.Add(10*time.Minute), res.Record.EntryAt)
}

func TestInternalError(t *testing.T) {
	ctrl := gomock.NewController(t)
	s, _ := newServer(t)
	l := mock_api.NewMockLedger(ctrl)
	l.EXPECT().MarkSelf(gomock.Any(), "alice", "card-alice", "s1", presence.ModeEntry).
		Return(ledger.Result{}, errors.New("disk on fire"))
	s.Ledger = l

	rr := do(t, api.Handler(s, nil), http.MethodPost, "/api/v1/attendance/self", "alice",
		`{"session_id":"s1","credential_id":"card-alice","scan_type":"entry"}`)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "internal", problemType(t, rr))
}

func TestCORS(t *testing.T) {
	s, _ := newServer(t)
	h := api.Handler(s, []string{"https://portal.example.org"})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/time", nil)
	req.Header.Set("Origin", "https://portal.example.org")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "https://portal.example.org",
		rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestCustomAuthenticator(t *testing.T) {
	s, _ := newServer(t)
	s.Auth = api.HeaderAuthenticator{Header: "X-Forwarded-User"}
	h := api.Handler(s, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/s1/rotation",
		strings.NewReader(`{"mode":"exit"}`))
	req.Header.Set("X-Forwarded-User", "lecturer")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
}
