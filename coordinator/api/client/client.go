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

// Package client is the HTTP client of the coordinator API. It lets
// presenters and receivers run in a different process than the coordinator.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jackerost/attendance/coordinator/api"
	"github.com/jackerost/attendance/ledger"
	"github.com/jackerost/attendance/pkg/presence"
	"github.com/jackerost/attendance/pkg/private/serrors"
	"github.com/jackerost/attendance/pkg/session"
)

// Client talks to one coordinator on behalf of one caller.
type Client struct {
	baseURL  string
	callerID string
	http     *http.Client
}

// New returns a client for the coordinator at baseURL. A nil httpClient
// selects http.DefaultClient.
func New(baseURL, callerID string, httpClient *http.Client) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, serrors.Wrap("parsing base URL", err, "url", baseURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, serrors.New("unsupported scheme", "url", baseURL)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:  strings.TrimSuffix(baseURL, "/") + api.BaseURL,
		callerID: callerID,
		http:     httpClient,
	}, nil
}

// StartRotation starts the rotation of a session owned by the caller.
func (c *Client) StartRotation(
	ctx context.Context,
	sessionID string,
	mode presence.Mode,
) (*presence.Record, error) {

	var rec presence.Record
	err := c.do(ctx, c.callerID, http.MethodPost, sessionPath(sessionID, "rotation"),
		api.RotationRequest{Mode: mode}, &rec)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// RefreshPool replaces the pool of a session owned by the caller.
func (c *Client) RefreshPool(ctx context.Context, sessionID string) (*presence.Record, error) {
	var rec presence.Record
	err := c.do(ctx, c.callerID, http.MethodPost, sessionPath(sessionID, "rotation/refresh"),
		nil, &rec)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// TouchHeartbeat stamps the heartbeat of a session owned by the caller.
func (c *Client) TouchHeartbeat(ctx context.Context, sessionID string) error {
	return c.do(ctx, c.callerID, http.MethodPost, sessionPath(sessionID, "heartbeat"),
		nil, nil)
}

// Retire keeps the pool of a session valid until the given instant.
func (c *Client) Retire(ctx context.Context, sessionID string, until time.Time) error {
	return c.do(ctx, c.callerID, http.MethodPost, sessionPath(sessionID, "rotation/retire"),
		api.RetireRequest{Until: until}, nil)
}

// Clear removes the pool of a session.
func (c *Client) Clear(ctx context.Context, sessionID string) error {
	return c.do(ctx, c.callerID, http.MethodDelete, sessionPath(sessionID, "rotation"),
		nil, nil)
}

// Record returns the presence record of a session.
func (c *Client) Record(ctx context.Context, sessionID string) (*presence.Record, error) {
	var rec presence.Record
	err := c.do(ctx, "", http.MethodGet, sessionPath(sessionID, "presence"), nil, &rec)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Session returns a session.
func (c *Client) Session(ctx context.Context, sessionID string) (*session.Session, error) {
	var s session.Session
	if err := c.do(ctx, "", http.MethodGet, sessionPath(sessionID, ""), nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// MarkAttendance marks attendance on behalf of a subject. The caller must own
// the session.
func (c *Client) MarkAttendance(ctx context.Context, req ledger.Request) (ledger.Result, error) {
	var res ledger.Result
	err := c.do(ctx, c.callerID, http.MethodPost, "/attendance", req, &res)
	return res, err
}

// MarkSelf marks the attendance of callerID with the given credential.
func (c *Client) MarkSelf(
	ctx context.Context,
	callerID, credentialID, sessionID string,
	scanType presence.Mode,
) (ledger.Result, error) {

	var res ledger.Result
	err := c.do(ctx, callerID, http.MethodPost, "/attendance/self", api.SelfRequest{
		SessionID:    sessionID,
		CredentialID: credentialID,
		ScanType:     scanType,
	}, &res)
	return res, err
}

// Now returns the coordinator time.
func (c *Client) Now(ctx context.Context) (time.Time, error) {
	var t api.TimeResponse
	if err := c.do(ctx, "", http.MethodGet, "/time", nil, &t); err != nil {
		return time.Time{}, err
	}
	return t.Now, nil
}

// EstimateOffset estimates the offset of the coordinator clock to the local
// clock from a single round trip, assuming symmetric latency.
func (c *Client) EstimateOffset(ctx context.Context) (time.Duration, error) {
	sent := time.Now()
	remote, err := c.Now(ctx)
	if err != nil {
		return 0, err
	}
	rtt := time.Since(sent)
	return remote.Sub(sent.Add(rtt / 2)), nil
}

func (c *Client) do(
	ctx context.Context,
	callerID, method, path string,
	body, out any,
) error {

	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return serrors.Wrap("encoding request", err, "path", path)
		}
		rd = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return serrors.Wrap("building request", err, "path", path)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if callerID != "" {
		req.Header.Set(api.CallerHeader, callerID)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return serrors.Wrap("sending request", err, "method", method, "path", path)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeProblem(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return serrors.Wrap("decoding response", err, "path", path)
	}
	return nil
}

// decodeProblem maps a problem response back onto the sentinel error of its
// type, so that callers can use errors.Is across the process boundary.
func decodeProblem(resp *http.Response) error {
	var p api.Problem
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&p); err != nil {
		return serrors.New("request failed", "status", resp.StatusCode)
	}
	if k, ok := api.KindByType(p.Type); ok {
		return serrors.JoinNoStack(k.Err, nil, "status", p.Status, "detail", p.Detail)
	}
	return serrors.New("request failed", "status", resp.StatusCode, "type", p.Type,
		"detail", p.Detail)
}

func sessionPath(sessionID, suffix string) string {
	p := "/sessions/" + url.PathEscape(sessionID)
	if suffix != "" {
		p += "/" + suffix
	}
	return p
}
