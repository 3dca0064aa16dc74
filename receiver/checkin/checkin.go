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

// Package checkin runs the receiver side of a self-service mark: scan until
// the presenter is verified nearby, read the credential and mark attendance.
package checkin

import (
	"context"
	"errors"
	"time"

	"github.com/jackerost/attendance/ledger"
	"github.com/jackerost/attendance/pkg/log"
	"github.com/jackerost/attendance/pkg/presence"
	"github.com/jackerost/attendance/pkg/private/serrors"
	"github.com/jackerost/attendance/receiver/scan"
)

// ErrNoCredential indicates that the reader returned no credential in time.
var ErrNoCredential = errors.New("no credential read")

// DefaultReadTimeout bounds a single credential read.
const DefaultReadTimeout = 30 * time.Second

// Scanner is the receiver scan engine.
type Scanner interface {
	StartScanning(ctx context.Context, sessionID string, cb scan.Callbacks) error
	StopScanning()
}

// CredentialReader reads one physical credential.
type CredentialReader interface {
	// Read returns the credential id. It returns ErrNoCredential if nothing
	// was presented before ctx expired.
	Read(ctx context.Context) (string, error)
}

// ReaderFunc adapts a function to CredentialReader.
type ReaderFunc func(ctx context.Context) (string, error)

func (f ReaderFunc) Read(ctx context.Context) (string, error) {
	return f(ctx)
}

// Marker marks attendance on behalf of the caller.
type Marker interface {
	MarkSelf(ctx context.Context, callerID, credentialID, sessionID string,
		scanType presence.Mode) (ledger.Result, error)
}

// Flow is one self-service check-in.
type Flow struct {
	Scanner  Scanner
	Reader   CredentialReader
	Ledger   Marker
	CallerID string
	// ReadTimeout defaults to DefaultReadTimeout.
	ReadTimeout time.Duration
}

// Run scans for the session until the threshold is met, reads a credential
// and marks attendance with the scan type the presenter broadcasts. Scan
// stalls and ranging failures end the flow. Scanning is stopped before Run
// returns.
func (f *Flow) Run(ctx context.Context, sessionID string) (ledger.Result, error) {
	logger := log.FromCtx(ctx).New("session", sessionID, "caller", f.CallerID)
	met := make(chan scan.Detection, 1)
	failed := make(chan error, 1)
	cb := scan.Callbacks{
		OnDetected: func(d scan.Detection) {
			logger.Debug("Presenter detected", "identity", d.Identity, "rssi", d.RSSI)
		},
		OnThresholdMet: func(d scan.Detection) {
			select {
			case met <- d:
			default:
			}
		},
		OnLost: func() {
			logger.Debug("Presenter lost")
		},
		OnError: func(err error) {
			select {
			case failed <- err:
			default:
			}
		},
	}
	if err := f.Scanner.StartScanning(ctx, sessionID, cb); err != nil {
		return ledger.Result{}, err
	}
	defer f.Scanner.StopScanning()

	var d scan.Detection
	select {
	case d = <-met:
	case err := <-failed:
		return ledger.Result{}, serrors.Wrap("scanning", err, "session", sessionID)
	case <-ctx.Done():
		return ledger.Result{}, ctx.Err()
	}
	logger.Info("Presence verified, waiting for credential", "mode", d.Mode)

	timeout := f.ReadTimeout
	if timeout == 0 {
		timeout = DefaultReadTimeout
	}
	readCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	credentialID, err := f.Reader.Read(readCtx)
	if err == nil && credentialID == "" {
		err = ErrNoCredential
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = serrors.JoinNoStack(ErrNoCredential, err)
		}
		return ledger.Result{}, err
	}
	res, err := f.Ledger.MarkSelf(ctx, f.CallerID, credentialID, sessionID, d.Mode)
	if err != nil {
		return ledger.Result{}, err
	}
	logger.Info("Attendance marked", "mode", d.Mode, "outcome", res.Outcome)
	return res, nil
}
