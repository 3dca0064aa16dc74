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

package pool

import (
	"context"
	"time"

	"github.com/jackerost/attendance/pkg/presence"
	"github.com/jackerost/attendance/pkg/session"
)

// Caller binds a Manager to one caller identity. It is the in-process
// counterpart of the coordinator API client.
type Caller struct {
	Manager *Manager
	ID      string
}

func (c Caller) StartRotation(
	ctx context.Context,
	sessionID string,
	mode presence.Mode,
) (*presence.Record, error) {

	return c.Manager.StartRotation(ctx, c.ID, sessionID, mode)
}

func (c Caller) RefreshPool(ctx context.Context, sessionID string) (*presence.Record, error) {
	return c.Manager.RefreshPool(ctx, c.ID, sessionID)
}

func (c Caller) TouchHeartbeat(ctx context.Context, sessionID string) error {
	return c.Manager.TouchHeartbeat(ctx, c.ID, sessionID)
}

func (c Caller) Retire(ctx context.Context, sessionID string, until time.Time) error {
	return c.Manager.Retire(ctx, c.ID, sessionID, until)
}

func (c Caller) Clear(ctx context.Context, sessionID string) error {
	return c.Manager.Clear(ctx, c.ID, sessionID)
}

func (c Caller) Record(ctx context.Context, sessionID string) (*presence.Record, error) {
	return c.Manager.Record(ctx, sessionID)
}

func (c Caller) Session(ctx context.Context, sessionID string) (*session.Session, error) {
	return c.Manager.Session(ctx, sessionID)
}
