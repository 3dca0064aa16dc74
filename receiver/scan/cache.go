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

package scan

import (
	"context"
	"time"

	cache "github.com/patrickmn/go-cache"

	"github.com/jackerost/attendance/pkg/presence"
	"github.com/jackerost/attendance/pkg/private/serrors"
)

// presenceCache serves the presence record of one session from memory and
// fetches it when the cached copy expired. It is owned by the scan loop.
type presenceCache struct {
	fetcher   Fetcher
	sessionID string
	timeout   time.Duration
	// Do not embed or use type directly to reduce the cache's API surface
	c *cache.Cache
}

func newPresenceCache(f Fetcher, sessionID string, ttl, timeout time.Duration) *presenceCache {
	return &presenceCache{
		fetcher:   f,
		sessionID: sessionID,
		timeout:   timeout,
		// Entries expire lazily on Get, no janitor is needed.
		c: cache.New(ttl, 0),
	}
}

// Get returns the cached record or fetches it.
func (p *presenceCache) Get(ctx context.Context) (*presence.Record, error) {
	if obj, ok := p.c.Get(p.sessionID); ok {
		return obj.(*presence.Record), nil
	}
	return p.Refresh(ctx)
}

// Refresh fetches the record regardless of the cached copy.
func (p *presenceCache) Refresh(ctx context.Context) (*presence.Record, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	rec, err := p.fetcher.Record(ctx, p.sessionID)
	if err != nil {
		return nil, serrors.Wrap("fetching presence record", err, "session", p.sessionID)
	}
	p.c.Set(p.sessionID, rec, cache.DefaultExpiration)
	return rec, nil
}

// Flush drops the cached record.
func (p *presenceCache) Flush() {
	p.c.Flush()
}
