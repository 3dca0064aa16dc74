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

package presence_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jackerost/attendance/pkg/presence"
	"github.com/jackerost/attendance/private/config"
)

func TestParamsSample(t *testing.T) {
	var sample presence.Params
	var buf bytes.Buffer
	sample.Sample(&buf, nil, nil)

	var cfg presence.Params
	require.NoError(t, config.Decode(buf.Bytes(), &cfg))
	cfg.InitDefaults()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, presence.DefaultParams(), cfg)
}

func TestParamsDefaults(t *testing.T) {
	p := presence.DefaultParams()
	assert.Equal(t, 8*time.Second, p.SlotInterval.Duration)
	assert.Equal(t, 3*time.Second, p.Grace.Duration)
	assert.Equal(t, 300*time.Millisecond, p.PreRollTolerance.Duration)
	assert.Equal(t, 12, p.PoolSize)
	assert.Equal(t, 2, p.RefreshBufferSlots)
	assert.Equal(t, 35*time.Second, p.HeartbeatFreshness.Duration)
	assert.Equal(t, p.SlotInterval, p.HeartbeatInterval)
	assert.Equal(t, 10*time.Second, p.StopGrace.Duration)
}

func TestParamsValidate(t *testing.T) {
	testCases := map[string]struct {
		modify    func(*presence.Params)
		assertErr assert.ErrorAssertionFunc
	}{
		"defaults": {
			modify:    func(*presence.Params) {},
			assertErr: assert.NoError,
		},
		"grace exceeds slot": {
			modify:    func(p *presence.Params) { p.Grace.Duration = 9 * time.Second },
			assertErr: assert.Error,
		},
		"pre roll too wide": {
			modify:    func(p *presence.Params) { p.PreRollTolerance.Duration = 4 * time.Second },
			assertErr: assert.Error,
		},
		"buffer equals pool": {
			modify:    func(p *presence.Params) { p.RefreshBufferSlots = 12 },
			assertErr: assert.Error,
		},
		"freshness below heartbeat": {
			modify:    func(p *presence.Params) { p.HeartbeatFreshness.Duration = time.Second },
			assertErr: assert.Error,
		},
		"tiny pool": {
			modify:    func(p *presence.Params) { p.PoolSize = 1 },
			assertErr: assert.Error,
		},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			p := presence.DefaultParams()
			tc.modify(&p)
			tc.assertErr(t, p.Validate())
		})
	}
}

func TestOffsetClock(t *testing.T) {
	base := presence.NewManualClock(origin)
	c := presence.OffsetClock{Base: base, Offset: -1500 * time.Millisecond}
	assert.Equal(t, origin.Add(-1500*time.Millisecond), c.Now())
	base.Advance(time.Second)
	assert.Equal(t, origin.Add(-500*time.Millisecond), c.Now())
}
