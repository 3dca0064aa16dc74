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
	"io"
	"time"

	"github.com/jackerost/attendance/pkg/presence"
	"github.com/jackerost/attendance/pkg/private/serrors"
	"github.com/jackerost/attendance/pkg/private/util"
	"github.com/jackerost/attendance/private/config"
)

const (
	DefaultRSSIThreshold      = -80
	DefaultDetectionThreshold = 100 * time.Millisecond
	DefaultProximityWindow    = 5 * time.Second
	DefaultScanTimeout        = 5 * time.Second
	DefaultMaxStallRestarts   = 3
	DefaultCacheTTL           = 2 * time.Second
	DefaultFetchTimeout       = 2 * time.Second
)

var _ config.Config = (*Config)(nil)

// Config is the scan engine configuration.
type Config struct {
	// RSSIThreshold is the weakest signal strength, in dBm, that counts as
	// nearby.
	RSSIThreshold int `toml:"rssi_threshold,omitempty"`
	// DetectionThreshold is how long a target must stay accepted after the
	// first detection before the threshold is met.
	DetectionThreshold util.DurWrap `toml:"detection_threshold,omitempty"`
	// ProximityWindow is how long a lost target may stay unseen before the
	// receiver reports it lost.
	ProximityWindow util.DurWrap `toml:"proximity_window,omitempty"`
	// ScanTimeout is how long the engine waits for a first acceptance before
	// it restarts the ranging subscription.
	ScanTimeout util.DurWrap `toml:"scan_timeout,omitempty"`
	// MaxStallRestarts bounds the consecutive subscription restarts.
	MaxStallRestarts int `toml:"max_stall_restarts,omitempty"`
	// HeartbeatFreshness is the maximum accepted heartbeat age.
	HeartbeatFreshness util.DurWrap `toml:"heartbeat_freshness,omitempty"`
	// CacheTTL is how long a fetched presence record is used before it is
	// fetched again.
	CacheTTL     util.DurWrap `toml:"cache_ttl,omitempty"`
	FetchTimeout util.DurWrap `toml:"fetch_timeout,omitempty"`
}

// DefaultConfig returns the reference scan configuration.
func DefaultConfig() Config {
	var c Config
	c.InitDefaults()
	return c
}

func (c *Config) InitDefaults() {
	if c.RSSIThreshold == 0 {
		c.RSSIThreshold = DefaultRSSIThreshold
	}
	if c.DetectionThreshold.Duration == 0 {
		c.DetectionThreshold.Duration = DefaultDetectionThreshold
	}
	if c.ProximityWindow.Duration == 0 {
		c.ProximityWindow.Duration = DefaultProximityWindow
	}
	if c.ScanTimeout.Duration == 0 {
		c.ScanTimeout.Duration = DefaultScanTimeout
	}
	if c.MaxStallRestarts == 0 {
		c.MaxStallRestarts = DefaultMaxStallRestarts
	}
	if c.HeartbeatFreshness.Duration == 0 {
		c.HeartbeatFreshness.Duration = presence.DefaultHeartbeatFreshness
	}
	if c.CacheTTL.Duration == 0 {
		c.CacheTTL.Duration = DefaultCacheTTL
	}
	if c.FetchTimeout.Duration == 0 {
		c.FetchTimeout.Duration = DefaultFetchTimeout
	}
}

func (c *Config) Validate() error {
	switch {
	case c.RSSIThreshold >= 0:
		return serrors.New("rssi_threshold must be negative", "value", c.RSSIThreshold)
	case c.DetectionThreshold.Duration < 0:
		return serrors.New("detection_threshold must not be negative",
			"value", c.DetectionThreshold)
	case c.ProximityWindow.Duration <= 0:
		return serrors.New("proximity_window must be positive", "value", c.ProximityWindow)
	case c.ScanTimeout.Duration <= 0:
		return serrors.New("scan_timeout must be positive", "value", c.ScanTimeout)
	case c.MaxStallRestarts < 0:
		return serrors.New("max_stall_restarts must not be negative",
			"value", c.MaxStallRestarts)
	case c.HeartbeatFreshness.Duration <= 0:
		return serrors.New("heartbeat_freshness must be positive",
			"value", c.HeartbeatFreshness)
	case c.CacheTTL.Duration <= 0 || c.FetchTimeout.Duration <= 0:
		return serrors.New("cache_ttl and fetch_timeout must be positive",
			"cache_ttl", c.CacheTTL, "fetch_timeout", c.FetchTimeout)
	}
	return nil
}

func (c *Config) Sample(dst io.Writer, _ config.Path, _ config.CtxMap) {
	config.WriteString(dst, configSample)
}

func (c *Config) ConfigName() string {
	return "scan"
}

const configSample = `
# Weakest accepted signal strength in dBm. (default -80)
rssi_threshold = -80

# Dwell time from the first detection until the threshold is met.
# (default 100ms)
detection_threshold = "100ms"

# Time a lost target may stay unseen before it is reported lost. The backup
# loss timer runs at twice this value. (default 5s)
proximity_window = "5s"

# Time without any acceptance after which the ranging subscription is
# restarted. (default 5s)
scan_timeout = "5s"

# Consecutive subscription restarts before the stall is reported. (default 3)
max_stall_restarts = 3

# Maximum accepted age of the presenter heartbeat. (default 35s)
heartbeat_freshness = "35s"

# Time a fetched presence record is reused. (default 2s)
cache_ttl = "2s"

# Timeout of a single presence fetch. (default 2s)
fetch_timeout = "2s"
`
