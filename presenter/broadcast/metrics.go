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

package broadcast

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jackerost/attendance/pkg/metrics/v2"
	"github.com/jackerost/attendance/pkg/private/prom"
	"github.com/jackerost/attendance/private/periodic"
)

// Metrics are the broadcast engine metrics. Every field may be nil.
type Metrics struct {
	Active          metrics.Gauge
	Ticks           metrics.Counter
	Refreshes       metrics.Counter
	RefreshErrors   metrics.Counter
	HeartbeatErrors metrics.Counter
	AdvertiseErrors metrics.Counter
	Runner          *periodic.Metrics
}

// NewMetrics returns prometheus backed engine metrics.
func NewMetrics(f metrics.Factory) Metrics {
	events := f.NewCounterVec(prometheus.CounterOpts{
		Namespace: prom.Namespace,
		Subsystem: "broadcast",
		Name:      "events_total",
		Help:      "Total number of broadcast engine events.",
	}, []string{prom.LabelEvent})
	return Metrics{
		Active: f.NewGauge(prometheus.GaugeOpts{
			Namespace: prom.Namespace,
			Subsystem: "broadcast",
			Name:      "active",
			Help:      "Whether the engine is broadcasting.",
		}),
		Ticks:           events.WithLabelValues("tick"),
		Refreshes:       events.WithLabelValues("refresh"),
		RefreshErrors:   events.WithLabelValues("refresh_error"),
		HeartbeatErrors: events.WithLabelValues("heartbeat_error"),
		AdvertiseErrors: events.WithLabelValues("advertise_error"),
		Runner:          periodic.NewMetrics("broadcast_rotation"),
	}
}
