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

package periodic

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jackerost/attendance/pkg/metrics/v2"
	"github.com/jackerost/attendance/pkg/private/prom"
)

var (
	eventsVec = prom.SafeRegister(prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: prom.Namespace,
			Subsystem: "periodic",
			Name:      "events_total",
			Help:      "Total number of runner events.",
		},
		[]string{"task", prom.LabelEvent},
	)).(*prometheus.CounterVec)
	periodVec = prom.SafeRegister(prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: prom.Namespace,
			Subsystem: "periodic",
			Name:      "period_seconds",
			Help:      "The period of the task.",
		},
		[]string{"task"},
	)).(*prometheus.GaugeVec)
	runtimeVec = prom.SafeRegister(prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: prom.Namespace,
			Subsystem: "periodic",
			Name:      "runtime_duration_seconds",
			Help:      "Duration of the last task run.",
		},
		[]string{"task"},
	)).(*prometheus.GaugeVec)
	startVec = prom.SafeRegister(prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: prom.Namespace,
			Subsystem: "periodic",
			Name:      "runtime_timestamp_seconds",
			Help:      "The unix timestamp when the runner was started.",
		},
		[]string{"task"},
	)).(*prometheus.GaugeVec)
)

// NewMetrics returns prometheus backed runner metrics for the named task.
func NewMetrics(task string) *Metrics {
	return &Metrics{
		Events: func(event string) metrics.Counter {
			return eventsVec.WithLabelValues(task, event)
		},
		Period:    periodVec.WithLabelValues(task),
		Runtime:   runtimeVec.WithLabelValues(task),
		StartTime: startVec.WithLabelValues(task),
	}
}
