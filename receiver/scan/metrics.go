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
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jackerost/attendance/pkg/metrics/v2"
	"github.com/jackerost/attendance/pkg/private/prom"
)

// Metrics are the scan engine metrics. Every field may be nil.
type Metrics struct {
	// Observations counts validated candidates by verdict.
	Observations func(verdict string) metrics.Counter
	// Transitions counts state transitions by target state.
	Transitions    func(state string) metrics.Counter
	StaleRefetches metrics.Counter
	StallRestarts  metrics.Counter
}

// NewMetrics returns prometheus backed engine metrics.
func NewMetrics(f metrics.Factory) Metrics {
	obs := f.NewCounterVec(prometheus.CounterOpts{
		Namespace: prom.Namespace,
		Subsystem: "scan",
		Name:      "observations_total",
		Help:      "Total number of validated candidates by verdict.",
	}, []string{prom.LabelVerdict})
	transitions := f.NewCounterVec(prometheus.CounterOpts{
		Namespace: prom.Namespace,
		Subsystem: "scan",
		Name:      "transitions_total",
		Help:      "Total number of detection state transitions.",
	}, []string{prom.LabelState})
	events := f.NewCounterVec(prometheus.CounterOpts{
		Namespace: prom.Namespace,
		Subsystem: "scan",
		Name:      "events_total",
		Help:      "Total number of scan recovery events.",
	}, []string{prom.LabelEvent})
	return Metrics{
		Observations: func(verdict string) metrics.Counter {
			return obs.WithLabelValues(verdict)
		},
		Transitions: func(state string) metrics.Counter {
			return transitions.WithLabelValues(state)
		},
		StaleRefetches: events.WithLabelValues("stale_refetch"),
		StallRestarts:  events.WithLabelValues("stall_restart"),
	}
}

func (m Metrics) observation(verdict string) {
	if m.Observations != nil {
		metrics.CounterInc(m.Observations(verdict))
	}
}

func (m Metrics) transition(s State) {
	if m.Transitions != nil {
		metrics.CounterInc(m.Transitions(s.String()))
	}
}
