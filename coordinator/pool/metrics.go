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
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jackerost/attendance/pkg/metrics/v2"
	"github.com/jackerost/attendance/pkg/private/prom"
	"github.com/jackerost/attendance/private/storage/db"
	"github.com/jackerost/attendance/private/storage/directory"
)

const (
	opStartRotation  = "start_rotation"
	opRefreshPool    = "refresh_pool"
	opTouchHeartbeat = "touch_heartbeat"
	opRetire         = "retire"
	opClear          = "clear"
)

// Metrics are the pool manager metrics.
type Metrics struct {
	// Operations returns the counter for op with the given result.
	Operations func(op, result string) metrics.Counter
}

// NewMetrics returns prometheus backed manager metrics.
func NewMetrics(f metrics.Factory) Metrics {
	ops := f.NewCounterVec(prometheus.CounterOpts{
		Namespace: prom.Namespace,
		Subsystem: "pool",
		Name:      "operations_total",
		Help:      "Total number of pool manager operations.",
	}, []string{prom.LabelOperation, prom.LabelResult})
	return Metrics{
		Operations: func(op, result string) metrics.Counter {
			return ops.WithLabelValues(op, result)
		},
	}
}

func (m Metrics) observe(op string, err error) {
	if m.Operations == nil {
		return
	}
	metrics.CounterInc(m.Operations(op, prom.ErrorResult(err, classify)))
}

func classify(err error) string {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return prom.ErrUnauthorized
	case errors.Is(err, ErrNotRotating):
		return prom.ErrRejected
	case errors.Is(err, directory.ErrNotFound):
		return prom.ErrNotFound
	case errors.Is(err, db.ErrReadFailed), errors.Is(err, db.ErrWriteFailed),
		errors.Is(err, db.ErrTx):
		return prom.ErrDB
	default:
		return ""
	}
}
