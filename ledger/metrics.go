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

package ledger

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jackerost/attendance/pkg/metrics/v2"
	"github.com/jackerost/attendance/pkg/presence"
	"github.com/jackerost/attendance/pkg/private/prom"
	"github.com/jackerost/attendance/private/storage/db"
	"github.com/jackerost/attendance/private/storage/directory"
)

// Metrics are the ledger metrics.
type Metrics struct {
	// Marks returns the counter for a mark of scan type mode with the given
	// outcome and result.
	Marks func(mode, outcome, result string) metrics.Counter
}

// NewMetrics returns prometheus backed ledger metrics.
func NewMetrics(f metrics.Factory) Metrics {
	marks := f.NewCounterVec(prometheus.CounterOpts{
		Namespace: prom.Namespace,
		Subsystem: "ledger",
		Name:      "marks_total",
		Help:      "Total number of attendance marks.",
	}, []string{prom.LabelMode, prom.LabelOutcome, prom.LabelResult})
	return Metrics{
		Marks: func(mode, outcome, result string) metrics.Counter {
			return marks.WithLabelValues(mode, outcome, result)
		},
	}
}

func (m Metrics) observe(mode presence.Mode, outcome Outcome, err error) {
	if m.Marks == nil {
		return
	}
	o := "none"
	if err == nil {
		o = outcome.String()
	}
	metrics.CounterInc(m.Marks(string(mode), o, prom.ErrorResult(err, classify)))
}

func classify(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return prom.ErrInvalidReq
	case errors.Is(err, ErrCredentialMismatch), errors.Is(err, ErrUnknownSubject):
		return prom.ErrUnauthorized
	case errors.Is(err, ErrSessionInactive), errors.Is(err, ErrNotEnrolled),
		errors.Is(err, ErrNoEntryRecord), errors.Is(err, ErrAlreadyComplete),
		errors.Is(err, ErrAlreadyMarked):
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
