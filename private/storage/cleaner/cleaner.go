// Copyright 2019 Anapaya Systems
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

// Package cleaner provides a periodic task that removes expired directory
// data.
package cleaner

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jackerost/attendance/pkg/log"
	"github.com/jackerost/attendance/pkg/metrics/v2"
	"github.com/jackerost/attendance/pkg/private/prom"
	"github.com/jackerost/attendance/private/periodic"
)

// ExpiredDeleter removes data that expired at or before now and returns how
// many entries were affected.
type ExpiredDeleter func(ctx context.Context, now time.Time) (int, error)

var _ periodic.Task = (*Cleaner)(nil)

// Cleaner is a periodic.Task implementation that deletes expired data.
type Cleaner struct {
	deleter   ExpiredDeleter
	subsystem string
	now       func() time.Time
	metrics   Metrics
}

// Metrics contains the metrics for a cleaner.
type Metrics struct {
	// ErrorsTotal reports the total number of errors during cleaning.
	ErrorsTotal metrics.Counter
	// RunsTotal reports the total number of successful runs.
	RunsTotal metrics.Counter
	// DeletedTotal reports the total number of deleted entries.
	DeletedTotal metrics.Counter
}

// NewMetrics returns prometheus backed cleaner metrics for subsystem.
func NewMetrics(f metrics.Factory, subsystem string) Metrics {
	runs := f.NewCounterVec(prometheus.CounterOpts{
		Namespace: prom.Namespace,
		Subsystem: subsystem,
		Name:      "cleaner_runs_total",
		Help:      "Total number of cleaner runs.",
	}, []string{prom.LabelResult})
	deleted := f.NewCounterVec(prometheus.CounterOpts{
		Namespace: prom.Namespace,
		Subsystem: subsystem,
		Name:      "cleaner_deleted_total",
		Help:      "Total number of entries removed by the cleaner.",
	}, nil)
	return Metrics{
		ErrorsTotal:  runs.WithLabelValues(prom.ErrDB),
		RunsTotal:    runs.WithLabelValues(prom.Success),
		DeletedTotal: deleted.WithLabelValues(),
	}
}

// New returns a new cleaner task that deletes expired data using deleter.
// A nil now uses time.Now.
func New(deleter ExpiredDeleter, subsystem string, now func() time.Time,
	metrics Metrics) *Cleaner {

	if now == nil {
		now = time.Now
	}
	return &Cleaner{
		deleter:   deleter,
		subsystem: subsystem,
		now:       now,
		metrics:   metrics,
	}
}

// Name returns the tasks name.
func (c *Cleaner) Name() string {
	return fmt.Sprintf("%s_cleaner", c.subsystem)
}

// Run deletes expired entries using the deleter func.
func (c *Cleaner) Run(ctx context.Context) {
	count, err := c.deleter(ctx, c.now())
	logger := log.FromCtx(ctx)
	if err != nil {
		logger.Error("Failed to delete", "subsystem", c.subsystem, "err", err)
		metrics.CounterInc(c.metrics.ErrorsTotal)
		return
	}
	if count > 0 {
		logger.Info("Deleted expired", "subsystem", c.subsystem, "count", count)
		metrics.CounterAdd(c.metrics.DeletedTotal, float64(count))
	}
	metrics.CounterInc(c.metrics.RunsTotal)
}
