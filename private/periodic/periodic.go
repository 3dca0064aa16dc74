// Copyright 2018 Anapaya Systems
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

// Package periodic runs tasks on a fixed period in their own goroutine.
//
// A Runner can be started immediately (Start, StartWithMetrics) or aligned
// to an external schedule (StartAligned), in which case the first run
// happens after an initial delay and every following run one period later.
// The broadcast engine uses the aligned variant so that re-advertising
// happens right after a slot boundary.
package periodic

import (
	"context"
	"sync"
	"time"

	"github.com/jackerost/attendance/pkg/log"
	"github.com/jackerost/attendance/pkg/metrics/v2"
)

// Event values for the Metrics.Events counter.
const (
	EventStop    = "stop"
	EventKill    = "kill"
	EventTrigger = "triggered"
)

// A Task that has to be periodically executed.
type Task interface {
	// Run executes the task once, it should return within the context's timeout.
	Run(context.Context)
	// Name returns the task's name for use in metrics and logs.
	Name() string
}

// Func wraps a function with a name so that it implements Task.
type Func struct {
	Task     func(context.Context)
	TaskName string
}

// Run calls the wrapped function.
func (f Func) Run(ctx context.Context) {
	f.Task(ctx)
}

// Name returns the task name.
func (f Func) Name() string {
	return f.TaskName
}

// Metrics contains the metrics of a runner. Every field may be nil.
type Metrics struct {
	Events    func(event string) metrics.Counter
	Period    metrics.Gauge
	Runtime   metrics.Gauge
	StartTime metrics.Gauge
}

func (m *Metrics) event(e string) {
	if m == nil || m.Events == nil {
		return
	}
	metrics.CounterInc(m.Events(e))
}

// Runner runs a task periodically.
type Runner struct {
	task       Task
	period     time.Duration
	firstDelay time.Duration
	timeout    time.Duration
	metrics    *Metrics

	stop         chan struct{}
	stopOnce     sync.Once
	loopFinished chan struct{}
	ctx          context.Context
	cancelF      context.CancelFunc
	trigger      chan struct{}
}

// Start creates and starts a new Runner to run the given task periodically.
// The timeout is used for the context timeout of the task. The timeout can be
// larger than the period. That means if a task takes a long time it will be
// immediately retriggered.
func Start(task Task, period, timeout time.Duration) *Runner {
	return StartWithMetrics(task, nil, period, timeout)
}

// StartWithMetrics is like Start but records runner metrics in m.
func StartWithMetrics(task Task, m *Metrics, period, timeout time.Duration) *Runner {
	return start(task, m, 0, period, timeout)
}

// StartAligned is like StartWithMetrics but delays the first run by
// firstDelay. Subsequent runs happen every period after the first one.
func StartAligned(task Task, m *Metrics, firstDelay, period, timeout time.Duration) *Runner {
	return start(task, m, firstDelay, period, timeout)
}

func start(task Task, m *Metrics, firstDelay, period, timeout time.Duration) *Runner {
	ctx, cancelF := context.WithCancel(context.Background())
	ctx, _ = log.WithLabels(ctx, "task", task.Name())
	r := &Runner{
		task:         task,
		period:       period,
		firstDelay:   firstDelay,
		timeout:      timeout,
		metrics:      m,
		stop:         make(chan struct{}),
		loopFinished: make(chan struct{}),
		ctx:          ctx,
		cancelF:      cancelF,
		trigger:      make(chan struct{}),
	}
	if m != nil {
		metrics.GaugeSet(m.Period, period.Seconds())
		metrics.GaugeSet(m.StartTime, float64(time.Now().UnixNano())/1e9)
	}
	log.FromCtx(ctx).Debug("Starting periodic task",
		"period", period, "first_delay", firstDelay)
	go func() {
		defer log.HandlePanic()
		r.runLoop()
	}()
	return r
}

// Stop stops the periodic execution of the Runner.
// If the task is currently running this method will block until it is done.
// Stop is idempotent.
func (r *Runner) Stop() {
	r.stopOnce.Do(func() {
		r.metrics.event(EventStop)
		close(r.stop)
	})
	<-r.loopFinished
}

// Kill is like Stop but it also cancels the context of the current running method.
func (r *Runner) Kill() {
	r.stopOnce.Do(func() {
		r.metrics.event(EventKill)
		close(r.stop)
	})
	r.cancelF()
	<-r.loopFinished
}

// TriggerRun triggers the periodic task to run now.
// This does not impact the normal periodicity of this task.
//
// The method blocks until either the triggered run was started or the runner was stopped,
// in which case the triggered run will not be executed.
func (r *Runner) TriggerRun() {
	select {
	case <-r.stop:
	case r.trigger <- struct{}{}:
		r.metrics.event(EventTrigger)
	}
}

func (r *Runner) runLoop() {
	defer close(r.loopFinished)
	defer r.cancelF()

	if r.firstDelay > 0 {
		first := time.NewTimer(r.firstDelay)
		select {
		case <-r.stop:
			first.Stop()
			return
		case <-first.C:
			r.onTick()
		case <-r.trigger:
			first.Stop()
			r.onTick()
		}
	}
	ticker := time.NewTicker(r.period)
	defer ticker.Stop()
	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			r.onTick()
		case <-r.trigger:
			r.onTick()
		}
	}
}

func (r *Runner) onTick() {
	select {
	// Make sure that stop case is evaluated first,
	// so that when we kill and both channels are ready we always go into stop first.
	case <-r.stop:
		return
	default:
		ctx, cancelF := context.WithTimeout(r.ctx, r.timeout)
		start := time.Now()
		r.task.Run(ctx)
		if r.metrics != nil {
			metrics.GaugeSet(r.metrics.Runtime, time.Since(start).Seconds())
		}
		cancelF()
	}
}
