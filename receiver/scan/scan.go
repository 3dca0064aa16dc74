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

// Package scan implements the receiver side of the protocol. The engine
// subscribes to radio ranging, validates the strongest candidate of the
// session of interest against the published presence record and reports
// detection, threshold and loss through callbacks.
//
// All engine state is owned by a single goroutine. Callbacks run on that
// goroutine and must not block for long. A callback may call StopScanning;
// no further callbacks run after it.
package scan

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackerost/attendance/pkg/log"
	"github.com/jackerost/attendance/pkg/metrics/v2"
	"github.com/jackerost/attendance/pkg/presence"
	"github.com/jackerost/attendance/pkg/private/serrors"
	"github.com/jackerost/attendance/pkg/radio"
)

var (
	// ErrStaleValidation indicates that a candidate failed validation
	// against cached presence data. It triggers a single refetch and never
	// reaches callers.
	ErrStaleValidation = errors.New("validation against stale presence data")
	// ErrScanStall indicates that ranging stayed silent through all
	// subscription restarts.
	ErrScanStall = errors.New("scan stalled")
	// ErrAlreadyScanning is returned by StartScanning while a scan runs.
	ErrAlreadyScanning = errors.New("already scanning")
)

// Fetcher reads presence records from the directory.
type Fetcher interface {
	Record(ctx context.Context, sessionID string) (*presence.Record, error)
}

// State is the detection state.
type State int32

const (
	NotDetected State = iota
	Detected
	ThresholdMet
)

func (s State) String() string {
	switch s {
	case Detected:
		return "detected"
	case ThresholdMet:
		return "threshold_met"
	default:
		return "not_detected"
	}
}

// Detection describes the accepted target.
type Detection struct {
	SessionID string
	Identity  radio.Identity
	RSSI      int
	Verdict   presence.Verdict
	// Mode is the scan type the presenter broadcasts for.
	Mode presence.Mode
	At   time.Time
}

// Callbacks receive the engine events. Nil callbacks are skipped.
type Callbacks struct {
	OnDetected     func(Detection)
	OnThresholdMet func(Detection)
	OnLost         func()
	// OnError receives environment failures of subscription restarts and
	// ErrScanStall once the restarts are exhausted.
	OnError func(error)
}

// Engine is the receiver scan engine. One engine runs at most one scan at a
// time.
type Engine struct {
	Ranger  radio.Ranger
	Fetcher Fetcher
	// Clock is the receiver clock aligned to the coordinator.
	Clock   presence.Clock
	Config  Config
	Metrics Metrics

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	loop   *loop
	state  atomic.Int32
}

// StartScanning subscribes to ranging and starts the detection loop for the
// session. Ranging failures are returned and the engine stays idle.
func (e *Engine) StartScanning(ctx context.Context, sessionID string, cb Callbacks) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel != nil {
		return ErrAlreadyScanning
	}
	cfg := e.Config
	cfg.InitDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	logger := log.FromCtx(ctx).New("session", sessionID)
	loopCtx = log.CtxWith(loopCtx, logger)
	l := &loop{
		engine:    e,
		cfg:       cfg,
		sessionID: sessionID,
		cb:        cb,
		cache: newPresenceCache(e.Fetcher, sessionID,
			cfg.CacheTTL.Duration, cfg.FetchTimeout.Duration),
		logger: logger,
	}
	if err := l.subscribe(loopCtx); err != nil {
		cancel()
		return err
	}
	e.state.Store(int32(NotDetected))
	e.cancel = cancel
	e.loop = l
	e.done = make(chan struct{})
	go func(done chan struct{}) {
		defer log.HandlePanic()
		defer close(done)
		l.run(loopCtx)
	}(e.done)
	logger.Debug("Scanning started")
	return nil
}

// StopScanning cancels all timers and the ranging subscription, flushes the
// cached presence data and resets the state. It is a no-op when not
// scanning. It waits for the loop to exit unless a callback is running, in
// which case the loop exits as soon as the callback returns.
func (e *Engine) StopScanning() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel == nil {
		return
	}
	l := e.loop
	// Set before inCallback is read, see loop.call.
	l.stopped.Store(true)
	e.cancel()
	if !l.inCallback.Load() {
		<-e.done
	}
	e.cancel, e.done, e.loop = nil, nil, nil
	e.state.Store(int32(NotDetected))
}

// State returns the current detection state.
func (e *Engine) State() State {
	return State(e.state.Load())
}

func (e *Engine) now() time.Time {
	if e.Clock == nil {
		return time.Now()
	}
	return e.Clock.Now()
}

// timer is a stoppable one-shot timer usable in a select. The channel of a
// disarmed timer is nil.
type timer struct {
	t *time.Timer
}

func (t *timer) arm(d time.Duration) {
	if t.t == nil {
		t.t = time.NewTimer(d)
		return
	}
	t.t.Reset(d)
}

func (t *timer) disarm() {
	if t.t != nil {
		t.t.Stop()
		t.t = nil
	}
}

func (t *timer) C() <-chan time.Time {
	if t.t == nil {
		return nil
	}
	return t.t.C
}

func (t *timer) fired() {
	t.t = nil
}

type loop struct {
	engine    *Engine
	cfg       Config
	sessionID string
	cb        Callbacks
	cache     *presenceCache
	logger    log.Logger

	obs       <-chan []radio.Observation
	subCancel context.CancelFunc

	// stopped is set by StopScanning. A stopped loop runs no callbacks and
	// no longer publishes its state.
	stopped    atomic.Bool
	inCallback atomic.Bool

	state    State
	accepted bool
	detected time.Time
	target   Detection
	restarts int

	threshold timer
	proximity timer
	backup    timer
	stall     timer
}

func (l *loop) run(ctx context.Context) {
	defer l.teardown()
	l.stall.arm(l.cfg.ScanTimeout.Duration)
	for {
		select {
		case <-ctx.Done():
			return
		case batch, ok := <-l.obs:
			if !ok {
				l.logger.Debug("Ranging subscription closed")
				l.obs = nil
				continue
			}
			l.onBatch(ctx, batch)
		case <-l.threshold.C():
			l.threshold.fired()
			if l.state == Detected && l.accepted {
				l.meetThreshold()
			}
		case <-l.proximity.C():
			l.proximity.fired()
			l.lose("proximity window elapsed")
		case <-l.backup.C():
			l.backup.fired()
			l.lose("no ranging batches")
		case <-l.stall.C():
			l.stall.fired()
			l.onStall(ctx)
		}
	}
}

func (l *loop) onBatch(ctx context.Context, batch []radio.Observation) {
	if l.state != NotDetected {
		l.backup.arm(2 * l.cfg.ProximityWindow.Duration)
	}
	d, ok := l.evaluate(ctx, batch)
	if !ok {
		l.accepted = false
		if l.state != NotDetected && l.proximity.C() == nil {
			l.proximity.arm(l.cfg.ProximityWindow.Duration)
		}
		return
	}
	l.accepted = true
	l.target = d
	l.restarts = 0
	l.proximity.disarm()
	switch l.state {
	case NotDetected:
		l.stall.disarm()
		l.detected = time.Now()
		l.setState(Detected)
		l.backup.arm(2 * l.cfg.ProximityWindow.Duration)
		if l.cb.OnDetected != nil {
			l.call(func() { l.cb.OnDetected(d) })
		}
		l.threshold.arm(l.cfg.DetectionThreshold.Duration)
	case Detected:
		if time.Since(l.detected) >= l.cfg.DetectionThreshold.Duration {
			l.threshold.disarm()
			l.meetThreshold()
		}
	}
}

// evaluate picks the strongest candidate of the session and validates it.
func (l *loop) evaluate(ctx context.Context, batch []radio.Observation) (Detection, bool) {
	rec, err := l.cache.Get(ctx)
	if err != nil {
		l.logger.Debug("Presence record unavailable", "err", err)
		l.engine.Metrics.observation("unavailable")
		return Detection{}, false
	}
	cand, ok := strongest(batch, rec.Major)
	if !ok {
		return Detection{}, false
	}
	now := l.engine.now()
	verdict, err := l.validate(rec, cand, now)
	if errors.Is(err, ErrStaleValidation) {
		metrics.CounterInc(l.engine.Metrics.StaleRefetches)
		if rec, err = l.cache.Refresh(ctx); err != nil {
			l.logger.Debug("Presence refetch failed", "err", err)
			l.engine.Metrics.observation("unavailable")
			return Detection{}, false
		}
		// The major cannot change with a refetch, the candidate stays.
		verdict, err = l.validate(rec, cand, now)
	}
	if err != nil {
		l.engine.Metrics.observation(reason(err))
		return Detection{}, false
	}
	l.engine.Metrics.observation(verdict.String())
	return Detection{
		SessionID: l.sessionID,
		Identity:  cand.Identity,
		RSSI:      cand.RSSI,
		Verdict:   verdict,
		Mode:      rec.Mode,
		At:        now,
	}, true
}

var (
	errWeakSignal     = errors.New("signal too weak")
	errStaleHeartbeat = errors.New("heartbeat too old")
)

// validate runs the pool, signal strength and liveness gates in order.
func (l *loop) validate(
	rec *presence.Record,
	cand radio.Observation,
	now time.Time,
) (presence.Verdict, error) {

	if !rec.Advertising(now) {
		return presence.MatchNone, ErrStaleValidation
	}
	verdict := rec.Match(cand.Identity.Minor, now)
	if !verdict.Accepted() {
		return verdict, ErrStaleValidation
	}
	if cand.RSSI < l.cfg.RSSIThreshold {
		return verdict, serrors.JoinNoStack(errWeakSignal, nil, "rssi", cand.RSSI)
	}
	if !rec.Live(now, l.cfg.HeartbeatFreshness.Duration) {
		return verdict, serrors.JoinNoStack(errStaleHeartbeat, nil,
			"age", rec.HeartbeatAge(now))
	}
	return verdict, nil
}

func reason(err error) string {
	switch {
	case errors.Is(err, ErrStaleValidation):
		return "rejected_pool"
	case errors.Is(err, errWeakSignal):
		return "rejected_rssi"
	case errors.Is(err, errStaleHeartbeat):
		return "rejected_heartbeat"
	default:
		return "rejected"
	}
}

// strongest returns the strongest observation of the application namespace
// with the given major.
func strongest(batch []radio.Observation, major uint16) (radio.Observation, bool) {
	var best radio.Observation
	found := false
	for _, o := range batch {
		if o.Identity.Namespace != radio.Namespace || o.Identity.Major != major {
			continue
		}
		if !found || o.RSSI > best.RSSI {
			best, found = o, true
		}
	}
	return best, found
}

func (l *loop) meetThreshold() {
	l.setState(ThresholdMet)
	if l.cb.OnThresholdMet != nil {
		target := l.target
		l.call(func() { l.cb.OnThresholdMet(target) })
	}
}

func (l *loop) lose(cause string) {
	l.threshold.disarm()
	l.proximity.disarm()
	l.backup.disarm()
	if l.state == NotDetected {
		return
	}
	l.logger.Debug("Target lost", "cause", cause, "state", l.state)
	l.accepted = false
	l.setState(NotDetected)
	l.stall.arm(l.cfg.ScanTimeout.Duration)
	if l.cb.OnLost != nil {
		l.call(l.cb.OnLost)
	}
}

func (l *loop) onStall(ctx context.Context) {
	if l.restarts >= l.cfg.MaxStallRestarts {
		l.logger.Info("Scan stalled, restarts exhausted", "restarts", l.restarts)
		l.report(serrors.JoinNoStack(ErrScanStall, nil, "restarts", l.restarts))
		return
	}
	l.restarts++
	metrics.CounterInc(l.engine.Metrics.StallRestarts)
	l.logger.Debug("Restarting ranging subscription", "attempt", l.restarts)
	if err := l.subscribe(ctx); err != nil {
		l.report(err)
	}
	l.stall.arm(l.cfg.ScanTimeout.Duration)
}

func (l *loop) subscribe(ctx context.Context) error {
	if l.subCancel != nil {
		l.subCancel()
	}
	subCtx, cancel := context.WithCancel(ctx)
	obs, err := l.engine.Ranger.Range(subCtx, radio.Namespace)
	if err != nil {
		cancel()
		l.obs, l.subCancel = nil, nil
		return serrors.Wrap("subscribing to ranging", err)
	}
	l.obs, l.subCancel = obs, cancel
	return nil
}

func (l *loop) report(err error) {
	if l.cb.OnError != nil {
		l.call(func() { l.cb.OnError(err) })
	}
}

// call runs a callback unless the loop was stopped. inCallback is set before
// stopped is read and StopScanning does the reverse, so either the callback
// is skipped or StopScanning does not wait for the loop.
func (l *loop) call(f func()) {
	l.inCallback.Store(true)
	defer l.inCallback.Store(false)
	if l.stopped.Load() {
		return
	}
	f()
}

func (l *loop) setState(s State) {
	l.state = s
	if l.stopped.Load() {
		return
	}
	l.engine.state.Store(int32(s))
	l.engine.Metrics.transition(s)
}

func (l *loop) teardown() {
	l.threshold.disarm()
	l.proximity.disarm()
	l.backup.disarm()
	l.stall.disarm()
	if l.subCancel != nil {
		l.subCancel()
	}
	l.cache.Flush()
	l.logger.Debug("Scanning stopped")
}
