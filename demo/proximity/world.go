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

package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jackerost/attendance/coordinator/api"
	"github.com/jackerost/attendance/coordinator/api/client"
	"github.com/jackerost/attendance/coordinator/pool"
	"github.com/jackerost/attendance/ledger"
	"github.com/jackerost/attendance/pkg/log"
	"github.com/jackerost/attendance/pkg/metrics/v2"
	"github.com/jackerost/attendance/pkg/presence"
	"github.com/jackerost/attendance/pkg/private/serrors"
	"github.com/jackerost/attendance/pkg/radio"
	"github.com/jackerost/attendance/pkg/radio/simradio"
	"github.com/jackerost/attendance/presenter/broadcast"
	"github.com/jackerost/attendance/private/app"
	"github.com/jackerost/attendance/private/env"
	"github.com/jackerost/attendance/private/periodic"
	"github.com/jackerost/attendance/private/storage"
	"github.com/jackerost/attendance/private/storage/directory/seed"
	"github.com/jackerost/attendance/receiver/checkin"
	"github.com/jackerost/attendance/receiver/scan"
)

// Directory content of the simulation.
const (
	sessionID  = "demo-session"
	presenter  = "lecturer"
	scopeID    = "demo-group"
	subjectID  = "student"
	credential = "card-student"
	// otherSubject is marked by the presenter in the ledger scenario.
	otherSubject = "student-2"
)

// coordinator is what the presenter and the receiver need from the
// coordinator. It is satisfied in-process and over HTTP.
type coordinator interface {
	broadcast.Rotator
	broadcast.Sessions
	scan.Fetcher
	checkin.Marker
	MarkAttendance(ctx context.Context, req ledger.Request) (ledger.Result, error)
}

// world is one simulated deployment: a directory, a coordinator, the air and
// the metrics of all components.
type world struct {
	opts   options
	params presence.Params
	air    *simradio.Air
	coord  coordinator
	// clock is the receiver clock aligned to the coordinator.
	clock presence.Clock

	broadcastMetrics broadcast.Metrics
	scanMetrics      scan.Metrics

	g       *errgroup.Group
	cancel  context.CancelFunc
	cleanup app.Cleanup
}

func newWorld(ctx context.Context, opts options, params presence.Params) (*world, error) {
	w := &world{
		opts:   opts,
		params: params,
		air:    simradio.NewAir(100 * time.Millisecond),
		clock:  presence.SystemClock{},
	}
	ctx, w.cancel = context.WithCancel(ctx)
	w.g, ctx = errgroup.WithContext(ctx)
	if err := w.init(ctx); err != nil {
		w.Close()
		return nil, err
	}
	return w, nil
}

func (w *world) init(ctx context.Context) error {
	dirPath, err := os.MkdirTemp("", "proximity-demo-")
	if err != nil {
		return serrors.Wrap("creating directory", err)
	}
	w.cleanup.Add(func() error { return os.RemoveAll(dirPath) })

	var dirOpts storage.DirectoryOptions
	var poolMetrics pool.Metrics
	var ledgerMetrics ledger.Metrics
	if w.opts.prometheus != "" {
		factory := metrics.ApplyOptions().Auto()
		dirOpts.Metrics = storage.NewCleanerMetrics()
		dirOpts.RunnerMetrics = periodic.NewMetrics("directory_cleaner")
		poolMetrics = pool.NewMetrics(factory)
		ledgerMetrics = ledger.NewMetrics(factory)
		w.broadcastMetrics = broadcast.NewMetrics(factory)
		w.scanMetrics = scan.NewMetrics(factory)
		promCfg := env.Metrics{Prometheus: w.opts.prometheus}
		w.g.Go(func() error {
			defer log.HandlePanic()
			return promCfg.ServePrometheus(ctx)
		})
	}
	dir, err := storage.NewDirectoryStorage(storage.DBConfig{
		Connection: filepath.Join(dirPath, "directory.db"),
	}, dirOpts)
	if err != nil {
		return err
	}
	w.cleanup.Add(dir.Close)

	now := time.Now()
	f := seed.File{
		Sessions: []seed.Session{{
			ID:       sessionID,
			Owner:    presenter,
			Scope:    scopeID,
			StartsAt: now.Add(-10 * time.Minute),
			EndsAt:   now.Add(time.Hour),
		}},
		Subjects: []seed.Subject{
			{ID: subjectID, Name: "Student", Credentials: []string{credential},
				Scopes: []string{scopeID}},
			{ID: otherSubject, Name: "Second Student", Scopes: []string{scopeID}},
		},
	}
	if err := f.Apply(ctx, dir); err != nil {
		return err
	}

	manager := &pool.Manager{DB: dir, Params: w.params, Metrics: poolMetrics}
	l := &ledger.Ledger{DB: dir, Metrics: ledgerMetrics}
	if !w.opts.http {
		w.coord = inProcess{Caller: pool.Caller{Manager: manager, ID: presenter}, ledger: l}
		return nil
	}
	return w.serve(ctx, &api.Server{Pool: manager, Ledger: l})
}

// serve exposes the coordinator on a loopback port and connects to it.
func (w *world) serve(ctx context.Context, s *api.Server) error {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return serrors.Wrap("listening", err)
	}
	server := &http.Server{Handler: api.Handler(s, nil), ReadHeaderTimeout: time.Second}
	w.g.Go(func() error {
		defer log.HandlePanic()
		if err := server.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return serrors.Wrap("serving API", err)
		}
		return nil
	})
	w.cleanup.Add(server.Close)

	c, err := client.New("http://"+lis.Addr().String(), presenter, nil)
	if err != nil {
		return err
	}
	offset, err := c.EstimateOffset(ctx)
	if err != nil {
		return serrors.Wrap("estimating clock offset", err)
	}
	log.Info("Connected to coordinator", "addr", lis.Addr(), "offset", offset)
	w.clock = presence.OffsetClock{Offset: offset}
	w.coord = c
	return nil
}

// Close tears the world down.
func (w *world) Close() error {
	w.cancel()
	err := w.cleanup.Do()
	if gErr := w.g.Wait(); err == nil {
		err = gErr
	}
	return err
}

// presenterEngine returns a broadcast engine of the session owner.
func (w *world) presenterEngine() (*broadcast.Engine, *simradio.Advertiser) {
	adv := w.air.NewAdvertiser()
	return &broadcast.Engine{
		Advertiser: adv,
		Rotator:    w.coord,
		Sessions:   w.coord,
		Params:     w.params,
		Metrics:    w.broadcastMetrics,
	}, adv
}

// receiverEngine returns a scan engine observing every presenter at the
// configured signal strength.
func (w *world) receiverEngine() *scan.Engine {
	cfg := scan.DefaultConfig()
	cfg.ProximityWindow.Duration = w.opts.proximityWindow
	cfg.HeartbeatFreshness = w.params.HeartbeatFreshness
	return &scan.Engine{
		Ranger:  w.air.NewRanger(func(_ radio.Identity) int { return w.opts.rssi }),
		Fetcher: w.coord,
		Clock:   w.clock,
		Config:  cfg,
		Metrics: w.scanMetrics,
	}
}

type inProcess struct {
	pool.Caller
	ledger *ledger.Ledger
}

func (c inProcess) MarkSelf(
	ctx context.Context,
	callerID, credentialID, sessionID string,
	scanType presence.Mode,
) (ledger.Result, error) {

	return c.ledger.MarkSelf(ctx, callerID, credentialID, sessionID, scanType)
}

func (c inProcess) MarkAttendance(ctx context.Context, req ledger.Request) (ledger.Result, error) {
	s, err := c.Manager.Session(ctx, req.SessionID)
	if err != nil {
		return ledger.Result{}, err
	}
	if s.OwnerID != c.ID {
		return ledger.Result{}, pool.ErrUnauthorized
	}
	return c.ledger.MarkAttendance(ctx, req)
}
