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

// Command coordinator runs the attendance coordinator. It owns the shared
// directory, publishes the presence records of rotating sessions and records
// attendance on behalf of presenters and receivers.
package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jackerost/attendance/coordinator/api"
	"github.com/jackerost/attendance/coordinator/config"
	"github.com/jackerost/attendance/coordinator/pool"
	"github.com/jackerost/attendance/ledger"
	"github.com/jackerost/attendance/pkg/log"
	"github.com/jackerost/attendance/pkg/metrics/v2"
	"github.com/jackerost/attendance/pkg/private/serrors"
	"github.com/jackerost/attendance/private/app"
	"github.com/jackerost/attendance/private/app/launcher"
	"github.com/jackerost/attendance/private/env"
	"github.com/jackerost/attendance/private/periodic"
	"github.com/jackerost/attendance/private/storage"
	"github.com/jackerost/attendance/private/storage/directory/seed"
)

var globalCfg config.Config

func main() {
	application := launcher.Application{
		TOMLConfig: &globalCfg,
		ShortName:  "Attendance Coordinator",
		Main:       realMain,
	}
	application.Run()
}

func realMain(ctx context.Context) error {
	dir, err := storage.NewDirectoryStorage(
		*storage.SetID(globalCfg.DirectoryDB, globalCfg.General.ID),
		storage.DirectoryOptions{
			Metrics:       storage.NewCleanerMetrics(),
			RunnerMetrics: periodic.NewMetrics("directory_cleaner"),
		},
	)
	if err != nil {
		return serrors.Wrap("initializing directory", err)
	}
	defer dir.Close()

	if file := globalCfg.Seed.File; file != "" {
		f, err := seed.Load(file)
		if err != nil {
			return err
		}
		if err := f.Apply(ctx, dir); err != nil {
			return serrors.Wrap("seeding directory", err, "file", file)
		}
		log.Info("Directory seeded", "file", file, "sessions", len(f.Sessions),
			"subjects", len(f.Subjects))
	}

	factory := metrics.ApplyOptions().Auto()
	server := &api.Server{
		Pool: &pool.Manager{
			DB:      dir,
			Params:  globalCfg.Protocol,
			Metrics: pool.NewMetrics(factory),
		},
		Ledger: &ledger.Ledger{
			DB:      dir,
			Metrics: ledger.NewMetrics(factory),
		},
		Auth: api.HeaderAuthenticator{Header: globalCfg.API.CallerHeader},
	}

	g, errCtx := errgroup.WithContext(ctx)
	var cleanup app.Cleanup

	log.Info("Exposing API", "addr", globalCfg.API.Address)
	apiServer := &http.Server{
		Addr:              globalCfg.API.Address,
		Handler:           api.Handler(server, globalCfg.API.AllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}
	g.Go(func() error {
		defer log.HandlePanic()
		err := apiServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return serrors.Wrap("serving API", err, "addr", globalCfg.API.Address)
		}
		return nil
	})
	cleanup.Add(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), env.ShutdownGraceInterval)
		defer cancel()
		return apiServer.Shutdown(ctx)
	})

	g.Go(func() error {
		defer log.HandlePanic()
		return globalCfg.Metrics.ServePrometheus(errCtx)
	})

	g.Go(func() error {
		defer log.HandlePanic()
		<-errCtx.Done()
		return cleanup.Do()
	})

	return g.Wait()
}
