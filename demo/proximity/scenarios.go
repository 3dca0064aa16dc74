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
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/jackerost/attendance/ledger"
	"github.com/jackerost/attendance/pkg/presence"
	"github.com/jackerost/attendance/pkg/private/serrors"
	"github.com/jackerost/attendance/receiver/checkin"
	"github.com/jackerost/attendance/receiver/scan"
)

type scenario struct {
	name  string
	short string
	run   func(ctx context.Context, w *world, out io.Writer) error
}

var scenarioEntry = scenario{
	name:  "entry",
	short: "a receiver next to the presenter marks entry",
	run: func(ctx context.Context, w *world, out io.Writer) error {
		eng, _ := w.presenterEngine()
		if err := eng.Start(ctx, sessionID, presence.ModeEntry); err != nil {
			return serrors.Wrap("starting broadcast", err)
		}
		defer eng.Dispose(context.WithoutCancel(ctx))

		f := &checkin.Flow{
			Scanner: w.receiverEngine(),
			Reader: checkin.ReaderFunc(func(context.Context) (string, error) {
				return credential, nil
			}),
			Ledger:   w.coord,
			CallerID: subjectID,
		}
		start := time.Now()
		res, err := f.Run(ctx, sessionID)
		if err != nil {
			return err
		}
		if res.Outcome != ledger.OutcomeCreated {
			return serrors.New("unexpected outcome", "outcome", res.Outcome)
		}
		fmt.Fprintf(out, "    marked %s after %s: %s\n", subjectID,
			time.Since(start).Round(time.Millisecond), res.Outcome)
		return nil
	},
}

var scenarioLoss = scenario{
	name:  "loss",
	short: "the presenter stops and the receiver reports a single loss",
	run: func(ctx context.Context, w *world, out io.Writer) error {
		eng, _ := w.presenterEngine()
		if err := eng.Start(ctx, sessionID, presence.ModeEntry); err != nil {
			return serrors.Wrap("starting broadcast", err)
		}
		defer eng.Dispose(context.WithoutCancel(ctx))

		met := make(chan struct{}, 1)
		lost := make(chan struct{}, 1)
		failed := make(chan error, 1)
		var losses atomic.Int32
		receiver := w.receiverEngine()
		err := receiver.StartScanning(ctx, sessionID, scan.Callbacks{
			OnThresholdMet: func(scan.Detection) { notify(met) },
			OnLost: func() {
				losses.Add(1)
				notify(lost)
			},
			OnError: func(err error) {
				select {
				case failed <- err:
				default:
				}
			},
		})
		if err != nil {
			return err
		}
		defer receiver.StopScanning()

		if err := wait(ctx, met, failed); err != nil {
			return serrors.Wrap("waiting for presence", err)
		}
		fmt.Fprintf(out, "    presence verified\n")
		if err := eng.Stop(ctx); err != nil {
			return serrors.Wrap("stopping broadcast", err)
		}
		stopped := time.Now()
		if err := wait(ctx, lost, failed); err != nil {
			return serrors.Wrap("waiting for loss", err)
		}
		fmt.Fprintf(out, "    lost after %s\n", time.Since(stopped).Round(time.Millisecond))

		select {
		case <-time.After(w.opts.proximityWindow):
		case <-ctx.Done():
			return ctx.Err()
		}
		if n := losses.Load(); n != 1 {
			return serrors.New("loss reported more than once", "count", n)
		}
		return nil
	},
}

var scenarioLedger = scenario{
	name:  "ledger",
	short: "the session owner marks entry and exit for a subject",
	run: func(ctx context.Context, w *world, out io.Writer) error {
		mark := func(mode presence.Mode) (ledger.Result, error) {
			return w.coord.MarkAttendance(ctx, ledger.Request{
				SessionID: sessionID,
				SubjectID: otherSubject,
				ScanType:  mode,
			})
		}
		for _, step := range []struct {
			mode    presence.Mode
			outcome ledger.Outcome
		}{
			{mode: presence.ModeEntry, outcome: ledger.OutcomeCreated},
			{mode: presence.ModeEntry, outcome: ledger.OutcomeAlreadyOpen},
			{mode: presence.ModeExit, outcome: ledger.OutcomeSealed},
		} {
			res, err := mark(step.mode)
			if err != nil {
				return err
			}
			if res.Outcome != step.outcome {
				return serrors.New("unexpected outcome", "mode", step.mode,
					"expected", step.outcome, "actual", res.Outcome)
			}
			fmt.Fprintf(out, "    %s: %s\n", step.mode, res.Outcome)
		}
		_, err := mark(presence.ModeExit)
		if !errors.Is(err, ledger.ErrAlreadyComplete) {
			return serrors.New("repeated exit accepted", "err", err)
		}
		fmt.Fprintf(out, "    %s: %v\n", presence.ModeExit, err)
		return nil
	},
}

func notify(c chan<- struct{}) {
	select {
	case c <- struct{}{}:
	default:
	}
}

func wait(ctx context.Context, c <-chan struct{}, failed <-chan error) error {
	select {
	case <-c:
		return nil
	case err := <-failed:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
