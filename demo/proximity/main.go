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

// Command proximity runs the proximity attendance flow end to end over a
// simulated radio and a temporary directory.
//
// The presenter engine rotates identifiers through the pool manager, the
// receiver engine ranges the simulated air and the ledger records the
// resulting attendance. With --http the presenter and the receiver talk to
// the coordinator over its HTTP API instead of in-process.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/jackerost/attendance/pkg/log"
	"github.com/jackerost/attendance/pkg/presence"
	"github.com/jackerost/attendance/private/app/command"
)

type options struct {
	rssi            int
	slot            time.Duration
	proximityWindow time.Duration
	timeout         time.Duration
	http            bool
	prometheus      string
	logLevel        string
	noColor         bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRoot().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRoot() *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:   "proximity",
		Short: "Simulate proximity verified attendance",
		Long: `Simulate proximity verified attendance.

Without a subcommand all scenarios run in order:

  entry   a receiver next to the presenter verifies presence and marks entry
  loss    the presenter stops and the receiver reports the loss once
  ledger  the session owner marks entry and exit for a subject`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return log.Setup(log.Config{Console: log.ConsoleConfig{Level: opts.logLevel}})
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarios(cmd, opts, scenarioEntry, scenarioLoss, scenarioLedger)
		},
	}
	flags := cmd.PersistentFlags()
	flags.IntVar(&opts.rssi, "rssi", -65, "Signal strength the receiver observes in dBm")
	flags.DurationVar(&opts.slot, "slot", 2*time.Second, "Slot interval of the rotation")
	flags.DurationVar(&opts.proximityWindow, "proximity-window", 3*time.Second,
		"Time without qualifying observations until the presenter is lost")
	flags.DurationVar(&opts.timeout, "timeout", 30*time.Second, "Timeout of each scenario")
	flags.BoolVar(&opts.http, "http", false, "Connect through the coordinator HTTP API")
	flags.StringVar(&opts.prometheus, "prometheus", "",
		"Address to export prometheus metrics on")
	flags.StringVar(&opts.logLevel, "log.level", "error", "Console logging level")
	flags.BoolVar(&opts.noColor, "no-color", false, "Disable colored output")

	for _, s := range []scenario{scenarioEntry, scenarioLoss, scenarioLedger} {
		cmd.AddCommand(&cobra.Command{
			Use:   s.name,
			Short: s.short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runScenarios(cmd, opts, s)
			},
		})
	}
	cmd.AddCommand(
		command.NewCompletion(cmd),
		command.NewVersion(cmd),
		command.NewGendocs(cmd),
	)
	return cmd
}

func runScenarios(cmd *cobra.Command, opts options, scenarios ...scenario) error {
	params, err := opts.params()
	if err != nil {
		return err
	}
	w, err := newWorld(cmd.Context(), opts, params)
	if err != nil {
		return err
	}
	defer w.Close()

	out := cmd.OutOrStdout()
	pass, fail := color.New(), color.New()
	if !opts.noColor && isatty.IsTerminal(os.Stdout.Fd()) {
		pass = color.New(color.FgGreen)
		fail = color.New(color.FgRed)
	}
	var rows [][]string
	defer func() { summary(out, rows) }()
	for _, s := range scenarios {
		fmt.Fprintf(out, "=== %s: %s\n", s.name, s.short)
		ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
		start := time.Now()
		err := s.run(ctx, w, out)
		cancel()
		took := time.Since(start).Round(time.Millisecond).String()
		if err != nil {
			fail.Fprintf(out, "--- FAIL %s: %v\n", s.name, err)
			rows = append(rows, []string{s.name, "FAIL", took})
			return err
		}
		pass.Fprintf(out, "--- PASS %s\n", s.name)
		rows = append(rows, []string{s.name, "PASS", took})
	}
	return nil
}

func summary(w io.Writer, rows [][]string) {
	fmt.Fprintln(w)
	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetBorder(false)
	table.SetHeaderLine(false)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeader([]string{"SCENARIO", "RESULT", "DURATION"})
	table.AppendBulk(rows)
	table.Render()
}

// params scales the protocol timing to the slot interval.
func (o options) params() (presence.Params, error) {
	p := presence.Params{}
	p.SlotInterval.Duration = o.slot
	p.Grace.Duration = o.slot * 3 / 8
	p.PreRollTolerance.Duration = o.slot * 3 / 80
	p.StopGrace.Duration = o.slot
	p.InitDefaults()
	if err := p.Validate(); err != nil {
		return presence.Params{}, err
	}
	return p, nil
}
