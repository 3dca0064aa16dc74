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

// Package launcher runs the server binaries of this repository. It handles
// the command line, configuration loading, logging setup and signals, and
// then passes control to the application.
package launcher

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jackerost/attendance/pkg/log"
	"github.com/jackerost/attendance/pkg/private/prom"
	"github.com/jackerost/attendance/pkg/private/serrors"
	"github.com/jackerost/attendance/private/app/command"
	libconfig "github.com/jackerost/attendance/private/config"
	"github.com/jackerost/attendance/private/env"
)

// Configuration keys used by the launcher.
const (
	cfgConfigFile       = "config"
	cfgGeneralID        = "general.id"
	cfgLogConsoleLevel  = "log.console.level"
	cfgLogConsoleFormat = "log.console.format"
)

// EnvConfigFile names the environment variable that selects the config file
// if the --config flag is not given.
const EnvConfigFile = "ATTENDANCE_CONFIG"

// Application models a server application.
type Application struct {
	// TOMLConfig holds the application-specific TOML configuration. It is
	// loaded, defaulted and validated before Main runs.
	TOMLConfig libconfig.Config

	// ShortName is the short name of the application. If empty, the
	// executable name is used.
	ShortName string

	// Main is the custom logic of the application. ctx is cancelled on
	// SIGINT and SIGTERM. If Main returns an error, Run exits with a non-zero
	// exit code.
	Main func(ctx context.Context) error

	// ErrorWriter specifies where error output is printed. If nil,
	// os.Stderr is used.
	ErrorWriter io.Writer

	config *viper.Viper
}

// Run sets up the common server harness, and then passes control to the Main
// function (if one exists). It exits the process on a fatal error.
func (a *Application) Run() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := a.run(ctx, os.Args[0], os.Args[1:])
	stop()
	if err != nil {
		fmt.Fprintf(a.getErrorWriter(), "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func (a *Application) run(ctx context.Context, arg0 string, args []string) error {
	executable := filepath.Base(arg0)
	shortName := a.getShortName(executable)

	cmd := newCommandTemplate(executable, shortName, a.TOMLConfig)
	if args == nil {
		args = []string{}
	}
	cmd.SetArgs(args)
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return a.executeCommand(cmd.Context(), shortName)
	}
	a.config = viper.New()
	a.config.SetDefault(cfgLogConsoleLevel, log.DefaultConsoleLevel)
	a.config.SetDefault(cfgLogConsoleFormat, log.DefaultConsoleFormat)
	a.config.SetDefault(cfgGeneralID, executable)
	// The flag takes precedence over the environment.
	if err := a.config.BindEnv(cfgConfigFile, EnvConfigFile); err != nil {
		return err
	}
	if err := a.config.BindPFlag(cfgConfigFile, cmd.Flags().Lookup(cfgConfigFile)); err != nil {
		return err
	}
	return cmd.ExecuteContext(ctx)
}

func (a *Application) executeCommand(ctx context.Context, shortName string) error {
	file := a.config.GetString(cfgConfigFile)
	if file == "" {
		return serrors.New("no config file given", "flag", "--"+cfgConfigFile,
			"env", EnvConfigFile)
	}
	// Load launcher configurations from the same config file as the custom
	// application configuration.
	a.config.SetConfigType("toml")
	a.config.SetConfigFile(file)
	if err := a.config.ReadInConfig(); err != nil {
		return serrors.Wrap("loading generic server config from file", err, "file", file)
	}
	if err := libconfig.LoadFile(file, a.TOMLConfig); err != nil {
		return serrors.Wrap("loading config from file", err, "file", file)
	}
	a.TOMLConfig.InitDefaults()

	if err := log.Setup(a.getLogging()); err != nil {
		return serrors.Wrap("initialize logging", err)
	}
	defer log.Flush()
	id := a.config.GetString(cfgGeneralID)
	env.LogAppStarted(shortName, id)
	defer env.LogAppStopped(shortName, id)
	defer log.HandlePanic()

	prom.ExportElementID(id)
	if err := a.TOMLConfig.Validate(); err != nil {
		return serrors.Wrap("validate config", err)
	}
	if a.Main == nil {
		return nil
	}
	return a.Main(ctx)
}

func (a *Application) getLogging() log.Config {
	return log.Config{
		Console: log.ConsoleConfig{
			Level:  a.config.GetString(cfgLogConsoleLevel),
			Format: a.config.GetString(cfgLogConsoleFormat),
		},
	}
}

func (a *Application) getShortName(executable string) string {
	if a.ShortName != "" {
		return a.ShortName
	}
	return executable
}

func (a *Application) getErrorWriter() io.Writer {
	if a.ErrorWriter != nil {
		return a.ErrorWriter
	}
	return os.Stderr
}

func newCommandTemplate(executable, shortName string, cfg libconfig.Sampler) *cobra.Command {
	cmd := &cobra.Command{
		Use:   executable,
		Short: shortName,
		Example: fmt.Sprintf("  %[1]s --config %[1]s.toml\n"+
			"  %[2]s=%[1]s.toml %[1]s", executable, EnvConfigFile),
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.NoArgs,
	}
	cmd.AddCommand(
		command.NewCompletion(cmd),
		command.NewSample(cmd, cfg),
		command.NewVersion(cmd),
		command.NewGendocs(cmd),
	)
	cmd.Flags().String(cfgConfigFile, "", "Configuration file (required)")
	return cmd
}
