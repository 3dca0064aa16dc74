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

package launcher

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jackerost/attendance/pkg/log"
	"github.com/jackerost/attendance/private/config"
)

type testGeneral struct {
	ID string `toml:"id,omitempty"`
}

type testConfig struct {
	Greeting string      `toml:"greeting,omitempty"`
	General  testGeneral `toml:"general,omitempty"`
	Log      log.Config  `toml:"log,omitempty"`
}

func (c *testConfig) InitDefaults() {
	if c.Greeting == "" {
		c.Greeting = "hello"
	}
}

func (c *testConfig) Validate() error {
	if c.Greeting == "bye" {
		return errors.New("invalid greeting")
	}
	return nil
}

func (c *testConfig) Sample(dst io.Writer, _ config.Path, _ config.CtxMap) {
	config.WriteString(dst, "greeting = \"hello\"\n")
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	file := filepath.Join(t.TempDir(), "app.toml")
	require.NoError(t, os.WriteFile(file, []byte(content), 0o600))
	return file
}

func TestRun(t *testing.T) {
	testCases := map[string]struct {
		Config    string
		UseEnv    bool
		Greeting  string
		AssertErr assert.ErrorAssertionFunc
	}{
		"flag": {
			Config:    "greeting = \"hi\"\n[general]\nid = \"app-1\"\n",
			Greeting:  "hi",
			AssertErr: assert.NoError,
		},
		"env": {
			Config:    "[general]\nid = \"app-1\"\n",
			UseEnv:    true,
			Greeting:  "hello",
			AssertErr: assert.NoError,
		},
		"invalid": {
			Config:    "greeting = \"bye\"\n",
			AssertErr: assert.Error,
		},
		"unknown key": {
			Config:    "farewell = \"bye\"\n",
			AssertErr: assert.Error,
		},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			file := writeConfig(t, tc.Config)
			args := []string{"--config", file}
			if tc.UseEnv {
				t.Setenv(EnvConfigFile, file)
				args = nil
			}
			var cfg testConfig
			var greeting string
			app := Application{
				TOMLConfig: &cfg,
				Main: func(ctx context.Context) error {
					greeting = cfg.Greeting
					return nil
				},
			}
			err := app.run(context.Background(), "/usr/bin/app", args)
			tc.AssertErr(t, err)
			assert.Equal(t, tc.Greeting, greeting)
		})
	}
}

func TestRunWithoutConfig(t *testing.T) {
	t.Setenv(EnvConfigFile, "")
	app := Application{TOMLConfig: &testConfig{}}
	assert.Error(t, app.run(context.Background(), "app", nil))
}

func TestMainError(t *testing.T) {
	file := writeConfig(t, "")
	app := Application{
		TOMLConfig: &testConfig{},
		Main:       func(context.Context) error { return errors.New("boom") },
	}
	assert.EqualError(t, app.run(context.Background(), "app", []string{"--config", file}),
		"boom")
}

func TestMainContext(t *testing.T) {
	file := writeConfig(t, "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	app := Application{
		TOMLConfig: &testConfig{},
		Main: func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		},
	}
	err := app.run(ctx, "app", []string{"--config", file})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSample(t *testing.T) {
	var buf bytes.Buffer
	cmd := newCommandTemplate("app", "App", &testConfig{})
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{"sample"})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "greeting = \"hello\"\n", buf.String())
}

func TestGendocs(t *testing.T) {
	dir := t.TempDir()
	cmd := newCommandTemplate("app", "App", &testConfig{})
	cmd.SetArgs([]string{"gendocs", dir})
	require.NoError(t, cmd.Execute())
	assert.FileExists(t, filepath.Join(dir, "app.md"))
	assert.FileExists(t, filepath.Join(dir, "app_sample.md"))
}
