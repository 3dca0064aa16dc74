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

// Package config describes the configuration of the coordinator.
package config

import (
	"io"
	"net"

	"github.com/jackerost/attendance/coordinator/api"
	"github.com/jackerost/attendance/pkg/log"
	"github.com/jackerost/attendance/pkg/presence"
	"github.com/jackerost/attendance/pkg/private/serrors"
	"github.com/jackerost/attendance/private/config"
	"github.com/jackerost/attendance/private/env"
	"github.com/jackerost/attendance/private/storage"
)

// DefaultAPIAddress is the default listen address of the API.
const DefaultAPIAddress = "127.0.0.1:30452"

var _ config.Config = (*Config)(nil)

// Config is the coordinator configuration.
type Config struct {
	General     env.General      `toml:"general,omitempty"`
	Logging     log.Config       `toml:"log,omitempty"`
	Metrics     env.Metrics      `toml:"metrics,omitempty"`
	DirectoryDB storage.DBConfig `toml:"directory_db,omitempty"`
	Seed        Seed             `toml:"seed,omitempty"`
	API         API              `toml:"api,omitempty"`
	Protocol    presence.Params  `toml:"protocol,omitempty"`
}

// InitDefaults initializes the default values for all parts of the config.
func (cfg *Config) InitDefaults() {
	config.InitAll(
		&cfg.General,
		&cfg.Logging,
		&cfg.Metrics,
		&cfg.DirectoryDB,
		&cfg.Seed,
		&cfg.API,
		&cfg.Protocol,
	)
}

// Validate validates all parts of the config.
func (cfg *Config) Validate() error {
	return config.ValidateAll(
		&cfg.General,
		&cfg.Logging,
		&cfg.Metrics,
		&cfg.DirectoryDB,
		&cfg.Seed,
		&cfg.API,
		&cfg.Protocol,
	)
}

// Sample generates a sample config file for the coordinator.
func (cfg *Config) Sample(dst io.Writer, path config.Path, _ config.CtxMap) {
	config.WriteSample(dst, path, config.CtxMap{config.ID: idSample},
		&cfg.General,
		&cfg.Logging,
		&cfg.Metrics,
		&cfg.DirectoryDB,
		&cfg.Seed,
		&cfg.API,
		&cfg.Protocol,
	)
}

// ConfigName is the toml key.
func (cfg *Config) ConfigName() string {
	return "coordinator_config"
}

var _ config.Config = (*API)(nil)

// API configures the HTTP API.
type API struct {
	// Address is the listen address.
	Address string `toml:"address,omitempty"`
	// AllowedOrigins lists the origins allowed to issue cross-origin
	// requests. CORS is disabled if empty.
	AllowedOrigins []string `toml:"allowed_origins,omitempty"`
	// CallerHeader is the request header naming the authenticated caller.
	CallerHeader string `toml:"caller_header,omitempty"`
}

func (cfg *API) InitDefaults() {
	if cfg.Address == "" {
		cfg.Address = DefaultAPIAddress
	}
	if cfg.CallerHeader == "" {
		cfg.CallerHeader = api.CallerHeader
	}
}

func (cfg *API) Validate() error {
	if _, _, err := net.SplitHostPort(cfg.Address); err != nil {
		return serrors.Wrap("invalid api address", err, "address", cfg.Address)
	}
	return nil
}

func (cfg *API) Sample(dst io.Writer, _ config.Path, _ config.CtxMap) {
	config.WriteString(dst, apiSample)
}

func (cfg *API) ConfigName() string {
	return "api"
}

var _ config.Config = (*Seed)(nil)

// Seed configures the directory seed file applied on start.
type Seed struct {
	config.NoDefaulter
	config.NoValidator
	// File is the path of the seed file. Seeding is skipped if empty.
	File string `toml:"file,omitempty"`
}

func (cfg *Seed) Sample(dst io.Writer, _ config.Path, _ config.CtxMap) {
	config.WriteString(dst, seedSample)
}

func (cfg *Seed) ConfigName() string {
	return "seed"
}
