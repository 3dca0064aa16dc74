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

// Package seed populates a directory from a TOML file. Seeding is
// idempotent, so the coordinator applies the file on every start.
//
// Example:
//
//	[[sessions]]
//	id = "cs101-2026-03-02"
//	owner = "lecturer-1"
//	scope = "cs101-group-a"
//	starts_at = 2026-03-02T09:00:00Z
//	ends_at = 2026-03-02T11:00:00Z
//
//	[[subjects]]
//	id = "student-1"
//	name = "Student One"
//	credentials = ["04a224b2c35e80"]
//	scopes = ["cs101-group-a"]
package seed

import (
	"context"
	"time"

	"github.com/jackerost/attendance/pkg/private/serrors"
	"github.com/jackerost/attendance/pkg/session"
	"github.com/jackerost/attendance/private/config"
)

// Directory is the part of the directory that seeding writes.
type Directory interface {
	InsertSession(ctx context.Context, s session.Session) error
	InsertSubject(ctx context.Context, subjectID, name string) error
	Enroll(ctx context.Context, scopeID, subjectID string) error
	BindCredential(ctx context.Context, credentialID, subjectID string) error
}

// File is the content of a seed file.
type File struct {
	Sessions []Session `toml:"sessions"`
	Subjects []Subject `toml:"subjects"`
}

// Session is a seeded session.
type Session struct {
	ID       string    `toml:"id"`
	Owner    string    `toml:"owner"`
	Scope    string    `toml:"scope"`
	StartsAt time.Time `toml:"starts_at"`
	EndsAt   time.Time `toml:"ends_at"`
	Closed   bool      `toml:"closed,omitempty"`
}

// Subject is a seeded subject with its credentials and scope memberships.
type Subject struct {
	ID          string   `toml:"id"`
	Name        string   `toml:"name"`
	Credentials []string `toml:"credentials,omitempty"`
	Scopes      []string `toml:"scopes,omitempty"`
}

// Load reads and validates a seed file.
func Load(file string) (*File, error) {
	var f File
	if err := config.LoadFile(file, &f); err != nil {
		return nil, err
	}
	if err := f.Validate(); err != nil {
		return nil, serrors.Wrap("validating seed file", err, "file", file)
	}
	return &f, nil
}

// Validate checks that all entries are complete and unique.
func (f *File) Validate() error {
	sessions := make(map[string]struct{}, len(f.Sessions))
	for _, s := range f.Sessions {
		switch {
		case s.ID == "" || s.Owner == "" || s.Scope == "":
			return serrors.New("session requires id, owner and scope", "id", s.ID)
		case !s.StartsAt.Before(s.EndsAt):
			return serrors.New("session must start before it ends", "id", s.ID)
		}
		if _, ok := sessions[s.ID]; ok {
			return serrors.New("duplicate session", "id", s.ID)
		}
		sessions[s.ID] = struct{}{}
	}
	subjects := make(map[string]struct{}, len(f.Subjects))
	credentials := make(map[string]string)
	for _, s := range f.Subjects {
		if s.ID == "" {
			return serrors.New("subject requires id")
		}
		if _, ok := subjects[s.ID]; ok {
			return serrors.New("duplicate subject", "id", s.ID)
		}
		subjects[s.ID] = struct{}{}
		for _, c := range s.Credentials {
			if owner, ok := credentials[c]; ok {
				return serrors.New("credential bound twice", "credential", c,
					"subjects", []string{owner, s.ID})
			}
			credentials[c] = s.ID
		}
	}
	return nil
}

// Apply writes the file to the directory.
func (f *File) Apply(ctx context.Context, db Directory) error {
	for _, s := range f.Sessions {
		err := db.InsertSession(ctx, session.Session{
			ID:       s.ID,
			OwnerID:  s.Owner,
			ScopeID:  s.Scope,
			StartsAt: s.StartsAt,
			EndsAt:   s.EndsAt,
			Closed:   s.Closed,
		})
		if err != nil {
			return serrors.Wrap("seeding session", err, "id", s.ID)
		}
	}
	for _, s := range f.Subjects {
		if err := db.InsertSubject(ctx, s.ID, s.Name); err != nil {
			return serrors.Wrap("seeding subject", err, "id", s.ID)
		}
		for _, c := range s.Credentials {
			if err := db.BindCredential(ctx, c, s.ID); err != nil {
				return serrors.Wrap("seeding credential", err, "subject", s.ID)
			}
		}
		for _, scope := range s.Scopes {
			if err := db.Enroll(ctx, scope, s.ID); err != nil {
				return serrors.Wrap("seeding enrollment", err, "subject", s.ID,
					"scope", scope)
			}
		}
	}
	return nil
}
