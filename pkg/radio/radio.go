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

// Package radio defines the short-range radio primitives the presenter and
// the receivers are built on.
//
// Platform specific implementations live outside this repository. The
// simradio package provides an in-process implementation used by tests and
// the demo.
package radio

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Namespace is the application wide identity namespace. Every presenter
// advertises in it so that receivers can use a single scan filter for all
// sessions.
var Namespace = uuid.MustParse("6a3f1c52-8e0b-4b7e-9d4a-2f5c7e81b0d4")

var (
	// ErrRadioUnavailable indicates that the radio is switched off or not
	// present.
	ErrRadioUnavailable = errors.New("radio unavailable")
	// ErrPermissionDenied indicates that the platform denied access to the
	// radio.
	ErrPermissionDenied = errors.New("radio permission denied")
)

// Identity is an advertised beacon identity.
type Identity struct {
	Namespace uuid.UUID
	Major     uint16
	Minor     uint16
}

func (i Identity) String() string {
	return fmt.Sprintf("%s/%d/%d", i.Namespace, i.Major, i.Minor)
}

// Observation is one sighting of an identity by a ranging receiver.
type Observation struct {
	Identity Identity
	// RSSI is the received signal strength in dBm.
	RSSI int
}

// Advertiser is the radio advertising primitive.
type Advertiser interface {
	// SetIdentity changes the advertised identity. It may be called while
	// advertising.
	SetIdentity(id Identity) error
	// Start begins advertising the last identity set.
	Start(ctx context.Context) error
	// Stop halts advertising. It is safe to call when not advertising.
	Stop() error
}

// Ranger is the radio ranging primitive.
type Ranger interface {
	// Range subscribes to observations of identities in namespace. Batches
	// are delivered on the returned channel, which is closed once ctx is
	// done. A batch may be empty.
	Range(ctx context.Context, namespace uuid.UUID) (<-chan []Observation, error)
}
