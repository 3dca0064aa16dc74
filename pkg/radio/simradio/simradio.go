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

// Package simradio implements the radio primitives in process. Advertisers
// and rangers created from the same Air see each other.
package simradio

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jackerost/attendance/pkg/log"
	"github.com/jackerost/attendance/pkg/radio"
)

// DefaultInterval is the default delivery interval of ranging batches.
const DefaultInterval = 100 * time.Millisecond

// Air connects advertisers and rangers.
type Air struct {
	// Interval between two batches delivered to every ranger.
	Interval time.Duration

	mu          sync.Mutex
	advertisers map[*Advertiser]struct{}
}

// NewAir returns an Air delivering batches every interval. A zero interval
// uses DefaultInterval.
func NewAir(interval time.Duration) *Air {
	if interval == 0 {
		interval = DefaultInterval
	}
	return &Air{
		Interval:    interval,
		advertisers: make(map[*Advertiser]struct{}),
	}
}

// NewAdvertiser returns an advertiser transmitting into a.
func (a *Air) NewAdvertiser() *Advertiser {
	adv := &Advertiser{}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.advertisers[adv] = struct{}{}
	return adv
}

// NewRanger returns a ranger observing a. rssi returns the signal strength at
// which the ranger receives an identity.
func (a *Air) NewRanger(rssi func(radio.Identity) int) *Ranger {
	return &Ranger{air: a, rssi: rssi}
}

func (a *Air) onAir(ns uuid.UUID) []radio.Identity {
	a.mu.Lock()
	defer a.mu.Unlock()
	var ids []radio.Identity
	for adv := range a.advertisers {
		if id, ok := adv.Advertised(); ok && id.Namespace == ns {
			ids = append(ids, id)
		}
	}
	return ids
}

var _ radio.Advertiser = (*Advertiser)(nil)

// Advertiser is an in-process radio.Advertiser.
type Advertiser struct {
	mu    sync.Mutex
	id    radio.Identity
	hasID bool
	on    bool
	err   error
}

// Fail makes subsequent calls to Start return err. A nil err clears it.
func (a *Advertiser) Fail(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.err = err
}

func (a *Advertiser) SetIdentity(id radio.Identity) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.id, a.hasID = id, true
	return nil
}

func (a *Advertiser) Start(_ context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return a.err
	}
	a.on = true
	return nil
}

func (a *Advertiser) Stop() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.on = false
	return nil
}

// Advertised returns the identity currently on air, if any.
func (a *Advertiser) Advertised() (radio.Identity, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.id, a.on && a.hasID
}

var _ radio.Ranger = (*Ranger)(nil)

// Ranger is an in-process radio.Ranger.
type Ranger struct {
	air *Air

	mu      sync.Mutex
	rssi    func(radio.Identity) int
	stalled bool
	subs    int
	err     error
}

// SetRSSI replaces the signal strength function.
func (r *Ranger) SetRSSI(rssi func(radio.Identity) int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rssi = rssi
}

// Stall stops or resumes batch delivery on all subscriptions, as a platform
// scan session gone stale would.
func (r *Ranger) Stall(stalled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stalled = stalled
}

// Fail makes subsequent calls to Range return err. A nil err clears it.
func (r *Ranger) Fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

// Subscriptions returns how many times Range succeeded.
func (r *Ranger) Subscriptions() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.subs
}

func (r *Ranger) Range(ctx context.Context, ns uuid.UUID) (<-chan []radio.Observation, error) {
	r.mu.Lock()
	if r.err != nil {
		err := r.err
		r.mu.Unlock()
		return nil, err
	}
	r.subs++
	r.mu.Unlock()

	ch := make(chan []radio.Observation)
	go func() {
		defer log.HandlePanic()
		defer close(ch)
		ticker := time.NewTicker(r.air.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			batch, ok := r.batch(ns)
			if !ok {
				continue
			}
			select {
			case <-ctx.Done():
				return
			case ch <- batch:
			}
		}
	}()
	return ch, nil
}

func (r *Ranger) batch(ns uuid.UUID) ([]radio.Observation, bool) {
	r.mu.Lock()
	stalled, rssi := r.stalled, r.rssi
	r.mu.Unlock()
	if stalled {
		return nil, false
	}
	ids := r.air.onAir(ns)
	batch := make([]radio.Observation, 0, len(ids))
	for _, id := range ids {
		batch = append(batch, radio.Observation{Identity: id, RSSI: rssi(id)})
	}
	return batch, true
}
