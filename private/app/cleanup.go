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

// Package app contains helpers shared by the application entry points.
package app

import (
	"sync"

	"github.com/jackerost/attendance/pkg/private/serrors"
)

// Cleanup collects shutdown functions and runs them in reverse order of
// registration. The zero value is ready to use.
type Cleanup struct {
	mu    sync.Mutex
	funcs []func() error
}

// Add registers f.
func (c *Cleanup) Add(f func() error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.funcs = append(c.funcs, f)
}

// Do runs all registered functions, even if some fail, and returns the
// collected errors. Functions are only run once.
func (c *Cleanup) Do() error {
	c.mu.Lock()
	funcs := c.funcs
	c.funcs = nil
	c.mu.Unlock()

	var errs serrors.List
	for i := len(funcs) - 1; i >= 0; i-- {
		if err := funcs[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errs.ToError()
}
