// Copyright 2018 ETH Zurich
// Copyright 2020 ETH Zurich, Anapaya Systems
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

// Package xtest contains helpers shared by the tests of all packages.
package xtest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// AssertReadReturnsBetween will call t.Fatalf if the first read from the
// channel doesn't happen between x and y.
func AssertReadReturnsBetween[T any](t testing.TB, ch <-chan T, x, y time.Duration) {
	t.Helper()
	AssertReadDoesNotReturnBefore(t, ch, x)
	// Above aborts the test if it returns before x time passed, so if we get
	// here x time has passed.
	AssertReadReturnsBefore(t, ch, y-x)
}

// AssertReadReturnsBefore will call t.Fatalf if the first read from the
// channel doesn't happen before timeout.
func AssertReadReturnsBefore[T any](t testing.TB, ch <-chan T, timeout time.Duration) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(timeout):
		t.Fatalf("no value received within %s", timeout)
	}
	var zero T
	return zero
}

// AssertReadDoesNotReturnBefore will call t.Fatalf if the first read from the
// channel happens before timeout.
func AssertReadDoesNotReturnBefore[T any](t testing.TB, ch <-chan T, timeout time.Duration) {
	t.Helper()
	select {
	case <-ch:
		t.Fatalf("value received before %s", timeout)
	case <-time.After(timeout):
	}
}

// AssertError checks that err is not nil if expectError is true and that is it nil otherwise
func AssertError(t *testing.T, err error, expectError bool) {
	t.Helper()
	if expectError {
		assert.Error(t, err)
	} else {
		assert.NoError(t, err)
	}
}

// MustParseTime parses an RFC3339 timestamp and panics on failure.
func MustParseTime(s string) time.Time {
	ts, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		panic(err)
	}
	return ts
}

// Signal returns a channel and a function that sends on it without
// blocking. It is used to observe callbacks from tests.
func Signal[T any](size int) (chan T, func(T)) {
	ch := make(chan T, size)
	return ch, func(v T) {
		select {
		case ch <- v:
		default:
		}
	}
}
