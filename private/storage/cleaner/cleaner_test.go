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

package cleaner_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jackerost/attendance/pkg/metrics/v2"
	"github.com/jackerost/attendance/pkg/private/serrors"
	"github.com/jackerost/attendance/private/storage/cleaner"
)

func TestRun(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	testCases := map[string]struct {
		count       int
		err         error
		wantRuns    float64
		wantErrors  float64
		wantDeleted float64
	}{
		"nothing expired": {wantRuns: 1},
		"some expired":    {count: 3, wantRuns: 1, wantDeleted: 3},
		"failure":         {err: serrors.New("locked"), wantErrors: 1},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			m := cleaner.Metrics{
				ErrorsTotal:  metrics.NewTestCounter(),
				RunsTotal:    metrics.NewTestCounter(),
				DeletedTotal: metrics.NewTestCounter(),
			}
			var gotNow time.Time
			c := cleaner.New(func(_ context.Context, at time.Time) (int, error) {
				gotNow = at
				return tc.count, tc.err
			}, "presence", func() time.Time { return now }, m)

			c.Run(context.Background())
			assert.Equal(t, now, gotNow)
			assert.Equal(t, "presence_cleaner", c.Name())
			assert.Equal(t, tc.wantRuns, metrics.CounterValue(m.RunsTotal))
			assert.Equal(t, tc.wantErrors, metrics.CounterValue(m.ErrorsTotal))
			assert.Equal(t, tc.wantDeleted, metrics.CounterValue(m.DeletedTotal))
		})
	}
}
