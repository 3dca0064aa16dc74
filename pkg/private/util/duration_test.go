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

package util_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jackerost/attendance/pkg/private/util"
)

func TestParseDuration(t *testing.T) {
	testCases := map[string]struct {
		input     string
		want      time.Duration
		assertErr assert.ErrorAssertionFunc
	}{
		"seconds":      {input: "8s", want: 8 * time.Second, assertErr: assert.NoError},
		"milliseconds": {input: "300ms", want: 300 * time.Millisecond, assertErr: assert.NoError},
		"days":         {input: "3d", want: 72 * time.Hour, assertErr: assert.NoError},
		"weeks":        {input: "1w", want: 168 * time.Hour, assertErr: assert.NoError},
		"minutes":      {input: "2m", want: 2 * time.Minute, assertErr: assert.NoError},
		"no unit":      {input: "12", assertErr: assert.Error},
		"empty":        {input: "", assertErr: assert.Error},
		"garbage":      {input: "xs", assertErr: assert.Error},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			got, err := util.ParseDuration(tc.input)
			tc.assertErr(t, err)
			if err == nil {
				assert.Equal(t, tc.want, got)
			}
		})
	}
}

func TestDurWrapRoundTrip(t *testing.T) {
	for _, d := range []time.Duration{8 * time.Second, 300 * time.Millisecond, 35 * time.Second, 48 * time.Hour} {
		raw, err := util.DurWrap{Duration: d}.MarshalText()
		require.NoError(t, err)
		var back util.DurWrap
		require.NoError(t, back.UnmarshalText(raw))
		assert.Equal(t, d, back.Duration)
	}
}
