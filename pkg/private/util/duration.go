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

package util

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackerost/attendance/pkg/private/serrors"
)

const (
	day  = 24 * time.Hour
	week = 7 * day
)

var units = []struct {
	suffix string
	unit   time.Duration
}{
	{"w", week},
	{"d", day},
	{"h", time.Hour},
	{"m", time.Minute},
	{"s", time.Second},
	{"ms", time.Millisecond},
	{"us", time.Microsecond},
	{"µs", time.Microsecond},
	{"ns", time.Nanosecond},
}

// ParseDuration parses a duration with a single unit suffix. In addition to
// the units understood by time.ParseDuration it accepts days (d) and weeks
// (w). Compound durations like "1h30m" are not supported.
func ParseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, serrors.New("empty duration")
	}
	for i := len(units) - 1; i >= 0; i-- {
		// Longest suffixes are checked first so that "ms" is not read as "s".
		u := units[i]
		if len(u.suffix) < 2 {
			continue
		}
		if d, ok, err := parseWith(s, u.suffix, u.unit); ok {
			return d, err
		}
	}
	for _, u := range units {
		if len(u.suffix) != 1 {
			continue
		}
		if d, ok, err := parseWith(s, u.suffix, u.unit); ok {
			return d, err
		}
	}
	return 0, serrors.New("missing or unknown duration unit", "input", s)
}

func parseWith(s, suffix string, unit time.Duration) (time.Duration, bool, error) {
	if !strings.HasSuffix(s, suffix) {
		return 0, false, nil
	}
	num := strings.TrimSuffix(s, suffix)
	v, err := strconv.ParseInt(num, 10, 64)
	if err != nil {
		return 0, true, serrors.Wrap("invalid duration", err, "input", s)
	}
	return time.Duration(v) * unit, true, nil
}

// FmtDuration formats d with the largest unit that represents it exactly.
func FmtDuration(d time.Duration) string {
	if d == 0 {
		return "0s"
	}
	for _, u := range units {
		if u.suffix == "µs" {
			continue
		}
		if d%u.unit == 0 {
			return fmt.Sprintf("%d%s", d/u.unit, u.suffix)
		}
	}
	return fmt.Sprintf("%dns", d)
}
