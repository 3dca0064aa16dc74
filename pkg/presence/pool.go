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

package presence

import (
	"crypto/rand"
	"encoding/binary"
	"io"

	"github.com/jackerost/attendance/pkg/private/serrors"
)

const maxPoolSize = 1 << 16

// GeneratePool returns size unique random 16-bit identifiers read from r.
// Duplicates are rejected and redrawn. A nil r uses crypto/rand.
func GeneratePool(r io.Reader, size int) ([]uint16, error) {
	if size <= 0 || size > maxPoolSize {
		return nil, serrors.New("invalid pool size", "size", size)
	}
	if r == nil {
		r = rand.Reader
	}
	pool := make([]uint16, 0, size)
	seen := make(map[uint16]struct{}, size)
	var buf [2]byte
	for len(pool) < size {
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return nil, serrors.Wrap("reading randomness", err)
		}
		v := binary.BigEndian.Uint16(buf[:])
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		pool = append(pool, v)
	}
	return pool, nil
}
