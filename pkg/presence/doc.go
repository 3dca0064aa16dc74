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

// Package presence contains the session presence record shared by the
// coordinator, the presenter and the receivers, together with the slot
// arithmetic all of them use to agree on the currently valid identifier.
//
// Time is divided into slots of SlotInterval since the record's rotation
// origin. The identifier pool is anchored at PoolStartSlot, so the current
// identifier at instant t is Pool[Slot(t)-PoolStartSlot], clamped to the
// bounds of the pool. The broadcaster advertises exactly this identifier and
// the receivers validate against it, which makes the choice deterministic
// for both sides given the same record.
package presence
