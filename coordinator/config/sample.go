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

package config

const idSample = "coordinator-1"

const apiSample = `
# The address the API listens on. (default "127.0.0.1:30452")
address = "127.0.0.1:30452"

# The origins allowed to issue cross-origin requests. CORS is disabled if
# empty. (default [])
allowed_origins = []

# The request header naming the authenticated caller. It must only be trusted
# behind an authenticating proxy. (default "X-Caller-ID")
caller_header = "X-Caller-ID"
`

const seedSample = `
# The seed file with sessions, subjects, credentials and enrollments applied
# to the directory on every start. Seeding is skipped if empty. (default "")
file = ""
`
