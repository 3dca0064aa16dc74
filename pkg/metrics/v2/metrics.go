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

// Package metrics contains the metric interfaces used by the domain
// packages and a prometheus backed Factory to create them.
//
// Components take metric interfaces rather than prometheus types. A nil
// metric is valid and is ignored by the helpers in this package, so a
// component constructed without metrics does not need to check.
package metrics

// Counter describes a metric that accumulates values monotonically.
type Counter interface {
	Add(delta float64)
}

// Gauge describes a metric that takes specific values over time.
type Gauge interface {
	Set(v float64)
	Add(delta float64)
}

// Histogram describes a metric that tracks the distribution of values.
type Histogram interface {
	Observe(v float64)
}

// CounterAdd increases c by delta. It is a no-op if c is nil.
func CounterAdd(c Counter, delta float64) {
	if c != nil {
		c.Add(delta)
	}
}

// CounterInc increases c by one. It is a no-op if c is nil.
func CounterInc(c Counter) {
	if c != nil {
		c.Add(1)
	}
}

// GaugeSet sets g to v. It is a no-op if g is nil.
func GaugeSet(g Gauge, v float64) {
	if g != nil {
		g.Set(v)
	}
}

// GaugeAdd adds delta to g. It is a no-op if g is nil.
func GaugeAdd(g Gauge, delta float64) {
	if g != nil {
		g.Add(delta)
	}
}

// HistogramObserve records v in h. It is a no-op if h is nil.
func HistogramObserve(h Histogram, v float64) {
	if h != nil {
		h.Observe(v)
	}
}
