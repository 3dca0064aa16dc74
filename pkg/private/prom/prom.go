// Copyright 2017 ETH Zurich
// Copyright 2018 ETH Zurich, Anapaya Systems
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

// Package prom contains label names and values shared by the prometheus
// metrics of all components.
package prom

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Namespace is the prometheus namespace of every metric in this repository.
const Namespace = "attendance"

// Common label names.
const (
	// LabelResult is the label for result classifications.
	LabelResult = "result"
	// LabelOperation is the label for the name of an executed operation.
	LabelOperation = "op"
	// LabelMode is the label for the scan type (entry or exit).
	LabelMode = "mode"
	// LabelOutcome is the label for ledger outcomes.
	LabelOutcome = "outcome"
	// LabelVerdict is the label for identifier validation verdicts.
	LabelVerdict = "verdict"
	// LabelState is the label for state machine states.
	LabelState = "state"
	// LabelEvent is the label for periodic runner events.
	LabelEvent = "event"
)

// Common result values.
const (
	// Success is no error.
	Success = "ok_success"
	// ErrDB is used for db related errors.
	ErrDB = "err_db"
	// ErrInternal is an internal error.
	ErrInternal = "err_internal"
	// ErrInvalidReq is an invalid request.
	ErrInvalidReq = "err_invalid_request"
	// ErrNotClassified is an error that is not further classified.
	ErrNotClassified = "err_not_classified"
	// ErrTimeout is a timeout error.
	ErrTimeout = "err_timeout"
	// ErrUnauthorized is used when the caller may not perform the operation.
	ErrUnauthorized = "err_unauthorized"
	// ErrNotFound is used for errors where a resource is not found.
	ErrNotFound = "err_not_found"
	// ErrRejected is used for business rule rejections.
	ErrRejected = "err_rejected"
	// ErrUnavailable is used for errors where a resource is not available.
	ErrUnavailable = "err_unavailable"
)

// DefaultLatencyBuckets 10ms, 20ms, 40ms, ... 5.12s, 10.24s.
var DefaultLatencyBuckets = []float64{0.01, 0.02, 0.04, 0.08, 0.16, 0.32, 0.64,
	1.28, 2.56, 5.12, 10.24}

// Classifier maps an error to a result label value. Classifiers are tried in
// order, the first non-empty value wins.
type Classifier func(error) string

// ErrorResult returns the result label value for err. A nil err is Success.
// If no classifier matches, a timeout is ErrTimeout and anything else
// ErrNotClassified.
func ErrorResult(err error, classifiers ...Classifier) string {
	if err == nil {
		return Success
	}
	for _, c := range classifiers {
		if r := c(err); r != "" {
			return r
		}
	}
	var t interface{ Timeout() bool }
	if errors.As(err, &t) && t.Timeout() {
		return ErrTimeout
	}
	return ErrNotClassified
}

// SafeRegister registers c and returns the registered collector. If c was
// already registered the already registered collector is returned. In case of
// any other error this method panics (as MustRegister).
func SafeRegister(c prometheus.Collector) prometheus.Collector {
	if err := prometheus.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			return are.ExistingCollector
		}
		panic(err)
	}
	return c
}

// ExportElementID exports the element ID as configured in the config file.
// It may be called more than once per process.
func ExportElementID(id string) {
	vec := SafeRegister(prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "elem_id",
			Help:      "The element ID from the config file",
		},
		[]string{"cfg"},
	)).(*prometheus.GaugeVec)
	vec.WithLabelValues(id).Set(1)
}
