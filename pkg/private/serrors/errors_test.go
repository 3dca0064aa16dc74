// Copyright 2019 Anapaya Systems
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

package serrors_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"

	"github.com/jackerost/attendance/pkg/private/serrors"
)

type timeoutErr struct {
	timeout bool
	cause   error
}

func (e *timeoutErr) Error() string { return "to" }
func (e *timeoutErr) Timeout() bool { return e.timeout }
func (e *timeoutErr) Unwrap() error { return e.cause }

func TestIsTimeout(t *testing.T) {
	assert.False(t, serrors.IsTimeout(serrors.New("no timeout")))
	assert.True(t, serrors.IsTimeout(serrors.Wrap("wrapped", &timeoutErr{timeout: true})))
	assert.False(t, serrors.IsTimeout(serrors.Wrap("wrapped", &timeoutErr{
		cause: &timeoutErr{timeout: true},
	})))
}

func TestWrap(t *testing.T) {
	cause := errors.New("cause")
	err := serrors.Wrap("outer", cause, "k1", 1, "a", "b")
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "outer {a=b; k1=1}: cause", err.Error())
}

func TestJoin(t *testing.T) {
	base := errors.New("base")
	cause := errors.New("cause")
	err := serrors.JoinNoStack(base, cause, "session", "s1")
	assert.ErrorIs(t, err, base)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "base {session=s1}: cause", err.Error())
	assert.Equal(t, "base", serrors.JoinNoStack(base, nil).Error())
	assert.NoError(t, serrors.Join(nil, nil))
}

func TestAtMostOneStacktrace(t *testing.T) {
	inner := serrors.New("inner")
	outer := serrors.Wrap("outer", inner)

	enc := zapcore.NewMapObjectEncoder()
	m, ok := outer.(zapcore.ObjectMarshaler)
	assert.True(t, ok)
	assert.NoError(t, m.MarshalLogObject(enc))
	_, outerHasStack := enc.Fields["stacktrace"]
	assert.False(t, outerHasStack)

	cause, ok := enc.Fields["cause"].(map[string]any)
	assert.True(t, ok)
	assert.Contains(t, cause, "stacktrace")
}

func TestList(t *testing.T) {
	var l serrors.List
	assert.NoError(t, l.ToError())
	l = append(l, errors.New("a"), errors.New("b"))
	assert.Equal(t, "[ a; b ]", l.Error())
}
