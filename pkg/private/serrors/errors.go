// Copyright 2016 ETH Zurich
// Copyright 2019 ETH Zurich, Anapaya Systems
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

// Package serrors provides errors with attached key/value context. Errors
// created with serrors render their context in Error() and marshal it as
// structured fields when logged through zap. The returned errors support
// errors.Is and errors.As on the wrapped cause and, for Join, on the base
// error.
package serrors

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type ctxPair struct {
	Key   string
	Value any
}

// errorInfo is shared by basicError and joinedError.
type errorInfo struct {
	ctx   []ctxPair
	cause error
	stack *stack
}

func mkErrorInfo(cause error, addStack bool, errCtx ...any) errorInfo {
	ctx := make([]ctxPair, 0, len(errCtx)/2)
	for i := 0; i+1 < len(errCtx); i += 2 {
		ctx = append(ctx, ctxPair{Key: fmt.Sprint(errCtx[i]), Value: errCtx[i+1]})
	}
	sort.SliceStable(ctx, func(a, b int) bool { return ctx[a].Key < ctx[b].Key })
	info := errorInfo{ctx: ctx, cause: cause}
	// Only the innermost serrors error carries a stack trace.
	if addStack && !hasStack(cause) {
		info.stack = callers()
	}
	return info
}

func hasStack(err error) bool {
	var st interface{ StackTrace() StackTrace }
	return err != nil && errors.As(err, &st) && st.StackTrace() != nil
}

func (e errorInfo) suffix() string {
	var b strings.Builder
	if len(e.ctx) != 0 {
		b.WriteString(" {")
		for i, p := range e.ctx {
			if i != 0 {
				b.WriteString("; ")
			}
			fmt.Fprintf(&b, "%s=%v", p.Key, p.Value)
		}
		b.WriteString("}")
	}
	if e.cause != nil {
		fmt.Fprintf(&b, ": %s", e.cause)
	}
	return b.String()
}

func (e errorInfo) marshalLogObject(enc zapcore.ObjectEncoder) error {
	if e.cause != nil {
		if m, ok := e.cause.(zapcore.ObjectMarshaler); ok {
			if err := enc.AddObject("cause", m); err != nil {
				return err
			}
		} else {
			enc.AddString("cause", e.cause.Error())
		}
	}
	if e.stack != nil {
		if err := enc.AddArray("stacktrace", e.stack); err != nil {
			return err
		}
	}
	for _, p := range e.ctx {
		zap.Any(p.Key, p.Value).AddTo(enc)
	}
	return nil
}

// StackTrace returns the attached stack trace, if any.
func (e errorInfo) StackTrace() StackTrace {
	if e.stack == nil {
		return nil
	}
	return e.stack.StackTrace()
}

type basicError struct {
	errorInfo
	msg string
}

func (e basicError) Error() string { return e.msg + e.suffix() }

func (e basicError) Unwrap() error { return e.cause }

// MarshalLogObject implements zapcore.ObjectMarshaler.
func (e basicError) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("msg", e.msg)
	return e.marshalLogObject(enc)
}

// New creates an error with the given message and context and attaches a
// stack trace. Sentinel errors should be created with errors.New instead.
func New(msg string, errCtx ...any) error {
	return &basicError{errorInfo: mkErrorInfo(nil, true, errCtx...), msg: msg}
}

// Wrap returns an error with the given message that wraps cause. A stack
// trace is attached unless cause already carries one.
func Wrap(msg string, cause error, errCtx ...any) error {
	return basicError{errorInfo: mkErrorInfo(cause, true, errCtx...), msg: msg}
}

// WrapNoStack is like Wrap but never attaches a stack trace.
func WrapNoStack(msg string, cause error, errCtx ...any) error {
	return basicError{errorInfo: mkErrorInfo(cause, false, errCtx...), msg: msg}
}

type joinedError struct {
	errorInfo
	base error
}

func (e joinedError) Error() string {
	if e.base == nil {
		return strings.TrimPrefix(e.suffix(), ": ")
	}
	return e.base.Error() + e.suffix()
}

func (e joinedError) Unwrap() []error { return []error{e.base, e.cause} }

// MarshalLogObject implements zapcore.ObjectMarshaler.
func (e joinedError) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	if e.base != nil {
		enc.AddString("msg", e.base.Error())
	}
	return e.marshalLogObject(enc)
}

// Join associates the base error err (typically a sentinel) with an optional
// cause and context. errors.Is reports true for both err and cause. Join
// returns nil if both err and cause are nil.
func Join(err, cause error, errCtx ...any) error {
	if err == nil && cause == nil {
		return nil
	}
	return joinedError{errorInfo: mkErrorInfo(cause, true, errCtx...), base: err}
}

// JoinNoStack is like Join but never attaches a stack trace.
func JoinNoStack(err, cause error, errCtx ...any) error {
	if err == nil && cause == nil {
		return nil
	}
	return joinedError{errorInfo: mkErrorInfo(cause, false, errCtx...), base: err}
}

// IsTimeout returns whether err is or is caused by a timeout error.
func IsTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}

// List is a slice of errors.
type List []error

// Error implements the error interface.
func (e List) Error() string {
	s := make([]string, 0, len(e))
	for _, err := range e {
		s = append(s, err.Error())
	}
	return fmt.Sprintf("[ %s ]", strings.Join(s, "; "))
}

// Unwrap returns the errors of the list.
func (e List) Unwrap() []error { return e }

// ToError returns nil for an empty list and the list otherwise.
func (e List) ToError() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

// MarshalLogArray implements zapcore.ArrayMarshaler.
func (e List) MarshalLogArray(ae zapcore.ArrayEncoder) error {
	for _, err := range e {
		if m, ok := err.(zapcore.ObjectMarshaler); ok {
			if err := ae.AppendObject(m); err != nil {
				return err
			}
			continue
		}
		ae.AppendString(err.Error())
	}
	return nil
}
