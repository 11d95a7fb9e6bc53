// Copyright 2021-2024 The Connect Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package wire

import (
	"errors"
	"fmt"
	"io"
)

// An Error captures two pieces of information: a Code and an underlying Go
// error. Every error returned by a Serializer can be cast to an *Error using
// the standard library's errors.As.
//
// Errors identify the offending manifest byte or type name, but they carry
// no recovery context: a stream that fails to decode should be discarded.
type Error struct {
	code Code
	err  error
}

// NewError annotates any Go error with a code.
func NewError(c Code, underlying error) *Error {
	return &Error{code: c, err: underlying}
}

func (e *Error) Error() string {
	text := e.err.Error()
	if text == "" {
		return e.code.String()
	}
	return e.code.String() + ": " + text
}

// Unwrap implements errors.Wrapper, which allows errors.Is and errors.As
// access to the underlying error.
func (e *Error) Unwrap() error {
	return e.err
}

// Code returns the error's code.
func (e *Error) Code() Code {
	return e.code
}

// CodeOf returns the error's code if it is or wraps a *wire.Error and
// CodeUnknown otherwise.
func CodeOf(err error) Code {
	if wireErr, ok := asError(err); ok {
		return wireErr.Code()
	}
	return CodeUnknown
}

// errorf calls fmt.Errorf with the supplied template and arguments, then wraps
// the resulting error.
func errorf(c Code, template string, args ...any) *Error {
	return NewError(c, fmt.Errorf(template, args...))
}

// asError uses errors.As to unwrap any error and look for a wire *Error.
func asError(err error) (*Error, bool) {
	var wireErr *Error
	ok := errors.As(err, &wireErr)
	return wireErr, ok
}

// wrapIfUncoded ensures that all errors leaving a codec carry a code. It
// leaves already-coded errors unchanged, maps short reads to CodeMalformed,
// and falls back to CodeUnknown.
func wrapIfUncoded(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := asError(err); ok {
		return err
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return NewError(CodeMalformed, err)
	}
	return NewError(CodeUnknown, err)
}
