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
	"strings"
	"testing"

	"github.com/objectwire/wire/internal/assert"
)

func TestErrorNilUnderlying(t *testing.T) {
	t.Parallel()
	err := NewError(CodeMalformed, errors.New(""))
	assert.Equal(t, err.Error(), CodeMalformed.String())
}

func TestErrorFormatting(t *testing.T) {
	t.Parallel()
	text := errorf(CodeUnknownType, "unknown type %q", "pkg.Thing").Error()
	assert.True(t, strings.HasPrefix(text, CodeUnknownType.String()+": "))
	assert.True(t, strings.Contains(text, "pkg.Thing"))
}

func TestErrorCode(t *testing.T) {
	t.Parallel()
	err := fmt.Errorf("another: %w", errorf(CodeTypeMismatch, "foo"))
	wireErr, ok := asError(err)
	assert.True(t, ok)
	assert.Equal(t, wireErr.Code(), CodeTypeMismatch)
}

func TestCodeOf(t *testing.T) {
	t.Parallel()
	assert.Equal(t, CodeOf(errorf(CodeInvalidManifest, "foo")), CodeInvalidManifest)
	assert.Equal(t, CodeOf(fmt.Errorf("wrapped: %w", errorf(CodeMalformed, "foo"))), CodeMalformed)
	assert.Equal(t, CodeOf(errors.New("foo")), CodeUnknown)
}

func TestWrapIfUncoded(t *testing.T) {
	t.Parallel()
	assert.Nil(t, wrapIfUncoded(nil))
	coded := errorf(CodeResourceExhausted, "too big")
	assert.True(t, wrapIfUncoded(coded) == error(coded))
	eof := wrapIfUncoded(io.ErrUnexpectedEOF)
	assert.Equal(t, CodeOf(eof), CodeMalformed)
	assert.ErrorIs(t, eof, io.ErrUnexpectedEOF)
	other := wrapIfUncoded(errors.New("disk on fire"))
	assert.Equal(t, CodeOf(other), CodeUnknown)
}
