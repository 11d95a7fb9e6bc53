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
	"fmt"
	"strconv"
	"strings"
)

// A Code classifies an *Error. There are no user-defined codes, so only the
// codes enumerated below are valid.
//
// Every code other than CodeInvalidArgument describes a stream or a type
// that can't be processed. Callers should treat any decode failure as "the
// stream is unusable": the format is deterministic, so retrying the same
// bytes produces the same error.
type Code uint32

const (
	// CodeUnknown is used for errors that didn't originate in this package.
	CodeUnknown Code = 1

	// CodeInvalidArgument indicates that the caller passed something the
	// serializer can never accept, such as a nil root value.
	CodeInvalidArgument Code = 2

	// CodeInvalidManifest indicates that a manifest byte in the stream isn't
	// one the serializer recognizes.
	CodeInvalidManifest Code = 3

	// CodeUnknownType indicates that a type name in the stream can't be
	// resolved to a Go type. Decoding engines must register the types they
	// expect to receive.
	CodeUnknownType Code = 4

	// CodeUnsupportedType indicates a type that has no wire representation,
	// such as a channel or a function.
	CodeUnsupportedType Code = 5

	// CodeTypeMismatch indicates that a decoded value can't be stored in its
	// destination.
	CodeTypeMismatch Code = 6

	// CodeResourceExhausted indicates that a length in the stream exceeds the
	// configured read limit, or that a graph is nested too deeply.
	CodeResourceExhausted Code = 7

	// CodeMalformed indicates a truncated or otherwise corrupt stream.
	CodeMalformed Code = 8

	// CodeInternal indicates a broken invariant inside the serializer.
	CodeInternal Code = 9

	minCode Code = CodeUnknown
	maxCode Code = CodeInternal
)

var strToCode = map[string]Code{
	"UNKNOWN":            CodeUnknown,
	"INVALID_ARGUMENT":   CodeInvalidArgument,
	"INVALID_MANIFEST":   CodeInvalidManifest,
	"UNKNOWN_TYPE":       CodeUnknownType,
	"UNSUPPORTED_TYPE":   CodeUnsupportedType,
	"TYPE_MISMATCH":      CodeTypeMismatch,
	"RESOURCE_EXHAUSTED": CodeResourceExhausted,
	"MALFORMED":          CodeMalformed,
	"INTERNAL":           CodeInternal,
}

func (c Code) String() string {
	switch c {
	case CodeUnknown:
		return "unknown"
	case CodeInvalidArgument:
		return "invalid_argument"
	case CodeInvalidManifest:
		return "invalid_manifest"
	case CodeUnknownType:
		return "unknown_type"
	case CodeUnsupportedType:
		return "unsupported_type"
	case CodeTypeMismatch:
		return "type_mismatch"
	case CodeResourceExhausted:
		return "resource_exhausted"
	case CodeMalformed:
		return "malformed"
	case CodeInternal:
		return "internal"
	}
	return fmt.Sprintf("code_%d", c)
}

// MarshalText implements encoding.TextMarshaler. Codes are marshaled in their
// numeric representations.
func (c Code) MarshalText() ([]byte, error) {
	if c < minCode || c > maxCode {
		return nil, fmt.Errorf("invalid code %v", c)
	}
	return []byte(strconv.Itoa(int(c))), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. It accepts both numeric
// representations (as produced by MarshalText) and the all-caps names, such
// as "UNKNOWN_TYPE".
func (c *Code) UnmarshalText(data []byte) error {
	if code, ok := strToCode[strings.ToUpper(string(data))]; ok {
		*c = code
		return nil
	}
	n, err := strconv.ParseUint(string(data), 10 /* base */, 32 /* bitsize */)
	if err != nil {
		return fmt.Errorf("invalid code %q", string(data))
	}
	code := Code(n)
	if code < minCode || code > maxCode {
		return fmt.Errorf("invalid code %v", n)
	}
	*c = code
	return nil
}
