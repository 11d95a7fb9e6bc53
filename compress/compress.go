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

// Package compress defines the interface between a wire.Serializer and the
// compression algorithms it can frame values with. Implementations live in
// subpackages.
package compress

import (
	"bytes"
	"errors"
)

// NameIdentity is the name of the absence of compression.
const NameIdentity = "identity"

var (
	// ErrIncompressible is returned by Compress when the compressed payload
	// wouldn't be smaller than the input. Callers send the payload
	// uncompressed instead.
	ErrIncompressible = errors.New("compress: payload doesn't shrink")
	// ErrTooLarge is returned by Decompress when the decompressed payload
	// would exceed the caller's read limit.
	ErrTooLarge = errors.New("compress: decompressed payload exceeds read limit")
)

// A Compressor compresses and decompresses whole payloads. Implementations
// must be safe for concurrent use.
type Compressor interface {
	// Name identifies the algorithm in diagnostics and on the command line.
	Name() string
	// ShouldCompress reports whether a payload is worth compressing. Small
	// payloads usually grow when compressed.
	ShouldCompress(src []byte) bool
	// Compress appends the compressed form of src to dst.
	Compress(dst *bytes.Buffer, src []byte) error
	// Decompress appends the decompressed form of src to dst. A positive
	// readMaxBytes limits the size of the decompressed payload.
	Decompress(dst *bytes.Buffer, src []byte, readMaxBytes int64) error
}
