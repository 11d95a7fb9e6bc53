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

// Package gzip provides a gzip compressor for wire envelopes.
package gzip

import (
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/objectwire/wire/compress"
)

const (
	// Name is the compressor's name on the command line.
	Name = "gzip"

	oneKiB = 1024
)

// New returns a gzip Compressor using the default compression level.
func New() compress.Compressor {
	return NewLevel(gzip.DefaultCompression)
}

// NewLevel returns a gzip Compressor using the given compression level. An
// invalid level falls back to the default.
func NewLevel(level int) compress.Compressor {
	return compress.NewStream(
		Name,
		oneKiB,
		func() *gzip.Reader {
			// We don't want to use gzip.NewReader, because it requires a source of
			// valid gzipped bytes.
			return &gzip.Reader{}
		},
		func() *gzip.Writer {
			writer, err := gzip.NewWriterLevel(io.Discard, level)
			if err != nil {
				return gzip.NewWriter(io.Discard)
			}
			return writer
		},
	)
}
