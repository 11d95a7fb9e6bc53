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

package compress

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"
)

// A Reader decompresses a stream. Most streaming decompressors, such as
// *gzip.Reader, satisfy it.
type Reader interface {
	io.Reader

	// Close closes the Reader, but not the underlying data source. It may
	// return an error if the Reader wasn't read to EOF.
	Close() error

	// Reset discards the Reader's internal state, if any, and prepares it to
	// read from a new source of compressed data.
	Reset(io.Reader) error
}

// A Writer compresses a stream. Most streaming compressors, such as
// *gzip.Writer, satisfy it.
type Writer interface {
	io.Writer

	// Close flushes any buffered data to the underlying sink, then closes the
	// Writer. It must not close the underlying sink.
	Close() error

	// Reset discards the Writer's internal state, if any, and prepares it to
	// write compressed data to a new sink.
	Reset(io.Writer)
}

// NewStream adapts a streaming compression algorithm to the Compressor
// interface. Readers and writers are pooled, so constructors are only called
// when the pools are empty. Payloads of minBytes or fewer aren't compressed.
func NewStream[R Reader, W Writer](
	name string,
	minBytes int,
	newReader func() R,
	newWriter func() W,
) Compressor {
	return &streamCompressor[R, W]{
		name: name,
		min:  minBytes,
		readers: sync.Pool{
			New: func() any { return newReader() },
		},
		writers: sync.Pool{
			New: func() any { return newWriter() },
		},
	}
}

type streamCompressor[R Reader, W Writer] struct {
	name    string
	min     int
	readers sync.Pool
	writers sync.Pool
}

func (c *streamCompressor[R, W]) Name() string {
	return c.name
}

func (c *streamCompressor[R, W]) ShouldCompress(src []byte) bool {
	return len(src) > c.min
}

func (c *streamCompressor[R, W]) Compress(dst *bytes.Buffer, src []byte) error {
	writer, ok := c.writers.Get().(W)
	if !ok {
		var expected W
		return fmt.Errorf("expected %T, got incorrect type from pool", expected)
	}
	writer.Reset(dst)
	if _, err := writer.Write(src); err != nil {
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}
	writer.Reset(io.Discard) // don't keep references
	c.writers.Put(writer)
	return nil
}

func (c *streamCompressor[R, W]) Decompress(dst *bytes.Buffer, src []byte, readMaxBytes int64) error {
	reader, ok := c.readers.Get().(R)
	if !ok {
		var expected R
		return fmt.Errorf("expected %T, got incorrect type from pool", expected)
	}
	if err := reader.Reset(bytes.NewReader(src)); err != nil {
		return err
	}
	var source io.Reader = reader
	if readMaxBytes > 0 {
		source = io.LimitReader(reader, readMaxBytes+1)
	}
	n, err := dst.ReadFrom(source)
	if err != nil {
		return err
	}
	if readMaxBytes > 0 && n > readMaxBytes {
		return ErrTooLarge
	}
	if err := reader.Close(); err != nil {
		return err
	}
	// Most decompressors read a header when they're reset, so resetting to
	// an empty source fails. The reader is reset again when it leaves the
	// pool, so the error is irrelevant.
	_ = reader.Reset(strings.NewReader(""))
	c.readers.Put(reader)
	return nil
}
