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

// Package zstd provides a Zstandard compressor for wire envelopes.
package zstd

import (
	"bytes"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/objectwire/wire/compress"
)

const (
	// Name is the compressor's name on the command line.
	Name = "zstd"

	oneKiB = 1024
)

// Compressor compresses whole payloads with a shared encoder and decoder,
// both of which are safe for concurrent use.
type Compressor struct {
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

var _ compress.Compressor = (*Compressor)(nil)

// New returns a Compressor using the default encoder level.
func New() (*Compressor, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decoder: %w", err)
	}
	return &Compressor{encoder: encoder, decoder: decoder}, nil
}

func (c *Compressor) Name() string {
	return Name
}

func (c *Compressor) ShouldCompress(src []byte) bool {
	return len(src) > oneKiB
}

func (c *Compressor) Compress(dst *bytes.Buffer, src []byte) error {
	compressed := c.encoder.EncodeAll(src, nil)
	if len(compressed) >= len(src) {
		return compress.ErrIncompressible
	}
	_, _ = dst.Write(compressed)
	return nil
}

func (c *Compressor) Decompress(dst *bytes.Buffer, src []byte, readMaxBytes int64) error {
	decompressed, err := c.decoder.DecodeAll(src, nil)
	if err != nil {
		return fmt.Errorf("zstd decompress: %w", err)
	}
	if readMaxBytes > 0 && int64(len(decompressed)) > readMaxBytes {
		return compress.ErrTooLarge
	}
	_, _ = dst.Write(decompressed)
	return nil
}

// Close releases the decoder's background goroutines.
func (c *Compressor) Close() {
	c.decoder.Close()
}
