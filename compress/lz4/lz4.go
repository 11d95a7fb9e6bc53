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

// Package lz4 provides a block-mode LZ4 compressor for wire envelopes.
package lz4

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/objectwire/wire/compress"
	"github.com/pierrec/lz4/v4"
)

const (
	// Name is the compressor's name on the command line.
	Name = "lz4"

	oneKiB     = 1024
	headerSize = 4
)

// Compressor writes a little-endian uint32 uncompressed size followed by a
// single LZ4 block.
type Compressor struct{}

var _ compress.Compressor = Compressor{}

// New returns an LZ4 Compressor.
func New() Compressor {
	return Compressor{}
}

func (Compressor) Name() string {
	return Name
}

func (Compressor) ShouldCompress(src []byte) bool {
	return len(src) > oneKiB
}

func (Compressor) Compress(dst *bytes.Buffer, src []byte) error {
	if uint64(len(src)) > math.MaxUint32 {
		return compress.ErrIncompressible
	}
	block := make([]byte, headerSize+lz4.CompressBlockBound(len(src)))
	binary.LittleEndian.PutUint32(block, uint32(len(src)))
	written, err := lz4.CompressBlock(src, block[headerSize:], nil)
	if err != nil {
		return fmt.Errorf("lz4 compress: %w", err)
	}
	// CompressBlock returns 0 when the data is incompressible.
	if written == 0 || headerSize+written >= len(src) {
		return compress.ErrIncompressible
	}
	_, _ = dst.Write(block[:headerSize+written])
	return nil
}

func (Compressor) Decompress(dst *bytes.Buffer, src []byte, readMaxBytes int64) error {
	if len(src) < headerSize {
		return errors.New("lz4 decompress: missing size header")
	}
	size := int64(binary.LittleEndian.Uint32(src))
	if readMaxBytes > 0 && size > readMaxBytes {
		return compress.ErrTooLarge
	}
	out := make([]byte, size)
	read, err := lz4.UncompressBlock(src[headerSize:], out)
	if err != nil {
		return fmt.Errorf("lz4 decompress: %w", err)
	}
	if int64(read) != size {
		return fmt.Errorf("lz4 decompress: got %d bytes, expected %d", read, size)
	}
	_, _ = dst.Write(out)
	return nil
}
