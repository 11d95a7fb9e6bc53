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

package lz4

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/objectwire/wire/compress"
	"github.com/objectwire/wire/internal/assert"
)

func TestRoundTrip(t *testing.T) {
	t.Parallel()
	src := bytes.Repeat([]byte("lz4 block "), 512)
	c := New()
	assert.True(t, c.ShouldCompress(src))
	assert.False(t, c.ShouldCompress(src[:100]))
	var compressed bytes.Buffer
	assert.Nil(t, c.Compress(&compressed, src))
	assert.Equal(t, binary.LittleEndian.Uint32(compressed.Bytes()), uint32(len(src)))
	assert.True(t, compressed.Len() < len(src)/4)
	var out bytes.Buffer
	assert.Nil(t, c.Decompress(&out, compressed.Bytes(), 0))
	assert.Equal(t, out.Bytes(), src)
}

func TestIncompressible(t *testing.T) {
	t.Parallel()
	err := New().Compress(&bytes.Buffer{}, []byte("sixteen bytes!!!"))
	assert.True(t, errors.Is(err, compress.ErrIncompressible))
}

func TestDecompressLimits(t *testing.T) {
	t.Parallel()
	src := bytes.Repeat([]byte{'a'}, 4096)
	var compressed bytes.Buffer
	assert.Nil(t, New().Compress(&compressed, src))
	err := New().Decompress(&bytes.Buffer{}, compressed.Bytes(), 1024)
	assert.ErrorIs(t, err, compress.ErrTooLarge)
	assert.NotNil(t, New().Decompress(&bytes.Buffer{}, []byte{1, 2}, 0))
	corrupt := append([]byte(nil), compressed.Bytes()...)
	binary.LittleEndian.PutUint32(corrupt, 10)
	assert.NotNil(t, New().Decompress(&bytes.Buffer{}, corrupt, 0))
}
