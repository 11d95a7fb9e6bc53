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
	"bytes"
	"encoding/binary"
	"io"
	"runtime"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/objectwire/wire/compress"
	"github.com/objectwire/wire/compress/gzip"
	"github.com/objectwire/wire/compress/lz4"
	"github.com/objectwire/wire/compress/zstd"
	"github.com/objectwire/wire/internal/assert"
)

func newCompressors(tb testing.TB) []compress.Compressor {
	tb.Helper()
	zstdCompressor, err := zstd.New()
	assert.Nil(tb, err)
	tb.Cleanup(zstdCompressor.Close)
	return []compress.Compressor{gzip.New(), zstdCompressor, lz4.New()}
}

func TestEnvelope(t *testing.T) {
	t.Parallel()
	s := NewSerializer(WithCompressor(gzip.New()))
	payload := mustMarshal(t, NewSerializer(), "small")

	t.Run("write", func(t *testing.T) {
		t.Parallel()
		data := mustMarshal(t, s, "small")
		assert.Equal(t, data[0], byte(0))
		assert.Equal(t, binary.LittleEndian.Uint32(data[1:5]), uint32(len(payload)))
		assert.Equal(t, data[envelopePrefixLength:], payload)
	})

	t.Run("byte by byte", func(t *testing.T) {
		t.Parallel()
		data := mustMarshal(t, s, strings.Repeat("compressible ", 200))
		assert.Equal(t, data[0], byte(flagEnvelopeCompressed))
		got, err := s.Deserialize(iotest.OneByteReader(bytes.NewReader(data)))
		assert.Nil(t, err)
		assert.Equal(t, got, any(strings.Repeat("compressible ", 200)))
	})

	t.Run("truncated", func(t *testing.T) {
		t.Parallel()
		data := mustMarshal(t, s, "small")
		for _, n := range []int{1, envelopePrefixLength, len(data) - 1} {
			_, err := s.Unmarshal(data[:n])
			assert.Equal(t, CodeOf(err), CodeMalformed, assert.Sprintf("%d bytes", n))
			assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
		}
		_, err := s.Unmarshal(nil)
		assert.ErrorIs(t, err, io.EOF)
	})

	t.Run("invalid flags", func(t *testing.T) {
		t.Parallel()
		data := mustMarshal(t, s, "small")
		data[0] = 0b10
		_, err := s.Unmarshal(data)
		assert.Equal(t, CodeOf(err), CodeMalformed)
	})

	t.Run("compressed without compressor", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		buf.WriteByte(flagEnvelopeCompressed)
		buf.Write([]byte{1, 0, 0, 0, 0xff})
		err := decompress(&buf, newBufferPool(), nil, 0)
		assert.Equal(t, CodeOf(err), CodeMalformed)
	})

	t.Run("size limit", func(t *testing.T) {
		t.Parallel()
		limited := NewSerializer(WithCompressor(gzip.New()), WithReadMaxBytes(8))
		var buf bytes.Buffer
		assert.Nil(t, s.Serialize(&buf, "more than eight bytes"))
		assert.Nil(t, s.Serialize(&buf, int8(1)))
		_, err := limited.Deserialize(&buf)
		assert.Equal(t, CodeOf(err), CodeResourceExhausted)
		// The oversized value is skipped, so the next one can still be read.
		got, err := limited.Deserialize(&buf)
		assert.Nil(t, err)
		assert.Equal(t, got, any(int8(1)))
	})
}

func TestCompressionRoundTrip(t *testing.T) {
	t.Parallel()
	large := record{
		Name: strings.Repeat("wire ", 1000),
		Tags: strings.Fields(strings.Repeat("alpha beta gamma ", 100)),
	}
	for _, compressor := range newCompressors(t) {
		t.Run(compressor.Name(), func(t *testing.T) {
			t.Parallel()
			s := NewSerializer(WithCompressor(compressor))
			data := mustMarshal(t, s, large)
			assert.Equal(t, data[0], byte(flagEnvelopeCompressed))
			uncompressed := mustMarshal(t, NewSerializer(), large)
			assert.True(t, len(data) < len(uncompressed)/4, assert.Sprintf("%d >= %d/4", len(data), len(uncompressed)))
			got, err := Deserialize[record](s, bytes.NewReader(data))
			assert.Nil(t, err)
			assert.Equal(t, got, large)

			small := mustMarshal(t, s, int32(1))
			assert.Equal(t, small[0], byte(0))
			n, err := Deserialize[int32](s, bytes.NewReader(small))
			assert.Nil(t, err)
			assert.Equal(t, n, int32(1))
		})
	}
}

func TestCompressionReadLimit(t *testing.T) {
	t.Parallel()
	value := strings.Repeat("z", 64*1024)
	for _, compressor := range newCompressors(t) {
		t.Run(compressor.Name(), func(t *testing.T) {
			t.Parallel()
			data := mustMarshal(t, NewSerializer(WithCompressor(compressor)), value)
			assert.True(t, len(data) < 4096)
			limited := NewSerializer(WithCompressor(compressor), WithReadMaxBytes(4096))
			_, err := limited.Unmarshal(data)
			assert.Equal(t, CodeOf(err), CodeResourceExhausted)
		})
	}
}

type incompressible struct{}

func (incompressible) Name() string { return "incompressible" }

func (incompressible) ShouldCompress([]byte) bool { return true }

func (incompressible) Compress(*bytes.Buffer, []byte) error {
	return compress.ErrIncompressible
}

func (incompressible) Decompress(*bytes.Buffer, []byte, int64) error {
	return io.ErrUnexpectedEOF
}

func TestCompressionFallback(t *testing.T) {
	t.Parallel()
	s := NewSerializer(WithCompressor(incompressible{}))
	data := mustMarshal(t, s, "plain")
	assert.Equal(t, data[0], byte(0))
	got, err := s.Unmarshal(data)
	assert.Nil(t, err)
	assert.Equal(t, got, any("plain"))
}

// Not parallel: the test measures allocations.
func TestHugeClaimedLength(t *testing.T) {
	huge := []byte{0xff, 0xff, 0xff, 0x7f}
	tests := []struct {
		name   string
		s      *Serializer
		stream []byte
	}{
		{"bytes", NewSerializer(), append([]byte{byte(ManifestBytes)}, huge...)},
		{"string", NewSerializer(), append([]byte{byte(ManifestString)}, huge...)},
		{"envelope", NewSerializer(WithCompressor(gzip.New())), []byte{0, 0xff, 0xff, 0xff, 0xff, 1, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var before, after runtime.MemStats
			runtime.ReadMemStats(&before)
			_, err := tt.s.Unmarshal(tt.stream)
			runtime.ReadMemStats(&after)
			assert.NotNil(t, err)
			assert.Equal(t, CodeOf(err), CodeMalformed)
			allocated := after.TotalAlloc - before.TotalAlloc
			assert.True(t, allocated < 16<<20, assert.Sprintf("allocated %d bytes", allocated))
		})
	}

	s := NewSerializer()
	large := bytes.Repeat([]byte("wire"), largePayload)
	got := roundTrip(t, s, large)
	assert.Equal(t, got, large)
	text := roundTrip(t, s, string(large))
	assert.Equal(t, text, string(large))
}
