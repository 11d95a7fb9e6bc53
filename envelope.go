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
	"errors"
	"io"
	"math"
)

// flagEnvelopeCompressed indicates that the payload is compressed.
const flagEnvelopeCompressed = 0b00000001

const envelopePrefixLength = 5

// writeEnvelope frames an encoded value: a flags byte, a little-endian uint32
// payload length and the payload.
func (s *Serializer) writeEnvelope(dst io.Writer, src *bytes.Buffer) error {
	payload := src
	var flags uint8
	if s.compressor.ShouldCompress(src.Bytes()) {
		compressed := s.buffers.Get()
		defer s.buffers.Put(compressed)
		ok, err := compressPayload(s.compressor, compressed, src.Bytes())
		if err != nil {
			return err
		}
		if ok {
			payload = compressed
			flags |= flagEnvelopeCompressed
		}
	}
	if uint64(payload.Len()) > math.MaxUint32 {
		return errorf(CodeResourceExhausted, "payload size %d overflows uint32", payload.Len())
	}
	var prefix [envelopePrefixLength]byte
	prefix[0] = flags
	binary.LittleEndian.PutUint32(prefix[1:], uint32(payload.Len()))
	if _, err := dst.Write(prefix[:]); err != nil {
		return wrapWriteError(err)
	}
	if _, err := payload.WriteTo(dst); err != nil {
		return wrapWriteError(err)
	}
	return nil
}

// readEnvelope reads one framed value into dst, decompressing it if needed.
// A stream that ends cleanly before the prefix reports io.EOF.
func (s *Serializer) readEnvelope(dst *bytes.Buffer, src io.Reader) error {
	var prefix [envelopePrefixLength]byte
	prefixBytesRead, err := io.ReadFull(src, prefix[:])
	switch {
	case errors.Is(err, io.EOF) && prefixBytesRead == 0:
		// The stream ended cleanly. Callers reading a sequence of values need
		// to see io.EOF.
		return NewError(CodeMalformed, io.EOF)
	case err != nil:
		return errorf(CodeMalformed, "incomplete envelope: %w", truncatedCause(err))
	}
	flags := prefix[0]
	if flags&^flagEnvelopeCompressed != 0 {
		return errorf(CodeMalformed, "invalid envelope flags %08b", flags)
	}
	size := int64(binary.LittleEndian.Uint32(prefix[1:]))
	if s.readMaxBytes > 0 && size > int64(s.readMaxBytes) {
		if _, err := io.CopyN(io.Discard, src, size); err != nil && !errors.Is(err, io.EOF) {
			return errorf(CodeMalformed, "read enveloped value: %w", err)
		}
		return errorf(CodeResourceExhausted, "value size %d is larger than configured max %d", size, s.readMaxBytes)
	}
	dst.Grow(int(min(size, largePayload)))
	bytesRead, err := io.CopyN(dst, src, size)
	if err != nil {
		return errorf(CodeMalformed, "promised %d bytes in enveloped value, got %d bytes: %w", size, bytesRead, truncatedCause(err))
	}
	if flags&flagEnvelopeCompressed == 0 {
		return nil
	}
	return decompress(dst, s.buffers, s.compressor, s.readMaxBytes)
}

func truncatedCause(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}
