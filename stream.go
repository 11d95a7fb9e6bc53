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

	"google.golang.org/protobuf/encoding/protowire"
)

// All fixed-width values are little-endian. Strings and byte slices carry an
// int32 length prefix.

func (e *EncodeSession) writeManifest(m Manifest) {
	e.buf.WriteByte(byte(m))
}

// WriteUint8 writes a single byte.
func (e *EncodeSession) WriteUint8(v uint8) {
	e.buf.WriteByte(v)
}

// WriteBool writes a bool as a single byte.
func (e *EncodeSession) WriteBool(v bool) {
	if v {
		e.buf.WriteByte(1)
		return
	}
	e.buf.WriteByte(0)
}

func (e *EncodeSession) WriteUint16(v uint16) {
	e.buf.Write(binary.LittleEndian.AppendUint16(e.fixed[:0], v))
}

func (e *EncodeSession) WriteInt16(v int16) {
	e.WriteUint16(uint16(v))
}

func (e *EncodeSession) WriteUint32(v uint32) {
	e.buf.Write(binary.LittleEndian.AppendUint32(e.fixed[:0], v))
}

func (e *EncodeSession) WriteInt32(v int32) {
	e.WriteUint32(uint32(v))
}

func (e *EncodeSession) WriteUint64(v uint64) {
	e.buf.Write(binary.LittleEndian.AppendUint64(e.fixed[:0], v))
}

func (e *EncodeSession) WriteInt64(v int64) {
	e.WriteUint64(uint64(v))
}

func (e *EncodeSession) WriteFloat32(v float32) {
	e.WriteUint32(math.Float32bits(v))
}

func (e *EncodeSession) WriteFloat64(v float64) {
	e.WriteUint64(math.Float64bits(v))
}

// WriteLength writes a length or element count. Lengths above math.MaxInt32
// can't be represented in the stream.
func (e *EncodeSession) WriteLength(n int) error {
	if n < 0 || n > math.MaxInt32 {
		return errorf(CodeResourceExhausted, "length %d exceeds the int32 range", n)
	}
	e.WriteInt32(int32(n))
	return nil
}

// WriteString writes an int32 length followed by the string's UTF-8 bytes.
func (e *EncodeSession) WriteString(s string) error {
	if err := e.WriteLength(len(s)); err != nil {
		return err
	}
	e.buf.WriteString(s)
	return nil
}

// WriteBytes writes an int32 length followed by the bytes.
func (e *EncodeSession) WriteBytes(b []byte) error {
	if err := e.WriteLength(len(b)); err != nil {
		return err
	}
	e.buf.Write(b)
	return nil
}

// WriteVarint writes v using the protobuf base-128 varint encoding.
func (e *EncodeSession) WriteVarint(v uint64) {
	e.buf.Write(protowire.AppendVarint(e.fixed[:0], v))
}

// readByte reads one byte and passes io.EOF through unchanged, so callers can
// tell a clean end of stream from a truncated value.
func (d *DecodeSession) readByte() (byte, error) {
	if d.byteReader != nil {
		return d.byteReader.ReadByte()
	}
	if _, err := io.ReadFull(d.r, d.fixed[:1]); err != nil {
		return 0, err
	}
	return d.fixed[0], nil
}

// largePayload is the size above which a payload is buffered as it arrives
// instead of being allocated from the length the stream claims.
const largePayload = 64 << 10

// next returns the next n bytes of the stream. The returned slice is only
// valid until the next read.
func (d *DecodeSession) next(n int) ([]byte, error) {
	if n > largePayload {
		return d.readLarge(n)
	}
	var dst []byte
	if n <= len(d.fixed) {
		dst = d.fixed[:n]
	} else {
		if cap(d.scratch) < n {
			d.scratch = make([]byte, n)
		}
		dst = d.scratch[:n]
	}
	if _, err := io.ReadFull(d.r, dst); err != nil {
		return nil, truncated(err)
	}
	return dst, nil
}

func (d *DecodeSession) readLarge(n int) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(largePayload)
	if _, err := io.CopyN(&buf, d.r, int64(n)); err != nil {
		return nil, truncated(err)
	}
	return buf.Bytes(), nil
}

func truncated(err error) error {
	if errors.Is(err, io.EOF) {
		err = io.ErrUnexpectedEOF
	}
	return NewError(CodeMalformed, err)
}

func (d *DecodeSession) ReadUint8() (uint8, error) {
	b, err := d.readByte()
	if err != nil {
		return 0, truncated(err)
	}
	return b, nil
}

func (d *DecodeSession) ReadBool() (bool, error) {
	b, err := d.ReadUint8()
	return b != 0, err
}

func (d *DecodeSession) ReadUint16() (uint16, error) {
	b, err := d.next(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (d *DecodeSession) ReadInt16() (int16, error) {
	v, err := d.ReadUint16()
	return int16(v), err
}

func (d *DecodeSession) ReadUint32() (uint32, error) {
	b, err := d.next(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (d *DecodeSession) ReadInt32() (int32, error) {
	v, err := d.ReadUint32()
	return int32(v), err
}

func (d *DecodeSession) ReadUint64() (uint64, error) {
	b, err := d.next(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (d *DecodeSession) ReadInt64() (int64, error) {
	v, err := d.ReadUint64()
	return int64(v), err
}

func (d *DecodeSession) ReadFloat32() (float32, error) {
	v, err := d.ReadUint32()
	return math.Float32frombits(v), err
}

func (d *DecodeSession) ReadFloat64() (float64, error) {
	v, err := d.ReadUint64()
	return math.Float64frombits(v), err
}

// ReadLength reads a length or element count written by WriteLength and
// checks it against the configured read limit.
func (d *DecodeSession) ReadLength() (int, error) {
	n, err := d.ReadInt32()
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, errorf(CodeMalformed, "negative length %d", n)
	}
	if limit := d.s.readMaxBytes; limit > 0 && int(n) > limit {
		return 0, errorf(CodeResourceExhausted, "length %d is larger than configured max %d", n, limit)
	}
	return int(n), nil
}

func (d *DecodeSession) ReadString() (string, error) {
	n, err := d.ReadLength()
	if err != nil || n == 0 {
		return "", err
	}
	b, err := d.next(n)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ReadBytes reads a length-prefixed byte slice. The result is owned by the
// caller.
func (d *DecodeSession) ReadBytes() ([]byte, error) {
	n, err := d.ReadLength()
	if err != nil {
		return nil, err
	}
	if n > largePayload {
		return d.readLarge(n)
	}
	out := make([]byte, n)
	if _, err := io.ReadFull(d.r, out); err != nil {
		return nil, truncated(err)
	}
	return out, nil
}

// ReadVarint reads a protobuf base-128 varint.
func (d *DecodeSession) ReadVarint() (uint64, error) {
	var raw [binary.MaxVarintLen64]byte
	for i := range raw {
		b, err := d.readByte()
		if err != nil {
			return 0, truncated(err)
		}
		raw[i] = b
		if b < 0x80 {
			v, n := protowire.ConsumeVarint(raw[:i+1])
			if n < 0 {
				return 0, NewError(CodeMalformed, protowire.ParseError(n))
			}
			return v, nil
		}
	}
	return 0, errorf(CodeMalformed, "varint overflows 64 bits")
}
