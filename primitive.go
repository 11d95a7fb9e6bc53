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
	"math/big"
	"reflect"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Char is a single UTF-16 code unit or Unicode code point. It exists so that
// character values survive a round trip with their own manifest instead of
// decoding as int32.
type Char int32

const (
	timeKindUTC   = 0
	timeKindLocal = 1
	timeKindZone  = 2
)

var (
	timeType    = reflect.TypeFor[time.Time]()
	uuidType    = reflect.TypeFor[uuid.UUID]()
	decimalType = reflect.TypeFor[decimal.Decimal]()
	charType    = reflect.TypeFor[Char]()
	bytesType   = reflect.TypeFor[[]byte]()
	// typeType is the dynamic type of every reflect.Type value.
	typeType = reflect.TypeOf(reflect.TypeFor[int]())
)

// primitiveCodec is a stateless codec for one of the closed set of types the
// engine writes without a type name.
type primitiveCodec struct {
	manifest Manifest
	typ      reflect.Type
	write    func(e *EncodeSession, v reflect.Value) error
	read     func(d *DecodeSession) (reflect.Value, error)
}

func (p *primitiveCodec) ElementType() reflect.Type { return p.typ }

func (p *primitiveCodec) WriteManifest(e *EncodeSession) error {
	e.writeManifest(p.manifest)
	return nil
}

func (p *primitiveCodec) WriteValue(e *EncodeSession, v reflect.Value) error {
	return p.write(e, v)
}

func (p *primitiveCodec) ReadValue(d *DecodeSession) (reflect.Value, error) {
	return p.read(d)
}

// readAs adapts a typed read function to the reflect-based codec signature.
func readAs[T any](read func(d *DecodeSession) (T, error)) func(d *DecodeSession) (reflect.Value, error) {
	return func(d *DecodeSession) (reflect.Value, error) {
		v, err := read(d)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(v), nil
	}
}

// primitiveCodecs returns a fresh set of primitive codecs. Each Serializer
// owns its own copy.
func primitiveCodecs() []*primitiveCodec {
	return []*primitiveCodec{
		{
			manifest: ManifestInt64,
			typ:      reflect.TypeFor[int64](),
			write:    func(e *EncodeSession, v reflect.Value) error { e.WriteInt64(v.Int()); return nil },
			read:     readAs((*DecodeSession).ReadInt64),
		},
		{
			manifest: ManifestInt16,
			typ:      reflect.TypeFor[int16](),
			write:    func(e *EncodeSession, v reflect.Value) error { e.WriteInt16(int16(v.Int())); return nil },
			read:     readAs((*DecodeSession).ReadInt16),
		},
		{
			manifest: ManifestByte,
			typ:      reflect.TypeFor[uint8](),
			write:    func(e *EncodeSession, v reflect.Value) error { e.WriteUint8(uint8(v.Uint())); return nil },
			read:     readAs((*DecodeSession).ReadUint8),
		},
		{
			manifest: ManifestTime,
			typ:      timeType,
			write:    writeTime,
			read:     readAs(readTime),
		},
		{
			manifest: ManifestBool,
			typ:      reflect.TypeFor[bool](),
			write:    func(e *EncodeSession, v reflect.Value) error { e.WriteBool(v.Bool()); return nil },
			read:     readAs((*DecodeSession).ReadBool),
		},
		{
			manifest: ManifestString,
			typ:      reflect.TypeFor[string](),
			write:    func(e *EncodeSession, v reflect.Value) error { return e.WriteString(v.String()) },
			read:     readAs((*DecodeSession).ReadString),
		},
		{
			manifest: ManifestInt32,
			typ:      reflect.TypeFor[int32](),
			write:    func(e *EncodeSession, v reflect.Value) error { e.WriteInt32(int32(v.Int())); return nil },
			read:     readAs((*DecodeSession).ReadInt32),
		},
		{
			manifest: ManifestBytes,
			typ:      bytesType,
			write:    func(e *EncodeSession, v reflect.Value) error { return e.WriteBytes(v.Bytes()) },
			read:     readAs((*DecodeSession).ReadBytes),
		},
		{
			manifest: ManifestUUID,
			typ:      uuidType,
			write: func(e *EncodeSession, v reflect.Value) error {
				id := v.Interface().(uuid.UUID) //nolint:forcetypeassert
				e.buf.Write(id[:])
				return nil
			},
			read: readAs(readUUID),
		},
		{
			manifest: ManifestFloat32,
			typ:      reflect.TypeFor[float32](),
			write:    func(e *EncodeSession, v reflect.Value) error { e.WriteFloat32(float32(v.Float())); return nil },
			read:     readAs((*DecodeSession).ReadFloat32),
		},
		{
			manifest: ManifestFloat64,
			typ:      reflect.TypeFor[float64](),
			write:    func(e *EncodeSession, v reflect.Value) error { e.WriteFloat64(v.Float()); return nil },
			read:     readAs((*DecodeSession).ReadFloat64),
		},
		{
			manifest: ManifestDecimal,
			typ:      decimalType,
			write:    writeDecimal,
			read:     readAs(readDecimal),
		},
		{
			manifest: ManifestChar,
			typ:      charType,
			write:    func(e *EncodeSession, v reflect.Value) error { e.WriteInt32(int32(v.Int())); return nil },
			read: readAs(func(d *DecodeSession) (Char, error) {
				v, err := d.ReadInt32()
				return Char(v), err
			}),
		},
		{
			manifest: ManifestType,
			typ:      typeType,
			write:    writeTypeDescriptor,
			read:     readTypeDescriptor,
		},
		{
			manifest: ManifestUint16,
			typ:      reflect.TypeFor[uint16](),
			write:    func(e *EncodeSession, v reflect.Value) error { e.WriteUint16(uint16(v.Uint())); return nil },
			read:     readAs((*DecodeSession).ReadUint16),
		},
		{
			manifest: ManifestUint32,
			typ:      reflect.TypeFor[uint32](),
			write:    func(e *EncodeSession, v reflect.Value) error { e.WriteUint32(uint32(v.Uint())); return nil },
			read:     readAs((*DecodeSession).ReadUint32),
		},
		{
			manifest: ManifestUint64,
			typ:      reflect.TypeFor[uint64](),
			write:    func(e *EncodeSession, v reflect.Value) error { e.WriteUint64(v.Uint()); return nil },
			read:     readAs((*DecodeSession).ReadUint64),
		},
		{
			manifest: ManifestInt8,
			typ:      reflect.TypeFor[int8](),
			write:    func(e *EncodeSession, v reflect.Value) error { e.WriteUint8(uint8(v.Int())); return nil },
			read: readAs(func(d *DecodeSession) (int8, error) {
				v, err := d.ReadUint8()
				return int8(v), err
			}),
		},
		{
			manifest: ManifestInt,
			typ:      reflect.TypeFor[int](),
			write:    func(e *EncodeSession, v reflect.Value) error { e.WriteInt64(v.Int()); return nil },
			read: readAs(func(d *DecodeSession) (int, error) {
				v, err := d.ReadInt64()
				return int(v), err
			}),
		},
		{
			manifest: ManifestUint,
			typ:      reflect.TypeFor[uint](),
			write:    func(e *EncodeSession, v reflect.Value) error { e.WriteUint64(v.Uint()); return nil },
			read: readAs(func(d *DecodeSession) (uint, error) {
				v, err := d.ReadUint64()
				return uint(v), err
			}),
		},
		{
			manifest: ManifestComplex64,
			typ:      reflect.TypeFor[complex64](),
			write: func(e *EncodeSession, v reflect.Value) error {
				c := v.Complex()
				e.WriteFloat32(float32(real(c)))
				e.WriteFloat32(float32(imag(c)))
				return nil
			},
			read: readAs(func(d *DecodeSession) (complex64, error) {
				re, err := d.ReadFloat32()
				if err != nil {
					return 0, err
				}
				im, err := d.ReadFloat32()
				return complex(re, im), err
			}),
		},
		{
			manifest: ManifestComplex128,
			typ:      reflect.TypeFor[complex128](),
			write: func(e *EncodeSession, v reflect.Value) error {
				c := v.Complex()
				e.WriteFloat64(real(c))
				e.WriteFloat64(imag(c))
				return nil
			},
			read: readAs(func(d *DecodeSession) (complex128, error) {
				re, err := d.ReadFloat64()
				if err != nil {
					return 0, err
				}
				im, err := d.ReadFloat64()
				return complex(re, im), err
			}),
		},
	}
}

// Times are written as Unix seconds, nanoseconds and a location kind. Named
// zones also carry their name and offset, and decode as fixed zones.
func writeTime(e *EncodeSession, v reflect.Value) error {
	t := v.Interface().(time.Time) //nolint:forcetypeassert
	e.WriteInt64(t.Unix())
	e.WriteUint32(uint32(t.Nanosecond()))
	switch t.Location() {
	case time.UTC:
		e.WriteUint8(timeKindUTC)
	case time.Local:
		e.WriteUint8(timeKindLocal)
	default:
		name, offset := t.Zone()
		e.WriteUint8(timeKindZone)
		if err := e.WriteString(name); err != nil {
			return err
		}
		e.WriteInt32(int32(offset))
	}
	return nil
}

func readTime(d *DecodeSession) (time.Time, error) {
	sec, err := d.ReadInt64()
	if err != nil {
		return time.Time{}, err
	}
	nsec, err := d.ReadUint32()
	if err != nil {
		return time.Time{}, err
	}
	kind, err := d.ReadUint8()
	if err != nil {
		return time.Time{}, err
	}
	t := time.Unix(sec, int64(nsec))
	switch kind {
	case timeKindUTC:
		return t.UTC(), nil
	case timeKindLocal:
		return t.Local(), nil
	case timeKindZone:
		name, err := d.ReadString()
		if err != nil {
			return time.Time{}, err
		}
		offset, err := d.ReadInt32()
		if err != nil {
			return time.Time{}, err
		}
		return t.In(time.FixedZone(name, int(offset))), nil
	}
	return time.Time{}, errorf(CodeMalformed, "invalid time location kind %d", kind)
}

func readUUID(d *DecodeSession) (uuid.UUID, error) {
	var id uuid.UUID
	b, err := d.next(len(id))
	if err != nil {
		return id, err
	}
	copy(id[:], b)
	return id, nil
}

// Decimals are written as an int32 exponent, a sign byte and the big-endian
// magnitude of the coefficient.
func writeDecimal(e *EncodeSession, v reflect.Value) error {
	dec := v.Interface().(decimal.Decimal) //nolint:forcetypeassert
	coefficient := dec.Coefficient()
	e.WriteInt32(dec.Exponent())
	e.WriteBool(coefficient.Sign() < 0)
	return e.WriteBytes(coefficient.Abs(coefficient).Bytes())
}

func readDecimal(d *DecodeSession) (decimal.Decimal, error) {
	exponent, err := d.ReadInt32()
	if err != nil {
		return decimal.Decimal{}, err
	}
	negative, err := d.ReadBool()
	if err != nil {
		return decimal.Decimal{}, err
	}
	magnitude, err := d.ReadBytes()
	if err != nil {
		return decimal.Decimal{}, err
	}
	coefficient := new(big.Int).SetBytes(magnitude)
	if negative {
		coefficient.Neg(coefficient)
	}
	return decimal.NewFromBigInt(coefficient, exponent), nil
}

// Type descriptors are written as the type's wire name and resolved through
// the engine's registry.
func writeTypeDescriptor(e *EncodeSession, v reflect.Value) error {
	t, ok := v.Interface().(reflect.Type)
	if !ok {
		return errorf(CodeInternal, "%s is not a reflect.Type", v.Type())
	}
	e.s.registry.add(t)
	return e.WriteString(e.s.registry.nameOf(t))
}

func readTypeDescriptor(d *DecodeSession) (reflect.Value, error) {
	name, err := d.ReadString()
	if err != nil {
		return reflect.Value{}, err
	}
	t, err := d.s.registry.resolve(name)
	if err != nil {
		return reflect.Value{}, err
	}
	return reflect.ValueOf(t), nil
}
