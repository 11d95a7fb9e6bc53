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
	"fmt"
	"log/slog"
	"reflect"
	"sync"
)

// A CodecTable is one direction of an engine's dispatch table. Factories
// receive the table they're building for, so that codecs for element types
// are resolved in the same direction.
type CodecTable interface {
	// Lookup returns the codec for t, building it on first use. The returned
	// codec may still be pending if it's being built further up the stack.
	Lookup(t reflect.Type) (Codec, error)
	// Install registers c for t unless another codec got there first, and
	// returns the codec that's now canonical for t. Entries are never
	// replaced.
	Install(t reflect.Type, c Codec) Codec
	// Serializer returns the engine that owns the table.
	Serializer() *Serializer
}

type codecTable struct {
	s      *Serializer
	decode bool
	codecs sync.Map // reflect.Type -> Codec
}

func (c *codecTable) Serializer() *Serializer { return c.s }

func (c *codecTable) direction() string {
	if c.decode {
		return "decode"
	}
	return "encode"
}

func (c *codecTable) Install(t reflect.Type, codec Codec) Codec {
	actual, loaded := c.codecs.LoadOrStore(t, codec)
	if loaded && actual != codec {
		c.s.logger.Debug(
			"discarded codec built concurrently",
			slog.String("type", t.String()),
			slog.String("direction", c.direction()),
		)
	}
	return actual.(Codec) //nolint:forcetypeassert
}

// Lookup resolves a codec in order: the engine's primitives, primitive
// arrays, the factory chain, and finally the struct plan builder.
func (c *codecTable) Lookup(t reflect.Type) (Codec, error) {
	if codec, ok := c.codecs.Load(t); ok {
		return codec.(Codec), nil //nolint:forcetypeassert
	}
	if codec, ok := c.s.primitives[t]; ok {
		return codec, nil
	}
	if codec, ok := c.s.primitiveArrayFor(t); ok {
		return c.Install(t, codec), nil
	}
	switch t.Kind() {
	case reflect.Chan, reflect.Func, reflect.Uintptr, reflect.UnsafePointer, reflect.Interface, reflect.Invalid:
		return nil, errorf(CodeUnsupportedType, "%s has no wire representation", t)
	}
	c.s.registry.add(t)
	for _, factory := range c.s.factories {
		accepts := factory.CanEncode(t)
		if c.decode {
			accepts = factory.CanDecode(t)
		}
		if !accepts {
			continue
		}
		codec, err := factory.Build(c, t)
		if err != nil {
			return nil, wrapIfUncoded(err)
		}
		codec = c.Install(t, codec)
		c.logBuilt(t, codec)
		return codec, nil
	}
	if t.Kind() != reflect.Struct {
		return nil, errorf(CodeUnsupportedType, "no codec for %s", t)
	}
	codec, err := buildStruct(c, t)
	if err != nil {
		return nil, err
	}
	c.logBuilt(t, codec)
	return codec, nil
}

func (c *codecTable) logBuilt(t reflect.Type, codec Codec) {
	c.s.logger.Debug(
		"built codec",
		slog.String("type", t.String()),
		slog.String("codec", fmt.Sprintf("%T", codec)),
		slog.String("direction", c.direction()),
	)
}

func (s *Serializer) codecForEncoding(t reflect.Type) (Codec, error) {
	return s.encoders.Lookup(t)
}

func (s *Serializer) codecForDecoding(t reflect.Type) (Codec, error) {
	return s.decoders.Lookup(t)
}

// codecForManifest reads a manifest and returns the codec for the payload
// that follows it. Composite manifests also update the session's type cache.
func (s *Serializer) codecForManifest(d *DecodeSession) (Codec, error) {
	m, err := d.ReadUint8()
	if err != nil {
		return nil, err
	}
	return s.codecForManifestByte(d, Manifest(m))
}

func (s *Serializer) codecForManifestByte(d *DecodeSession, m Manifest) (Codec, error) {
	if d.trace != nil {
		d.trace.manifest(m)
	}
	switch m {
	case ManifestNull:
		return nullCodec{}, nil
	case ManifestObjectRef:
		return objectRefCodec{}, nil
	case ManifestPrimitiveArray:
		return primitiveArrayDecoder{}, nil
	case ManifestIndex:
		id, err := d.ReadUint16()
		if err != nil {
			return nil, err
		}
		return d.typeAt(id)
	case ManifestFull:
		name, err := d.ReadString()
		if err != nil {
			return nil, err
		}
		return s.compositeCodec(d, name, nil, false)
	case ManifestVersion:
		name, err := d.ReadString()
		if err != nil {
			return nil, err
		}
		names, err := readFieldNames(d)
		if err != nil {
			return nil, err
		}
		return s.compositeCodec(d, name, names, true)
	}
	if codec, ok := s.primitivesByManifest[m]; ok {
		return codec, nil
	}
	return nil, errorf(CodeInvalidManifest, "unknown manifest value %d", uint8(m))
}

// compositeCodec resolves a type named in the stream and records it in the
// session's type cache. Streams written with field names decode through a
// slot map.
func (s *Serializer) compositeCodec(d *DecodeSession, name string, names []string, versioned bool) (Codec, error) {
	if d.trace != nil {
		d.trace.top().Type = name
	}
	t, err := s.registry.resolve(name)
	if err != nil {
		if d.trace == nil {
			return nil, err
		}
		opaque, ok := opaqueCodecFor(name, names, versioned)
		if !ok {
			return nil, err
		}
		d.addType(opaque, name)
		return opaque, nil
	}
	codec, err := s.codecForDecoding(t)
	if err != nil {
		return nil, err
	}
	if versioned {
		composite, ok := codec.(*CompositeCodec)
		if !ok {
			return nil, errorf(CodeTypeMismatch, "%s was written with field names but isn't a struct", t)
		}
		if codec, err = s.versioned(composite, names); err != nil {
			return nil, err
		}
	}
	d.addType(codec, name)
	return codec, nil
}

func readFieldNames(d *DecodeSession) ([]string, error) {
	n, err := d.ReadLength()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, capacityHint(n))
	for range n {
		name, err := d.ReadString()
		if err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, nil
}
