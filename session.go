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
	"errors"
	"io"
	"math"
	"reflect"
	"unsafe"
)

// maxDepth bounds the nesting of a single graph on both sides of the stream.
const maxDepth = 100_000

type objectKey struct {
	ptr unsafe.Pointer
	typ reflect.Type
}

// An EncodeSession holds the state of a single Serialize call: the composite
// types already named in the stream, the objects already written and scratch
// space for codecs. Sessions aren't safe for concurrent use.
type EncodeSession struct {
	s       *Serializer
	buf     *bytes.Buffer
	fixed   [16]byte
	scratch []byte
	types   map[reflect.Type]uint16
	objects map[objectKey]uint32
	nextID  uint32
	depth   int
}

func newEncodeSession(s *Serializer, buf *bytes.Buffer) *EncodeSession {
	e := &EncodeSession{
		s:     s,
		buf:   buf,
		types: make(map[reflect.Type]uint16),
	}
	if s.preserveReferences {
		e.objects = make(map[objectKey]uint32)
	}
	return e
}

// Serializer returns the engine that owns the session.
func (e *EncodeSession) Serializer() *Serializer {
	return e.s
}

// typeIndex reports the id of a composite type already written in full. A
// type seen for the first time is assigned the next id.
func (e *EncodeSession) typeIndex(t reflect.Type) (uint16, bool, error) {
	if id, ok := e.types[t]; ok {
		return id, true, nil
	}
	if len(e.types) > math.MaxUint16 {
		return 0, false, errorf(CodeResourceExhausted, "more than %d composite types in one stream", math.MaxUint16+1)
	}
	id := uint16(len(e.types))
	e.types[t] = id
	return id, false, nil
}

// WriteObject writes v preceded by its manifest. Nil values are written as
// the null manifest. With reference preservation enabled, a pointer or map
// that was already written is replaced by a back-reference.
//
// The hint is used when its ElementType matches the dynamic type of v; pass
// nil to always look the codec up.
func (e *EncodeSession) WriteObject(v reflect.Value, hint Codec) error {
	v = unwrapInterface(v)
	if !v.IsValid() || isNilValue(v) {
		e.writeManifest(ManifestNull)
		return nil
	}
	e.depth++
	defer func() { e.depth-- }()
	if e.depth > maxDepth {
		return errorf(CodeResourceExhausted, "graph is nested more than %d levels deep", maxDepth)
	}
	if e.objects != nil && isReference(v) {
		if id, seen := e.object(v); seen {
			e.writeManifest(ManifestObjectRef)
			e.WriteVarint(uint64(id))
			return nil
		}
	}
	codec := hint
	if codec == nil || codec.ElementType() != v.Type() {
		var err error
		codec, err = e.s.codecForEncoding(v.Type())
		if err != nil {
			return err
		}
	}
	if err := codec.WriteManifest(e); err != nil {
		return err
	}
	return codec.WriteValue(e, v)
}

// object looks v up in the object table, assigning the next id when it's
// new. Pointers to zero-sized values may share an address, so they get an id
// but are never matched.
func (e *EncodeSession) object(v reflect.Value) (uint32, bool) {
	id := e.nextID
	e.nextID++
	if v.Kind() == reflect.Pointer && v.Type().Elem().Size() == 0 {
		return id, false
	}
	key := objectKey{ptr: v.UnsafePointer(), typ: v.Type()}
	if seen, ok := e.objects[key]; ok {
		e.nextID--
		return seen, true
	}
	e.objects[key] = id
	return id, false
}

// A DecodeSession holds the state of a single Deserialize call. Sessions
// aren't safe for concurrent use.
type DecodeSession struct {
	s          *Serializer
	r          io.Reader
	byteReader io.ByteReader
	fixed      [16]byte
	scratch    []byte
	types      []Codec
	typeNames  []string
	objects    []reflect.Value
	preserve   bool
	depth      int
	trace      *dumpTracer
}

func newDecodeSession(s *Serializer, r io.Reader) *DecodeSession {
	d := &DecodeSession{
		s:        s,
		r:        r,
		preserve: s.preserveReferences,
	}
	if br, ok := r.(io.ByteReader); ok {
		d.byteReader = br
	}
	return d
}

// Serializer returns the engine that owns the session.
func (d *DecodeSession) Serializer() *Serializer {
	return d.s
}

// Track records a newly allocated pointer or map in the object table so
// later back-references resolve to it. Codecs for pointer and map types must
// call Track before reading any nested value.
func (d *DecodeSession) Track(v reflect.Value) {
	if d.preserve {
		d.objects = append(d.objects, v)
	}
}

func (d *DecodeSession) object(id uint64) (reflect.Value, error) {
	if id >= uint64(len(d.objects)) {
		return reflect.Value{}, errorf(CodeMalformed, "object reference %d out of range (%d tracked)", id, len(d.objects))
	}
	return d.objects[id], nil
}

func (d *DecodeSession) addType(c Codec, name string) {
	d.types = append(d.types, c)
	d.typeNames = append(d.typeNames, name)
}

func (d *DecodeSession) typeAt(id uint16) (Codec, error) {
	if int(id) >= len(d.types) {
		return nil, errorf(CodeMalformed, "type index %d out of range (%d seen)", id, len(d.types))
	}
	if d.trace != nil {
		d.trace.top().Type = d.typeNames[id]
	}
	return d.types[id], nil
}

// ReadObject reads a manifest and the value that follows it. A null manifest
// yields the invalid reflect.Value.
func (d *DecodeSession) ReadObject() (v reflect.Value, err error) {
	d.depth++
	defer func() { d.depth-- }()
	if d.depth > maxDepth {
		return reflect.Value{}, errorf(CodeResourceExhausted, "graph is nested more than %d levels deep", maxDepth)
	}
	if d.trace != nil {
		d.trace.enter()
		defer func() { d.trace.leave(v) }()
	}
	codec, err := d.s.codecForManifest(d)
	if err != nil {
		return reflect.Value{}, err
	}
	return codec.ReadValue(d)
}

// readRoot reads the first value of a stream. A stream that ends before its
// first byte reports io.EOF, so callers can read a sequence of values until
// the end.
func (d *DecodeSession) readRoot() (v reflect.Value, err error) {
	if d.trace != nil {
		d.trace.enter()
		defer func() { d.trace.leave(v) }()
	}
	first, err := d.readByte()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return reflect.Value{}, NewError(CodeMalformed, io.EOF)
		}
		return reflect.Value{}, NewError(CodeMalformed, err)
	}
	d.depth++
	defer func() { d.depth-- }()
	codec, err := d.s.codecForManifestByte(d, Manifest(first))
	if err != nil {
		return reflect.Value{}, err
	}
	return codec.ReadValue(d)
}

func unwrapInterface(v reflect.Value) reflect.Value {
	for v.IsValid() && v.Kind() == reflect.Interface {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}

// isReference reports whether v takes part in reference preservation. Type
// descriptors are pointers but are written as primitives.
func isReference(v reflect.Value) bool {
	return (v.Kind() == reflect.Pointer || v.Kind() == reflect.Map) && v.Type() != typeType
}

func isNilValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Chan, reflect.Func:
		return v.IsNil()
	}
	return false
}
