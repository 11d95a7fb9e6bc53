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
	"reflect"
	"sync"
)

// A ValueWriter writes the payload of a composite value.
type ValueWriter func(e *EncodeSession, v reflect.Value) error

// A ValueReader fills dst, a settable zero value of the codec's target type,
// from the stream.
type ValueReader func(d *DecodeSession, dst reflect.Value) error

// A CompositeCodec handles every type written by name: structs, pointers,
// collections and anything built by a Factory.
//
// CompositeCodecs are constructed in two phases. The codec is registered in
// the engine's dispatch table while it's still pending, so that recursive
// types can refer to it, and becomes ready once Initialize or Fail is called.
// Reads and writes on a pending codec wait until it's ready.
type CompositeCodec struct {
	typ      reflect.Type
	target   reflect.Type
	manifest []byte

	ready chan struct{}
	once  sync.Once

	// Published by Initialize or Fail and read only after ready is closed.
	reader          ValueReader
	writer          ValueWriter
	layout          *layout
	versionManifest []byte
	err             error
}

// NewCompositeCodec returns a pending codec for t, named in the stream with
// the engine's wire name for t.
func NewCompositeCodec(s *Serializer, t reflect.Type) *CompositeCodec {
	return newCompositeCodec(s.registry.nameOf(t), t, t)
}

func newCompositeCodec(name string, t, target reflect.Type) *CompositeCodec {
	manifest := bytes.NewBuffer(make([]byte, 0, 1+4+len(name)))
	manifest.WriteByte(byte(ManifestFull))
	writeRawString(manifest, name)
	return &CompositeCodec{
		typ:      t,
		target:   target,
		manifest: manifest.Bytes(),
		ready:    make(chan struct{}),
	}
}

// Initialize publishes the codec's reader and writer. Only the first call to
// Initialize or Fail has any effect.
func (c *CompositeCodec) Initialize(reader ValueReader, writer ValueWriter) {
	c.once.Do(func() {
		c.reader = reader
		c.writer = writer
		close(c.ready)
	})
}

// Fail marks the codec as unusable. Every later read or write returns err.
func (c *CompositeCodec) Fail(err error) {
	c.once.Do(func() {
		c.err = err
		close(c.ready)
	})
}

// initializeStruct publishes a struct plan along with the version manifest
// derived from its field names.
func (c *CompositeCodec) initializeStruct(l *layout) {
	c.once.Do(func() {
		c.layout = l
		c.versionManifest = versionManifest(c.manifest, l.names)
		c.reader = l.read
		c.writer = l.write
		close(c.ready)
	})
}

func (c *CompositeCodec) wait() error {
	<-c.ready
	return c.err
}

func (c *CompositeCodec) ElementType() reflect.Type { return c.typ }

func (c *CompositeCodec) WriteManifest(e *EncodeSession) error {
	if err := c.wait(); err != nil {
		return err
	}
	id, seen, err := e.typeIndex(c.typ)
	if err != nil {
		return err
	}
	if seen {
		e.writeManifest(ManifestIndex)
		e.WriteUint16(id)
		return nil
	}
	if e.s.versionTolerance && c.versionManifest != nil {
		e.buf.Write(c.versionManifest)
		return nil
	}
	e.buf.Write(c.manifest)
	return nil
}

func (c *CompositeCodec) WriteValue(e *EncodeSession, v reflect.Value) error {
	if err := c.wait(); err != nil {
		return err
	}
	return c.writer(e, v)
}

func (c *CompositeCodec) ReadValue(d *DecodeSession) (reflect.Value, error) {
	if err := c.wait(); err != nil {
		return reflect.Value{}, err
	}
	dst := reflect.New(c.target).Elem()
	if err := c.reader(d, dst); err != nil {
		return reflect.Value{}, err
	}
	return dst, nil
}

// ReadInto fills dst in place. dst must be settable and of the codec's target
// type.
func (c *CompositeCodec) ReadInto(d *DecodeSession, dst reflect.Value) error {
	if err := c.wait(); err != nil {
		return err
	}
	return c.reader(d, dst)
}

// Target returns the type produced by ReadValue. It differs from the element
// type for codecs that decode into a stand-in, such as errors.
func (c *CompositeCodec) Target() reflect.Type { return c.target }

func writeRawString(buf *bytes.Buffer, s string) {
	var prefix [4]byte
	binary.LittleEndian.PutUint32(prefix[:], uint32(len(s)))
	buf.Write(prefix[:])
	buf.WriteString(s)
}
