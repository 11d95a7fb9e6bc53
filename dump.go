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
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// A DumpNode describes one encoded value: where it starts, how it's tagged
// and what it contains. Nodes are produced by Serializer.Dump for
// diagnostics; they aren't a stable format.
type DumpNode struct {
	// Offset is the position of the value's manifest, counted from the start
	// of the (decompressed) value.
	Offset   int64  `json:"offset" yaml:"offset" cbor:"offset"`
	Tag      uint8  `json:"tag" yaml:"tag" cbor:"tag"`
	Manifest string `json:"manifest" yaml:"manifest" cbor:"manifest"`
	// Field is the struct field or entry slot holding the value, if any.
	Field string `json:"field,omitempty" yaml:"field,omitempty" cbor:"field,omitempty"`
	// Type is the wire name of a composite value's type.
	Type string `json:"type,omitempty" yaml:"type,omitempty" cbor:"type,omitempty"`
	// Value is set for primitives, primitive arrays and back-references.
	Value any `json:"value,omitempty" yaml:"value,omitempty" cbor:"value,omitempty"`
	// Opaque marks composites whose type isn't registered with the engine.
	// Their contents are walked using only the information in the stream.
	Opaque   bool        `json:"opaque,omitempty" yaml:"opaque,omitempty" cbor:"opaque,omitempty"`
	Children []*DumpNode `json:"children,omitempty" yaml:"children,omitempty" cbor:"children,omitempty"`
}

// Dump reads a single value from r and returns its structure instead of
// decoding it into Go values. Types the engine doesn't know can still be
// walked when the stream carries enough information: pointers, slices, maps
// and structs written with version tolerance. Anything else stops the walk.
//
// On error, Dump returns the part of the tree read so far. At the end of r,
// it returns a nil node and an error wrapping io.EOF.
func (s *Serializer) Dump(r io.Reader) (*DumpNode, error) {
	if s.compressor != nil {
		payload := s.buffers.Get()
		defer s.buffers.Put(payload)
		if err := s.readEnvelope(payload, r); err != nil {
			return nil, err
		}
		r = bytes.NewReader(payload.Bytes())
	}
	counter := &countingReader{r: r}
	d := newDecodeSession(s, counter)
	// Streams without back-references dump the same either way.
	d.preserve = true
	d.trace = &dumpTracer{counter: counter}
	if _, err := d.readRoot(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, err
		}
		return d.trace.root, wrapIfUncoded(err)
	}
	return d.trace.root, nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

func (c *countingReader) ReadByte() (byte, error) {
	if br, ok := c.r.(io.ByteReader); ok {
		b, err := br.ReadByte()
		if err == nil {
			c.n++
		}
		return b, err
	}
	var one [1]byte
	if _, err := io.ReadFull(c, one[:]); err != nil {
		return 0, err
	}
	return one[0], nil
}

// dumpTracer builds the node tree as the session decodes.
type dumpTracer struct {
	counter *countingReader
	root    *DumpNode
	stack   []*DumpNode
	field   string
}

func (t *dumpTracer) enter() {
	node := &DumpNode{Offset: t.counter.n, Field: t.field}
	t.field = ""
	if len(t.stack) == 0 {
		t.root = node
	} else {
		parent := t.stack[len(t.stack)-1]
		parent.Children = append(parent.Children, node)
	}
	t.stack = append(t.stack, node)
}

func (t *dumpTracer) top() *DumpNode {
	return t.stack[len(t.stack)-1]
}

func (t *dumpTracer) manifest(m Manifest) {
	node := t.top()
	node.Tag = uint8(m)
	node.Manifest = m.String()
}

func (t *dumpTracer) leave(v reflect.Value) {
	node := t.top()
	t.stack = t.stack[:len(t.stack)-1]
	m := Manifest(node.Tag)
	if v.IsValid() && (m.IsPrimitive() || m == ManifestPrimitiveArray) {
		node.Value = dumpValue(v)
	}
}

// dumpValue converts a primitive into a form every output format can
// represent.
func dumpValue(v reflect.Value) any {
	switch x := v.Interface().(type) {
	case []byte:
		return hex.EncodeToString(x)
	case time.Time:
		return x.Format(time.RFC3339Nano)
	case uuid.UUID:
		return x.String()
	case decimal.Decimal:
		return x.String()
	case reflect.Type:
		return x.String()
	case Char:
		return string(rune(x))
	case complex64, complex128:
		return fmt.Sprint(x)
	}
	if v.Kind() == reflect.Slice {
		out := make([]any, v.Len())
		for i := range out {
			out[i] = dumpValue(v.Index(i))
		}
		return out
	}
	return v.Interface()
}

type opaqueShape int

const (
	opaqueStruct opaqueShape = iota + 1
	opaquePointer
	opaqueList
	opaqueSet
	opaqueMap
)

// opaqueCodec walks a composite of an unknown type using only its name and
// the stream. Values are discarded; pointers and maps are tracked as
// placeholders so back-reference ids stay aligned.
type opaqueCodec struct {
	shape opaqueShape
	names []string
}

// opaqueCodecFor returns a walker for name, or false when the stream alone
// doesn't describe the payload.
func opaqueCodecFor(name string, names []string, versioned bool) (*opaqueCodec, bool) {
	switch {
	case versioned:
		return &opaqueCodec{shape: opaqueStruct, names: names}, true
	case strings.HasPrefix(name, "*"):
		return &opaqueCodec{shape: opaquePointer}, true
	case strings.HasPrefix(name, "map["):
		if strings.HasSuffix(name, "]"+emptyStructName) {
			return &opaqueCodec{shape: opaqueSet}, true
		}
		return &opaqueCodec{shape: opaqueMap}, true
	case strings.HasPrefix(name, "["):
		return &opaqueCodec{shape: opaqueList}, true
	}
	return nil, false
}

func (c *opaqueCodec) ElementType() reflect.Type { return anyType }

func (c *opaqueCodec) WriteManifest(*EncodeSession) error {
	return errorf(CodeInternal, "opaque codecs are only used for dumping")
}

func (c *opaqueCodec) WriteValue(*EncodeSession, reflect.Value) error {
	return errorf(CodeInternal, "opaque codecs are only used for dumping")
}

func (c *opaqueCodec) ReadValue(d *DecodeSession) (reflect.Value, error) {
	d.trace.top().Opaque = true
	switch c.shape {
	case opaqueStruct:
		for _, name := range c.names {
			d.trace.field = name
			if _, err := d.ReadObject(); err != nil {
				return reflect.Value{}, err
			}
		}
	case opaquePointer:
		d.Track(reflect.Value{})
		if _, err := d.ReadObject(); err != nil {
			return reflect.Value{}, err
		}
	case opaqueList, opaqueSet, opaqueMap:
		n, err := d.ReadLength()
		if err != nil {
			return reflect.Value{}, err
		}
		if c.shape != opaqueList {
			d.Track(reflect.Value{})
		}
		for range n {
			if c.shape == opaqueMap {
				d.trace.field = "Key"
			}
			if _, err := d.ReadObject(); err != nil {
				return reflect.Value{}, err
			}
			if c.shape != opaqueMap {
				continue
			}
			d.trace.field = "Value"
			if _, err := d.ReadObject(); err != nil {
				return reflect.Value{}, err
			}
		}
	}
	return reflect.Value{}, nil
}
