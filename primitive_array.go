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
	"reflect"
)

// maxPreallocate caps the capacity allocated up front from a count read off
// the stream, so a corrupt count can't force a huge allocation.
const maxPreallocate = 4096

func capacityHint(n int) int {
	return min(n, maxPreallocate)
}

// primitiveArrayCodec writes unnamed slices of primitives without per-element
// manifests: the element manifest, an int32 count, then the raw elements.
type primitiveArrayCodec struct {
	typ  reflect.Type
	elem *primitiveCodec
}

func (c *primitiveArrayCodec) ElementType() reflect.Type { return c.typ }

func (c *primitiveArrayCodec) WriteManifest(e *EncodeSession) error {
	e.writeManifest(ManifestPrimitiveArray)
	e.writeManifest(c.elem.manifest)
	return nil
}

func (c *primitiveArrayCodec) WriteValue(e *EncodeSession, v reflect.Value) error {
	n := v.Len()
	if err := e.WriteLength(n); err != nil {
		return err
	}
	for i := range n {
		if err := c.elem.write(e, v.Index(i)); err != nil {
			return err
		}
	}
	return nil
}

func (c *primitiveArrayCodec) ReadValue(d *DecodeSession) (reflect.Value, error) {
	return readPrimitiveArray(d, c.elem)
}

// primitiveArrayDecoder is selected by the primitive array manifest. The
// element manifest that follows decides the slice type.
type primitiveArrayDecoder struct{}

func (primitiveArrayDecoder) ElementType() reflect.Type { return anyType }

func (primitiveArrayDecoder) WriteManifest(*EncodeSession) error {
	return errorf(CodeInternal, "primitive array decoder can't encode")
}

func (primitiveArrayDecoder) WriteValue(*EncodeSession, reflect.Value) error {
	return errorf(CodeInternal, "primitive array decoder can't encode")
}

func (primitiveArrayDecoder) ReadValue(d *DecodeSession) (reflect.Value, error) {
	tag, err := d.ReadUint8()
	if err != nil {
		return reflect.Value{}, err
	}
	elem, ok := d.s.primitivesByManifest[Manifest(tag)]
	if !ok {
		return reflect.Value{}, errorf(CodeInvalidManifest, "invalid primitive array element manifest %d", tag)
	}
	return readPrimitiveArray(d, elem)
}

func readPrimitiveArray(d *DecodeSession, elem *primitiveCodec) (reflect.Value, error) {
	n, err := d.ReadLength()
	if err != nil {
		return reflect.Value{}, err
	}
	out := reflect.MakeSlice(reflect.SliceOf(elem.typ), 0, capacityHint(n))
	for range n {
		v, err := elem.read(d)
		if err != nil {
			return reflect.Value{}, err
		}
		out = reflect.Append(out, v)
	}
	return out, nil
}

// primitiveArrayFor returns the primitive array codec for t, if t is an
// unnamed slice of primitives other than []byte.
func (s *Serializer) primitiveArrayFor(t reflect.Type) (*primitiveArrayCodec, bool) {
	if t.Kind() != reflect.Slice || t.Name() != "" || t == bytesType {
		return nil, false
	}
	elem, ok := s.primitives[t.Elem()]
	if !ok {
		return nil, false
	}
	return &primitiveArrayCodec{typ: t, elem: elem}, true
}
