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

// pointerFactory handles *T. The payload is the pointee with its own
// manifest, so a struct pointee still carries its version information.
// Pointees that are themselves references go through WriteObject, which
// handles nil and back-references.
type pointerFactory struct{}

func (pointerFactory) CanEncode(t reflect.Type) bool { return t.Kind() == reflect.Pointer }
func (pointerFactory) CanDecode(t reflect.Type) bool { return t.Kind() == reflect.Pointer }

func (pointerFactory) Build(table CodecTable, t reflect.Type) (Codec, error) {
	codec, installed, ok := install(table, t, t)
	if !ok {
		return installed, nil
	}
	elemType := t.Elem()
	elem, err := hintFor(table, elemType)
	if err != nil {
		codec.Fail(err)
		return nil, err
	}
	indirect := isIndirect(elemType)
	codec.Initialize(
		func(d *DecodeSession, dst reflect.Value) error {
			ptr := reflect.New(elemType)
			dst.Set(ptr)
			d.Track(ptr)
			if indirect {
				v, err := d.ReadObject()
				if err != nil {
					return err
				}
				return assign(ptr.Elem(), v)
			}
			return readPointee(d, ptr.Elem())
		},
		func(e *EncodeSession, v reflect.Value) error {
			if indirect {
				return e.WriteObject(v.Elem(), elem)
			}
			if err := elem.WriteManifest(e); err != nil {
				return err
			}
			return elem.WriteValue(e, v.Elem())
		},
	)
	return codec, nil
}

// isIndirect reports whether values of t may be nil or shared, and so must be
// written with WriteObject.
func isIndirect(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Interface, reflect.Pointer, reflect.Map, reflect.Slice:
		return true
	}
	return false
}

// readPointee reads a manifest and fills dst in place when the codec allows
// it, so that references to the enclosing pointer resolve while dst's own
// fields are being read.
func readPointee(d *DecodeSession, dst reflect.Value) error {
	if d.trace != nil {
		d.trace.enter()
		defer func() { d.trace.leave(dst) }()
	}
	codec, err := d.s.codecForManifest(d)
	if err != nil {
		return err
	}
	if into, ok := codec.(intoReader); ok && into.Target() == dst.Type() {
		return into.ReadInto(d, dst)
	}
	v, err := codec.ReadValue(d)
	if err != nil {
		return err
	}
	return assign(dst, v)
}
