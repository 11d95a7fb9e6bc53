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

// arrayFactory handles slices and fixed-size arrays that aren't primitive
// arrays: an int32 count followed by each element with its manifest.
type arrayFactory struct{}

func (arrayFactory) CanEncode(t reflect.Type) bool { return isArray(t) }
func (arrayFactory) CanDecode(t reflect.Type) bool { return isArray(t) }

func isArray(t reflect.Type) bool {
	return t.Kind() == reflect.Slice || t.Kind() == reflect.Array
}

func (arrayFactory) Build(table CodecTable, t reflect.Type) (Codec, error) {
	codec, installed, ok := install(table, t, t)
	if !ok {
		return installed, nil
	}
	elem, err := hintFor(table, t.Elem())
	if err != nil {
		codec.Fail(err)
		return nil, err
	}
	codec.Initialize(
		func(d *DecodeSession, dst reflect.Value) error {
			n, err := d.ReadLength()
			if err != nil {
				return err
			}
			if t.Kind() == reflect.Array {
				if n != t.Len() {
					return errorf(CodeTypeMismatch, "%d elements can't fill %s", n, t)
				}
				return readElements(d, dst, n)
			}
			dst.Set(reflect.MakeSlice(t, 0, capacityHint(n)))
			elemType := t.Elem()
			for range n {
				v, err := d.ReadObject()
				if err != nil {
					return err
				}
				slot := reflect.New(elemType).Elem()
				if err := assign(slot, v); err != nil {
					return err
				}
				dst.Set(reflect.Append(dst, slot))
			}
			return nil
		},
		func(e *EncodeSession, v reflect.Value) error {
			n := v.Len()
			if err := e.WriteLength(n); err != nil {
				return err
			}
			for i := range n {
				if err := e.WriteObject(v.Index(i), elem); err != nil {
					return err
				}
			}
			return nil
		},
	)
	return codec, nil
}

func readElements(d *DecodeSession, dst reflect.Value, n int) error {
	for i := range n {
		v, err := d.ReadObject()
		if err != nil {
			return err
		}
		if err := assign(dst.Index(i), v); err != nil {
			return err
		}
	}
	return nil
}
