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

// Enumerable is implemented by containers whose contents should be written
// instead of their fields. Elements returns the contents in the order Append
// should restore them.
type Enumerable interface {
	Elements() []any
}

// Appendable rebuilds a container from its elements. The zero value of the
// container must be ready to use.
type Appendable interface {
	Append(element any) error
}

var (
	enumerableType = reflect.TypeFor[Enumerable]()
	appendableType = reflect.TypeFor[Appendable]()
)

// collectionFactory handles stacks, queues and other custom containers that
// implement Enumerable, and whose pointer implements Appendable. The payload
// is a count followed by each element.
type collectionFactory struct{}

func (collectionFactory) CanEncode(t reflect.Type) bool { return isCollection(t) }
func (collectionFactory) CanDecode(t reflect.Type) bool { return isCollection(t) }

func isCollection(t reflect.Type) bool {
	if !t.Implements(enumerableType) {
		return false
	}
	if t.Kind() == reflect.Pointer {
		return t.Elem().Kind() != reflect.Pointer && t.Implements(appendableType)
	}
	return reflect.PointerTo(t).Implements(appendableType)
}

func (collectionFactory) Build(table CodecTable, t reflect.Type) (Codec, error) {
	codec, installed, ok := install(table, t, t)
	if !ok {
		return installed, nil
	}
	byPointer := t.Kind() == reflect.Pointer
	codec.Initialize(
		func(d *DecodeSession, dst reflect.Value) error {
			var container reflect.Value
			if byPointer {
				container = reflect.New(t.Elem())
				dst.Set(container)
				d.Track(container)
			} else {
				if t.Kind() == reflect.Map {
					dst.Set(reflect.MakeMap(t))
					d.Track(dst)
				}
				container = dst.Addr()
			}
			appender := container.Interface().(Appendable) //nolint:forcetypeassert
			n, err := d.ReadLength()
			if err != nil {
				return err
			}
			for range n {
				v, err := d.ReadObject()
				if err != nil {
					return err
				}
				var element any
				if v.IsValid() {
					element = v.Interface()
				}
				if err := appender.Append(element); err != nil {
					return errorf(CodeTypeMismatch, "append to %s: %w", t, err)
				}
			}
			return nil
		},
		func(e *EncodeSession, v reflect.Value) error {
			elements := v.Interface().(Enumerable).Elements() //nolint:forcetypeassert
			if err := e.WriteLength(len(elements)); err != nil {
				return err
			}
			for i := range elements {
				if err := e.WriteObject(reflect.ValueOf(&elements[i]).Elem(), nil); err != nil {
					return err
				}
			}
			return nil
		},
	)
	return codec, nil
}
