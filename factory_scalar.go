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

var scalarKinds = map[reflect.Kind]reflect.Type{
	reflect.Bool:       reflect.TypeFor[bool](),
	reflect.Int:        reflect.TypeFor[int](),
	reflect.Int8:       reflect.TypeFor[int8](),
	reflect.Int16:      reflect.TypeFor[int16](),
	reflect.Int32:      reflect.TypeFor[int32](),
	reflect.Int64:      reflect.TypeFor[int64](),
	reflect.Uint:       reflect.TypeFor[uint](),
	reflect.Uint8:      reflect.TypeFor[uint8](),
	reflect.Uint16:     reflect.TypeFor[uint16](),
	reflect.Uint32:     reflect.TypeFor[uint32](),
	reflect.Uint64:     reflect.TypeFor[uint64](),
	reflect.Float32:    reflect.TypeFor[float32](),
	reflect.Float64:    reflect.TypeFor[float64](),
	reflect.Complex64:  reflect.TypeFor[complex64](),
	reflect.Complex128: reflect.TypeFor[complex128](),
	reflect.String:     reflect.TypeFor[string](),
}

// namedScalarFactory handles named types over primitive kinds, such as
// time.Duration or an enum declared as `type Color int`. The payload is the
// underlying primitive with its manifest.
type namedScalarFactory struct{}

func (namedScalarFactory) CanEncode(t reflect.Type) bool { return isNamedScalar(t) }
func (namedScalarFactory) CanDecode(t reflect.Type) bool { return isNamedScalar(t) }

func isNamedScalar(t reflect.Type) bool {
	_, ok := scalarKinds[t.Kind()]
	return ok && t.Name() != ""
}

func (namedScalarFactory) Build(table CodecTable, t reflect.Type) (Codec, error) {
	codec, installed, ok := install(table, t, t)
	if !ok {
		return installed, nil
	}
	underlying := scalarKinds[t.Kind()]
	primitive, err := table.Lookup(underlying)
	if err != nil {
		codec.Fail(err)
		return nil, err
	}
	codec.Initialize(
		func(d *DecodeSession, dst reflect.Value) error {
			v, err := d.ReadObject()
			if err != nil {
				return err
			}
			return assign(dst, v)
		},
		func(e *EncodeSession, v reflect.Value) error {
			if err := primitive.WriteManifest(e); err != nil {
				return err
			}
			return primitive.WriteValue(e, v.Convert(underlying))
		},
	)
	return codec, nil
}
