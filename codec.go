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

// A Codec writes and reads values of a single Go type. Codecs are built by
// the Serializer on first use and cached for the engine's lifetime, so they
// must be safe for concurrent use once constructed.
//
// WriteManifest writes the bytes that identify the codec in the stream.
// WriteValue and ReadValue handle the payload that follows. ReadValue is
// called after the manifest has already been consumed.
type Codec interface {
	ElementType() reflect.Type
	WriteManifest(e *EncodeSession) error
	WriteValue(e *EncodeSession, v reflect.Value) error
	ReadValue(d *DecodeSession) (reflect.Value, error)
}

// intoReader is implemented by codecs that can fill an existing addressable
// value of their target type instead of allocating a new one. Pointer codecs
// use it so that a pointee is tracked before its fields are read.
type intoReader interface {
	Target() reflect.Type
	ReadInto(d *DecodeSession, dst reflect.Value) error
}

var anyType = reflect.TypeFor[any]()

// nullCodec reads the null manifest.
type nullCodec struct{}

func (nullCodec) ElementType() reflect.Type { return anyType }

func (nullCodec) WriteManifest(e *EncodeSession) error {
	e.writeManifest(ManifestNull)
	return nil
}

func (nullCodec) WriteValue(*EncodeSession, reflect.Value) error { return nil }

func (nullCodec) ReadValue(*DecodeSession) (reflect.Value, error) {
	return reflect.Value{}, nil
}

// objectRefCodec resolves back-references. It's only ever selected by the
// decoder; the encoder writes references directly from WriteObject.
type objectRefCodec struct{}

func (objectRefCodec) ElementType() reflect.Type { return anyType }

func (objectRefCodec) WriteManifest(*EncodeSession) error {
	return errorf(CodeInternal, "object references are written by the session")
}

func (objectRefCodec) WriteValue(*EncodeSession, reflect.Value) error {
	return errorf(CodeInternal, "object references are written by the session")
}

func (objectRefCodec) ReadValue(d *DecodeSession) (reflect.Value, error) {
	id, err := d.ReadVarint()
	if err != nil {
		return reflect.Value{}, err
	}
	if d.trace != nil {
		d.trace.top().Value = id
	}
	return d.object(id)
}

// assign stores a decoded value in dst. The invalid value stores the zero
// value; values of a different type with the same kind are converted.
func assign(dst, v reflect.Value) error {
	if !v.IsValid() {
		dst.SetZero()
		return nil
	}
	if v.Type().AssignableTo(dst.Type()) {
		dst.Set(v)
		return nil
	}
	if v.Kind() == dst.Kind() && v.Type().ConvertibleTo(dst.Type()) {
		dst.Set(v.Convert(dst.Type()))
		return nil
	}
	return errorf(CodeTypeMismatch, "cannot assign %s to %s", v.Type(), dst.Type())
}
