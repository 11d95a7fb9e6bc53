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

// A layout is the read/write plan of a struct: its fields in name order, each
// with the codec used as a hint when writing.
type layout struct {
	names  []string
	fields []fieldPlan
}

type fieldPlan struct {
	Field
	// Nil for interface-typed fields, whose codec depends on the dynamic
	// value.
	codec Codec
}

func (l *layout) write(e *EncodeSession, v reflect.Value) error {
	for _, f := range l.fields {
		if err := e.WriteObject(v.FieldByIndex(f.Index), f.codec); err != nil {
			return err
		}
	}
	return nil
}

func (l *layout) read(d *DecodeSession, dst reflect.Value) error {
	for _, f := range l.fields {
		if d.trace != nil {
			d.trace.field = f.Name
		}
		v, err := d.ReadObject()
		if err != nil {
			return err
		}
		if err := assign(dst.FieldByIndex(f.Index), v); err != nil {
			return errorf(CodeOf(err), "field %s of %s: %w", f.Name, dst.Type(), err)
		}
	}
	return nil
}

// buildLayout lists the fields of t and resolves a codec for each of them
// through table. Field codecs may still be pending when buildLayout returns.
func buildLayout(table CodecTable, lister FieldLister, t reflect.Type) (*layout, error) {
	fields, err := lister.Fields(t)
	if err != nil {
		return nil, err
	}
	l := &layout{
		names:  make([]string, len(fields)),
		fields: make([]fieldPlan, len(fields)),
	}
	for i, f := range fields {
		codec, err := hintFor(table, f.Type)
		if err != nil {
			return nil, errorf(CodeOf(err), "field %s of %s: %w", f.Name, t, err)
		}
		l.names[i] = f.Name
		l.fields[i] = fieldPlan{Field: f, codec: codec}
	}
	return l, nil
}

// hintFor resolves the codec for values statically typed as t. Interface
// types have no static codec.
func hintFor(table CodecTable, t reflect.Type) (Codec, error) {
	if t.Kind() == reflect.Interface {
		return nil, nil //nolint:nilnil
	}
	return table.Lookup(t)
}

// buildStruct is the fallback for struct types no factory accepts. The codec
// is installed before the plan is built, so fields that refer back to t find
// the pending codec.
func buildStruct(table CodecTable, t reflect.Type) (Codec, error) {
	s := table.Serializer()
	codec := NewCompositeCodec(s, t)
	if installed := table.Install(t, codec); installed != codec {
		return installed, nil
	}
	l, err := buildLayout(table, s.fieldLister, t)
	if err != nil {
		codec.Fail(err)
		return nil, err
	}
	codec.initializeStruct(l)
	return codec, nil
}
