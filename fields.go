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
	"sort"
	"strings"
)

// A Field is one serializable storage location of a struct.
type Field struct {
	// Name identifies the field in the stream and orders the struct's fields.
	Name string
	Type reflect.Type
	// Index is the path passed to reflect.Value.FieldByIndex.
	Index []int
}

// A FieldLister lists the serializable fields of a struct type. The returned
// fields must be sorted by name and must not pass through pointers, since
// decoding fills them in a freshly allocated zero value.
type FieldLister interface {
	Fields(t reflect.Type) ([]Field, error)
}

// FieldListerFunc adapts an ordinary function to the FieldLister interface.
type FieldListerFunc func(t reflect.Type) ([]Field, error)

// Fields implements FieldLister.
func (f FieldListerFunc) Fields(t reflect.Type) ([]Field, error) {
	return f(t)
}

// reflectFieldLister is the default FieldLister. It returns the exported
// fields of t, including fields promoted from embedded structs, and skips
// fields that have no wire representation:
//
//   - fields tagged `wire:"-"`
//   - channels, functions, uintptrs and unsafe pointers
//   - types from the sync and sync/atomic packages
//   - fields promoted through embedded pointers
//
// A `wire:"name"` tag renames the field. When two fields share a name, the
// shallowest one wins.
type reflectFieldLister struct{}

func (reflectFieldLister) Fields(t reflect.Type) ([]Field, error) {
	if t.Kind() != reflect.Struct {
		return nil, errorf(CodeInternal, "%s is not a struct", t)
	}
	byName := make(map[string]Field)
	for _, sf := range reflect.VisibleFields(t) {
		if !sf.IsExported() || sf.Anonymous && sf.Type.Kind() == reflect.Struct {
			continue
		}
		if throughPointer(t, sf.Index) || !storable(sf.Type) {
			continue
		}
		name := sf.Name
		if tag, ok := sf.Tag.Lookup("wire"); ok {
			tag, _, _ = strings.Cut(tag, ",")
			if tag == "-" {
				continue
			}
			if tag != "" {
				name = tag
			}
		}
		if prev, ok := byName[name]; ok && len(prev.Index) <= len(sf.Index) {
			continue
		}
		byName[name] = Field{Name: name, Type: sf.Type, Index: sf.Index}
	}
	fields := make([]Field, 0, len(byName))
	for _, f := range byName {
		fields = append(fields, f)
	}
	sort.Slice(fields, func(i, j int) bool {
		return fields[i].Name < fields[j].Name
	})
	return fields, nil
}

func throughPointer(t reflect.Type, index []int) bool {
	for _, i := range index[:len(index)-1] {
		f := t.Field(i)
		if f.Type.Kind() == reflect.Pointer {
			return true
		}
		t = f.Type
	}
	return false
}

func storable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Chan, reflect.Func, reflect.Uintptr, reflect.UnsafePointer:
		return false
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.PkgPath() {
	case "sync", "sync/atomic":
		return false
	}
	return true
}
