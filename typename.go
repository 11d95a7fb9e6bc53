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
	"strconv"
	"strings"
)

// Type names are written as:
//
//	pkgpath.Name    named types, unless registered under another name
//	pkgpath.Name#N  a distinct type whose default name was already taken
//	Name            predeclared types
//	*T  []T  [N]T   pointers, slices and arrays
//	map[K]V         maps
//	interface {}    the empty interface
//	struct {}       the empty struct
//
// Anything else, such as an anonymous struct with fields, is written with
// reflect's String and can only be resolved by the engine that wrote it.

const (
	emptyInterfaceName = "interface {}"
	emptyStructName    = "struct {}"
)

func defaultName(t reflect.Type) string {
	if t.PkgPath() == "" {
		return t.Name()
	}
	return t.PkgPath() + "." + t.Name()
}

// nameOf returns the wire name of t.
func (r *registry) nameOf(t reflect.Type) string {
	r.mu.RLock()
	name, ok := r.byType[t]
	r.mu.RUnlock()
	if ok {
		return name
	}
	if t.Name() != "" {
		return defaultName(t)
	}
	switch t.Kind() {
	case reflect.Pointer:
		return "*" + r.nameOf(t.Elem())
	case reflect.Slice:
		return "[]" + r.nameOf(t.Elem())
	case reflect.Array:
		return "[" + strconv.Itoa(t.Len()) + "]" + r.nameOf(t.Elem())
	case reflect.Map:
		return "map[" + r.nameOf(t.Key()) + "]" + r.nameOf(t.Elem())
	case reflect.Interface:
		if t.NumMethod() == 0 {
			return emptyInterfaceName
		}
	case reflect.Struct:
		if t.NumField() == 0 {
			return emptyStructName
		}
	}
	return t.String()
}

// parse resolves the composite grammar. Leaf names must already be known to
// the registry.
func (r *registry) parse(name string) (reflect.Type, error) {
	switch {
	case strings.HasPrefix(name, "*"):
		elem, err := r.resolve(name[1:])
		if err != nil {
			return nil, err
		}
		return reflect.PointerTo(elem), nil
	case strings.HasPrefix(name, "[]"):
		elem, err := r.resolve(name[2:])
		if err != nil {
			return nil, err
		}
		return reflect.SliceOf(elem), nil
	case strings.HasPrefix(name, "map["):
		end := closingBracket(name, len("map"))
		if end < 0 {
			return nil, errorf(CodeUnknownType, "unbalanced brackets in type name %q", name)
		}
		key, err := r.resolve(name[len("map["):end])
		if err != nil {
			return nil, err
		}
		if !key.Comparable() {
			return nil, errorf(CodeUnknownType, "map key %s in %q isn't comparable", key, name)
		}
		elem, err := r.resolve(name[end+1:])
		if err != nil {
			return nil, err
		}
		return reflect.MapOf(key, elem), nil
	case strings.HasPrefix(name, "["):
		end := strings.IndexByte(name, ']')
		if end < 0 {
			return nil, errorf(CodeUnknownType, "unbalanced brackets in type name %q", name)
		}
		n, err := strconv.Atoi(name[1:end])
		if err != nil || n < 0 {
			return nil, errorf(CodeUnknownType, "invalid array length in type name %q", name)
		}
		elem, err := r.resolve(name[end+1:])
		if err != nil {
			return nil, err
		}
		return reflect.ArrayOf(n, elem), nil
	}
	return nil, errorf(CodeUnknownType, "unknown type %q", name)
}

// closingBracket returns the index of the bracket that closes the one at
// open, or -1.
func closingBracket(s string, open int) int {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
