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
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strconv"
	"sync"
)

var errorType = reflect.TypeFor[error]()

// registry maps wire type names to Go types and back. Every type the engine
// builds a codec for is added under its default name, so an engine can
// always read the streams it writes.
type registry struct {
	logger *slog.Logger

	mu     sync.RWMutex
	byName map[string]reflect.Type
	byType map[reflect.Type]string

	// Successful parses of composite names.
	parsed sync.Map // string -> reflect.Type
}

func newRegistry(logger *slog.Logger) *registry {
	r := &registry{
		logger: logger,
		byName: make(map[string]reflect.Type),
		byType: make(map[reflect.Type]string),
	}
	for _, t := range []reflect.Type{
		reflect.TypeFor[bool](),
		reflect.TypeFor[int](),
		reflect.TypeFor[int8](),
		reflect.TypeFor[int16](),
		reflect.TypeFor[int32](),
		reflect.TypeFor[int64](),
		reflect.TypeFor[uint](),
		reflect.TypeFor[uint8](),
		reflect.TypeFor[uint16](),
		reflect.TypeFor[uint32](),
		reflect.TypeFor[uint64](),
		reflect.TypeFor[float32](),
		reflect.TypeFor[float64](),
		reflect.TypeFor[complex64](),
		reflect.TypeFor[complex128](),
		reflect.TypeFor[string](),
		reflect.TypeFor[struct{}](),
		anyType,
		errorType,
		timeType,
		uuidType,
		decimalType,
		charType,
		typeType,
		remoteErrorType,
	} {
		r.add(t)
	}
	// Errors created by the standard library have unexported types; seed
	// them so that they can be decoded by an engine that never wrote one.
	inner := errors.New("inner")
	for _, err := range []error{
		inner,
		fmt.Errorf("wrap: %w", inner),
		fmt.Errorf("wrap: %w, %w", inner, inner),
		errors.Join(inner, inner),
	} {
		r.add(reflect.TypeOf(err))
	}
	return r
}

// add registers t, and the types it's composed of, under their wire names.
// Distinct types whose default names collide, such as function-local types
// with the same name, get a numbered suffix in registration order.
func (r *registry) add(t reflect.Type) {
	switch t.Kind() {
	case reflect.Pointer, reflect.Slice, reflect.Array:
		r.add(t.Elem())
	case reflect.Map:
		r.add(t.Key())
		r.add(t.Elem())
	}
	name := r.nameOf(t)
	r.mu.Lock()
	existing, taken := r.byName[name]
	if taken && existing == t {
		r.mu.Unlock()
		return
	}
	if taken {
		name = r.uniqueName(name, t)
		r.byType[t] = name
	}
	r.byName[name] = t
	r.mu.Unlock()
	r.logger.Debug("registered type", slog.String("name", name), slog.String("type", t.String()))
}

// uniqueName returns the first free (or already assigned) "name#N" for t.
// The caller holds mu.
func (r *registry) uniqueName(name string, t reflect.Type) string {
	if assigned, ok := r.byType[t]; ok {
		return assigned
	}
	for n := 2; ; n++ {
		candidate := name + "#" + strconv.Itoa(n)
		if existing, ok := r.byName[candidate]; !ok || existing == t {
			return candidate
		}
	}
}

// addName registers t under a caller-chosen name.
func (r *registry) addName(name string, t reflect.Type) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.byName[name]; ok && existing != t && r.byType[existing] == name {
		panic(fmt.Sprintf("wire: registering duplicate types for %q: %s != %s", name, existing, t))
	}
	if existing, ok := r.byType[t]; ok && existing != name {
		panic(fmt.Sprintf("wire: registering duplicate names for %s: %q != %q", t, existing, name))
	}
	r.byName[name] = t
	r.byType[t] = name
	r.logger.Debug("registered type name", slog.String("name", name), slog.String("type", t.String()))
}

// resolve returns the Go type for a wire name.
func (r *registry) resolve(name string) (reflect.Type, error) {
	r.mu.RLock()
	t, ok := r.byName[name]
	r.mu.RUnlock()
	if ok {
		return t, nil
	}
	if cached, ok := r.parsed.Load(name); ok {
		return cached.(reflect.Type), nil //nolint:forcetypeassert
	}
	t, err := r.parse(name)
	if err != nil {
		return nil, err
	}
	r.parsed.Store(name, t)
	return t, nil
}

// Register records the types of the given values so that streams written by
// another engine can name them. Pointers register both the pointer and the
// pointed-to type. Nil values are ignored.
func (s *Serializer) Register(values ...any) {
	for _, v := range values {
		if v == nil {
			continue
		}
		s.registry.add(reflect.TypeOf(v))
	}
}

// RegisterName records the type of value under name, which is then used in
// place of the type's default package-qualified name. Registering a pointer
// names the pointed-to type. Like encoding/gob, RegisterName panics if the
// name or the type is already registered differently.
//
// Names must be registered before the engine first writes or reads the type,
// and both ends of a stream must agree on them.
func (s *Serializer) RegisterName(name string, value any) {
	if value == nil {
		panic("wire: can't register a nil value")
	}
	t := reflect.TypeOf(value)
	for t.Kind() == reflect.Pointer && t.Name() == "" {
		t = t.Elem()
	}
	s.registry.addName(name, t)
}
