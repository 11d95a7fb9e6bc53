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

// A Factory builds codecs for a family of types. The engine asks its
// factories in order and uses the first one that accepts a type; types no
// factory accepts fall back to the struct plan builder.
//
// Build should create a pending CompositeCodec, Install it in the table and
// only then resolve the codecs of any element types, so that recursive types
// find the pending codec instead of recursing forever. If Install returns a
// different codec, another goroutine won the race and Build should return
// that codec unchanged. Codecs whose values are pointers or maps must call
// DecodeSession.Track as soon as the value is allocated.
type Factory interface {
	CanEncode(t reflect.Type) bool
	CanDecode(t reflect.Type) bool
	Build(table CodecTable, t reflect.Type) (Codec, error)
}

func defaultFactories() []Factory {
	return []Factory{
		errorFactory{},
		protoFactory{},
		collectionFactory{},
		pointerFactory{},
		setFactory{},
		dictionaryFactory{},
		arrayFactory{},
		namedScalarFactory{},
	}
}

// install creates and installs a pending codec for t. The boolean is false
// when another codec was already installed, in which case the caller returns
// it without initializing anything.
func install(table CodecTable, t, target reflect.Type) (*CompositeCodec, Codec, bool) {
	s := table.Serializer()
	codec := newCompositeCodec(s.registry.nameOf(t), t, target)
	installed := table.Install(t, codec)
	return codec, installed, installed == Codec(codec)
}
