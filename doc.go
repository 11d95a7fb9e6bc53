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

// Package wire is a binary codec for Go object graphs. It writes any value
// built from primitives, slices, arrays, maps, structs and pointers to a
// compact byte stream, and reads an equivalent value back without schema
// files or generated code.
//
// Every encoded value starts with a one-byte manifest. Primitives have a
// fixed manifest each; composite values carry their type name the first time
// the type appears in a stream and a two-byte index afterwards. Codecs for
// composite types are built with reflection on first use and cached by the
// Serializer, which is safe for concurrent use.
//
// Optionally, a Serializer can preserve shared and cyclic references
// (WithPreserveObjectReferences), tolerate struct changes between writer and
// reader (WithVersionTolerance), and compress what it writes
// (WithCompressor). Streams are only meant to be read by a Serializer with the
// same configuration and type names as the one that wrote them.
//
// This documentation is intended to explain each type and function in
// isolation. The wiredump command prints the structure of encoded values,
// which is often the quickest way to understand the format.
package wire
