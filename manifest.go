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

import "fmt"

// A Manifest is the first byte of every encoded value. It tells the decoder
// which codec reads the payload that follows.
type Manifest uint8

// Primitive manifests. The numbering is part of the wire format and must not
// change; gaps are reserved.
const (
	ManifestNull       Manifest = 0
	ManifestInt64      Manifest = 2
	ManifestInt16      Manifest = 3
	ManifestByte       Manifest = 4
	ManifestTime       Manifest = 5
	ManifestBool       Manifest = 6
	ManifestString     Manifest = 7
	ManifestInt32      Manifest = 8
	ManifestBytes      Manifest = 9
	ManifestUUID       Manifest = 11
	ManifestFloat32    Manifest = 12
	ManifestFloat64    Manifest = 13
	ManifestDecimal    Manifest = 14
	ManifestChar       Manifest = 15
	ManifestType       Manifest = 16
	ManifestUint16     Manifest = 17
	ManifestUint32     Manifest = 18
	ManifestUint64     Manifest = 19
	ManifestInt8       Manifest = 20
	ManifestInt        Manifest = 21
	ManifestUint       Manifest = 22
	ManifestComplex64  Manifest = 23
	ManifestComplex128 Manifest = 24
)

// Structural manifests.
const (
	// ManifestVersion introduces a composite whose payload is preceded by its
	// ordered field names.
	ManifestVersion Manifest = 251
	// ManifestPrimitiveArray introduces an unnamed slice of primitives: an
	// element manifest, an int32 count and the raw elements.
	ManifestPrimitiveArray Manifest = 252
	// ManifestObjectRef refers back to an object already seen in this stream.
	ManifestObjectRef Manifest = 253
	// ManifestIndex refers to a composite type already named in this stream.
	ManifestIndex Manifest = 254
	// ManifestFull introduces a composite by its full type name.
	ManifestFull Manifest = 255
)

var manifestNames = map[Manifest]string{
	ManifestNull:           "null",
	ManifestInt64:          "int64",
	ManifestInt16:          "int16",
	ManifestByte:           "byte",
	ManifestTime:           "time",
	ManifestBool:           "bool",
	ManifestString:         "string",
	ManifestInt32:          "int32",
	ManifestBytes:          "bytes",
	ManifestUUID:           "uuid",
	ManifestFloat32:        "float32",
	ManifestFloat64:        "float64",
	ManifestDecimal:        "decimal",
	ManifestChar:           "char",
	ManifestType:           "type",
	ManifestUint16:         "uint16",
	ManifestUint32:         "uint32",
	ManifestUint64:         "uint64",
	ManifestInt8:           "int8",
	ManifestInt:            "int",
	ManifestUint:           "uint",
	ManifestComplex64:      "complex64",
	ManifestComplex128:     "complex128",
	ManifestVersion:        "version",
	ManifestPrimitiveArray: "primitive_array",
	ManifestObjectRef:      "ref",
	ManifestIndex:          "index",
	ManifestFull:           "full",
}

func (m Manifest) String() string {
	if name, ok := manifestNames[m]; ok {
		return name
	}
	return fmt.Sprintf("manifest_%d", uint8(m))
}

// IsPrimitive reports whether the manifest introduces a fixed primitive
// payload.
func (m Manifest) IsPrimitive() bool {
	return m != ManifestNull && m < ManifestVersion && manifestNames[m] != ""
}
