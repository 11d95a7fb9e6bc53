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
	"bytes"
	"io"
	"testing"

	"github.com/objectwire/wire/compress/gzip"
	"github.com/objectwire/wire/internal/assert"
)

func TestDumpKnownTypes(t *testing.T) {
	t.Parallel()
	s := NewSerializer()
	data, err := s.Marshal(point{X: 3, Y: -4})
	assert.Nil(t, err)
	root, err := s.Dump(bytes.NewReader(data))
	assert.Nil(t, err)
	assert.Equal(t, root.Manifest, "full")
	assert.Equal(t, root.Tag, uint8(ManifestFull))
	assert.Equal(t, root.Type, "github.com/objectwire/wire.point")
	assert.False(t, root.Opaque)
	assert.Equal(t, len(root.Children), 2)
	x, y := root.Children[0], root.Children[1]
	assert.Equal(t, x.Field, "X")
	assert.Equal(t, x.Manifest, "int32")
	assert.Equal(t, x.Value, any(int32(3)))
	assert.Equal(t, y.Field, "Y")
	assert.Equal(t, y.Value, any(int32(-4)))
	// The name is written as a length-prefixed string after the manifest.
	assert.Equal(t, x.Offset, int64(1+4+len(root.Type)))
	assert.Equal(t, y.Offset, x.Offset+5)
}

func TestDumpOpaque(t *testing.T) {
	t.Parallel()
	writer := NewSerializer(
		WithVersionTolerance(),
		WithPreserveObjectReferences(),
		WithTypeName("example.Node", node{}),
	)
	a := &node{Name: "a"}
	a.Next = &node{Name: "b", Peer: a}
	data, err := writer.Marshal(map[string]*node{"head": a})
	assert.Nil(t, err)

	// The dumping engine has never heard of example.Node.
	root, err := NewSerializer().Dump(bytes.NewReader(data))
	assert.Nil(t, err)
	assert.Equal(t, root.Type, "map[string]*example.Node")
	assert.True(t, root.Opaque)
	assert.Equal(t, len(root.Children), 2)
	key, value := root.Children[0], root.Children[1]
	assert.Equal(t, key.Field, "Key")
	assert.Equal(t, key.Value, any("head"))
	assert.Equal(t, value.Field, "Value")
	assert.Equal(t, value.Type, "*example.Node")
	assert.True(t, value.Opaque)

	// Pointers hold their pointee, which carries its field names.
	assert.Equal(t, len(value.Children), 1)
	head := value.Children[0]
	assert.Equal(t, head.Manifest, "version")
	assert.Equal(t, head.Type, "example.Node")
	assert.Equal(t, len(head.Children), 3)
	assert.Equal(t, head.Children[0].Field, "Name")
	assert.Equal(t, head.Children[0].Value, any("a"))
	next := head.Children[1]
	assert.Equal(t, next.Field, "Next")
	assert.Equal(t, next.Manifest, "index")
	assert.Equal(t, next.Type, "*example.Node")
	peer := next.Children[0].Children[2]
	assert.Equal(t, peer.Field, "Peer")
	assert.Equal(t, peer.Manifest, "ref")
	assert.Equal(t, peer.Value, any(uint64(1)))
	assert.Equal(t, head.Children[2].Manifest, "null")
}

func TestDumpStream(t *testing.T) {
	t.Parallel()
	s := NewSerializer(WithCompressor(gzip.New()))
	var buf bytes.Buffer
	assert.Nil(t, s.Serialize(&buf, "first"))
	assert.Nil(t, s.Serialize(&buf, []float64{1, 2}))
	first, err := s.Dump(&buf)
	assert.Nil(t, err)
	assert.Equal(t, first.Value, any("first"))
	second, err := s.Dump(&buf)
	assert.Nil(t, err)
	assert.Equal(t, second.Manifest, "primitive_array")
	assert.Equal(t, second.Value, any([]any{1.0, 2.0}))
	end, err := s.Dump(&buf)
	assert.Nil(t, end)
	assert.ErrorIs(t, err, io.EOF)
}

func TestDumpUnknownLeaf(t *testing.T) {
	t.Parallel()
	writer := NewSerializer(WithTypeName("example.Point", point{}))
	data, err := writer.Marshal([]any{"ok", point{X: 1}})
	assert.Nil(t, err)
	root, err := NewSerializer().Dump(bytes.NewReader(data))
	assert.Equal(t, CodeOf(err), CodeUnknownType)
	// The partial tree shows how far the dump got.
	assert.NotNil(t, root)
	assert.Equal(t, len(root.Children), 2)
	assert.Equal(t, root.Children[0].Value, any("ok"))
	assert.Equal(t, root.Children[1].Type, "example.Point")
}
