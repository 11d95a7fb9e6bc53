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

package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/objectwire/wire"
	"github.com/objectwire/wire/compress/gzip"
	"github.com/objectwire/wire/internal/assert"
	"gopkg.in/yaml.v3"
)

type sample struct {
	Name  string
	Count int32
}

func encode(tb testing.TB, s *wire.Serializer, values ...any) []byte {
	tb.Helper()
	var out bytes.Buffer
	for _, v := range values {
		assert.Nil(tb, s.Serialize(&out, v))
	}
	return out.Bytes()
}

func runDump(tb testing.TB, input []byte, args ...string) (string, string, error) {
	tb.Helper()
	var stdout, stderr bytes.Buffer
	err := run(args, bytes.NewReader(input), &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func TestRun(t *testing.T) {
	t.Parallel()
	tolerant := wire.NewSerializer(wire.WithVersionTolerance())
	t.Run("version", func(t *testing.T) {
		t.Parallel()
		stdout, _, err := runDump(t, nil, "--version")
		assert.Nil(t, err)
		assert.Equal(t, stdout, wire.Version+"\n")
	})
	t.Run("help", func(t *testing.T) {
		t.Parallel()
		stdout, stderr, err := runDump(t, nil, "-h")
		assert.Nil(t, err)
		assert.Zero(t, stdout)
		assert.Match(t, stderr, "Usage:")
		assert.Match(t, stderr, "--compression")
	})
	t.Run("text", func(t *testing.T) {
		t.Parallel()
		input := encode(t, tolerant, sample{Name: "x", Count: 3}, int32(7))
		stdout, _, err := runDump(t, input)
		assert.Nil(t, err)
		lines := strings.Split(strings.TrimSuffix(stdout, "\n"), "\n")
		assert.Equal(t, len(lines), 4)
		assert.Match(t, lines[0], `^00000000  version \S+\.sample \(opaque\)$`)
		assert.Match(t, lines[1], `^[0-9a-f]{8}    Count: int32 = 3$`)
		assert.Match(t, lines[2], `^[0-9a-f]{8}    Name: string = "x"$`)
		assert.Equal(t, lines[3], "00000000  int32 = 7")
	})
	t.Run("json", func(t *testing.T) {
		t.Parallel()
		input := encode(t, tolerant, []string{"a", "b"})
		stdout, _, err := runDump(t, input, "--format", "json")
		assert.Nil(t, err)
		var node map[string]any
		assert.Nil(t, json.Unmarshal([]byte(stdout), &node))
		assert.Equal(t, node["manifest"], any("primitive_array"))
	})
	t.Run("yaml", func(t *testing.T) {
		t.Parallel()
		input := encode(t, tolerant, sample{Name: "y"})
		stdout, _, err := runDump(t, input, "-f", "yaml")
		assert.Nil(t, err)
		var node wire.DumpNode
		assert.Nil(t, yaml.Unmarshal([]byte(stdout), &node))
		assert.Equal(t, node.Manifest, "version")
		assert.True(t, node.Opaque)
		assert.Equal(t, len(node.Children), 2)
		assert.Equal(t, node.Children[1].Field, "Name")
		assert.Equal(t, node.Children[1].Value, any("y"))
	})
	t.Run("cbor_diagnostic", func(t *testing.T) {
		t.Parallel()
		input := encode(t, tolerant, int32(7))
		stdout, _, err := runDump(t, input, "--format=cbor-diag")
		assert.Nil(t, err)
		assert.Match(t, stdout, `"manifest":\s*"int32"`)
	})
	t.Run("cbor", func(t *testing.T) {
		t.Parallel()
		input := encode(t, tolerant, int32(7))
		stdout, _, err := runDump(t, input, "--format", "cbor")
		assert.Nil(t, err)
		assert.NotZero(t, len(stdout))
	})
	t.Run("compressed_file", func(t *testing.T) {
		t.Parallel()
		writer := wire.NewSerializer(wire.WithVersionTolerance(), wire.WithCompressor(gzip.New()))
		path := filepath.Join(t.TempDir(), "values.bin")
		assert.Nil(t, os.WriteFile(path, encode(t, writer, "first", "second"), 0o600))
		stdout, _, err := runDump(t, nil, "--compression", "gzip", path)
		assert.Nil(t, err)
		assert.Equal(t, stdout, "00000000  string = \"first\"\n00000000  string = \"second\"\n")
	})
	t.Run("errors", func(t *testing.T) {
		t.Parallel()
		_, _, err := runDump(t, nil, "--format", "xml")
		assert.NotNil(t, err)
		_, _, err = runDump(t, nil, "--compression", "brotli")
		assert.NotNil(t, err)
		_, _, err = runDump(t, nil, filepath.Join(t.TempDir(), "missing.bin"))
		assert.NotNil(t, err)
		// Unknown types without field names can't be walked.
		plain := encode(t, wire.NewSerializer(), sample{Name: "z"})
		stdout, _, err := runDump(t, plain)
		assert.NotNil(t, err)
		assert.Match(t, err.Error(), "^stdin: ")
		assert.Match(t, stdout, `full \S+\.sample`)
	})
}
