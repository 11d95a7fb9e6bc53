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
	"encoding/binary"
	"log/slog"
	"reflect"

	"github.com/zeebo/blake3"
)

// versionManifest builds the version-tolerant manifest of a struct: the type
// name from its full manifest followed by its ordered field names.
func versionManifest(full []byte, names []string) []byte {
	buf := bytes.NewBuffer(make([]byte, 0, len(full)+4+8*len(names)))
	buf.WriteByte(byte(ManifestVersion))
	buf.Write(full[1:])
	var count [4]byte
	binary.LittleEndian.PutUint32(count[:], uint32(len(names)))
	buf.Write(count[:])
	for _, name := range names {
		writeRawString(buf, name)
	}
	return buf.Bytes()
}

// fieldDigest identifies an ordered list of stream field names.
func fieldDigest(names []string) [32]byte {
	var joined bytes.Buffer
	for _, name := range names {
		joined.WriteString(name)
		joined.WriteByte(0)
	}
	return blake3.Sum256(joined.Bytes())
}

type slotKey struct {
	typ    reflect.Type
	digest [32]byte
}

// versionedCodec reads a struct written with a different field list than the
// local one. Each stream slot maps to a local field, or to -1 when the local
// type has no field of that name.
type versionedCodec struct {
	base  *CompositeCodec
	names []string
	slots []int
}

func (s *Serializer) versioned(base *CompositeCodec, names []string) (*versionedCodec, error) {
	if err := base.wait(); err != nil {
		return nil, err
	}
	if base.layout == nil {
		return nil, errorf(CodeTypeMismatch, "%s was written with field names but isn't a struct", base.typ)
	}
	key := slotKey{typ: base.typ, digest: fieldDigest(names)}
	if cached, ok := s.slotMaps.Load(key); ok {
		return cached.(*versionedCodec), nil //nolint:forcetypeassert
	}
	local := make(map[string]int, len(base.layout.fields))
	for i, name := range base.layout.names {
		local[name] = i
	}
	slots := make([]int, len(names))
	for i, name := range names {
		slot, ok := local[name]
		if !ok {
			slot = -1
		}
		slots[i] = slot
	}
	codec := &versionedCodec{base: base, names: names, slots: slots}
	actual, _ := s.slotMaps.LoadOrStore(key, codec)
	s.logger.Debug("built slot map", slog.String("type", base.typ.String()), slog.Int("fields", len(names)))
	return actual.(*versionedCodec), nil //nolint:forcetypeassert
}

func (c *versionedCodec) ElementType() reflect.Type { return c.base.typ }

func (c *versionedCodec) Target() reflect.Type { return c.base.typ }

func (c *versionedCodec) WriteManifest(*EncodeSession) error {
	return errorf(CodeInternal, "slot maps are only used for decoding")
}

func (c *versionedCodec) WriteValue(*EncodeSession, reflect.Value) error {
	return errorf(CodeInternal, "slot maps are only used for decoding")
}

func (c *versionedCodec) ReadValue(d *DecodeSession) (reflect.Value, error) {
	dst := reflect.New(c.base.typ).Elem()
	if err := c.ReadInto(d, dst); err != nil {
		return reflect.Value{}, err
	}
	return dst, nil
}

// ReadInto reads every stream slot in order. Values of unknown fields are
// decoded and discarded; local fields missing from the stream keep their
// zero value.
func (c *versionedCodec) ReadInto(d *DecodeSession, dst reflect.Value) error {
	fields := c.base.layout.fields
	for i, slot := range c.slots {
		if d.trace != nil {
			d.trace.field = c.names[i]
		}
		v, err := d.ReadObject()
		if err != nil {
			return err
		}
		if slot < 0 {
			continue
		}
		f := fields[slot]
		if err := assign(dst.FieldByIndex(f.Index), v); err != nil {
			return errorf(CodeOf(err), "field %s of %s: %w", f.Name, c.base.typ, err)
		}
	}
	return nil
}
