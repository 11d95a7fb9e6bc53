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
	"log/slog"
	"reflect"
	"sync"

	"github.com/objectwire/wire/compress"
)

// A Serializer writes Go values to byte streams and reads them back. It
// builds a codec for each type the first time it sees it and caches it for
// its own lifetime, so a long-lived Serializer is much cheaper per call than
// a fresh one.
//
// A Serializer is safe for concurrent use by multiple goroutines.
type Serializer struct {
	logger             *slog.Logger
	versionTolerance   bool
	preserveReferences bool
	factories          []Factory
	fieldLister        FieldLister
	compressor         compress.Compressor
	readMaxBytes       int

	primitives           map[reflect.Type]*primitiveCodec
	primitivesByManifest map[Manifest]*primitiveCodec
	encoders             *codecTable
	decoders             *codecTable
	registry             *registry
	slotMaps             sync.Map // slotKey -> *versionedCodec
	buffers              *bufferPool
}

// NewSerializer constructs a Serializer. By default it writes full type
// names, doesn't preserve shared references and doesn't compress.
func NewSerializer(options ...Option) *Serializer {
	config := serializerConfig{
		Logger:      slog.New(slog.DiscardHandler),
		FieldLister: reflectFieldLister{},
	}
	for _, opt := range options {
		opt.applyToSerializer(&config)
	}
	s := &Serializer{
		logger:               config.Logger,
		versionTolerance:     config.VersionTolerance,
		preserveReferences:   config.PreserveReferences,
		factories:            append(config.Factories, defaultFactories()...),
		fieldLister:          config.FieldLister,
		compressor:           config.Compressor,
		readMaxBytes:         config.ReadMaxBytes,
		primitives:           make(map[reflect.Type]*primitiveCodec),
		primitivesByManifest: make(map[Manifest]*primitiveCodec),
		registry:             newRegistry(config.Logger),
		buffers:              newBufferPool(),
	}
	for _, codec := range primitiveCodecs() {
		s.primitives[codec.typ] = codec
		s.primitivesByManifest[codec.manifest] = codec
	}
	s.encoders = &codecTable{s: s}
	s.decoders = &codecTable{s: s, decode: true}
	for _, named := range config.Names {
		s.RegisterName(named.name, named.value)
	}
	s.Register(config.Types...)
	return s
}

// Serialize writes value to w. The whole value is encoded before anything is
// written, so a failed call leaves w untouched.
func (s *Serializer) Serialize(w io.Writer, value any) error {
	buf := s.buffers.Get()
	defer s.buffers.Put(buf)
	if err := s.encode(buf, value); err != nil {
		return err
	}
	if s.compressor != nil {
		return s.writeEnvelope(w, buf)
	}
	if _, err := buf.WriteTo(w); err != nil {
		return wrapWriteError(err)
	}
	return nil
}

// Marshal returns the encoding of value.
func (s *Serializer) Marshal(value any) ([]byte, error) {
	var out bytes.Buffer
	if err := s.Serialize(&out, value); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func (s *Serializer) encode(buf *bytes.Buffer, value any) error {
	root := unwrapInterface(reflect.ValueOf(value))
	if !root.IsValid() || isNilValue(root) {
		return errorf(CodeInvalidArgument, "can't serialize a nil %T", value)
	}
	return s.encodeValue(buf, root)
}

func (s *Serializer) encodeValue(buf *bytes.Buffer, root reflect.Value) error {
	e := newEncodeSession(s, buf)
	return wrapIfUncoded(e.WriteObject(root, nil))
}

// Deserialize reads a single value from r. If the stream ends before the
// first byte of the value, the returned error wraps io.EOF.
//
// Deserialize doesn't read past the end of the value unless the Serializer
// uses a compressor. It reads r a byte at a time unless r implements
// io.ByteReader, so wrap unbuffered readers in a bufio.Reader when r holds a
// single value.
func (s *Serializer) Deserialize(r io.Reader) (any, error) {
	v, err := s.deserializeValue(r)
	if err != nil || !v.IsValid() {
		return nil, err
	}
	return v.Interface(), nil
}

// Unmarshal decodes the value encoded in data.
func (s *Serializer) Unmarshal(data []byte) (any, error) {
	return s.Deserialize(bytes.NewReader(data))
}

func (s *Serializer) deserializeValue(r io.Reader) (reflect.Value, error) {
	if s.compressor != nil {
		payload := s.buffers.Get()
		defer s.buffers.Put(payload)
		if err := s.readEnvelope(payload, r); err != nil {
			return reflect.Value{}, err
		}
		r = bytes.NewReader(payload.Bytes())
	}
	d := newDecodeSession(s, r)
	v, err := d.readRoot()
	return v, wrapIfUncoded(err)
}

// Deserialize reads a single value from r and stores it in a T. Values of a
// different type with the same kind are converted; anything else fails with
// CodeTypeMismatch.
func Deserialize[T any](s *Serializer, r io.Reader) (T, error) {
	var out T
	v, err := s.deserializeValue(r)
	if err != nil {
		return out, err
	}
	dst := reflect.ValueOf(&out).Elem()
	if err := assign(dst, v); err != nil {
		return out, err
	}
	return out, nil
}

func wrapWriteError(err error) error {
	if wireErr, ok := asError(err); ok {
		return wireErr
	}
	return errorf(CodeUnknown, "write: %w", err)
}
