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
	"log/slog"

	"github.com/objectwire/wire/compress"
)

// An Option configures a Serializer.
type Option interface {
	applyToSerializer(*serializerConfig)
}

type serializerConfig struct {
	Logger             *slog.Logger
	VersionTolerance   bool
	PreserveReferences bool
	Factories          []Factory
	FieldLister        FieldLister
	Compressor         compress.Compressor
	ReadMaxBytes       int
	Types              []any
	Names              []namedType
}

type namedType struct {
	name  string
	value any
}

// WithOptions composes multiple Options into one.
func WithOptions(options ...Option) Option {
	return &optionsOption{options}
}

type optionsOption struct {
	options []Option
}

func (o *optionsOption) applyToSerializer(config *serializerConfig) {
	for _, option := range o.options {
		option.applyToSerializer(config)
	}
}

// WithVersionTolerance writes the field names of every struct the first time
// it appears in a stream. Readers then match fields by name, so structs may
// gain or lose fields between the writer and the reader: unknown fields are
// skipped and missing fields keep their zero value.
//
// Streams written without this option can only be read with an identical
// field layout. Readers accept both forms regardless of the option.
func WithVersionTolerance() Option {
	return &versionToleranceOption{}
}

type versionToleranceOption struct{}

func (o *versionToleranceOption) applyToSerializer(config *serializerConfig) {
	config.VersionTolerance = true
}

// WithPreserveObjectReferences writes each pointer and map once per stream
// and refers back to it afterwards. Without it, shared values are written
// once per reference and cyclic graphs can't be serialized.
//
// Both ends of a stream must agree on this option.
func WithPreserveObjectReferences() Option {
	return &preserveReferencesOption{}
}

type preserveReferencesOption struct{}

func (o *preserveReferencesOption) applyToSerializer(config *serializerConfig) {
	config.PreserveReferences = true
}

// WithFactories adds codec factories ahead of the built-in ones. Factories
// are consulted in the order given.
func WithFactories(factories ...Factory) Option {
	return &factoriesOption{factories}
}

type factoriesOption struct {
	factories []Factory
}

func (o *factoriesOption) applyToSerializer(config *serializerConfig) {
	config.Factories = append(config.Factories, o.factories...)
}

// WithFieldLister replaces the reflection-based field introspection used for
// structs.
func WithFieldLister(lister FieldLister) Option {
	return &fieldListerOption{lister}
}

type fieldListerOption struct {
	lister FieldLister
}

func (o *fieldListerOption) applyToSerializer(config *serializerConfig) {
	if o.lister != nil {
		config.FieldLister = o.lister
	}
}

// WithLogger sets the logger for debug records about codec construction and
// type registration. By default, nothing is logged.
func WithLogger(logger *slog.Logger) Option {
	return &loggerOption{logger}
}

type loggerOption struct {
	logger *slog.Logger
}

func (o *loggerOption) applyToSerializer(config *serializerConfig) {
	if o.logger != nil {
		config.Logger = o.logger
	}
}

// WithCompressor frames every value in an envelope and compresses payloads
// the compressor considers worth compressing. Both ends of a stream must use
// the same compressor.
func WithCompressor(compressor compress.Compressor) Option {
	return &compressorOption{compressor}
}

type compressorOption struct {
	compressor compress.Compressor
}

func (o *compressorOption) applyToSerializer(config *serializerConfig) {
	config.Compressor = o.compressor
}

// WithReadMaxBytes limits the performance impact of pathologically large
// streams. Lengths and counts read from a stream, envelope sizes and
// decompressed payloads larger than n bytes fail with CodeResourceExhausted.
//
// Setting WithReadMaxBytes to zero allows any size, which is the default.
func WithReadMaxBytes(n int) Option {
	return &readMaxBytesOption{n}
}

type readMaxBytesOption struct {
	max int
}

func (o *readMaxBytesOption) applyToSerializer(config *serializerConfig) {
	config.ReadMaxBytes = o.max
}

// WithTypes registers the types of the given values, as Register does.
func WithTypes(values ...any) Option {
	return &typesOption{values}
}

type typesOption struct {
	values []any
}

func (o *typesOption) applyToSerializer(config *serializerConfig) {
	config.Types = append(config.Types, o.values...)
}

// WithTypeName registers the type of value under name, as RegisterName does.
func WithTypeName(name string, value any) Option {
	return &typeNameOption{namedType{name: name, value: value}}
}

type typeNameOption struct {
	named namedType
}

func (o *typeNameOption) applyToSerializer(config *serializerConfig) {
	config.Names = append(config.Names, o.named)
}
