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

var emptyStructType = reflect.TypeFor[struct{}]()

// setFactory handles maps used as sets, map[K]struct{}: a count followed by
// each key.
type setFactory struct{}

func (setFactory) CanEncode(t reflect.Type) bool { return isSet(t) }
func (setFactory) CanDecode(t reflect.Type) bool { return isSet(t) }

func isSet(t reflect.Type) bool {
	return t.Kind() == reflect.Map && t.Elem() == emptyStructType
}

func (setFactory) Build(table CodecTable, t reflect.Type) (Codec, error) {
	codec, installed, ok := install(table, t, t)
	if !ok {
		return installed, nil
	}
	key, err := hintFor(table, t.Key())
	if err != nil {
		codec.Fail(err)
		return nil, err
	}
	present := reflect.New(emptyStructType).Elem()
	codec.Initialize(
		func(d *DecodeSession, dst reflect.Value) error {
			n, err := d.ReadLength()
			if err != nil {
				return err
			}
			dst.Set(reflect.MakeMapWithSize(t, capacityHint(n)))
			d.Track(dst)
			k := reflect.New(t.Key()).Elem()
			for range n {
				v, err := d.ReadObject()
				if err != nil {
					return err
				}
				if err := assign(k, v); err != nil {
					return err
				}
				dst.SetMapIndex(k, present)
			}
			return nil
		},
		func(e *EncodeSession, v reflect.Value) error {
			if err := e.WriteLength(v.Len()); err != nil {
				return err
			}
			iter := v.MapRange()
			for iter.Next() {
				if err := e.WriteObject(iter.Key(), key); err != nil {
					return err
				}
			}
			return nil
		},
	)
	return codec, nil
}

// dictionaryFactory handles every other map: a count followed by each entry.
// Entries are written by a struct codec over a synthesized {Key, Value} pair,
// without an entry manifest.
type dictionaryFactory struct{}

func (dictionaryFactory) CanEncode(t reflect.Type) bool { return t.Kind() == reflect.Map }
func (dictionaryFactory) CanDecode(t reflect.Type) bool { return t.Kind() == reflect.Map }

func entryType(t reflect.Type) reflect.Type {
	return reflect.StructOf([]reflect.StructField{
		{Name: "Key", Type: t.Key()},
		{Name: "Value", Type: t.Elem()},
	})
}

func (dictionaryFactory) Build(table CodecTable, t reflect.Type) (Codec, error) {
	codec, installed, ok := install(table, t, t)
	if !ok {
		return installed, nil
	}
	pair := entryType(t)
	entries, err := buildLayout(table, reflectFieldLister{}, pair)
	if err != nil {
		codec.Fail(err)
		return nil, err
	}
	codec.Initialize(
		func(d *DecodeSession, dst reflect.Value) error {
			n, err := d.ReadLength()
			if err != nil {
				return err
			}
			dst.Set(reflect.MakeMapWithSize(t, capacityHint(n)))
			d.Track(dst)
			entry := reflect.New(pair).Elem()
			for range n {
				entry.SetZero()
				if err := entries.read(d, entry); err != nil {
					return err
				}
				dst.SetMapIndex(entry.Field(0), entry.Field(1))
			}
			return nil
		},
		func(e *EncodeSession, v reflect.Value) error {
			if err := e.WriteLength(v.Len()); err != nil {
				return err
			}
			entry := reflect.New(pair).Elem()
			iter := v.MapRange()
			for iter.Next() {
				entry.Field(0).Set(iter.Key())
				entry.Field(1).Set(iter.Value())
				if err := entries.write(e, entry); err != nil {
					return err
				}
			}
			return nil
		},
	)
	return codec, nil
}
