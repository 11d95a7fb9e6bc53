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

	"google.golang.org/protobuf/proto"
)

var protoMessageType = reflect.TypeFor[proto.Message]()

// protoFactory writes generated protobuf messages with the protobuf binary
// encoding instead of walking their fields, which carry internal state.
type protoFactory struct{}

func (protoFactory) CanEncode(t reflect.Type) bool { return isProtoMessage(t) }
func (protoFactory) CanDecode(t reflect.Type) bool { return isProtoMessage(t) }

func isProtoMessage(t reflect.Type) bool {
	return t.Kind() == reflect.Pointer && t.Implements(protoMessageType)
}

func (protoFactory) Build(table CodecTable, t reflect.Type) (Codec, error) {
	codec, installed, ok := install(table, t, t)
	if !ok {
		return installed, nil
	}
	options := proto.MarshalOptions{Deterministic: true}
	codec.Initialize(
		func(d *DecodeSession, dst reflect.Value) error {
			msg := reflect.New(t.Elem())
			dst.Set(msg)
			d.Track(msg)
			data, err := d.ReadBytes()
			if err != nil {
				return err
			}
			if err := proto.Unmarshal(data, msg.Interface().(proto.Message)); err != nil { //nolint:forcetypeassert
				return errorf(CodeMalformed, "unmarshal %s: %w", t, err)
			}
			return nil
		},
		func(e *EncodeSession, v reflect.Value) error {
			msg, _ := v.Interface().(proto.Message)
			data, err := options.MarshalAppend(e.scratch[:0], msg)
			if err != nil {
				return errorf(CodeInvalidArgument, "marshal %s: %w", t, err)
			}
			e.scratch = data[:0]
			return e.WriteBytes(data)
		},
	)
	return codec, nil
}
