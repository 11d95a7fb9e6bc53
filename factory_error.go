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
	"errors"
	"reflect"
)

// A RemoteError is the decoded form of an error whose concrete type has no
// serializable fields, such as the errors returned by errors.New and
// fmt.Errorf. It preserves the original type name, the message and the
// wrapped error.
type RemoteError struct {
	// TypeName is the wire name of the error's original type.
	TypeName         string
	Message          string
	StackTrace       string
	RemoteStackTrace string
	Inner            error
}

var remoteErrorType = reflect.TypeFor[*RemoteError]()

func (e *RemoteError) Error() string {
	return e.Message
}

// Unwrap returns the decoded wrapped error, if any.
func (e *RemoteError) Unwrap() error {
	return e.Inner
}

// errorFactory handles opaque errors: types that implement error but expose
// no exported fields for the plan builder to write. The payload is the type
// name, message and stack traces as strings, followed by the wrapped error
// as an object. All of them decode as *RemoteError.
type errorFactory struct{}

func (errorFactory) CanEncode(t reflect.Type) bool { return isOpaqueError(t) }
func (errorFactory) CanDecode(t reflect.Type) bool { return isOpaqueError(t) }

func isOpaqueError(t reflect.Type) bool {
	if t == remoteErrorType {
		return true
	}
	if !t.Implements(errorType) {
		return false
	}
	base := t
	if base.Kind() == reflect.Pointer {
		base = base.Elem()
	}
	switch base.Kind() {
	case reflect.Struct:
		fields, err := reflectFieldLister{}.Fields(base)
		return err == nil && len(fields) == 0
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Pointer, reflect.Interface:
		return false
	}
	return true
}

func (errorFactory) Build(table CodecTable, t reflect.Type) (Codec, error) {
	codec, installed, ok := install(table, t, remoteErrorType)
	if !ok {
		return installed, nil
	}
	typeName := table.Serializer().registry.nameOf(t)
	tracked := t.Kind() == reflect.Pointer || t.Kind() == reflect.Map
	codec.Initialize(
		func(d *DecodeSession, dst reflect.Value) error {
			remote := &RemoteError{}
			dst.Set(reflect.ValueOf(remote))
			if tracked {
				d.Track(dst)
			}
			var err error
			if remote.TypeName, err = d.ReadString(); err != nil {
				return err
			}
			if remote.Message, err = d.ReadString(); err != nil {
				return err
			}
			if remote.RemoteStackTrace, err = d.ReadString(); err != nil {
				return err
			}
			if remote.StackTrace, err = d.ReadString(); err != nil {
				return err
			}
			inner, err := d.ReadObject()
			if err != nil {
				return err
			}
			if inner.IsValid() {
				innerErr, ok := inner.Interface().(error)
				if !ok {
					return errorf(CodeTypeMismatch, "wrapped value %s isn't an error", inner.Type())
				}
				remote.Inner = innerErr
			}
			return nil
		},
		func(e *EncodeSession, v reflect.Value) error {
			err, _ := v.Interface().(error)
			remote := &RemoteError{TypeName: typeName}
			if r, ok := err.(*RemoteError); ok { //nolint:errorlint
				remote = r
			} else if err != nil {
				remote.Message = err.Error()
				remote.Inner = errors.Unwrap(err)
			}
			for _, s := range []string{remote.TypeName, remote.Message, remote.RemoteStackTrace, remote.StackTrace} {
				if err := e.WriteString(s); err != nil {
					return err
				}
			}
			return e.WriteObject(reflect.ValueOf(&remote.Inner).Elem(), nil)
		},
	)
	return codec, nil
}
