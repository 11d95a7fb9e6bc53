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

package wire_test

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/objectwire/wire"
)

type Employee struct {
	Name    string
	Manager *Employee
	Reports []*Employee
}

func Example() {
	s := wire.NewSerializer()
	data, err := s.Marshal(Employee{Name: "Ada", Reports: []*Employee{{Name: "Grace"}}})
	if err != nil {
		fmt.Println(err)
		return
	}
	employee, err := wire.Deserialize[Employee](s, bytes.NewReader(data))
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(employee.Name, employee.Reports[0].Name, employee.Manager == nil)
	// Output: Ada Grace true
}

func ExampleWithPreserveObjectReferences() {
	s := wire.NewSerializer(wire.WithPreserveObjectReferences())
	boss := &Employee{Name: "Ada"}
	boss.Reports = []*Employee{{Name: "Grace", Manager: boss}}
	data, err := s.Marshal(boss)
	if err != nil {
		fmt.Println(err)
		return
	}
	decoded, err := wire.Deserialize[*Employee](s, bytes.NewReader(data))
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(decoded.Reports[0].Manager == decoded)
	// Output: true
}

type PointV1 struct {
	X, Y int
}

type PointV2 struct {
	Y, Z int
}

func ExampleWithVersionTolerance() {
	writer := wire.NewSerializer(
		wire.WithVersionTolerance(),
		wire.WithTypeName("geometry.Point", PointV1{}),
	)
	reader := wire.NewSerializer(wire.WithTypeName("geometry.Point", PointV2{}))
	data, err := writer.Marshal(PointV1{X: 1, Y: 2})
	if err != nil {
		fmt.Println(err)
		return
	}
	point, err := wire.Deserialize[PointV2](reader, bytes.NewReader(data))
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Printf("%+v\n", point)
	// Output: {Y:2 Z:0}
}

func ExampleSerializer_Dump() {
	s := wire.NewSerializer()
	data, err := s.Marshal([]any{"a", int32(1), nil})
	if err != nil {
		fmt.Println(err)
		return
	}
	root, err := s.Dump(bytes.NewReader(data))
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(root.Manifest, root.Type)
	for _, child := range root.Children {
		fmt.Println(" ", child.Manifest, child.Value)
	}
	// Output:
	// full []interface {}
	//   string a
	//   int32 1
	//   null <nil>
}

func ExampleRemoteError() {
	s := wire.NewSerializer()
	data, err := s.Marshal(fmt.Errorf("load config: %w", errors.New("file not found")))
	if err != nil {
		fmt.Println(err)
		return
	}
	decoded, err := wire.Deserialize[error](s, bytes.NewReader(data))
	if err != nil {
		fmt.Println(err)
		return
	}
	var remote *wire.RemoteError
	if errors.As(decoded, &remote) {
		fmt.Println(remote.TypeName)
		fmt.Println(remote.Message)
		fmt.Println(errors.Unwrap(remote))
	}
	// Output:
	// *fmt.wrapError
	// load config: file not found
	// file not found
}
