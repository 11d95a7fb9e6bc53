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
	"strings"
	"testing"
	"time"

	"github.com/objectwire/wire"
	"github.com/objectwire/wire/compress/zstd"
	"github.com/objectwire/wire/internal/assert"
)

type benchOrder struct {
	ID       int64
	Customer string
	Placed   time.Time
	Lines    []benchLine
	Notes    map[string]string
	Next     *benchOrder
}

type benchLine struct {
	SKU      string
	Quantity int32
	Price    float64
}

func newBenchOrder() *benchOrder {
	order := &benchOrder{
		ID:       42,
		Customer: "ACME Corporation",
		Placed:   time.Date(2024, time.May, 1, 9, 0, 0, 0, time.UTC),
		Notes:    map[string]string{"gift": "yes", "wrap": strings.Repeat("blue ", 10)},
	}
	for i := range 50 {
		order.Lines = append(order.Lines, benchLine{SKU: "SKU-" + strings.Repeat("x", i%7), Quantity: int32(i), Price: float64(i) * 1.25})
	}
	order.Next = &benchOrder{ID: 43, Customer: "Initech"}
	return order
}

func BenchmarkSerializer(b *testing.B) {
	order := newBenchOrder()
	zstdCompressor, err := zstd.New()
	assert.Nil(b, err)
	b.Cleanup(zstdCompressor.Close)
	for _, bench := range []struct {
		name    string
		options []wire.Option
	}{
		{"default", nil},
		{"references", []wire.Option{wire.WithPreserveObjectReferences()}},
		{"version tolerance", []wire.Option{wire.WithVersionTolerance()}},
		{"zstd", []wire.Option{wire.WithCompressor(zstdCompressor)}},
	} {
		s := wire.NewSerializer(bench.options...)
		data, err := s.Marshal(order)
		assert.Nil(b, err)
		b.Run(bench.name+"/marshal", func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(data)))
			var buf bytes.Buffer
			for b.Loop() {
				buf.Reset()
				if err := s.Serialize(&buf, order); err != nil {
					b.Fatal(err)
				}
			}
		})
		b.Run(bench.name+"/unmarshal", func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(data)))
			for b.Loop() {
				if _, err := wire.Deserialize[*benchOrder](s, bytes.NewReader(data)); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkSerializerParallel(b *testing.B) {
	order := newBenchOrder()
	s := wire.NewSerializer()
	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		var buf bytes.Buffer
		for pb.Next() {
			buf.Reset()
			if err := s.Serialize(&buf, order); err != nil {
				b.Error(err)
				return
			}
			if _, err := wire.Deserialize[*benchOrder](s, &buf); err != nil {
				b.Error(err)
				return
			}
		}
	})
}
