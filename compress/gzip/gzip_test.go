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

package gzip

import (
	"bytes"
	"sync"
	"testing"

	"github.com/objectwire/wire/compress"
	"github.com/objectwire/wire/internal/assert"
)

func TestRoundTrip(t *testing.T) {
	t.Parallel()
	c := New()
	assert.Equal(t, c.Name(), Name)
	src := bytes.Repeat([]byte("gzip stream "), 512)
	assert.True(t, c.ShouldCompress(src))
	assert.False(t, c.ShouldCompress(src[:oneKiB]))
	var compressed bytes.Buffer
	assert.Nil(t, c.Compress(&compressed, src))
	assert.True(t, compressed.Len() < len(src)/4)
	var out bytes.Buffer
	assert.Nil(t, c.Decompress(&out, compressed.Bytes(), 0))
	assert.Equal(t, out.Bytes(), src)

	err := c.Decompress(&bytes.Buffer{}, compressed.Bytes(), 100)
	assert.ErrorIs(t, err, compress.ErrTooLarge)
	assert.NotNil(t, c.Decompress(&bytes.Buffer{}, []byte("not gzip"), 0))
}

func TestPooledConcurrentUse(t *testing.T) {
	t.Parallel()
	c := NewLevel(1)
	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			src := bytes.Repeat([]byte{byte(i)}, 4096)
			var compressed, out bytes.Buffer
			if err := c.Compress(&compressed, src); err != nil {
				t.Error(err)
				return
			}
			if err := c.Decompress(&out, compressed.Bytes(), 0); err != nil {
				t.Error(err)
				return
			}
			if !bytes.Equal(out.Bytes(), src) {
				t.Errorf("goroutine %d: round trip mismatch", i)
			}
		}()
	}
	wg.Wait()
}
