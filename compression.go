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
	"errors"

	"github.com/objectwire/wire/compress"
)

// compressPayload compresses src into dst. It reports false, and leaves dst
// empty, when the compressor decides the payload doesn't shrink.
func compressPayload(compressor compress.Compressor, dst *bytes.Buffer, src []byte) (bool, error) {
	err := compressor.Compress(dst, src)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, compress.ErrIncompressible):
		dst.Reset()
		return false, nil
	}
	return false, errorf(CodeInternal, "compress with %s: %w", compressor.Name(), err)
}

// decompress replaces the contents of buffer with their decompressed form.
func decompress(buffer *bytes.Buffer, pool *bufferPool, compressor compress.Compressor, readMaxBytes int) error {
	if compressor == nil {
		return errorf(CodeMalformed, "value is compressed, but no compressor is configured")
	}
	data := pool.Get()
	defer pool.Put(data)
	if err := compressor.Decompress(data, buffer.Bytes(), int64(readMaxBytes)); err != nil {
		if errors.Is(err, compress.ErrTooLarge) {
			return errorf(CodeResourceExhausted, "decompressed value is larger than configured max %d", readMaxBytes)
		}
		return errorf(CodeMalformed, "decompress with %s: %w", compressor.Name(), err)
	}
	buffer.Reset()
	_, _ = data.WriteTo(buffer)
	return nil
}
