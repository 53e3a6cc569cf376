// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package quant

import (
	"errors"
	"fmt"
)

// ErrBlockAlignment marks a quantized payload whose byte length is not an
// exact multiple of the format's encoded block size. The decode contract
// never truncates; a ragged input is rejected outright.
var ErrBlockAlignment = errors.New("quant: input not a multiple of encoded block size")

// Format identifies a device-native encoding for weight data.
type Format uint8

// Supported encodings. The K-quant formats follow the GGML block layout.
const (
	F16 Format = iota
	Q8_0
	Q4_K
	Q6_K
)

// Trait describes one format's block geometry: how many dense elements a
// block decodes to and how many encoded bytes it occupies.
type Trait struct {
	BlockSize  int // dense elements per block
	BlockBytes int // encoded bytes per block
}

var traits = map[Format]Trait{
	F16:  {BlockSize: 1, BlockBytes: 2},
	Q8_0: {BlockSize: 32, BlockBytes: 34},
	Q4_K: {BlockSize: 256, BlockBytes: 144},
	Q6_K: {BlockSize: 256, BlockBytes: 210},
}

var formatNames = map[Format]string{
	F16:  "F16",
	Q8_0: "Q8_0",
	Q4_K: "Q4_K",
	Q6_K: "Q6_K",
}

// Trait returns the block geometry for f.
func (f Format) Trait() Trait { return traits[f] }

// String returns the GGML-style format name.
func (f Format) String() string {
	if name, ok := formatNames[f]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", f)
}

// Blocks validates that byteLen holds a whole number of encoded blocks and
// returns that count. A ragged length fails with ErrBlockAlignment.
func (f Format) Blocks(byteLen int) (int, error) {
	t := f.Trait()
	if t.BlockBytes == 0 {
		return 0, fmt.Errorf("quant: unsupported format %s", f)
	}
	if byteLen%t.BlockBytes != 0 {
		return 0, fmt.Errorf("%w: %s payload of %d bytes, block is %d bytes",
			ErrBlockAlignment, f, byteLen, t.BlockBytes)
	}
	return byteLen / t.BlockBytes, nil
}

// Elements returns the dense element count a payload of byteLen decodes to:
// numBlocks * BlockSize. Fails on ragged input like Blocks.
func (f Format) Elements(byteLen int) (int, error) {
	blocks, err := f.Blocks(byteLen)
	if err != nil {
		return 0, err
	}
	return blocks * f.Trait().BlockSize, nil
}

// EncodedSize returns the byte length a dense array of n elements occupies
// in this format. n must be a whole number of blocks.
func (f Format) EncodedSize(n int) (int, error) {
	t := f.Trait()
	if n%t.BlockSize != 0 {
		return 0, fmt.Errorf("%w: %d elements, block is %d elements",
			ErrBlockAlignment, n, t.BlockSize)
	}
	return n / t.BlockSize * t.BlockBytes, nil
}
