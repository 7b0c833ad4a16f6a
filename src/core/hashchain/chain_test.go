// MIT License
//
// # Copyright (c) 2024 sphinx-core
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// go/src/core/hashchain/chain_test.go
package hashchain

import (
	"bytes"
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextMatchesSHA256(t *testing.T) {
	chunk := []byte("hello chain")
	want := sha256.Sum256(append(make([]byte, Size), chunk...))
	assert.Equal(t, want, Next(Zero, chunk))
}

func TestAccumulatorIsOrderSensitive(t *testing.T) {
	a, b := New(), New()
	a.Write([]byte("one"))
	a.Write([]byte("two"))
	b.Write([]byte("two"))
	b.Write([]byte("one"))
	assert.NotEqual(t, a.Sum(), b.Sum())
	assert.Equal(t, uint64(6), a.Len())
	assert.Equal(t, 2, a.Links())
}

func TestAccumulatorIsBoundarySensitive(t *testing.T) {
	// Same bytes, different chunking: different chain.
	a, b := New(), New()
	a.Write([]byte("abcd"))
	b.Write([]byte("ab"))
	b.Write([]byte("cd"))
	assert.NotEqual(t, a.Sum(), b.Sum())
}

func TestOfProducesContiguousLinks(t *testing.T) {
	data := bytes.Repeat([]byte{0xab}, 2000)
	links, err := Of(data, 900)
	require.NoError(t, err)
	require.Len(t, links, 3)

	chain := Zero
	var off uint32
	for _, l := range links {
		assert.Equal(t, off, l.Offset)
		chain = Next(chain, l.Chunk)
		assert.Equal(t, chain, l.Expected)
		off += uint32(len(l.Chunk))
	}
	assert.Equal(t, uint32(len(data)), off)
	assert.Len(t, links[2].Chunk, 200)

	sum, err := Sum(data, 900)
	require.NoError(t, err)
	assert.Equal(t, chain, sum)
}

func TestOfRejectsBadChunkSize(t *testing.T) {
	_, err := Of([]byte{1}, 0)
	assert.ErrorIs(t, err, ErrChunkSize)
}

func TestSumOfEmptyIsZero(t *testing.T) {
	sum, err := Sum(nil, 900)
	require.NoError(t, err)
	assert.Equal(t, Zero, sum)

	a := New()
	a.Write([]byte{1})
	a.Reset()
	assert.Equal(t, Zero, a.Sum())
}
