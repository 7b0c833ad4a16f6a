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

// go/src/core/hashchain/chain.go
package hashchain

import (
	"crypto/sha256"
	"errors"
)

// Size is the length of a chain value in bytes.
const Size = sha256.Size

// Zero is the seed every buffer chain starts from.
var Zero [Size]byte

// ErrChunkSize is returned by Of for a non-positive chunk size.
var ErrChunkSize = errors.New("hashchain: chunk size must be positive")

// Next returns SHA-256(chain || chunk).
func Next(chain [Size]byte, chunk []byte) [Size]byte {
	h := sha256.New()
	h.Write(chain[:])
	h.Write(chunk)
	var out [Size]byte
	h.Sum(out[:0])
	return out
}

// Accumulator keeps the running chain over an append-only stream.
// Each Write is one link; the chain is prefix and order sensitive.
type Accumulator struct {
	chain  [Size]byte
	length uint64
	links  int
}

// New returns an accumulator seeded with Zero.
func New() *Accumulator {
	return &Accumulator{}
}

// Write appends one chunk and advances the chain. It never fails.
func (a *Accumulator) Write(chunk []byte) (int, error) {
	a.chain = Next(a.chain, chunk)
	a.length += uint64(len(chunk))
	a.links++
	return len(chunk), nil
}

// Sum returns the current chain value.
func (a *Accumulator) Sum() [Size]byte { return a.chain }

// Len returns the number of bytes accumulated so far.
func (a *Accumulator) Len() uint64 { return a.length }

// Links returns the number of chunks accumulated so far.
func (a *Accumulator) Links() int { return a.links }

// Reset puts the accumulator back to its seed.
func (a *Accumulator) Reset() {
	*a = Accumulator{}
}

// Link is one chunk together with the chain value expected after it.
type Link struct {
	Offset   uint32
	Chunk    []byte
	Expected [Size]byte
}

// Of splits data into chunks of at most chunkSize bytes and returns each
// chunk with its offset and the chain value the store must reach after
// accepting it.
func Of(data []byte, chunkSize int) ([]Link, error) {
	if chunkSize <= 0 {
		return nil, ErrChunkSize
	}
	links := make([]Link, 0, (len(data)+chunkSize-1)/chunkSize)
	acc := New()
	for off := 0; off < len(data); off += chunkSize {
		end := off + chunkSize
		if end > len(data) {
			end = len(data)
		}
		chunk := data[off:end]
		acc.Write(chunk)
		links = append(links, Link{Offset: uint32(off), Chunk: chunk, Expected: acc.Sum()})
	}
	return links, nil
}

// Sum returns the chain value of data uploaded in chunkSize pieces.
func Sum(data []byte, chunkSize int) ([Size]byte, error) {
	links, err := Of(data, chunkSize)
	if err != nil {
		return Zero, err
	}
	if len(links) == 0 {
		return Zero, nil
	}
	return links[len(links)-1].Expected, nil
}
