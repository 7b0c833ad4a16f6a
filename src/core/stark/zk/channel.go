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

// go/src/core/stark/zk/channel.go
package zk

import (
	"crypto/sha256"
	"encoding/binary"
	"math/bits"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/holiman/uint256"
	"github.com/sphinx-core/stark-pqc/src/core/budget"
	"github.com/sphinx-core/stark-pqc/src/core/stark/air"
)

// transcriptTag separates this proof system's transcripts from any other use
// of the same hash.
var transcriptTag = []byte("stark-pqc/affine-counter/v1")

// Channel is the Fiat-Shamir transcript shared by prover and verifier.
// Absorbing replaces the state with SHA-256(state || data); every draw
// hashes the state with a counter that resets on absorb.
type Channel struct {
	state   [sha256.Size]byte
	counter uint64
	meter   *budget.Meter
	err     error
}

// NewChannel seeds a transcript with the public inputs and options.
func NewChannel(pub air.PublicInputs, opts ProofOptions, m *budget.Meter) *Channel {
	seed := make([]byte, 0, len(transcriptTag)+2*fr.Bytes+4)
	seed = append(seed, transcriptTag...)
	seed = append(seed, pub.Bytes()...)
	seed = append(seed, opts.Bytes()...)
	c := &Channel{meter: m}
	c.charge(len(seed))
	c.state = sha256.Sum256(seed)
	return c
}

// SeedLen is the byte length hashed by NewChannel.
func SeedLen() int {
	return len(transcriptTag) + 2*fr.Bytes + 4
}

// Err returns the first budget failure seen by the channel.
func (c *Channel) Err() error { return c.err }

func (c *Channel) charge(n int) {
	if err := c.meter.Hash(n); err != nil && c.err == nil {
		c.err = err
	}
}

// Absorb mixes data into the state.
func (c *Channel) Absorb(data []byte) {
	c.charge(len(c.state) + len(data))
	h := sha256.New()
	h.Write(c.state[:])
	h.Write(data)
	h.Sum(c.state[:0])
	c.counter = 0
}

// AbsorbRoot absorbs a commitment.
func (c *Channel) AbsorbRoot(root [sha256.Size]byte) {
	c.Absorb(root[:])
}

// AbsorbElements absorbs field elements in their 32-byte encoding.
func (c *Channel) AbsorbElements(es []fr.Element) {
	buf := make([]byte, 0, len(es)*fr.Bytes)
	for i := range es {
		b := es[i].Bytes()
		buf = append(buf, b[:]...)
	}
	c.Absorb(buf)
}

// AbsorbNonce absorbs the proof of work nonce.
func (c *Channel) AbsorbNonce(nonce uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], nonce)
	c.Absorb(b[:])
}

func (c *Channel) draw() [sha256.Size]byte {
	c.charge(len(c.state) + 8)
	var buf [sha256.Size + 8]byte
	copy(buf[:], c.state[:])
	binary.LittleEndian.PutUint64(buf[sha256.Size:], c.counter)
	c.counter++
	return sha256.Sum256(buf[:])
}

// DrawElement draws a field element, reducing 256 bits modulo r.
func (c *Channel) DrawElement() fr.Element {
	h := c.draw()
	var e fr.Element
	e.SetBytes(h[:])
	return e
}

// DrawAlphas draws one composition coefficient per constraint.
func (c *Channel) DrawAlphas() [air.NumConstraints]fr.Element {
	var out [air.NumConstraints]fr.Element
	for i := range out {
		out[i] = c.DrawElement()
	}
	return out
}

// DrawIndices draws count query positions in [0, domainSize). Repeats are
// possible and kept.
func (c *Channel) DrawIndices(count, domainSize int) []int {
	out := make([]int, count)
	mod := uint256.NewInt(uint64(domainSize))
	v := new(uint256.Int)
	for i := range out {
		h := c.draw()
		v.SetBytes32(h[:])
		v.Mod(v, mod)
		out[i] = int(v.Uint64())
	}
	return out
}

// powHash is SHA-256(state || LE64(nonce)). It does not advance the channel.
func (c *Channel) powHash(nonce uint64) [sha256.Size]byte {
	var buf [sha256.Size + 8]byte
	copy(buf[:], c.state[:])
	binary.LittleEndian.PutUint64(buf[sha256.Size:], nonce)
	return sha256.Sum256(buf[:])
}

func leadingZeros(h *[sha256.Size]byte) int {
	return bits.LeadingZeros64(binary.BigEndian.Uint64(h[:8]))
}

// CheckGrinding reports whether nonce gives at least want leading zero bits.
func (c *Channel) CheckGrinding(nonce uint64, want uint8) bool {
	c.charge(len(c.state) + 8)
	h := c.powHash(nonce)
	return leadingZeros(&h) >= int(want)
}

// Grind searches for the smallest valid nonce.
func (c *Channel) Grind(want uint8) uint64 {
	for nonce := uint64(0); ; nonce++ {
		h := c.powHash(nonce)
		if leadingZeros(&h) >= int(want) {
			return nonce
		}
	}
}
