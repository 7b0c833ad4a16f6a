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

// go/src/core/stark/zk/proof.go
package zk

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/sphinx-core/stark-pqc/src/core/hashtree"
)

// ErrMalformedProof is returned for any proof bytes that do not decode.
var ErrMalformedProof = errors.New("zk: malformed proof")

var proofMagic = [4]byte{'S', 'P', 'Q', '1'}

// Opening is a set of committed values at sorted, distinct positions
// together with their batch authentication path.
type Opening struct {
	Values []fr.Element
	Proof  hashtree.BatchProof
}

// Proof is a complete STARK proof for the affine counter.
type Proof struct {
	Options     ProofOptions
	TraceRoot   [hashtree.Size]byte
	LayerRoots  [][hashtree.Size]byte
	Remainder   []fr.Element
	Nonce       uint64
	Trace       Opening
	LayerOpened []Opening
}

// Bytes encodes the proof. Counts are fixed width, integers little endian,
// field elements 32 bytes big endian.
func (p *Proof) Bytes() []byte {
	out := make([]byte, 0, p.Size())
	out = append(out, proofMagic[:]...)
	out = append(out, p.Options.Bytes()...)
	out = append(out, p.TraceRoot[:]...)
	out = append(out, byte(len(p.LayerRoots)))
	for i := range p.LayerRoots {
		out = append(out, p.LayerRoots[i][:]...)
	}
	out = append(out, byte(len(p.Remainder)))
	out = appendElements(out, p.Remainder)
	out = binary.LittleEndian.AppendUint64(out, p.Nonce)
	out = appendOpening(out, &p.Trace)
	for i := range p.LayerOpened {
		out = appendOpening(out, &p.LayerOpened[i])
	}
	return out
}

// Size is the encoded length in bytes.
func (p *Proof) Size() int {
	n := len(proofMagic) + 4 + hashtree.Size + 1 + len(p.LayerRoots)*hashtree.Size +
		1 + len(p.Remainder)*fr.Bytes + 8 + openingSize(&p.Trace)
	for i := range p.LayerOpened {
		n += openingSize(&p.LayerOpened[i])
	}
	return n
}

func openingSize(o *Opening) int {
	return 2 + len(o.Values)*fr.Bytes + 2 + len(o.Proof.Nodes)*hashtree.Size
}

func appendElements(out []byte, es []fr.Element) []byte {
	for i := range es {
		b := es[i].Bytes()
		out = append(out, b[:]...)
	}
	return out
}

func appendOpening(out []byte, o *Opening) []byte {
	out = binary.LittleEndian.AppendUint16(out, uint16(len(o.Values)))
	out = appendElements(out, o.Values)
	out = binary.LittleEndian.AppendUint16(out, uint16(len(o.Proof.Nodes)))
	for i := range o.Proof.Nodes {
		out = append(out, o.Proof.Nodes[i][:]...)
	}
	return out
}

// reader consumes proof bytes and records the first failure.
type reader struct {
	buf []byte
	err error
}

func (r *reader) fail(format string, args ...any) {
	if r.err == nil {
		r.err = fmt.Errorf("%w: "+format, append([]any{ErrMalformedProof}, args...)...)
	}
}

func (r *reader) next(n int) []byte {
	if r.err != nil {
		return nil
	}
	if len(r.buf) < n {
		r.fail("truncated")
		return nil
	}
	b := r.buf[:n]
	r.buf = r.buf[n:]
	return b
}

func (r *reader) u8() int {
	b := r.next(1)
	if b == nil {
		return 0
	}
	return int(b[0])
}

func (r *reader) u16() int {
	b := r.next(2)
	if b == nil {
		return 0
	}
	return int(binary.LittleEndian.Uint16(b))
}

func (r *reader) hash() (h [hashtree.Size]byte) {
	if b := r.next(hashtree.Size); b != nil {
		copy(h[:], b)
	}
	return h
}

func (r *reader) elements(count int) []fr.Element {
	out := make([]fr.Element, count)
	for i := range out {
		b := r.next(fr.Bytes)
		if b == nil {
			return nil
		}
		if err := out[i].SetBytesCanonical(b); err != nil {
			r.fail("non-canonical field element")
			return nil
		}
	}
	return out
}

func (r *reader) opening(maxValues, maxNodes int) Opening {
	var o Opening
	nv := r.u16()
	if nv == 0 || nv > maxValues {
		r.fail("opening with %d values", nv)
		return o
	}
	o.Values = r.elements(nv)
	nn := r.u16()
	if nn > maxNodes {
		r.fail("opening with %d nodes", nn)
		return o
	}
	o.Proof.Nodes = make([][hashtree.Size]byte, nn)
	for i := range o.Proof.Nodes {
		o.Proof.Nodes[i] = r.hash()
	}
	return o
}

// DecodeProof parses proof bytes. Counts are bounded by the options the
// proof declares, so decoding work is bounded before any verification.
func DecodeProof(b []byte) (*Proof, error) {
	r := &reader{buf: b}
	magic := r.next(len(proofMagic))
	if r.err == nil && [4]byte(magic) != proofMagic {
		r.fail("bad magic")
	}
	opt := r.next(4)
	if r.err != nil {
		return nil, r.err
	}
	p := &Proof{Options: ProofOptions{
		NumQueries:         opt[0],
		BlowupFactor:       opt[1],
		GrindingFactor:     opt[2],
		MaxRemainderDegree: opt[3],
	}}
	if err := p.Options.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedProof, err)
	}

	p.TraceRoot = r.hash()
	if nl := r.u8(); r.err == nil && nl != p.Options.NumLayers() {
		r.fail("%d layers, want %d", nl, p.Options.NumLayers())
	}
	if r.err != nil {
		return nil, r.err
	}
	p.LayerRoots = make([][hashtree.Size]byte, p.Options.NumLayers())
	for i := range p.LayerRoots {
		p.LayerRoots[i] = r.hash()
	}
	if nr := r.u8(); r.err == nil && nr != p.Options.RemainderSize() {
		r.fail("%d remainder coefficients, want %d", nr, p.Options.RemainderSize())
	}
	if r.err != nil {
		return nil, r.err
	}
	p.Remainder = r.elements(p.Options.RemainderSize())
	if nb := r.next(8); nb != nil {
		p.Nonce = binary.LittleEndian.Uint64(nb)
	}

	size := p.Options.LDESize()
	queries := 2 * int(p.Options.NumQueries)
	p.Trace = r.opening(min(queries, size), size)
	p.LayerOpened = make([]Opening, len(p.LayerRoots))
	for i := range p.LayerOpened {
		layer := size >> i
		p.LayerOpened[i] = r.opening(min(queries, layer), layer)
	}
	if r.err == nil && len(r.buf) != 0 {
		r.fail("%d trailing bytes", len(r.buf))
	}
	if r.err != nil {
		return nil, r.err
	}
	return p, nil
}
