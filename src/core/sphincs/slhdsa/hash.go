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

// go/src/core/sphincs/slhdsa/hash.go
package slhdsa

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding"
	"encoding/binary"
	"hash"

	"github.com/sphinx-core/stark-pqc/src/core/budget"
	params "github.com/sphinx-core/stark-pqc/src/core/sphincs/config"
)

const (
	n = params.N

	// blockPad zero-pads PK.seed to one SHA-256 block.
	blockPad = 64 - n
	adrsLen  = 22
)

// pureMsgPrefix is toByte(0,1) || toByte(|ctx|,1) for an empty context.
var pureMsgPrefix = [2]byte{0x00, 0x00}

// hasher evaluates the tweakable hashes F, H, T and PRF of the SHA2
// instantiation. The SHA-256 state after PK.seed || pad is computed once
// and restored for every call. The first budget failure is kept in err.
type hasher struct {
	mid   []byte
	f     hash.Hash // F, H, PRF
	t     hash.Hash // streaming T_l
	tLen  int
	meter *budget.Meter
	err   error
	out   [sha256.Size]byte
}

func newHasher(pkSeed *[n]byte, m *budget.Meter) *hasher {
	h := sha256.New()
	h.Write(pkSeed[:])
	h.Write(make([]byte, blockPad))
	mid, err := h.(encoding.BinaryMarshaler).MarshalBinary()
	if err != nil {
		panic("slhdsa: sha256 state is not marshalable: " + err.Error())
	}
	return &hasher{mid: mid, f: sha256.New(), t: sha256.New(), meter: m}
}

func (hs *hasher) charge(inputLen int) {
	if err := hs.meter.Hash(inputLen); err != nil && hs.err == nil {
		hs.err = err
	}
}

func (hs *hasher) restore(h hash.Hash, adrs *address) {
	if err := h.(encoding.BinaryUnmarshaler).UnmarshalBinary(hs.mid); err != nil {
		panic("slhdsa: restore sha256 state: " + err.Error())
	}
	c := adrs.compressed()
	h.Write(c[:])
}

func (hs *hasher) sum(h hash.Hash) (out [n]byte) {
	full := h.Sum(hs.out[:0])
	copy(out[:], full[:n])
	return out
}

// F is the chaining function. PRF shares its layout with SK.seed as input.
func (hs *hasher) F(adrs *address, in *[n]byte) [n]byte {
	hs.charge(64 + adrsLen + n)
	hs.restore(hs.f, adrs)
	hs.f.Write(in[:])
	return hs.sum(hs.f)
}

// H compresses two nodes.
func (hs *hasher) H(adrs *address, left, right *[n]byte) [n]byte {
	hs.charge(64 + adrsLen + 2*n)
	hs.restore(hs.f, adrs)
	hs.f.Write(left[:])
	hs.f.Write(right[:])
	return hs.sum(hs.f)
}

// PRF derives a secret chain or leaf start value.
func (hs *hasher) PRF(adrs *address, skSeed *[n]byte) [n]byte {
	return hs.F(adrs, skSeed)
}

// tStart begins a streaming T_l computation.
func (hs *hasher) tStart(adrs *address) {
	hs.restore(hs.t, adrs)
	hs.tLen = 0
}

func (hs *hasher) tWrite(node *[n]byte) {
	hs.t.Write(node[:])
	hs.tLen += n
}

func (hs *hasher) tSum() [n]byte {
	hs.charge(64 + adrsLen + hs.tLen)
	return hs.sum(hs.t)
}

// hashMessage is H_msg: MGF1-SHA-256(R || PK.seed || SHA-256(R || PK.seed || PK.root || M'), m).
func hashMessage(r, pkSeed, pkRoot *[n]byte, msg []byte, m *budget.Meter) ([params.M]byte, error) {
	var digest [params.M]byte
	if err := m.Hash(3*n + len(pureMsgPrefix) + len(msg)); err != nil {
		return digest, err
	}
	h := sha256.New()
	h.Write(r[:])
	h.Write(pkSeed[:])
	h.Write(pkRoot[:])
	h.Write(pureMsgPrefix[:])
	h.Write(msg)
	inner := h.Sum(nil)

	if err := m.Hash(2*n + len(inner) + 4); err != nil {
		return digest, err
	}
	h.Reset()
	h.Write(r[:])
	h.Write(pkSeed[:])
	h.Write(inner)
	var counter [4]byte
	binary.BigEndian.PutUint32(counter[:], 0)
	h.Write(counter[:])
	copy(digest[:], h.Sum(nil))
	return digest, nil
}

// prfMsg is PRF_msg: HMAC-SHA-256(SK.prf, opt_rand || M') truncated to n.
func prfMsg(skPrf, optRand *[n]byte, msg []byte) (out [n]byte) {
	mac := hmac.New(sha256.New, skPrf[:])
	mac.Write(optRand[:])
	mac.Write(pureMsgPrefix[:])
	mac.Write(msg)
	copy(out[:], mac.Sum(nil))
	return out
}

// base2b splits x into outLen integers of b bits, most significant first.
func base2b(x []byte, b uint, out []uint32) {
	var (
		in    int
		bits  uint
		total uint32
	)
	for i := range out {
		for bits < b {
			total = total<<8 | uint32(x[in])
			in++
			bits += 8
		}
		bits -= b
		out[i] = (total >> bits) & (1<<b - 1)
	}
}

// splitDigest returns md, idx_tree and idx_leaf from an H_msg output.
func splitDigest(digest *[params.M]byte) (md []byte, idxTree uint64, idxLeaf uint32) {
	md = digest[:params.MDBytes]
	var t uint64
	for _, b := range digest[params.MDBytes : params.MDBytes+params.TreeIdxBytes] {
		t = t<<8 | uint64(b)
	}
	idxTree = t & (1<<(params.H-params.H/params.D) - 1)
	var l uint32
	for _, b := range digest[params.MDBytes+params.TreeIdxBytes : params.M] {
		l = l<<8 | uint32(b)
	}
	idxLeaf = l & (1<<(params.H/params.D) - 1)
	return md, idxTree, idxLeaf
}
