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

// go/src/core/sphincs/slhdsa/wots.go
package slhdsa

import (
	"io"

	params "github.com/sphinx-core/stark-pqc/src/core/sphincs/config"
)

// wotsDigits returns the base-w message digits followed by the checksum digits.
func wotsDigits(msg *[n]byte) (digits [params.Len]uint32) {
	base2b(msg[:], params.LgW, digits[:params.Len1])
	var csum uint32
	for _, d := range digits[:params.Len1] {
		csum += params.W - 1 - d
	}
	// len2*lg_w = 12 bits, left aligned in two bytes.
	csum <<= (8 - (params.Len2*params.LgW)%8) % 8
	cs := [2]byte{byte(csum >> 8), byte(csum)}
	base2b(cs[:], params.LgW, digits[params.Len1:])
	return digits
}

// chain applies F steps times starting at position start.
func (hs *hasher) chain(x [n]byte, start, steps uint32, adrs *address) [n]byte {
	for j := start; j < start+steps; j++ {
		adrs.setHash(j)
		x = hs.F(adrs, &x)
	}
	return x
}

// wotsPKFromSig reads one WOTS+ signature chain by chain from r and
// returns the compressed public key. Only one chain value is held at a time.
func (hs *hasher) wotsPKFromSig(r io.Reader, msg *[n]byte, adrs address) ([n]byte, error) {
	digits := wotsDigits(msg)

	pkAdrs := adrs
	pkAdrs.setTypeAndClear(addrWotsPK)
	pkAdrs.setKeyPair(adrs.keyPair())
	hs.tStart(&pkAdrs)

	var node [n]byte
	for i := uint32(0); i < params.Len; i++ {
		if _, err := io.ReadFull(r, node[:]); err != nil {
			return node, err
		}
		adrs.setChain(i)
		tip := hs.chain(node, digits[i], params.W-1-digits[i], &adrs)
		hs.tWrite(&tip)
	}
	return hs.tSum(), nil
}

// wotsPKGen computes a WOTS+ public key from the secret seed.
func (hs *hasher) wotsPKGen(skSeed *[n]byte, adrs address) [n]byte {
	skAdrs := adrs
	skAdrs.setTypeAndClear(addrWotsPRF)
	skAdrs.setKeyPair(adrs.keyPair())

	pkAdrs := adrs
	pkAdrs.setTypeAndClear(addrWotsPK)
	pkAdrs.setKeyPair(adrs.keyPair())

	tips := make([][n]byte, params.Len)
	for i := uint32(0); i < params.Len; i++ {
		skAdrs.setChain(i)
		sk := hs.PRF(&skAdrs, skSeed)
		adrs.setChain(i)
		tips[i] = hs.chain(sk, 0, params.W-1, &adrs)
	}
	hs.tStart(&pkAdrs)
	for i := range tips {
		hs.tWrite(&tips[i])
	}
	return hs.tSum()
}

// wotsSign appends the WOTS+ signature of msg to dst.
func (hs *hasher) wotsSign(dst []byte, msg *[n]byte, skSeed *[n]byte, adrs address) []byte {
	digits := wotsDigits(msg)
	skAdrs := adrs
	skAdrs.setTypeAndClear(addrWotsPRF)
	skAdrs.setKeyPair(adrs.keyPair())
	for i := uint32(0); i < params.Len; i++ {
		skAdrs.setChain(i)
		sk := hs.PRF(&skAdrs, skSeed)
		adrs.setChain(i)
		sig := hs.chain(sk, 0, digits[i], &adrs)
		dst = append(dst, sig[:]...)
	}
	return dst
}
