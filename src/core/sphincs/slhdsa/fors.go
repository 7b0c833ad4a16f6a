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

// go/src/core/sphincs/slhdsa/fors.go
package slhdsa

import (
	"io"

	params "github.com/sphinx-core/stark-pqc/src/core/sphincs/config"
)

// forsPKFromSig reads the FORS signature tree by tree from r and streams
// each recomputed root into T_k.
func (hs *hasher) forsPKFromSig(r io.Reader, md []byte, adrs address) ([n]byte, error) {
	var indices [params.K]uint32
	base2b(md, params.A, indices[:])

	rootsAdrs := adrs
	rootsAdrs.setTypeAndClear(addrForsRoots)
	rootsAdrs.setKeyPair(adrs.keyPair())
	hs.tStart(&rootsAdrs)

	var (
		node [n]byte
		auth [n]byte
	)
	for i := uint32(0); i < params.K; i++ {
		if _, err := io.ReadFull(r, node[:]); err != nil {
			return node, err
		}
		adrs.setTreeHeight(0)
		adrs.setTreeIndex(i<<params.A + indices[i])
		node = hs.F(&adrs, &node)

		for j := uint32(0); j < params.A; j++ {
			if _, err := io.ReadFull(r, auth[:]); err != nil {
				return node, err
			}
			adrs.setTreeHeight(j + 1)
			if (indices[i]>>j)&1 == 0 {
				adrs.setTreeIndex(adrs.treeIndex() / 2)
				node = hs.H(&adrs, &node, &auth)
			} else {
				adrs.setTreeIndex((adrs.treeIndex() - 1) / 2)
				node = hs.H(&adrs, &auth, &node)
			}
		}
		hs.tWrite(&node)
	}
	return hs.tSum(), nil
}

// forsSK derives the FORS secret value at global leaf index idx.
func (hs *hasher) forsSK(skSeed *[n]byte, adrs address, idx uint32) [n]byte {
	skAdrs := adrs
	skAdrs.setTypeAndClear(addrForsPRF)
	skAdrs.setKeyPair(adrs.keyPair())
	skAdrs.setTreeIndex(idx)
	return hs.PRF(&skAdrs, skSeed)
}

// forsNode computes the FORS node at height z and index i.
func (hs *hasher) forsNode(skSeed *[n]byte, i, z uint32, adrs address) [n]byte {
	if z == 0 {
		sk := hs.forsSK(skSeed, adrs, i)
		adrs.setTreeHeight(0)
		adrs.setTreeIndex(i)
		return hs.F(&adrs, &sk)
	}
	left := hs.forsNode(skSeed, 2*i, z-1, adrs)
	right := hs.forsNode(skSeed, 2*i+1, z-1, adrs)
	adrs.setTreeHeight(z)
	adrs.setTreeIndex(i)
	return hs.H(&adrs, &left, &right)
}

// forsSign appends the FORS signature of md to dst.
func (hs *hasher) forsSign(dst []byte, md []byte, skSeed *[n]byte, adrs address) []byte {
	var indices [params.K]uint32
	base2b(md, params.A, indices[:])
	for i := uint32(0); i < params.K; i++ {
		sk := hs.forsSK(skSeed, adrs, i<<params.A+indices[i])
		dst = append(dst, sk[:]...)
		for j := uint32(0); j < params.A; j++ {
			s := (indices[i] >> j) ^ 1
			node := hs.forsNode(skSeed, i<<(params.A-j)+s, j, adrs)
			dst = append(dst, node[:]...)
		}
	}
	return dst
}
