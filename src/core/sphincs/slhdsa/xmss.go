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

// go/src/core/sphincs/slhdsa/xmss.go
package slhdsa

import (
	"io"

	params "github.com/sphinx-core/stark-pqc/src/core/sphincs/config"
)

// xmssPKFromSig reads one XMSS signature (WOTS+ signature then auth path)
// from r and returns the tree root it implies.
func (hs *hasher) xmssPKFromSig(r io.Reader, idx uint32, msg *[n]byte, adrs address) ([n]byte, error) {
	adrs.setTypeAndClear(addrWotsHash)
	adrs.setKeyPair(idx)
	node, err := hs.wotsPKFromSig(r, msg, adrs)
	if err != nil {
		return node, err
	}

	adrs.setTypeAndClear(addrTree)
	adrs.setTreeIndex(idx)
	var auth [n]byte
	for k := uint32(0); k < params.HPrime; k++ {
		if _, err := io.ReadFull(r, auth[:]); err != nil {
			return node, err
		}
		adrs.setTreeHeight(k + 1)
		if (idx>>k)&1 == 0 {
			adrs.setTreeIndex(adrs.treeIndex() / 2)
			node = hs.H(&adrs, &node, &auth)
		} else {
			adrs.setTreeIndex((adrs.treeIndex() - 1) / 2)
			node = hs.H(&adrs, &auth, &node)
		}
	}
	return node, nil
}

// xmssNode computes the node at height z and index i of an XMSS tree.
func (hs *hasher) xmssNode(skSeed *[n]byte, i, z uint32, adrs address) [n]byte {
	if z == 0 {
		adrs.setTypeAndClear(addrWotsHash)
		adrs.setKeyPair(i)
		return hs.wotsPKGen(skSeed, adrs)
	}
	left := hs.xmssNode(skSeed, 2*i, z-1, adrs)
	right := hs.xmssNode(skSeed, 2*i+1, z-1, adrs)
	adrs.setTypeAndClear(addrTree)
	adrs.setTreeHeight(z)
	adrs.setTreeIndex(i)
	return hs.H(&adrs, &left, &right)
}

// xmssSign appends the XMSS signature of msg under leaf idx to dst.
func (hs *hasher) xmssSign(dst []byte, msg *[n]byte, skSeed *[n]byte, idx uint32, adrs address) []byte {
	var auth [params.HPrime][n]byte
	for j := uint32(0); j < params.HPrime; j++ {
		k := (idx >> j) ^ 1
		auth[j] = hs.xmssNode(skSeed, k, j, adrs)
	}
	adrs.setTypeAndClear(addrWotsHash)
	adrs.setKeyPair(idx)
	dst = hs.wotsSign(dst, msg, skSeed, adrs)
	for j := range auth {
		dst = append(dst, auth[j][:]...)
	}
	return dst
}
