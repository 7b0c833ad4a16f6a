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

// go/src/core/sphincs/slhdsa/address.go
package slhdsa

import "encoding/binary"

// Address types.
const (
	addrWotsHash  uint32 = 0
	addrWotsPK    uint32 = 1
	addrTree      uint32 = 2
	addrForsTree  uint32 = 3
	addrForsRoots uint32 = 4
	addrWotsPRF   uint32 = 5
	addrForsPRF   uint32 = 6
)

// address is the 32-byte ADRS structure:
// layer(4) | tree(12) | type(4) | word1(4) | word2(4) | word3(4).
type address [32]byte

func (a *address) setLayer(l uint32) {
	binary.BigEndian.PutUint32(a[0:4], l)
}

func (a *address) setTree(t uint64) {
	binary.BigEndian.PutUint32(a[4:8], 0)
	binary.BigEndian.PutUint64(a[8:16], t)
}

func (a *address) setTypeAndClear(t uint32) {
	binary.BigEndian.PutUint32(a[16:20], t)
	clear(a[20:32])
}

func (a *address) setKeyPair(i uint32) {
	binary.BigEndian.PutUint32(a[20:24], i)
}

func (a *address) keyPair() uint32 {
	return binary.BigEndian.Uint32(a[20:24])
}

func (a *address) setChain(i uint32) {
	binary.BigEndian.PutUint32(a[24:28], i)
}

func (a *address) setHash(i uint32) {
	binary.BigEndian.PutUint32(a[28:32], i)
}

func (a *address) setTreeHeight(z uint32) {
	binary.BigEndian.PutUint32(a[24:28], z)
}

func (a *address) setTreeIndex(i uint32) {
	binary.BigEndian.PutUint32(a[28:32], i)
}

func (a *address) treeIndex() uint32 {
	return binary.BigEndian.Uint32(a[28:32])
}

// compressed returns the 22-byte ADRSc used by the SHA2 instantiation.
func (a *address) compressed() (c [22]byte) {
	c[0] = a[3]
	copy(c[1:9], a[8:16])
	c[9] = a[19]
	copy(c[10:22], a[20:32])
	return c
}
