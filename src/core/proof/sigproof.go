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

// go/src/core/proof/sigproof.go
package sigproof

import (
	"crypto/subtle"
	"encoding/binary"

	"github.com/sphinx-core/stark-pqc/src/core/hashchain"
	"github.com/sphinx-core/stark-pqc/src/core/types"
)

// SignedBlob returns the exact byte string a sender signs:
// cipher || kem || nonce || LE64(seq).
func SignedBlob(cipher, kem []byte, nonce [types.NonceSize]byte, seq uint64) []byte {
	out := make([]byte, 0, SignedBlobLen(len(cipher), len(kem)))
	out = append(out, cipher...)
	out = append(out, kem...)
	out = append(out, nonce[:]...)
	return binary.LittleEndian.AppendUint64(out, seq)
}

// SignedBlobLen is the length of the signed blob for the given part sizes.
func SignedBlobLen(cipherLen, kemLen int) int {
	return cipherLen + kemLen + types.NonceSize + 8
}

// RecordBlob rebuilds the signed blob from a finalized record.
func RecordBlob(r *types.MessageRecord) []byte {
	return SignedBlob(r.Cipher(), r.Kem(), r.Nonce, r.Sequence)
}

// GenerateSigProof returns the value a record stores as SigHash for sig:
// the hash chain over sig uploaded in MaxChunk pieces.
func GenerateSigProof(sig []byte) ([hashchain.Size]byte, error) {
	return hashchain.Sum(sig, types.MaxChunk)
}

// VerifySigProof reports whether sig matches a stored SigHash.
func VerifySigProof(sigHash [hashchain.Size]byte, sig []byte) bool {
	got, err := GenerateSigProof(sig)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare(got[:], sigHash[:]) == 1
}
