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

// go/src/core/sphincs/slhdsa/verify.go
package slhdsa

import (
	"bytes"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"

	"github.com/sphinx-core/stark-pqc/src/core/budget"
	params "github.com/sphinx-core/stark-pqc/src/core/sphincs/config"
)

// ErrInvalidSignature is returned for any signature that does not verify,
// including signatures of the wrong length.
var ErrInvalidSignature = errors.New("slhdsa: invalid signature")

// VerifyStream verifies a SLH-DSA-SHA2-128s signature read sequentially from
// r. The signature is consumed one node at a time and never held in full.
// Work is charged to m; once the limit is crossed the budget error is
// returned instead of a verdict.
func VerifyStream(pk *PublicKey, msg []byte, r io.Reader, m *budget.Meter) error {
	if pk == nil {
		return fmt.Errorf("%w: nil public key", ErrInvalidSignature)
	}
	var rnd [n]byte
	if _, err := io.ReadFull(r, rnd[:]); err != nil {
		return streamErr(err)
	}
	digest, err := hashMessage(&rnd, &pk.Seed, &pk.Root, msg, m)
	if err != nil {
		return err
	}
	md, idxTree, idxLeaf := splitDigest(&digest)

	hs := newHasher(&pk.Seed, m)
	var adrs address
	adrs.setTree(idxTree)
	adrs.setTypeAndClear(addrForsTree)
	adrs.setKeyPair(idxLeaf)
	node, err := hs.forsPKFromSig(r, md, adrs)
	if err != nil {
		return streamErr(err)
	}
	if hs.err != nil {
		return hs.err
	}

	// Hypertree: one XMSS signature per layer, bottom up.
	adrs = address{}
	for layer := uint32(0); layer < params.D; layer++ {
		if layer > 0 {
			idxLeaf = uint32(idxTree & (1<<params.HPrime - 1))
			idxTree >>= params.HPrime
		}
		adrs.setLayer(layer)
		adrs.setTree(idxTree)
		node, err = hs.xmssPKFromSig(r, idxLeaf, &node, adrs)
		if err != nil {
			return streamErr(err)
		}
		if hs.err != nil {
			return hs.err
		}
	}

	var extra [1]byte
	if k, _ := r.Read(extra[:]); k != 0 {
		return fmt.Errorf("%w: trailing bytes", ErrInvalidSignature)
	}
	if subtle.ConstantTimeCompare(node[:], pk.Root[:]) != 1 {
		return ErrInvalidSignature
	}
	return nil
}

func streamErr(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: truncated", ErrInvalidSignature)
	}
	return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
}

// Verify reports whether sig is a valid signature of msg under pk.
func Verify(pk *PublicKey, msg, sig []byte) bool {
	if len(sig) != params.SigBytes {
		return false
	}
	return VerifyStream(pk, msg, bytes.NewReader(sig), nil) == nil
}

// MaxVerifyCost bounds the work units VerifyStream charges for a
// full-length signature over a message of msgLen bytes.
func MaxVerifyCost(msgLen int) uint64 {
	fHash := budget.HashUnits(64 + adrsLen + n)
	hHash := budget.HashUnits(64 + adrsLen + 2*n)

	cost := budget.HashUnits(3*n + len(pureMsgPrefix) + msgLen)
	cost += budget.HashUnits(2*n + 32 + 4)

	// FORS: leaf F plus A compressions per tree, then T_k.
	cost += params.K * (fHash + params.A*hHash)
	cost += budget.HashUnits(64 + adrsLen + params.K*n)

	// Each layer: at most w-1 chain steps per chain, T_len, then h'
	// compressions up the auth path.
	layer := params.Len*(params.W-1)*fHash +
		budget.HashUnits(64+adrsLen+params.Len*n) +
		params.HPrime*hHash
	cost += params.D * layer
	return cost
}
