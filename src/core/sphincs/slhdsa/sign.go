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

// go/src/core/sphincs/slhdsa/sign.go
package slhdsa

import (
	"bytes"
	"crypto/rand"
	"fmt"
	"io"

	params "github.com/sphinx-core/stark-pqc/src/core/sphincs/config"
)

// PublicKey is PK.seed || PK.root.
type PublicKey struct {
	Seed [n]byte
	Root [n]byte
}

// Bytes returns the 32-byte encoding of the key.
func (pk *PublicKey) Bytes() []byte {
	out := make([]byte, 0, params.PublicKeyBytes)
	out = append(out, pk.Seed[:]...)
	return append(out, pk.Root[:]...)
}

// Equal reports whether both keys encode the same bytes.
func (pk *PublicKey) Equal(other *PublicKey) bool {
	return other != nil && pk.Seed == other.Seed && pk.Root == other.Root
}

// ParsePublicKey decodes a 32-byte public key.
func ParsePublicKey(b []byte) (*PublicKey, error) {
	if len(b) != params.PublicKeyBytes {
		return nil, fmt.Errorf("slhdsa: public key must be %d bytes, got %d", params.PublicKeyBytes, len(b))
	}
	pk := new(PublicKey)
	copy(pk.Seed[:], b[:n])
	copy(pk.Root[:], b[n:])
	return pk, nil
}

// PrivateKey is SK.seed || SK.prf || PK.seed || PK.root.
type PrivateKey struct {
	SKSeed [n]byte
	SKPrf  [n]byte
	PublicKey
}

// Bytes returns the 64-byte encoding of the key.
func (sk *PrivateKey) Bytes() []byte {
	out := make([]byte, 0, params.PrivateKeyBytes)
	out = append(out, sk.SKSeed[:]...)
	out = append(out, sk.SKPrf[:]...)
	return append(out, sk.PublicKey.Bytes()...)
}

// Public returns a copy of the public half.
func (sk *PrivateKey) Public() *PublicKey {
	pk := sk.PublicKey
	return &pk
}

// ParsePrivateKey decodes a 64-byte private key and checks that its
// embedded PK.root matches the seeds.
func ParsePrivateKey(b []byte) (*PrivateKey, error) {
	if len(b) != params.PrivateKeyBytes {
		return nil, fmt.Errorf("slhdsa: private key must be %d bytes, got %d", params.PrivateKeyBytes, len(b))
	}
	var skSeed, skPrf, pkSeed [n]byte
	copy(skSeed[:], b[:n])
	copy(skPrf[:], b[n:2*n])
	copy(pkSeed[:], b[2*n:3*n])
	sk := NewKeyFromSeeds(skSeed, skPrf, pkSeed)
	if !bytes.Equal(sk.Root[:], b[3*n:]) {
		return nil, fmt.Errorf("slhdsa: private key root does not match its seeds")
	}
	return sk, nil
}

// GenerateKey draws three seeds from rnd (crypto/rand if nil) and derives
// the key pair.
func GenerateKey(rnd io.Reader) (*PrivateKey, error) {
	if rnd == nil {
		rnd = rand.Reader
	}
	var seeds [3 * n]byte
	if _, err := io.ReadFull(rnd, seeds[:]); err != nil {
		return nil, fmt.Errorf("slhdsa: read key seeds: %w", err)
	}
	var skSeed, skPrf, pkSeed [n]byte
	copy(skSeed[:], seeds[:n])
	copy(skPrf[:], seeds[n:2*n])
	copy(pkSeed[:], seeds[2*n:])
	return NewKeyFromSeeds(skSeed, skPrf, pkSeed), nil
}

// NewKeyFromSeeds computes PK.root as the root of the top XMSS tree.
func NewKeyFromSeeds(skSeed, skPrf, pkSeed [n]byte) *PrivateKey {
	hs := newHasher(&pkSeed, nil)
	var adrs address
	adrs.setLayer(params.D - 1)
	root := hs.xmssNode(&skSeed, 0, params.HPrime, adrs)
	return &PrivateKey{
		SKSeed:    skSeed,
		SKPrf:     skPrf,
		PublicKey: PublicKey{Seed: pkSeed, Root: root},
	}
}

// Sign returns a signature of msg. A nil addrnd selects the deterministic
// variant, which uses PK.seed as the randomizer input.
func (sk *PrivateKey) Sign(msg []byte, addrnd *[n]byte) ([]byte, error) {
	optRand := &sk.Seed
	if addrnd != nil {
		optRand = addrnd
	}
	rnd := prfMsg(&sk.SKPrf, optRand, msg)
	digest, err := hashMessage(&rnd, &sk.Seed, &sk.Root, msg, nil)
	if err != nil {
		return nil, err
	}
	md, idxTree, idxLeaf := splitDigest(&digest)

	sig := make([]byte, 0, params.SigBytes)
	sig = append(sig, rnd[:]...)

	hs := newHasher(&sk.Seed, nil)
	var adrs address
	adrs.setTree(idxTree)
	adrs.setTypeAndClear(addrForsTree)
	adrs.setKeyPair(idxLeaf)
	forsStart := len(sig)
	sig = hs.forsSign(sig, md, &sk.SKSeed, adrs)
	root, err := hs.forsPKFromSig(bytes.NewReader(sig[forsStart:]), md, adrs)
	if err != nil {
		return nil, err
	}

	adrs = address{}
	for layer := uint32(0); layer < params.D; layer++ {
		if layer > 0 {
			idxLeaf = uint32(idxTree & (1<<params.HPrime - 1))
			idxTree >>= params.HPrime
		}
		adrs.setLayer(layer)
		adrs.setTree(idxTree)
		start := len(sig)
		sig = hs.xmssSign(sig, &root, &sk.SKSeed, idxLeaf, adrs)
		if layer == params.D-1 {
			break
		}
		root, err = hs.xmssPKFromSig(bytes.NewReader(sig[start:]), idxLeaf, &root, adrs)
		if err != nil {
			return nil, err
		}
	}
	if len(sig) != params.SigBytes {
		return nil, fmt.Errorf("slhdsa: produced %d signature bytes, want %d", len(sig), params.SigBytes)
	}
	return sig, nil
}
