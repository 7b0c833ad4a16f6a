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

// go/src/core/sphincs/sign/backend/sign.go
package sign

import (
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/sphinx-core/stark-pqc/src/core/hashtree"
	sigproof "github.com/sphinx-core/stark-pqc/src/core/proof"
	params "github.com/sphinx-core/stark-pqc/src/core/sphincs/config"
	key "github.com/sphinx-core/stark-pqc/src/core/sphincs/key/backend"
	"github.com/sphinx-core/stark-pqc/src/core/sphincs/slhdsa"
	"github.com/sphinx-core/stark-pqc/src/core/types"
	"github.com/sphinx-core/stark-pqc/src/state"
)

// signaturePrefix namespaces cached signatures in a shared store.
var signaturePrefix = []byte("spx:")

// SignedMessage is a signature split the way it is uploaded.
type SignedMessage struct {
	Signature []byte
	Parts     [][]byte               // MaxChunk sized upload chunks
	SigHash   [32]byte               // chain value the store will record
	Root      *hashtree.HashTreeNode // tree over Parts
}

// SphincsManager signs and verifies SLH-DSA signatures and caches produced
// signatures in a local store so an interrupted upload can resume.
type SphincsManager struct {
	store      state.Store
	keyManager *key.KeyManager
	parameters *params.SLHDSAParameters
}

// NewSphincsManager creates a SphincsManager. store may be nil to disable caching.
func NewSphincsManager(store state.Store, keyManager *key.KeyManager, parameters *params.SLHDSAParameters) *SphincsManager {
	if keyManager == nil || parameters == nil {
		panic("KeyManager or SLHDSAParameters are not properly initialized")
	}
	return &SphincsManager{
		store:      store,
		keyManager: keyManager,
		parameters: parameters,
	}
}

// SplitSignature cuts a signature into upload chunks of at most MaxChunk bytes.
func SplitSignature(sig []byte) [][]byte {
	parts := make([][]byte, 0, (len(sig)+types.MaxChunk-1)/types.MaxChunk)
	for off := 0; off < len(sig); off += types.MaxChunk {
		end := min(off+types.MaxChunk, len(sig))
		parts = append(parts, sig[off:end])
	}
	return parts
}

// SignMessage signs message deterministically and prepares it for upload.
// A signature cached for the same key and message is reused.
func (sm *SphincsManager) SignMessage(message []byte, sk *slhdsa.PrivateKey) (*SignedMessage, error) {
	if sk == nil {
		return nil, errors.New("private key is nil")
	}
	if signed, err := sm.LoadSignature(message, sk.Public()); err == nil {
		return signed, nil
	} else if !errors.Is(err, state.ErrNotFound) {
		return nil, err
	}

	sig, err := sk.Sign(message, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to sign message: %w", err)
	}
	signed, err := sm.prepare(sig)
	if err != nil {
		return nil, err
	}

	if sm.store != nil {
		root := signed.Root.Bytes()
		value := append(root[:], sig...)
		if err := state.Put(sm.store, cacheKey(sk.Public(), message), value); err != nil {
			return nil, fmt.Errorf("cache signature: %w", err)
		}
	}
	return signed, nil
}

// LoadSignature returns the signature SignMessage cached for pk and message.
// A cached entry whose parts no longer match the recorded root, or that does
// not verify, is dropped and reported as not found.
func (sm *SphincsManager) LoadSignature(message []byte, pk *slhdsa.PublicKey) (*SignedMessage, error) {
	if sm.store == nil {
		return nil, state.ErrNotFound
	}
	k := cacheKey(pk, message)
	value, err := sm.store.Get(k)
	if err != nil {
		return nil, err
	}
	if len(value) != hashtree.Size+sm.parameters.SignatureSize {
		return nil, sm.evict(k)
	}
	var root [hashtree.Size]byte
	copy(root[:], value)
	sig := value[hashtree.Size:]

	if !sm.VerifyParts(SplitSignature(sig), root) || !slhdsa.Verify(pk, message, sig) {
		return nil, sm.evict(k)
	}
	return sm.prepare(sig)
}

// Forget drops the cached signature for pk and message.
func (sm *SphincsManager) Forget(message []byte, pk *slhdsa.PublicKey) error {
	if sm.store == nil {
		return nil
	}
	b := state.NewBatch()
	b.Delete(cacheKey(pk, message))
	return sm.store.Write(b)
}

func (sm *SphincsManager) evict(k []byte) error {
	b := state.NewBatch()
	b.Delete(k)
	if err := sm.store.Write(b); err != nil {
		return err
	}
	return state.ErrNotFound
}

func (sm *SphincsManager) prepare(sig []byte) (*SignedMessage, error) {
	if len(sig) != sm.parameters.SignatureSize {
		return nil, fmt.Errorf("signature is %d bytes, want %d", len(sig), sm.parameters.SignatureSize)
	}
	parts := SplitSignature(sig)
	root, err := buildHashTreeFromSignature(parts)
	if err != nil {
		return nil, err
	}
	sigHash, err := sigproof.GenerateSigProof(sig)
	if err != nil {
		return nil, err
	}
	return &SignedMessage{Signature: sig, Parts: parts, SigHash: sigHash, Root: root}, nil
}

// VerifySignature checks the signature itself and, when sigHash is non-nil,
// that sig is the exact byte string a record was finalized with.
func (sm *SphincsManager) VerifySignature(message, sig []byte, pk *slhdsa.PublicKey, sigHash *[32]byte) bool {
	if !slhdsa.Verify(pk, message, sig) {
		return false
	}
	if sigHash == nil {
		return true
	}
	return sigproof.VerifySigProof(*sigHash, sig)
}

// VerifyParts rebuilds the chunk tree from parts and compares its root.
func (sm *SphincsManager) VerifyParts(parts [][]byte, merkleRoot [hashtree.Size]byte) bool {
	rebuilt, err := buildHashTreeFromSignature(parts)
	if err != nil {
		return false
	}
	got := rebuilt.Bytes()
	return subtle.ConstantTimeCompare(merkleRoot[:], got[:]) == 1
}

// cacheKey is the prefix followed by SHA-256(pk || message).
func cacheKey(pk *slhdsa.PublicKey, message []byte) []byte {
	h := sha256.New()
	h.Write(pk.Bytes())
	h.Write(message)
	return h.Sum(append([]byte(nil), signaturePrefix...))
}

// buildHashTreeFromSignature builds the tree over the signature parts and
// returns its root node.
func buildHashTreeFromSignature(sigParts [][]byte) (*hashtree.HashTreeNode, error) {
	tree := hashtree.NewHashTree(sigParts)
	if err := tree.Build(); err != nil {
		return nil, err
	}
	return tree.Root, nil
}
