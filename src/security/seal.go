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

// go/src/security/seal.go
package security

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"github.com/cloudflare/circl/kem/kyber/kyber768"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// NonceSize is the AEAD nonce length stored in a record.
const NonceSize = chacha20poly1305.NonceSize

var kdfInfo = []byte("stark-pqc/message/v1")

// ErrOpen is returned when a sealed message cannot be decrypted.
var ErrOpen = errors.New("security: cannot open message")

// Envelope is a sealed message as uploaded: the AEAD ciphertext, the KEM
// encapsulation and the nonce.
type Envelope struct {
	Cipher []byte
	Kem    []byte
	Nonce  [NonceSize]byte
}

// deriveKey expands a KEM shared secret into an AEAD key bound to the
// encapsulation.
func deriveKey(shared, kemCT []byte) ([]byte, error) {
	key := make([]byte, chacha20poly1305.KeySize)
	r := hkdf.New(sha256.New, shared, kemCT, kdfInfo)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, err
	}
	return key, nil
}

// Seal encrypts plaintext to pk. aad is authenticated but not stored;
// callers pass the same value to Open. rnd defaults to crypto/rand.
func Seal(pk *kyber768.PublicKey, plaintext, aad []byte, rnd io.Reader) (*Envelope, error) {
	if rnd == nil {
		rnd = rand.Reader
	}
	seed := make([]byte, kyber768.EncapsulationSeedSize)
	if _, err := io.ReadFull(rnd, seed); err != nil {
		return nil, fmt.Errorf("failed to read encapsulation seed: %w", err)
	}
	env := &Envelope{Kem: make([]byte, KEMCiphertextSize)}
	shared := make([]byte, kyber768.SharedKeySize)
	pk.EncapsulateTo(env.Kem, shared, seed)

	if _, err := io.ReadFull(rnd, env.Nonce[:]); err != nil {
		return nil, fmt.Errorf("failed to read nonce: %w", err)
	}
	key, err := deriveKey(shared, env.Kem)
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	env.Cipher = aead.Seal(nil, env.Nonce[:], plaintext, aad)
	return env, nil
}

// Open decrypts an envelope with the recipient's private key.
func Open(sk *kyber768.PrivateKey, env *Envelope, aad []byte) ([]byte, error) {
	if len(env.Kem) != KEMCiphertextSize {
		return nil, fmt.Errorf("%w: KEM ciphertext is %d bytes", ErrOpen, len(env.Kem))
	}
	shared := make([]byte, kyber768.SharedKeySize)
	sk.DecapsulateTo(shared, env.Kem)
	key, err := deriveKey(shared, env.Kem)
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	pt, err := aead.Open(nil, env.Nonce[:], env.Cipher, aad)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOpen, err)
	}
	return pt, nil
}
