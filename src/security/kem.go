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

// go/src/security/kem.go
package security

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"github.com/cloudflare/circl/kem/kyber/kyber768"
)

const (
	// KEMCiphertextSize is the encapsulation carried in every record.
	KEMCiphertextSize = kyber768.CiphertextSize
	KEMPublicKeySize  = kyber768.PublicKeySize
	KEMPrivateKeySize = kyber768.PrivateKeySize
)

var ErrKEMKey = errors.New("security: invalid KEM key")

// KEMKeyPair is a recipient's Kyber768 key pair.
type KEMKeyPair struct {
	Public  *kyber768.PublicKey
	Private *kyber768.PrivateKey
}

// GenerateKEMKeyPair draws a key pair from rnd (crypto/rand if nil).
func GenerateKEMKeyPair(rnd io.Reader) (*KEMKeyPair, error) {
	if rnd == nil {
		rnd = rand.Reader
	}
	pk, sk, err := kyber768.GenerateKeyPair(rnd)
	if err != nil {
		return nil, fmt.Errorf("failed to generate KEM key: %w", err)
	}
	return &KEMKeyPair{Public: pk, Private: sk}, nil
}

// MarshalKEMPublicKey packs pk.
func MarshalKEMPublicKey(pk *kyber768.PublicKey) []byte {
	buf := make([]byte, KEMPublicKeySize)
	pk.Pack(buf)
	return buf
}

// MarshalKEMPrivateKey packs sk.
func MarshalKEMPrivateKey(sk *kyber768.PrivateKey) []byte {
	buf := make([]byte, KEMPrivateKeySize)
	sk.Pack(buf)
	return buf
}

// ParseKEMPublicKey unpacks a public key.
func ParseKEMPublicKey(b []byte) (*kyber768.PublicKey, error) {
	if len(b) != KEMPublicKeySize {
		return nil, fmt.Errorf("%w: public key is %d bytes", ErrKEMKey, len(b))
	}
	pk := new(kyber768.PublicKey)
	pk.Unpack(b)
	return pk, nil
}

// ParseKEMPrivateKey unpacks a private key.
func ParseKEMPrivateKey(b []byte) (*kyber768.PrivateKey, error) {
	if len(b) != KEMPrivateKeySize {
		return nil, fmt.Errorf("%w: private key is %d bytes", ErrKEMKey, len(b))
	}
	sk := new(kyber768.PrivateKey)
	sk.Unpack(b)
	return sk, nil
}
