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

// go/src/core/sphincs/key/backend/key.go
package key

import (
	"errors"
	"fmt"
	"io"

	params "github.com/sphinx-core/stark-pqc/src/core/sphincs/config"
	"github.com/sphinx-core/stark-pqc/src/core/sphincs/slhdsa"
)

// KeyManager is responsible for managing SLH-DSA key generation and encoding.
type KeyManager struct {
	Params *params.SLHDSAParameters // Holds the SLH-DSA-SHA2-128s parameters.
	rand   io.Reader
}

// NewKeyManager initializes a new KeyManager. A nil rnd uses crypto/rand.
func NewKeyManager(rnd io.Reader) (*KeyManager, error) {
	p, err := params.NewSLHDSAParameters()
	if err != nil {
		return nil, err
	}
	return &KeyManager{Params: p, rand: rnd}, nil
}

// GetSLHDSAParameters returns the parameter set keys are generated for.
func (km *KeyManager) GetSLHDSAParameters() *params.SLHDSAParameters {
	return km.Params
}

// GenerateKey generates a new SLH-DSA private and public key pair.
func (km *KeyManager) GenerateKey() (*slhdsa.PrivateKey, *slhdsa.PublicKey, error) {
	if km.Params == nil {
		return nil, nil, errors.New("missing SLH-DSA parameters in KeyManager")
	}
	sk, err := slhdsa.GenerateKey(km.rand)
	if err != nil {
		return nil, nil, fmt.Errorf("key generation failed: %w", err)
	}
	return sk, sk.Public(), nil
}

// SerializeKeyPair encodes a private and public key pair to byte slices.
func (km *KeyManager) SerializeKeyPair(sk *slhdsa.PrivateKey, pk *slhdsa.PublicKey) ([]byte, []byte, error) {
	if sk == nil || pk == nil {
		return nil, nil, errors.New("private or public key is nil")
	}
	if !sk.Public().Equal(pk) {
		return nil, nil, errors.New("public key does not belong to private key")
	}
	return sk.Bytes(), pk.Bytes(), nil
}

// DeserializeKeyPair reconstructs a key pair from byte slices.
func (km *KeyManager) DeserializeKeyPair(skBytes, pkBytes []byte) (*slhdsa.PrivateKey, *slhdsa.PublicKey, error) {
	sk, err := slhdsa.ParsePrivateKey(skBytes)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to deserialize private key: %w", err)
	}
	pk, err := km.DeserializePublicKey(pkBytes)
	if err != nil {
		return nil, nil, err
	}
	if !sk.Public().Equal(pk) {
		return nil, nil, errors.New("public key does not belong to private key")
	}
	return sk, pk, nil
}

// DeserializePublicKey decodes only the public key.
func (km *KeyManager) DeserializePublicKey(pkBytes []byte) (*slhdsa.PublicKey, error) {
	pk, err := slhdsa.ParsePublicKey(pkBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize public key: %w", err)
	}
	return pk, nil
}
