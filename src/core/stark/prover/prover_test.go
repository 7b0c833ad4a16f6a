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

// go/src/core/stark/prover/prover_test.go
package prover

import (
	"testing"

	"github.com/sphinx-core/stark-pqc/src/core/stark/air"
	"github.com/sphinx-core/stark-pqc/src/core/stark/zk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var cipher = []byte("ciphertext bound to the counter proof")

func TestGenerateProofDecodes(t *testing.T) {
	p, err := NewProver(zk.DefaultOptions(), nil)
	require.NoError(t, err)

	raw, err := p.GenerateProof(cipher)
	require.NoError(t, err)

	proof, err := zk.DecodeProof(raw)
	require.NoError(t, err)
	assert.Equal(t, zk.DefaultOptions(), proof.Options)
	assert.Len(t, proof.LayerRoots, zk.DefaultOptions().NumLayers())
	assert.Len(t, proof.Remainder, zk.DefaultOptions().RemainderSize())
	assert.Equal(t, raw, proof.Bytes())
}

func TestProofIsDeterministic(t *testing.T) {
	p, err := NewProver(zk.DefaultOptions(), nil)
	require.NoError(t, err)

	a, err := p.GenerateProof(cipher)
	require.NoError(t, err)
	b, err := p.GenerateProof(cipher)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := p.GenerateProof(append([]byte{1}, cipher...))
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestProofFitsBodyBuffer(t *testing.T) {
	p, err := NewProver(zk.DefaultOptions(), nil)
	require.NoError(t, err)
	proof, err := p.Prove(air.PublicInputsFromCipher(cipher))
	require.NoError(t, err)

	// Body buffer capacity less the KEM ciphertext and a short cipher.
	assert.Less(t, proof.Size(), 10068-1088-50)
	assert.Len(t, proof.Bytes(), proof.Size())
}

func TestNewProverRejectsInvalidOptions(t *testing.T) {
	opts := zk.DefaultOptions()
	opts.BlowupFactor = 3
	_, err := NewProver(opts, nil)
	assert.ErrorIs(t, err, zk.ErrInvalidOptions)

	// Weak but well-formed options are accepted for testing.
	opts = zk.DefaultOptions()
	opts.NumQueries = 4
	_, err = NewProver(opts, nil)
	assert.NoError(t, err)
}
