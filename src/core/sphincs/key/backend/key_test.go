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

// go/src/core/sphincs/key/backend/key_test.go
package key

import (
	"bytes"
	"testing"

	params "github.com/sphinx-core/stark-pqc/src/core/sphincs/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSerializeDeserialize(t *testing.T) {
	km, err := NewKeyManager(bytes.NewReader(bytes.Repeat([]byte{9}, 48)))
	require.NoError(t, err)
	assert.Equal(t, "SLH-DSA-SHA2-128s", km.GetSLHDSAParameters().Name)

	sk, pk, err := km.GenerateKey()
	require.NoError(t, err)

	skBytes, pkBytes, err := km.SerializeKeyPair(sk, pk)
	require.NoError(t, err)
	assert.Len(t, skBytes, params.PrivateKeyBytes)
	assert.Len(t, pkBytes, params.PublicKeyBytes)

	sk2, pk2, err := km.DeserializeKeyPair(skBytes, pkBytes)
	require.NoError(t, err)
	assert.Equal(t, sk, sk2)
	assert.True(t, pk.Equal(pk2))
}

func TestMismatchedPairRejected(t *testing.T) {
	km, err := NewKeyManager(bytes.NewReader(append(bytes.Repeat([]byte{1}, 48), bytes.Repeat([]byte{2}, 48)...)))
	require.NoError(t, err)
	sk1, _, err := km.GenerateKey()
	require.NoError(t, err)
	_, pk2, err := km.GenerateKey()
	require.NoError(t, err)
	require.NotEqual(t, sk1.Public().Bytes(), pk2.Bytes())

	_, _, err = km.SerializeKeyPair(sk1, pk2)
	assert.Error(t, err)
	_, _, err = km.DeserializeKeyPair(sk1.Bytes(), pk2.Bytes())
	assert.Error(t, err)
	_, err = km.DeserializePublicKey([]byte{1, 2})
	assert.Error(t, err)
}
