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

// go/src/core/sphincs/sign/backend/sign_test.go
package sign

import (
	"bytes"
	"path/filepath"
	"testing"

	sigproof "github.com/sphinx-core/stark-pqc/src/core/proof"
	key "github.com/sphinx-core/stark-pqc/src/core/sphincs/key/backend"
	"github.com/sphinx-core/stark-pqc/src/core/types"
	"github.com/sphinx-core/stark-pqc/src/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignMessageRoundTrip(t *testing.T) {
	km, err := key.NewKeyManager(bytes.NewReader(bytes.Repeat([]byte{3}, 48)))
	require.NoError(t, err)
	sk, pk, err := km.GenerateKey()
	require.NoError(t, err)

	store := state.NewMemory()
	sm := NewSphincsManager(store, km, km.GetSLHDSAParameters())

	var nonce [types.NonceSize]byte
	blob := sigproof.SignedBlob([]byte("cipher"), []byte("kem"), nonce, 11)
	signed, err := sm.SignMessage(blob, sk)
	require.NoError(t, err)

	require.Len(t, signed.Signature, types.SignatureCapacity)
	require.Len(t, signed.Parts, 9)
	for _, p := range signed.Parts {
		assert.LessOrEqual(t, len(p), types.MaxChunk)
	}
	assert.Len(t, signed.Parts[8], types.SignatureCapacity-8*types.MaxChunk)

	assert.True(t, sm.VerifySignature(blob, signed.Signature, pk, &signed.SigHash))
	assert.True(t, sm.VerifyParts(signed.Parts, signed.Root.Bytes()))

	cached, err := sm.LoadSignature(blob, pk)
	require.NoError(t, err)
	assert.Equal(t, signed.Signature, cached.Signature)
	assert.Equal(t, signed.SigHash, cached.SigHash)
	assert.Equal(t, signed.Root.Bytes(), cached.Root.Bytes())

	flipped := append([]byte(nil), blob...)
	flipped[len(flipped)-8] ^= 1
	assert.False(t, sm.VerifySignature(flipped, signed.Signature, pk, nil))

	other := signed.SigHash
	other[0] ^= 1
	assert.False(t, sm.VerifySignature(blob, signed.Signature, pk, &other))

	parts := SplitSignature(append([]byte(nil), signed.Signature...))
	parts[4][0] ^= 1
	assert.False(t, sm.VerifyParts(parts, signed.Root.Bytes()))
}

func TestLoadSignatureWithoutStore(t *testing.T) {
	km, err := key.NewKeyManager(nil)
	require.NoError(t, err)
	sm := NewSphincsManager(nil, km, km.GetSLHDSAParameters())
	sk, pk, err := km.GenerateKey()
	require.NoError(t, err)
	_, err = sm.LoadSignature([]byte("blob"), pk)
	assert.ErrorIs(t, err, state.ErrNotFound)
	assert.NoError(t, sm.Forget([]byte("blob"), pk))

	signed, err := sm.SignMessage([]byte("blob"), sk)
	require.NoError(t, err)
	assert.True(t, sm.VerifySignature([]byte("blob"), signed.Signature, pk, &signed.SigHash))
}

func TestSignMessageReusesCachedSignature(t *testing.T) {
	km, err := key.NewKeyManager(bytes.NewReader(bytes.Repeat([]byte{6}, 48)))
	require.NoError(t, err)
	sk, pk, err := km.GenerateKey()
	require.NoError(t, err)

	store, err := state.OpenLevelDB(filepath.Join(t.TempDir(), "sigcache"))
	require.NoError(t, err)
	defer store.Close()
	sm := NewSphincsManager(store, km, km.GetSLHDSAParameters())

	blob := []byte("resumable blob")
	first, err := sm.SignMessage(blob, sk)
	require.NoError(t, err)

	// A fresh manager over the same store sees the entry.
	again, err := NewSphincsManager(store, km, km.GetSLHDSAParameters()).LoadSignature(blob, pk)
	require.NoError(t, err)
	assert.Equal(t, first.Signature, again.Signature)

	second, err := sm.SignMessage(blob, sk)
	require.NoError(t, err)
	assert.Equal(t, first.SigHash, second.SigHash)

	// Another message or another key misses.
	_, err = sm.LoadSignature([]byte("other blob"), pk)
	assert.ErrorIs(t, err, state.ErrNotFound)
	_, otherPK, err := km.GenerateKey()
	require.NoError(t, err)
	_, err = sm.LoadSignature(blob, otherPK)
	assert.ErrorIs(t, err, state.ErrNotFound)

	require.NoError(t, sm.Forget(blob, pk))
	_, err = sm.LoadSignature(blob, pk)
	assert.ErrorIs(t, err, state.ErrNotFound)
}

func TestCorruptCacheEntryIsDropped(t *testing.T) {
	km, err := key.NewKeyManager(bytes.NewReader(bytes.Repeat([]byte{7}, 48)))
	require.NoError(t, err)
	sk, pk, err := km.GenerateKey()
	require.NoError(t, err)

	store := state.NewMemory()
	sm := NewSphincsManager(store, km, km.GetSLHDSAParameters())
	blob := []byte("blob")
	signed, err := sm.SignMessage(blob, sk)
	require.NoError(t, err)

	k := cacheKey(pk, blob)
	value, err := store.Get(k)
	require.NoError(t, err)
	value = append([]byte(nil), value...)
	value[len(value)-1] ^= 1
	require.NoError(t, state.Put(store, k, value))

	_, err = sm.LoadSignature(blob, pk)
	assert.ErrorIs(t, err, state.ErrNotFound)
	ok, err := store.Has(k)
	require.NoError(t, err)
	assert.False(t, ok)

	// Signing again repairs the entry.
	resigned, err := sm.SignMessage(blob, sk)
	require.NoError(t, err)
	assert.Equal(t, signed.Signature, resigned.Signature)
	_, err = sm.LoadSignature(blob, pk)
	assert.NoError(t, err)
}
