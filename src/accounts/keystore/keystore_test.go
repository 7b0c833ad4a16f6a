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

// go/src/accounts/keystore/keystore_test.go
package keystore

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testKDF = KDFParams{Time: 1, Memory: 64, Threads: 1}

func TestEncryptDecrypt(t *testing.T) {
	secret := bytes.Repeat([]byte{0x42}, 64)
	public := bytes.Repeat([]byte{0x07}, 32)
	kf, err := Encrypt("alice", KindSLHDSA, secret, public, []byte("pw"), testKDF, nil)
	require.NoError(t, err)

	got, err := kf.Decrypt([]byte("pw"))
	require.NoError(t, err)
	assert.Equal(t, secret, got)

	pub, err := kf.Public()
	require.NoError(t, err)
	assert.Equal(t, public, pub)

	_, err = kf.Decrypt([]byte("other"))
	assert.ErrorIs(t, err, ErrWrongPassphrase)

	kf.Kind = KindKyber768
	_, err = kf.Decrypt([]byte("pw"))
	assert.ErrorIs(t, err, ErrWrongPassphrase)
}

func TestEncryptRejectsEmptyPassphrase(t *testing.T) {
	_, err := Encrypt("a", KindSLHDSA, []byte{1}, nil, nil, testKDF, nil)
	assert.ErrorIs(t, err, ErrEmptyPassphrase)
}

func TestFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "k.json")
	kf, err := Encrypt("k", KindKyber768, []byte("secret"), []byte("public"), []byte("pw"), testKDF, nil)
	require.NoError(t, err)
	require.NoError(t, WriteFile(path, kf))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, IsKeyFile(data))
	assert.False(t, IsKeyFile([]byte("abcdef\n")))

	back, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, kf, back)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestStore(t *testing.T) {
	s, err := NewStore(filepath.Join(t.TempDir(), "keys"), testKDF)
	require.NoError(t, err)

	_, err = s.Put("bob", KindSLHDSA, []byte("s1"), []byte("p1"), []byte("pw"))
	require.NoError(t, err)
	_, err = s.Put("alice", KindKyber768, []byte("s2"), []byte("p2"), []byte("pw"))
	require.NoError(t, err)

	ids, err := s.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, ids)

	kf, secret, err := s.Open("bob", []byte("pw"))
	require.NoError(t, err)
	assert.Equal(t, KindSLHDSA, kf.Kind)
	assert.Equal(t, []byte("s1"), secret)

	require.NoError(t, s.ChangePassphrase("bob", []byte("pw"), []byte("new")))
	_, _, err = s.Open("bob", []byte("pw"))
	assert.ErrorIs(t, err, ErrWrongPassphrase)
	_, secret, err = s.Open("bob", []byte("new"))
	require.NoError(t, err)
	assert.Equal(t, []byte("s1"), secret)

	require.NoError(t, s.Remove("alice"))
	assert.ErrorIs(t, s.Remove("alice"), ErrNotFound)
	_, err = s.Get("alice")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Get("../etc")
	assert.Error(t, err)
}
