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

// go/src/state/store_test.go
package state

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func backends(t *testing.T) map[string]Store {
	t.Helper()
	ldb, err := OpenLevelDBMemory()
	require.NoError(t, err)
	bdb, err := OpenBadgerMemory()
	require.NoError(t, err)
	sealed, err := NewSealed(NewMemory())
	require.NoError(t, err)

	stores := map[string]Store{
		"leveldb": ldb,
		"badger":  bdb,
		"memory":  NewMemory(),
		"sealed":  sealed,
	}
	t.Cleanup(func() {
		for _, s := range stores {
			_ = s.Close()
		}
	})
	return stores
}

func TestStoreContract(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Get([]byte("missing"))
			assert.ErrorIs(t, err, ErrNotFound)

			ok, err := s.Has([]byte("missing"))
			require.NoError(t, err)
			assert.False(t, ok)

			b := NewBatch()
			b.Put([]byte("p:a"), []byte("1"))
			b.Put([]byte("p:b"), []byte("2"))
			b.Put([]byte("q:c"), []byte("3"))
			b.Put([]byte("p:e"), nil)
			require.Equal(t, 4, b.Len())
			require.NoError(t, s.Write(b))

			v, err := s.Get([]byte("p:a"))
			require.NoError(t, err)
			assert.Equal(t, []byte("1"), v)

			v, err = s.Get([]byte("p:e"))
			require.NoError(t, err)
			assert.Empty(t, v)

			seen := map[string]string{}
			require.NoError(t, s.Scan([]byte("p:"), func(k, v []byte) error {
				seen[string(k)] = string(v)
				return nil
			}))
			assert.Equal(t, map[string]string{"p:a": "1", "p:b": "2", "p:e": ""}, seen)

			del := NewBatch()
			del.Delete([]byte("p:a"))
			del.Put([]byte("p:b"), []byte("22"))
			require.NoError(t, s.Write(del))

			ok, err = s.Has([]byte("p:a"))
			require.NoError(t, err)
			assert.False(t, ok)
			v, err = s.Get([]byte("p:b"))
			require.NoError(t, err)
			assert.Equal(t, []byte("22"), v)
		})
	}
}

func TestScanStopsOnError(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, Put(s, []byte("k1"), []byte("v")))
			require.NoError(t, Put(s, []byte("k2"), []byte("v")))
			stop := errors.New("stop")
			calls := 0
			err := s.Scan([]byte("k"), func(_, _ []byte) error {
				calls++
				return stop
			})
			assert.ErrorIs(t, err, stop)
			assert.Equal(t, 1, calls)
		})
	}
}

func TestBatchCopiesInput(t *testing.T) {
	s := NewMemory()
	key, val := []byte("k"), []byte("v")
	b := NewBatch()
	b.Put(key, val)
	val[0] = 'x'
	require.NoError(t, s.Write(b))
	got, err := s.Get(key)
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)
}

func TestMemoryScanKeepsInsertionOrder(t *testing.T) {
	s := NewMemory()
	for _, k := range []string{"z", "a", "m"} {
		require.NoError(t, Put(s, []byte("o:"+k), nil))
	}
	var order []string
	require.NoError(t, s.Scan([]byte("o:"), func(k, _ []byte) error {
		order = append(order, string(k))
		return nil
	}))
	assert.Equal(t, []string{"o:z", "o:a", "o:m"}, order)
	assert.Equal(t, 3, s.Len())

	require.NoError(t, s.Close())
	_, err := s.Get([]byte("o:z"))
	assert.ErrorIs(t, err, ErrClosed)
}

func TestSealedDetectsCorruption(t *testing.T) {
	inner := NewMemory()
	s, err := NewSealed(inner)
	require.NoError(t, err)
	require.NoError(t, Put(s, []byte("rec"), []byte("payload")))

	raw, err := inner.Get([]byte("rec"))
	require.NoError(t, err)
	raw[0] ^= 0x01
	require.NoError(t, Put(inner, []byte("rec"), raw))

	_, err = s.Get([]byte("rec"))
	assert.ErrorIs(t, err, ErrChecksum)

	err = s.Scan([]byte("rec"), func(_, _ []byte) error { return nil })
	assert.ErrorIs(t, err, ErrChecksum)
}

func TestSealedBindsValueToKey(t *testing.T) {
	inner := NewMemory()
	s, err := NewSealed(inner)
	require.NoError(t, err)
	require.NoError(t, Put(s, []byte("a"), []byte("same")))

	raw, err := inner.Get([]byte("a"))
	require.NoError(t, err)
	require.NoError(t, Put(inner, []byte("b"), raw))

	_, err = s.Get([]byte("b"))
	assert.ErrorIs(t, err, ErrChecksum)
}

func TestSealedReusesPersistedKey(t *testing.T) {
	inner := NewMemory()
	s1, err := NewSealed(inner)
	require.NoError(t, err)
	require.NoError(t, Put(s1, []byte("k"), []byte("v")))

	s2, err := NewSealed(inner)
	require.NoError(t, err)
	v, err := s2.Get([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), v)
}

func TestOpenBackends(t *testing.T) {
	dir := t.TempDir()

	l, err := Open(BackendLevelDB, filepath.Join(dir, "leveldb"))
	require.NoError(t, err)
	require.NoError(t, Put(l, []byte("k"), []byte("v")))
	require.NoError(t, l.Close())

	l, err = Open(BackendLevelDB, filepath.Join(dir, "leveldb"))
	require.NoError(t, err)
	v, err := l.Get([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), v)
	require.NoError(t, l.Close())

	b, err := Open(BackendBadger, filepath.Join(dir, "badger"))
	require.NoError(t, err)
	require.NoError(t, b.Close())

	m, err := Open(BackendMemory, "")
	require.NoError(t, err)
	require.NoError(t, m.Close())

	_, err = Open("rocksdb", dir)
	assert.ErrorIs(t, err, ErrUnknownBackend)
}
