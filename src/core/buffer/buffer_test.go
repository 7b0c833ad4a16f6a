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

// go/src/core/buffer/buffer_test.go
package buffer

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sphinx-core/stark-pqc/src/core/hashchain"
	"github.com/sphinx-core/stark-pqc/src/core/types"
	"github.com/sphinx-core/stark-pqc/src/state"
)

var (
	alice = types.Pubkey{1}
	bob   = types.Pubkey{2}
)

func newStore(t *testing.T) state.Store {
	t.Helper()
	s, err := state.OpenLevelDBMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func upload(t *testing.T, s state.Store, ref Ref, data []byte) {
	t.Helper()
	links, err := hashchain.Of(data, types.MaxChunk)
	require.NoError(t, err)
	for _, l := range links {
		_, err := Append(s, ref, l.Offset, l.Chunk, l.Expected)
		require.NoError(t, err)
	}
}

func TestSequentialAppendAccumulates(t *testing.T) {
	s := newStore(t)
	ref := Body(alice)
	require.NoError(t, Init(s, ref))

	data := bytes.Repeat([]byte{0x5a}, 2500)
	upload(t, s, ref, data)

	rec, err := Load(s, ref)
	require.NoError(t, err)
	assert.Equal(t, uint32(len(data)), rec.Length)
	assert.Equal(t, data, rec.Data)
	want, err := hashchain.Sum(data, types.MaxChunk)
	require.NoError(t, err)
	assert.Equal(t, want, rec.Chain)
}

func TestChunkTooLarge(t *testing.T) {
	s := newStore(t)
	ref := Body(alice)
	require.NoError(t, Init(s, ref))
	chunk := make([]byte, types.MaxChunk+1)
	_, err := Append(s, ref, 0, chunk, hashchain.Next(hashchain.Zero, chunk))
	assert.ErrorIs(t, err, ErrChunkTooLarge)

	chunk = chunk[:types.MaxChunk]
	_, err = Append(s, ref, 0, chunk, hashchain.Next(hashchain.Zero, chunk))
	assert.NoError(t, err)
}

func TestHashMismatchLeavesStateUnchanged(t *testing.T) {
	s := newStore(t)
	ref := Body(alice)
	require.NoError(t, Init(s, ref))
	upload(t, s, ref, []byte("first chunk"))
	before, err := Load(s, ref)
	require.NoError(t, err)

	chunk := []byte("second chunk")
	bad := hashchain.Next(before.Chain, chunk)
	bad[0] ^= 0xff
	_, err = Append(s, ref, before.Length, chunk, bad)
	assert.ErrorIs(t, err, ErrHashMismatch)

	after, err := Load(s, ref)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestOffsetMustEqualLength(t *testing.T) {
	s := newStore(t)
	ref := Body(alice)
	require.NoError(t, Init(s, ref))
	upload(t, s, ref, []byte("0123456789"))
	rec, err := Load(s, ref)
	require.NoError(t, err)

	chunk := []byte("x")
	next := hashchain.Next(rec.Chain, chunk)
	for _, off := range []uint32{rec.Length - 1, rec.Length + 1, 0} {
		_, err := Append(s, ref, off, chunk, next)
		assert.ErrorIs(t, err, ErrOffsetMismatch, "offset %d", off)
	}
	_, err = Append(s, ref, rec.Length, chunk, next)
	assert.NoError(t, err)
}

func TestCapacityBoundary(t *testing.T) {
	for _, kind := range []types.BufferKind{types.BodyBuffer, types.SignatureBuffer} {
		t.Run(kind.String(), func(t *testing.T) {
			s := newStore(t)
			ref := Body(alice)
			if kind == types.SignatureBuffer {
				ref = Signature(alice, bob, 9)
			}
			require.NoError(t, Init(s, ref))

			// Exactly capacity fits.
			upload(t, s, ref, bytes.Repeat([]byte{1}, kind.Capacity()))
			rec, err := Load(s, ref)
			require.NoError(t, err)
			assert.Equal(t, uint32(kind.Capacity()), rec.Length)

			// One more byte does not.
			chunk := []byte{1}
			_, err = Append(s, ref, rec.Length, chunk, hashchain.Next(rec.Chain, chunk))
			assert.ErrorIs(t, err, ErrMsgTooBig)
		})
	}
}

func TestOverflowOnFinalChunk(t *testing.T) {
	s := newStore(t)
	ref := Signature(alice, bob, 1)
	require.NoError(t, Init(s, ref))
	upload(t, s, ref, make([]byte, types.SignatureCapacity-10))
	rec, err := Load(s, ref)
	require.NoError(t, err)

	chunk := make([]byte, 11)
	_, err = Append(s, ref, rec.Length, chunk, hashchain.Next(rec.Chain, chunk))
	assert.ErrorIs(t, err, ErrMsgTooBig)
}

func TestCheckOrder(t *testing.T) {
	s := newStore(t)
	ref := Body(alice)
	require.NoError(t, Init(s, ref))

	// Oversized chunk with wrong offset and wrong chain reports the size first.
	_, err := Append(s, ref, 7, make([]byte, 901), [32]byte{})
	assert.ErrorIs(t, err, ErrChunkTooLarge)

	// Wrong offset and wrong chain reports the offset.
	_, err = Append(s, ref, 7, []byte{1}, [32]byte{})
	assert.ErrorIs(t, err, ErrOffsetMismatch)
}

func TestSignatureBufferFreezesOnceRecordExists(t *testing.T) {
	s := newStore(t)
	ref := Signature(alice, bob, 3)
	require.NoError(t, Init(s, ref))
	upload(t, s, ref, []byte("partial"))
	rec, err := Load(s, ref)
	require.NoError(t, err)

	require.NoError(t, state.Put(s, types.RecordKey(ref.RecordID()), []byte("record")))

	chunk := []byte("more")
	_, err = Append(s, ref, rec.Length, chunk, hashchain.Next(rec.Chain, chunk))
	assert.ErrorIs(t, err, ErrAlreadyFinalized)
	assert.ErrorIs(t, Init(s, ref), ErrAlreadyFinalized)

	// A different sequence marker is a different buffer.
	assert.NoError(t, Init(s, Signature(alice, bob, 4)))
}

func TestInitResets(t *testing.T) {
	s := newStore(t)
	ref := Body(alice)
	require.NoError(t, Init(s, ref))
	upload(t, s, ref, []byte("stale"))
	require.NoError(t, Init(s, ref))

	rec, err := Load(s, ref)
	require.NoError(t, err)
	assert.Zero(t, rec.Length)
	assert.Equal(t, hashchain.Zero, rec.Chain)
	assert.Empty(t, rec.Data)
}

func TestBuffersAreSeparatedByOwner(t *testing.T) {
	s := newStore(t)
	require.NoError(t, Init(s, Body(alice)))

	_, err := Load(s, Body(bob))
	assert.ErrorIs(t, err, ErrBufferNotFound)

	chunk := []byte("x")
	_, err = Append(s, Body(bob), 0, chunk, hashchain.Next(hashchain.Zero, chunk))
	assert.ErrorIs(t, err, ErrBufferNotFound)
}

func TestRefAddressesDiffer(t *testing.T) {
	a := Signature(alice, bob, 1).Address()
	b := Signature(alice, bob, 2).Address()
	assert.NotEqual(t, a, b)
	assert.NotEqual(t, Body(alice).Address(), Body(bob).Address())
}
