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

// go/src/core/types/types_test.go
package types

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pk(b byte) Pubkey {
	var p Pubkey
	for i := range p {
		p[i] = b
	}
	return p
}

func TestPubkeyBase58(t *testing.T) {
	p := pk(7)
	back, err := ParsePubkey(p.String())
	require.NoError(t, err)
	assert.Equal(t, p, back)

	_, err = ParsePubkey("not-base58-0OIl")
	assert.ErrorIs(t, err, ErrInvalidPubkey)

	var q Pubkey
	require.NoError(t, q.UnmarshalText([]byte(p.String())))
	assert.Equal(t, p, q)
	assert.True(t, Pubkey{}.IsZero())
}

func TestRecordRoundTrip(t *testing.T) {
	r := &MessageRecord{
		Sender:    pk(1),
		Recipient: pk(2),
		CipherLen: 3,
		KemLen:    2,
		Nonce:     [NonceSize]byte{1, 2, 3},
		Sequence:  42,
		SigBuffer: pk(3),
		SigLen:    SignatureCapacity,
		SigHash:   [32]byte{9},
		Payload:   []byte{1, 2, 3, 4, 5, 6, 7},
	}
	enc := EncodeRecord(r)
	assert.Len(t, enc, RecordHeaderSize+7)

	got, err := DecodeRecord(enc)
	require.NoError(t, err)
	assert.Equal(t, r, got)
	assert.Equal(t, []byte{1, 2, 3}, got.Cipher())
	assert.Equal(t, []byte{4, 5}, got.Kem())
	assert.Equal(t, []byte{6, 7}, got.Proof())
}

func TestDecodeRecordRejectsInconsistentLengths(t *testing.T) {
	r := &MessageRecord{CipherLen: 10, KemLen: 10, Payload: []byte{1}}
	_, err := DecodeRecord(EncodeRecord(r))
	assert.ErrorIs(t, err, ErrCorruptValue)

	_, err = DecodeRecord([]byte{1, 2})
	assert.ErrorIs(t, err, ErrCorruptValue)
}

func TestBufferRoundTrip(t *testing.T) {
	b := &BufferRecord{Owner: pk(5), Length: 3, Chain: [32]byte{1}, Data: []byte{7, 8, 9}}
	got, err := DecodeBuffer(EncodeBuffer(b), BodyBuffer)
	require.NoError(t, err)
	assert.Equal(t, b, got)

	bad := EncodeBuffer(&BufferRecord{Length: 5, Data: []byte{1}})
	_, err = DecodeBuffer(bad, BodyBuffer)
	assert.ErrorIs(t, err, ErrCorruptValue)

	tooBig := EncodeBuffer(&BufferRecord{Length: SignatureCapacity + 1, Data: make([]byte, SignatureCapacity+1)})
	_, err = DecodeBuffer(tooBig, SignatureBuffer)
	assert.ErrorIs(t, err, ErrCorruptValue)
}

func TestKeysAreDistinctAndParsable(t *testing.T) {
	id := RecordID{Sender: pk(1), Recipient: pk(2), Sequence: 0x0102}
	assert.False(t, bytes.Equal(RecordKey(id), StatusKey(id)))
	assert.False(t, bytes.Equal(SignatureKey(id.Sender, id.Recipient, 1), SignatureKey(id.Sender, id.Recipient, 2)))
	assert.True(t, bytes.HasPrefix(RecipientKey(id), RecipientIndexPrefix(id.Recipient)))
	assert.True(t, bytes.HasPrefix(RecipientKey(id), RecipientSeqPrefix(id.Recipient, id.Sequence)))

	back, ok := ParseRecipientKey(RecipientKey(id))
	require.True(t, ok)
	assert.Equal(t, id, back)

	_, ok = ParseRecipientKey([]byte("rcp"))
	assert.False(t, ok)
}

func TestEnumsRender(t *testing.T) {
	assert.Equal(t, "verified", ProofVerified.String())
	assert.Equal(t, "signature_verified", PhaseSignatureVerified.String())
	assert.Equal(t, 7856, SignatureBuffer.Capacity())
	assert.Equal(t, 10068, BodyBuffer.Capacity())
}

func TestEnumsParse(t *testing.T) {
	var s ProofStatus
	require.NoError(t, s.UnmarshalText([]byte("rejected")))
	assert.Equal(t, ProofRejected, s)
	assert.Error(t, s.UnmarshalText([]byte("maybe")))

	var p Phase
	require.NoError(t, p.UnmarshalText([]byte("buffers_filled")))
	assert.Equal(t, PhaseBuffersFilled, p)
	assert.Error(t, p.UnmarshalText([]byte("")))
}
