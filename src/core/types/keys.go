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

// go/src/core/types/keys.go
package types

import "encoding/binary"

// Storage key prefixes. Every stored object lives under exactly one of them.
var (
	BodyPrefix      = []byte("buf")
	SignaturePrefix = []byte("sig")
	RecordPrefix    = []byte("msg")
	StatusPrefix    = []byte("pst")
	RecipientPrefix = []byte("rcp")
)

// BodyKey addresses the body buffer of owner.
func BodyKey(owner Pubkey) []byte {
	k := make([]byte, 0, len(BodyPrefix)+PubkeySize)
	k = append(k, BodyPrefix...)
	return append(k, owner[:]...)
}

// SignatureKey addresses the signature buffer for one message.
func SignatureKey(owner, recipient Pubkey, seq uint64) []byte {
	return tripleKey(SignaturePrefix, owner, recipient, seq)
}

// RecordKey addresses the finalized record.
func RecordKey(id RecordID) []byte {
	return tripleKey(RecordPrefix, id.Sender, id.Recipient, id.Sequence)
}

// StatusKey addresses the proof status of a record.
func StatusKey(id RecordID) []byte {
	return tripleKey(StatusPrefix, id.Sender, id.Recipient, id.Sequence)
}

// RecipientKey is the index entry used to list records by recipient.
// The sequence is big-endian so index scans come out ordered.
func RecipientKey(id RecordID) []byte {
	k := RecipientSeqPrefix(id.Recipient, id.Sequence)
	return append(k, id.Sender[:]...)
}

// RecipientIndexPrefix covers every index entry of recipient.
func RecipientIndexPrefix(recipient Pubkey) []byte {
	k := make([]byte, 0, len(RecipientPrefix)+PubkeySize+8+PubkeySize)
	k = append(k, RecipientPrefix...)
	return append(k, recipient[:]...)
}

// RecipientSeqPrefix covers the index entries of recipient at seq.
func RecipientSeqPrefix(recipient Pubkey, seq uint64) []byte {
	k := RecipientIndexPrefix(recipient)
	return binary.BigEndian.AppendUint64(k, seq)
}

// ParseRecipientKey recovers the record identity from an index key.
func ParseRecipientKey(key []byte) (RecordID, bool) {
	var id RecordID
	want := len(RecipientPrefix) + PubkeySize + 8 + PubkeySize
	if len(key) != want {
		return id, false
	}
	p := len(RecipientPrefix)
	copy(id.Recipient[:], key[p:p+PubkeySize])
	p += PubkeySize
	id.Sequence = binary.BigEndian.Uint64(key[p : p+8])
	p += 8
	copy(id.Sender[:], key[p:])
	return id, true
}

func tripleKey(prefix []byte, a, b Pubkey, seq uint64) []byte {
	k := make([]byte, 0, len(prefix)+2*PubkeySize+8)
	k = append(k, prefix...)
	k = append(k, a[:]...)
	k = append(k, b[:]...)
	return binary.LittleEndian.AppendUint64(k, seq)
}
