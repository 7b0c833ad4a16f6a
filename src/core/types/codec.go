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

// go/src/core/types/codec.go
package types

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	// BufferHeaderSize is owner(32) + length(4) + chain(32).
	BufferHeaderSize = PubkeySize + 4 + 32

	// RecordHeaderSize is the fixed part of an encoded MessageRecord.
	RecordHeaderSize = 2*PubkeySize + 4 + 4 + NonceSize + 8 + PubkeySize + 4 + 32
)

// ErrCorruptValue is returned when a stored value cannot be decoded.
var ErrCorruptValue = errors.New("types: corrupt stored value")

// EncodeBuffer lays a buffer out as header followed by its bytes.
func EncodeBuffer(b *BufferRecord) []byte {
	out := make([]byte, BufferHeaderSize, BufferHeaderSize+len(b.Data))
	copy(out[0:32], b.Owner[:])
	binary.LittleEndian.PutUint32(out[32:36], b.Length)
	copy(out[36:68], b.Chain[:])
	return append(out, b.Data...)
}

// DecodeBuffer parses a value written by EncodeBuffer.
func DecodeBuffer(v []byte, kind BufferKind) (*BufferRecord, error) {
	if len(v) < BufferHeaderSize {
		return nil, fmt.Errorf("%w: buffer header truncated", ErrCorruptValue)
	}
	b := &BufferRecord{}
	copy(b.Owner[:], v[0:32])
	b.Length = binary.LittleEndian.Uint32(v[32:36])
	copy(b.Chain[:], v[36:68])
	data := v[BufferHeaderSize:]
	if int(b.Length) != len(data) || len(data) > kind.Capacity() {
		return nil, fmt.Errorf("%w: %s buffer length %d with %d bytes", ErrCorruptValue, kind, b.Length, len(data))
	}
	b.Data = append([]byte(nil), data...)
	return b, nil
}

// EncodeRecord lays a record out as its fixed header followed by the payload.
func EncodeRecord(r *MessageRecord) []byte {
	out := make([]byte, 0, RecordHeaderSize+len(r.Payload))
	out = append(out, r.Sender[:]...)
	out = append(out, r.Recipient[:]...)
	out = binary.LittleEndian.AppendUint32(out, r.CipherLen)
	out = binary.LittleEndian.AppendUint32(out, r.KemLen)
	out = append(out, r.Nonce[:]...)
	out = binary.LittleEndian.AppendUint64(out, r.Sequence)
	out = append(out, r.SigBuffer[:]...)
	out = binary.LittleEndian.AppendUint32(out, r.SigLen)
	out = append(out, r.SigHash[:]...)
	return append(out, r.Payload...)
}

// DecodeRecord parses a value written by EncodeRecord.
func DecodeRecord(v []byte) (*MessageRecord, error) {
	if len(v) < RecordHeaderSize {
		return nil, fmt.Errorf("%w: record header truncated", ErrCorruptValue)
	}
	r := &MessageRecord{}
	p := 0
	p += copy(r.Sender[:], v[p:])
	p += copy(r.Recipient[:], v[p:])
	r.CipherLen = binary.LittleEndian.Uint32(v[p:])
	p += 4
	r.KemLen = binary.LittleEndian.Uint32(v[p:])
	p += 4
	p += copy(r.Nonce[:], v[p:])
	r.Sequence = binary.LittleEndian.Uint64(v[p:])
	p += 8
	p += copy(r.SigBuffer[:], v[p:])
	r.SigLen = binary.LittleEndian.Uint32(v[p:])
	p += 4
	p += copy(r.SigHash[:], v[p:])
	r.Payload = append([]byte(nil), v[p:]...)

	if uint64(r.CipherLen)+uint64(r.KemLen) > uint64(len(r.Payload)) || len(r.Payload) > BodyCapacity {
		return nil, fmt.Errorf("%w: record lengths cipher=%d kem=%d payload=%d", ErrCorruptValue, r.CipherLen, r.KemLen, len(r.Payload))
	}
	return r, nil
}
