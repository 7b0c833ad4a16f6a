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

// go/src/core/types/types.go
package types

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/btcsuite/btcutil/base58"
)

const (
	// MaxChunk is the largest chunk a single upload may carry.
	MaxChunk = 900

	// BodyCapacity bounds ciphertext || KEM ciphertext || proof.
	BodyCapacity = 10068

	// SignatureCapacity is exactly one SLH-DSA-SHA2-128s signature.
	SignatureCapacity = 7856

	// NonceSize is the AEAD nonce length carried in a record.
	NonceSize = 12

	// PubkeySize is the length of an identity.
	PubkeySize = 32
)

// ErrInvalidPubkey is returned when an identity cannot be decoded.
var ErrInvalidPubkey = errors.New("types: invalid pubkey")

// Pubkey identifies a sender or a recipient.
type Pubkey [PubkeySize]byte

// String renders the key in base58.
func (p Pubkey) String() string {
	return base58.Encode(p[:])
}

// IsZero reports whether the key is all zero bytes.
func (p Pubkey) IsZero() bool {
	return p == Pubkey{}
}

// ParsePubkey decodes a base58 identity.
func ParsePubkey(s string) (Pubkey, error) {
	var p Pubkey
	raw := base58.Decode(s)
	if len(raw) != PubkeySize {
		return p, fmt.Errorf("%w: %q", ErrInvalidPubkey, s)
	}
	copy(p[:], raw)
	return p, nil
}

// PubkeyFromBytes copies a 32-byte slice into a Pubkey.
func PubkeyFromBytes(b []byte) (Pubkey, error) {
	var p Pubkey
	if len(b) != PubkeySize {
		return p, fmt.Errorf("%w: length %d", ErrInvalidPubkey, len(b))
	}
	copy(p[:], b)
	return p, nil
}

// MarshalText implements encoding.TextMarshaler.
func (p Pubkey) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Pubkey) UnmarshalText(text []byte) error {
	v, err := ParsePubkey(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// AddressOf derives the 32-byte address of a stored object from its key.
func AddressOf(key []byte) Pubkey {
	return Pubkey(sha256.Sum256(key))
}

// BufferKind tells the two buffer flavours apart.
type BufferKind uint8

const (
	BodyBuffer BufferKind = iota
	SignatureBuffer
)

// Capacity returns the fixed capacity of the buffer kind.
func (k BufferKind) Capacity() int {
	if k == SignatureBuffer {
		return SignatureCapacity
	}
	return BodyCapacity
}

func (k BufferKind) String() string {
	if k == SignatureBuffer {
		return "signature"
	}
	return "body"
}

// BufferRecord is an append-only region paired with its hash chain.
type BufferRecord struct {
	Owner  Pubkey
	Length uint32
	Chain  [32]byte
	Data   []byte
}

// RecordID is the identity of a finalized message.
type RecordID struct {
	Sender    Pubkey
	Recipient Pubkey
	Sequence  uint64
}

func (id RecordID) String() string {
	return fmt.Sprintf("%s->%s#%d", id.Sender, id.Recipient, id.Sequence)
}

// MessageRecord is the immutable result of a successful signature finalize.
// Payload is cipher || kem || proof.
type MessageRecord struct {
	Sender    Pubkey
	Recipient Pubkey
	CipherLen uint32
	KemLen    uint32
	Nonce     [NonceSize]byte
	Sequence  uint64
	SigBuffer Pubkey
	SigLen    uint32
	SigHash   [32]byte
	Payload   []byte
}

// ID returns the record identity.
func (r *MessageRecord) ID() RecordID {
	return RecordID{Sender: r.Sender, Recipient: r.Recipient, Sequence: r.Sequence}
}

// Cipher returns the ciphertext part of the payload.
func (r *MessageRecord) Cipher() []byte {
	return r.Payload[:r.CipherLen]
}

// Kem returns the KEM ciphertext part of the payload.
func (r *MessageRecord) Kem() []byte {
	return r.Payload[r.CipherLen : r.CipherLen+r.KemLen]
}

// Proof returns the proof bytes at the tail of the payload.
func (r *MessageRecord) Proof() []byte {
	return r.Payload[r.CipherLen+r.KemLen:]
}

// ProofStatus tracks the outcome of proof verification for a record.
type ProofStatus uint8

const (
	ProofPending ProofStatus = iota
	ProofVerified
	ProofRejected
)

func (s ProofStatus) String() string {
	switch s {
	case ProofVerified:
		return "verified"
	case ProofRejected:
		return "rejected"
	default:
		return "pending"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s ProofStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *ProofStatus) UnmarshalText(text []byte) error {
	for _, v := range []ProofStatus{ProofPending, ProofVerified, ProofRejected} {
		if v.String() == string(text) {
			*s = v
			return nil
		}
	}
	return fmt.Errorf("types: unknown proof status %q", text)
}

// Phase is the finalization state of one message.
type Phase uint8

const (
	PhaseEmpty Phase = iota
	PhaseBuffersFilled
	PhaseSignatureVerified
	PhaseProofVerified
)

func (p Phase) String() string {
	switch p {
	case PhaseBuffersFilled:
		return "buffers_filled"
	case PhaseSignatureVerified:
		return "signature_verified"
	case PhaseProofVerified:
		return "proof_verified"
	default:
		return "empty"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Phase) UnmarshalText(text []byte) error {
	for _, v := range []Phase{PhaseEmpty, PhaseBuffersFilled, PhaseSignatureVerified, PhaseProofVerified} {
		if v.String() == string(text) {
			*p = v
			return nil
		}
	}
	return fmt.Errorf("types: unknown phase %q", text)
}

// RecordView is a record together with its proof status, as returned to readers.
type RecordView struct {
	Record *MessageRecord
	Status ProofStatus
}
