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

// go/src/core/buffer/buffer.go
package buffer

import (
	"errors"
	"fmt"

	"github.com/sphinx-core/stark-pqc/src/core/hashchain"
	"github.com/sphinx-core/stark-pqc/src/core/types"
	"github.com/sphinx-core/stark-pqc/src/state"
)

// Upload failures. Each one leaves the buffer untouched.
var (
	ErrChunkTooLarge    = errors.New("buffer: chunk too large")
	ErrOffsetMismatch   = errors.New("buffer: offset mismatch")
	ErrMsgTooBig        = errors.New("buffer: message too big")
	ErrHashMismatch     = errors.New("buffer: hash chain mismatch")
	ErrAlreadyFinalized = errors.New("buffer: already finalized")
	ErrBufferNotFound   = errors.New("buffer: not initialized")
	ErrOwnerMismatch    = errors.New("buffer: owner mismatch")
)

// Ref names one buffer in the store.
type Ref struct {
	Kind  types.BufferKind
	Owner types.Pubkey

	// Signature buffers only.
	Recipient types.Pubkey
	Sequence  uint64
}

// Body returns the reference of owner's body buffer.
func Body(owner types.Pubkey) Ref {
	return Ref{Kind: types.BodyBuffer, Owner: owner}
}

// Signature returns the reference of the signature buffer for one message.
func Signature(owner, recipient types.Pubkey, seq uint64) Ref {
	return Ref{Kind: types.SignatureBuffer, Owner: owner, Recipient: recipient, Sequence: seq}
}

// Key returns the storage key of the buffer.
func (r Ref) Key() []byte {
	if r.Kind == types.SignatureBuffer {
		return types.SignatureKey(r.Owner, r.Recipient, r.Sequence)
	}
	return types.BodyKey(r.Owner)
}

// Address returns the 32-byte address recorded in a finalized message.
func (r Ref) Address() types.Pubkey {
	return types.AddressOf(r.Key())
}

// RecordID returns the record a signature buffer belongs to.
func (r Ref) RecordID() types.RecordID {
	return types.RecordID{Sender: r.Owner, Recipient: r.Recipient, Sequence: r.Sequence}
}

func (r Ref) String() string {
	if r.Kind == types.SignatureBuffer {
		return fmt.Sprintf("signature buffer %s", r.RecordID())
	}
	return fmt.Sprintf("body buffer %s", r.Owner)
}

// Init creates or resets a buffer, zeroing its length and chain.
// A signature buffer whose record already exists stays frozen.
func Init(s state.Store, ref Ref) error {
	if ref.Kind == types.SignatureBuffer {
		if err := checkNotFinalized(s, ref); err != nil {
			return err
		}
	}
	rec := &types.BufferRecord{Owner: ref.Owner, Chain: hashchain.Zero}
	if err := state.Put(s, ref.Key(), types.EncodeBuffer(rec)); err != nil {
		return fmt.Errorf("failed to init %s: %w", ref, err)
	}
	return nil
}

// InitBody creates or resets owner's body buffer.
func InitBody(s state.Store, owner types.Pubkey) error {
	return Init(s, Body(owner))
}

// InitSignature creates or resets the signature buffer of one message.
func InitSignature(s state.Store, owner, recipient types.Pubkey, seq uint64) error {
	return Init(s, Signature(owner, recipient, seq))
}

// Load reads a buffer.
func Load(s state.Store, ref Ref) (*types.BufferRecord, error) {
	v, err := s.Get(ref.Key())
	if errors.Is(err, state.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrBufferNotFound, ref)
	}
	if err != nil {
		return nil, err
	}
	rec, err := types.DecodeBuffer(v, ref.Kind)
	if err != nil {
		return nil, err
	}
	if rec.Owner != ref.Owner {
		return nil, fmt.Errorf("%w: %s", ErrOwnerMismatch, ref)
	}
	return rec, nil
}

// Append adds chunk at offset and moves the chain to expected.
// The checks run in a fixed order and the first failure is returned.
func Append(s state.Store, ref Ref, offset uint32, chunk []byte, expected [32]byte) (*types.BufferRecord, error) {
	if len(chunk) > types.MaxChunk {
		return nil, fmt.Errorf("%w: %d > %d", ErrChunkTooLarge, len(chunk), types.MaxChunk)
	}
	rec, err := Load(s, ref)
	if err != nil {
		return nil, err
	}
	if offset != rec.Length {
		return nil, fmt.Errorf("%w: offset %d, length %d", ErrOffsetMismatch, offset, rec.Length)
	}
	if int(rec.Length)+len(chunk) > ref.Kind.Capacity() {
		return nil, fmt.Errorf("%w: %d + %d > %d", ErrMsgTooBig, rec.Length, len(chunk), ref.Kind.Capacity())
	}
	if hashchain.Next(rec.Chain, chunk) != expected {
		return nil, fmt.Errorf("%w: %s at offset %d", ErrHashMismatch, ref, offset)
	}
	if ref.Kind == types.SignatureBuffer {
		if err := checkNotFinalized(s, ref); err != nil {
			return nil, err
		}
	}

	rec.Data = append(rec.Data, chunk...)
	rec.Length += uint32(len(chunk))
	rec.Chain = expected
	if err := state.Put(s, ref.Key(), types.EncodeBuffer(rec)); err != nil {
		return nil, fmt.Errorf("failed to store %s: %w", ref, err)
	}
	return rec, nil
}

func checkNotFinalized(s state.Store, ref Ref) error {
	done, err := s.Has(types.RecordKey(ref.RecordID()))
	if err != nil {
		return err
	}
	if done {
		return fmt.Errorf("%w: %s", ErrAlreadyFinalized, ref.RecordID())
	}
	return nil
}
