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

// go/src/client/message.go
package client

import (
	"encoding/binary"
	"fmt"

	"github.com/cloudflare/circl/kem/kyber/kyber768"
	"github.com/sphinx-core/stark-pqc/src/core/buffer"
	sigproof "github.com/sphinx-core/stark-pqc/src/core/proof"
	"github.com/sphinx-core/stark-pqc/src/core/sphincs/slhdsa"
	"github.com/sphinx-core/stark-pqc/src/core/stark/prover"
	"github.com/sphinx-core/stark-pqc/src/core/types"
	"github.com/sphinx-core/stark-pqc/src/security"
)

// Message is everything a sender uploads for one record.
type Message struct {
	Sender    types.Pubkey
	Recipient types.Pubkey
	Sequence  uint64
	Nonce     [types.NonceSize]byte
	Cipher    []byte
	Kem       []byte
	Proof     []byte
}

// ID returns the identity the record will be stored under.
func (m *Message) ID() types.RecordID {
	return types.RecordID{Sender: m.Sender, Recipient: m.Recipient, Sequence: m.Sequence}
}

// Body is the body buffer content: cipher || kem || proof.
func (m *Message) Body() []byte {
	out := make([]byte, 0, len(m.Cipher)+len(m.Kem)+len(m.Proof))
	out = append(out, m.Cipher...)
	out = append(out, m.Kem...)
	return append(out, m.Proof...)
}

// SignedBlob is the byte string the sender signs.
func (m *Message) SignedBlob() []byte {
	return sigproof.SignedBlob(m.Cipher, m.Kem, m.Nonce, m.Sequence)
}

// Validate checks the size limits the store enforces.
func (m *Message) Validate() error {
	if n := len(m.Cipher) + len(m.Kem) + len(m.Proof); n > types.BodyCapacity {
		return fmt.Errorf("%w: body is %d bytes, limit %d", buffer.ErrMsgTooBig, n, types.BodyCapacity)
	}
	return nil
}

// SenderOf derives the sender identity of a verifying key.
func SenderOf(pk *slhdsa.PublicKey) types.Pubkey {
	return types.AddressOf(pk.Bytes())
}

// AAD binds a sealed payload to its routing fields.
func AAD(sender, recipient types.Pubkey, seq uint64) []byte {
	out := make([]byte, 0, 2*types.PubkeySize+8)
	out = append(out, sender[:]...)
	out = append(out, recipient[:]...)
	return binary.LittleEndian.AppendUint64(out, seq)
}

// Compose seals plaintext to the recipient's KEM key and proves the
// resulting ciphertext.
func Compose(p *prover.Prover, kemKey *kyber768.PublicKey, sender, recipient types.Pubkey, seq uint64, plaintext []byte) (*Message, error) {
	env, err := security.Seal(kemKey, plaintext, AAD(sender, recipient, seq), nil)
	if err != nil {
		return nil, err
	}
	proof, err := p.GenerateProof(env.Cipher)
	if err != nil {
		return nil, fmt.Errorf("failed to prove ciphertext: %w", err)
	}
	msg := &Message{
		Sender:    sender,
		Recipient: recipient,
		Sequence:  seq,
		Nonce:     env.Nonce,
		Cipher:    env.Cipher,
		Kem:       env.Kem,
		Proof:     proof,
	}
	return msg, msg.Validate()
}

// OpenRecord decrypts a stored record with the recipient's KEM key.
func OpenRecord(kemKey *kyber768.PrivateKey, rec *types.MessageRecord) ([]byte, error) {
	env := &security.Envelope{Cipher: rec.Cipher(), Kem: rec.Kem(), Nonce: rec.Nonce}
	return security.Open(kemKey, env, AAD(rec.Sender, rec.Recipient, rec.Sequence))
}
