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

// go/src/client/outbox.go
package client

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/cloudflare/circl/kem/kyber/kyber768"
	"github.com/sphinx-core/stark-pqc/src/core/stark/prover"
	"github.com/sphinx-core/stark-pqc/src/core/types"
	"github.com/sphinx-core/stark-pqc/src/state"
	"go.uber.org/zap"
)

var outboxPrefix = []byte("outbox:")

// errCorruptEntry marks an outbox value that does not decode.
var errCorruptEntry = errors.New("client: corrupt outbox entry")

// Outbox keeps composed messages until they are stored, so a send that was
// interrupted resumes with the same ciphertext and proof instead of sealing
// and proving again.
type Outbox struct {
	store  state.Store
	logger *zap.Logger
}

// NewOutbox returns an outbox over store.
func NewOutbox(store state.Store, logger *zap.Logger) *Outbox {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Outbox{store: store, logger: logger}
}

// Compose returns the pending message for (sender, recipient, seq) when one
// was composed from the same plaintext, KEM key and proof options. Otherwise
// it composes a fresh message and records it. resumed reports which.
func (o *Outbox) Compose(p *prover.Prover, kemKey *kyber768.PublicKey, sender, recipient types.Pubkey, seq uint64, plaintext []byte) (msg *Message, resumed bool, err error) {
	id := types.RecordID{Sender: sender, Recipient: recipient, Sequence: seq}
	digest, err := composeDigest(p, kemKey, plaintext)
	if err != nil {
		return nil, false, err
	}

	value, err := o.store.Get(outboxKey(id))
	switch {
	case err == nil:
		pending, got, derr := decodePending(id, value)
		if derr == nil && got == digest {
			o.logger.Info("resuming pending message", zap.Stringer("record", id))
			return pending, true, nil
		}
		o.logger.Debug("discarding pending message", zap.Stringer("record", id), zap.Error(derr))
	case !errors.Is(err, state.ErrNotFound):
		return nil, false, err
	}

	if msg, err = Compose(p, kemKey, sender, recipient, seq, plaintext); err != nil {
		return nil, false, err
	}
	if err := state.Put(o.store, outboxKey(id), encodePending(msg, digest)); err != nil {
		return nil, false, fmt.Errorf("record pending message: %w", err)
	}
	return msg, false, nil
}

// Done drops the pending message of id.
func (o *Outbox) Done(id types.RecordID) error {
	b := state.NewBatch()
	b.Delete(outboxKey(id))
	return o.store.Write(b)
}

// Pending lists the identities of messages not yet stored.
func (o *Outbox) Pending() ([]types.RecordID, error) {
	var ids []types.RecordID
	err := o.store.Scan(outboxPrefix, func(key, _ []byte) error {
		id, err := parseOutboxKey(key)
		if err != nil {
			return err
		}
		ids = append(ids, id)
		return nil
	})
	return ids, err
}

func outboxKey(id types.RecordID) []byte {
	out := make([]byte, 0, len(outboxPrefix)+2*types.PubkeySize+8)
	out = append(out, outboxPrefix...)
	out = append(out, id.Sender[:]...)
	out = append(out, id.Recipient[:]...)
	return binary.BigEndian.AppendUint64(out, id.Sequence)
}

func parseOutboxKey(key []byte) (types.RecordID, error) {
	var id types.RecordID
	rest := key[len(outboxPrefix):]
	if len(rest) != 2*types.PubkeySize+8 {
		return id, fmt.Errorf("%w: key of %d bytes", errCorruptEntry, len(key))
	}
	copy(id.Sender[:], rest)
	copy(id.Recipient[:], rest[types.PubkeySize:])
	id.Sequence = binary.BigEndian.Uint64(rest[2*types.PubkeySize:])
	return id, nil
}

// composeDigest is SHA-256(options || KEM key || plaintext).
func composeDigest(p *prover.Prover, kemKey *kyber768.PublicKey, plaintext []byte) ([sha256.Size]byte, error) {
	var digest [sha256.Size]byte
	pub, err := kemKey.MarshalBinary()
	if err != nil {
		return digest, err
	}
	h := sha256.New()
	h.Write(p.Options().Bytes())
	h.Write(pub)
	h.Write(plaintext)
	copy(digest[:], h.Sum(nil))
	return digest, nil
}

// encodePending lays a message out as
// digest || nonce || LE32(cipherLen) || LE32(kemLen) || cipher || kem || proof.
func encodePending(m *Message, digest [sha256.Size]byte) []byte {
	out := make([]byte, 0, sha256.Size+types.NonceSize+8+len(m.Cipher)+len(m.Kem)+len(m.Proof))
	out = append(out, digest[:]...)
	out = append(out, m.Nonce[:]...)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(m.Cipher)))
	out = binary.LittleEndian.AppendUint32(out, uint32(len(m.Kem)))
	out = append(out, m.Cipher...)
	out = append(out, m.Kem...)
	return append(out, m.Proof...)
}

func decodePending(id types.RecordID, value []byte) (*Message, [sha256.Size]byte, error) {
	var digest [sha256.Size]byte
	const head = sha256.Size + types.NonceSize + 8
	if len(value) < head {
		return nil, digest, fmt.Errorf("%w: %d bytes", errCorruptEntry, len(value))
	}
	copy(digest[:], value)
	m := &Message{Sender: id.Sender, Recipient: id.Recipient, Sequence: id.Sequence}
	copy(m.Nonce[:], value[sha256.Size:])
	cipherLen := uint64(binary.LittleEndian.Uint32(value[head-8:]))
	kemLen := uint64(binary.LittleEndian.Uint32(value[head-4:]))
	body := value[head:]
	if cipherLen+kemLen > uint64(len(body)) {
		return nil, digest, fmt.Errorf("%w: lengths exceed body", errCorruptEntry)
	}
	m.Cipher = append([]byte(nil), body[:cipherLen]...)
	m.Kem = append([]byte(nil), body[cipherLen:cipherLen+kemLen]...)
	m.Proof = append([]byte(nil), body[cipherLen+kemLen:]...)
	if err := m.Validate(); err != nil {
		return nil, digest, err
	}
	return m, digest, nil
}
