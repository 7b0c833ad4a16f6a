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

// go/src/core/message/engine.go
package message

import (
	"bytes"
	"errors"
	"fmt"
	"sort"

	"github.com/sphinx-core/stark-pqc/src/core/budget"
	"github.com/sphinx-core/stark-pqc/src/core/buffer"
	sigproof "github.com/sphinx-core/stark-pqc/src/core/proof"
	"github.com/sphinx-core/stark-pqc/src/core/sphincs/slhdsa"
	"github.com/sphinx-core/stark-pqc/src/core/stark/verifier"
	"github.com/sphinx-core/stark-pqc/src/core/types"
	"github.com/sphinx-core/stark-pqc/src/state"
	"go.uber.org/zap"
)

var (
	ErrLenMismatch    = errors.New("message: length mismatch")
	ErrSigFailed      = errors.New("message: signature verification failed")
	ErrProofFailed    = errors.New("message: proof verification failed")
	ErrRecordNotFound = errors.New("message: record not found")

	// ErrAlreadyFinalized is shared with the buffer store so callers can
	// match either source with one errors.Is.
	ErrAlreadyFinalized = buffer.ErrAlreadyFinalized
)

// FinalizeRequest carries the metadata the sender signed.
type FinalizeRequest struct {
	Recipient    types.Pubkey
	CipherLen    uint32
	KemLen       uint32
	Nonce        [types.NonceSize]byte
	Sequence     uint64
	VerifyingKey []byte
}

// Engine runs the two-phase finalize over a store. It holds no locks;
// callers serialize access (see the ledger package).
type Engine struct {
	store    state.Store
	maxWork  uint64
	verifier *verifier.Verifier
	logger   *zap.Logger
}

// NewEngine returns an engine over store. maxWork bounds the work of a
// single call; zero selects budget.DefaultMaxWorkPerCall.
func NewEngine(store state.Store, maxWork uint64, logger *zap.Logger) *Engine {
	if maxWork == 0 {
		maxWork = budget.DefaultMaxWorkPerCall
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		store:    store,
		maxWork:  maxWork,
		verifier: verifier.NewVerifier(logger),
		logger:   logger,
	}
}

// MaxWorkPerCall returns the per-call work ceiling.
func (e *Engine) MaxWorkPerCall() uint64 { return e.maxWork }

// InitBodyBuffer creates or resets the sender's body buffer.
func (e *Engine) InitBodyBuffer(sender types.Pubkey) error {
	return buffer.InitBody(e.store, sender)
}

// InitSignatureBuffer creates or resets the signature buffer of one message.
func (e *Engine) InitSignatureBuffer(sender, recipient types.Pubkey, seq uint64) error {
	return buffer.InitSignature(e.store, sender, recipient, seq)
}

// UploadBodyChunk appends to the sender's body buffer and returns its new length.
func (e *Engine) UploadBodyChunk(sender types.Pubkey, offset uint32, chunk []byte, expected [32]byte) (uint32, error) {
	rec, err := buffer.Append(e.store, buffer.Body(sender), offset, chunk, expected)
	if err != nil {
		return 0, err
	}
	return rec.Length, nil
}

// UploadSignatureChunk appends to a signature buffer and returns its new length.
func (e *Engine) UploadSignatureChunk(sender, recipient types.Pubkey, seq uint64, offset uint32, chunk []byte, expected [32]byte) (uint32, error) {
	rec, err := buffer.Append(e.store, buffer.Signature(sender, recipient, seq), offset, chunk, expected)
	if err != nil {
		return 0, err
	}
	return rec.Length, nil
}

// FinalizeSignature verifies the sender's signature over the assembled
// message and, on success, freezes it into an immutable record. Nothing is
// written unless every check passes.
func (e *Engine) FinalizeSignature(sender types.Pubkey, req FinalizeRequest) (*types.MessageRecord, error) {
	id := types.RecordID{Sender: sender, Recipient: req.Recipient, Sequence: req.Sequence}

	done, err := e.store.Has(types.RecordKey(id))
	if err != nil {
		return nil, err
	}
	if done {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyFinalized, id)
	}

	body, err := buffer.Load(e.store, buffer.Body(sender))
	if err != nil {
		if errors.Is(err, buffer.ErrBufferNotFound) {
			return nil, fmt.Errorf("%w: %w", ErrLenMismatch, err)
		}
		return nil, err
	}
	need := uint64(req.CipherLen) + uint64(req.KemLen)
	if need > uint64(body.Length) || int(body.Length) > types.BodyCapacity {
		return nil, fmt.Errorf("%w: cipher %d + kem %d, body %d", ErrLenMismatch, req.CipherLen, req.KemLen, body.Length)
	}

	sigRef := buffer.Signature(sender, req.Recipient, req.Sequence)
	sig, err := buffer.Load(e.store, sigRef)
	if err != nil {
		if errors.Is(err, buffer.ErrBufferNotFound) {
			return nil, fmt.Errorf("%w: %w", ErrSigFailed, err)
		}
		return nil, err
	}
	if sig.Length != types.SignatureCapacity {
		return nil, fmt.Errorf("%w: signature length %d", ErrSigFailed, sig.Length)
	}
	pk, err := slhdsa.ParsePublicKey(req.VerifyingKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSigFailed, err)
	}
	// A record is filed under the address of the key that signed it.
	if owner := types.AddressOf(pk.Bytes()); owner != sender {
		return nil, fmt.Errorf("%w: verifying key belongs to %s, not %s", ErrSigFailed, owner, sender)
	}

	cipher := body.Data[:req.CipherLen]
	kem := body.Data[req.CipherLen:need]
	msg := sigproof.SignedBlob(cipher, kem, req.Nonce, req.Sequence)
	m := budget.NewMeter(e.maxWork)
	if err := slhdsa.VerifyStream(pk, msg, bytes.NewReader(sig.Data), m); err != nil {
		if errors.Is(err, budget.ErrExceeded) {
			return nil, err
		}
		e.logger.Info("signature rejected", zap.Stringer("record", id), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrSigFailed, err)
	}

	rec := &types.MessageRecord{
		Sender:    sender,
		Recipient: req.Recipient,
		CipherLen: req.CipherLen,
		KemLen:    req.KemLen,
		Nonce:     req.Nonce,
		Sequence:  req.Sequence,
		SigBuffer: sigRef.Address(),
		SigLen:    sig.Length,
		SigHash:   sig.Chain,
		Payload:   body.Data,
	}
	b := state.NewBatch()
	b.Put(types.RecordKey(id), types.EncodeRecord(rec))
	b.Put(types.RecipientKey(id), nil)
	b.Put(types.StatusKey(id), []byte{byte(types.ProofPending)})
	b.Delete(types.BodyKey(sender))
	if err := e.store.Write(b); err != nil {
		return nil, fmt.Errorf("failed to store record %s: %w", id, err)
	}
	e.logger.Info("signature finalized",
		zap.Stringer("record", id),
		zap.Int("payload", len(rec.Payload)),
		zap.Uint64("work", m.Used()))
	return rec, nil
}

// VerifyProof checks the proof carried by a finalized record and persists
// the outcome. A call that runs out of budget leaves the status unchanged.
func (e *Engine) VerifyProof(id types.RecordID) (types.ProofStatus, error) {
	rec, err := e.loadRecord(id)
	if err != nil {
		return types.ProofPending, err
	}
	m := budget.NewMeter(e.maxWork)
	verr := e.verifier.VerifyProof(rec.Proof(), rec.Cipher(), m)
	if errors.Is(verr, budget.ErrExceeded) {
		return types.ProofPending, verr
	}
	if verr != nil && !errors.Is(verr, verifier.ErrProofFailed) {
		return types.ProofPending, verr
	}

	status := types.ProofVerified
	if verr != nil {
		status = types.ProofRejected
	}
	if err := state.Put(e.store, types.StatusKey(id), []byte{byte(status)}); err != nil {
		return types.ProofPending, fmt.Errorf("failed to store proof status %s: %w", id, err)
	}
	if verr != nil {
		e.logger.Info("proof rejected", zap.Stringer("record", id), zap.Error(verr))
		return status, fmt.Errorf("%w: %w", ErrProofFailed, verr)
	}
	e.logger.Info("proof verified", zap.Stringer("record", id), zap.Uint64("work", m.Used()))
	return status, nil
}

// ReadRecords lists the records addressed to recipient, optionally limited
// to one sequence number, ordered by sequence then sender.
func (e *Engine) ReadRecords(recipient types.Pubkey, seq *uint64) ([]types.RecordView, error) {
	prefix := types.RecipientIndexPrefix(recipient)
	if seq != nil {
		prefix = types.RecipientSeqPrefix(recipient, *seq)
	}
	var ids []types.RecordID
	err := e.store.Scan(prefix, func(key, _ []byte) error {
		if id, ok := types.ParseRecipientKey(key); ok {
			ids = append(ids, id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: recipient %s", ErrRecordNotFound, recipient)
	}
	sort.Slice(ids, func(i, j int) bool {
		if ids[i].Sequence != ids[j].Sequence {
			return ids[i].Sequence < ids[j].Sequence
		}
		return bytes.Compare(ids[i].Sender[:], ids[j].Sender[:]) < 0
	})

	views := make([]types.RecordView, 0, len(ids))
	for _, id := range ids {
		v, err := e.ReadRecord(id)
		if err != nil {
			return nil, err
		}
		views = append(views, *v)
	}
	return views, nil
}

// ReadRecord returns one record with its proof status.
func (e *Engine) ReadRecord(id types.RecordID) (*types.RecordView, error) {
	rec, err := e.loadRecord(id)
	if err != nil {
		return nil, err
	}
	status, err := e.loadStatus(id)
	if err != nil {
		return nil, err
	}
	return &types.RecordView{Record: rec, Status: status}, nil
}

// ReadSignature returns the frozen signature of a record after checking
// the buffer still matches the chain captured at finalize.
func (e *Engine) ReadSignature(id types.RecordID) ([]byte, error) {
	rec, err := e.loadRecord(id)
	if err != nil {
		return nil, err
	}
	sig, err := buffer.Load(e.store, buffer.Signature(id.Sender, id.Recipient, id.Sequence))
	if err != nil {
		return nil, err
	}
	if sig.Chain != rec.SigHash || sig.Length != rec.SigLen {
		return nil, fmt.Errorf("%w: signature buffer of %s", types.ErrCorruptValue, id)
	}
	return sig.Data, nil
}

// Phase reports how far the message identified by id has progressed.
func (e *Engine) Phase(id types.RecordID) (types.Phase, error) {
	done, err := e.store.Has(types.RecordKey(id))
	if err != nil {
		return types.PhaseEmpty, err
	}
	if done {
		status, err := e.loadStatus(id)
		if err != nil {
			return types.PhaseEmpty, err
		}
		if status == types.ProofVerified {
			return types.PhaseProofVerified, nil
		}
		return types.PhaseSignatureVerified, nil
	}

	body, err := buffer.Load(e.store, buffer.Body(id.Sender))
	if errors.Is(err, buffer.ErrBufferNotFound) {
		return types.PhaseEmpty, nil
	}
	if err != nil {
		return types.PhaseEmpty, err
	}
	sig, err := buffer.Load(e.store, buffer.Signature(id.Sender, id.Recipient, id.Sequence))
	if errors.Is(err, buffer.ErrBufferNotFound) {
		return types.PhaseEmpty, nil
	}
	if err != nil {
		return types.PhaseEmpty, err
	}
	if body.Length > 0 && sig.Length == types.SignatureCapacity {
		return types.PhaseBuffersFilled, nil
	}
	return types.PhaseEmpty, nil
}

func (e *Engine) loadRecord(id types.RecordID) (*types.MessageRecord, error) {
	v, err := e.store.Get(types.RecordKey(id))
	if errors.Is(err, state.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrRecordNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return types.DecodeRecord(v)
}

func (e *Engine) loadStatus(id types.RecordID) (types.ProofStatus, error) {
	v, err := e.store.Get(types.StatusKey(id))
	if errors.Is(err, state.ErrNotFound) {
		return types.ProofPending, nil
	}
	if err != nil {
		return types.ProofPending, err
	}
	if len(v) != 1 || v[0] > byte(types.ProofRejected) {
		return types.ProofPending, fmt.Errorf("%w: proof status of %s", types.ErrCorruptValue, id)
	}
	return types.ProofStatus(v[0]), nil
}
