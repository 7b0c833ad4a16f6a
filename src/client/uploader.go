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

// go/src/client/uploader.go
package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/sphinx-core/stark-pqc/src/core/hashchain"
	"github.com/sphinx-core/stark-pqc/src/core/message"
	sign "github.com/sphinx-core/stark-pqc/src/core/sphincs/sign/backend"
	"github.com/sphinx-core/stark-pqc/src/core/sphincs/slhdsa"
	"github.com/sphinx-core/stark-pqc/src/core/types"
	"github.com/sphinx-core/stark-pqc/src/rpc"
	"go.uber.org/zap"
)

// ErrSigHashMismatch is returned when the finalized record does not commit
// to the signature that was uploaded.
var ErrSigHashMismatch = errors.New("client: record signature hash differs from upload")

// Receipt is the outcome of a full send.
type Receipt struct {
	Record *types.MessageRecord
	Status types.ProofStatus
}

// Uploader drives the upload protocol against any API implementation:
// the in-process ledger, the JSON-RPC client or the REST client.
type Uploader struct {
	api    rpc.Backend
	signer *sign.SphincsManager
	logger *zap.Logger
}

// NewUploader returns an uploader signing with signer.
func NewUploader(api rpc.Backend, signer *sign.SphincsManager, logger *zap.Logger) *Uploader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Uploader{api: api, signer: signer, logger: logger}
}

// UploadBody resets the sender's body buffer and uploads body to it.
func (u *Uploader) UploadBody(ctx context.Context, sender types.Pubkey, body []byte) error {
	if err := u.api.InitBodyBuffer(ctx, sender); err != nil {
		return err
	}
	links, err := hashchain.Of(body, types.MaxChunk)
	if err != nil {
		return err
	}
	for _, l := range links {
		if _, err := u.api.UploadBodyChunk(ctx, sender, l.Offset, l.Chunk, l.Expected); err != nil {
			return fmt.Errorf("body chunk at %d: %w", l.Offset, err)
		}
	}
	return nil
}

// UploadSignature resets the signature buffer of a message and uploads
// parts in order.
func (u *Uploader) UploadSignature(ctx context.Context, id types.RecordID, parts [][]byte) error {
	if err := u.api.InitSignatureBuffer(ctx, id.Sender, id.Recipient, id.Sequence); err != nil {
		return err
	}
	chain := hashchain.Zero
	var offset uint32
	for _, part := range parts {
		chain = hashchain.Next(chain, part)
		if _, err := u.api.UploadSignatureChunk(ctx, id.Sender, id.Recipient, id.Sequence, offset, part, chain); err != nil {
			return fmt.Errorf("signature chunk at %d: %w", offset, err)
		}
		offset += uint32(len(part))
	}
	return nil
}

// Send signs msg, uploads both buffers, finalizes and verifies the proof.
// A rejected proof returns the receipt together with the error.
func (u *Uploader) Send(ctx context.Context, sk *slhdsa.PrivateKey, msg *Message) (*Receipt, error) {
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	signed, err := u.signer.SignMessage(msg.SignedBlob(), sk)
	if err != nil {
		return nil, err
	}
	if err := u.UploadBody(ctx, msg.Sender, msg.Body()); err != nil {
		return nil, err
	}
	if err := u.UploadSignature(ctx, msg.ID(), signed.Parts); err != nil {
		return nil, err
	}
	u.logger.Debug("buffers uploaded", zap.Stringer("record", msg.ID()), zap.Int("body", len(msg.Body())))

	rec, err := u.api.FinalizeSignature(ctx, msg.Sender, message.FinalizeRequest{
		Recipient:    msg.Recipient,
		CipherLen:    uint32(len(msg.Cipher)),
		KemLen:       uint32(len(msg.Kem)),
		Nonce:        msg.Nonce,
		Sequence:     msg.Sequence,
		VerifyingKey: sk.Public().Bytes(),
	})
	if err != nil {
		return nil, err
	}
	if rec.SigHash != signed.SigHash {
		return nil, ErrSigHashMismatch
	}
	if err := u.signer.Forget(msg.SignedBlob(), sk.Public()); err != nil {
		u.logger.Warn("failed to drop cached signature", zap.Stringer("record", msg.ID()), zap.Error(err))
	}

	status, err := u.api.VerifyProof(ctx, msg.ID())
	receipt := &Receipt{Record: rec, Status: status}
	if err != nil {
		return receipt, err
	}
	u.logger.Info("message stored", zap.Stringer("record", msg.ID()), zap.Stringer("status", status))
	return receipt, nil
}
