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

// go/src/rpc/types.go
package rpc

import (
	"encoding/json"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sphinx-core/stark-pqc/src/common"
	"github.com/sphinx-core/stark-pqc/src/core/types"
	"go.uber.org/zap"
)

// Metrics holds the Prometheus collectors of the API.
type Metrics struct {
	RequestCount   *prometheus.CounterVec
	RequestLatency *prometheus.HistogramVec
	ErrorCount     *prometheus.CounterVec
	OperationTime  *prometheus.HistogramVec
}

// Server dispatches JSON-RPC requests to the backend.
type Server struct {
	backend Backend
	metrics *Metrics
	methods map[string]RPCHandler
	logger  *zap.Logger
}

type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      interface{}     `json:"id"`
}

type JSONRPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
	ID      interface{}     `json:"id"`
}

type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// SenderParams names a body buffer.
type SenderParams struct {
	Sender types.Pubkey `json:"sender"`
}

// MessageParams names one message.
type MessageParams struct {
	Sender    types.Pubkey `json:"sender"`
	Recipient types.Pubkey `json:"recipient"`
	Sequence  uint64       `json:"sequence"`
}

// ID returns the record identity.
func (p MessageParams) ID() types.RecordID {
	return types.RecordID{Sender: p.Sender, Recipient: p.Recipient, Sequence: p.Sequence}
}

// ChunkParams carries one upload. Recipient and Sequence are ignored for
// body chunks.
type ChunkParams struct {
	MessageParams
	Offset   uint32          `json:"offset"`
	Chunk    common.HexBytes `json:"chunk"`
	Expected common.Hash     `json:"expected"`
}

// FinalizeParams carries the signed metadata.
type FinalizeParams struct {
	MessageParams
	CipherLen    uint32          `json:"cipher_len"`
	KemLen       uint32          `json:"kem_len"`
	Nonce        common.Nonce    `json:"nonce"`
	VerifyingKey common.HexBytes `json:"verifying_key"`
}

// ReadParams selects records of a recipient.
type ReadParams struct {
	Recipient types.Pubkey `json:"recipient"`
	Sequence  *uint64      `json:"sequence,omitempty"`
}

// UploadResult is the buffer length after an upload.
type UploadResult struct {
	Length uint32 `json:"length"`
}

// StatusResult reports a proof status.
type StatusResult struct {
	Status types.ProofStatus `json:"status"`
}

// PhaseResult reports a finalization phase.
type PhaseResult struct {
	Phase types.Phase `json:"phase"`
}

// SignatureResult carries frozen signature bytes.
type SignatureResult struct {
	Signature common.HexBytes `json:"signature"`
}

// Record is the wire form of a record and its proof status.
type Record struct {
	Sender    types.Pubkey      `json:"sender"`
	Recipient types.Pubkey      `json:"recipient"`
	Sequence  uint64            `json:"sequence"`
	Nonce     common.Nonce      `json:"nonce"`
	Cipher    common.HexBytes   `json:"cipher"`
	Kem       common.HexBytes   `json:"kem"`
	Proof     common.HexBytes   `json:"proof"`
	SigBuffer types.Pubkey      `json:"sig_buffer"`
	SigLen    uint32            `json:"sig_len"`
	SigHash   common.Hash       `json:"sig_hash"`
	Status    types.ProofStatus `json:"status"`
}

// NewRecord converts a view to its wire form.
func NewRecord(v *types.RecordView) Record {
	r := v.Record
	return Record{
		Sender:    r.Sender,
		Recipient: r.Recipient,
		Sequence:  r.Sequence,
		Nonce:     common.Nonce(r.Nonce),
		Cipher:    r.Cipher(),
		Kem:       r.Kem(),
		Proof:     r.Proof(),
		SigBuffer: r.SigBuffer,
		SigLen:    r.SigLen,
		SigHash:   common.Hash(r.SigHash),
		Status:    v.Status,
	}
}

// View converts the wire form back to a record view.
func (w Record) View() types.RecordView {
	payload := make([]byte, 0, len(w.Cipher)+len(w.Kem)+len(w.Proof))
	payload = append(payload, w.Cipher...)
	payload = append(payload, w.Kem...)
	payload = append(payload, w.Proof...)
	return types.RecordView{
		Record: &types.MessageRecord{
			Sender:    w.Sender,
			Recipient: w.Recipient,
			CipherLen: uint32(len(w.Cipher)),
			KemLen:    uint32(len(w.Kem)),
			Nonce:     w.Nonce,
			Sequence:  w.Sequence,
			SigBuffer: w.SigBuffer,
			SigLen:    w.SigLen,
			SigHash:   w.SigHash,
			Payload:   payload,
		},
		Status: w.Status,
	}
}
