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

// go/src/rpc/server.go
package rpc

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/sphinx-core/stark-pqc/src/core/message"
	"github.com/sphinx-core/stark-pqc/src/core/types"
	"go.uber.org/zap"
)

// Backend is the operation surface served over the API. ledger.Ledger
// implements it.
type Backend interface {
	InitBodyBuffer(ctx context.Context, sender types.Pubkey) error
	InitSignatureBuffer(ctx context.Context, sender, recipient types.Pubkey, seq uint64) error
	UploadBodyChunk(ctx context.Context, sender types.Pubkey, offset uint32, chunk []byte, expected [32]byte) (uint32, error)
	UploadSignatureChunk(ctx context.Context, sender, recipient types.Pubkey, seq uint64, offset uint32, chunk []byte, expected [32]byte) (uint32, error)
	FinalizeSignature(ctx context.Context, sender types.Pubkey, req message.FinalizeRequest) (*types.MessageRecord, error)
	VerifyProof(ctx context.Context, id types.RecordID) (types.ProofStatus, error)
	ReadRecords(ctx context.Context, recipient types.Pubkey, seq *uint64) ([]types.RecordView, error)
	ReadSignature(ctx context.Context, id types.RecordID) ([]byte, error)
	Phase(ctx context.Context, id types.RecordID) (types.Phase, error)
}

// MaxRequestSize bounds a request body. A full chunk in hex is under 2 KiB.
const MaxRequestSize = 1 << 20

// RPCHandler executes one method with raw params.
type RPCHandler func(ctx context.Context, params json.RawMessage) (interface{}, error)

// NewServer returns a JSON-RPC server over backend. Metrics are not
// registered here; see Metrics.Register.
func NewServer(backend Backend, metrics *Metrics, logger *zap.Logger) *Server {
	if metrics == nil {
		metrics = NewMetrics()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		backend: backend,
		metrics: metrics,
		methods: make(map[string]RPCHandler),
		logger:  logger,
	}
	s.registerMethods()
	return s
}

// Metrics returns the collectors the server updates.
func (s *Server) Metrics() *Metrics { return s.metrics }

// Backend returns the operation surface.
func (s *Server) Backend() Backend { return s.backend }

func (s *Server) registerMethods() {
	s.methods[MethodInitBodyBuffer] = s.initBodyBuffer
	s.methods[MethodInitSignatureBuffer] = s.initSignatureBuffer
	s.methods[MethodUploadBodyChunk] = s.uploadBodyChunk
	s.methods[MethodUploadSignatureChunk] = s.uploadSignatureChunk
	s.methods[MethodFinalizeSignature] = s.finalizeSignature
	s.methods[MethodVerifyProof] = s.verifyProof
	s.methods[MethodReadRecords] = s.readRecords
	s.methods[MethodReadSignature] = s.readSignature
	s.methods[MethodGetPhase] = s.getPhase
}

// Observe updates request metrics for one call.
func (s *Server) Observe(method string, start time.Time, err error) {
	s.metrics.RequestCount.WithLabelValues(method).Inc()
	s.metrics.RequestLatency.WithLabelValues(method).Observe(time.Since(start).Seconds())
	if err != nil {
		s.metrics.ErrorCount.WithLabelValues(method).Inc()
	}
}

func (s *Server) initBodyBuffer(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var p SenderParams
	if err := parseParams(raw, &p); err != nil {
		return nil, err
	}
	return struct{}{}, s.backend.InitBodyBuffer(ctx, p.Sender)
}

func (s *Server) initSignatureBuffer(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var p MessageParams
	if err := parseParams(raw, &p); err != nil {
		return nil, err
	}
	return struct{}{}, s.backend.InitSignatureBuffer(ctx, p.Sender, p.Recipient, p.Sequence)
}

func (s *Server) uploadBodyChunk(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var p ChunkParams
	if err := parseParams(raw, &p); err != nil {
		return nil, err
	}
	n, err := s.backend.UploadBodyChunk(ctx, p.Sender, p.Offset, p.Chunk, p.Expected)
	return UploadResult{Length: n}, err
}

func (s *Server) uploadSignatureChunk(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var p ChunkParams
	if err := parseParams(raw, &p); err != nil {
		return nil, err
	}
	n, err := s.backend.UploadSignatureChunk(ctx, p.Sender, p.Recipient, p.Sequence, p.Offset, p.Chunk, p.Expected)
	return UploadResult{Length: n}, err
}

func (s *Server) finalizeSignature(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var p FinalizeParams
	if err := parseParams(raw, &p); err != nil {
		return nil, err
	}
	rec, err := s.backend.FinalizeSignature(ctx, p.Sender, p.Request())
	if err != nil {
		return nil, err
	}
	return NewRecord(&types.RecordView{Record: rec, Status: types.ProofPending}), nil
}

func (s *Server) verifyProof(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var p MessageParams
	if err := parseParams(raw, &p); err != nil {
		return nil, err
	}
	status, err := s.backend.VerifyProof(ctx, p.ID())
	return StatusResult{Status: status}, err
}

func (s *Server) readRecords(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var p ReadParams
	if err := parseParams(raw, &p); err != nil {
		return nil, err
	}
	views, err := s.backend.ReadRecords(ctx, p.Recipient, p.Sequence)
	if err != nil {
		return nil, err
	}
	out := make([]Record, len(views))
	for i := range views {
		out[i] = NewRecord(&views[i])
	}
	return out, nil
}

func (s *Server) readSignature(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var p MessageParams
	if err := parseParams(raw, &p); err != nil {
		return nil, err
	}
	sig, err := s.backend.ReadSignature(ctx, p.ID())
	return SignatureResult{Signature: sig}, err
}

func (s *Server) getPhase(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var p MessageParams
	if err := parseParams(raw, &p); err != nil {
		return nil, err
	}
	phase, err := s.backend.Phase(ctx, p.ID())
	return PhaseResult{Phase: phase}, err
}

// Request converts the params to an engine request.
func (p FinalizeParams) Request() message.FinalizeRequest {
	return message.FinalizeRequest{
		Recipient:    p.Recipient,
		CipherLen:    p.CipherLen,
		KemLen:       p.KemLen,
		Nonce:        p.Nonce,
		Sequence:     p.Sequence,
		VerifyingKey: p.VerifyingKey,
	}
}

// ServeHTTP serves JSON-RPC over HTTP POST.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, MaxRequestSize))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	out := s.ProcessRequest(r.Context(), body)
	if out == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(out)
}
