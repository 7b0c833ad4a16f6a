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

// go/src/rpc/json.go
package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

var errInvalidParams = errors.New("invalid parameters")

// ProcessRequest handles a single request or a batch and returns the
// encoded response. Notifications (requests without id) inside a batch
// produce no entry; a batch of only notifications returns nil.
func (s *Server) ProcessRequest(ctx context.Context, data []byte) []byte {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var batch []JSONRPCRequest
		if err := json.Unmarshal(data, &batch); err != nil {
			return s.errorResponse(nil, ErrCodeParseError, "Parse error: invalid JSON")
		}
		return s.processBatchRequest(ctx, batch)
	}

	var req JSONRPCRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return s.errorResponse(nil, ErrCodeParseError, "Parse error: invalid JSON")
	}
	resp := s.processSingleRequest(ctx, req)
	out, err := json.Marshal(resp)
	if err != nil {
		return s.errorResponse(req.ID, ErrCodeInternalError, err.Error())
	}
	return out
}

func (s *Server) processSingleRequest(ctx context.Context, req JSONRPCRequest) *JSONRPCResponse {
	resp := &JSONRPCResponse{JSONRPC: "2.0", ID: req.ID}
	if req.JSONRPC != "2.0" {
		resp.Error = &RPCError{Code: ErrCodeInvalidRequest, Message: "Invalid JSON-RPC version"}
		return resp
	}
	if req.Method == "" {
		resp.Error = &RPCError{Code: ErrCodeInvalidRequest, Message: "Method is required"}
		return resp
	}
	handler, exists := s.methods[req.Method]
	if !exists {
		s.metrics.ErrorCount.WithLabelValues("unknown").Inc()
		resp.Error = &RPCError{Code: ErrCodeMethodNotFound, Message: fmt.Sprintf("Method %s not found", req.Method)}
		return resp
	}

	start := time.Now()
	result, err := handler(ctx, req.Params)
	s.Observe(req.Method, start, err)
	if err != nil {
		code := ErrorCode(err)
		if errors.Is(err, errInvalidParams) {
			code = ErrCodeInvalidParams
		}
		if code == ErrCodeInternalError {
			s.logger.Warn("rpc call failed", zap.String("method", req.Method), zap.Error(err))
		}
		resp.Error = &RPCError{Code: code, Message: err.Error()}
		return resp
	}
	raw, err := json.Marshal(result)
	if err != nil {
		resp.Error = &RPCError{Code: ErrCodeInternalError, Message: err.Error()}
		return resp
	}
	resp.Result = raw
	return resp
}

func (s *Server) processBatchRequest(ctx context.Context, batch []JSONRPCRequest) []byte {
	if len(batch) == 0 {
		return s.errorResponse(nil, ErrCodeInvalidRequest, "Empty batch request")
	}
	var responses []*JSONRPCResponse
	for _, req := range batch {
		resp := s.processSingleRequest(ctx, req)
		if req.ID == nil {
			continue
		}
		responses = append(responses, resp)
	}
	if len(responses) == 0 {
		return nil
	}
	out, err := json.Marshal(responses)
	if err != nil {
		return s.errorResponse(nil, ErrCodeInternalError, err.Error())
	}
	return out
}

// errorResponse creates a JSON-RPC error response.
func (s *Server) errorResponse(id interface{}, code int, message string) []byte {
	resp := JSONRPCResponse{
		JSONRPC: "2.0",
		Error:   &RPCError{Code: code, Message: message},
		ID:      id,
	}
	out, _ := json.Marshal(resp)
	return out
}

func parseParams(raw json.RawMessage, target interface{}) error {
	if len(raw) == 0 {
		return fmt.Errorf("%w: missing parameters", errInvalidParams)
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("%w: %v", errInvalidParams, err)
	}
	return nil
}
