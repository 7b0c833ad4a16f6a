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

// go/src/rpc/global.go
package rpc

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/sphinx-core/stark-pqc/src/core/budget"
	"github.com/sphinx-core/stark-pqc/src/core/buffer"
	"github.com/sphinx-core/stark-pqc/src/core/message"
	"github.com/sphinx-core/stark-pqc/src/core/types"
)

// Standard JSON-RPC error codes.
const (
	ErrCodeParseError     = -32700 // Invalid JSON
	ErrCodeInvalidRequest = -32600 // Not a valid JSON-RPC request
	ErrCodeMethodNotFound = -32601 // Method does not exist
	ErrCodeInvalidParams  = -32602 // Invalid parameters
	ErrCodeInternalError  = -32603 // Internal server error
)

// Application error codes, one per sentinel.
const (
	ErrCodeChunkTooLarge = -32001 - iota
	ErrCodeOffsetMismatch
	ErrCodeMsgTooBig
	ErrCodeHashMismatch
	ErrCodeAlreadyFinalized
	ErrCodeBufferNotFound
	ErrCodeLenMismatch
	ErrCodeSigFailed
	ErrCodeProofFailed
	ErrCodeRecordNotFound
	ErrCodeBudgetExceeded
	ErrCodeOwnerMismatch
)

// Method names.
const (
	MethodInitBodyBuffer       = "init_body_buffer"
	MethodInitSignatureBuffer  = "init_signature_buffer"
	MethodUploadBodyChunk      = "upload_body_chunk"
	MethodUploadSignatureChunk = "upload_signature_chunk"
	MethodFinalizeSignature    = "finalize_signature"
	MethodVerifyProof          = "verify_proof"
	MethodReadRecords          = "read_records"
	MethodReadSignature        = "read_signature"
	MethodGetPhase             = "get_phase"
)

type errorEntry struct {
	err    error
	code   int
	status int
}

// errorTable maps domain errors to wire codes. Order matters only for
// errors that wrap several sentinels: the first match wins.
var errorTable = []errorEntry{
	{budget.ErrExceeded, ErrCodeBudgetExceeded, http.StatusServiceUnavailable},
	{message.ErrSigFailed, ErrCodeSigFailed, http.StatusUnprocessableEntity},
	{message.ErrProofFailed, ErrCodeProofFailed, http.StatusUnprocessableEntity},
	{message.ErrLenMismatch, ErrCodeLenMismatch, http.StatusBadRequest},
	{message.ErrRecordNotFound, ErrCodeRecordNotFound, http.StatusNotFound},
	{buffer.ErrChunkTooLarge, ErrCodeChunkTooLarge, http.StatusBadRequest},
	{buffer.ErrOffsetMismatch, ErrCodeOffsetMismatch, http.StatusConflict},
	{buffer.ErrMsgTooBig, ErrCodeMsgTooBig, http.StatusBadRequest},
	{buffer.ErrHashMismatch, ErrCodeHashMismatch, http.StatusBadRequest},
	{buffer.ErrAlreadyFinalized, ErrCodeAlreadyFinalized, http.StatusConflict},
	{buffer.ErrBufferNotFound, ErrCodeBufferNotFound, http.StatusNotFound},
	{buffer.ErrOwnerMismatch, ErrCodeOwnerMismatch, http.StatusConflict},
}

// ErrorCode returns the JSON-RPC code for err.
func ErrorCode(err error) int {
	for _, e := range errorTable {
		if errors.Is(err, e.err) {
			return e.code
		}
	}
	if errors.Is(err, types.ErrInvalidPubkey) {
		return ErrCodeInvalidParams
	}
	return ErrCodeInternalError
}

// HTTPStatus returns the REST status for err.
func HTTPStatus(err error) int {
	for _, e := range errorTable {
		if errors.Is(err, e.err) {
			return e.status
		}
	}
	if errors.Is(err, types.ErrInvalidPubkey) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// Sentinel returns the domain error behind code, or nil.
func Sentinel(code int) error {
	for _, e := range errorTable {
		if e.code == code {
			return e.err
		}
	}
	return nil
}

// Error implements error so a client can return the wire error directly.
func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Unwrap lets errors.Is match the domain sentinel on the client side.
func (e *RPCError) Unwrap() error {
	return Sentinel(e.Code)
}
