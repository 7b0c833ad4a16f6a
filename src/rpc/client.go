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

// go/src/rpc/client.go
package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"

	"github.com/sphinx-core/stark-pqc/src/common"
	"github.com/sphinx-core/stark-pqc/src/core/message"
	"github.com/sphinx-core/stark-pqc/src/core/types"
)

// Caller performs one JSON-RPC exchange.
type Caller interface {
	Call(ctx context.Context, method string, params, result interface{}) error
}

// HTTPCaller posts JSON-RPC requests to an endpoint.
type HTTPCaller struct {
	url    string
	client *http.Client
	nextID atomic.Uint64
}

// NewHTTPCaller returns a caller for url (e.g. http://host:port/rpc).
func NewHTTPCaller(url string, client *http.Client) *HTTPCaller {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPCaller{url: url, client: client}
}

// NewRequest encodes a request with the given id.
func NewRequest(id uint64, method string, params interface{}) ([]byte, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}
	return json.Marshal(JSONRPCRequest{JSONRPC: "2.0", Method: method, Params: raw, ID: id})
}

// DecodeResponse unpacks a response into result, returning the wire error
// if there is one.
func DecodeResponse(data []byte, result interface{}) error {
	var resp JSONRPCResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return fmt.Errorf("rpc: bad response: %w", err)
	}
	if resp.Error != nil {
		return resp.Error
	}
	if result == nil || len(resp.Result) == 0 {
		return nil
	}
	return json.Unmarshal(resp.Result, result)
}

// Call implements Caller.
func (c *HTTPCaller) Call(ctx context.Context, method string, params, result interface{}) error {
	body, err := NewRequest(c.nextID.Add(1), method, params)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	return DecodeResponse(data, result)
}

// Client exposes the operations over any Caller.
type Client struct {
	caller Caller
}

// NewClient wraps caller.
func NewClient(caller Caller) *Client {
	return &Client{caller: caller}
}

func msgParams(sender, recipient types.Pubkey, seq uint64) MessageParams {
	return MessageParams{Sender: sender, Recipient: recipient, Sequence: seq}
}

func (c *Client) InitBodyBuffer(ctx context.Context, sender types.Pubkey) error {
	return c.caller.Call(ctx, MethodInitBodyBuffer, SenderParams{Sender: sender}, nil)
}

func (c *Client) InitSignatureBuffer(ctx context.Context, sender, recipient types.Pubkey, seq uint64) error {
	return c.caller.Call(ctx, MethodInitSignatureBuffer, msgParams(sender, recipient, seq), nil)
}

func (c *Client) UploadBodyChunk(ctx context.Context, sender types.Pubkey, offset uint32, chunk []byte, expected [32]byte) (uint32, error) {
	var out UploadResult
	p := ChunkParams{MessageParams: MessageParams{Sender: sender}, Offset: offset, Chunk: chunk, Expected: expected}
	err := c.caller.Call(ctx, MethodUploadBodyChunk, p, &out)
	return out.Length, err
}

func (c *Client) UploadSignatureChunk(ctx context.Context, sender, recipient types.Pubkey, seq uint64, offset uint32, chunk []byte, expected [32]byte) (uint32, error) {
	var out UploadResult
	p := ChunkParams{MessageParams: msgParams(sender, recipient, seq), Offset: offset, Chunk: chunk, Expected: expected}
	err := c.caller.Call(ctx, MethodUploadSignatureChunk, p, &out)
	return out.Length, err
}

func (c *Client) FinalizeSignature(ctx context.Context, sender types.Pubkey, req message.FinalizeRequest) (*types.MessageRecord, error) {
	p := FinalizeParams{
		MessageParams: msgParams(sender, req.Recipient, req.Sequence),
		CipherLen:     req.CipherLen,
		KemLen:        req.KemLen,
		Nonce:         common.Nonce(req.Nonce),
		VerifyingKey:  req.VerifyingKey,
	}
	var out Record
	if err := c.caller.Call(ctx, MethodFinalizeSignature, p, &out); err != nil {
		return nil, err
	}
	return out.View().Record, nil
}

func (c *Client) VerifyProof(ctx context.Context, id types.RecordID) (types.ProofStatus, error) {
	var out StatusResult
	err := c.caller.Call(ctx, MethodVerifyProof, msgParams(id.Sender, id.Recipient, id.Sequence), &out)
	if ErrorCode(err) == ErrCodeProofFailed {
		return types.ProofRejected, err
	}
	return out.Status, err
}

func (c *Client) ReadRecords(ctx context.Context, recipient types.Pubkey, seq *uint64) ([]types.RecordView, error) {
	var out []Record
	if err := c.caller.Call(ctx, MethodReadRecords, ReadParams{Recipient: recipient, Sequence: seq}, &out); err != nil {
		return nil, err
	}
	views := make([]types.RecordView, len(out))
	for i := range out {
		views[i] = out[i].View()
	}
	return views, nil
}

func (c *Client) ReadSignature(ctx context.Context, id types.RecordID) ([]byte, error) {
	var out SignatureResult
	if err := c.caller.Call(ctx, MethodReadSignature, msgParams(id.Sender, id.Recipient, id.Sequence), &out); err != nil {
		return nil, err
	}
	return out.Signature, nil
}

func (c *Client) Phase(ctx context.Context, id types.RecordID) (types.Phase, error) {
	var out PhaseResult
	err := c.caller.Call(ctx, MethodGetPhase, msgParams(id.Sender, id.Recipient, id.Sequence), &out)
	return out.Phase, err
}

var _ Backend = (*Client)(nil)
