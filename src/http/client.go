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

// go/src/http/client.go
package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/sphinx-core/stark-pqc/src/core/message"
	"github.com/sphinx-core/stark-pqc/src/core/types"
	"github.com/sphinx-core/stark-pqc/src/rpc"
)

// Client calls the REST API. Failed calls return an *rpc.RPCError, so
// errors.Is matches the same sentinels as on the server.
type Client struct {
	base   string
	client *http.Client
}

// NewClient returns a client for base (e.g. http://127.0.0.1:8645).
func NewClient(base string, client *http.Client) *Client {
	if client == nil {
		client = http.DefaultClient
	}
	return &Client{base: strings.TrimRight(base, "/"), client: client}
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		var eb ErrorBody
		if err := json.Unmarshal(data, &eb); err != nil || eb.Code == 0 {
			return fmt.Errorf("http %d: %s", resp.StatusCode, bytes.TrimSpace(data))
		}
		return &rpc.RPCError{Code: eb.Code, Message: eb.Error}
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, out)
}

func (c *Client) InitBodyBuffer(ctx context.Context, sender types.Pubkey) error {
	return c.do(ctx, http.MethodPost, "/v1/buffers/body", rpc.SenderParams{Sender: sender}, nil)
}

func (c *Client) InitSignatureBuffer(ctx context.Context, sender, recipient types.Pubkey, seq uint64) error {
	p := rpc.MessageParams{Sender: sender, Recipient: recipient, Sequence: seq}
	return c.do(ctx, http.MethodPost, "/v1/buffers/signature", p, nil)
}

func (c *Client) UploadBodyChunk(ctx context.Context, sender types.Pubkey, offset uint32, chunk []byte, expected [32]byte) (uint32, error) {
	p := rpc.ChunkParams{MessageParams: rpc.MessageParams{Sender: sender}, Offset: offset, Chunk: chunk, Expected: expected}
	var out rpc.UploadResult
	err := c.do(ctx, http.MethodPost, "/v1/buffers/body/chunks", p, &out)
	return out.Length, err
}

func (c *Client) UploadSignatureChunk(ctx context.Context, sender, recipient types.Pubkey, seq uint64, offset uint32, chunk []byte, expected [32]byte) (uint32, error) {
	p := rpc.ChunkParams{
		MessageParams: rpc.MessageParams{Sender: sender, Recipient: recipient, Sequence: seq},
		Offset:        offset,
		Chunk:         chunk,
		Expected:      expected,
	}
	var out rpc.UploadResult
	err := c.do(ctx, http.MethodPost, "/v1/buffers/signature/chunks", p, &out)
	return out.Length, err
}

func (c *Client) FinalizeSignature(ctx context.Context, sender types.Pubkey, req message.FinalizeRequest) (*types.MessageRecord, error) {
	p := rpc.FinalizeParams{
		MessageParams: rpc.MessageParams{Sender: sender, Recipient: req.Recipient, Sequence: req.Sequence},
		CipherLen:     req.CipherLen,
		KemLen:        req.KemLen,
		Nonce:         req.Nonce,
		VerifyingKey:  req.VerifyingKey,
	}
	var out rpc.Record
	if err := c.do(ctx, http.MethodPost, "/v1/messages/finalize", p, &out); err != nil {
		return nil, err
	}
	return out.View().Record, nil
}

func (c *Client) VerifyProof(ctx context.Context, id types.RecordID) (types.ProofStatus, error) {
	p := rpc.MessageParams{Sender: id.Sender, Recipient: id.Recipient, Sequence: id.Sequence}
	var out rpc.StatusResult
	if err := c.do(ctx, http.MethodPost, "/v1/messages/verify", p, &out); err != nil {
		if rpc.ErrorCode(err) == rpc.ErrCodeProofFailed {
			return types.ProofRejected, err
		}
		return types.ProofPending, err
	}
	return out.Status, nil
}

func (c *Client) ReadRecords(ctx context.Context, recipient types.Pubkey, seq *uint64) ([]types.RecordView, error) {
	path := "/v1/messages/" + url.PathEscape(recipient.String())
	if seq != nil {
		path += "?seq=" + strconv.FormatUint(*seq, 10)
	}
	var out []rpc.Record
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	views := make([]types.RecordView, len(out))
	for i := range out {
		views[i] = out[i].View()
	}
	return views, nil
}

func recordPath(id types.RecordID, leaf string) string {
	return fmt.Sprintf("/v1/messages/%s/%s/%d/%s", id.Recipient, id.Sender, id.Sequence, leaf)
}

func (c *Client) ReadSignature(ctx context.Context, id types.RecordID) ([]byte, error) {
	var out rpc.SignatureResult
	err := c.do(ctx, http.MethodGet, recordPath(id, "signature"), nil, &out)
	return out.Signature, err
}

func (c *Client) Phase(ctx context.Context, id types.RecordID) (types.Phase, error) {
	var out rpc.PhaseResult
	err := c.do(ctx, http.MethodGet, recordPath(id, "phase"), nil, &out)
	return out.Phase, err
}

var _ rpc.Backend = (*Client)(nil)
