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

// go/src/http/server_test.go
package http

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sphinx-core/stark-pqc/src/core/buffer"
	"github.com/sphinx-core/stark-pqc/src/core/hashchain"
	"github.com/sphinx-core/stark-pqc/src/core/ledger"
	"github.com/sphinx-core/stark-pqc/src/core/message"
	"github.com/sphinx-core/stark-pqc/src/core/types"
	"github.com/sphinx-core/stark-pqc/src/rpc"
	"github.com/sphinx-core/stark-pqc/src/state"
	"github.com/sphinx-core/stark-pqc/src/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestServer(t *testing.T) (*httptest.Server, *Client) {
	t.Helper()
	logger := zaptest.NewLogger(t)
	l := ledger.New(message.NewEngine(state.NewMemory(), 0, logger), 8, logger)
	metrics := rpc.NewMetrics()
	reg := prometheus.NewRegistry()
	require.NoError(t, metrics.Register(reg))
	l.SetObserver(metrics.ObserveOperation)
	l.Start()
	t.Cleanup(l.Stop)

	s := NewServer("127.0.0.1:0", rpc.NewServer(l, metrics, logger), reg, nil, logger)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		_ = s.Shutdown(context.Background())
		ts.Close()
	})
	return ts, NewClient(ts.URL, ts.Client())
}

func TestRESTUploadAndErrors(t *testing.T) {
	_, c := newTestServer(t)
	ctx := context.Background()
	sender, recipient := types.Pubkey{1}, types.Pubkey{2}

	require.NoError(t, c.InitBodyBuffer(ctx, sender))
	chunk := []byte("rest chunk")
	n, err := c.UploadBodyChunk(ctx, sender, 0, chunk, hashchain.Next(hashchain.Zero, chunk))
	require.NoError(t, err)
	assert.Equal(t, uint32(len(chunk)), n)

	_, err = c.UploadBodyChunk(ctx, sender, 3, chunk, hashchain.Next(hashchain.Zero, chunk))
	assert.ErrorIs(t, err, buffer.ErrOffsetMismatch)
	_, err = c.UploadBodyChunk(ctx, sender, n, make([]byte, types.MaxChunk+1), [32]byte{})
	assert.ErrorIs(t, err, buffer.ErrChunkTooLarge)

	require.NoError(t, c.InitSignatureBuffer(ctx, sender, recipient, 4))
	_, err = c.UploadSignatureChunk(ctx, sender, recipient, 4, 0, chunk, [32]byte{1})
	assert.ErrorIs(t, err, buffer.ErrHashMismatch)

	id := types.RecordID{Sender: sender, Recipient: recipient, Sequence: 4}
	phase, err := c.Phase(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, types.PhaseEmpty, phase)

	seq := uint64(4)
	_, err = c.ReadRecords(ctx, recipient, &seq)
	assert.ErrorIs(t, err, message.ErrRecordNotFound)
	_, err = c.ReadSignature(ctx, id)
	assert.ErrorIs(t, err, message.ErrRecordNotFound)
	status, err := c.VerifyProof(ctx, id)
	assert.ErrorIs(t, err, message.ErrRecordNotFound)
	assert.Equal(t, types.ProofPending, status)

	_, err = c.FinalizeSignature(ctx, sender, message.FinalizeRequest{Recipient: recipient, Sequence: 4, CipherLen: 8, KemLen: 8})
	assert.ErrorIs(t, err, message.ErrLenMismatch)
}

func TestRESTStatusCodes(t *testing.T) {
	ts, _ := newTestServer(t)

	cases := []struct {
		method, path, body string
		status             int
	}{
		{http.MethodPost, "/v1/buffers/body", `{"sender":"0OIl"}`, http.StatusBadRequest},
		{http.MethodPost, "/v1/buffers/body", `{`, http.StatusBadRequest},
		{http.MethodPost, "/v1/buffers/body", `{"sender":"` + types.Pubkey{5}.String() + `"}`, http.StatusCreated},
		{http.MethodGet, "/v1/messages/" + types.Pubkey{5}.String(), "", http.StatusNotFound},
		{http.MethodGet, "/v1/messages/" + types.Pubkey{5}.String() + "?seq=x", "", http.StatusBadRequest},
		{http.MethodGet, "/v1/messages/" + types.Pubkey{5}.String() + "/bad/1/phase", "", http.StatusBadRequest},
		{http.MethodPost, "/v1/buffers/body/chunks", `{"sender":"` + types.Pubkey{6}.String() + `","offset":0,"chunk":"00","expected":"` + strings.Repeat("00", 32) + `"}`, http.StatusNotFound},
	}
	for _, tc := range cases {
		req, err := http.NewRequest(tc.method, ts.URL+tc.path, strings.NewReader(tc.body))
		require.NoError(t, err)
		resp, err := ts.Client().Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, tc.status, resp.StatusCode, "%s %s", tc.method, tc.path)
	}
}

func TestRPCAndWebSocketRoutes(t *testing.T) {
	ts, _ := newTestServer(t)
	ctx := context.Background()

	rpcClient := rpc.NewClient(rpc.NewHTTPCaller(ts.URL+"/rpc", ts.Client()))
	require.NoError(t, rpcClient.InitBodyBuffer(ctx, types.Pubkey{8}))

	caller, err := transport.DialWebSocket(ctx, "ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer caller.Close()
	chunk := []byte{1, 2, 3}
	n, err := rpc.NewClient(caller).UploadBodyChunk(ctx, types.Pubkey{8}, 0, chunk, hashchain.Next(hashchain.Zero, chunk))
	require.NoError(t, err)
	assert.Equal(t, uint32(3), n)

	resp, err := ts.Client().Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `rpc_request_count{method="upload_body_chunk"} 1`)
	assert.Contains(t, string(body), "ledger_operation_seconds")
}
