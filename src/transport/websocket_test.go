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

// go/src/transport/websocket_test.go
package transport

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sphinx-core/stark-pqc/src/core/buffer"
	"github.com/sphinx-core/stark-pqc/src/core/hashchain"
	"github.com/sphinx-core/stark-pqc/src/core/ledger"
	"github.com/sphinx-core/stark-pqc/src/core/message"
	"github.com/sphinx-core/stark-pqc/src/core/types"
	"github.com/sphinx-core/stark-pqc/src/rpc"
	"github.com/sphinx-core/stark-pqc/src/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func startServer(t *testing.T) (*WebSocketServer, string) {
	t.Helper()
	logger := zaptest.NewLogger(t)
	l := ledger.New(message.NewEngine(state.NewMemory(), 0, logger), 8, logger)
	l.Start()
	t.Cleanup(l.Stop)

	ws := NewWebSocketServer(rpc.NewServer(l, rpc.NewMetrics(), logger), logger)
	ts := httptest.NewServer(ws)
	t.Cleanup(ts.Close)
	return ws, "ws" + strings.TrimPrefix(ts.URL, "http")
}

func TestWebSocketRoundTrip(t *testing.T) {
	ws, url := startServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	caller, err := DialWebSocket(ctx, url, nil)
	require.NoError(t, err)
	defer caller.Close()
	c := rpc.NewClient(caller)

	sender := types.Pubkey{9}
	require.NoError(t, c.InitBodyBuffer(ctx, sender))
	chunk := []byte("over websocket")
	n, err := c.UploadBodyChunk(ctx, sender, 0, chunk, hashchain.Next(hashchain.Zero, chunk))
	require.NoError(t, err)
	assert.Equal(t, uint32(len(chunk)), n)

	_, err = c.UploadBodyChunk(ctx, sender, 0, chunk, hashchain.Next(hashchain.Zero, chunk))
	assert.ErrorIs(t, err, buffer.ErrOffsetMismatch)

	phase, err := c.Phase(ctx, types.RecordID{Sender: sender, Recipient: types.Pubkey{1}, Sequence: 1})
	require.NoError(t, err)
	assert.Equal(t, types.PhaseEmpty, phase)
	assert.Equal(t, 1, ws.Clients())
}

func TestWebSocketShutdown(t *testing.T) {
	ws, url := startServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	caller, err := DialWebSocket(ctx, url, nil)
	require.NoError(t, err)
	defer caller.Close()
	require.NoError(t, rpc.NewClient(caller).InitBodyBuffer(ctx, types.Pubkey{3}))

	require.NoError(t, ws.Shutdown(ctx))
	assert.Equal(t, 0, ws.Clients())
	assert.Error(t, rpc.NewClient(caller).InitBodyBuffer(ctx, types.Pubkey{4}))
}

func TestCallAfterClose(t *testing.T) {
	_, url := startServer(t)
	caller, err := DialWebSocket(context.Background(), url, nil)
	require.NoError(t, err)
	require.NoError(t, caller.Close())
	assert.ErrorIs(t, caller.Call(context.Background(), rpc.MethodGetPhase, nil, nil), ErrClosed)
}
