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

// go/src/server/server_test.go
package server

import (
	"context"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/sphinx-core/stark-pqc/src/common"
	"github.com/sphinx-core/stark-pqc/src/core/message"
	"github.com/sphinx-core/stark-pqc/src/core/types"
	api "github.com/sphinx-core/stark-pqc/src/http"
	"github.com/sphinx-core/stark-pqc/src/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func testConfig(t *testing.T, backend string) *common.Config {
	cfg := common.DefaultConfig()
	cfg.DataDir = t.TempDir()
	cfg.Backend = backend
	cfg.HTTPAddr = "127.0.0.1:0"
	return cfg
}

func TestNodeLifecycle(t *testing.T) {
	for _, backend := range []string{"memory", "leveldb", "badger"} {
		t.Run(backend, func(t *testing.T) {
			cfg := testConfig(t, backend)
			store, err := OpenStore(cfg)
			require.NoError(t, err)
			srv, err := NewServer(cfg, store, zaptest.NewLogger(t))
			require.NoError(t, err)
			require.NoError(t, srv.Start())

			ctx := context.Background()
			base := "http://" + srv.Addr().String()
			c := api.NewClient(base, nil)
			require.NoError(t, c.InitBodyBuffer(ctx, types.Pubkey{1}))
			_, err = c.ReadRecords(ctx, types.Pubkey{2}, nil)
			assert.ErrorIs(t, err, message.ErrRecordNotFound)

			rc := rpc.NewClient(rpc.NewHTTPCaller(base+"/rpc", nil))
			phase, err := rc.Phase(ctx, types.RecordID{Sender: types.Pubkey{1}, Recipient: types.Pubkey{2}})
			require.NoError(t, err)
			assert.Equal(t, types.PhaseEmpty, phase)

			resp, err := http.Get(base + "/metrics")
			require.NoError(t, err)
			resp.Body.Close()
			assert.Equal(t, http.StatusOK, resp.StatusCode)

			require.NoError(t, srv.Close(ctx))
			require.NoError(t, <-srv.Done())
			require.NoError(t, srv.Close(ctx))
		})
	}
}

func TestNewServerRejectsBadConfig(t *testing.T) {
	cfg := testConfig(t, "memory")
	cfg.QueueSize = 0
	store, err := OpenStore(cfg)
	require.NoError(t, err)
	defer store.Close()
	_, err = NewServer(cfg, store, nil)
	assert.Error(t, err)

	cfg = testConfig(t, "memory")
	cfg.TLSCert = filepath.Join(cfg.DataDir, "missing.pem")
	cfg.TLSKey = cfg.TLSCert
	_, err = NewServer(cfg, store, nil)
	assert.Error(t, err)
}

func TestStartFailsOnBusyAddress(t *testing.T) {
	cfg := testConfig(t, "memory")
	store, err := OpenStore(cfg)
	require.NoError(t, err)
	first, err := NewServer(cfg, store, nil)
	require.NoError(t, err)
	require.NoError(t, first.Start())
	defer first.Close(context.Background())

	cfg2 := testConfig(t, "memory")
	cfg2.HTTPAddr = first.Addr().String()
	store2, err := OpenStore(cfg2)
	require.NoError(t, err)
	second, err := NewServer(cfg2, store2, nil)
	require.NoError(t, err)
	assert.Error(t, second.Start())
	require.NoError(t, second.Close(context.Background()))
}
