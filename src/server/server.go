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

// go/src/server/server.go
package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sphinx-core/stark-pqc/src/common"
	"github.com/sphinx-core/stark-pqc/src/core/ledger"
	"github.com/sphinx-core/stark-pqc/src/core/message"
	api "github.com/sphinx-core/stark-pqc/src/http"
	"github.com/sphinx-core/stark-pqc/src/rpc"
	"github.com/sphinx-core/stark-pqc/src/security"
	"github.com/sphinx-core/stark-pqc/src/state"
	"go.uber.org/zap"
)

// Server owns one node: the store, the ledger and the API in front of it.
type Server struct {
	cfg        *common.Config
	store      state.Store
	ledger     *ledger.Ledger
	rpcServer  *rpc.Server
	httpServer *api.Server
	registry   *prometheus.Registry
	logger     *zap.Logger

	listener net.Listener
	serveErr chan error
	once     sync.Once
}

// OpenStore opens the configured backend, sealed with value checksums when
// enabled.
func OpenStore(cfg *common.Config) (state.Store, error) {
	store, err := state.Open(cfg.Backend, cfg.StorePath())
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store at %s: %w", cfg.Backend, cfg.StorePath(), err)
	}
	if !cfg.Checksums {
		return store, nil
	}
	sealed, err := state.NewSealed(store)
	if err != nil {
		store.Close()
		return nil, err
	}
	return sealed, nil
}

// NewServer wires a node over store. The server takes ownership of store.
func NewServer(cfg *common.Config, store state.Store, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var tlsConfig *tls.Config
	if cfg.TLSCert != "" {
		c, err := security.LoadTLSConfig(cfg.TLSCert, cfg.TLSKey)
		if err != nil {
			return nil, err
		}
		tlsConfig = c
	}

	registry := prometheus.NewRegistry()
	if err := registry.Register(collectors.NewGoCollector()); err != nil {
		return nil, err
	}
	metrics := rpc.NewMetrics()
	if err := metrics.Register(registry); err != nil {
		return nil, err
	}

	engine := message.NewEngine(store, cfg.MaxWorkPerCall, logger.Named("engine"))
	l := ledger.New(engine, cfg.QueueSize, logger.Named("ledger"))
	l.SetObserver(metrics.ObserveOperation)

	rpcServer := rpc.NewServer(l, metrics, logger.Named("rpc"))
	return &Server{
		cfg:        cfg,
		store:      store,
		ledger:     l,
		rpcServer:  rpcServer,
		httpServer: api.NewServer(cfg.HTTPAddr, rpcServer, registry, tlsConfig, logger.Named("http")),
		registry:   registry,
		logger:     logger,
		serveErr:   make(chan error, 1),
	}, nil
}

// Ledger returns the operation runtime of the node.
func (s *Server) Ledger() *ledger.Ledger { return s.ledger }

// Addr is the bound API address once Start has returned.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Start binds the API address, starts the ledger and serves in the
// background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.HTTPAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.HTTPAddr, err)
	}
	s.listener = ln
	s.ledger.Start()
	go func() {
		err := s.httpServer.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		s.serveErr <- err
	}()
	s.logger.Info("node started",
		zap.String("addr", ln.Addr().String()),
		zap.String("backend", s.cfg.Backend),
		zap.Bool("checksums", s.cfg.Checksums),
		zap.Uint64("max_work_per_call", s.cfg.MaxWorkPerCall))
	return nil
}

// Done reports a serve failure, or nil after a clean shutdown.
func (s *Server) Done() <-chan error { return s.serveErr }

// Close stops the API, drains the ledger and closes the store.
func (s *Server) Close(ctx context.Context) error {
	var err error
	s.once.Do(func() {
		if s.listener != nil {
			err = s.httpServer.Shutdown(ctx)
		}
		s.ledger.Stop()
		err = errors.Join(err, s.store.Close())
		s.logger.Info("node stopped")
	})
	return err
}
