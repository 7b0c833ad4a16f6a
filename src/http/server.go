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

// go/src/http/server.go
package http

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sphinx-core/stark-pqc/src/core/types"
	"github.com/sphinx-core/stark-pqc/src/rpc"
	"github.com/sphinx-core/stark-pqc/src/transport"
	"go.uber.org/zap"
)

// NewServer creates the API server on address. gatherer backs /metrics;
// nil selects the default registry. tlsConfig may be nil.
func NewServer(address string, rpcServer *rpc.Server, gatherer prometheus.Gatherer, tlsConfig *tls.Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger))

	s := &Server{
		address:   address,
		router:    r,
		backend:   rpcServer.Backend(),
		rpcServer: rpcServer,
		wsServer:  transport.NewWebSocketServer(rpcServer, logger),
		gatherer:  gatherer,
		tlsConfig: tlsConfig,
		logger:    logger,
	}
	s.httpSrv = &http.Server{
		Addr:              address,
		Handler:           r,
		TLSConfig:         tlsConfig,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.setupRoutes()
	return s
}

// setupRoutes defines HTTP endpoints.
func (s *Server) setupRoutes() {
	v1 := s.router.Group("/v1")
	v1.POST("/buffers/body", s.handleInitBody)
	v1.POST("/buffers/signature", s.handleInitSignature)
	v1.POST("/buffers/body/chunks", s.handleBodyChunk)
	v1.POST("/buffers/signature/chunks", s.handleSignatureChunk)
	v1.POST("/messages/finalize", s.handleFinalize)
	v1.POST("/messages/verify", s.handleVerify)
	v1.GET("/messages/:recipient", s.handleReadRecords)
	v1.GET("/messages/:recipient/:sender/:seq/phase", s.handlePhase)
	v1.GET("/messages/:recipient/:sender/:seq/signature", s.handleSignature)

	s.router.POST("/rpc", gin.WrapH(s.rpcServer))
	s.router.GET("/ws", gin.WrapH(s.wsServer))
	s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("took", time.Since(start)))
	}
}

// Handler returns the router, for embedding or httptest.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) fail(c *gin.Context, err error) {
	status := rpc.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		s.logger.Warn("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(status, ErrorBody{Error: err.Error(), Code: rpc.ErrorCode(err)})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, ErrorBody{Error: err.Error(), Code: rpc.ErrCodeInvalidParams})
}

func (s *Server) handleInitBody(c *gin.Context) {
	var p rpc.SenderParams
	if err := c.ShouldBindJSON(&p); err != nil {
		badRequest(c, err)
		return
	}
	if err := s.backend.InitBodyBuffer(c.Request.Context(), p.Sender); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusCreated)
}

func (s *Server) handleInitSignature(c *gin.Context) {
	var p rpc.MessageParams
	if err := c.ShouldBindJSON(&p); err != nil {
		badRequest(c, err)
		return
	}
	if err := s.backend.InitSignatureBuffer(c.Request.Context(), p.Sender, p.Recipient, p.Sequence); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusCreated)
}

func (s *Server) handleBodyChunk(c *gin.Context) {
	var p rpc.ChunkParams
	if err := c.ShouldBindJSON(&p); err != nil {
		badRequest(c, err)
		return
	}
	n, err := s.backend.UploadBodyChunk(c.Request.Context(), p.Sender, p.Offset, p.Chunk, p.Expected)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rpc.UploadResult{Length: n})
}

func (s *Server) handleSignatureChunk(c *gin.Context) {
	var p rpc.ChunkParams
	if err := c.ShouldBindJSON(&p); err != nil {
		badRequest(c, err)
		return
	}
	n, err := s.backend.UploadSignatureChunk(c.Request.Context(), p.Sender, p.Recipient, p.Sequence, p.Offset, p.Chunk, p.Expected)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rpc.UploadResult{Length: n})
}

func (s *Server) handleFinalize(c *gin.Context) {
	var p rpc.FinalizeParams
	if err := c.ShouldBindJSON(&p); err != nil {
		badRequest(c, err)
		return
	}
	rec, err := s.backend.FinalizeSignature(c.Request.Context(), p.Sender, p.Request())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, rpc.NewRecord(&types.RecordView{Record: rec, Status: types.ProofPending}))
}

func (s *Server) handleVerify(c *gin.Context) {
	var p rpc.MessageParams
	if err := c.ShouldBindJSON(&p); err != nil {
		badRequest(c, err)
		return
	}
	status, err := s.backend.VerifyProof(c.Request.Context(), p.ID())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rpc.StatusResult{Status: status})
}

func (s *Server) handleReadRecords(c *gin.Context) {
	recipient, err := types.ParsePubkey(c.Param("recipient"))
	if err != nil {
		badRequest(c, err)
		return
	}
	var seq *uint64
	if q, ok := c.GetQuery("seq"); ok {
		v, err := strconv.ParseUint(q, 10, 64)
		if err != nil {
			badRequest(c, err)
			return
		}
		seq = &v
	}
	views, err := s.backend.ReadRecords(c.Request.Context(), recipient, seq)
	if err != nil {
		s.fail(c, err)
		return
	}
	out := make([]rpc.Record, len(views))
	for i := range views {
		out[i] = rpc.NewRecord(&views[i])
	}
	c.JSON(http.StatusOK, out)
}

func recordID(c *gin.Context) (types.RecordID, error) {
	var id types.RecordID
	var err error
	if id.Recipient, err = types.ParsePubkey(c.Param("recipient")); err != nil {
		return id, err
	}
	if id.Sender, err = types.ParsePubkey(c.Param("sender")); err != nil {
		return id, err
	}
	id.Sequence, err = strconv.ParseUint(c.Param("seq"), 10, 64)
	return id, err
}

func (s *Server) handlePhase(c *gin.Context) {
	id, err := recordID(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	phase, err := s.backend.Phase(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rpc.PhaseResult{Phase: phase})
}

func (s *Server) handleSignature(c *gin.Context) {
	id, err := recordID(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	sig, err := s.backend.ReadSignature(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rpc.SignatureResult{Signature: sig})
}

// Start listens on the configured address and serves until Shutdown.
// It returns http.ErrServerClosed after a clean shutdown.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve serves on ln, with TLS when a config was given.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("api listening", zap.String("addr", ln.Addr().String()), zap.Bool("tls", s.tlsConfig != nil))
	if s.tlsConfig != nil {
		return s.httpSrv.ServeTLS(ln, "", "")
	}
	return s.httpSrv.Serve(ln)
}

// Shutdown closes websocket clients, then stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	wsErr := s.wsServer.Shutdown(ctx)
	return errors.Join(wsErr, s.httpSrv.Shutdown(ctx))
}
