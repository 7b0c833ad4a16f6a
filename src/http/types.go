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

// go/src/http/types.go
package http

import (
	"crypto/tls"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sphinx-core/stark-pqc/src/rpc"
	"github.com/sphinx-core/stark-pqc/src/transport"
	"go.uber.org/zap"
)

// Server serves the REST API, JSON-RPC over POST /rpc and /ws, and
// Prometheus metrics.
type Server struct {
	address   string
	router    *gin.Engine
	backend   rpc.Backend
	rpcServer *rpc.Server
	wsServer  *transport.WebSocketServer
	gatherer  prometheus.Gatherer
	tlsConfig *tls.Config
	httpSrv   *http.Server
	logger    *zap.Logger
}

// ErrorBody is the JSON body of every failed REST call.
type ErrorBody struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}
