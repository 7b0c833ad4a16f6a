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

// go/src/main.go
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sphinx-core/stark-pqc/src/common"
	logger "github.com/sphinx-core/stark-pqc/src/log"
	"github.com/sphinx-core/stark-pqc/src/server"
)

func main() {
	configPath := flag.String("config", "", "Path to the YAML configuration (default data/config.yaml)")
	dataDir := flag.String("datadir", "", "Data directory")
	backend := flag.String("backend", "", "Store backend: leveldb, badger or memory")
	httpAddr := flag.String("http", "", "API listen address")
	maxWork := flag.Uint64("max-work", 0, "Work units allowed per verification call")
	logLevel := flag.String("log-level", "", "Log level: debug, info, warn or error")
	noChecksums := flag.Bool("no-checksums", false, "Store values without HighwayHash checksums")
	writeConfig := flag.Bool("write-config", false, "Write the effective configuration and exit")
	flag.Parse()

	cfg, err := common.LoadConfig(*configPath)
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	if *backend != "" {
		cfg.Backend = *backend
	}
	if *httpAddr != "" {
		cfg.HTTPAddr = *httpAddr
	}
	if *maxWork != 0 {
		cfg.MaxWorkPerCall = *maxWork
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *noChecksums {
		cfg.Checksums = false
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("Invalid configuration: %v", err)
	}
	lvl, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		logger.Fatalf("Invalid log level: %v", err)
	}
	logger.SetLevel(lvl)

	if *writeConfig {
		path := *configPath
		if path == "" {
			path = cfg.DataDir + "/" + common.ConfigFile
		}
		if err := cfg.Save(path); err != nil {
			logger.Fatalf("Failed to write configuration: %v", err)
		}
		logger.Infof("Configuration written to %s", path)
		return
	}

	store, err := server.OpenStore(cfg)
	if err != nil {
		logger.Fatalf("%v", err)
	}
	srv, err := server.NewServer(cfg, store, logger.Zap())
	if err != nil {
		store.Close()
		logger.Fatalf("Failed to create node: %v", err)
	}
	if err := srv.Start(); err != nil {
		srv.Close(context.Background())
		logger.Fatalf("Failed to start node: %v", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.Infof("Received %s, shutting down", sig)
	case err := <-srv.Done():
		if err != nil {
			logger.Errorf("API server failed: %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Close(ctx); err != nil {
		logger.Errorf("Shutdown: %v", err)
	}
}
