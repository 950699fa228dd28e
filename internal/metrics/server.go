// SPDX-License-Identifier: EPL-2.0

package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server exposes the default registry on /metrics.
type Server struct {
	log    *zap.Logger
	server *http.Server
}

// NewServer creates a server listening on addr. An empty addr disables it.
func NewServer(addr string, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{log: log}
	if addr == "" {
		return s
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	s.server = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Enabled reports whether the server has an address.
func (s *Server) Enabled() bool { return s.server != nil }

// Start binds the listener and serves in the background. It returns the bound
// address, which differs from the configured one when the port is 0.
func (s *Server) Start() (string, error) {
	if s.server == nil {
		return "", nil
	}
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return "", err
	}
	addr := ln.Addr().String()
	s.log.Info("serving prometheus metrics", zap.String("addr", addr), zap.String("endpoint", "/metrics"))
	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Warn("metrics server shut down unexpectedly", zap.Error(err))
		}
	}()
	return addr, nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	if err := s.server.Shutdown(ctx); err != nil {
		s.log.Error("metrics server forced to shut down", zap.Error(err))
		return err
	}
	return nil
}
