// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/poiesic/concierge/config"
)

// Server serves the assistant API.
type Server struct {
	engine *gin.Engine
	http   *http.Server
	cfg    config.ServerConfig
	logger *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a server for svc. Call Run to start listening.
func New(svc Service, cfg config.ServerConfig, opts ...Option) *Server {
	s := &Server{
		cfg:    cfg,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "server")

	engine := gin.New()
	engine.Use(gin.Recovery(), RequestLogger(s.logger))

	h := &handler{svc: svc, logger: s.logger}
	engine.GET("/health", health)

	api := engine.Group("/api")
	api.Use(Timeout(cfg.RequestTimeout))
	{
		api.POST("/chat", RateLimit(cfg.RateLimit.RPS, cfg.RateLimit.Burst), h.chat)
		api.POST("/feedback", h.feedback)
		api.GET("/conversations", h.recentConversations)
		api.GET("/conversations/:sessionId", h.conversation)
	}

	s.engine = engine
	s.http = &http.Server{
		Addr:              cfg.Addr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run listens on the configured address until ctx is cancelled, then drains
// in-flight requests for up to the shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", ln.Addr().String())
		errCh <- s.http.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	s.logger.Info("shutting down")
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
