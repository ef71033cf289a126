// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package api exposes the research agent over HTTP.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/AleutianResearch/services/research/agent"
	"github.com/AleutianAI/AleutianResearch/services/research/policy"
)

// ServiceName identifies the server in traces and the banner.
const ServiceName = "research-service"

// Runner executes one research query. *agent.Orchestrator implements it.
type Runner interface {
	Run(ctx context.Context, query string) (*agent.RunResult, error)
}

// Server wires the HTTP routes to a Runner.
type Server struct {
	runner   Runner
	policy   *policy.Engine
	logger   *slog.Logger
	gatherer prometheus.Gatherer
	tp       trace.TracerProvider
	version  string
	timeout  time.Duration
	now      func() time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request and handler logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithGatherer sets the registry served on /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		if g != nil {
			s.gatherer = g
		}
	}
}

// WithTracerProvider sets the provider used by the otelgin middleware.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Server) { s.tp = tp }
}

// WithVersion sets the version reported on /.
func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

// WithQueryTimeout bounds a single query on either /v1/query route. Zero
// means no bound.
func WithQueryTimeout(d time.Duration) Option {
	return func(s *Server) { s.timeout = d }
}

// NewServer creates a Server. pe may be nil to disable query screening.
func NewServer(runner Runner, pe *policy.Engine, opts ...Option) *Server {
	s := &Server{
		runner:   runner,
		policy:   pe,
		logger:   slog.Default(),
		gatherer: prometheus.DefaultGatherer,
		version:  "dev",
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router builds the gin engine with every route and middleware installed.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	var otelOpts []otelgin.Option
	if s.tp != nil {
		otelOpts = append(otelOpts, otelgin.WithTracerProvider(s.tp))
	}
	router.Use(otelgin.Middleware(ServiceName, otelOpts...))
	router.Use(requestLogger(s.logger))
	router.Use(cors())

	router.GET("/", s.handleRoot)
	router.GET("/health", s.handleHealth)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))

	v1 := router.Group("/v1")
	{
		v1.POST("/query", s.handleQuery)
		v1.GET("/query/stream", s.handleQueryStream)
	}
	return router
}

// ListenAndServe serves on addr until ctx is canceled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("research server listening", slog.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("shutting down research server")
		return srv.Shutdown(shutdownCtx)
	}
}
