// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/AleutianAI/AleutianResearch/services/research/agent"
	"github.com/AleutianAI/AleutianResearch/services/research/policy"
)

var handlerTracer = otel.Tracer("aleutian.research.api")

// QueryRequest is the body of POST /v1/query.
type QueryRequest struct {
	Query string `json:"query" binding:"required"`
}

// QueryResponse is the reply of POST /v1/query.
type QueryResponse struct {
	RunID     string             `json:"run_id"`
	Answer    string             `json:"answer"`
	Citations []agent.Citation   `json:"citations"`
	Partial   bool               `json:"partial"`
	Tasks     []agent.TaskReport `json:"tasks"`
	Steps     int                `json:"steps"`
	LatencyMs int64              `json:"latency_ms"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error    string   `json:"error"`
	RunID    string   `json:"run_id,omitempty"`
	Patterns []string `json:"patterns,omitempty"`
}

func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Aleutian Research API",
		"version": s.version,
		"status":  "running",
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": s.now().UTC().Format("2006-01-02T15:04:05Z07:00"),
	})
}

func (s *Server) handleQuery(c *gin.Context) {
	ctx, span := handlerTracer.Start(c.Request.Context(), "HandleQuery")
	defer span.End()

	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: agent.ErrEmptyQuery.Error()})
		return
	}

	if resp, blocked := s.screen(req.Query); blocked {
		span.SetAttributes(attribute.Bool("policy.blocked", true))
		c.JSON(http.StatusForbidden, resp)
		return
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	result, err := s.runner.Run(ctx, req.Query)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		resp := ErrorResponse{Error: err.Error()}
		if result != nil {
			resp.RunID = result.RunID
		}
		c.JSON(statusFor(err), resp)
		return
	}

	span.SetAttributes(attribute.String("run.id", result.RunID))
	c.JSON(http.StatusOK, newQueryResponse(result))
}

// screen runs the query policy. It reports blocked=true with the reply body
// when the query must not reach the reasoning backend.
func (s *Server) screen(query string) (ErrorResponse, bool) {
	if s.policy == nil {
		return ErrorResponse{}, false
	}
	err := s.policy.Check(query)
	if err == nil {
		return ErrorResponse{}, false
	}
	var v *policy.Violation
	if !errors.As(err, &v) {
		return ErrorResponse{Error: err.Error()}, true
	}
	s.logger.Warn("blocked query due to policy violation",
		slog.String("classification", v.Classification),
		slog.Int("patterns", len(v.PatternIDs)),
	)
	return ErrorResponse{
		Error:    "Policy Violation: query contains sensitive data.",
		Patterns: v.PatternIDs,
	}, true
}

func newQueryResponse(result *agent.RunResult) QueryResponse {
	return QueryResponse{
		RunID:     result.RunID,
		Answer:    result.Answer.Text,
		Citations: result.Answer.Citations,
		Partial:   result.Answer.Partial,
		Tasks:     result.Tasks,
		Steps:     result.Steps,
		LatencyMs: result.Duration.Milliseconds(),
	}
}

// statusFor maps a Run error to an HTTP status.
func statusFor(err error) int {
	var pf *agent.PlanningFailure
	var af *agent.AnswerSynthesisFailure
	switch {
	case errors.Is(err, agent.ErrEmptyQuery):
		return http.StatusBadRequest
	case errors.As(err, &pf):
		return http.StatusUnprocessableEntity
	case errors.As(err, &af):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
