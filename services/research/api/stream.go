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
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/AleutianAI/AleutianResearch/services/research/agent"
)

// Stream frame types.
const (
	FrameEvent  = "event"
	FrameResult = "result"
	FrameError  = "error"
)

// StreamFrame is one JSON message written on GET /v1/query/stream.
//
// Every query produces zero or more "event" frames in loop order, followed by
// exactly one "result" or "error" frame. Status carries the HTTP status the
// same failure would get on POST /v1/query.
type StreamFrame struct {
	Type   string         `json:"type"`
	Event  *agent.Event   `json:"event,omitempty"`
	Result *QueryResponse `json:"result,omitempty"`
	Error  *ErrorResponse `json:"error,omitempty"`
	Status int            `json:"status,omitempty"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// handleQueryStream serves queries over a websocket. The client sends
// QueryRequest messages; each one runs to completion before the next is read.
func (s *Server) handleQueryStream(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("failed to upgrade the websocket", slog.String("error", err.Error()))
		return
	}
	defer ws.Close()

	for {
		var req QueryRequest
		if err := ws.ReadJSON(&req); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug("websocket client disconnected", slog.String("error", err.Error()))
			}
			return
		}
		if err := s.streamQuery(c.Request.Context(), ws, req); err != nil {
			s.logger.Warn("failed to write websocket frame", slog.String("error", err.Error()))
			return
		}
	}
}

// streamQuery runs one query and writes its frames. The returned error is a
// write failure; run failures are reported to the client as error frames.
func (s *Server) streamQuery(parent context.Context, ws *websocket.Conn, req QueryRequest) error {
	ctx, span := handlerTracer.Start(parent, "HandleQueryStream")
	defer span.End()

	if strings.TrimSpace(req.Query) == "" {
		return ws.WriteJSON(errorFrame(http.StatusBadRequest, ErrorResponse{Error: agent.ErrEmptyQuery.Error()}))
	}
	if resp, blocked := s.screen(req.Query); blocked {
		span.SetAttributes(attribute.Bool("policy.blocked", true))
		return ws.WriteJSON(errorFrame(http.StatusForbidden, resp))
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if s.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	// Events arrive on this goroutine, so the connection has a single writer.
	var writeErr error
	ctx = agent.ContextWithEventHandler(ctx, func(ev agent.Event) {
		if writeErr != nil {
			return
		}
		if writeErr = ws.WriteJSON(StreamFrame{Type: FrameEvent, Event: &ev}); writeErr != nil {
			cancel()
		}
	})

	result, err := s.runner.Run(ctx, req.Query)
	if writeErr != nil {
		return writeErr
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		resp := ErrorResponse{Error: err.Error()}
		if result != nil {
			resp.RunID = result.RunID
		}
		return ws.WriteJSON(errorFrame(statusFor(err), resp))
	}

	span.SetAttributes(attribute.String("run.id", result.RunID))
	resp := newQueryResponse(result)
	return ws.WriteJSON(StreamFrame{Type: FrameResult, Result: &resp, Status: http.StatusOK})
}

func errorFrame(status int, resp ErrorResponse) StreamFrame {
	return StreamFrame{Type: FrameError, Error: &resp, Status: status}
}
