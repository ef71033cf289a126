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
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianResearch/services/research/agent"
	"github.com/AleutianAI/AleutianResearch/services/research/policy"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type mockRunner struct {
	RunFunc func(ctx context.Context, query string) (*agent.RunResult, error)
	calls   int
}

func (m *mockRunner) Run(ctx context.Context, query string) (*agent.RunResult, error) {
	m.calls++
	return m.RunFunc(ctx, query)
}

func doneResult(query string) *agent.RunResult {
	return &agent.RunResult{
		RunID: "run-1",
		Query: query,
		State: agent.StateDone,
		Tasks: []agent.TaskReport{{
			Task:   agent.Task{ID: 1, Description: "Fetch AAPL income statements"},
			Status: agent.TaskDone,
			Steps:  1,
		}},
		Answer: agent.Answer{
			Text:      "Apple's FY2023 revenue was $383.3B.",
			Citations: []agent.Citation{{Seq: 1, Tool: "get_income_statements", TaskID: 1}},
		},
		Steps:    1,
		Duration: 1500 * time.Millisecond,
	}
}

func newTestServer(t *testing.T, runner Runner) (*gin.Engine, *prometheus.Registry) {
	t.Helper()
	pe, err := policy.New()
	require.NoError(t, err)
	reg := prometheus.NewRegistry()
	s := NewServer(runner, pe,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithGatherer(reg),
		WithVersion("1.2.3"),
	)
	s.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return s.Router(), reg
}

func postQuery(router http.Handler, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/query", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

// =============================================================================
// Routes
// =============================================================================

func TestRouter_Routes(t *testing.T) {
	router, _ := newTestServer(t, &mockRunner{})

	expected := []struct{ method, path string }{
		{"GET", "/"},
		{"GET", "/health"},
		{"GET", "/metrics"},
		{"POST", "/v1/query"},
		{"GET", "/v1/query/stream"},
	}
	routes := router.Routes()
	for _, e := range expected {
		found := false
		for _, r := range routes {
			if r.Method == e.method && r.Path == e.path {
				found = true
				break
			}
		}
		assert.True(t, found, "route %s %s not registered", e.method, e.path)
	}
}

func TestRootAndHealth(t *testing.T) {
	router, _ := newTestServer(t, &mockRunner{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Aleutian Research API","version":"1.2.3","status":"running"}`, w.Body.String())

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy","timestamp":"2025-06-01T12:00:00Z"}`, w.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	router, reg := newTestServer(t, &mockRunner{})
	agent.NewMetrics(reg).RunsTotal.WithLabelValues("done").Inc()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `research_runs_total{outcome="done"} 1`)
}

func TestCORSPreflight(t *testing.T) {
	router, _ := newTestServer(t, &mockRunner{})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/v1/query", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

// =============================================================================
// POST /v1/query
// =============================================================================

func TestQuery_Success(t *testing.T) {
	runner := &mockRunner{RunFunc: func(_ context.Context, q string) (*agent.RunResult, error) {
		return doneResult(q), nil
	}}
	router, _ := newTestServer(t, runner)

	w := postQuery(router, `{"query":"What was Apple's revenue in 2023?"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp QueryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "run-1", resp.RunID)
	assert.Equal(t, "Apple's FY2023 revenue was $383.3B.", resp.Answer)
	assert.Equal(t, []agent.Citation{{Seq: 1, Tool: "get_income_statements", TaskID: 1}}, resp.Citations)
	assert.False(t, resp.Partial)
	require.Len(t, resp.Tasks, 1)
	assert.Equal(t, agent.TaskDone, resp.Tasks[0].Status)
	assert.Equal(t, 1, resp.Steps)
	assert.Equal(t, int64(1500), resp.LatencyMs)
}

func TestQuery_BadRequests(t *testing.T) {
	runner := &mockRunner{}
	router, _ := newTestServer(t, runner)

	for _, body := range []string{`not json`, `{}`, `{"query":""}`, `{"query":"   "}`} {
		w := postQuery(router, body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
	assert.Zero(t, runner.calls)
}

func TestQuery_PolicyViolation(t *testing.T) {
	runner := &mockRunner{}
	router, _ := newTestServer(t, runner)

	w := postQuery(router, `{"query":"use AKIA1234567890123456 to fetch TSLA prices"}`)
	require.Equal(t, http.StatusForbidden, w.Code)
	assert.NotContains(t, w.Body.String(), "AKIA1234567890123456", "matched text is not echoed")

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, []string{"AWS_ACCESS_KEY_ID"}, resp.Patterns)
	assert.Zero(t, runner.calls, "no reasoning call for a blocked query")
}

func TestQuery_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"planning", &agent.PlanningFailure{Reason: "malformed plan"}, http.StatusUnprocessableEntity},
		{"answer", &agent.AnswerSynthesisFailure{Reason: "model call failed"}, http.StatusBadGateway},
		{"timeout", context.DeadlineExceeded, http.StatusGatewayTimeout},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &mockRunner{RunFunc: func(context.Context, string) (*agent.RunResult, error) {
				return &agent.RunResult{RunID: "run-err", State: agent.StateError}, tt.err
			}}
			router, _ := newTestServer(t, runner)

			w := postQuery(router, `{"query":"Compare AAPL and MSFT margins"}`)
			assert.Equal(t, tt.status, w.Code)

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, "run-err", resp.RunID)
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestQuery_Timeout(t *testing.T) {
	runner := &mockRunner{RunFunc: func(ctx context.Context, _ string) (*agent.RunResult, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	pe, err := policy.New()
	require.NoError(t, err)
	s := NewServer(runner, pe,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithQueryTimeout(10*time.Millisecond),
	)

	w := postQuery(s.Router(), `{"query":"NVDA revenue"}`)
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
}

func TestInitTracing_NoExporter(t *testing.T) {
	shutdown, err := InitTracing(context.Background(), TracingConfig{}, slog.Default())
	require.NoError(t, err)
	shutdown(context.Background())
}
