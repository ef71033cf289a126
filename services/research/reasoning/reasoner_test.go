// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package reasoning

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/sashabaranov/go-openai/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianResearch/services/research/agent"
	"github.com/AleutianAI/AleutianResearch/services/research/tools"
)

type mockChatModel struct {
	CompleteFunc func(ctx context.Context, req ChatRequest) (ChatResponse, error)
	requests     []ChatRequest
}

func (m *mockChatModel) Complete(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	m.requests = append(m.requests, req)
	return m.CompleteFunc(ctx, req)
}

func replying(content string) *mockChatModel {
	return &mockChatModel{CompleteFunc: func(context.Context, ChatRequest) (ChatResponse, error) {
		return ChatResponse{Content: content}, nil
	}}
}

func testDescriptors() []tools.Descriptor {
	return []tools.Descriptor{{
		Name:        "get_income_statements",
		Description: "income",
		Parameters:  jsonschema.Definition{Type: jsonschema.Object},
		Invoke:      func(context.Context, json.RawMessage) (string, error) { return "", nil },
	}}
}

func newTestReasoner(m ChatModel, opts ...Option) *Reasoner {
	opts = append([]Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	return NewReasoner(m, testDescriptors(), opts...)
}

// =============================================================================
// Plan
// =============================================================================

func TestPlan(t *testing.T) {
	m := replying(`{"tasks":[{"description":"Fetch AAPL annual income statements"},{"description":" Fetch MSFT annual income statements "}]}`)
	tasks, err := newTestReasoner(m).Plan(context.Background(), "Compare AAPL and MSFT revenue")
	require.NoError(t, err)

	assert.Equal(t, []agent.Task{
		{ID: 1, Description: "Fetch AAPL annual income statements"},
		{ID: 2, Description: "Fetch MSFT annual income statements"},
	}, tasks)

	require.Len(t, m.requests, 1)
	assert.Equal(t, planSchema, m.requests[0].Schema)
	assert.Empty(t, m.requests[0].Tools)
	assert.Contains(t, m.requests[0].User, "Compare AAPL and MSFT revenue")
}

func TestPlan_EmptyIsValid(t *testing.T) {
	tasks, err := newTestReasoner(replying(`{"tasks":[]}`)).Plan(context.Background(), "What is the weather today?")
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestPlan_Failures(t *testing.T) {
	tests := []struct {
		name  string
		model *mockChatModel
	}{
		{"not json", replying("I would first look at revenue")},
		{"wrong shape", replying(`{"tasks":"fetch revenue"}`)},
		{"blank description", replying(`{"tasks":[{"description":""}]}`)},
		{"model error", &mockChatModel{CompleteFunc: func(context.Context, ChatRequest) (ChatResponse, error) {
			return ChatResponse{}, errors.New("503")
		}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestReasoner(tt.model).Plan(context.Background(), "q")
			var pf *agent.PlanningFailure
			assert.ErrorAs(t, err, &pf)
		})
	}
}

// =============================================================================
// ChooseAction
// =============================================================================

func TestChooseAction_MapsToolCalls(t *testing.T) {
	m := &mockChatModel{CompleteFunc: func(context.Context, ChatRequest) (ChatResponse, error) {
		return ChatResponse{ToolCalls: []ToolCall{
			{ID: "call_1", Name: "get_income_statements", Arguments: `{"ticker":"AAPL","period":"annual"}`},
			{Name: "get_balance_sheets", Arguments: ""},
		}}, nil
	}}
	history := []agent.ToolOutput{{Seq: 1, TaskID: 1, Tool: "get_cash_flow_statements", Result: `[{"year":2023}]`}}

	invs, err := newTestReasoner(m).ChooseAction(context.Background(), agent.Task{ID: 2, Description: "income"}, history)
	require.NoError(t, err)

	require.Len(t, invs, 2)
	assert.Equal(t, "call_1", invs[0].ID)
	assert.JSONEq(t, `{"ticker":"AAPL","period":"annual"}`, string(invs[0].Arguments))
	assert.True(t, strings.HasPrefix(invs[1].ID, "call_"))
	assert.Equal(t, "{}", string(invs[1].Arguments))

	req := m.requests[0]
	assert.Len(t, req.Tools, 1)
	assert.Nil(t, req.Schema)
	assert.Contains(t, req.User, "Current task (2): income")
	assert.Contains(t, req.User, "[1] task 1: get_cash_flow_statements")
}

func TestChooseAction_NoToolCalls(t *testing.T) {
	invs, err := newTestReasoner(replying("Nothing to fetch.")).ChooseAction(context.Background(), agent.Task{ID: 1}, nil)
	require.NoError(t, err)
	assert.Empty(t, invs)
}

func TestChooseAction_NamelessCallRejected(t *testing.T) {
	m := &mockChatModel{CompleteFunc: func(context.Context, ChatRequest) (ChatResponse, error) {
		return ChatResponse{ToolCalls: []ToolCall{{ID: "x"}}}, nil
	}}
	_, err := newTestReasoner(m).ChooseAction(context.Background(), agent.Task{ID: 1}, nil)
	assert.Error(t, err)
}

// =============================================================================
// IsTaskDone
// =============================================================================

func TestIsTaskDone(t *testing.T) {
	done, err := newTestReasoner(replying("```json\n{\"done\": true}\n```")).IsTaskDone(context.Background(), agent.Task{ID: 1}, nil)
	require.NoError(t, err)
	assert.True(t, done)

	done, err = newTestReasoner(replying(`{"done": false}`)).IsTaskDone(context.Background(), agent.Task{ID: 1}, nil)
	require.NoError(t, err)
	assert.False(t, done)

	_, err = newTestReasoner(replying(`{"complete": true}`)).IsTaskDone(context.Background(), agent.Task{ID: 1}, nil)
	assert.Error(t, err, "missing field is not false")
}

// =============================================================================
// Synthesize
// =============================================================================

func TestSynthesize(t *testing.T) {
	m := replying(`{"answer":"Apple's FY2023 revenue was $383.3B.","citations":[1,7]}`)
	outputs := []agent.ToolOutput{
		{Seq: 1, TaskID: 1, Tool: "get_income_statements", Result: "[...]"},
		{Seq: 2, TaskID: 1, Tool: "get_balance_sheets", Failed: true, Error: "status 429"},
	}

	ans, err := newTestReasoner(m).Synthesize(context.Background(), "AAPL revenue?", outputs)
	require.NoError(t, err)
	assert.Equal(t, "Apple's FY2023 revenue was $383.3B.", ans.Text)
	assert.Equal(t, []agent.Citation{{Seq: 1}}, ans.Citations)
	assert.True(t, ans.Partial, "a failed output makes the answer partial")
	assert.Contains(t, m.requests[0].User, "ERROR: status 429")
}

func TestSynthesize_EmptyHistory(t *testing.T) {
	m := replying(`{"answer":"I can only research public companies.","citations":[]}`)
	ans, err := newTestReasoner(m).Synthesize(context.Background(), "weather?", nil)
	require.NoError(t, err)
	assert.True(t, ans.Partial)
	assert.Empty(t, ans.Citations)
	assert.Contains(t, m.requests[0].User, "none")
}

func TestSynthesize_Malformed(t *testing.T) {
	_, err := newTestReasoner(replying(`{"citations":[1]}`)).Synthesize(context.Background(), "q", nil)
	var af *agent.AnswerSynthesisFailure
	assert.ErrorAs(t, err, &af)
}

// =============================================================================
// Rendering
// =============================================================================

func TestRenderHistory_ClipsLongResults(t *testing.T) {
	r := newTestReasoner(replying(""), WithMaxResultChars(50))
	long := strings.Repeat(`{"concept":"Revenues","value":1},`, 20)

	out := r.renderHistory([]agent.ToolOutput{{Seq: 1, TaskID: 1, Tool: "t", Arguments: json.RawMessage(`{ "b": 1, "a": 2 }`), Result: long}})
	assert.Contains(t, out, `t({"a":2,"b":1})`)
	assert.Contains(t, out, "truncated")
	assert.Less(t, len(out), len(long))
}

func TestTruncate_KeepsRuneBoundary(t *testing.T) {
	s := "Umsatz: 12€ und 3€"
	for n := 0; n <= len(s); n++ {
		got := truncate(s, n)
		assert.True(t, utf8.ValidString(got), "n=%d", n)
		assert.LessOrEqual(t, len(got), n)
		assert.True(t, strings.HasPrefix(s, got))
	}
	assert.Equal(t, "Umsatz: 12", truncate(s, 11))
}

func TestRenderHistory_ClipsMultiByteResults(t *testing.T) {
	r := newTestReasoner(replying(""), WithMaxResultChars(25))
	long := strings.Repeat("€", 40)

	out := r.renderHistory([]agent.ToolOutput{{Seq: 1, TaskID: 1, Tool: "t", Result: long}})
	assert.True(t, utf8.ValidString(out))
	assert.Less(t, len(out), len(long))
}
