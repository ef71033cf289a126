// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package reasoning implements the four reasoning stages of the research
// agent (planning, action selection, validation and answer synthesis) on top
// of a chat-completion backend.
//
// Backends implement ChatModel. Two are provided: OpenAIModel, which talks to
// the OpenAI chat completions API, and LangChainModel, which adapts any
// langchaingo llms.Model and is used for local OpenAI-compatible servers
// such as Ollama.
package reasoning

import (
	"context"
	"errors"

	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/AleutianAI/AleutianResearch/services/research/tools"
)

// ErrNoChoices is returned by a ChatModel when the backend answered without
// any completion choice.
var ErrNoChoices = errors.New("model returned no choices")

// ResponseSchema asks the backend for a JSON object of a given shape.
type ResponseSchema struct {
	Name       string
	Definition *jsonschema.Definition
}

// ChatRequest is one single-turn completion.
type ChatRequest struct {
	// Stage names the calling stage, for logs and spans.
	Stage string

	System string
	User   string

	// Tools are bound for function calling. Only the metadata is sent.
	Tools []tools.Descriptor

	// Schema requests structured JSON output. Ignored when Tools is set.
	Schema *ResponseSchema
}

// ToolCall is one function call requested by the model.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// ChatResponse is the model's reply.
type ChatResponse struct {
	Content   string
	ToolCalls []ToolCall
}

// ChatModel performs chat completions.
type ChatModel interface {
	Complete(ctx context.Context, req ChatRequest) (ChatResponse, error)
}

// ChatModelFunc adapts a function to ChatModel.
type ChatModelFunc func(ctx context.Context, req ChatRequest) (ChatResponse, error)

// Complete calls f.
func (f ChatModelFunc) Complete(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	return f(ctx, req)
}
