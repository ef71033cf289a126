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
	"fmt"
	"log/slog"
	"time"

	"github.com/tmc/langchaingo/llms"
	llmopenai "github.com/tmc/langchaingo/llms/openai"
)

// DefaultOllamaURL is the OpenAI-compatible endpoint of a local Ollama.
const DefaultOllamaURL = "http://localhost:11434/v1"

// LangChainModel implements ChatModel over a langchaingo llms.Model.
type LangChainModel struct {
	llm         llms.Model
	temperature float64
	maxTokens   int
	logger      *slog.Logger
}

// LangChainConfig configures NewLocalModel.
type LangChainConfig struct {
	BaseURL     string
	Model       string
	Token       string
	Temperature float64
	MaxTokens   int
}

// NewLocalModel connects to an OpenAI-compatible server such as Ollama.
func NewLocalModel(cfg LangChainConfig, logger *slog.Logger) (*LangChainModel, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("local model name is required")
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultOllamaURL
	}
	token := cfg.Token
	if token == "" {
		// Ollama ignores the token but the client requires one.
		token = "ollama"
	}
	llm, err := llmopenai.New(
		llmopenai.WithModel(cfg.Model),
		llmopenai.WithBaseURL(baseURL),
		llmopenai.WithToken(token),
	)
	if err != nil {
		return nil, fmt.Errorf("create local model: %w", err)
	}
	return NewLangChainModel(llm, cfg.Temperature, cfg.MaxTokens, logger), nil
}

// NewLangChainModel wraps an existing llms.Model.
func NewLangChainModel(llm llms.Model, temperature float64, maxTokens int, logger *slog.Logger) *LangChainModel {
	if logger == nil {
		logger = slog.Default()
	}
	return &LangChainModel{llm: llm, temperature: temperature, maxTokens: maxTokens, logger: logger}
}

// Complete implements ChatModel.
func (m *LangChainModel) Complete(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	messages := []llms.MessageContent{
		{Role: llms.ChatMessageTypeSystem, Parts: []llms.ContentPart{llms.TextPart(req.System)}},
		{Role: llms.ChatMessageTypeHuman, Parts: []llms.ContentPart{llms.TextPart(req.User)}},
	}

	opts := []llms.CallOption{llms.WithTemperature(m.temperature)}
	if m.maxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(m.maxTokens))
	}
	if len(req.Tools) > 0 {
		defs := make([]llms.Tool, 0, len(req.Tools))
		for _, d := range req.Tools {
			defs = append(defs, llms.Tool{
				Type: "function",
				Function: &llms.FunctionDefinition{
					Name:        d.Name,
					Description: d.Description,
					Parameters:  d.Parameters,
				},
			})
		}
		opts = append(opts, llms.WithTools(defs))
	} else if req.Schema != nil {
		opts = append(opts, llms.WithJSONMode())
	}

	start := time.Now()
	resp, err := m.llm.GenerateContent(ctx, messages, opts...)
	if err != nil {
		return ChatResponse{}, fmt.Errorf("completion failed: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return ChatResponse{}, fmt.Errorf("local completion: %w", ErrNoChoices)
	}

	choice := resp.Choices[0]
	m.logger.Debug("local completion",
		slog.String("stage", req.Stage),
		slog.String("stop_reason", choice.StopReason),
		slog.Int("tool_calls", len(choice.ToolCalls)),
		slog.Duration("latency", time.Since(start)),
	)

	out := ChatResponse{Content: choice.Content}
	for _, tc := range choice.ToolCalls {
		if tc.FunctionCall == nil {
			continue
		}
		out.ToolCalls = append(out.ToolCalls, ToolCall{
			ID:        tc.ID,
			Name:      tc.FunctionCall.Name,
			Arguments: tc.FunctionCall.Arguments,
		})
	}
	return out, nil
}
