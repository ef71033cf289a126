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
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

// DefaultOpenAIModel is used when no model is configured.
const DefaultOpenAIModel = "gpt-4o-mini"

// openAISecretPath is where container deployments mount the API key.
const openAISecretPath = "/run/secrets/openai_api_key"

// OpenAIConfig configures OpenAIModel.
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
}

// OpenAIModel implements ChatModel with the OpenAI chat completions API.
type OpenAIModel struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	logger      *slog.Logger
}

// NewOpenAIModel creates the backend. An empty APIKey falls back to the
// mounted secret; BaseURL points the client at a compatible server.
func NewOpenAIModel(cfg OpenAIConfig, logger *slog.Logger) (*OpenAIModel, error) {
	if logger == nil {
		logger = slog.Default()
	}
	key := cfg.APIKey
	if key == "" {
		if b, err := os.ReadFile(openAISecretPath); err == nil {
			key = strings.TrimSpace(string(b))
			logger.Info("read the OpenAI API key from the secrets mount")
		}
	}
	if key == "" && cfg.BaseURL == "" {
		return nil, errors.New("OpenAI API key not set")
	}
	model := cfg.Model
	if model == "" {
		model = DefaultOpenAIModel
	}

	clientCfg := openai.DefaultConfig(key)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	logger.Info("initializing OpenAI backend", slog.String("model", model))
	return &OpenAIModel{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		logger:      logger,
	}, nil
}

// Complete implements ChatModel.
func (m *OpenAIModel) Complete(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	creq := openai.ChatCompletionRequest{
		Model: m.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.System},
			{Role: openai.ChatMessageRoleUser, Content: req.User},
		},
		Temperature: m.temperature,
	}
	if m.maxTokens > 0 {
		creq.MaxCompletionTokens = m.maxTokens
	}

	if len(req.Tools) > 0 {
		creq.Tools = make([]openai.Tool, 0, len(req.Tools))
		for _, d := range req.Tools {
			params := d.Parameters
			creq.Tools = append(creq.Tools, openai.Tool{
				Type: openai.ToolTypeFunction,
				Function: &openai.FunctionDefinition{
					Name:        d.Name,
					Description: d.Description,
					Parameters:  &params,
				},
			})
		}
	} else if req.Schema != nil {
		creq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   req.Schema.Name,
				Schema: req.Schema.Definition,
			},
		}
	}

	start := time.Now()
	resp, err := m.client.CreateChatCompletion(ctx, creq)
	if err != nil {
		m.logger.Error("OpenAI API call failed", slog.String("stage", req.Stage), slog.String("error", err.Error()))
		return ChatResponse{}, fmt.Errorf("OpenAI API call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return ChatResponse{}, fmt.Errorf("OpenAI: %w", ErrNoChoices)
	}

	msg := resp.Choices[0].Message
	m.logger.Debug("OpenAI completion",
		slog.String("stage", req.Stage),
		slog.String("finish_reason", string(resp.Choices[0].FinishReason)),
		slog.Int("tool_calls", len(msg.ToolCalls)),
		slog.Int("total_tokens", resp.Usage.TotalTokens),
		slog.Duration("latency", time.Since(start)),
	)

	out := ChatResponse{Content: msg.Content}
	for _, tc := range msg.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return out, nil
}
