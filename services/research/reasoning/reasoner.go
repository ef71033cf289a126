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
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/tmc/langchaingo/textsplitter"

	"github.com/AleutianAI/AleutianResearch/services/research/agent"
	"github.com/AleutianAI/AleutianResearch/services/research/tools"
)

// DefaultMaxResultChars bounds how much of each tool result is shown to the
// model when rendering the session history.
const DefaultMaxResultChars = 4000

// Reasoner implements agent.Reasoner over a ChatModel.
//
// # Description
//
// Each stage is one blocking completion. Planning, Validation and Answer ask
// for schema-shaped JSON and validate it before returning; Action binds the
// tool descriptors and maps the model's function calls to invocations.
//
// # Thread Safety
//
// Safe for concurrent use if the ChatModel is.
type Reasoner struct {
	model          ChatModel
	tools          []tools.Descriptor
	maxResultChars int
	splitter       textsplitter.TextSplitter
	logger         *slog.Logger
}

var _ agent.Reasoner = (*Reasoner)(nil)

// Option configures a Reasoner.
type Option func(*Reasoner)

// WithMaxResultChars sets the per-result truncation length.
func WithMaxResultChars(n int) Option {
	return func(r *Reasoner) {
		if n > 0 {
			r.maxResultChars = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Reasoner) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewReasoner creates a Reasoner that offers descriptors to the Action stage.
func NewReasoner(model ChatModel, descriptors []tools.Descriptor, opts ...Option) *Reasoner {
	r := &Reasoner{
		model:          model,
		tools:          descriptors,
		maxResultChars: DefaultMaxResultChars,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.splitter = textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(r.maxResultChars),
		textsplitter.WithChunkOverlap(0),
		textsplitter.WithSeparators([]string{"},{", "\n", ",", " ", ""}),
	)
	return r
}

// Plan implements agent.Planner.
func (r *Reasoner) Plan(ctx context.Context, query string) ([]agent.Task, error) {
	resp, err := r.model.Complete(ctx, ChatRequest{
		Stage:  "plan",
		System: planningSystemPrompt,
		User:   "Query: " + query,
		Schema: planSchema,
	})
	if err != nil {
		return nil, &agent.PlanningFailure{Reason: "model call failed", Err: err}
	}

	var out planOutput
	if err := decodeStageOutput(resp.Content, &out); err != nil {
		return nil, &agent.PlanningFailure{Reason: "malformed task list", Err: err}
	}

	tasks := make([]agent.Task, 0, len(out.Tasks))
	for i, t := range out.Tasks {
		tasks = append(tasks, agent.Task{ID: i + 1, Description: strings.TrimSpace(t.Description)})
	}
	r.logger.Debug("plan decoded", slog.Int("tasks", len(tasks)))
	return tasks, nil
}

// ChooseAction implements agent.Actor.
func (r *Reasoner) ChooseAction(ctx context.Context, task agent.Task, outputs []agent.ToolOutput) ([]agent.ToolInvocation, error) {
	resp, err := r.model.Complete(ctx, ChatRequest{
		Stage:  "action",
		System: actionSystemPrompt,
		User:   r.taskPrompt(task, outputs),
		Tools:  r.tools,
	})
	if err != nil {
		return nil, fmt.Errorf("action model call: %w", err)
	}

	invocations := make([]agent.ToolInvocation, 0, len(resp.ToolCalls))
	for _, tc := range resp.ToolCalls {
		if strings.TrimSpace(tc.Name) == "" {
			return nil, fmt.Errorf("model returned a tool call without a name")
		}
		id := tc.ID
		if id == "" {
			id = "call_" + uuid.NewString()
		}
		args := strings.TrimSpace(tc.Arguments)
		if args == "" {
			args = "{}"
		}
		invocations = append(invocations, agent.ToolInvocation{
			ID:        id,
			Tool:      tc.Name,
			Arguments: json.RawMessage(args),
		})
	}
	if len(invocations) == 0 && resp.Content != "" {
		r.logger.Debug("action proposed no tools", slog.Int("task_id", task.ID), slog.String("reply", truncate(resp.Content, 200)))
	}
	return invocations, nil
}

// IsTaskDone implements agent.Validator.
func (r *Reasoner) IsTaskDone(ctx context.Context, task agent.Task, outputs []agent.ToolOutput) (bool, error) {
	resp, err := r.model.Complete(ctx, ChatRequest{
		Stage:  "validate",
		System: validationSystemPrompt,
		User:   r.taskPrompt(task, outputs),
		Schema: doneSchema,
	})
	if err != nil {
		return false, fmt.Errorf("validation model call: %w", err)
	}

	var out doneOutput
	if err := decodeStageOutput(resp.Content, &out); err != nil {
		return false, err
	}
	return *out.Done, nil
}

// Synthesize implements agent.Synthesizer.
func (r *Reasoner) Synthesize(ctx context.Context, query string, outputs []agent.ToolOutput) (agent.Answer, error) {
	var b strings.Builder
	b.WriteString("Query: ")
	b.WriteString(query)
	b.WriteString("\n\n")
	b.WriteString(r.renderHistory(outputs))

	resp, err := r.model.Complete(ctx, ChatRequest{
		Stage:  "answer",
		System: answerSystemPrompt,
		User:   b.String(),
		Schema: answerSchema,
	})
	if err != nil {
		return agent.Answer{}, &agent.AnswerSynthesisFailure{Reason: "model call failed", Err: err}
	}

	var out answerOutput
	if err := decodeStageOutput(resp.Content, &out); err != nil {
		return agent.Answer{}, &agent.AnswerSynthesisFailure{Reason: "malformed answer", Err: err}
	}

	known := make(map[int]bool, len(outputs))
	partial := len(outputs) == 0
	for _, o := range outputs {
		known[o.Seq] = true
		if o.Failed {
			partial = true
		}
	}
	citations := make([]agent.Citation, 0, len(out.Citations))
	for _, seq := range out.Citations {
		if known[seq] {
			citations = append(citations, agent.Citation{Seq: seq})
		}
	}

	return agent.Answer{
		Text:      strings.TrimSpace(out.Answer),
		Citations: citations,
		Partial:   partial,
	}, nil
}

// ===== Prompt rendering =====

func (r *Reasoner) taskPrompt(task agent.Task, outputs []agent.ToolOutput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Current task (%d): %s\n\n", task.ID, task.Description)
	b.WriteString(r.renderHistory(outputs))
	return b.String()
}

func (r *Reasoner) renderHistory(outputs []agent.ToolOutput) string {
	if len(outputs) == 0 {
		return "Tool results so far: none."
	}
	var b strings.Builder
	b.WriteString("Tool results so far:\n")
	for _, o := range outputs {
		fmt.Fprintf(&b, "\n[%d] task %d: %s(%s)\n", o.Seq, o.TaskID, o.Tool, compactArgs(o.Arguments))
		if o.Failed {
			fmt.Fprintf(&b, "ERROR: %s\n", o.Error)
			continue
		}
		b.WriteString(r.clip(o.Result))
		b.WriteString("\n")
	}
	return b.String()
}

// clip keeps the first chunk of a long result, split at a record or line
// boundary where possible.
func (r *Reasoner) clip(s string) string {
	if len(s) <= r.maxResultChars {
		return s
	}
	chunks, err := r.splitter.SplitText(s)
	if err != nil || len(chunks) == 0 {
		return truncate(s, r.maxResultChars)
	}
	return truncate(chunks[0], r.maxResultChars) + fmt.Sprintf(" ... [truncated, %d chars total]", len(s))
}

func compactArgs(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "{}"
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	out, err := json.Marshal(v)
	if err != nil {
		return string(raw)
	}
	return string(out)
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
