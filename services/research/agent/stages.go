// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package agent

import (
	"context"
	"encoding/json"
)

// =============================================================================
// Reasoning Stages
// =============================================================================

// Planner decomposes a query into an ordered task list.
//
// An empty, nil-error result means the query is outside the agent's domain.
// Any returned error is fatal for the run and surfaces as *PlanningFailure.
type Planner interface {
	Plan(ctx context.Context, query string) ([]Task, error)
}

// Actor proposes the next tool invocations for a task.
//
// outputs is the complete session history, not only the current task's.
// Returning no invocations means the task cannot be advanced further.
type Actor interface {
	ChooseAction(ctx context.Context, task Task, outputs []ToolOutput) ([]ToolInvocation, error)
}

// Validator decides whether a task is complete given the session history.
type Validator interface {
	IsTaskDone(ctx context.Context, task Task, outputs []ToolOutput) (bool, error)
}

// Synthesizer builds the final answer from whatever outputs were collected.
//
// It must accept an empty history and histories containing failed outputs.
type Synthesizer interface {
	Synthesize(ctx context.Context, query string, outputs []ToolOutput) (Answer, error)
}

// Reasoner bundles the four stages. A single reasoning backend usually
// implements all of them.
type Reasoner interface {
	Planner
	Actor
	Validator
	Synthesizer
}

// ToolExecutor performs one named tool invocation.
//
// Errors returned here are captured into ToolOutput and never fail the run.
type ToolExecutor interface {
	Invoke(ctx context.Context, name string, args json.RawMessage) (string, error)
}

// ToolCatalog is implemented by executors that can report whether a tool is
// registered. The Orchestrator uses it to keep metric labels bounded.
type ToolCatalog interface {
	Has(name string) bool
}

// ToolExecutorFunc adapts a function to ToolExecutor.
type ToolExecutorFunc func(ctx context.Context, name string, args json.RawMessage) (string, error)

// Invoke calls f.
func (f ToolExecutorFunc) Invoke(ctx context.Context, name string, args json.RawMessage) (string, error) {
	return f(ctx, name, args)
}

// StageSet composes a Reasoner from independent stage implementations.
type StageSet struct {
	Planner     Planner
	Actor       Actor
	Validator   Validator
	Synthesizer Synthesizer
}

func (s StageSet) Plan(ctx context.Context, query string) ([]Task, error) {
	return s.Planner.Plan(ctx, query)
}

func (s StageSet) ChooseAction(ctx context.Context, task Task, outputs []ToolOutput) ([]ToolInvocation, error) {
	return s.Actor.ChooseAction(ctx, task, outputs)
}

func (s StageSet) IsTaskDone(ctx context.Context, task Task, outputs []ToolOutput) (bool, error) {
	return s.Validator.IsTaskDone(ctx, task, outputs)
}

func (s StageSet) Synthesize(ctx context.Context, query string, outputs []ToolOutput) (Answer, error) {
	return s.Synthesizer.Synthesize(ctx, query, outputs)
}
