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
	"time"
)

// EventType identifies a step of the orchestration loop.
type EventType string

const (
	EventRunStarted    EventType = "run_started"
	EventPlanned       EventType = "planned"
	EventTaskStarted   EventType = "task_started"
	EventToolInvoked   EventType = "tool_invoked"
	EventTaskCompleted EventType = "task_completed"
	EventTaskAborted   EventType = "task_aborted"
	EventBudgetTripped EventType = "budget_exhausted"
	EventAnswered      EventType = "answered"
	EventRunFailed     EventType = "run_failed"
)

// Event is emitted synchronously as the loop progresses. The CLI uses it to
// print progress; tests use it to assert ordering.
type Event struct {
	Type      EventType `json:"type"`
	RunID     string    `json:"run_id"`
	State     RunState  `json:"state"`
	TaskID    int       `json:"task_id,omitempty"`
	Step      int       `json:"step"`
	Tool      string    `json:"tool,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// EventHandler receives loop events. It is called on the run's goroutine
// and must not block.
type EventHandler func(Event)

type eventHandlerKey struct{}

// ContextWithEventHandler returns a context that carries h. A run started
// with that context delivers its events to h in addition to the handler set
// with WithEventHandler, so one Orchestrator can stream each run to a
// different consumer.
func ContextWithEventHandler(ctx context.Context, h EventHandler) context.Context {
	return context.WithValue(ctx, eventHandlerKey{}, h)
}

// EventHandlerFromContext returns the handler attached by
// ContextWithEventHandler, or nil.
func EventHandlerFromContext(ctx context.Context) EventHandler {
	h, _ := ctx.Value(eventHandlerKey{}).(EventHandler)
	return h
}
