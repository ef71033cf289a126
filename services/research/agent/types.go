// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package agent provides the task-orchestration loop of the research agent.
//
// A query is decomposed by a Planner into an ordered task list. Each task is
// driven through Action (tool selection) and Validation (completion check)
// until it is done or a safety bound trips, and an Answer is finally
// synthesized from every tool output collected during the run. The loop is a
// finite state machine with states PLANNING, EXECUTING_TASK, VALIDATING,
// ABORT_TASK, ANSWERING, DONE, ABORTED and ERROR.
//
// Thread Safety:
//
//	An Orchestrator may be shared by concurrent callers. Every Run owns an
//	independent SessionState; within a run all work is strictly sequential.
package agent

import (
	"encoding/json"
	"time"
)

// RunState represents a state in the orchestration state machine.
type RunState string

const (
	// StatePlanning decomposes the query into a task list.
	StatePlanning RunState = "PLANNING"

	// StateExecutingTask asks the Action stage for tool invocations and runs them.
	StateExecutingTask RunState = "EXECUTING_TASK"

	// StateValidating asks the Validation stage whether the current task is done.
	StateValidating RunState = "VALIDATING"

	// StateAbortTask abandons the current task after a local safety bound tripped.
	StateAbortTask RunState = "ABORT_TASK"

	// StateAnswering synthesizes the final answer.
	StateAnswering RunState = "ANSWERING"

	// StateDone indicates the run produced an answer.
	StateDone RunState = "DONE"

	// StateAborted indicates the global step budget cut the task list short.
	// The run still proceeds to ANSWERING afterwards.
	StateAborted RunState = "ABORTED"

	// StateError indicates a fatal Planning or Answer failure.
	StateError RunState = "ERROR"
)

// String returns the state name.
func (s RunState) String() string {
	return string(s)
}

// IsTerminal returns true for DONE and ERROR.
func (s RunState) IsTerminal() bool {
	return s == StateDone || s == StateError
}

// Task is one unit of work derived from the query by Planning.
//
// A Task carries no status. The Orchestrator tracks status in SessionState.
type Task struct {
	// ID is the 1-based position of the task in the plan.
	ID int `json:"id"`

	// Description says what the task must find out.
	Description string `json:"description"`
}

// TaskStatus is the derived status of a task within one run.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskDone       TaskStatus = "done"
	TaskAborted    TaskStatus = "aborted"
)

// ToolInvocation is one tool call proposed by the Action stage.
type ToolInvocation struct {
	// ID is an identifier assigned by the reasoning capability, if any.
	ID string `json:"id,omitempty"`

	// Tool is the registered tool name.
	Tool string `json:"tool"`

	// Arguments is the JSON object passed to the tool.
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// ToolOutput is the result, or captured failure, of one tool invocation.
type ToolOutput struct {
	// Seq is the 1-based position of this output in SessionOutputs.
	// Answer citations refer to outputs by Seq.
	Seq int `json:"seq"`

	// TaskID is the task that proposed the invocation.
	TaskID int `json:"task_id"`

	// Action is the 1-based Action call within the task that proposed it.
	Action int `json:"action"`

	// Tool is the invoked tool name.
	Tool string `json:"tool"`

	// Arguments echoes the invocation arguments.
	Arguments json.RawMessage `json:"arguments,omitempty"`

	// Signature is the ActionSignature of the action this invocation belongs to.
	Signature ActionSignature `json:"signature"`

	// Result is the tool's output on success.
	Result string `json:"result,omitempty"`

	// Failed is true when the invocation returned an error or panicked.
	Failed bool `json:"failed"`

	// Error is the captured failure message.
	Error string `json:"error,omitempty"`

	// Duration is how long the invocation took.
	Duration time.Duration `json:"duration_ns"`
}

// Citation references a ToolOutput that supports the answer.
type Citation struct {
	Seq    int    `json:"seq"`
	Tool   string `json:"tool,omitempty"`
	TaskID int    `json:"task_id,omitempty"`
}

// Answer is the synthesized reply to the query.
type Answer struct {
	// Text is the answer shown to the user.
	Text string `json:"text"`

	// Citations point into SessionOutputs.
	Citations []Citation `json:"citations"`

	// Partial is true when the answer was built from incomplete data:
	// aborted tasks, failed tool outputs or an empty history.
	Partial bool `json:"partial"`
}

// TaskReport summarizes how one task was executed.
type TaskReport struct {
	Task            Task       `json:"task"`
	Status          TaskStatus `json:"status"`
	Steps           int        `json:"steps"`
	ActionCalls     int        `json:"action_calls"`
	ValidationCalls int        `json:"validation_calls"`

	// AbortReason is set when Status is TaskAborted.
	AbortReason string `json:"abort_reason,omitempty"`

	// AbortErr is the sentinel behind AbortReason, for errors.Is checks.
	AbortErr error `json:"-"`
}

// RunResult contains the outcome of one Orchestrator.Run call.
type RunResult struct {
	// RunID identifies the run in logs, traces and events.
	RunID string `json:"run_id"`

	// Query is the original request.
	Query string `json:"query"`

	// State is the terminal state (DONE on success).
	State RunState `json:"state"`

	// Tasks reports every planned task in plan order.
	Tasks []TaskReport `json:"tasks"`

	// Outputs is the complete SessionOutputs of the run.
	Outputs []ToolOutput `json:"outputs"`

	// Answer is the synthesized answer.
	Answer Answer `json:"answer"`

	// Steps is the final value of the global step counter.
	Steps int `json:"steps"`

	// BudgetExhausted is true when the global step budget cut the task list short.
	BudgetExhausted bool `json:"budget_exhausted"`

	// Duration is the wall time of the run.
	Duration time.Duration `json:"duration_ns"`
}
