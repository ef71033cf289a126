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

// SessionState is the mutable record of one query's execution.
//
// # Description
//
// SessionState holds the task list, per-task reports, the append-only
// SessionOutputs, both step counters and the task cursor. All mutators are
// unexported: the Orchestrator is the only writer. Stages receive copies of
// the outputs through Outputs().
//
// # Invariants
//
//   - Outputs are only appended; Seq values are 1..n in append order.
//   - The task list is fixed by setTasks and never changes afterwards.
//   - The global step counter never decreases.
//   - The per-task step counter is reset by beginTask.
//
// # Thread Safety
//
// NOT safe for concurrent use. A SessionState belongs to exactly one run.
type SessionState struct {
	runID string
	query string
	state RunState

	tasks   []Task
	reports []TaskReport
	cursor  int

	outputs []ToolOutput

	globalSteps int
	taskSteps   int

	budgetExhausted bool

	onEvent EventHandler
}

func newSessionState(runID, query string) *SessionState {
	return &SessionState{
		runID:  runID,
		query:  query,
		state:  StatePlanning,
		cursor: -1,
	}
}

// RunID returns the run identifier.
func (s *SessionState) RunID() string { return s.runID }

// Query returns the original query.
func (s *SessionState) Query() string { return s.query }

// State returns the current state machine state.
func (s *SessionState) State() RunState { return s.state }

// GlobalSteps returns the global step counter.
func (s *SessionState) GlobalSteps() int { return s.globalSteps }

// TaskSteps returns the step counter of the current task.
func (s *SessionState) TaskSteps() int { return s.taskSteps }

// OutputCount returns len(SessionOutputs) without copying.
func (s *SessionState) OutputCount() int { return len(s.outputs) }

// Outputs returns a copy of SessionOutputs in append order.
func (s *SessionState) Outputs() []ToolOutput {
	out := make([]ToolOutput, len(s.outputs))
	copy(out, s.outputs)
	return out
}

// Reports returns a copy of the task reports in plan order.
func (s *SessionState) Reports() []TaskReport {
	out := make([]TaskReport, len(s.reports))
	copy(out, s.reports)
	return out
}

// HasAbortedTasks reports whether any task ended aborted.
func (s *SessionState) HasAbortedTasks() bool {
	for _, r := range s.reports {
		if r.Status == TaskAborted {
			return true
		}
	}
	return false
}

func (s *SessionState) setState(state RunState) {
	s.state = state
}

func (s *SessionState) setTasks(tasks []Task) {
	s.tasks = make([]Task, len(tasks))
	copy(s.tasks, tasks)
	s.reports = make([]TaskReport, len(tasks))
	for i, t := range s.tasks {
		s.reports[i] = TaskReport{Task: t, Status: TaskPending}
	}
}

// beginTask moves the cursor and resets the per-task counter.
func (s *SessionState) beginTask(idx int) Task {
	s.cursor = idx
	s.taskSteps = 0
	s.reports[idx].Status = TaskInProgress
	return s.tasks[idx]
}

func (s *SessionState) current() *TaskReport {
	return &s.reports[s.cursor]
}

// appendOutput stamps Seq and appends. Both counters advance by one.
func (s *SessionState) appendOutput(out ToolOutput) ToolOutput {
	out.Seq = len(s.outputs) + 1
	s.outputs = append(s.outputs, out)
	s.globalSteps++
	s.taskSteps++
	s.current().Steps++
	return out
}

func (s *SessionState) finishTask(status TaskStatus, reason error) {
	r := s.current()
	r.Status = status
	if reason != nil {
		r.AbortErr = reason
		r.AbortReason = reason.Error()
	}
}

// abortRemaining marks every task after the cursor as aborted.
func (s *SessionState) abortRemaining(reason error) {
	for i := s.cursor + 1; i < len(s.reports); i++ {
		if s.reports[i].Status == TaskPending {
			s.reports[i].Status = TaskAborted
			s.reports[i].AbortErr = reason
			s.reports[i].AbortReason = reason.Error()
		}
	}
	s.budgetExhausted = true
}

func (s *SessionState) globalExhausted(max int) bool {
	return s.globalSteps >= max
}
