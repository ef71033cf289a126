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
	"errors"
	"fmt"
)

// Input and construction errors.
var (
	// ErrEmptyQuery is returned when Run receives a blank query.
	ErrEmptyQuery = errors.New("query is empty")

	// ErrNilReasoner is returned when no reasoning capability is supplied.
	ErrNilReasoner = errors.New("reasoner is nil")

	// ErrNilTools is returned when no tool capability is supplied.
	ErrNilTools = errors.New("tool executor is nil")

	// ErrInvalidConfig is returned when Config fails validation.
	ErrInvalidConfig = errors.New("invalid agent config")
)

// Locally recovered conditions. They end a task (or the task list) but never
// fail the run; they surface as TaskReport.AbortErr.
var (
	// ErrLoopDetected means the same action signature filled the whole window.
	ErrLoopDetected = errors.New("loop detected: identical action repeated")

	// ErrTaskStepBudgetExceeded means the per-task step budget was reached.
	ErrTaskStepBudgetExceeded = errors.New("per-task step budget exceeded")

	// ErrGlobalStepBudgetExceeded means the global step budget was reached.
	ErrGlobalStepBudgetExceeded = errors.New("global step budget exceeded")

	// ErrStageFailure means the Action or Validation stage returned an error.
	ErrStageFailure = errors.New("reasoning stage failed")
)

// PlanningFailure is returned when the Planning stage cannot produce a
// well-formed task list. It is fatal for the run.
type PlanningFailure struct {
	Reason string
	Err    error
}

func (e *PlanningFailure) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("planning failed: %s: %v", e.Reason, e.Err)
	}
	return "planning failed: " + e.Reason
}

func (e *PlanningFailure) Unwrap() error { return e.Err }

// AnswerSynthesisFailure is returned when the Answer stage fails. There is
// no fallback after Answer, so it is fatal for the run.
type AnswerSynthesisFailure struct {
	Reason string
	Err    error
}

func (e *AnswerSynthesisFailure) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("answer synthesis failed: %s: %v", e.Reason, e.Err)
	}
	return "answer synthesis failed: " + e.Reason
}

func (e *AnswerSynthesisFailure) Unwrap() error { return e.Err }

// asPlanningFailure wraps err unless it already is a PlanningFailure.
func asPlanningFailure(err error) error {
	var pf *PlanningFailure
	if errors.As(err, &pf) {
		return err
	}
	return &PlanningFailure{Reason: "planner returned an error", Err: err}
}

// asAnswerFailure wraps err unless it already is an AnswerSynthesisFailure.
func asAnswerFailure(err error) error {
	var af *AnswerSynthesisFailure
	if errors.As(err, &af) {
		return err
	}
	return &AnswerSynthesisFailure{Reason: "synthesizer returned an error", Err: err}
}
