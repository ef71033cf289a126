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
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/AleutianResearch/services/research/tools"
)

const tracerName = "aleutian.research.agent"

// unknownToolLabel replaces tool names that are not registered in metric labels.
const unknownToolLabel = "unknown"

// Orchestrator drives the Planning, Action, Validation and Answer stages.
//
// # Description
//
// The Orchestrator is the only component that sequences stages and the only
// writer of SessionState. Each call to Run creates a fresh SessionState and
// LoopGuard, so one Orchestrator can serve many runs. The guard is reset at
// the start of every task.
//
// # Thread Safety
//
// Safe for concurrent use provided the Reasoner and ToolExecutor are.
type Orchestrator struct {
	reasoner Reasoner
	tools    ToolExecutor
	cfg      Config
	logger   *slog.Logger
	metrics  *Metrics
	onEvent  EventHandler
	tracer   trace.Tracer
	now      func() time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithConfig sets the step budgets and loop window. Zero fields take defaults.
func WithConfig(cfg Config) Option {
	return func(o *Orchestrator) {
		o.cfg = cfg.WithDefaults()
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics sets the Prometheus collectors.
func WithMetrics(m *Metrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// WithEventHandler registers a progress callback.
func WithEventHandler(h EventHandler) Option {
	return func(o *Orchestrator) {
		o.onEvent = h
	}
}

// WithTracerProvider sets the OpenTelemetry tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *Orchestrator) {
		if tp != nil {
			o.tracer = tp.Tracer(tracerName)
		}
	}
}

// NewOrchestrator creates an Orchestrator.
//
// # Inputs
//
//   - reasoner: The four reasoning stages. Must not be nil.
//   - executor: Executes tool invocations. Must not be nil.
//   - opts: Optional configuration.
//
// # Outputs
//
//   - *Orchestrator: Ready to Run.
//   - error: ErrNilReasoner, ErrNilTools or ErrInvalidConfig.
func NewOrchestrator(reasoner Reasoner, executor ToolExecutor, opts ...Option) (*Orchestrator, error) {
	if reasoner == nil {
		return nil, ErrNilReasoner
	}
	if executor == nil {
		return nil, ErrNilTools
	}

	o := &Orchestrator{
		reasoner: reasoner,
		tools:    executor,
		cfg:      DefaultConfig(),
		logger:   slog.Default(),
		tracer:   otel.Tracer(tracerName),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	if err := o.cfg.Validate(); err != nil {
		return nil, err
	}
	return o, nil
}

// Config returns the effective configuration.
func (o *Orchestrator) Config() Config {
	return o.cfg
}

// =============================================================================
// Run
// =============================================================================

// Run answers one query.
//
// # Description
//
// Run plans the query, executes every task in plan order under the step
// budgets and loop guard, and synthesizes an answer from all collected
// outputs. Tool failures, loops and exhausted budgets never fail the run;
// they are recorded on the task reports and the answer is marked partial.
//
// # Inputs
//
//   - ctx: Cancels the run. Checked before every stage call and invocation.
//   - query: The user's request. Leading and trailing whitespace is ignored.
//
// # Outputs
//
//   - *RunResult: The run record. Non-nil whenever err is not ErrEmptyQuery,
//     so callers can inspect partial progress on failure.
//   - error: ErrEmptyQuery, *PlanningFailure, *AnswerSynthesisFailure or the
//     context error.
func (o *Orchestrator) Run(ctx context.Context, query string) (*RunResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	start := o.now()
	session := newSessionState(uuid.NewString(), query)
	session.onEvent = EventHandlerFromContext(ctx)
	logger := o.logger.With(slog.String("run_id", session.RunID()))

	ctx, span := o.tracer.Start(ctx, "agent.Run",
		trace.WithAttributes(
			attribute.String("run.id", session.RunID()),
			attribute.Int("config.max_steps", o.cfg.MaxSteps),
			attribute.Int("config.max_steps_per_task", o.cfg.MaxStepsPerTask),
			attribute.Int("config.loop_window_size", o.cfg.LoopWindowSize),
		),
	)
	defer span.End()

	logger.Info("research run started", slog.Int("query_len", len(query)))
	o.emit(session, EventRunStarted, 0, "", "")

	answer, err := o.run(ctx, session, logger)

	result := &RunResult{
		RunID:           session.RunID(),
		Query:           query,
		State:           session.State(),
		Tasks:           session.Reports(),
		Outputs:         session.Outputs(),
		Answer:          answer,
		Steps:           session.GlobalSteps(),
		BudgetExhausted: session.budgetExhausted,
		Duration:        o.now().Sub(start),
	}

	span.SetAttributes(
		attribute.String("run.state", result.State.String()),
		attribute.Int("run.steps", result.Steps),
		attribute.Int("run.tasks", len(result.Tasks)),
		attribute.Bool("run.partial", answer.Partial),
	)

	if err != nil {
		outcome := "error"
		if ctx.Err() != nil {
			outcome = "canceled"
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		o.metrics.recordRun(outcome, result.Duration, result.Steps)
		o.emit(session, EventRunFailed, 0, "", err.Error())
		logger.Error("research run failed",
			slog.String("state", result.State.String()),
			slog.Int("steps", result.Steps),
			slog.String("error", err.Error()),
		)
		return result, err
	}

	o.metrics.recordRun("done", result.Duration, result.Steps)
	logger.Info("research run complete",
		slog.Int("tasks", len(result.Tasks)),
		slog.Int("steps", result.Steps),
		slog.Int("outputs", len(result.Outputs)),
		slog.Bool("partial", answer.Partial),
		slog.Duration("duration", result.Duration),
	)
	return result, nil
}

func (o *Orchestrator) run(ctx context.Context, s *SessionState, logger *slog.Logger) (Answer, error) {
	// PLANNING
	tasks, err := o.plan(ctx, s)
	if err != nil {
		s.setState(StateError)
		return Answer{}, err
	}
	s.setTasks(tasks)
	o.emit(s, EventPlanned, 0, "", fmt.Sprintf("%d tasks", len(tasks)))
	logger.Info("plan ready", slog.Int("tasks", len(tasks)))

	// EXECUTING_TASK / VALIDATING
	guard := NewLoopGuard(o.cfg.LoopWindowSize)
	for i := range tasks {
		if err := ctx.Err(); err != nil {
			s.setState(StateError)
			return Answer{}, err
		}
		if s.globalExhausted(o.cfg.MaxSteps) {
			o.tripGlobalBudget(s, i-1, logger)
			break
		}

		exhausted, err := o.runTask(ctx, s, guard, i, logger)
		if err != nil {
			s.setState(StateError)
			return Answer{}, err
		}
		if exhausted {
			o.tripGlobalBudget(s, i, logger)
			break
		}
	}

	// ANSWERING
	if err := ctx.Err(); err != nil {
		s.setState(StateError)
		return Answer{}, err
	}
	s.setState(StateAnswering)
	answer, err := o.synthesize(ctx, s)
	if err != nil {
		s.setState(StateError)
		return Answer{}, err
	}

	s.setState(StateDone)
	o.emit(s, EventAnswered, 0, "", fmt.Sprintf("%d citations", len(answer.Citations)))
	return answer, nil
}

func (o *Orchestrator) plan(ctx context.Context, s *SessionState) ([]Task, error) {
	s.setState(StatePlanning)
	ctx, span := o.tracer.Start(ctx, "agent.Plan")
	defer span.End()

	tasks, err := o.reasoner.Plan(ctx, s.Query())
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "planning failed")
		return nil, asPlanningFailure(err)
	}

	normalized := make([]Task, 0, len(tasks))
	for i, t := range tasks {
		desc := strings.TrimSpace(t.Description)
		if desc == "" {
			pf := &PlanningFailure{Reason: fmt.Sprintf("task %d has an empty description", i+1)}
			span.RecordError(pf)
			span.SetStatus(codes.Error, "planning failed")
			return nil, pf
		}
		normalized = append(normalized, Task{ID: i + 1, Description: desc})
	}
	span.SetAttributes(attribute.Int("plan.tasks", len(normalized)))
	return normalized, nil
}

// runTask drives one task to done or aborted. exhausted reports that the
// global budget ended the task and the remaining list must be abandoned.
func (o *Orchestrator) runTask(ctx context.Context, s *SessionState, guard *LoopGuard, idx int, logger *slog.Logger) (exhausted bool, err error) {
	task := s.beginTask(idx)
	guard.Reset()
	report := s.current()

	ctx, span := o.tracer.Start(ctx, "agent.Task",
		trace.WithAttributes(attribute.Int("task.id", task.ID)),
	)
	defer span.End()

	tlog := logger.With(slog.Int("task_id", task.ID))
	tlog.Info("task started", slog.String("description", task.Description))
	o.emit(s, EventTaskStarted, task.ID, "", task.Description)

	finish := func(status TaskStatus, reason error, outcome string) {
		s.finishTask(status, reason)
		o.metrics.recordTask(outcome)
		span.SetAttributes(
			attribute.String("task.status", string(status)),
			attribute.Int("task.steps", report.Steps),
		)
		if status == TaskAborted {
			span.SetAttributes(attribute.String("task.abort_reason", reason.Error()))
			o.emit(s, EventTaskAborted, task.ID, "", reason.Error())
			tlog.Warn("task aborted",
				slog.String("reason", reason.Error()),
				slog.Int("task_steps", s.TaskSteps()),
				slog.Int("global_steps", s.GlobalSteps()),
			)
			return
		}
		o.emit(s, EventTaskCompleted, task.ID, "", "")
		tlog.Info("task done", slog.Int("task_steps", s.TaskSteps()))
	}

	for {
		if err := ctx.Err(); err != nil {
			return false, err
		}

		// Action
		s.setState(StateExecutingTask)
		report.ActionCalls++
		invocations, err := o.chooseAction(ctx, s, task)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return false, ctxErr
			}
			s.setState(StateAbortTask)
			finish(TaskAborted, fmt.Errorf("%w: action: %v", ErrStageFailure, err), "stage_failure")
			return false, nil
		}
		if len(invocations) == 0 {
			finish(TaskDone, nil, "done")
			return false, nil
		}

		sig := SignatureOf(invocations)
		for _, inv := range invocations {
			if s.globalExhausted(o.cfg.MaxSteps) || s.TaskSteps() >= o.cfg.MaxStepsPerTask {
				tlog.Debug("invocation skipped at budget", slog.String("tool", inv.Tool))
				break
			}
			if err := ctx.Err(); err != nil {
				return false, err
			}
			out, invokeErr := o.invoke(ctx, task, report.ActionCalls, sig, inv)
			out = s.appendOutput(out)
			o.metrics.recordTool(o.toolLabel(inv.Tool, invokeErr), out.Failed)
			o.emit(s, EventToolInvoked, task.ID, out.Tool, out.Error)
			tlog.Debug("tool invoked",
				slog.Int("seq", out.Seq),
				slog.String("tool", out.Tool),
				slog.Bool("failed", out.Failed),
				slog.Duration("duration", out.Duration),
			)
		}

		if guard.Observe(sig) {
			s.setState(StateAbortTask)
			tlog.Warn("loop detected", slog.String("signature", sig.Short()), slog.Int("window", guard.Size()))
			finish(TaskAborted, ErrLoopDetected, "loop_detected")
			return false, nil
		}

		// Validation
		s.setState(StateValidating)
		report.ValidationCalls++
		done, err := o.isTaskDone(ctx, s, task)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return false, ctxErr
			}
			s.setState(StateAbortTask)
			finish(TaskAborted, fmt.Errorf("%w: validation: %v", ErrStageFailure, err), "stage_failure")
			return false, nil
		}
		if done {
			finish(TaskDone, nil, "done")
			return false, nil
		}

		if s.TaskSteps() >= o.cfg.MaxStepsPerTask {
			s.setState(StateAbortTask)
			finish(TaskAborted, ErrTaskStepBudgetExceeded, "task_budget")
			return false, nil
		}
		if s.globalExhausted(o.cfg.MaxSteps) {
			s.setState(StateAborted)
			finish(TaskAborted, ErrGlobalStepBudgetExceeded, "global_budget")
			return true, nil
		}
	}
}

// tripGlobalBudget abandons every task after lastIdx.
func (o *Orchestrator) tripGlobalBudget(s *SessionState, lastIdx int, logger *slog.Logger) {
	s.setState(StateAborted)
	s.cursor = lastIdx
	remaining := 0
	for _, r := range s.reports[lastIdx+1:] {
		if r.Status == TaskPending {
			remaining++
			o.metrics.recordTask("global_budget")
		}
	}
	s.abortRemaining(ErrGlobalStepBudgetExceeded)
	o.emit(s, EventBudgetTripped, 0, "", fmt.Sprintf("%d tasks abandoned", remaining))
	logger.Warn("global step budget exhausted",
		slog.Int("steps", s.GlobalSteps()),
		slog.Int("max_steps", o.cfg.MaxSteps),
		slog.Int("abandoned_tasks", remaining),
	)
}

func (o *Orchestrator) chooseAction(ctx context.Context, s *SessionState, task Task) ([]ToolInvocation, error) {
	ctx, span := o.tracer.Start(ctx, "agent.ChooseAction",
		trace.WithAttributes(
			attribute.Int("task.id", task.ID),
			attribute.Int("history.len", s.OutputCount()),
		),
	)
	defer span.End()

	invocations, err := o.reasoner.ChooseAction(ctx, task, s.Outputs())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "action failed")
		return nil, err
	}
	span.SetAttributes(attribute.Int("action.invocations", len(invocations)))
	return invocations, nil
}

func (o *Orchestrator) isTaskDone(ctx context.Context, s *SessionState, task Task) (bool, error) {
	ctx, span := o.tracer.Start(ctx, "agent.IsTaskDone",
		trace.WithAttributes(
			attribute.Int("task.id", task.ID),
			attribute.Int("history.len", s.OutputCount()),
		),
	)
	defer span.End()

	done, err := o.reasoner.IsTaskDone(ctx, task, s.Outputs())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation failed")
		return false, err
	}
	span.SetAttributes(attribute.Bool("task.done", done))
	return done, nil
}

// invoke runs one tool call. Errors and panics are captured in the output and
// also returned so the caller can classify them.
func (o *Orchestrator) invoke(ctx context.Context, task Task, action int, sig ActionSignature, inv ToolInvocation) (out ToolOutput, invokeErr error) {
	ctx, span := o.tracer.Start(ctx, "agent.InvokeTool",
		trace.WithAttributes(
			attribute.String("tool.name", inv.Tool),
			attribute.Int("task.id", task.ID),
		),
	)
	defer span.End()

	out = ToolOutput{
		TaskID:    task.ID,
		Action:    action,
		Tool:      inv.Tool,
		Arguments: inv.Arguments,
		Signature: sig,
	}
	start := o.now()
	defer func() {
		if r := recover(); r != nil {
			out.Failed = true
			out.Result = ""
			invokeErr = fmt.Errorf("tool panicked: %v", r)
			out.Error = invokeErr.Error()
		}
		out.Duration = o.now().Sub(start)
		if out.Failed {
			span.SetStatus(codes.Error, out.Error)
		}
	}()

	result, err := o.tools.Invoke(ctx, inv.Tool, inv.Arguments)
	if err != nil {
		out.Failed = true
		out.Error = err.Error()
		return out, err
	}
	out.Result = result
	return out, nil
}

// toolLabel returns the metric label for a tool name chosen by the model.
// Names the executor does not know collapse into one label.
func (o *Orchestrator) toolLabel(name string, invokeErr error) string {
	if name == "" || !utf8.ValidString(name) || errors.Is(invokeErr, tools.ErrUnknownTool) {
		return unknownToolLabel
	}
	if c, ok := o.tools.(ToolCatalog); ok && !c.Has(name) {
		return unknownToolLabel
	}
	return name
}

func (o *Orchestrator) synthesize(ctx context.Context, s *SessionState) (Answer, error) {
	ctx, span := o.tracer.Start(ctx, "agent.Synthesize",
		trace.WithAttributes(attribute.Int("history.len", s.OutputCount())),
	)
	defer span.End()

	outputs := s.Outputs()
	answer, err := o.reasoner.Synthesize(ctx, s.Query(), outputs)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Answer{}, ctxErr
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "answer failed")
		return Answer{}, asAnswerFailure(err)
	}
	if strings.TrimSpace(answer.Text) == "" {
		af := &AnswerSynthesisFailure{Reason: "empty answer text"}
		span.RecordError(af)
		span.SetStatus(codes.Error, "answer failed")
		return Answer{}, af
	}

	answer.Citations = resolveCitations(answer.Citations, outputs)
	if s.HasAbortedTasks() {
		answer.Partial = true
	}
	span.SetAttributes(
		attribute.Int("answer.citations", len(answer.Citations)),
		attribute.Bool("answer.partial", answer.Partial),
	)
	return answer, nil
}

// resolveCitations drops citations that do not point into outputs, removes
// duplicates and fills Tool and TaskID from the cited output.
func resolveCitations(cites []Citation, outputs []ToolOutput) []Citation {
	resolved := make([]Citation, 0, len(cites))
	seen := make(map[int]bool, len(cites))
	for _, c := range cites {
		if c.Seq < 1 || c.Seq > len(outputs) || seen[c.Seq] {
			continue
		}
		seen[c.Seq] = true
		out := outputs[c.Seq-1]
		resolved = append(resolved, Citation{Seq: out.Seq, Tool: out.Tool, TaskID: out.TaskID})
	}
	return resolved
}

func (o *Orchestrator) emit(s *SessionState, typ EventType, taskID int, tool, detail string) {
	if o.onEvent == nil && s.onEvent == nil {
		return
	}
	ev := Event{
		Type:      typ,
		RunID:     s.RunID(),
		State:     s.State(),
		TaskID:    taskID,
		Step:      s.GlobalSteps(),
		Tool:      tool,
		Detail:    detail,
		Timestamp: o.now(),
	}
	if o.onEvent != nil {
		o.onEvent(ev)
	}
	if s.onEvent != nil {
		s.onEvent(ev)
	}
}

// IsLocalAbort reports whether err is one of the conditions that end a task
// without failing the run.
func IsLocalAbort(err error) bool {
	return errors.Is(err, ErrLoopDetected) ||
		errors.Is(err, ErrTaskStepBudgetExceeded) ||
		errors.Is(err, ErrGlobalStepBudgetExceeded) ||
		errors.Is(err, ErrStageFailure)
}
