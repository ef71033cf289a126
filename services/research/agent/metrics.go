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
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Metric Definitions
// =============================================================================

const (
	metricsNamespace = "research"
)

// Metrics holds the Prometheus collectors of the orchestration loop.
//
// # Fields
//
//   - RunsTotal: Runs by outcome (done, error, canceled).
//   - TasksTotal: Tasks by outcome (done, loop_detected, task_budget, global_budget, stage_failure).
//   - ToolInvocationsTotal: Invocations by tool and status (ok, failed).
//   - RunDurationSeconds: Wall time of a run.
//   - RunSteps: Final global step counter of each run.
//
// # Thread Safety
//
// All operations are thread-safe via Prometheus's internal locking. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	RunsTotal            *prometheus.CounterVec
	TasksTotal           *prometheus.CounterVec
	ToolInvocationsTotal *prometheus.CounterVec
	RunDurationSeconds   prometheus.Histogram
	RunSteps             prometheus.Histogram
}

// NewMetrics creates and registers the loop collectors on reg.
//
// # Limitations
//
//   - Panics if called twice with the same registerer (duplicate registration).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RunsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "runs_total",
				Help:      "Total research runs by outcome",
			},
			[]string{"outcome"},
		),
		TasksTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "tasks_total",
				Help:      "Total planned tasks by outcome",
			},
			[]string{"outcome"},
		),
		ToolInvocationsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "tool_invocations_total",
				Help:      "Total tool invocations by tool and status",
			},
			[]string{"tool", "status"},
		),
		RunDurationSeconds: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "run_duration_seconds",
				Help:      "Research run duration in seconds",
				Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			},
		),
		RunSteps: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "run_steps",
				Help:      "Tool invocations consumed per run",
				Buckets:   prometheus.LinearBuckets(0, 2, 11),
			},
		),
	}
}

func (m *Metrics) recordRun(outcome string, d time.Duration, steps int) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(outcome).Inc()
	m.RunDurationSeconds.Observe(d.Seconds())
	m.RunSteps.Observe(float64(steps))
}

func (m *Metrics) recordTask(outcome string) {
	if m == nil {
		return
	}
	m.TasksTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) recordTool(tool string, failed bool) {
	if m == nil {
		return
	}
	status := "ok"
	if failed {
		status = "failed"
	}
	m.ToolInvocationsTotal.WithLabelValues(tool, status).Inc()
}
