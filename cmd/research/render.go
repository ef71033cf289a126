// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/AleutianAI/AleutianResearch/pkg/ux"
	"github.com/AleutianAI/AleutianResearch/services/research/agent"
)

// renderResult prints the answer, its citations and a task summary.
func renderResult(p *ux.Printer, res *agent.RunResult, maxSteps int) {
	p.Println("")
	p.Box("Answer", res.Answer.Text)

	if res.Answer.Partial {
		p.Warning("Partial answer: some data could not be collected.")
	}

	if len(res.Answer.Citations) > 0 {
		p.Println("")
		p.Title("Sources")
		for _, c := range res.Answer.Citations {
			line := fmt.Sprintf("[%d] %s", c.Seq, c.Tool)
			if out, ok := outputBySeq(res.Outputs, c.Seq); ok {
				line += " " + compactArgs(out.Arguments)
			}
			p.Info(line)
		}
	}

	if len(res.Tasks) > 0 {
		p.Println("")
		p.Title("Tasks")
		for _, t := range res.Tasks {
			icon, detail := taskIcon(t)
			p.Status(icon, fmt.Sprintf("%d. %s", t.Task.ID, t.Task.Description), detail)
		}
	}

	p.Println("")
	p.Muted(fmt.Sprintf("%d/%d steps · %s · run %s",
		res.Steps, maxSteps, res.Duration.Round(100*time.Millisecond), res.RunID))
}

func taskIcon(t agent.TaskReport) (ux.Icon, string) {
	switch t.Status {
	case agent.TaskDone:
		return ux.IconSuccess, fmt.Sprintf("%d steps", t.Steps)
	case agent.TaskAborted:
		return ux.IconError, t.AbortReason
	default:
		return ux.IconPending, string(t.Status)
	}
}

func outputBySeq(outputs []agent.ToolOutput, seq int) (agent.ToolOutput, bool) {
	if seq < 1 || seq > len(outputs) {
		return agent.ToolOutput{}, false
	}
	return outputs[seq-1], true
}

func compactArgs(raw []byte) string {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "{}" || s == "null" {
		return ""
	}
	return s
}

// progressPrinter shows loop events as they happen.
func progressPrinter(p *ux.Printer) agent.EventHandler {
	return func(e agent.Event) {
		switch e.Type {
		case agent.EventPlanned:
			p.Muted("Planned " + e.Detail)
		case agent.EventTaskStarted:
			p.Info(fmt.Sprintf("Task %d: %s", e.TaskID, e.Detail))
		case agent.EventToolInvoked:
			if e.Detail != "" {
				p.Status(ux.IconWarning, e.Tool, e.Detail)
			} else {
				p.Status(ux.IconArrow, e.Tool, "")
			}
		case agent.EventTaskAborted:
			p.Status(ux.IconError, fmt.Sprintf("Task %d aborted", e.TaskID), e.Detail)
		case agent.EventBudgetTripped:
			p.Warning("Step budget exhausted: " + e.Detail)
		}
	}
}
