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
	"github.com/AleutianAI/AleutianResearch/services/research/history"
)

// LoopGuard detects an action repeated identically.
//
// # Description
//
// The guard keeps the most recent action signatures in a fixed-size rolling
// window. It trips when the window is full and every signature in it is
// identical. Alternating actions (A, B, A, B, ...) never fill the window with
// one value and are therefore not detected; the step budgets bound them.
//
// # Thread Safety
//
// NOT safe for concurrent use. Each run owns its own guard.
type LoopGuard struct {
	window *history.RingBuffer[ActionSignature]
}

// NewLoopGuard creates a guard whose window holds size signatures.
func NewLoopGuard(size int) *LoopGuard {
	return &LoopGuard{window: history.NewRingBuffer[ActionSignature](size)}
}

// Observe records a signature and reports whether a loop is detected.
//
// # Outputs
//
//   - bool: True when the last Size() signatures, including sig, are identical.
func (g *LoopGuard) Observe(sig ActionSignature) bool {
	g.window.Push(sig)
	if !g.window.IsFull() {
		return false
	}
	for _, s := range g.window.Items() {
		if s != sig {
			return false
		}
	}
	return true
}

// Reset empties the window. Called when a new task begins.
func (g *LoopGuard) Reset() {
	g.window.Clear()
}

// Size returns the window capacity.
func (g *LoopGuard) Size() int {
	return g.window.Cap()
}
