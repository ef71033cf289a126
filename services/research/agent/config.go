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
	"fmt"

	"github.com/go-playground/validator/v10"
)

const (
	// DefaultMaxSteps is the default global step ceiling.
	DefaultMaxSteps = 20

	// DefaultMaxStepsPerTask is the default per-task step ceiling.
	DefaultMaxStepsPerTask = 5

	// DefaultLoopWindowSize is the number of identical consecutive action
	// signatures that aborts a task.
	DefaultLoopWindowSize = 4
)

// Config holds the safety bounds of the orchestration loop.
//
// A step is one tool invocation. The global counter spans the whole run; the
// per-task counter resets whenever a new task begins.
type Config struct {
	// MaxSteps is the hard ceiling on tool invocations across all tasks.
	MaxSteps int `yaml:"max_steps" json:"max_steps" validate:"min=1"`

	// MaxStepsPerTask is the ceiling on tool invocations for a single task.
	MaxStepsPerTask int `yaml:"max_steps_per_task" json:"max_steps_per_task" validate:"min=1"`

	// LoopWindowSize is the capacity of the rolling signature window.
	LoopWindowSize int `yaml:"loop_window_size" json:"loop_window_size" validate:"min=2"`
}

// DefaultConfig returns the reference policy: 20 / 5 / 4.
func DefaultConfig() Config {
	return Config{
		MaxSteps:        DefaultMaxSteps,
		MaxStepsPerTask: DefaultMaxStepsPerTask,
		LoopWindowSize:  DefaultLoopWindowSize,
	}
}

var configValidator = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the bounds.
//
// # Outputs
//
//   - error: Wraps ErrInvalidConfig with the failing fields, or nil.
func (c Config) Validate() error {
	if err := configValidator.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// WithDefaults fills zero-valued fields from DefaultConfig.
func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	if c.MaxSteps == 0 {
		c.MaxSteps = d.MaxSteps
	}
	if c.MaxStepsPerTask == 0 {
		c.MaxStepsPerTask = d.MaxStepsPerTask
	}
	if c.LoopWindowSize == 0 {
		c.LoopWindowSize = d.LoopWindowSize
	}
	return c
}
