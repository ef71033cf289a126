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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 20, cfg.MaxSteps)
	assert.Equal(t, 5, cfg.MaxStepsPerTask)
	assert.Equal(t, 4, cfg.LoopWindowSize)
	require.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"defaults", DefaultConfig(), false},
		{"zero max steps", Config{MaxSteps: 0, MaxStepsPerTask: 5, LoopWindowSize: 4}, true},
		{"negative per task", Config{MaxSteps: 20, MaxStepsPerTask: -1, LoopWindowSize: 4}, true},
		{"window of one", Config{MaxSteps: 20, MaxStepsPerTask: 5, LoopWindowSize: 1}, true},
		{"tight but valid", Config{MaxSteps: 1, MaxStepsPerTask: 1, LoopWindowSize: 2}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidConfig))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestConfig_WithDefaults(t *testing.T) {
	cfg := Config{MaxSteps: 3}.WithDefaults()
	assert.Equal(t, 3, cfg.MaxSteps)
	assert.Equal(t, DefaultMaxStepsPerTask, cfg.MaxStepsPerTask)
	assert.Equal(t, DefaultLoopWindowSize, cfg.LoopWindowSize)
}
