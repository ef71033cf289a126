// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package reasoning

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"done":true}`, `{"done":true}`},
		{"fenced", "```json\n{\"done\":true}\n```", `{"done":true}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"prose around", `Sure! {"tasks":[]} Hope that helps.`, `{"tasks":[]}`},
		{"nested", `{"a":{"b":1}}`, `{"a":{"b":1}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := extractJSON(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := extractJSON("no json here")
	assert.ErrorIs(t, err, errNoJSON)
}

func TestStageSchemas(t *testing.T) {
	require.NotNil(t, planSchema.Definition)
	assert.Contains(t, planSchema.Definition.Properties, "tasks")
	assert.Contains(t, doneSchema.Definition.Properties, "done")
	assert.Contains(t, answerSchema.Definition.Properties, "answer")
	assert.Contains(t, answerSchema.Definition.Properties, "citations")
}

func TestDecodeStageOutput_RejectsBadCitation(t *testing.T) {
	var out answerOutput
	err := decodeStageOutput(`{"answer":"x","citations":[0]}`, &out)
	assert.Error(t, err)
}
