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
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sashabaranov/go-openai/jsonschema"
)

// ===== Stage output types =====

type planOutput struct {
	Tasks []plannedTask `json:"tasks" validate:"dive"`
}

type plannedTask struct {
	Description string `json:"description" validate:"required"`
}

type doneOutput struct {
	Done *bool `json:"done" validate:"required"`
}

// doneShape is the schema of doneOutput. The pointer in doneOutput only
// exists to tell a missing field from false.
type doneShape struct {
	Done bool `json:"done"`
}

type answerOutput struct {
	Answer    string `json:"answer" validate:"required"`
	Citations []int  `json:"citations" validate:"dive,min=1"`
}

var (
	planSchema   = mustSchema("task_list", planOutput{})
	doneSchema   = mustSchema("task_done", doneShape{})
	answerSchema = mustSchema("answer", answerOutput{})
)

func mustSchema(name string, v any) *ResponseSchema {
	def, err := jsonschema.GenerateSchemaForType(v)
	if err != nil {
		panic(fmt.Sprintf("schema %s: %v", name, err))
	}
	return &ResponseSchema{Name: name, Definition: def}
}

var outputValidator = validator.New(validator.WithRequiredStructEnabled())

// errNoJSON is returned when a reply contains no JSON object.
var errNoJSON = errors.New("no JSON object in model reply")

// decodeStageOutput extracts the JSON object from a reply, decodes it into v
// and validates it.
func decodeStageOutput(content string, v any) error {
	raw, err := extractJSON(content)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("decode model reply: %w", err)
	}
	if err := outputValidator.Struct(v); err != nil {
		return fmt.Errorf("validate model reply: %w", err)
	}
	return nil
}

// extractJSON returns the outermost JSON object in s. Models sometimes wrap
// JSON in markdown fences or add a sentence around it.
func extractJSON(s string) (string, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
		s = strings.TrimSpace(s)
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return "", errNoJSON
	}
	return s[start : end+1], nil
}
