// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package policy screens research queries before they leave the process.
// Rules are compiled into the binary from query_policy.yaml.
package policy

import (
	_ "embed"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed query_policy.yaml
var embeddedRules []byte

// Public is the classification of text that matched no rule.
const Public = "public"

// ErrQueryRejected is wrapped by the error Check returns for a blocked query.
var ErrQueryRejected = errors.New("query rejected by policy")

// Violation describes why Check blocked a query. Matched text is never
// included so the violation itself is safe to log.
type Violation struct {
	Classification string
	PatternIDs     []string
}

func (v *Violation) Error() string {
	return fmt.Sprintf("%s: contains %s data (%v)", ErrQueryRejected, v.Classification, v.PatternIDs)
}

func (v *Violation) Unwrap() error { return ErrQueryRejected }

// Engine holds the compiled rules.
//
// # Thread Safety
//
// Immutable after New; safe for concurrent use.
type Engine struct {
	classifications []Classification
}

// New loads the embedded rule file.
func New() (*Engine, error) {
	return Parse(embeddedRules)
}

// Parse builds an Engine from a YAML rule file.
func Parse(data []byte) (*Engine, error) {
	var f ruleFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to unmarshal policy rules: %w", err)
	}
	if err := f.compile(); err != nil {
		return nil, fmt.Errorf("failed to compile policy rules: %w", err)
	}
	f.sortByPriority()
	return &Engine{classifications: f.Classifications}, nil
}

// Classify returns the name of the highest-priority classification with a
// matching pattern, or Public.
func (e *Engine) Classify(text string) string {
	for _, c := range e.classifications {
		for _, p := range c.Patterns {
			if p.re.MatchString(text) {
				return c.Name
			}
		}
	}
	return Public
}

// Scan returns every match of every pattern, in priority order.
func (e *Engine) Scan(text string) []Finding {
	var findings []Finding
	for _, c := range e.classifications {
		for _, p := range c.Patterns {
			for _, loc := range p.re.FindAllStringIndex(text, -1) {
				findings = append(findings, Finding{
					Classification: c.Name,
					PatternID:      p.ID,
					Description:    p.Description,
					Confidence:     p.Confidence,
					Offset:         loc[0],
				})
			}
		}
	}
	return findings
}

// Check returns a *Violation when text is not Public.
func (e *Engine) Check(text string) error {
	class := e.Classify(text)
	if class == Public {
		return nil
	}
	v := &Violation{Classification: class}
	seen := make(map[string]bool)
	for _, f := range e.Scan(text) {
		if f.Classification == class && !seen[f.PatternID] {
			seen[f.PatternID] = true
			v.PatternIDs = append(v.PatternIDs, f.PatternID)
		}
	}
	return v
}
