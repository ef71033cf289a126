// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package policy

import (
	"fmt"
	"regexp"
	"sort"

	"gopkg.in/yaml.v3"
)

// Confidence is how likely a pattern match is a true positive.
type Confidence string

const (
	Low    Confidence = "low"
	Medium Confidence = "medium"
	High   Confidence = "high"
)

// UnmarshalYAML rejects unknown confidence values.
func (c *Confidence) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	switch in := Confidence(s); in {
	case High, Medium, Low:
		*c = in
		return nil
	default:
		return fmt.Errorf("invalid value for confidence: %q", s)
	}
}

type ruleFile struct {
	Classifications []Classification `yaml:"classifications"`
}

// Classification groups patterns under one label such as "secret" or "pii".
type Classification struct {
	Name        string    `yaml:"name"`
	Description string    `yaml:"description"`
	Priority    int       `yaml:"priority"`
	Patterns    []Pattern `yaml:"patterns"`
}

// Pattern is one detection rule.
type Pattern struct {
	ID          string     `yaml:"id"`
	Description string     `yaml:"description"`
	Regex       string     `yaml:"regex"`
	Confidence  Confidence `yaml:"confidence"`

	re *regexp.Regexp
}

func (f *ruleFile) compile() error {
	for i := range f.Classifications {
		c := &f.Classifications[i]
		if c.Name == "" {
			return fmt.Errorf("classification %d has no name", i)
		}
		for j := range c.Patterns {
			p := &c.Patterns[j]
			re, err := regexp.Compile(p.Regex)
			if err != nil {
				return fmt.Errorf("pattern %s: %w", p.ID, err)
			}
			p.re = re
		}
	}
	return nil
}

func (f *ruleFile) sortByPriority() {
	sort.SliceStable(f.Classifications, func(i, j int) bool {
		return f.Classifications[i].Priority > f.Classifications[j].Priority
	})
}

// Finding is one pattern match in screened text.
type Finding struct {
	Classification string     `json:"classification"`
	PatternID      string     `json:"pattern_id"`
	Description    string     `json:"description"`
	Confidence     Confidence `json:"confidence"`
	Offset         int        `json:"offset"`
}
