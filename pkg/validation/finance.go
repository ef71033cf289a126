// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package validation

import (
	"fmt"
	"strings"
	"time"
)

// Reporting periods accepted by the statement tools.
const (
	PeriodAnnual    = "annual"
	PeriodQuarterly = "quarterly"
)

// Limits on how many statements one call may return.
const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// DateLayout is the only date format tools accept.
const DateLayout = "2006-01-02"

// NormalizePeriod lower-cases a reporting period and checks it is annual or
// quarterly. An empty period defaults to annual.
func NormalizePeriod(period string) (string, error) {
	p := strings.ToLower(strings.TrimSpace(period))
	switch p {
	case "":
		return PeriodAnnual, nil
	case PeriodAnnual, PeriodQuarterly:
		return p, nil
	default:
		return "", fmt.Errorf("invalid period %q (must be %q or %q)", period, PeriodAnnual, PeriodQuarterly)
	}
}

// NormalizeLimit applies DefaultLimit to zero and rejects values outside
// 1..MaxLimit.
func NormalizeLimit(limit int) (int, error) {
	if limit == 0 {
		return DefaultLimit, nil
	}
	if limit < 1 || limit > MaxLimit {
		return 0, fmt.Errorf("invalid limit %d (must be 1-%d)", limit, MaxLimit)
	}
	return limit, nil
}

// ParseDate parses an optional YYYY-MM-DD date. Empty input returns the zero
// time and no error.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (format: YYYY-MM-DD)", s)
	}
	return t, nil
}

// ValidateDateRange parses both bounds and checks from is not after to.
// Either bound may be empty.
func ValidateDateRange(from, to string) (time.Time, time.Time, error) {
	f, err := ParseDate(from)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("from_date: %w", err)
	}
	t, err := ParseDate(to)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("to_date: %w", err)
	}
	if !f.IsZero() && !t.IsZero() && f.After(t) {
		return time.Time{}, time.Time{}, fmt.Errorf("from_date %s is after to_date %s", from, to)
	}
	return f, t, nil
}

// ValidateRange checks that n lies within [min, max]. name labels the error.
func ValidateRange(name string, n, min, max int) error {
	if n < min || n > max {
		return fmt.Errorf("invalid %s %d (must be %d-%d)", name, n, min, max)
	}
	return nil
}
