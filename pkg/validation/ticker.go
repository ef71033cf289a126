// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package validation checks and normalizes the arguments that tools pass to
// external market-data services.
//
// Every value that ends up in an upstream URL or a Flux query must go
// through this package first.
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// tickerPattern allows uppercase letters, digits, dots (BRK.A) and hyphens
// (BF-B), 1 to 10 characters, starting with a letter or digit.
var tickerPattern = regexp.MustCompile(`^[A-Z0-9][A-Z0-9.\-]{0,9}$`)

// ValidateTicker checks an already-normalized ticker symbol.
func ValidateTicker(ticker string) error {
	if ticker == "" {
		return fmt.Errorf("ticker cannot be empty")
	}
	if !tickerPattern.MatchString(ticker) {
		return fmt.Errorf("invalid ticker format: %q (must be 1-10 uppercase alphanumeric chars, dots, or hyphens)", ticker)
	}
	return nil
}

// SanitizeTicker trims and upper-cases a ticker, then validates it.
//
//	symbol, err := validation.SanitizeTicker(args.Ticker)
//	if err != nil {
//	    return "", err
//	}
func SanitizeTicker(ticker string) (string, error) {
	normalized := strings.ToUpper(strings.TrimSpace(ticker))
	if err := ValidateTicker(normalized); err != nil {
		return "", err
	}
	return normalized, nil
}
