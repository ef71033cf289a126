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
	"testing"
)

func TestValidateTicker(t *testing.T) {
	tests := []struct {
		name    string
		ticker  string
		wantErr bool
	}{
		{"simple", "AAPL", false},
		{"single char", "F", false},
		{"class share dot", "BRK.A", false},
		{"class share hyphen", "BF-B", false},
		{"max length", "ABCDEFGHIJ", false},

		{"empty", "", true},
		{"flux injection", `AAPL") |> drop()`, true},
		{"query injection", "AAPL&token=x", true},
		{"lowercase", "aapl", true},
		{"too long", "ABCDEFGHIJK", true},
		{"spaces", "AA PL", true},
		{"starts with dot", ".AAPL", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTicker(tt.ticker)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateTicker(%q) error = %v, wantErr %v", tt.ticker, err, tt.wantErr)
			}
		})
	}
}

func TestSanitizeTicker(t *testing.T) {
	got, err := SanitizeTicker("  msft ")
	if err != nil {
		t.Fatalf("SanitizeTicker() error = %v", err)
	}
	if got != "MSFT" {
		t.Errorf("SanitizeTicker() = %q, want MSFT", got)
	}

	if _, err := SanitizeTicker("ms ft"); err == nil {
		t.Error("SanitizeTicker() should reject embedded spaces")
	}
}
