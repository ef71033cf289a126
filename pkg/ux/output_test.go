// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ux

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

// =============================================================================
// Plain mode
// =============================================================================

func TestPrinter_PlainHasNoEscapes(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)
	if p.Color() {
		t.Fatal("a bytes.Buffer is not a terminal")
	}

	p.Title("Research")
	p.Success("done")
	p.Warning("partial")
	p.Error("failed")
	p.Info("info")
	p.Muted("muted")
	p.Status(IconPending, "task 2", "aborted")
	p.Box("Answer", "line one\nline two")
	p.WarningBox("Partial", "some tasks aborted")
	p.Banner("Welcome", 20)

	out := buf.String()
	if strings.Contains(out, "\x1b[") {
		t.Errorf("plain output contains escape codes: %q", out)
	}
	for _, want := range []string{
		"Research\n",
		"✓ done\n",
		"⚠ partial\n",
		"✗ failed\n",
		"│ info\n",
		"○ task 2 (aborted)\n",
		"Answer:\n  line one\n  line two\n",
		"WARN Partial: some tasks aborted\n",
		strings.Repeat("=", 20) + "\n",
		"      Welcome\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\ngot:\n%s", want, out)
		}
	}
}

func TestPrinter_RenderPlain(t *testing.T) {
	p := NewPlainPrinter(&bytes.Buffer{})
	if got := p.Render(Styles.Bold, "x"); got != "x" {
		t.Errorf("Render() = %q, want %q", got, "x")
	}
}

func TestIsTerminal(t *testing.T) {
	if IsTerminal(&bytes.Buffer{}) {
		t.Error("bytes.Buffer reported as terminal")
	}
	f, err := os.CreateTemp(t.TempDir(), "out")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if IsTerminal(f) {
		t.Error("regular file reported as terminal")
	}
}

func TestPrinter_ColorBox(t *testing.T) {
	var buf bytes.Buffer
	p := &Printer{w: &buf, color: true}
	p.Box("Answer", "body")
	if !strings.Contains(buf.String(), "body") {
		t.Errorf("box lost its content: %q", buf.String())
	}
}
