// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ux renders terminal output for the research CLI.
package ux

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// Aleutian color palette - deep ocean teals and arctic waters
var (
	ColorTealBright  = lipgloss.Color("#2CD7C7") // highlights, success
	ColorTealPrimary = lipgloss.Color("#20B9B4") // main brand color
	ColorTealDeep    = lipgloss.Color("#16858E") // borders, accents
	ColorSlate       = lipgloss.Color("#2C4A54") // muted text

	ColorWarning = lipgloss.Color("#F4D03F")
	ColorError   = lipgloss.Color("#E74C3C")
)

// Styles provides pre-configured lipgloss styles
var Styles = struct {
	Title     lipgloss.Style
	Subtitle  lipgloss.Style
	Bold      lipgloss.Style
	Muted     lipgloss.Style
	Success   lipgloss.Style
	Warning   lipgloss.Style
	Error     lipgloss.Style
	Highlight lipgloss.Style

	Box        lipgloss.Style
	Banner     lipgloss.Style
	WarningBox lipgloss.Style
}{
	Title:     lipgloss.NewStyle().Bold(true).Foreground(ColorTealBright),
	Subtitle:  lipgloss.NewStyle().Foreground(ColorTealPrimary),
	Bold:      lipgloss.NewStyle().Bold(true),
	Muted:     lipgloss.NewStyle().Foreground(ColorSlate),
	Success:   lipgloss.NewStyle().Foreground(ColorTealBright),
	Warning:   lipgloss.NewStyle().Foreground(ColorWarning),
	Error:     lipgloss.NewStyle().Foreground(ColorError),
	Highlight: lipgloss.NewStyle().Foreground(ColorTealBright).Bold(true),

	Box: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorTealDeep).
		Padding(0, 1),
	Banner: lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder(), true, false).
		BorderForeground(ColorTealPrimary).
		Bold(true).
		Align(lipgloss.Center),
	WarningBox: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorWarning).
		Padding(0, 1),
}

// Icon provides themed status icons
type Icon string

const (
	IconSuccess Icon = "✓"
	IconWarning Icon = "⚠"
	IconError   Icon = "✗"
	IconPending Icon = "○"
	IconArrow   Icon = "→"
	IconBullet  Icon = "•"
)

// Printer writes styled text. When the destination is not a terminal, or
// NO_COLOR is set, it writes plain text with no escape codes.
type Printer struct {
	w     io.Writer
	color bool
}

// NewPrinter detects whether w is a color-capable terminal.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w, color: IsTerminal(w) && os.Getenv("NO_COLOR") == ""}
}

// NewPlainPrinter never emits escape codes.
func NewPlainPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w any) bool {
	f, ok := w.(interface{ Fd() uintptr })
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Color reports whether the printer styles its output.
func (p *Printer) Color() bool { return p.color }

// Writer returns the destination.
func (p *Printer) Writer() io.Writer { return p.w }

// Render applies s only in color mode.
func (p *Printer) Render(s lipgloss.Style, text string) string {
	if !p.color {
		return text
	}
	return s.Render(text)
}

func (p *Printer) icon(i Icon) string {
	switch i {
	case IconSuccess:
		return p.Render(Styles.Success, string(i))
	case IconWarning:
		return p.Render(Styles.Warning, string(i))
	case IconError:
		return p.Render(Styles.Error, string(i))
	case IconPending:
		return p.Render(Styles.Muted, string(i))
	default:
		return string(i)
	}
}

// Println writes text and a newline.
func (p *Printer) Println(text string) {
	fmt.Fprintln(p.w, text)
}

// Title prints a styled title
func (p *Printer) Title(text string) {
	p.Println(p.Render(Styles.Title, text))
}

// Success prints a message with a checkmark
func (p *Printer) Success(text string) {
	p.Println(p.icon(IconSuccess) + " " + p.Render(Styles.Success, text))
}

// Warning prints a warning message
func (p *Printer) Warning(text string) {
	p.Println(p.icon(IconWarning) + " " + p.Render(Styles.Warning, text))
}

// Error prints an error message
func (p *Printer) Error(text string) {
	p.Println(p.icon(IconError) + " " + p.Render(Styles.Error, text))
}

// Info prints an informational line
func (p *Printer) Info(text string) {
	p.Println(p.Render(Styles.Muted, "│") + " " + text)
}

// Muted prints secondary text
func (p *Printer) Muted(text string) {
	p.Println(p.Render(Styles.Muted, text))
}

// Status prints one line prefixed by a status icon.
func (p *Printer) Status(i Icon, text, detail string) {
	line := p.icon(i) + " " + text
	if detail != "" {
		line += " " + p.Render(Styles.Muted, "("+detail+")")
	}
	p.Println(line)
}

// Box prints text in a rounded box. Plain mode prints "title:" and the
// content indented.
func (p *Printer) Box(title, content string) {
	if !p.color {
		p.Println(title + ":")
		for _, line := range strings.Split(content, "\n") {
			p.Println("  " + line)
		}
		return
	}
	p.Println(Styles.Box.Width(72).Render(Styles.Title.Render(title) + "\n" + content))
}

// WarningBox prints text in a warning-styled box
func (p *Printer) WarningBox(title, content string) {
	if !p.color {
		p.Println("WARN " + title + ": " + content)
		return
	}
	p.Println(Styles.WarningBox.Width(72).Render(Styles.Warning.Bold(true).Render(title) + "\n" + content))
}

// Banner prints text centered between double rules of the given width.
func (p *Printer) Banner(text string, width int) {
	if !p.color {
		rule := strings.Repeat("=", width)
		pad := (width - len(text)) / 2
		if pad < 0 {
			pad = 0
		}
		p.Println(rule)
		p.Println(strings.Repeat(" ", pad) + text)
		p.Println(rule)
		return
	}
	p.Println(Styles.Banner.Width(width).Render(text))
}
