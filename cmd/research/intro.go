// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"github.com/AleutianAI/AleutianResearch/pkg/ux"
)

const bannerWidth = 50

// printIntro shows the chat welcome screen.
func printIntro(p *ux.Printer) {
	p.Println("")
	p.Banner("Welcome to Dexter", bannerWidth)
	p.Println("")
	p.Println(p.Render(ux.Styles.Subtitle, "Aleutian Research: your AI assistant for financial analysis."))
	p.Println("Ask me any questions. Type 'exit' or 'quit' to end.")
	p.Println("")
}
