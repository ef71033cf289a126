// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package finance

import (
	"log/slog"

	"github.com/AleutianAI/AleutianResearch/services/research/tools"
)

// Deps are the collaborators of the finance tools.
type Deps struct {
	// Financials backs the statement tools. Required.
	Financials FinancialsSource

	// Yahoo backs the price tool. When nil the price tool is not registered.
	Yahoo *YahooClient

	// Store receives fetched price bars. Optional.
	Store PriceStore

	Logger *slog.Logger
}

// Register adds every finance tool to reg.
func Register(reg *tools.Registry, deps Deps) error {
	for _, d := range StatementTools(deps.Financials) {
		if err := reg.Register(d); err != nil {
			return err
		}
	}
	if deps.Yahoo != nil {
		if err := reg.Register(NewPriceHistoryTool(deps.Yahoo, deps.Store, deps.Logger)); err != nil {
			return err
		}
	}
	return nil
}
