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
	"encoding/json"
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianResearch/pkg/ux"
)

func newAskCmd(opts *cliOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Research a single question and print the answer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.TrimSpace(strings.Join(args, " "))
			if query == "" {
				return errors.New("question is empty")
			}

			p := ux.NewPrinter(cmd.OutOrStdout())
			var progress = progressPrinter(ux.NewPrinter(cmd.ErrOrStderr()))
			if asJSON {
				progress = nil
			}
			a, err := buildApp(opts, true, progress)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.policy.Check(query); err != nil {
				return err
			}

			res, err := a.orchestrator.Run(cmd.Context(), query)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			renderResult(p, res, a.cfg.Agent.MaxSteps)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full run result as JSON")
	return cmd
}
