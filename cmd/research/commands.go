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
	"github.com/spf13/cobra"
)

// cliOptions holds the persistent flags.
type cliOptions struct {
	configPath      string
	logLevel        string
	maxSteps        int
	maxStepsPerTask int
}

func newRootCmd() *cobra.Command {
	opts := &cliOptions{}

	rootCmd := &cobra.Command{
		Use:   "research",
		Short: "A financial research agent",
		Long: `research answers questions about public companies. It breaks a
question into research tasks, pulls financial statements and prices for
each task and writes an answer that cites the data it used.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "config file (default ~/.aleutian/research.yaml)")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.IntVar(&opts.maxSteps, "max-steps", 0, "global tool invocation budget per query")
	flags.IntVar(&opts.maxStepsPerTask, "max-steps-per-task", 0, "tool invocation budget per task")

	rootCmd.AddCommand(
		newChatCmd(opts),
		newAskCmd(opts),
		newServeCmd(opts),
		newToolsCmd(opts),
	)
	return rootCmd
}
