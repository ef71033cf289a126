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
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianResearch/pkg/ux"
	"github.com/AleutianAI/AleutianResearch/services/research/agent"
)

const replPrompt = ">> "

func newChatCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive research session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p := ux.NewPrinter(cmd.OutOrStdout())
			a, err := buildApp(opts, true, progressPrinter(p))
			if err != nil {
				return err
			}
			defer a.Close()

			printIntro(p)
			s := &replSession{
				in:       cmd.InOrStdin(),
				p:        p,
				runner:   a.orchestrator,
				screen:   a.policy.Check,
				maxSteps: a.cfg.Agent.MaxSteps,
			}
			return s.run(cmd.Context())
		},
	}
}

// queryRunner is the part of *agent.Orchestrator the CLI uses.
type queryRunner interface {
	Run(ctx context.Context, query string) (*agent.RunResult, error)
}

// replSession reads one query per line until exit, quit or EOF.
type replSession struct {
	in       io.Reader
	p        *ux.Printer
	runner   queryRunner
	screen   func(string) error
	maxSteps int
}

func (s *replSession) run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	scanner := bufio.NewScanner(s.in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Fprint(s.p.Writer(), replPrompt)
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return err
			}
			s.p.Println("\nGoodbye!")
			return nil
		}

		query := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(query) {
		case "":
			continue
		case "exit", "quit":
			s.p.Println("Goodbye!")
			return nil
		}

		s.ask(ctx, query)
	}
}

// ask runs one query. A Ctrl-C cancels the query but not the session.
func (s *replSession) ask(ctx context.Context, query string) {
	if s.screen != nil {
		if err := s.screen(query); err != nil {
			s.p.Error(err.Error())
			return
		}
	}

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	res, err := s.runner.Run(runCtx, query)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			s.p.Warning("Canceled.")
			return
		}
		s.p.Error(err.Error())
		return
	}
	renderResult(s.p, res, s.maxSteps)
}
