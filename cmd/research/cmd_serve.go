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
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianResearch/services/research/api"
)

func newServeCmd(opts *cliOptions) *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the research API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := buildApp(opts, false, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			shutdown, err := api.InitTracing(ctx, api.TracingConfig{
				OTLPEndpoint: a.cfg.Telemetry.OTLPEndpoint,
				Stdout:       a.cfg.Telemetry.Stdout,
			}, a.logger.Slog())
			if err != nil {
				return fmt.Errorf("failed to set up tracing: %w", err)
			}
			defer shutdown(context.Background())

			if port == 0 {
				port = a.cfg.Server.Port
			}
			srv := api.NewServer(a.orchestrator, a.policy,
				api.WithLogger(a.logger.Slog()),
				api.WithGatherer(a.metrics),
				api.WithVersion(version),
				api.WithQueryTimeout(a.cfg.Server.QueryTimeout),
			)
			return srv.ListenAndServe(ctx, fmt.Sprintf(":%d", port))
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "listen port (default from config)")
	return cmd
}
