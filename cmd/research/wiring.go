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
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/AleutianAI/AleutianResearch/cmd/research/config"
	"github.com/AleutianAI/AleutianResearch/pkg/logging"
	"github.com/AleutianAI/AleutianResearch/services/research/agent"
	"github.com/AleutianAI/AleutianResearch/services/research/policy"
	"github.com/AleutianAI/AleutianResearch/services/research/reasoning"
	"github.com/AleutianAI/AleutianResearch/services/research/tools"
	"github.com/AleutianAI/AleutianResearch/services/research/tools/finance"
)

// app holds everything a command needs. Close releases it.
type app struct {
	cfg          *config.ResearchConfig
	logger       *logging.Logger
	policy       *policy.Engine
	registry     *tools.Registry
	orchestrator *agent.Orchestrator
	metrics      *prometheus.Registry

	closers []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// loadConfig reads the config file and applies flag overrides.
func loadConfig(opts *cliOptions) (*config.ResearchConfig, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}
	if opts.maxSteps > 0 {
		cfg.Agent.MaxSteps = opts.maxSteps
	}
	if opts.maxStepsPerTask > 0 {
		cfg.Agent.MaxStepsPerTask = opts.maxStepsPerTask
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger builds the process logger. Interactive commands keep the console
// clean and log to file only, unless debugging.
func newLogger(cfg config.LoggingConfig, interactive bool) (*logging.Logger, error) {
	level, err := logging.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	return logging.New(logging.Config{
		Level:   level,
		LogDir:  cfg.Dir,
		Service: "research",
		JSON:    cfg.JSON,
		Quiet:   interactive && level != logging.LevelDebug,
	}), nil
}

// buildRegistry registers the finance tools.
func buildRegistry(cfg *config.ResearchConfig, logger *slog.Logger) (*tools.Registry, func(), error) {
	if cfg.Finance.APIKey == "" {
		logger.Warn("FINNHUB_API_KEY is not set, statement tools will fail")
	}
	httpClient := &http.Client{Timeout: cfg.Finance.Timeout}

	deps := finance.Deps{
		Financials: finance.NewFinnhubClient(cfg.Finance.APIKey,
			finance.WithBaseURL(cfg.Finance.BaseURL),
			finance.WithHTTPClient(httpClient),
			finance.WithRatePerMinute(cfg.Finance.RatePerMinute),
			finance.WithClientLogger(logger),
		),
		Logger: logger,
	}

	closer := func() {}
	if cfg.Prices.Enabled {
		deps.Yahoo = finance.NewYahooClient(cfg.Prices.YahooURL, httpClient)
		if cfg.Prices.InfluxURL != "" {
			store, err := finance.NewInfluxPriceStore(finance.InfluxConfig{
				URL:    cfg.Prices.InfluxURL,
				Token:  cfg.Prices.InfluxToken,
				Org:    cfg.Prices.InfluxOrg,
				Bucket: cfg.Prices.InfluxBucket,
			})
			if err != nil {
				logger.Warn("price cache disabled", slog.String("error", err.Error()))
			} else {
				deps.Store = store
				closer = store.Close
			}
		}
	}

	reg := tools.NewRegistry(tools.WithTimeout(cfg.Finance.Timeout))
	if err := finance.Register(reg, deps); err != nil {
		closer()
		return nil, nil, fmt.Errorf("register finance tools: %w", err)
	}
	return reg, closer, nil
}

// newChatModel selects the reasoning backend.
func newChatModel(cfg config.ReasoningConfig, logger *slog.Logger) (reasoning.ChatModel, error) {
	switch strings.ToLower(cfg.Backend) {
	case config.BackendOllama:
		return reasoning.NewLocalModel(reasoning.LangChainConfig{
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
		}, logger)
	case config.BackendOpenAI:
		return reasoning.NewOpenAIModel(reasoning.OpenAIConfig{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			Temperature: float32(cfg.Temperature),
			MaxTokens:   cfg.MaxTokens,
		}, logger)
	default:
		return nil, fmt.Errorf("unknown reasoning backend %q", cfg.Backend)
	}
}

// buildApp wires config, logging, tools, reasoning and the orchestrator.
func buildApp(opts *cliOptions, interactive bool, onEvent agent.EventHandler) (*app, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg.Logging, interactive)
	if err != nil {
		return nil, err
	}
	logger.InstallDefault()
	a := &app{cfg: cfg, logger: logger}
	a.closers = append(a.closers, func() { _ = logger.Close() })

	a.policy, err = policy.New()
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("could not initialize the policy engine: %w", err)
	}

	reg, closeTools, err := buildRegistry(cfg, logger.Slog())
	if err != nil {
		a.Close()
		return nil, err
	}
	a.registry = reg
	a.closers = append(a.closers, closeTools)

	model, err := newChatModel(cfg.Reasoning, logger.Slog())
	if err != nil {
		a.Close()
		return nil, err
	}
	reasoner := reasoning.NewReasoner(model, reg.Descriptors(),
		reasoning.WithMaxResultChars(cfg.Reasoning.MaxResultChars),
		reasoning.WithLogger(logger.Slog()),
	)

	a.metrics = prometheus.NewRegistry()
	orchOpts := []agent.Option{
		agent.WithConfig(cfg.Agent),
		agent.WithLogger(logger.Slog()),
		agent.WithMetrics(agent.NewMetrics(a.metrics)),
	}
	if onEvent != nil {
		orchOpts = append(orchOpts, agent.WithEventHandler(onEvent))
	}
	a.orchestrator, err = agent.NewOrchestrator(reasoner, reg, orchOpts...)
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}
