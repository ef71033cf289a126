// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads the research CLI configuration.
package config

import (
	"time"

	"github.com/AleutianAI/AleutianResearch/services/research/agent"
	"github.com/AleutianAI/AleutianResearch/services/research/reasoning"
	"github.com/AleutianAI/AleutianResearch/services/research/tools/finance"
)

// CurrentConfigVersion is written into newly created config files.
const CurrentConfigVersion = "1"

// Reasoning backends.
const (
	BackendOpenAI = "openai"
	BackendOllama = "ollama"
)

// ResearchConfig is the on-disk configuration. Secrets are never read from
// or written to the file; they come from the environment.
type ResearchConfig struct {
	Meta      MetaConfig      `yaml:"meta"`
	Agent     agent.Config    `yaml:"agent"`
	Reasoning ReasoningConfig `yaml:"reasoning"`
	Finance   FinanceConfig   `yaml:"finance"`
	Prices    PricesConfig    `yaml:"prices"`
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

type MetaConfig struct {
	Version string `yaml:"version"`
}

type ReasoningConfig struct {
	// Backend is "openai" or "ollama".
	Backend     string  `yaml:"backend" validate:"oneof=openai ollama"`
	Model       string  `yaml:"model"`
	BaseURL     string  `yaml:"base_url,omitempty" validate:"omitempty,url"`
	Temperature float64 `yaml:"temperature" validate:"gte=0,lte=2"`
	MaxTokens   int     `yaml:"max_tokens" validate:"gte=0"`

	// MaxResultChars clips each tool result in prompts.
	MaxResultChars int `yaml:"max_result_chars" validate:"gte=0"`

	APIKey string `yaml:"-"`
}

type FinanceConfig struct {
	BaseURL       string        `yaml:"base_url" validate:"required,url"`
	RatePerMinute int           `yaml:"rate_per_minute" validate:"gte=0"`
	Timeout       time.Duration `yaml:"timeout" validate:"gte=0"`

	APIKey string `yaml:"-"`
}

type PricesConfig struct {
	Enabled  bool   `yaml:"enabled"`
	YahooURL string `yaml:"yahoo_url" validate:"omitempty,url"`

	// InfluxURL enables the price cache when set.
	InfluxURL    string `yaml:"influx_url,omitempty" validate:"omitempty,url"`
	InfluxOrg    string `yaml:"influx_org" validate:"required_with=InfluxURL"`
	InfluxBucket string `yaml:"influx_bucket" validate:"required_with=InfluxURL"`

	InfluxToken string `yaml:"-"`
}

type ServerConfig struct {
	Port         int           `yaml:"port" validate:"min=1,max=65535"`
	QueryTimeout time.Duration `yaml:"query_timeout" validate:"gte=0"`
}

type LoggingConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn warning error"`
	Dir   string `yaml:"dir,omitempty"`
	JSON  bool   `yaml:"json"`
}

type TelemetryConfig struct {
	OTLPEndpoint string `yaml:"otlp_endpoint,omitempty"`
	Stdout       bool   `yaml:"stdout"`
}

// DefaultConfig returns the configuration written on first run.
func DefaultConfig() ResearchConfig {
	return ResearchConfig{
		Meta:  MetaConfig{Version: CurrentConfigVersion},
		Agent: agent.DefaultConfig(),
		Reasoning: ReasoningConfig{
			Backend:        BackendOpenAI,
			Model:          reasoning.DefaultOpenAIModel,
			Temperature:    0,
			MaxResultChars: reasoning.DefaultMaxResultChars,
		},
		Finance: FinanceConfig{
			BaseURL:       finance.DefaultFinnhubURL,
			RatePerMinute: finance.DefaultRatePerMinute,
			Timeout:       30 * time.Second,
		},
		Prices: PricesConfig{
			Enabled:      true,
			YahooURL:     finance.DefaultYahooURL,
			InfluxOrg:    "aleutian",
			InfluxBucket: "financial-data",
		},
		Server: ServerConfig{
			Port:         12220,
			QueryTimeout: 5 * time.Minute,
		},
		Logging: LoggingConfig{
			Level: "info",
			Dir:   "~/.aleutian/logs",
		},
	}
}
