// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// LookupEnv reads one environment variable. os.LookupEnv in production.
type LookupEnv func(key string) (string, bool)

var configValidator = validator.New(validator.WithRequiredStructEnabled())

// DefaultPath returns ~/.aleutian/research.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not find the user's home directory: %w", err)
	}
	return filepath.Join(home, ".aleutian", "research.yaml"), nil
}

// Load reads the config at path, creating it with defaults when missing.
// An empty path means DefaultPath. Environment overrides are applied after
// the file and the result is validated.
func Load(path string) (*ResearchConfig, error) {
	return load(path, os.LookupEnv)
}

func load(path string, env LookupEnv) (*ResearchConfig, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, " First run detected, creating the config at %s\n", path)
		if err := createDefault(path); err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read the config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse the config file %s: %w", path, err)
	}
	if err := applyEnv(&cfg, env); err != nil {
		return nil, err
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func createDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create the config directory: %w", err)
	}
	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks every section.
func Validate(cfg *ResearchConfig) error {
	if err := configValidator.Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// applyEnv overlays environment variables. Secrets only ever come from here.
func applyEnv(cfg *ResearchConfig, env LookupEnv) error {
	str := func(key string, dst *string) {
		if v, ok := env(key); ok && v != "" {
			*dst = v
		}
	}

	str("OPENAI_API_KEY", &cfg.Reasoning.APIKey)
	str("OPENAI_MODEL", &cfg.Reasoning.Model)
	str("FINNHUB_API_KEY", &cfg.Finance.APIKey)
	str("INFLUXDB_URL", &cfg.Prices.InfluxURL)
	str("INFLUXDB_TOKEN", &cfg.Prices.InfluxToken)
	str("INFLUXDB_ORG", &cfg.Prices.InfluxOrg)
	str("INFLUXDB_BUCKET", &cfg.Prices.InfluxBucket)
	str("OTEL_EXPORTER_OTLP_ENDPOINT", &cfg.Telemetry.OTLPEndpoint)

	if v, ok := env("OLLAMA_URL"); ok && v != "" {
		cfg.Reasoning.Backend = BackendOllama
		cfg.Reasoning.BaseURL = v
	}
	if v, ok := env("RESEARCH_PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("RESEARCH_PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if v, ok := env("RESEARCH_QUERY_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("RESEARCH_QUERY_TIMEOUT: %w", err)
		}
		cfg.Server.QueryTimeout = d
	}
	return nil
}
