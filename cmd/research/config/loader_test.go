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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func envOf(m map[string]string) LookupEnv {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

// TestLoad_CreatesDefault verifies first-run creation.
func TestLoad_CreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deep", ".aleutian", "research.yaml")

	cfg, err := load(path, envOf(nil))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), *cfg)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var onDisk ResearchConfig
	require.NoError(t, yaml.Unmarshal(data, &onDisk))
	assert.Equal(t, CurrentConfigVersion, onDisk.Meta.Version)
	assert.Equal(t, 20, onDisk.Agent.MaxSteps)
	assert.Equal(t, 5, onDisk.Agent.MaxStepsPerTask)
	assert.Equal(t, 4, onDisk.Agent.LoopWindowSize)
	assert.Equal(t, 30*time.Second, onDisk.Finance.Timeout)
}

func TestCreateDefault_NoSecretsOnDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "research.yaml")
	_, err := load(path, envOf(map[string]string{
		"OPENAI_API_KEY":  "sk-test",
		"FINNHUB_API_KEY": "fh-test",
		"INFLUXDB_TOKEN":  "influx-test",
	}))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	for _, secret := range []string{"sk-test", "fh-test", "influx-test"} {
		assert.NotContains(t, string(data), secret)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "research.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
agent:
  max_steps: 8
  max_steps_per_task: 3
  loop_window_size: 4
reasoning:
  backend: ollama
  model: llama3.1
  base_url: http://localhost:11434/v1
server:
  port: 9000
  query_timeout: 90s
`), 0644))

	cfg, err := load(path, envOf(nil))
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Agent.MaxSteps)
	assert.Equal(t, 3, cfg.Agent.MaxStepsPerTask)
	assert.Equal(t, BackendOllama, cfg.Reasoning.Backend)
	assert.Equal(t, "llama3.1", cfg.Reasoning.Model)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 90*time.Second, cfg.Server.QueryTimeout)
	// Untouched sections keep their defaults.
	assert.Equal(t, DefaultConfig().Finance, cfg.Finance)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "research.yaml")
	cfg, err := load(path, envOf(map[string]string{
		"OPENAI_API_KEY":         "sk-test",
		"OPENAI_MODEL":           "gpt-4o",
		"FINNHUB_API_KEY":        "fh-test",
		"INFLUXDB_URL":           "http://localhost:8086",
		"INFLUXDB_TOKEN":         "tok",
		"RESEARCH_PORT":          "8080",
		"RESEARCH_QUERY_TIMEOUT": "2m",
	}))
	require.NoError(t, err)
	assert.Equal(t, "sk-test", cfg.Reasoning.APIKey)
	assert.Equal(t, "gpt-4o", cfg.Reasoning.Model)
	assert.Equal(t, "fh-test", cfg.Finance.APIKey)
	assert.Equal(t, "http://localhost:8086", cfg.Prices.InfluxURL)
	assert.Equal(t, "tok", cfg.Prices.InfluxToken)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 2*time.Minute, cfg.Server.QueryTimeout)

	cfg, err = load(path, envOf(map[string]string{"OLLAMA_URL": "http://gpu-box:11434/v1"}))
	require.NoError(t, err)
	assert.Equal(t, BackendOllama, cfg.Reasoning.Backend)
	assert.Equal(t, "http://gpu-box:11434/v1", cfg.Reasoning.BaseURL)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		file string
		env  map[string]string
	}{
		{"malformed yaml", "agent: [", nil},
		{"zero budget", "agent:\n  max_steps: 0\n", nil},
		{"window too small", "agent:\n  loop_window_size: 1\n", nil},
		{"unknown backend", "reasoning:\n  backend: gemini\n", nil},
		{"bad port", "server:\n  port: 70000\n", nil},
		{"bad log level", "logging:\n  level: loud\n", nil},
		{"influx without bucket", "prices:\n  influx_url: http://localhost:8086\n  influx_bucket: \"\"\n", nil},
		{"port env not a number", "", map[string]string{"RESEARCH_PORT": "eighty"}},
		{"timeout env not a duration", "", map[string]string{"RESEARCH_QUERY_TIMEOUT": "soon"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "research.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.file), 0644))
			_, err := load(path, envOf(tt.env))
			assert.Error(t, err)
		})
	}
}
