// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package tools holds the tool registry the research agent acts through.
//
// A tool is described by a Descriptor: its name, a description and a JSON
// schema for its arguments, which is all the reasoning backend ever sees, plus
// an Invoke function that the registry calls on the agent's behalf.
package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sashabaranov/go-openai/jsonschema"
)

var (
	// ErrUnknownTool is returned by Invoke for a name that is not registered.
	ErrUnknownTool = errors.New("unknown tool")

	// ErrInvalidArguments is returned by Invoke when arguments are not a JSON object.
	ErrInvalidArguments = errors.New("invalid tool arguments")
)

// InvokeFunc executes a tool. args is always a JSON object.
type InvokeFunc func(ctx context.Context, args json.RawMessage) (string, error)

// Descriptor describes one callable tool.
type Descriptor struct {
	// Name is the identifier the reasoning backend uses to call the tool.
	Name string `json:"name"`

	// Description tells the backend when the tool is useful.
	Description string `json:"description"`

	// Parameters is the JSON schema of the argument object.
	Parameters jsonschema.Definition `json:"parameters"`

	// Invoke runs the tool. Never serialized.
	Invoke InvokeFunc `json:"-"`
}

// Registry maps tool names to descriptors.
//
// Description:
//
//	Registry is the tool capability of the agent. It validates that arguments
//	are a JSON object before dispatching and applies an optional per-call
//	timeout.
//
// Thread Safety: Registry is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	tools   map[string]Descriptor
	timeout time.Duration
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithTimeout bounds every invocation. Zero disables the bound.
func WithTimeout(d time.Duration) RegistryOption {
	return func(r *Registry) {
		r.timeout = d
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{tools: make(map[string]Descriptor)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a tool.
//
// Outputs:
//
//	error - Non-nil if the name is empty, already taken or Invoke is nil.
//
// Thread Safety: This method is safe for concurrent use.
func (r *Registry) Register(d Descriptor) error {
	d.Name = strings.TrimSpace(d.Name)
	if d.Name == "" {
		return fmt.Errorf("register tool: empty name")
	}
	if d.Invoke == nil {
		return fmt.Errorf("register tool %s: nil invoke func", d.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[d.Name]; exists {
		return fmt.Errorf("register tool %s: already registered", d.Name)
	}
	r.tools[d.Name] = d
	return nil
}

// MustRegister is Register for static wiring; it panics on error.
func (r *Registry) MustRegister(ds ...Descriptor) {
	for _, d := range ds {
		if err := r.Register(d); err != nil {
			panic(err)
		}
	}
}

// Get returns the descriptor registered under name.
func (r *Registry) Get(name string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.tools[name]
	return d, ok
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// Descriptors returns all descriptors sorted by name.
func (r *Registry) Descriptors() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Descriptor, 0, len(r.tools))
	for _, d := range r.tools {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})
	return out
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Invoke dispatches one call.
//
// Description:
//
//	Empty or null arguments become "{}". Arguments that are not a JSON object
//	fail with ErrInvalidArguments without calling the tool.
//
// Inputs:
//
//	ctx - Cancels the call.
//	name - Registered tool name.
//	args - JSON object of arguments.
//
// Outputs:
//
//	string - The tool's result.
//	error - ErrUnknownTool, ErrInvalidArguments or the tool's own error.
//
// Thread Safety: This method is safe for concurrent use.
func (r *Registry) Invoke(ctx context.Context, name string, args json.RawMessage) (string, error) {
	d, ok := r.Get(name)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownTool, name)
	}

	normalized, err := normalizeArgs(args)
	if err != nil {
		return "", fmt.Errorf("%s: %w", name, err)
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	result, err := d.Invoke(ctx, normalized)
	if err != nil {
		return "", fmt.Errorf("%s: %w", name, err)
	}
	return result, nil
}

func normalizeArgs(args json.RawMessage) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(args)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return json.RawMessage("{}"), nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArguments, err)
	}
	return json.RawMessage(trimmed), nil
}

// DecodeArgs unmarshals a tool's argument object into v, rejecting unknown
// fields so that misspelled arguments surface as errors the model can see.
func DecodeArgs(args json.RawMessage, v any) error {
	dec := json.NewDecoder(bytes.NewReader(args))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArguments, err)
	}
	return nil
}
