// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package agent

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"
)

// ActionSignature is a normalized fingerprint of one proposed action.
//
// Two actions have the same signature when they call the same set of tools
// with the same arguments, regardless of invocation order, JSON key order or
// insignificant whitespace. Signatures are used only for loop detection.
type ActionSignature string

// Short returns the first 12 hex characters, for logs.
func (s ActionSignature) Short() string {
	if len(s) > 12 {
		return string(s[:12])
	}
	return string(s)
}

// SignatureOf computes the ActionSignature of a set of invocations.
//
// # Description
//
// Each invocation is rendered as "tool(canonical-args)". Arguments that parse
// as JSON are re-encoded, which sorts object keys and drops whitespace;
// arguments that do not parse are compared as trimmed raw text. The rendered
// invocations are sorted, joined and hashed with SHA-256.
//
// # Inputs
//
//   - invocations: The proposed tool calls. Invocation IDs are ignored.
//
// # Outputs
//
//   - ActionSignature: Hex digest. An empty input yields the digest of "".
func SignatureOf(invocations []ToolInvocation) ActionSignature {
	parts := make([]string, 0, len(invocations))
	for _, inv := range invocations {
		parts = append(parts, strings.TrimSpace(inv.Tool)+"("+canonicalArgs(inv.Arguments)+")")
	}
	sort.Strings(parts)

	sum := sha256.Sum256([]byte(strings.Join(parts, "\n")))
	return ActionSignature(hex.EncodeToString(sum[:]))
}

func canonicalArgs(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return "{}"
	}

	var v any
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return string(trimmed)
	}
	canonical, err := json.Marshal(v)
	if err != nil {
		return string(trimmed)
	}
	return string(canonical)
}
