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
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func inv(tool, args string) ToolInvocation {
	return ToolInvocation{Tool: tool, Arguments: json.RawMessage(args)}
}

func TestSignatureOf_KeyOrderAndWhitespace(t *testing.T) {
	a := SignatureOf([]ToolInvocation{inv("get_income_statements", `{"ticker":"AAPL","period":"annual"}`)})
	b := SignatureOf([]ToolInvocation{inv("get_income_statements", `{ "period": "annual",  "ticker": "AAPL" }`)})
	assert.Equal(t, a, b)
}

func TestSignatureOf_InvocationOrderIgnored(t *testing.T) {
	x := inv("get_balance_sheets", `{"ticker":"MSFT"}`)
	y := inv("get_cash_flow_statements", `{"ticker":"MSFT"}`)
	assert.Equal(t, SignatureOf([]ToolInvocation{x, y}), SignatureOf([]ToolInvocation{y, x}))
}

func TestSignatureOf_IDIgnored(t *testing.T) {
	a := inv("t", `{"a":1}`)
	b := a
	a.ID = "call_1"
	b.ID = "call_2"
	assert.Equal(t, SignatureOf([]ToolInvocation{a}), SignatureOf([]ToolInvocation{b}))
}

func TestSignatureOf_Distinguishes(t *testing.T) {
	base := SignatureOf([]ToolInvocation{inv("t", `{"ticker":"AAPL"}`)})
	assert.NotEqual(t, base, SignatureOf([]ToolInvocation{inv("t", `{"ticker":"MSFT"}`)}))
	assert.NotEqual(t, base, SignatureOf([]ToolInvocation{inv("u", `{"ticker":"AAPL"}`)}))
	assert.NotEqual(t, base, SignatureOf([]ToolInvocation{inv("t", `{"ticker":"AAPL"}`), inv("t", `{"ticker":"AAPL"}`)}))
}

func TestSignatureOf_EmptyAndNullArgs(t *testing.T) {
	assert.Equal(t,
		SignatureOf([]ToolInvocation{inv("t", "")}),
		SignatureOf([]ToolInvocation{inv("t", "null")}),
	)
	assert.Equal(t,
		SignatureOf([]ToolInvocation{inv("t", "")}),
		SignatureOf([]ToolInvocation{inv("t", "{}")}),
	)
}

func TestSignatureOf_InvalidJSONComparedRaw(t *testing.T) {
	a := SignatureOf([]ToolInvocation{inv("t", " not json ")})
	b := SignatureOf([]ToolInvocation{inv("t", "not json")})
	assert.Equal(t, a, b)
	assert.Len(t, string(a), 64)
	assert.Len(t, a.Short(), 12)
}
