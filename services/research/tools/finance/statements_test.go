// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package finance

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianResearch/services/research/tools"
)

type mockFinancials struct {
	FinancialsReportedFunc func(ctx context.Context, q FinancialsReportedQuery) (*FinancialsReported, error)
	queries                []FinancialsReportedQuery
}

func (m *mockFinancials) FinancialsReported(ctx context.Context, q FinancialsReportedQuery) (*FinancialsReported, error) {
	m.queries = append(m.queries, q)
	if m.FinancialsReportedFunc != nil {
		return m.FinancialsReportedFunc(ctx, q)
	}
	var out FinancialsReported
	if err := json.Unmarshal([]byte(filingsBody), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func TestExtractStatements_SkipsEmptySections(t *testing.T) {
	var resp FinancialsReported
	require.NoError(t, json.Unmarshal([]byte(filingsBody), &resp))

	assert.Len(t, ExtractStatements(resp.Data, IncomeStatement), 3)

	bs := ExtractStatements(resp.Data, BalanceSheet)
	require.Len(t, bs, 1)
	assert.Equal(t, 2023, bs[0].Year)
	assert.Equal(t, "2022-09-25", bs[0].StartDate)

	cf := ExtractStatements(resp.Data, CashFlow)
	require.Len(t, cf, 1)
	assert.Equal(t, 2022, cf[0].Year)
	assert.Contains(t, string(cf[0].Data), "Operating cash")
}

func TestFetchStatements_LimitAppliedBeforeExtraction(t *testing.T) {
	src := &mockFinancials{}
	got, err := FetchStatements(context.Background(), src, CashFlow, StatementArgs{Ticker: "aapl", Period: "annual", Limit: 1})
	require.NoError(t, err)
	assert.Empty(t, got, "the only filing kept has an empty cash flow section")

	require.Len(t, src.queries, 1)
	assert.Equal(t, "AAPL", src.queries[0].Symbol)
	assert.Equal(t, "annual", src.queries[0].Freq)
}

func TestFetchStatements_ValidatesArgs(t *testing.T) {
	tests := []struct {
		name string
		args StatementArgs
	}{
		{"bad ticker", StatementArgs{Ticker: "AAPL&x=1", Period: "annual"}},
		{"bad period", StatementArgs{Ticker: "AAPL", Period: "monthly"}},
		{"bad limit", StatementArgs{Ticker: "AAPL", Period: "annual", Limit: 500}},
		{"bad date", StatementArgs{Ticker: "AAPL", Period: "annual", FromDate: "2023/01/01"}},
		{"inverted range", StatementArgs{Ticker: "AAPL", Period: "annual", FromDate: "2024-01-01", ToDate: "2023-01-01"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &mockFinancials{}
			_, err := FetchStatements(context.Background(), src, IncomeStatement, tt.args)
			assert.Error(t, err)
			assert.Empty(t, src.queries, "upstream must not be called")
		})
	}
}

func TestStatementTool_ThroughRegistry(t *testing.T) {
	reg := tools.NewRegistry()
	require.NoError(t, Register(reg, Deps{Financials: &mockFinancials{}}))

	names := []string{}
	for _, d := range reg.Descriptors() {
		names = append(names, d.Name)
		assert.NotEmpty(t, d.Description)
		assert.Contains(t, d.Parameters.Required, "ticker")
	}
	assert.Equal(t, []string{ToolBalanceSheets, ToolCashFlowStatements, ToolIncomeStatements}, names)

	out, err := reg.Invoke(context.Background(), ToolIncomeStatements, json.RawMessage(`{"ticker":"AAPL","period":"annual","limit":2}`))
	require.NoError(t, err)

	var statements []Statement
	require.NoError(t, json.Unmarshal([]byte(out), &statements))
	require.Len(t, statements, 2)
	assert.Equal(t, "AAPL", statements[0].Symbol)
	assert.Equal(t, 2022, statements[1].Year)
}

func TestStatementTool_UnknownArgumentRejected(t *testing.T) {
	d := NewStatementTool(&mockFinancials{}, IncomeStatement)
	_, err := d.Invoke(context.Background(), json.RawMessage(`{"symbol":"AAPL","period":"annual"}`))
	assert.ErrorIs(t, err, tools.ErrInvalidArguments)
}

func TestStatementTool_UpstreamErrorPropagates(t *testing.T) {
	src := &mockFinancials{FinancialsReportedFunc: func(context.Context, FinancialsReportedQuery) (*FinancialsReported, error) {
		return nil, errors.New("connection refused")
	}}
	d := NewStatementTool(src, BalanceSheet)
	_, err := d.Invoke(context.Background(), json.RawMessage(`{"ticker":"AAPL","period":"quarterly"}`))
	assert.ErrorContains(t, err, "connection refused")
}
