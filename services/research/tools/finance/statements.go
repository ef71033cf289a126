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
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/AleutianAI/AleutianResearch/pkg/validation"
	"github.com/AleutianAI/AleutianResearch/services/research/tools"
)

// StatementKind selects a section of a reported filing.
type StatementKind string

const (
	IncomeStatement StatementKind = "ic"
	BalanceSheet    StatementKind = "bs"
	CashFlow        StatementKind = "cf"
)

// Tool names.
const (
	ToolIncomeStatements   = "get_income_statements"
	ToolBalanceSheets      = "get_balance_sheets"
	ToolCashFlowStatements = "get_cash_flow_statements"
)

// StatementArgs are the arguments shared by the three statement tools.
type StatementArgs struct {
	Ticker   string `json:"ticker"`
	Period   string `json:"period"`
	Limit    int    `json:"limit,omitempty"`
	FromDate string `json:"from_date,omitempty"`
	ToDate   string `json:"to_date,omitempty"`
}

// Statement is one extracted statement as returned to the agent.
type Statement struct {
	Symbol    string          `json:"symbol"`
	Year      int             `json:"year"`
	Quarter   int             `json:"quarter"`
	StartDate string          `json:"start_date"`
	EndDate   string          `json:"end_date"`
	Form      string          `json:"form"`
	Data      json.RawMessage `json:"data"`
}

// FinancialsSource is the subset of FinnhubClient the tools need.
type FinancialsSource interface {
	FinancialsReported(ctx context.Context, q FinancialsReportedQuery) (*FinancialsReported, error)
}

var statementDescriptions = map[StatementKind]string{
	IncomeStatement: "Fetches a company's income statement, detailing its revenues, expenses, and net income over a reporting period. Useful for evaluating a company's profitability and operational efficiency.",
	BalanceSheet:    "Retrieves a company's balance sheet, which provides a snapshot of its assets, liabilities, and shareholders' equity at a specific point in time. Essential for assessing a company's financial position.",
	CashFlow:        "Provides a company's cash flow statement, showing how cash is generated and used across operating, investing, and financing activities. Key for understanding a company's liquidity and solvency.",
}

var statementToolNames = map[StatementKind]string{
	IncomeStatement: ToolIncomeStatements,
	BalanceSheet:    ToolBalanceSheets,
	CashFlow:        ToolCashFlowStatements,
}

// statementParameters is the argument schema shown to the model.
func statementParameters() jsonschema.Definition {
	return jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"ticker": {
				Type:        jsonschema.String,
				Description: "The stock ticker symbol to fetch financial statements for. For example, 'AAPL' for Apple.",
			},
			"period": {
				Type:        jsonschema.String,
				Enum:        []string{validation.PeriodAnnual, validation.PeriodQuarterly},
				Description: "The reporting period for the financial statements. 'annual' for yearly, 'quarterly' for quarterly.",
			},
			"limit": {
				Type:        jsonschema.Integer,
				Description: fmt.Sprintf("The number of past financial statements to retrieve (default %d, max %d).", validation.DefaultLimit, validation.MaxLimit),
			},
			"from_date": {
				Type:        jsonschema.String,
				Description: "Optional filter to retrieve financial statements from this date onwards (format: YYYY-MM-DD).",
			},
			"to_date": {
				Type:        jsonschema.String,
				Description: "Optional filter to retrieve financial statements up to this date (format: YYYY-MM-DD).",
			},
		},
		Required: []string{"ticker", "period"},
	}
}

// NewStatementTool builds the descriptor of one statement tool.
func NewStatementTool(src FinancialsSource, kind StatementKind) tools.Descriptor {
	return tools.Descriptor{
		Name:        statementToolNames[kind],
		Description: statementDescriptions[kind],
		Parameters:  statementParameters(),
		Invoke: func(ctx context.Context, raw json.RawMessage) (string, error) {
			var args StatementArgs
			if err := tools.DecodeArgs(raw, &args); err != nil {
				return "", err
			}
			statements, err := FetchStatements(ctx, src, kind, args)
			if err != nil {
				return "", err
			}
			out, err := json.Marshal(statements)
			if err != nil {
				return "", fmt.Errorf("encode statements: %w", err)
			}
			return string(out), nil
		},
	}
}

// StatementTools returns the income, balance sheet and cash flow tools.
func StatementTools(src FinancialsSource) []tools.Descriptor {
	return []tools.Descriptor{
		NewStatementTool(src, IncomeStatement),
		NewStatementTool(src, BalanceSheet),
		NewStatementTool(src, CashFlow),
	}
}

// FetchStatements validates args, queries src and extracts one section.
//
// # Description
//
// Finnhub has no limit parameter, so the first Limit filings are kept
// client-side before extraction. Filings whose requested section is empty
// are skipped, so the result may be shorter than Limit.
func FetchStatements(ctx context.Context, src FinancialsSource, kind StatementKind, args StatementArgs) ([]Statement, error) {
	symbol, err := validation.SanitizeTicker(args.Ticker)
	if err != nil {
		return nil, err
	}
	period, err := validation.NormalizePeriod(args.Period)
	if err != nil {
		return nil, err
	}
	limit, err := validation.NormalizeLimit(args.Limit)
	if err != nil {
		return nil, err
	}
	if _, _, err := validation.ValidateDateRange(args.FromDate, args.ToDate); err != nil {
		return nil, err
	}

	resp, err := src.FinancialsReported(ctx, FinancialsReportedQuery{
		Symbol: symbol,
		Freq:   period,
		From:   args.FromDate,
		To:     args.ToDate,
	})
	if err != nil {
		return nil, err
	}

	filings := resp.Data
	if len(filings) > limit {
		filings = filings[:limit]
	}
	return ExtractStatements(filings, kind), nil
}

// ExtractStatements picks one section out of each filing.
func ExtractStatements(filings []ReportedFiling, kind StatementKind) []Statement {
	out := make([]Statement, 0, len(filings))
	for _, f := range filings {
		section := f.Report.section(kind)
		if isEmptySection(section) {
			continue
		}
		out = append(out, Statement{
			Symbol:    f.Symbol,
			Year:      f.Year,
			Quarter:   f.Quarter,
			StartDate: f.StartDate,
			EndDate:   f.EndDate,
			Form:      f.Form,
			Data:      section,
		})
	}
	return out
}

func (r ReportSections) section(kind StatementKind) json.RawMessage {
	switch kind {
	case IncomeStatement:
		return r.Income
	case BalanceSheet:
		return r.BalanceSheet
	case CashFlow:
		return r.CashFlow
	default:
		return nil
	}
}

func isEmptySection(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	switch string(trimmed) {
	case "", "null", "[]", "{}":
		return true
	}
	return false
}
