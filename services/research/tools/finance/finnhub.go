// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package finance provides the market-data tools of the research agent:
// reported financial statements from Finnhub and daily price history from
// Yahoo Finance, optionally persisted to InfluxDB.
package finance

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

const (
	// DefaultFinnhubURL is the Finnhub REST base URL.
	DefaultFinnhubURL = "https://finnhub.io/api/v1"

	// DefaultRatePerMinute matches the Finnhub free tier.
	DefaultRatePerMinute = 60

	maxErrorBody = 512
)

// HTTPClient allows injecting mock HTTP clients for testing.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// =============================================================================
// Finnhub response types
// =============================================================================

// FinancialsReported is the body of /stock/financials-reported.
type FinancialsReported struct {
	Symbol string           `json:"symbol"`
	CIK    string           `json:"cik"`
	Data   []ReportedFiling `json:"data"`
}

// ReportedFiling is one SEC filing with its statements.
type ReportedFiling struct {
	AccessNumber string         `json:"accessNumber"`
	Symbol       string         `json:"symbol"`
	CIK          string         `json:"cik"`
	Year         int            `json:"year"`
	Quarter      int            `json:"quarter"`
	Form         string         `json:"form"`
	StartDate    string         `json:"startDate"`
	EndDate      string         `json:"endDate"`
	FiledDate    string         `json:"filedDate"`
	Report       ReportSections `json:"report"`
}

// ReportSections holds the raw statement line items. Finnhub returns each
// section as a list of {concept, unit, label, value}; the items are passed
// through untouched.
type ReportSections struct {
	BalanceSheet json.RawMessage `json:"bs"`
	CashFlow     json.RawMessage `json:"cf"`
	Income       json.RawMessage `json:"ic"`
}

// =============================================================================
// Client
// =============================================================================

// FinnhubClient calls the Finnhub REST API.
//
// # Description
//
// Requests are rate limited client-side and identical in-flight requests are
// coalesced, since the three statement tools share one endpoint and a single
// action often asks for several statements of the same company.
//
// # Thread Safety
//
// Safe for concurrent use.
type FinnhubClient struct {
	baseURL string
	token   string
	http    HTTPClient
	limiter *rate.Limiter
	group   singleflight.Group
	logger  *slog.Logger
}

// FinnhubOption configures a FinnhubClient.
type FinnhubOption func(*FinnhubClient)

// WithBaseURL overrides the API base URL.
func WithBaseURL(u string) FinnhubOption {
	return func(c *FinnhubClient) {
		if u != "" {
			c.baseURL = u
		}
	}
}

// WithHTTPClient injects the HTTP client.
func WithHTTPClient(h HTTPClient) FinnhubOption {
	return func(c *FinnhubClient) {
		if h != nil {
			c.http = h
		}
	}
}

// WithRatePerMinute sets the request budget. Zero or less disables limiting.
func WithRatePerMinute(n int) FinnhubOption {
	return func(c *FinnhubClient) {
		if n <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(n)), 1)
	}
}

// WithClientLogger sets the logger.
func WithClientLogger(l *slog.Logger) FinnhubOption {
	return func(c *FinnhubClient) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewFinnhubClient creates a client authenticated with token.
func NewFinnhubClient(token string, opts ...FinnhubOption) *FinnhubClient {
	c := &FinnhubClient{
		baseURL: DefaultFinnhubURL,
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
		logger:  slog.Default(),
	}
	WithRatePerMinute(DefaultRatePerMinute)(c)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FinancialsReportedQuery selects filings.
type FinancialsReportedQuery struct {
	Symbol string
	Freq   string // annual or quarterly
	From   string // optional YYYY-MM-DD
	To     string // optional YYYY-MM-DD
}

// FinancialsReported fetches reported financials for one symbol.
//
// # Inputs
//
//   - ctx: Cancels the rate-limit wait and the request.
//   - q: Already validated query.
//
// # Outputs
//
//   - *FinancialsReported: Decoded body. Shared between coalesced callers;
//     treat as read-only.
//   - error: Non-nil on transport failure, non-200 status or bad JSON.
func (c *FinnhubClient) FinancialsReported(ctx context.Context, q FinancialsReportedQuery) (*FinancialsReported, error) {
	params := url.Values{}
	params.Set("symbol", q.Symbol)
	params.Set("freq", q.Freq)
	if q.From != "" {
		params.Set("from", q.From)
	}
	if q.To != "" {
		params.Set("to", q.To)
	}
	key := "/stock/financials-reported?" + params.Encode()

	v, err, shared := c.group.Do(key, func() (any, error) {
		var out FinancialsReported
		if err := c.get(ctx, "/stock/financials-reported", params, &out); err != nil {
			return nil, err
		}
		return &out, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		c.logger.Debug("finnhub request coalesced", slog.String("symbol", q.Symbol))
	}
	out, ok := v.(*FinancialsReported)
	if !ok {
		return nil, fmt.Errorf("unexpected type from singleflight group: got %T", v)
	}
	return out, nil
}

// StatusError is returned when the API answers with a non-200 status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("finnhub returned status %d: %s", e.StatusCode, e.Body)
}

func (c *FinnhubClient) get(ctx context.Context, path string, params url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	withToken := url.Values{}
	for k, v := range params {
		withToken[k] = v
	}
	withToken.Set("token", c.token)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+withToken.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call finnhub: %w", err)
	}
	defer resp.Body.Close()

	c.logger.Debug("finnhub request",
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("latency", time.Since(start)),
	)

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode finnhub JSON: %w", err)
	}
	return nil
}
