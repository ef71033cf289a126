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
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/AleutianAI/AleutianResearch/pkg/validation"
	"github.com/AleutianAI/AleutianResearch/services/research/tools"
)

const (
	// DefaultYahooURL is the Yahoo Finance chart API base URL.
	DefaultYahooURL = "https://query1.finance.yahoo.com/v8/finance/chart"

	// ToolPriceHistory is the price tool name.
	ToolPriceHistory = "get_price_history"

	defaultPriceDays = 30
	maxPriceDays     = 365
	userAgent        = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36"
)

var validIntervals = map[string]bool{"1d": true, "1wk": true, "1mo": true}

// --- Yahoo Finance response types ---

type yahooChartResponse struct {
	Chart struct {
		Result []yahooResult `json:"result"`
		Error  any           `json:"error"`
	} `json:"chart"`
}

type yahooResult struct {
	Meta struct {
		Currency string `json:"currency"`
		Symbol   string `json:"symbol"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Open   []float64 `json:"open"`
			High   []float64 `json:"high"`
			Low    []float64 `json:"low"`
			Close  []float64 `json:"close"`
			Volume []int64   `json:"volume"`
		} `json:"quote"`
		AdjClose []struct {
			AdjClose []float64 `json:"adjclose"`
		} `json:"adjclose"`
	} `json:"indicators"`
}

// PricePoint is one OHLCV bar.
type PricePoint struct {
	Time     time.Time `json:"time"`
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	AdjClose float64   `json:"adj_close"`
	Volume   int64     `json:"volume"`
}

// PriceHistory is the result of the price tool.
type PriceHistory struct {
	Symbol   string       `json:"symbol"`
	Currency string       `json:"currency,omitempty"`
	Interval string       `json:"interval"`
	Points   []PricePoint `json:"points"`
}

// YahooClient fetches chart data from Yahoo Finance.
type YahooClient struct {
	baseURL string
	http    HTTPClient
	now     func() time.Time
}

// NewYahooClient creates a client. Empty baseURL and nil h take defaults.
func NewYahooClient(baseURL string, h HTTPClient) *YahooClient {
	if baseURL == "" {
		baseURL = DefaultYahooURL
	}
	if h == nil {
		h = &http.Client{Timeout: 30 * time.Second}
	}
	return &YahooClient{baseURL: baseURL, http: h, now: time.Now}
}

// History returns bars for ticker between start and now.
func (c *YahooClient) History(ctx context.Context, ticker string, start time.Time, interval string) (*PriceHistory, error) {
	end := c.now()
	if start.After(end) {
		return &PriceHistory{Symbol: ticker, Interval: interval}, nil
	}

	params := url.Values{}
	params.Set("period1", fmt.Sprint(start.Unix()))
	params.Set("period2", fmt.Sprint(end.Unix()))
	params.Set("interval", interval)
	params.Set("events", "history")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/%s?%s", c.baseURL, url.PathEscape(ticker), params.Encode()), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call Yahoo API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("yahoo API returned status %s", resp.Status)
	}

	var chart yahooChartResponse
	if err := json.NewDecoder(resp.Body).Decode(&chart); err != nil {
		return nil, fmt.Errorf("failed to decode Yahoo JSON: %w", err)
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo API error: %v", chart.Chart.Error)
	}
	if len(chart.Chart.Result) == 0 {
		return nil, fmt.Errorf("no results for ticker %s", ticker)
	}

	res := chart.Chart.Result[0]
	if len(res.Indicators.AdjClose) == 0 || len(res.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("incomplete indicators for ticker %s", ticker)
	}
	adj := res.Indicators.AdjClose[0].AdjClose
	q := res.Indicators.Quote[0]

	history := &PriceHistory{Symbol: ticker, Currency: res.Meta.Currency, Interval: interval}
	for i, ts := range res.Timestamp {
		if len(adj) <= i || len(q.Close) <= i || len(q.Open) <= i ||
			len(q.High) <= i || len(q.Low) <= i || len(q.Volume) <= i {
			continue
		}
		history.Points = append(history.Points, PricePoint{
			Time:     time.Unix(ts, 0).UTC(),
			Open:     q.Open[i],
			High:     q.High[i],
			Low:      q.Low[i],
			Close:    q.Close[i],
			AdjClose: adj[i],
			Volume:   q.Volume[i],
		})
	}
	return history, nil
}

// PriceArgs are the arguments of the price tool.
type PriceArgs struct {
	Ticker   string `json:"ticker"`
	Days     int    `json:"days,omitempty"`
	Interval string `json:"interval,omitempty"`
}

// NewPriceHistoryTool builds the price tool. store may be nil; when set,
// every fetched bar is also written to it. A store failure is logged and
// does not fail the tool.
func NewPriceHistoryTool(yahoo *YahooClient, store PriceStore, logger *slog.Logger) tools.Descriptor {
	if logger == nil {
		logger = slog.Default()
	}
	return tools.Descriptor{
		Name:        ToolPriceHistory,
		Description: "Retrieves recent daily, weekly or monthly price bars (open, high, low, close, adjusted close, volume) for a stock. Useful for price trends, returns and volatility.",
		Parameters: jsonschema.Definition{
			Type: jsonschema.Object,
			Properties: map[string]jsonschema.Definition{
				"ticker": {
					Type:        jsonschema.String,
					Description: "The stock ticker symbol, for example 'MSFT'.",
				},
				"days": {
					Type:        jsonschema.Integer,
					Description: fmt.Sprintf("How many calendar days of history to fetch (default %d, max %d).", defaultPriceDays, maxPriceDays),
				},
				"interval": {
					Type:        jsonschema.String,
					Enum:        []string{"1d", "1wk", "1mo"},
					Description: "Bar size. Defaults to '1d'.",
				},
			},
			Required: []string{"ticker"},
		},
		Invoke: func(ctx context.Context, raw json.RawMessage) (string, error) {
			var args PriceArgs
			if err := tools.DecodeArgs(raw, &args); err != nil {
				return "", err
			}
			symbol, err := validation.SanitizeTicker(args.Ticker)
			if err != nil {
				return "", err
			}
			days := args.Days
			if days == 0 {
				days = defaultPriceDays
			}
			if err := validation.ValidateRange("days", days, 1, maxPriceDays); err != nil {
				return "", err
			}
			interval := args.Interval
			if interval == "" {
				interval = "1d"
			}
			if !validIntervals[interval] {
				return "", fmt.Errorf("invalid interval %q (must be 1d, 1wk or 1mo)", interval)
			}

			start := yahoo.now().AddDate(0, 0, -days)
			history, err := yahoo.History(ctx, symbol, start, interval)
			if err != nil {
				return "", err
			}

			if store != nil && len(history.Points) > 0 {
				if err := store.WritePrices(ctx, symbol, history.Points); err != nil {
					logger.Warn("price store write failed",
						slog.String("ticker", symbol),
						slog.String("error", err.Error()),
					)
				}
			}

			out, err := json.Marshal(history)
			if err != nil {
				return "", fmt.Errorf("encode price history: %w", err)
			}
			return string(out), nil
		},
	}
}
