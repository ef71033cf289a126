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
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const filingsBody = `{
  "symbol": "AAPL",
  "cik": "320193",
  "data": [
    {"symbol":"AAPL","year":2023,"quarter":0,"form":"10-K","startDate":"2022-09-25","endDate":"2023-09-30",
     "report":{"ic":[{"concept":"Revenues","unit":"usd","label":"Net sales","value":383285000000}],
               "bs":[{"concept":"Assets","unit":"usd","label":"Total assets","value":352583000000}],
               "cf":[]}},
    {"symbol":"AAPL","year":2022,"quarter":0,"form":"10-K","startDate":"2021-09-26","endDate":"2022-09-24",
     "report":{"ic":[{"concept":"Revenues","unit":"usd","label":"Net sales","value":394328000000}],
               "bs":[],
               "cf":[{"concept":"NetCashProvidedByOperatingActivities","unit":"usd","label":"Operating cash","value":122151000000}]}},
    {"symbol":"AAPL","year":2021,"quarter":0,"form":"10-K","startDate":"2020-09-27","endDate":"2021-09-25",
     "report":{"ic":[{"concept":"Revenues","unit":"usd","label":"Net sales","value":365817000000}]}}
  ]
}`

func TestFinnhubClient_FinancialsReported(t *testing.T) {
	var gotQuery map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/stock/financials-reported", r.URL.Path)
		q := r.URL.Query()
		gotQuery = map[string]string{
			"symbol": q.Get("symbol"), "freq": q.Get("freq"), "token": q.Get("token"),
			"from": q.Get("from"), "to": q.Get("to"),
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(filingsBody))
	}))
	defer srv.Close()

	c := NewFinnhubClient("secret", WithBaseURL(srv.URL), WithRatePerMinute(0))
	resp, err := c.FinancialsReported(context.Background(), FinancialsReportedQuery{
		Symbol: "AAPL", Freq: "annual", From: "2020-01-01",
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"symbol": "AAPL", "freq": "annual", "token": "secret", "from": "2020-01-01", "to": "",
	}, gotQuery)
	require.Len(t, resp.Data, 3)
	assert.Equal(t, 2023, resp.Data[0].Year)
	assert.Equal(t, "10-K", resp.Data[0].Form)
}

func TestFinnhubClient_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":"API limit reached"}`))
	}))
	defer srv.Close()

	c := NewFinnhubClient("k", WithBaseURL(srv.URL), WithRatePerMinute(0))
	_, err := c.FinancialsReported(context.Background(), FinancialsReportedQuery{Symbol: "AAPL", Freq: "annual"})

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusTooManyRequests, se.StatusCode)
	assert.Contains(t, se.Body, "API limit")
}

func TestFinnhubClient_InvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>"))
	}))
	defer srv.Close()

	c := NewFinnhubClient("k", WithBaseURL(srv.URL), WithRatePerMinute(0))
	_, err := c.FinancialsReported(context.Background(), FinancialsReportedQuery{Symbol: "AAPL", Freq: "annual"})
	assert.ErrorContains(t, err, "decode")
}

func TestFinnhubClient_CoalescesIdenticalRequests(t *testing.T) {
	var hits int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		<-release
		_, _ = w.Write([]byte(filingsBody))
	}))
	defer srv.Close()

	c := NewFinnhubClient("k", WithBaseURL(srv.URL), WithRatePerMinute(0))

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.FinancialsReported(context.Background(), FinancialsReportedQuery{Symbol: "AAPL", Freq: "annual"})
			assert.NoError(t, err)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestFinnhubClient_RateLimitHonorsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(filingsBody))
	}))
	defer srv.Close()

	c := NewFinnhubClient("k", WithBaseURL(srv.URL), WithRatePerMinute(1))
	_, err := c.FinancialsReported(context.Background(), FinancialsReportedQuery{Symbol: "AAPL", Freq: "annual"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = c.FinancialsReported(ctx, FinancialsReportedQuery{Symbol: "MSFT", Freq: "annual"})
	assert.ErrorContains(t, err, "rate limit")
}
