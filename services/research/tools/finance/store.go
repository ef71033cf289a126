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
	"fmt"
	"strings"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// PriceMeasurement is the InfluxDB measurement price bars are written to.
const PriceMeasurement = "stock_prices"

// PriceStore persists fetched price bars.
type PriceStore interface {
	WritePrices(ctx context.Context, ticker string, points []PricePoint) error
}

// InfluxPriceStore writes bars to InfluxDB with one point per bar, tagged
// by ticker.
type InfluxPriceStore struct {
	writer api.WriteAPIBlocking
	client influxdb2.Client
}

// InfluxConfig locates the bucket.
type InfluxConfig struct {
	URL    string
	Token  string
	Org    string
	Bucket string
}

// NewInfluxPriceStore connects to InfluxDB. Call Close when done.
func NewInfluxPriceStore(cfg InfluxConfig) (*InfluxPriceStore, error) {
	if cfg.URL == "" || cfg.Org == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("influx store: url, org and bucket are required")
	}
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	return &InfluxPriceStore{
		writer: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		client: client,
	}, nil
}

// NewInfluxPriceStoreWithWriter wraps an existing blocking writer.
func NewInfluxPriceStoreWithWriter(w api.WriteAPIBlocking) *InfluxPriceStore {
	return &InfluxPriceStore{writer: w}
}

// WritePrices implements PriceStore.
func (s *InfluxPriceStore) WritePrices(ctx context.Context, ticker string, points []PricePoint) error {
	if len(points) == 0 {
		return nil
	}
	if err := s.writer.WritePoint(ctx, PricePoints(ticker, points)...); err != nil {
		return fmt.Errorf("write %d points for %s: %w", len(points), ticker, err)
	}
	return nil
}

// Close releases the underlying client, if the store owns one.
func (s *InfluxPriceStore) Close() {
	if s.client != nil {
		s.client.Close()
	}
}

// PricePoints converts bars to InfluxDB points. Crypto pairs such as
// BTC-USD are tagged as BTCUSDT.
func PricePoints(ticker string, points []PricePoint) []*write.Point {
	tag := strings.ReplaceAll(ticker, "-USD", "USDT")
	out := make([]*write.Point, 0, len(points))
	for _, p := range points {
		out = append(out, influxdb2.NewPoint(
			PriceMeasurement,
			map[string]string{"ticker": tag},
			map[string]interface{}{
				"open":      p.Open,
				"high":      p.High,
				"low":       p.Low,
				"close":     p.Close,
				"adj_close": p.AdjClose,
				"volume":    p.Volume,
			},
			p.Time,
		))
	}
	return out
}
