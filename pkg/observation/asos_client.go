// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package observation

import (
	"context"
	"encoding/csv"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/atmx/settlement-oracle/pkg/log"
)

// ASOSClient fetches raw station observations from the Iowa Environmental
// Mesonet (IEM) ASOS/AWOS archive (mesonet.agron.iastate.edu/request/download.phtml).
type ASOSClient struct {
	baseURL    string
	httpClient *http.Client
	log        log.Logger
}

// NewASOSClient builds a client with a bounded timeout, matching the
// shared-client pattern the Design Notes call for (one configured client
// injected into the adapter, not one per call).
func NewASOSClient(baseURL string, timeout time.Duration, logger log.Logger) *ASOSClient {
	return &ASOSClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: logger,
	}
}

// rawRow is a single parsed CSV data row before unit conversion.
type rawRow struct {
	valid string
	p01m  string
	sknt  string
	tmpf  string
	snow  string
	metar string
}

// fetch issues one bounded GET for a single station over [start, end] and
// returns the parsed comment-stripped data rows. Header row parsing and
// value interpretation both tolerate the upstream's missing-value sentinels
// downstream in parseRow.
func (c *ASOSClient) fetch(ctx context.Context, stationID string, start, end time.Time) ([]rawRow, error) {
	q := url.Values{}
	q.Set("station", stationID)
	q.Set("data", "p01m,sknt,tmpf,snowd")
	q.Set("tz", "Etc/UTC")
	q.Set("format", "comma")
	q.Set("latlon", "no")
	q.Set("year1", start.Format("2006"))
	q.Set("month1", start.Format("01"))
	q.Set("day1", start.Format("02"))
	q.Set("hour1", start.Format("15"))
	q.Set("year2", end.Format("2006"))
	q.Set("month2", end.Format("01"))
	q.Set("day2", end.Format("02"))
	q.Set("hour2", end.Format("15"))

	reqURL := c.baseURL + "?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build ASOS request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ASOS request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("ASOS upstream error: status %d", resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("ASOS rejected request: status %d", resp.StatusCode)
	}

	reader := csv.NewReader(resp.Body)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read ASOS header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}

	var rows []rawRow
	for {
		record, err := reader.Read()
		if err != nil {
			break // EOF or malformed trailing row; stop reading.
		}
		if len(record) == 0 || strings.HasPrefix(record[0], "#") {
			continue
		}
		rows = append(rows, rawRow{
			valid: field(record, col, "valid"),
			p01m:  field(record, col, "p01m"),
			sknt:  field(record, col, "sknt"),
			tmpf:  field(record, col, "tmpf"),
			snow:  field(record, col, "snowd"),
			metar: field(record, col, "metar"),
		})
	}

	return rows, nil
}

func field(record []string, col map[string]int, name string) string {
	idx, ok := col[name]
	if !ok || idx >= len(record) {
		return ""
	}
	return record[idx]
}

// safeFloat parses a numeric ASOS field, mapping the documented missing
// sentinels ("", "M", "T") to nil rather than an error.
func safeFloat(raw string) *float64 {
	v := strings.TrimSpace(raw)
	if v == "" || v == "M" || v == "T" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil
	}
	return &f
}
