// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package forecast

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/atmx/settlement-oracle/pkg/log"
)

// NWSClient fetches the gridded probabilistic forecast from the National
// Weather Service's public API (api.weather.gov), per spec.md §6's
// "Upstream gridded forecast" interface: a points lookup followed by a
// forecastGridData fetch.
type NWSClient struct {
	baseURL    string
	httpClient *http.Client
	log        log.Logger
}

// NewNWSClient builds a client with a bounded timeout and the User-Agent
// the NWS API requires of every caller.
func NewNWSClient(baseURL string, timeout time.Duration, logger log.Logger) *NWSClient {
	return &NWSClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: logger,
	}
}

type pointsResponse struct {
	Properties struct {
		ForecastGridData string `json:"forecastGridData"`
	} `json:"properties"`
}

type gridSeriesValue struct {
	ValidTime string  `json:"validTime"`
	Value     float64 `json:"value"`
}

type gridSeries struct {
	Values []gridSeriesValue `json:"values"`
}

type gridDataProperties struct {
	ProbabilityOfPrecipitation gridSeries `json:"probabilityOfPrecipitation"`
	QuantitativePrecipitation  gridSeries `json:"quantitativePrecipitation"`
	WindSpeed                  gridSeries `json:"windSpeed"`
	Temperature                gridSeries `json:"temperature"`
}

type gridDataResponse struct {
	Properties gridDataProperties `json:"properties"`
}

// Fetch attempts the two-step NWS lookup for (lat, lon) and extracts an
// exceedance probability for riskType over window. It returns
// (Estimate{}, false) whenever the API is unreachable or returns nothing
// usable for riskType — never an error, since the caller's only recourse
// is the climatological fallback either way (spec.md §7).
func (c *NWSClient) Fetch(ctx context.Context, lat, lon float64, riskType RiskType, window Window) (Estimate, bool) {
	gridURL, err := c.fetchGridURL(ctx, lat, lon)
	if err != nil {
		c.log.Warn("NWS points lookup failed, falling back", log.Err(err))
		return Estimate{}, false
	}

	grid, err := c.fetchGridData(ctx, gridURL)
	if err != nil {
		c.log.Warn("NWS grid data fetch failed, falling back", log.Err(err))
		return Estimate{}, false
	}

	return extractProbability(grid, riskType, window)
}

func (c *NWSClient) fetchGridURL(ctx context.Context, lat, lon float64) (string, error) {
	url := fmt.Sprintf("%s/points/%.4f,%.4f", c.baseURL, lat, lon)
	var pr pointsResponse
	if err := c.getJSON(ctx, url, &pr); err != nil {
		return "", err
	}
	if pr.Properties.ForecastGridData == "" {
		return "", fmt.Errorf("NWS points response missing forecastGridData")
	}
	return pr.Properties.ForecastGridData, nil
}

func (c *NWSClient) fetchGridData(ctx context.Context, gridURL string) (gridDataProperties, error) {
	var gr gridDataResponse
	if err := c.getJSON(ctx, gridURL, &gr); err != nil {
		return gridDataProperties{}, err
	}
	return gr.Properties, nil
}

func (c *NWSClient) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "(atmx-settlement-oracle, ops@atmx.dev)")
	req.Header.Set("Accept", "application/geo+json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return fmt.Errorf("NWS upstream error: status %d", resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("NWS rejected request: status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// extractProbability ports _extract_probability's per-risk-type derivation.
func extractProbability(grid gridDataProperties, riskType RiskType, window Window) (Estimate, bool) {
	switch riskType {
	case RiskPrecipHeavy, RiskPrecipModerate:
		return extractPrecip(grid, riskType, window)
	case RiskWindHigh, RiskWindExtreme:
		return extractWind(grid, riskType, window)
	case RiskTempFreeze, RiskTempHeat:
		return extractTemperature(grid, riskType, window)
	default:
		return Estimate{}, false
	}
}

func extractPrecip(grid gridDataProperties, riskType RiskType, window Window) (Estimate, bool) {
	pop := valuesInWindow(grid.ProbabilityOfPrecipitation, window)
	if len(pop) == 0 {
		return Estimate{}, false
	}
	qpf := valuesInWindow(grid.QuantitativePrecipitation, window)

	maxPoP := maxOf(pop) / 100.0
	threshold := 6.35
	if riskType == RiskPrecipHeavy {
		threshold = 12.7
	}

	var exceedance float64
	if len(qpf) > 0 && maxOf(qpf) > 0 {
		exceedance = maxPoP * math.Min(1.0, maxOf(qpf)/threshold)
	} else {
		exceedance = maxPoP * 0.3
	}

	return estimateWithSpread(exceedance, 0.3), true
}

func extractWind(grid gridDataProperties, riskType RiskType, window Window) (Estimate, bool) {
	values := valuesInWindow(grid.WindSpeed, window)
	if len(values) == 0 {
		return Estimate{}, false
	}
	maxWindMS := maxOf(values) / 3.6 // NWS reports km/h
	threshold := 20.0
	if riskType == RiskWindExtreme {
		threshold = 30.0
	}
	ratio := maxWindMS / threshold
	exceedance := clamp(1.0/(1.0+math.Exp(-4.0*(ratio-0.8))), 0.001, 0.999)
	return estimateWithSpread(exceedance, 0.25), true
}

func extractTemperature(grid gridDataProperties, riskType RiskType, window Window) (Estimate, bool) {
	values := valuesInWindow(grid.Temperature, window)
	if len(values) == 0 {
		return Estimate{}, false
	}

	var exceedance float64
	if riskType == RiskTempFreeze {
		exceedance = clamp(1.0/(1.0+math.Exp(2.0*minOf(values))), 0.001, 0.999)
	} else {
		exceedance = clamp(1.0/(1.0+math.Exp(-0.5*(maxOf(values)-38))), 0.001, 0.999)
	}
	return estimateWithSpread(exceedance, 0.2), true
}

func estimateWithSpread(exceedance, spreadFactor float64) Estimate {
	spread := exceedance * spreadFactor
	if spread < 0.02 {
		spread = 0.02
	}
	return Estimate{
		Probability:     clamp(exceedance, 0.001, 0.999),
		ConfidenceLower: clamp(exceedance-spread, 0.001, 0.999),
		ConfidenceUpper: clamp(exceedance+spread, 0.001, 0.999),
		Source:          "nws_api",
	}
}

// valuesInWindow extracts the numeric values of series whose validTime
// interval overlaps window. NWS encodes validTime as "<ISO-instant>/<ISO-8601
// duration>"; only the leading instant is consulted, matching the original
// source's handling.
func valuesInWindow(series gridSeries, window Window) []float64 {
	var out []float64
	for _, v := range series.Values {
		instant, ok := parseValidTime(v.ValidTime)
		if !ok {
			continue
		}
		if instant.Before(window.Start) || instant.After(window.End) {
			continue
		}
		out = append(out, v.Value)
	}
	return out
}

func parseValidTime(raw string) (time.Time, bool) {
	isoPart := raw
	if idx := strings.IndexByte(raw, '/'); idx >= 0 {
		isoPart = raw[:idx]
	}
	t, err := time.Parse(time.RFC3339, isoPart)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}

func maxOf(vals []float64) float64 {
	m := vals[0]
	for _, v := range vals[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

func minOf(vals []float64) float64 {
	m := vals[0]
	for _, v := range vals[1:] {
		if v < m {
			m = v
		}
	}
	return m
}
