// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package forecast estimates the exceedance probability a contract will
// settle YES, for the pricing engine to convert into a premium. The NWS
// gridpoint adapter is the primary path; a latitude/season climatological
// baseline is the fallback spec.md §7 requires when the upstream forecast
// source is unavailable.
package forecast

import (
	"time"

	"github.com/atmx/settlement-oracle/pkg/contract"
)

// RiskType classifies a contract's metric+threshold pair into one of the
// risk buckets the forecast model and webhook payload both key off of.
// See ClassifyRiskType, shared by pkg/settlementcron's webhook payload
// classification and the pricing quote path below.
type RiskType string

const (
	RiskPrecipHeavy    RiskType = "precip_heavy"
	RiskPrecipModerate RiskType = "precip_moderate"
	RiskWindHigh       RiskType = "wind_high"
	RiskWindExtreme    RiskType = "wind_extreme"
	RiskTempFreeze     RiskType = "temp_freeze"
	RiskTempHeat       RiskType = "temp_heat"
	RiskSnowHeavy      RiskType = "snow_heavy"
)

// Estimate is an exceedance-probability forecast with confidence bounds,
// tagged by which source produced it.
type Estimate struct {
	Probability     float64 `json:"probability"`
	ConfidenceLower float64 `json:"confidence_lower"`
	ConfidenceUpper float64 `json:"confidence_upper"`
	Source          string  `json:"source"` // "nws_api" or "climatological_baseline"
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Window is the [start, end] instant pair a forecast covers.
type Window struct {
	Start time.Time
	End   time.Time
}

// ClassifyRiskType maps a contract's metric and threshold to the risk-type
// token shared by the forecast model's base-rate table and the webhook
// event payload's risk_type field (spec.md §6). Ported from
// settlement_cron.py's _map_metric_to_risk_type.
func ClassifyRiskType(m contract.Metric, threshold float64) RiskType {
	switch m {
	case contract.MetricPrecipitation:
		if threshold > 10 {
			return RiskPrecipHeavy
		}
		return RiskPrecipModerate
	case contract.MetricWindSpeed:
		if threshold < 25 {
			return RiskWindHigh
		}
		return RiskWindExtreme
	case contract.MetricTemperature:
		if threshold < 20 {
			return RiskTempFreeze
		}
		return RiskTempHeat
	case contract.MetricSnow:
		return RiskSnowHeavy
	default:
		return RiskPrecipHeavy
	}
}
