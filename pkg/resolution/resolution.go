// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package resolution implements the pure, deterministic function that
// turns a contract plus a bundle of station observations into an outcome.
// Nothing in this package performs I/O; for any fixed input it returns
// bit-identical output across runs and platforms.
//
// A contract resolves YES only when the observed value is strictly greater
// than its threshold; an observed value equal to the threshold resolves NO.
package resolution

import (
	"fmt"
	"sort"

	"github.com/atmx/settlement-oracle/pkg/contract"
	"github.com/atmx/settlement-oracle/pkg/observation"
)

// Outcome is the settlement verdict.
type Outcome string

const (
	OutcomeYes      Outcome = "YES"
	OutcomeNo       Outcome = "NO"
	OutcomeDisputed Outcome = "DISPUTED"
)

// Defaults for the two configurable resolution thresholds.
const (
	DefaultMinStations          = 1
	DefaultDisputedSpreadRatio  = 0.20
)

// Params bundles the configurable knobs resolution needs, so tests and
// production can vary them without package-level mutable state.
type Params struct {
	MinStations         int
	DisputedSpreadRatio float64
}

// DefaultParams returns the spec.md §4.3 defaults.
func DefaultParams() Params {
	return Params{
		MinStations:         DefaultMinStations,
		DisputedSpreadRatio: DefaultDisputedSpreadRatio,
	}
}

// Result is everything Resolve produces.
type Result struct {
	Outcome        Outcome
	ObservedValue  *float64
	StationReadings map[string]*float64
	DisputeReason  string
}

// Resolve applies the rules in spec.md §4.3, in order, to bundle for c.
func Resolve(c *contract.Contract, bundle observation.Bundle, params Params) Result {
	stationCount := bundle.StationCount()
	if stationCount == 0 {
		return Result{
			Outcome:         OutcomeDisputed,
			StationReadings: map[string]*float64{},
			DisputeReason:   "no stations found in cell",
		}
	}

	stationAgg := aggregateByStation(c.Metric, c.Threshold, bundle.Observations)

	validStations := make([]string, 0, len(stationAgg))
	for sid, v := range stationAgg {
		if v != nil {
			validStations = append(validStations, sid)
		}
	}
	sort.Strings(validStations)

	if len(validStations) == 0 {
		return Result{
			Outcome:         OutcomeDisputed,
			StationReadings: stationAgg,
			DisputeReason:   "all station readings missing: sensor outage",
		}
	}

	if len(validStations) < params.MinStations {
		return Result{
			Outcome:         OutcomeDisputed,
			StationReadings: stationAgg,
			DisputeReason: fmt.Sprintf(
				"only %d valid station(s), minimum %d required",
				len(validStations), params.MinStations,
			),
		}
	}

	values := make([]float64, 0, len(validStations))
	for _, sid := range validStations {
		values = append(values, *stationAgg[sid])
	}

	if len(values) >= 2 {
		minV, maxV := values[0], values[0]
		sum := 0.0
		for _, v := range values {
			if v < minV {
				minV = v
			}
			if v > maxV {
				maxV = v
			}
			sum += v
		}
		mean := sum / float64(len(values))
		spread := maxV - minV

		if mean > 0 && (spread/mean) > params.DisputedSpreadRatio {
			observed := mean
			return Result{
				Outcome:       OutcomeDisputed,
				ObservedValue: &observed,
				StationReadings: stationAgg,
				DisputeReason: fmt.Sprintf(
					"station readings conflict: spread=%.2f, mean=%.2f, ratio=%.2f",
					spread, mean, spread/mean,
				),
			}
		}
	}

	sum := 0.0
	for _, v := range values {
		sum += v
	}
	observed := sum / float64(len(values))

	outcome := OutcomeNo
	if observed > c.Threshold {
		outcome = OutcomeYes
	}

	return Result{
		Outcome:         outcome,
		ObservedValue:   &observed,
		StationReadings: stationAgg,
	}
}

// temperatureFreezeThresholdC is the boundary (in °C) below which a
// temperature contract is treated as a freeze risk (aggregate by minimum)
// rather than a heat risk (aggregate by maximum). Contract.Metric alone
// doesn't distinguish freeze from heat — spec.md's resolution table
// splits "temperature" into freeze/heat sub-rules without saying how a
// contract signals which. We classify by threshold, the same heuristic
// the original source's risk-type mapper uses (threshold < 20 → freeze).
const temperatureFreezeThresholdC = 20.0

// aggregateByStation rolls up per-station readings for metric: sum for
// precipitation/snow accumulation, max for wind's peak sustained reading,
// and min or max for temperature depending on whether threshold classifies
// the contract as freeze or heat risk. A station with no non-missing
// readings for the metric aggregates to nil.
func aggregateByStation(metric contract.Metric, threshold float64, observations []observation.Observation) map[string]*float64 {
	stationValues := make(map[string][]float64)
	allStations := make(map[string]struct{})

	for _, obs := range observations {
		allStations[obs.StationID] = struct{}{}

		var v *float64
		switch metric {
		case contract.MetricPrecipitation:
			v = obs.PrecipitationMM
		case contract.MetricWindSpeed:
			v = obs.WindSpeedMS
		case contract.MetricTemperature:
			v = obs.TemperatureC
		case contract.MetricSnow:
			v = obs.SnowMM
		}
		if v == nil {
			continue
		}
		stationValues[obs.StationID] = append(stationValues[obs.StationID], *v)
	}

	freeze := threshold < temperatureFreezeThresholdC

	result := make(map[string]*float64, len(allStations))
	for sid := range allStations {
		vals, ok := stationValues[sid]
		if !ok || len(vals) == 0 {
			result[sid] = nil
			continue
		}
		result[sid] = aggregateValues(metric, freeze, vals)
	}
	return result
}

func aggregateValues(metric contract.Metric, freeze bool, vals []float64) *float64 {
	switch metric {
	case contract.MetricPrecipitation, contract.MetricSnow:
		sum := 0.0
		for _, v := range vals {
			sum += v
		}
		return &sum
	case contract.MetricWindSpeed:
		max := vals[0]
		for _, v := range vals[1:] {
			if v > max {
				max = v
			}
		}
		return &max
	case contract.MetricTemperature:
		extreme := vals[0]
		for _, v := range vals[1:] {
			if freeze && v < extreme {
				extreme = v
			}
			if !freeze && v > extreme {
				extreme = v
			}
		}
		return &extreme
	}
	return nil
}
