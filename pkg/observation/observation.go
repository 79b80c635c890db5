// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package observation models a single station reading and the bundle of
// readings the settlement engine aggregates over a cell and time window.
package observation

import (
	"time"

	"github.com/atmx/settlement-oracle/pkg/cell"
)

// SourceClass identifies the provenance of a station reading.
type SourceClass string

const (
	SourceASOS   SourceClass = "ASOS"
	SourceAWOS   SourceClass = "AWOS"
	SourceManual SourceClass = "MANUAL"
)

// Observation is a single station reading at an instant, already mapped to
// a spatial cell and unit-converted to SI units (m/s, °C, mm).
type Observation struct {
	StationID          string      `json:"station_id"`
	Source             SourceClass `json:"source"`
	Cell               cell.Cell   `json:"cell"`
	Latitude           float64     `json:"latitude"`
	Longitude          float64     `json:"longitude"`
	ObservedAt         time.Time   `json:"observed_at"`
	PrecipitationMM    *float64    `json:"precipitation_mm,omitempty"`
	WindSpeedMS        *float64    `json:"wind_speed_ms,omitempty"`
	TemperatureC       *float64    `json:"temperature_c,omitempty"`
	SnowMM             *float64    `json:"snow_mm,omitempty"`
	QualityFlag        string      `json:"quality_flag,omitempty"`
}

// Missing reports whether every metric slot on the observation is absent.
func (o Observation) Missing() bool {
	return o.PrecipitationMM == nil && o.WindSpeedMS == nil &&
		o.TemperatureC == nil && o.SnowMM == nil
}

// Bundle is every station observation covering a cell and window.
type Bundle struct {
	Cell         cell.Cell     `json:"cell"`
	WindowStart  time.Time     `json:"window_start"`
	WindowEnd    time.Time     `json:"window_end"`
	Observations []Observation `json:"observations"`
}

// StationCount returns the number of distinct stations represented in the
// bundle.
func (b Bundle) StationCount() int {
	seen := make(map[string]struct{}, len(b.Observations))
	for _, o := range b.Observations {
		seen[o.StationID] = struct{}{}
	}
	return len(seen)
}

// KnotsToMS converts wind speed from knots to meters per second.
func KnotsToMS(knots float64) float64 {
	return knots * 0.514444
}

// MSToKnots converts wind speed from meters per second to knots, the
// inverse of KnotsToMS. Used only by tests asserting round-trip tolerance.
func MSToKnots(ms float64) float64 {
	return ms / 0.514444
}

// FahrenheitToCelsius converts a temperature reading from °F to °C.
func FahrenheitToCelsius(f float64) float64 {
	return (f - 32) * 5.0 / 9.0
}
