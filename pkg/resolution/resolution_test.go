// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package resolution

import (
	"testing"
	"time"

	"github.com/atmx/settlement-oracle/pkg/contract"
	"github.com/atmx/settlement-oracle/pkg/observation"
	"github.com/stretchr/testify/require"
)

func f(v float64) *float64 { return &v }

func newContract(t *testing.T, metric contract.Metric, threshold float64) *contract.Contract {
	t.Helper()
	c, err := contract.New(contract.Spec{
		Cell:        "cell-test",
		Metric:      metric,
		Threshold:   threshold,
		Unit:        "mm",
		WindowHours: 24,
		Expiry:      time.Now().Add(24 * time.Hour),
	}, time.Now())
	require.NoError(t, err)
	return c
}

func TestResolve_NoStations(t *testing.T) {
	require := require.New(t)
	c := newContract(t, contract.MetricPrecipitation, 10)

	res := Resolve(c, observation.Bundle{}, DefaultParams())
	require.Equal(OutcomeDisputed, res.Outcome)
	require.Contains(res.DisputeReason, "no stations")
}

func TestResolve_AllReadingsMissing(t *testing.T) {
	require := require.New(t)
	c := newContract(t, contract.MetricPrecipitation, 10)

	bundle := observation.Bundle{Observations: []observation.Observation{
		{StationID: "A"},
		{StationID: "B"},
	}}

	res := Resolve(c, bundle, DefaultParams())
	require.Equal(OutcomeDisputed, res.Outcome)
	require.Contains(res.DisputeReason, "sensor outage")
}

func TestResolve_PrecipitationYes(t *testing.T) {
	require := require.New(t)
	c := newContract(t, contract.MetricPrecipitation, 10)

	bundle := observation.Bundle{Observations: []observation.Observation{
		{StationID: "A", PrecipitationMM: f(6)},
		{StationID: "A", PrecipitationMM: f(6)},
	}}

	res := Resolve(c, bundle, DefaultParams())
	require.Equal(OutcomeYes, res.Outcome)
	require.NotNil(res.ObservedValue)
	require.InDelta(12.0, *res.ObservedValue, 0.0001)
}

func TestResolve_PrecipitationNo(t *testing.T) {
	require := require.New(t)
	c := newContract(t, contract.MetricPrecipitation, 10)

	bundle := observation.Bundle{Observations: []observation.Observation{
		{StationID: "A", PrecipitationMM: f(1)},
	}}

	res := Resolve(c, bundle, DefaultParams())
	require.Equal(OutcomeNo, res.Outcome)
}

func TestResolve_ConflictingStationsDisputed(t *testing.T) {
	require := require.New(t)
	c := newContract(t, contract.MetricWindSpeed, 10)

	params := Params{MinStations: 1, DisputedSpreadRatio: 0.20}
	bundle := observation.Bundle{Observations: []observation.Observation{
		{StationID: "A", WindSpeedMS: f(5)},
		{StationID: "B", WindSpeedMS: f(25)},
	}}

	res := Resolve(c, bundle, params)
	require.Equal(OutcomeDisputed, res.Outcome)
	require.Contains(res.DisputeReason, "conflict")
}

func TestResolve_BelowMinStations(t *testing.T) {
	require := require.New(t)
	c := newContract(t, contract.MetricWindSpeed, 10)

	params := Params{MinStations: 2, DisputedSpreadRatio: 0.20}
	bundle := observation.Bundle{Observations: []observation.Observation{
		{StationID: "A", WindSpeedMS: f(5)},
	}}

	res := Resolve(c, bundle, params)
	require.Equal(OutcomeDisputed, res.Outcome)
	require.Contains(res.DisputeReason, "minimum")
}

func TestResolve_TemperatureFreezeUsesMinimum(t *testing.T) {
	require := require.New(t)
	c := newContract(t, contract.MetricTemperature, -5)

	bundle := observation.Bundle{Observations: []observation.Observation{
		{StationID: "A", TemperatureC: f(-10)},
		{StationID: "A", TemperatureC: f(2)},
	}}

	res := Resolve(c, bundle, DefaultParams())
	require.NotNil(res.ObservedValue)
	require.InDelta(-10.0, *res.ObservedValue, 0.0001)
	require.Equal(OutcomeYes, res.Outcome)
}

func TestResolve_TemperatureHeatUsesMaximum(t *testing.T) {
	require := require.New(t)
	c := newContract(t, contract.MetricTemperature, 35)

	bundle := observation.Bundle{Observations: []observation.Observation{
		{StationID: "A", TemperatureC: f(30)},
		{StationID: "A", TemperatureC: f(40)},
	}}

	res := Resolve(c, bundle, DefaultParams())
	require.NotNil(res.ObservedValue)
	require.InDelta(40.0, *res.ObservedValue, 0.0001)
	require.Equal(OutcomeYes, res.Outcome)
}

func TestResolve_WindSpeedUsesMax(t *testing.T) {
	require := require.New(t)
	c := newContract(t, contract.MetricWindSpeed, 15)

	bundle := observation.Bundle{Observations: []observation.Observation{
		{StationID: "A", WindSpeedMS: f(5)},
		{StationID: "A", WindSpeedMS: f(20)},
	}}

	res := Resolve(c, bundle, DefaultParams())
	require.NotNil(res.ObservedValue)
	require.InDelta(20.0, *res.ObservedValue, 0.0001)
}

func TestResolve_PartialStationOutageStillResolves(t *testing.T) {
	require := require.New(t)
	c := newContract(t, contract.MetricSnow, 5)

	bundle := observation.Bundle{Observations: []observation.Observation{
		{StationID: "A", SnowMM: f(10)},
		{StationID: "B"},
	}}

	res := Resolve(c, bundle, DefaultParams())
	require.Equal(OutcomeYes, res.Outcome)
	require.Nil(res.StationReadings["B"])
	require.NotNil(res.StationReadings["A"])
}

func TestResolve_ObservedEqualToThresholdResolvesNo(t *testing.T) {
	require := require.New(t)
	c := newContract(t, contract.MetricPrecipitation, 10)

	bundle := observation.Bundle{Observations: []observation.Observation{
		{StationID: "A", PrecipitationMM: f(10)},
	}}

	res := Resolve(c, bundle, DefaultParams())
	require.NotNil(res.ObservedValue)
	require.InDelta(10.0, *res.ObservedValue, 0.0001)
	require.Equal(OutcomeNo, res.Outcome)
}

func TestResolve_AllZeroReadingsResolveNoWithoutDispute(t *testing.T) {
	require := require.New(t)
	c := newContract(t, contract.MetricPrecipitation, 10)

	bundle := observation.Bundle{Observations: []observation.Observation{
		{StationID: "A", PrecipitationMM: f(0)},
		{StationID: "B", PrecipitationMM: f(0)},
	}}

	res := Resolve(c, bundle, DefaultParams())
	require.Equal(OutcomeNo, res.Outcome)
	require.Empty(res.DisputeReason)
	require.NotNil(res.ObservedValue)
	require.InDelta(0.0, *res.ObservedValue, 0.0001)
}
