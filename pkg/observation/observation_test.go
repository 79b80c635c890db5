// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package observation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBundle_StationCountDeduplicates(t *testing.T) {
	require := require.New(t)

	b := Bundle{Observations: []Observation{
		{StationID: "A"},
		{StationID: "A"},
		{StationID: "B"},
	}}
	require.Equal(2, b.StationCount())
}

func TestObservation_Missing(t *testing.T) {
	require := require.New(t)

	v := 1.0
	require.True(Observation{}.Missing())
	require.False(Observation{PrecipitationMM: &v}.Missing())
}

func TestUnitConversions(t *testing.T) {
	require := require.New(t)

	require.InDelta(10.2889, KnotsToMS(20), 0.0001)
	require.InDelta(20.0, MSToKnots(KnotsToMS(20)), 0.0001)
	require.InDelta(0.0, FahrenheitToCelsius(32), 0.0001)
	require.InDelta(100.0, FahrenheitToCelsius(212), 0.0001)
}
