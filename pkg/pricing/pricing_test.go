// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pricing

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestCost_SymmetricAtZero(t *testing.T) {
	require := require.New(t)
	c := Cost(0, 0, DefaultLiquidityB)
	require.InDelta(DefaultLiquidityB*0.6931471805599453, c, 1e-9)
}

func TestQuantitiesFromProbability_ClipsExtremes(t *testing.T) {
	require := require.New(t)

	qYesLow, _ := QuantitiesFromProbability(-1, DefaultLiquidityB)
	qYesClipped, _ := QuantitiesFromProbability(MinProbability, DefaultLiquidityB)
	require.InDelta(qYesClipped, qYesLow, 1e-9)

	qYesHigh, _ := QuantitiesFromProbability(2, DefaultLiquidityB)
	qYesCeil, _ := QuantitiesFromProbability(MaxProbability, DefaultLiquidityB)
	require.InDelta(qYesCeil, qYesHigh, 1e-9)
}

func TestPremium_HigherProbabilityCostsMore(t *testing.T) {
	require := require.New(t)
	params := DefaultParams()

	low := Premium(0.1, params)
	high := Premium(0.9, params)
	require.True(high.GreaterThan(low), "premium at p=0.9 (%s) should exceed premium at p=0.1 (%s)", high, low)
}

func TestPremium_FloorsAtMinimum(t *testing.T) {
	require := require.New(t)
	params := Params{LiquidityB: 100.0, LoadingFactor: 0.0, NotionalUSD: 0.0001}

	premium := Premium(0.5, params)
	require.True(premium.Equal(decimal.NewFromFloat(MinPremiumUSD)))
}

func TestQuoted_StampsValidUntil(t *testing.T) {
	require := require.New(t)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	q := Quoted(0.42, 0.30, 0.55, DefaultParams(), now)
	require.Equal(now.Add(DefaultQuoteTTL), q.ValidUntil)
	require.InDelta(0.42, q.Probability, 0.0001)
}

func TestTradeCost_MonotonicInDelta(t *testing.T) {
	require := require.New(t)
	small := TradeCost(0, 0, 1, DefaultLiquidityB)
	large := TradeCost(0, 0, 10, DefaultLiquidityB)
	require.True(large > small)
}
