// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package pricing implements the LMSR (Logarithmic Market Scoring Rule)
// cost function and the premium quote built on top of it, per spec.md
// §4.5. The engine is stateless: every call takes its liquidity,
// notional, and loading parameters explicitly rather than reading a
// package-level default, so pricing a batch of contracts with different
// risk appetites needs no synchronization.
package pricing

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// Defaults match spec.md §4.5.
const (
	DefaultLiquidityB    = 100.0
	DefaultLoadingFactor = 0.10
	DefaultNotionalUSD   = 10.0
	MinProbability       = 0.001
	MaxProbability       = 0.999
	MinPremiumUSD        = 0.01
	DefaultQuoteTTL      = 5 * time.Minute
)

// Params bundles the LMSR tunables a Quote is computed with.
type Params struct {
	LiquidityB    float64
	LoadingFactor float64
	NotionalUSD   float64
}

// DefaultParams returns spec.md §4.5's defaults.
func DefaultParams() Params {
	return Params{
		LiquidityB:    DefaultLiquidityB,
		LoadingFactor: DefaultLoadingFactor,
		NotionalUSD:   DefaultNotionalUSD,
	}
}

// Quote is the transient pricing result spec.md §3 describes — never
// persisted by the core.
type Quote struct {
	Probability      float64         `json:"probability"`
	ConfidenceLower  float64         `json:"confidence_lower"`
	ConfidenceUpper  float64         `json:"confidence_upper"`
	Premium          decimal.Decimal `json:"premium_usd"`
	Params           Params          `json:"params"`
	ValidUntil       time.Time       `json:"valid_until"`
}

// logSumExp is the numerically stable log-sum-exp used by Cost: it
// shifts by the maximum value before exponentiating so neither term can
// overflow, matching spec.md §4.1's "numerically stable" language (the
// original Python implementation carries the identical max-shift).
func logSumExp(xs []float64) float64 {
	if len(xs) == 0 {
		return math.Inf(-1)
	}
	max := xs[0]
	for _, x := range xs[1:] {
		if x > max {
			max = x
		}
	}
	if math.IsInf(max, -1) {
		return math.Inf(-1)
	}
	sum := 0.0
	for _, x := range xs {
		sum += math.Exp(x - max)
	}
	return max + math.Log(sum)
}

// Cost is the LMSR cost function C(q) = b * ln(exp(qYes/b) + exp(qNo/b)).
func Cost(qYes, qNo, b float64) float64 {
	return b * logSumExp([]float64{qYes / b, qNo / b})
}

// TradeCost is the cost of buying delta additional YES shares at the
// current state (qYes, qNo).
func TradeCost(qYes, qNo, delta, b float64) float64 {
	return Cost(qYes+delta, qNo, b) - Cost(qYes, qNo, b)
}

// QuantitiesFromProbability derives the LMSR quantities (qYes, 0) whose
// instantaneous price equals p, clipping p to [MinProbability,
// MaxProbability] first so the logit never sees 0 or 1.
func QuantitiesFromProbability(p, b float64) (qYes, qNo float64) {
	if p < MinProbability {
		p = MinProbability
	}
	if p > MaxProbability {
		p = MaxProbability
	}
	return b * math.Log(p/(1.0-p)), 0.0
}

// Premium computes the LMSR-derived premium for one unit of coverage at
// risk probability p: seed a virtual market at p, price a one-share YES
// trade, scale by notional, add the loading factor, and floor at
// MinPremiumUSD.
func Premium(p float64, params Params) decimal.Decimal {
	qYes, qNo := QuantitiesFromProbability(p, params.LiquidityB)
	fillCost := TradeCost(qYes, qNo, 1.0, params.LiquidityB)

	raw := decimal.NewFromFloat(fillCost).
		Mul(decimal.NewFromFloat(params.NotionalUSD)).
		Mul(decimal.NewFromFloat(1.0 + params.LoadingFactor)).
		Round(2)

	floor := decimal.NewFromFloat(MinPremiumUSD)
	if raw.LessThan(floor) {
		return floor
	}
	return raw
}

// Quoted builds a full Quote from a forecast estimate's probability and
// confidence bounds, stamping ValidUntil now+DefaultQuoteTTL.
func Quoted(probability, confidenceLower, confidenceUpper float64, params Params, now time.Time) Quote {
	return Quote{
		Probability:     round4(probability),
		ConfidenceLower: round4(confidenceLower),
		ConfidenceUpper: round4(confidenceUpper),
		Premium:         Premium(probability, params),
		Params:          params,
		ValidUntil:      now.Add(DefaultQuoteTTL),
	}
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
