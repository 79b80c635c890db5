// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package config loads the platform's tunables from the environment into
// a single immutable Config value, per the Design Notes' instruction to
// replace scattered module-level settings with one object threaded
// through constructors. There is no package-level mutable singleton.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/atmx/settlement-oracle/pkg/pricing"
	"github.com/atmx/settlement-oracle/pkg/resolution"
	"github.com/atmx/settlement-oracle/pkg/webhook"
)

// Config bundles every environment-tunable default spec.md §4 names.
type Config struct {
	Port string

	// Resolution (§4.3)
	MinStations         int
	DisputedSpreadRatio float64

	// Settlement cron (§4.7)
	CronInterval time.Duration

	// Webhook dispatcher (§4.9)
	WebhookTimeout time.Duration
	WebhookMaxRetries int
	WebhookInitialDelay time.Duration
	WebhookMaxDelay     time.Duration

	// LMSR pricing (§4.5)
	LiquidityB    float64
	LoadingFactor float64
	NotionalUSD   float64

	// Upstream endpoints (§6)
	ASOSBaseURL       string
	ASOSTimeout       time.Duration
	NWSBaseURL        string
	NWSTimeout        time.Duration
	MarketEngineURL   string
	MarketEngineTimeout time.Duration
}

// Load reads every setting from the environment, falling back to
// spec.md's documented defaults when a variable is unset or malformed.
func Load() Config {
	return Config{
		Port: getString("PORT", "8080"),

		MinStations:         getInt("MIN_STATIONS", resolution.DefaultMinStations),
		DisputedSpreadRatio: getFloat("DISPUTED_SPREAD_RATIO", resolution.DefaultDisputedSpreadRatio),

		CronInterval: getDurationSeconds("CRON_INTERVAL", 30),

		WebhookTimeout:      getDurationSeconds("WEBHOOK_TIMEOUT", 10),
		WebhookMaxRetries:   getInt("MAX_RETRIES", 3),
		WebhookInitialDelay: time.Second,
		WebhookMaxDelay:     30 * time.Second,

		LiquidityB:    getFloat("LMSR_B", pricing.DefaultLiquidityB),
		LoadingFactor: getFloat("LOADING_FACTOR", pricing.DefaultLoadingFactor),
		NotionalUSD:   getFloat("NOTIONAL_USD", pricing.DefaultNotionalUSD),

		ASOSBaseURL:         getString("ASOS_BASE_URL", "https://mesonet.agron.iastate.edu/cgi-bin/request/asos.py"),
		ASOSTimeout:         getDurationSeconds("ASOS_TIMEOUT", 15),
		NWSBaseURL:          getString("NWS_BASE_URL", "https://api.weather.gov"),
		NWSTimeout:          getDurationSeconds("NWS_TIMEOUT", 10),
		MarketEngineURL:     getString("MARKET_ENGINE_URL", "http://localhost:9090"),
		MarketEngineTimeout: getDurationSeconds("MARKET_ENGINE_TIMEOUT", 10),
	}
}

// ResolutionParams projects the resolution-relevant fields into a
// resolution.Params value.
func (c Config) ResolutionParams() resolution.Params {
	return resolution.Params{
		MinStations:         c.MinStations,
		DisputedSpreadRatio: c.DisputedSpreadRatio,
	}
}

// PricingParams projects the pricing-relevant fields into a
// pricing.Params value.
func (c Config) PricingParams() pricing.Params {
	return pricing.Params{
		LiquidityB:    c.LiquidityB,
		LoadingFactor: c.LoadingFactor,
		NotionalUSD:   c.NotionalUSD,
	}
}

// DispatcherConfig projects the webhook-relevant fields into a
// webhook.DispatcherConfig value.
func (c Config) DispatcherConfig() webhook.DispatcherConfig {
	return webhook.DispatcherConfig{
		Timeout:      c.WebhookTimeout,
		MaxRetries:   c.WebhookMaxRetries,
		InitialDelay: c.WebhookInitialDelay,
		MaxDelay:     c.WebhookMaxDelay,
	}
}

func getString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func getDurationSeconds(key string, defSeconds int) time.Duration {
	n := getInt(key, defSeconds)
	return time.Duration(n) * time.Second
}
