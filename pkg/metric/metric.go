// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package metric holds the prometheus instrumentation for the settlement
// platform: settlements processed, webhook deliveries, cron tick duration,
// and pricing quotes issued.
package metric

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds every prometheus collector used by the platform.
type Metrics struct {
	registry *prometheus.Registry

	SettlementsProcessed *prometheus.CounterVec
	SettlementDuration   prometheus.Histogram

	CronTicks        prometheus.Counter
	CronTickDuration prometheus.Histogram
	CronTickFailures prometheus.Counter

	WebhookDeliveryAttempts *prometheus.CounterVec
	WebhookDeliveryDuration prometheus.Histogram

	PricingQuotesIssued prometheus.Counter
}

// NewMetrics creates and registers every collector against a fresh registry.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,

		SettlementsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "settlement_outcomes_total",
			Help: "Total number of contracts settled, labeled by outcome.",
		}, []string{"outcome"}),

		SettlementDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "settlement_duration_seconds",
			Help:    "Time to settle a single contract end to end.",
			Buckets: prometheus.DefBuckets,
		}),

		CronTicks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "settlement_cron_ticks_total",
			Help: "Total number of settlement cron ticks executed.",
		}),

		CronTickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "settlement_cron_tick_duration_seconds",
			Help:    "Wall-clock duration of a single settlement cron tick.",
			Buckets: prometheus.DefBuckets,
		}),

		CronTickFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "settlement_cron_tick_failures_total",
			Help: "Total number of settlement cron ticks that errored at the loop level.",
		}),

		WebhookDeliveryAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "webhook_delivery_attempts_total",
			Help: "Total webhook delivery attempts, labeled by result.",
		}, []string{"result"}),

		WebhookDeliveryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "webhook_delivery_duration_seconds",
			Help:    "Time to deliver (including retries) a single webhook.",
			Buckets: prometheus.DefBuckets,
		}),

		PricingQuotesIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pricing_quotes_issued_total",
			Help: "Total number of LMSR premium quotes computed.",
		}),
	}

	collectors := []prometheus.Collector{
		m.SettlementsProcessed, m.SettlementDuration,
		m.CronTicks, m.CronTickDuration, m.CronTickFailures,
		m.WebhookDeliveryAttempts, m.WebhookDeliveryDuration,
		m.PricingQuotesIssued,
	}
	for _, c := range collectors {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// GetGatherer returns the prometheus gatherer for metrics export.
func (m *Metrics) GetGatherer() prometheus.Gatherer {
	return m.registry
}

// GetRegisterer returns the prometheus registerer.
func (m *Metrics) GetRegisterer() prometheus.Registerer {
	return m.registry
}
