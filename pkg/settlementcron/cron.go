// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package settlementcron implements the background supervisor from
// spec.md §4.7: a single-instance loop that discovers expired,
// unsettled contracts and drives them through settlement, sequentially,
// then hands the outcome to the webhook dispatcher.
package settlementcron

import (
	"context"
	"time"

	"github.com/atmx/settlement-oracle/pkg/contract"
	"github.com/atmx/settlement-oracle/pkg/forecast"
	"github.com/atmx/settlement-oracle/pkg/log"
	"github.com/atmx/settlement-oracle/pkg/metric"
	"github.com/atmx/settlement-oracle/pkg/resolution"
	"github.com/atmx/settlement-oracle/pkg/settlement"
	"github.com/atmx/settlement-oracle/pkg/webhook"
)

// DefaultInterval is CRON_INTERVAL's default, per spec.md §4.7.
const DefaultInterval = 30 * time.Second

// Cron is the single-instance supervisor owned by the process entry
// point (start/stop/join), per the Design Notes' background-task
// lifecycle re-architecture — it is not tied to any HTTP framework's
// lifespan hook.
type Cron struct {
	store      settlement.Store
	driver     *settlement.Driver
	dispatcher *webhook.Dispatcher
	interval   time.Duration
	metrics    *metric.Metrics
	log        log.Logger

	stopCh chan struct{}
	doneCh chan struct{}
}

// New builds a Cron. interval <= 0 is replaced with DefaultInterval.
func New(store settlement.Store, driver *settlement.Driver, dispatcher *webhook.Dispatcher, interval time.Duration, m *metric.Metrics, logger log.Logger) *Cron {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Cron{
		store:      store,
		driver:     driver,
		dispatcher: dispatcher,
		interval:   interval,
		metrics:    m,
		log:        logger,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}
}

// Start runs the loop in a new goroutine and returns immediately. Call
// Stop then Join to shut it down cleanly.
func (c *Cron) Start(ctx context.Context) {
	go c.run(ctx)
}

// Stop signals the loop to exit after its current tick. It does not
// block — call Join to wait for the loop to actually finish.
func (c *Cron) Stop() {
	close(c.stopCh)
}

// Join blocks until the loop has returned, or ctx is done first.
func (c *Cron) Join(ctx context.Context) error {
	select {
	case <-c.doneCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Cron) run(ctx context.Context) {
	defer close(c.doneCh)
	c.log.Info("settlement cron started", log.Duration("interval", c.interval))

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			c.log.Info("settlement cron stopping")
			return
		case <-ctx.Done():
			c.log.Info("settlement cron stopping: context cancelled")
			return
		case <-ticker.C:
			c.tick(ctx)
		}
	}
}

// tick is one pass: list expired, unsettled contracts and settle each in
// turn. A panic-free per-contract error is logged and skipped so the
// contract is retried on the next tick; a loop-level failure (listing
// itself erroring) is logged and the tick simply does nothing this time.
func (c *Cron) tick(ctx context.Context) {
	start := time.Now()
	defer func() {
		if c.metrics != nil {
			c.metrics.CronTicks.Inc()
			c.metrics.CronTickDuration.Observe(time.Since(start).Seconds())
		}
	}()

	expired, err := c.store.ListExpiredContracts(time.Now().UTC())
	if err != nil {
		c.log.Error("settlement cron: failed to list expired contracts", log.Err(err))
		if c.metrics != nil {
			c.metrics.CronTickFailures.Inc()
		}
		return
	}
	if len(expired) == 0 {
		return
	}

	c.log.Info("settlement cron: found expired contracts", log.Int("count", len(expired)))

	// Settled sequentially, not fanned out, so the hash chain stays
	// linearizable (spec.md §5: "the cron settles expired contracts
	// sequentially within a tick").
	for _, ct := range expired {
		c.settleOne(ctx, ct)
	}
}

func (c *Cron) settleOne(ctx context.Context, ct *contract.Contract) {
	record, err := c.driver.Settle(ctx, ct.ID, nil)
	if err != nil {
		c.log.Error("settlement cron: settlement failed, will retry next tick",
			log.String("contract_id", ct.ID.String()), log.Err(err))
		return
	}

	eventType := classifyEvent(record.Outcome)
	event := webhook.Event{
		EventType:     eventType,
		ContractID:    ct.ID.String(),
		Cell:          string(ct.Cell),
		RiskType:      classifyRiskType(ct.Metric, ct.Threshold),
		Outcome:       string(record.Outcome),
		ObservedValue: record.ObservedValue,
		SettledAt:     &record.SettledAt,
		RecordHash:    record.RecordHash,
		Timestamp:     time.Now().UTC(),
	}

	delivered := c.dispatcher.Dispatch(ctx, event)
	c.log.Info("settlement cron: dispatched event",
		log.String("contract_id", ct.ID.String()),
		log.String("event_type", string(eventType)),
		log.Int("delivered", delivered),
	)
}

// classifyEvent maps a settlement outcome to the webhook event-type token,
// per spec.md §4.7: {YES, NO} -> settled, DISPUTED -> disputed, anything
// else -> expired (a defensive fallback; resolution.Resolve never actually
// returns a fourth outcome today).
func classifyEvent(outcome resolution.Outcome) webhook.EventType {
	switch outcome {
	case resolution.OutcomeYes, resolution.OutcomeNo:
		return webhook.EventSettled
	case resolution.OutcomeDisputed:
		return webhook.EventDisputed
	default:
		return webhook.EventExpired
	}
}

// classifyRiskType ports settlement_cron.py's _map_metric_to_risk_type: the
// webhook payload's risk_type tag (spec.md §6) isn't derivable from the
// contract's metric alone, so threshold participates in the split exactly
// as the original source does. Delegates to forecast.ClassifyRiskType,
// which the pricing quote path shares, so the mapping lives in one place.
func classifyRiskType(m contract.Metric, threshold float64) string {
	return string(forecast.ClassifyRiskType(m, threshold))
}
