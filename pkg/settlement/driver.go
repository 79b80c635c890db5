// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package settlement

import (
	"context"
	"fmt"
	"time"

	"github.com/atmx/settlement-oracle/pkg/apperr"
	"github.com/atmx/settlement-oracle/pkg/contract"
	"github.com/atmx/settlement-oracle/pkg/hashchain"
	"github.com/atmx/settlement-oracle/pkg/ids"
	"github.com/atmx/settlement-oracle/pkg/log"
	"github.com/atmx/settlement-oracle/pkg/metric"
	"github.com/atmx/settlement-oracle/pkg/observation"
	"github.com/atmx/settlement-oracle/pkg/resolution"
)

// NowFunc is the injectable clock. Tests supply a fixed instant so
// SettledAt is deterministic.
type NowFunc func() time.Time

// Driver is the settlement orchestration routine from spec.md §4.6: load
// → idempotency check → aggregate → resolve → hash → persist.
type Driver struct {
	store      Store
	aggregator *observation.Aggregator
	params     resolution.Params
	now        NowFunc
	metrics    *metric.Metrics
	log        log.Logger
}

// NewDriver builds a Driver. now defaults to time.Now if nil.
func NewDriver(store Store, aggregator *observation.Aggregator, params resolution.Params, m *metric.Metrics, logger log.Logger, now NowFunc) *Driver {
	if now == nil {
		now = time.Now
	}
	return &Driver{store: store, aggregator: aggregator, params: params, now: now, metrics: m, log: logger}
}

// Settle implements spec.md §4.6. bundle, when non-nil, is used in place
// of a live aggregator fetch — the injection point the tests rely on. The
// cron and the manual-settle admin endpoint pass nil and fetch live.
func (d *Driver) Settle(ctx context.Context, contractID ids.ID, bundle *observation.Bundle) (*Record, error) {
	c, err := d.store.GetContract(contractID)
	if err != nil {
		return nil, err
	}

	if existing, ok := d.store.GetSettlementByContract(contractID); ok {
		d.log.Info("settlement already exists, returning idempotently", log.String("contract_id", contractID.String()))
		return existing, nil
	}

	windowStart, windowEnd := c.Window()

	var b observation.Bundle
	if bundle != nil {
		b = *bundle
	} else {
		b = d.aggregator.Collect(ctx, c.Cell, windowStart, windowEnd)
	}

	res := resolution.Resolve(c, b, d.params)

	evidence := buildEvidence(c, b, windowStart, windowEnd, res)

	settledAt := d.now().UTC()
	previousHash := d.store.LatestSettlementHash()

	payload := hashPayload{
		ContractID:      c.ID,
		Outcome:         res.Outcome,
		ObservedValue:   res.ObservedValue,
		Threshold:       c.Threshold,
		SettledAt:       settledAt,
		StationReadings: res.StationReadings,
	}
	recordHash, err := hashchain.Hash(payload, previousHash)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrIntegrity, err)
	}

	record := &Record{
		ID:              ids.New(),
		ContractID:      c.ID,
		Outcome:         res.Outcome,
		ObservedValue:   res.ObservedValue,
		Threshold:       c.Threshold,
		Unit:            c.Unit,
		StationsUsed:    b.StationCount(),
		StationReadings: res.StationReadings,
		Evidence:        evidence,
		DisputeReason:   res.DisputeReason,
		PreviousHash:    previousHash,
		RecordHash:      recordHash,
		SettledAt:       settledAt,
	}

	if err := d.store.AppendSettlement(record); err != nil {
		if apperr.Is(err, apperr.ErrConflict) {
			if existing, ok := d.store.GetSettlementByContract(contractID); ok {
				d.log.Info("lost settlement race, returning winning record", log.String("contract_id", contractID.String()))
				return existing, nil
			}
		}
		return nil, err
	}

	if d.metrics != nil {
		d.metrics.SettlementsProcessed.WithLabelValues(string(res.Outcome)).Inc()
	}
	d.log.Info("settled contract",
		log.String("contract_id", c.ID.String()),
		log.String("outcome", string(res.Outcome)),
	)
	return record, nil
}

func buildEvidence(c *contract.Contract, b observation.Bundle, windowStart, windowEnd time.Time, res resolution.Result) Evidence {
	var exceeded *bool
	if res.ObservedValue != nil {
		e := *res.ObservedValue > c.Threshold
		exceeded = &e
	}
	return Evidence{
		Contract: ContractSnapshot{
			ID:          c.ID,
			Cell:        string(c.Cell),
			Metric:      c.Metric,
			Threshold:   c.Threshold,
			Unit:        c.Unit,
			WindowHours: c.WindowHours,
			Expiry:      c.Expiry,
		},
		WindowStart:  windowStart,
		WindowEnd:    windowEnd,
		Observations: b.Observations,
		Determination: Determination{
			Outcome:       res.Outcome,
			ObservedValue: res.ObservedValue,
			Threshold:     c.Threshold,
			Exceeded:      exceeded,
		},
	}
}
