// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package settlementcron

import (
	"testing"
	"time"

	"github.com/atmx/settlement-oracle/pkg/cell"
	"github.com/atmx/settlement-oracle/pkg/contract"
	"github.com/atmx/settlement-oracle/pkg/ids"
	"github.com/atmx/settlement-oracle/pkg/log"
	"github.com/atmx/settlement-oracle/pkg/observation"
	"github.com/atmx/settlement-oracle/pkg/resolution"
	"github.com/atmx/settlement-oracle/pkg/settlement"
	"github.com/atmx/settlement-oracle/pkg/webhook"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

// TestCron_TickChainsSettlementsInOrder is spec.md §8 scenario 6: three
// contracts with consecutive past expiries, settled in one tick, produce
// exactly three hash-linked records.
func TestCron_TickChainsSettlementsInOrder(t *testing.T) {
	require := require.New(t)

	store := settlement.NewMemoryStore()
	now := time.Now().UTC()

	// "cell-empty" has no stations in the catalogue, so Collect never
	// touches the network: every contract disputes on "no stations found
	// in cell", but still produces a hash-chained record.
	catalogue := cell.NewCatalogue(nil)
	aggregator := observation.NewAggregator(catalogue, observation.NewASOSClient("http://unused.invalid", time.Second, log.NoOp()), rate.NewLimiter(rate.Inf, 1), log.NoOp())

	driver := settlement.NewDriver(store, aggregator, resolution.DefaultParams(), nil, log.NoOp(), nil)
	webhookStore := webhook.NewStore()
	dispatcher := webhook.NewDispatcher(webhookStore, webhook.DefaultDispatcherConfig(), nil, log.NoOp())

	cron := New(store, driver, dispatcher, time.Hour, nil, log.NoOp())

	var contractIDs []ids.ID
	for i := 0; i < 3; i++ {
		expiry := now.Add(time.Duration(-3+i) * time.Hour)
		c, err := contract.New(contract.Spec{
			Cell:        "cell-empty",
			Metric:      contract.MetricPrecipitation,
			Threshold:   10,
			Unit:        "mm",
			WindowHours: 1,
			Expiry:      expiry,
		}, expiry.Add(-48*time.Hour))
		require.NoError(err)
		require.NoError(store.CreateContract(c))
		contractIDs = append(contractIDs, c.ID)
	}

	cron.tick(t.Context())

	records := make([]*settlement.Record, 0, 3)
	for _, id := range contractIDs {
		r, ok := store.GetSettlementByContract(id)
		require.True(ok, "contract %s was not settled", id)
		records = append(records, r)
	}

	require.Len(records, 3)
	for _, r := range records {
		require.Equal(resolution.OutcomeDisputed, r.Outcome, "empty cell must dispute, never YES/NO")
		require.NotEmpty(r.RecordHash)
	}

	require.Equal(records[1].PreviousHash, records[0].RecordHash)
	require.Equal(records[2].PreviousHash, records[1].RecordHash)

	hashes := map[string]struct{}{}
	for _, r := range records {
		hashes[r.RecordHash] = struct{}{}
	}
	require.Len(hashes, 3, "all three record hashes must be distinct")

	again, err := store.ListExpiredContracts(now)
	require.NoError(err)
	require.Empty(again, "all three contracts should be settled, none left expired-and-unsettled")
}
