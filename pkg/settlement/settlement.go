// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package settlement implements the settlement record type and the store
// and driver that produce and persist it, per spec.md §4.4 and §4.6.
package settlement

import (
	"time"

	"github.com/atmx/settlement-oracle/pkg/contract"
	"github.com/atmx/settlement-oracle/pkg/ids"
	"github.com/atmx/settlement-oracle/pkg/observation"
	"github.com/atmx/settlement-oracle/pkg/resolution"
)

// Record is the immutable settlement verdict for one contract. Once
// appended to a Store it is never mutated.
type Record struct {
	ID              ids.ID                 `json:"id"`
	ContractID      ids.ID                 `json:"contract_id"`
	Outcome         resolution.Outcome     `json:"outcome"`
	ObservedValue   *float64               `json:"observed_value"`
	Threshold       float64                `json:"threshold"`
	Unit            string                 `json:"unit"`
	StationsUsed    int                    `json:"stations_used"`
	StationReadings map[string]*float64    `json:"station_readings"`
	Evidence        Evidence               `json:"evidence"`
	DisputeReason   string                 `json:"dispute_reason,omitempty"`
	PreviousHash    string                 `json:"previous_hash,omitempty"`
	RecordHash      string                 `json:"record_hash"`
	SettledAt       time.Time              `json:"settled_at"`
}

// Evidence is the structured audit trail behind a Record: a snapshot of
// the contract, the window queried, every raw observation considered, and
// the determination reached.
type Evidence struct {
	Contract        ContractSnapshot        `json:"contract"`
	WindowStart     time.Time               `json:"window_start"`
	WindowEnd       time.Time               `json:"window_end"`
	Observations    []observation.Observation `json:"observations"`
	Determination   Determination           `json:"determination"`
}

// ContractSnapshot freezes the contract fields relevant to the
// determination at settlement time, independent of any later mutation to
// the live Contract value (contracts are immutable, but the evidence
// payload should not depend on that holding forever).
type ContractSnapshot struct {
	ID          ids.ID          `json:"id"`
	Cell        string          `json:"cell"`
	Metric      contract.Metric `json:"metric"`
	Threshold   float64         `json:"threshold"`
	Unit        string          `json:"unit"`
	WindowHours int             `json:"window_hours"`
	Expiry      time.Time       `json:"expiry"`
}

// Determination is the outcome half of the evidence payload.
type Determination struct {
	Outcome       resolution.Outcome `json:"outcome"`
	ObservedValue *float64           `json:"observed_value"`
	Threshold     float64            `json:"threshold"`
	Exceeded      *bool              `json:"exceeded"`
}

// hashPayload is the exact structure hashed into the chain. Its field set
// is deliberately narrower than Evidence — the chain binds the
// determination, not the full observation dump, matching spec.md §4.6
// step 8.
type hashPayload struct {
	ContractID      ids.ID              `json:"contract_id"`
	Outcome         resolution.Outcome  `json:"outcome"`
	ObservedValue   *float64            `json:"observed_value"`
	Threshold       float64             `json:"threshold"`
	SettledAt       time.Time           `json:"settled_at"`
	StationReadings map[string]*float64 `json:"station_readings"`
}
