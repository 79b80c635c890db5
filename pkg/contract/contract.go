// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package contract defines the weather-derivative contract: the question
// a settlement answers.
package contract

import (
	"fmt"
	"math"
	"time"

	"github.com/atmx/settlement-oracle/pkg/apperr"
	"github.com/atmx/settlement-oracle/pkg/cell"
	"github.com/atmx/settlement-oracle/pkg/ids"
)

// Metric identifies which observed quantity a contract is written against.
type Metric string

const (
	MetricPrecipitation Metric = "precipitation"
	MetricWindSpeed     Metric = "wind_speed"
	MetricTemperature   Metric = "temperature"
	MetricSnow          Metric = "snow"
)

func (m Metric) valid() bool {
	switch m {
	case MetricPrecipitation, MetricWindSpeed, MetricTemperature, MetricSnow:
		return true
	default:
		return false
	}
}

const (
	// MinWindowHours and MaxWindowHours bound the settlement window per
	// spec.md §3 ("window duration (positive integer hours, 1..168)").
	MinWindowHours = 1
	MaxWindowHours = 168
)

// Contract is the immutable question a settlement answers: did Metric in
// Cell exceed Threshold during the window ending at Expiry.
type Contract struct {
	ID          ids.ID    `json:"id"`
	Cell        cell.Cell `json:"cell"`
	Metric      Metric    `json:"metric"`
	Threshold   float64   `json:"threshold"`
	Unit        string    `json:"unit"`
	WindowHours int       `json:"window_hours"`
	Expiry      time.Time `json:"expiry"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Spec is the input to New: everything a caller supplies when creating a
// contract. ID and CreatedAt are assigned by New.
type Spec struct {
	Cell        cell.Cell
	Metric      Metric
	Threshold   float64
	Unit        string
	WindowHours int
	Expiry      time.Time
	Description string
}

// New validates spec and returns a new immutable Contract.
//
// Invariants enforced: window duration > 0 and <= 168h, expiry strictly in
// the future, metric is one of the known enumeration values, threshold is
// finite and positive (temperature contracts may legitimately use a
// negative threshold for freeze risk, so only finiteness is required for
// that metric).
func New(spec Spec, now time.Time) (*Contract, error) {
	if !spec.Metric.valid() {
		return nil, fmt.Errorf("%w: unknown metric %q", apperr.ErrValidation, spec.Metric)
	}
	if spec.WindowHours < MinWindowHours || spec.WindowHours > MaxWindowHours {
		return nil, fmt.Errorf("%w: window_hours must be in [%d, %d], got %d",
			apperr.ErrValidation, MinWindowHours, MaxWindowHours, spec.WindowHours)
	}
	if !spec.Expiry.After(now) {
		return nil, fmt.Errorf("%w: expiry must be strictly in the future", apperr.ErrValidation)
	}
	if spec.Cell == "" {
		return nil, fmt.Errorf("%w: cell must not be empty", apperr.ErrValidation)
	}
	if math.IsNaN(spec.Threshold) || math.IsInf(spec.Threshold, 0) {
		return nil, fmt.Errorf("%w: threshold must be finite", apperr.ErrValidation)
	}
	if spec.Metric != MetricTemperature {
		if spec.Threshold <= 0 {
			return nil, fmt.Errorf("%w: threshold must be positive for metric %q", apperr.ErrValidation, spec.Metric)
		}
	}

	return &Contract{
		ID:          ids.New(),
		Cell:        spec.Cell,
		Metric:      spec.Metric,
		Threshold:   spec.Threshold,
		Unit:        spec.Unit,
		WindowHours: spec.WindowHours,
		Expiry:      spec.Expiry.UTC(),
		Description: spec.Description,
		CreatedAt:   now.UTC(),
	}, nil
}

// Window returns the [start, end] observation window implied by Expiry and
// WindowHours.
func (c *Contract) Window() (start, end time.Time) {
	end = c.Expiry
	start = end.Add(-time.Duration(c.WindowHours) * time.Hour)
	return start, end
}

// Expired reports whether the contract is eligible for settlement at now.
func (c *Contract) Expired(now time.Time) bool {
	return !now.Before(c.Expiry)
}
