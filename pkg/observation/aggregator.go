// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package observation

import (
	"context"
	"time"

	"github.com/atmx/settlement-oracle/pkg/cell"
	"github.com/atmx/settlement-oracle/pkg/log"
	"golang.org/x/time/rate"
)

// Aggregator fetches station observations for a spatial cell and normalizes
// them into a Bundle for the settlement engine. It never fails the whole
// bundle because of a single station outage — those are logged and
// skipped (see spec.md §4.2).
type Aggregator struct {
	catalogue *cell.Catalogue
	client    *ASOSClient
	limiter   *rate.Limiter
	log       log.Logger
}

// NewAggregator builds an Aggregator. limiter paces outbound station
// fetches so a cell with many stations doesn't burst the upstream archive.
func NewAggregator(catalogue *cell.Catalogue, client *ASOSClient, limiter *rate.Limiter, logger log.Logger) *Aggregator {
	return &Aggregator{catalogue: catalogue, client: client, limiter: limiter, log: logger}
}

// Collect fetches every observation for the stations in cl covering
// [windowStart, windowEnd]. An empty result (no stations, or every station
// erroring out) is a normal Bundle, not an error — the caller decides
// whether that warrants a dispute.
func (a *Aggregator) Collect(ctx context.Context, cl cell.Cell, windowStart, windowEnd time.Time) Bundle {
	bundle := Bundle{
		Cell:        cl,
		WindowStart: windowStart,
		WindowEnd:   windowEnd,
	}

	stations := a.catalogue.StationsInCell(cl)
	for _, station := range stations {
		if err := a.limiter.Wait(ctx); err != nil {
			a.log.Warn("rate limiter wait aborted", log.String("station", station.ID), log.Err(err))
			continue
		}

		rows, err := a.client.fetch(ctx, station.ID, windowStart, windowEnd)
		if err != nil {
			a.log.Warn("station fetch failed, skipping", log.String("station", station.ID), log.Err(err))
			continue
		}

		for _, row := range rows {
			obs, ok := parseRow(station, cl, row)
			if !ok {
				continue
			}
			bundle.Observations = append(bundle.Observations, obs)
		}
	}

	a.log.Info("collected cell observations",
		log.String("cell", string(cl)),
		log.Int("observations", len(bundle.Observations)),
		log.Int("stations_in_cell", len(stations)),
	)
	return bundle
}

// parseRow converts one raw CSV row into an Observation, applying unit
// conversions at ingest time. A row whose timestamp cannot be parsed is
// skipped silently, matching spec.md §4.2.
func parseRow(station cell.Station, cl cell.Cell, row rawRow) (Observation, bool) {
	observedAt, err := time.Parse("2006-01-02 15:04", row.valid)
	if err != nil {
		return Observation{}, false
	}

	obs := Observation{
		StationID:   station.ID,
		Source:      SourceASOS,
		Cell:        cl,
		Latitude:    station.Latitude,
		Longitude:   station.Longitude,
		ObservedAt:  observedAt.UTC(),
		QualityFlag: row.metar,
	}

	obs.PrecipitationMM = safeFloat(row.p01m)
	obs.SnowMM = safeFloat(row.snow)

	if knots := safeFloat(row.sknt); knots != nil {
		ms := KnotsToMS(*knots)
		obs.WindSpeedMS = &ms
	}
	if f := safeFloat(row.tmpf); f != nil {
		c := FahrenheitToCelsius(*f)
		obs.TemperatureC = &c
	}

	return obs, true
}
