// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package cell provides the opaque spatial-cell identifier and the
// in-memory station catalogue used to discover which stations cover a
// given cell.
//
// No H3 Go binding is available anywhere in the examples this module was
// grounded on, so cells are precomputed opaque strings assigned to each
// station at catalogue-build time rather than derived from latitude and
// longitude through an H3 library call. The Cell type still honors the
// spec's contract that callers must treat the string as opaque.
package cell

import "strings"

// Cell is an opaque identifier for a hexagonal geographic region. Callers
// must not parse or derive meaning from its contents.
type Cell string

// Station is a known ASOS/AWOS/MANUAL observation station.
type Station struct {
	ID        string
	Cell      Cell
	Latitude  float64
	Longitude float64
}

// Catalogue is the immutable in-memory lookup table returned by
// NewCatalogue. It is built once at process start, per the Design Notes'
// instruction to replace module-load-time population with an explicit
// initializer.
type Catalogue struct {
	stationsByCell map[Cell][]Station
	stationsByID   map[string]Station
}

// NewCatalogue builds a Catalogue from a fixed list of stations. Ten
// representative ASOS stations (ported from the retrieved Python source's
// STATION_COORDS table) are provided by DefaultStations.
func NewCatalogue(stations []Station) *Catalogue {
	c := &Catalogue{
		stationsByCell: make(map[Cell][]Station),
		stationsByID:   make(map[string]Station, len(stations)),
	}
	for _, s := range stations {
		c.stationsByCell[s.Cell] = append(c.stationsByCell[s.Cell], s)
		c.stationsByID[s.ID] = s
	}
	return c
}

// StationsInCell returns the known stations whose coordinates fall inside
// cell. An empty slice is a normal outcome, not an error.
func (c *Catalogue) StationsInCell(cl Cell) []Station {
	return c.stationsByCell[cl]
}

// Station looks up a single station by id.
func (c *Catalogue) Station(id string) (Station, bool) {
	s, ok := c.stationsByID[id]
	return s, ok
}

// Centroid returns the mean latitude/longitude of the stations assigned
// to cl, for callers (the forecast adapter) that need a representative
// point for an otherwise-opaque cell. ok is false for an empty cell.
func (c *Catalogue) Centroid(cl Cell) (lat, lon float64, ok bool) {
	stations := c.stationsByCell[cl]
	if len(stations) == 0 {
		return 0, 0, false
	}
	for _, s := range stations {
		lat += s.Latitude
		lon += s.Longitude
	}
	n := float64(len(stations))
	return lat / n, lon / n, true
}

// DefaultStations is the representative ASOS station sample the settlement
// engine ships with. Cell assignments are stable, opaque placeholders (one
// cell per station, "cell-<station id lowercased>") standing in for a real
// H3 index at a fixed resolution.
func DefaultStations() []Station {
	raw := []struct {
		id       string
		lat, lon float64
	}{
		{"KJFK", 40.6413, -73.7781},
		{"KLAX", 33.9425, -118.4081},
		{"KORD", 41.9742, -87.9073},
		{"KATL", 33.6407, -84.4277},
		{"KDEN", 39.8561, -104.6737},
		{"KDFW", 32.8998, -97.0403},
		{"KSFO", 37.6213, -122.3790},
		{"KBOS", 42.3656, -71.0096},
		{"KMIA", 25.7959, -80.2870},
		{"KSEA", 47.4502, -122.3088},
	}

	stations := make([]Station, 0, len(raw))
	for _, r := range raw {
		stations = append(stations, Station{
			ID:        r.id,
			Cell:      stationCell(r.id),
			Latitude:  r.lat,
			Longitude: r.lon,
		})
	}
	return stations
}

func stationCell(stationID string) Cell {
	return Cell("cell-" + strings.ToLower(stationID))
}
