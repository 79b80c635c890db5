// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package forecast

import (
	"context"

	"github.com/atmx/settlement-oracle/pkg/log"
)

// Provider estimates exceedance probability for a risk type, preferring
// the live NWS gridpoint forecast and falling back to the climatological
// baseline whenever the upstream is unreachable or has nothing usable for
// the window — spec.md §7's documented pricing fallback path.
type Provider struct {
	nws *NWSClient
	log log.Logger
}

// NewProvider builds a Provider around nws. nws may be nil to force the
// climatological baseline unconditionally (useful in tests and in
// deployments that opt out of calling NWS).
func NewProvider(nws *NWSClient, logger log.Logger) *Provider {
	return &Provider{nws: nws, log: logger}
}

// Estimate returns the best available forecast for (lat, lon, riskType,
// window).
func (p *Provider) Estimate(ctx context.Context, lat, lon float64, riskType RiskType, window Window) Estimate {
	if p.nws != nil {
		if est, ok := p.nws.Fetch(ctx, lat, lon, riskType, window); ok {
			return est
		}
		p.log.Info("forecast falling back to climatological baseline",
			log.String("risk_type", string(riskType)))
	}
	return Climatological(lat, riskType, window.Start)
}
