// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Command settlementd is the process entry point: it wires configuration,
// the record store, the observation aggregator, the pricing and
// forecast/market adapters, the settlement cron, and the webhook
// dispatcher, then serves a thin admin HTTP surface on top (health,
// manual settle, contract and webhook CRUD). The full public API — auth,
// rate limiting, OpenAPI docs — is explicitly out of scope; this mux
// exists only so the core can be exercised without a second process.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/atmx/settlement-oracle/pkg/cell"
	"github.com/atmx/settlement-oracle/pkg/config"
	"github.com/atmx/settlement-oracle/pkg/forecast"
	"github.com/atmx/settlement-oracle/pkg/log"
	"github.com/atmx/settlement-oracle/pkg/market"
	"github.com/atmx/settlement-oracle/pkg/metric"
	"github.com/atmx/settlement-oracle/pkg/observation"
	"github.com/atmx/settlement-oracle/pkg/pricing"
	"github.com/atmx/settlement-oracle/pkg/settlement"
	"github.com/atmx/settlement-oracle/pkg/settlementcron"
	"github.com/atmx/settlement-oracle/pkg/webhook"
	"golang.org/x/time/rate"
)

var logLevel = flag.String("log-level", "info", "Log level (debug, info, warn, error)")

// App is the fully-wired platform. It exists as a struct, not a pile of
// package-level globals, per the Design Notes' "global singletons"
// re-architecture — tests and a second instance in the same process can
// each build their own App.
type App struct {
	cfg        config.Config
	log        log.Logger
	metrics    *metric.Metrics
	store      settlement.Store
	catalogue  *cell.Catalogue
	aggregator *observation.Aggregator
	driver     *settlement.Driver
	cron       *settlementcron.Cron
	webhooks   *webhook.Store
	dispatcher *webhook.Dispatcher
	forecaster *forecast.Provider
	market     *market.Client
	pricing    pricing.Params
}

func main() {
	flag.Parse()

	logger := log.NewWithLevel(*logLevel)
	defer logger.Sync()

	app, err := newApp(logger)
	if err != nil {
		logger.Fatal("failed to initialize settlementd", log.Err(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	app.cron.Start(ctx)

	srv := &http.Server{
		Addr:    ":" + app.cfg.Port,
		Handler: app.routes(),
	}

	go func() {
		logger.Info("admin HTTP server listening", log.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("admin HTTP server error", log.Err(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("settlementd shutting down")
	app.cron.Stop()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("admin HTTP server shutdown error", log.Err(err))
	}
	if err := app.cron.Join(shutdownCtx); err != nil {
		logger.Warn("settlement cron did not stop cleanly", log.Err(err))
	}
	logger.Info("settlementd stopped")
}

func newApp(logger log.Logger) (*App, error) {
	cfg := config.Load()

	metrics, err := metric.NewMetrics()
	if err != nil {
		return nil, fmt.Errorf("build metrics registry: %w", err)
	}

	store := settlement.NewMemoryStore()
	catalogue := cell.NewCatalogue(cell.DefaultStations())

	asosClient := observation.NewASOSClient(cfg.ASOSBaseURL, cfg.ASOSTimeout, logger.With(log.String("component", "asos")))
	limiter := rate.NewLimiter(rate.Limit(5), 5)
	aggregator := observation.NewAggregator(catalogue, asosClient, limiter, logger.With(log.String("component", "aggregator")))

	driver := settlement.NewDriver(store, aggregator, cfg.ResolutionParams(), metrics, logger.With(log.String("component", "driver")), nil)

	webhookStore := webhook.NewStore()
	dispatcher := webhook.NewDispatcher(webhookStore, cfg.DispatcherConfig(), metrics, logger.With(log.String("component", "webhook")))

	cron := settlementcron.New(store, driver, dispatcher, cfg.CronInterval, metrics, logger.With(log.String("component", "cron")))

	nwsClient := forecast.NewNWSClient(cfg.NWSBaseURL, cfg.NWSTimeout, logger.With(log.String("component", "nws")))
	forecaster := forecast.NewProvider(nwsClient, logger.With(log.String("component", "forecast")))

	marketClient := market.NewClient(cfg.MarketEngineURL, cfg.MarketEngineTimeout)

	return &App{
		cfg:        cfg,
		log:        logger,
		metrics:    metrics,
		store:      store,
		catalogue:  catalogue,
		aggregator: aggregator,
		driver:     driver,
		cron:       cron,
		webhooks:   webhookStore,
		dispatcher: dispatcher,
		forecaster: forecaster,
		market:     marketClient,
		pricing:    cfg.PricingParams(),
	}, nil
}
