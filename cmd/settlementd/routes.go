// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/atmx/settlement-oracle/pkg/apperr"
	"github.com/atmx/settlement-oracle/pkg/cell"
	"github.com/atmx/settlement-oracle/pkg/contract"
	"github.com/atmx/settlement-oracle/pkg/forecast"
	"github.com/atmx/settlement-oracle/pkg/ids"
	"github.com/atmx/settlement-oracle/pkg/log"
	"github.com/atmx/settlement-oracle/pkg/pricing"
	"github.com/atmx/settlement-oracle/pkg/webhook"
	"github.com/gorilla/mux"
)

// routes builds the thin admin surface spec.md §1 and SPEC_FULL.md's
// supplemented-features section call for: health, contract
// creation/lookup/manual-settle, and webhook registration management. No
// auth, no rate limiting, no OpenAPI — the full public API is out of
// scope.
func (a *App) routes() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", a.handleHealth).Methods(http.MethodGet)

	r.HandleFunc("/admin/contracts", a.handleCreateContract).Methods(http.MethodPost)
	r.HandleFunc("/admin/contracts/{id}", a.handleGetContract).Methods(http.MethodGet)
	r.HandleFunc("/admin/contracts/{id}/settle", a.handleSettleContract).Methods(http.MethodPost)
	r.HandleFunc("/admin/contracts/{id}/quote", a.handleQuoteContract).Methods(http.MethodGet)

	r.HandleFunc("/admin/webhooks", a.handleRegisterWebhook).Methods(http.MethodPost)
	r.HandleFunc("/admin/webhooks", a.handleListWebhooks).Methods(http.MethodGet)
	r.HandleFunc("/admin/webhooks/{id}", a.handleDeleteWebhook).Methods(http.MethodDelete)

	return r
}

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type createContractRequest struct {
	Cell        string  `json:"cell"`
	Metric      string  `json:"metric"`
	Threshold   float64 `json:"threshold"`
	Unit        string  `json:"unit"`
	WindowHours int     `json:"window_hours"`
	Expiry      string  `json:"expiry"`
	Description string  `json:"description"`
}

func (a *App) handleCreateContract(w http.ResponseWriter, r *http.Request) {
	var req createContractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	expiry, err := time.Parse(time.RFC3339, req.Expiry)
	if err != nil {
		writeError(w, http.StatusBadRequest, "expiry must be RFC3339")
		return
	}

	c, err := contract.New(contract.Spec{
		Cell:        cell.Cell(req.Cell),
		Metric:      contract.Metric(req.Metric),
		Threshold:   req.Threshold,
		Unit:        req.Unit,
		WindowHours: req.WindowHours,
		Expiry:      expiry,
		Description: req.Description,
	}, time.Now())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := a.store.CreateContract(c); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}

	// Market creation is a non-fatal side effect of contract creation per
	// spec.md §6: a failure here never fails the contract, it's logged and
	// ignored.
	if _, err := a.market.CreateMarket(r.Context(), c.ID.String(), 0); err != nil {
		a.log.Warn("market engine create-market failed, continuing without a market",
			log.String("contract_id", c.ID.String()), log.Err(err))
	}

	writeJSON(w, http.StatusCreated, c)
}

func (a *App) handleGetContract(w http.ResponseWriter, r *http.Request) {
	id, err := ids.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid contract id")
		return
	}

	c, err := a.store.GetContract(id)
	if err != nil {
		writeErrorFromTaxonomy(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (a *App) handleSettleContract(w http.ResponseWriter, r *http.Request) {
	id, err := ids.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid contract id")
		return
	}

	record, err := a.driver.Settle(r.Context(), id, nil)
	if err != nil {
		writeErrorFromTaxonomy(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// handleQuoteContract implements spec.md §2 data-flow (E): convert a
// forecast estimate into a premium quote on demand. It resolves the
// contract's cell to a representative lat/lon via the station catalogue,
// asks the forecast provider for an exceedance-probability estimate
// (falling back to the climatological baseline per §7 when the live
// upstream is unavailable or has nothing usable), and prices it through
// the LMSR engine. A cell with no known stations is quoted at the
// equatorial default point (0, 0).
func (a *App) handleQuoteContract(w http.ResponseWriter, r *http.Request) {
	id, err := ids.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid contract id")
		return
	}

	c, err := a.store.GetContract(id)
	if err != nil {
		writeErrorFromTaxonomy(w, err)
		return
	}

	lat, lon, ok := a.catalogue.Centroid(c.Cell)
	if !ok {
		a.log.Warn("no stations in cell, quoting from equatorial default",
			log.String("contract_id", c.ID.String()), log.String("cell", string(c.Cell)))
	}

	riskType := forecast.ClassifyRiskType(c.Metric, c.Threshold)
	windowStart, windowEnd := c.Window()

	estimate := a.forecaster.Estimate(r.Context(), lat, lon, riskType, forecast.Window{Start: windowStart, End: windowEnd})
	quote := pricing.Quoted(estimate.Probability, estimate.ConfidenceLower, estimate.ConfidenceUpper, a.pricing, time.Now())

	if a.metrics != nil {
		a.metrics.PricingQuotesIssued.Inc()
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"contract_id": c.ID,
		"risk_type":   riskType,
		"forecast":    estimate,
		"quote":       quote,
	})
}

type registerWebhookRequest struct {
	CallbackURL string   `json:"callback_url"`
	Events      []string `json:"events"`
	Secret      string   `json:"secret"`
}

func (a *App) handleRegisterWebhook(w http.ResponseWriter, r *http.Request) {
	var req registerWebhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	events := make([]webhook.EventType, 0, len(req.Events))
	for _, e := range req.Events {
		events = append(events, webhook.EventType(e))
	}

	reg, err := a.webhooks.Register(req.CallbackURL, events, req.Secret)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, reg)
}

func (a *App) handleListWebhooks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.webhooks.ListActive())
}

func (a *App) handleDeleteWebhook(w http.ResponseWriter, r *http.Request) {
	id, err := ids.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid webhook id")
		return
	}
	if !a.webhooks.Remove(id) {
		writeError(w, http.StatusNotFound, "webhook not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"error": detail})
}

// writeErrorFromTaxonomy maps an apperr sentinel to the HTTP status
// spec.md §7 assigns it.
func writeErrorFromTaxonomy(w http.ResponseWriter, err error) {
	switch {
	case apperr.Is(err, apperr.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case apperr.Is(err, apperr.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case apperr.Is(err, apperr.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	case apperr.Is(err, apperr.ErrUpstreamClient):
		writeError(w, http.StatusBadGateway, err.Error())
	case apperr.Is(err, apperr.ErrUpstreamUnavailable):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
