// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/atmx/settlement-oracle/pkg/ids"
	"github.com/atmx/settlement-oracle/pkg/log"
	"github.com/atmx/settlement-oracle/pkg/metric"
	"github.com/cenkalti/backoff/v4"
)

const (
	headerEvent     = "X-ATMX-Event"
	headerDelivery  = "X-ATMX-Delivery"
	headerSignature = "X-ATMX-Signature"
)

// Event is the settlement lifecycle notification fanned out to every
// registration subscribed to its type, matching the JSON shape in
// spec.md §6.
type Event struct {
	EventID       string    `json:"event_id"`
	EventType     EventType `json:"event_type"`
	Timestamp     time.Time `json:"timestamp"`
	ContractID    string    `json:"contract_id"`
	Cell          string    `json:"h3_index"`
	RiskType      string    `json:"risk_type"`
	Outcome       string    `json:"outcome"`
	ObservedValue *float64  `json:"observed_value"`
	SettledAt     *time.Time `json:"settled_at"`
	RecordHash    string    `json:"record_hash,omitempty"`
}

// DispatcherConfig holds the tunables spec.md §4.9 calls out by name.
type DispatcherConfig struct {
	Timeout      time.Duration
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// DefaultDispatcherConfig returns the spec.md §4.9 defaults.
func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		Timeout:      10 * time.Second,
		MaxRetries:   3,
		InitialDelay: time.Second,
		MaxDelay:     30 * time.Second,
	}
}

// Dispatcher fans a settlement Event out to every active registration
// subscribed to its type, concurrently, with HMAC signing and retry with
// exponential backoff on transient failures.
type Dispatcher struct {
	store      *Store
	httpClient *http.Client
	cfg        DispatcherConfig
	metrics    *metric.Metrics
	log        log.Logger
}

// NewDispatcher builds a Dispatcher around a single shared *http.Client,
// per the Design Notes' "HTTP clients instantiated per call" re-architecture.
func NewDispatcher(store *Store, cfg DispatcherConfig, m *metric.Metrics, logger log.Logger) *Dispatcher {
	return &Dispatcher{
		store:      store,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cfg:        cfg,
		metrics:    m,
		log:        logger,
	}
}

// Dispatch fans event out to every registration subscribed to its type and
// blocks until every delivery has either succeeded, failed permanently, or
// exhausted its retries. It returns the count of successful deliveries.
func (d *Dispatcher) Dispatch(ctx context.Context, event Event) int {
	if event.EventID == "" {
		event.EventID = ids.New().String()
	}

	targets := d.store.ListForEvent(event.EventType)
	if len(targets) == 0 {
		return 0
	}

	body, err := json.Marshal(event)
	if err != nil {
		d.log.Error("failed to marshal webhook event", log.Err(err), log.String("event_type", string(event.EventType)))
		return 0
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0

	for _, reg := range targets {
		wg.Add(1)
		go func(reg *Registration) {
			defer wg.Done()
			ok := d.deliver(ctx, reg, event, body)
			if ok {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}(reg)
	}
	wg.Wait()

	return succeeded
}

// deliver drives one registration's delivery through the retry policy.
// 2xx is success. A non-retryable 4xx (anything but 429) is logged and
// returns false immediately. 5xx, 429, and transport errors are retried
// with exponential backoff until MaxRetries is exhausted.
func (d *Dispatcher) deliver(ctx context.Context, reg *Registration, event Event, body []byte) bool {
	headers := map[string]string{
		"Content-Type":  "application/json",
		headerEvent:     string(event.EventType),
		headerDelivery:  event.EventID,
	}
	if secret := d.store.GetSecret(reg.ID); secret != "" {
		headers[headerSignature] = "sha256=" + signBody(secret, body)
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = d.cfg.InitialDelay
	bo.Multiplier = 2
	bo.MaxInterval = d.cfg.MaxDelay
	bo.MaxElapsedTime = 0
	retrier := backoff.WithMaxRetries(bo, uint64(d.cfg.MaxRetries))
	retrier = backoff.WithContext(retrier, ctx)

	attempt := 0
	rejected := false
	start := time.Now()
	err := backoff.Retry(func() error {
		attempt++
		status, err := d.attempt(ctx, reg, headers, body)
		if err != nil {
			d.log.Warn("webhook delivery transport error",
				log.String("registration_id", reg.ID.String()), log.Int("attempt", attempt), log.Err(err))
			d.recordAttempt("retry")
			return err
		}
		if status < 300 {
			d.log.Info("webhook delivered",
				log.String("registration_id", reg.ID.String()), log.String("event_id", event.EventID), log.Int("attempt", attempt))
			d.recordAttempt("success")
			return nil
		}
		if status < 500 && status != http.StatusTooManyRequests {
			d.log.Warn("webhook rejected, not retrying",
				log.String("registration_id", reg.ID.String()), log.Int("status", status))
			d.recordAttempt("rejected")
			rejected = true
			return backoff.Permanent(fmt.Errorf("webhook rejected with status %d", status))
		}
		d.log.Warn("webhook server error, retrying",
			log.String("registration_id", reg.ID.String()), log.Int("status", status), log.Int("attempt", attempt))
		d.recordAttempt("retry")
		return fmt.Errorf("webhook upstream status %d", status)
	}, retrier)

	if d.metrics != nil {
		d.metrics.WebhookDeliveryDuration.Observe(time.Since(start).Seconds())
	}

	if err != nil {
		if !rejected {
			d.log.Error("webhook delivery exhausted retries",
				log.String("registration_id", reg.ID.String()), log.String("event_id", event.EventID))
			d.recordAttempt("exhausted")
		}
		return false
	}
	return true
}

func (d *Dispatcher) recordAttempt(result string) {
	if d.metrics != nil {
		d.metrics.WebhookDeliveryAttempts.WithLabelValues(result).Inc()
	}
}

// attempt issues one POST and returns the response status code, or an
// error for a transport-level failure (connection refused, timeout).
func (d *Dispatcher) attempt(ctx context.Context, reg *Registration, headers map[string]string, body []byte) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reg.CallbackURL, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("build webhook request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	return resp.StatusCode, nil
}

func signBody(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
