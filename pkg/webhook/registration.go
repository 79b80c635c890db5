// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package webhook implements the webhook registration store and the
// at-least-once signed dispatcher from spec.md §4.8 and §4.9.
package webhook

import (
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/atmx/settlement-oracle/pkg/apperr"
	"github.com/atmx/settlement-oracle/pkg/ids"
)

// EventType is one of the three subscribable settlement lifecycle events.
type EventType string

const (
	EventSettled  EventType = "contract.settled"
	EventDisputed EventType = "contract.disputed"
	EventExpired  EventType = "contract.expired"
)

func (e EventType) valid() bool {
	switch e {
	case EventSettled, EventDisputed, EventExpired:
		return true
	default:
		return false
	}
}

// Registration is the public view of a delivery target. Its secret, if
// any, is held separately in Store and never embedded here — no read
// path can leak it.
type Registration struct {
	ID          ids.ID      `json:"id"`
	CallbackURL string      `json:"callback_url"`
	Events      []EventType `json:"events"`
	CreatedAt   time.Time   `json:"created_at"`
	Active      bool        `json:"active"`
}

func (r Registration) subscribesTo(t EventType) bool {
	for _, e := range r.Events {
		if e == t {
			return true
		}
	}
	return false
}

// Store holds registrations and their secrets in separate maps, per
// spec.md §4.8's "secrets are stored in a separate table from the public
// registration" invariant.
type Store struct {
	mu            sync.RWMutex
	registrations map[ids.ID]*Registration
	secrets       map[ids.ID]string
}

// NewStore builds an empty Store.
func NewStore() *Store {
	return &Store{
		registrations: make(map[ids.ID]*Registration),
		secrets:       make(map[ids.ID]string),
	}
}

// Register validates callbackURL and events and persists a new active
// Registration. An empty events set is rejected — a registration that
// subscribes to nothing can never be dispatched to.
func (s *Store) Register(callbackURL string, events []EventType, secret string) (*Registration, error) {
	u, err := url.Parse(callbackURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: callback_url must be a valid http(s) URL", apperr.ErrValidation)
	}
	if len(events) == 0 {
		return nil, fmt.Errorf("%w: at least one event type is required", apperr.ErrValidation)
	}
	for _, e := range events {
		if !e.valid() {
			return nil, fmt.Errorf("%w: unknown event type %q", apperr.ErrValidation, e)
		}
	}

	reg := &Registration{
		ID:          ids.New(),
		CallbackURL: callbackURL,
		Events:      events,
		CreatedAt:   time.Now().UTC(),
		Active:      true,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.registrations[reg.ID] = reg
	if secret != "" {
		s.secrets[reg.ID] = secret
	}
	return reg, nil
}

// ListActive returns every active registration.
func (s *Store) ListActive() []*Registration {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Registration, 0, len(s.registrations))
	for _, r := range s.registrations {
		if r.Active {
			out = append(out, r)
		}
	}
	return out
}

// ListForEvent returns active registrations subscribed to t.
func (s *Store) ListForEvent(t EventType) []*Registration {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Registration
	for _, r := range s.registrations {
		if r.Active && r.subscribesTo(t) {
			out = append(out, r)
		}
	}
	return out
}

// GetSecret returns the signing secret for id, or "" if none was set.
func (s *Store) GetSecret(id ids.ID) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.secrets[id]
}

// Remove tombstones the registration, returning false if id is unknown.
func (s *Store) Remove(id ids.ID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.registrations[id]
	if !ok {
		return false
	}
	r.Active = false
	delete(s.secrets, id)
	return true
}
