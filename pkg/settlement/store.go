// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package settlement

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/atmx/settlement-oracle/pkg/apperr"
	"github.com/atmx/settlement-oracle/pkg/contract"
	"github.com/atmx/settlement-oracle/pkg/ids"
)

// Store is the record store contract from spec.md §4.4: append-only
// settlement records chained by hash, plus the contract catalogue the
// cron discovers expired work from. There is deliberately no SQL driver
// backing this — the core's Non-goals exclude migration tooling, and the
// two "relational tables" §6 describes are modeled here as guarded
// in-memory maps with the same uniqueness invariants a schema would
// enforce.
type Store interface {
	CreateContract(c *contract.Contract) error
	GetContract(id ids.ID) (*contract.Contract, error)
	ListExpiredContracts(now time.Time) ([]*contract.Contract, error)

	GetSettlementByContract(contractID ids.ID) (*Record, bool)
	LatestSettlementHash() string
	AppendSettlement(r *Record) error
}

// MemoryStore is the default Store: mutex-guarded maps, safe for
// concurrent use by the cron, the driver, and admin reads.
type MemoryStore struct {
	mu sync.RWMutex

	contracts          map[ids.ID]*contract.Contract
	settlementsByID    map[ids.ID]*Record
	settlementsByOrder []*Record // append order == chain order
	byContract         map[ids.ID]*Record
	hashesSeen         map[string]struct{}
}

// NewMemoryStore builds an empty Store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		contracts:       make(map[ids.ID]*contract.Contract),
		settlementsByID: make(map[ids.ID]*Record),
		byContract:      make(map[ids.ID]*Record),
		hashesSeen:      make(map[string]struct{}),
	}
}

// CreateContract persists c. c.ID must already be assigned by contract.New.
func (s *MemoryStore) CreateContract(c *contract.Contract) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.contracts[c.ID]; exists {
		return fmt.Errorf("%w: contract %s already exists", apperr.ErrConflict, c.ID)
	}
	s.contracts[c.ID] = c
	return nil
}

// GetContract returns apperr.ErrNotFound if id is unknown.
func (s *MemoryStore) GetContract(id ids.ID) (*contract.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.contracts[id]
	if !ok {
		return nil, fmt.Errorf("%w: contract %s", apperr.ErrNotFound, id)
	}
	return c, nil
}

// ListExpiredContracts returns every contract with expiry <= now that has
// no settlement record yet, sorted by expiry so the cron settles oldest
// first. The snapshot is taken under the read lock, so it is stable
// against concurrent appends made after this call returns.
func (s *MemoryStore) ListExpiredContracts(now time.Time) ([]*contract.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*contract.Contract
	for id, c := range s.contracts {
		if _, settled := s.byContract[id]; settled {
			continue
		}
		if !c.Expired(now) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Expiry.Before(out[j].Expiry) })
	return out, nil
}

// GetSettlementByContract implements the idempotency lookup driving
// spec.md §4.6 step 2.
func (s *MemoryStore) GetSettlementByContract(contractID ids.ID) (*Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.byContract[contractID]
	return r, ok
}

// LatestSettlementHash returns the record_hash of the most recently
// appended settlement, or "" for the genesis case.
func (s *MemoryStore) LatestSettlementHash() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.settlementsByOrder) == 0 {
		return ""
	}
	return s.settlementsByOrder[len(s.settlementsByOrder)-1].RecordHash
}

// AppendSettlement enforces the two uniqueness invariants spec.md §4.4
// requires — one settlement per contract, and a globally unique record
// hash — before accepting r. Both checks and the append happen under a
// single write lock, so two drivers racing on the same contract cannot
// both succeed; the loser gets apperr.ErrConflict and must re-read the
// winner via GetSettlementByContract (see pkg/settlement's Driver).
func (s *MemoryStore) AppendSettlement(r *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byContract[r.ContractID]; exists {
		return fmt.Errorf("%w: contract %s already settled", apperr.ErrConflict, r.ContractID)
	}
	if _, exists := s.hashesSeen[r.RecordHash]; exists {
		return fmt.Errorf("%w: record hash collision %s", apperr.ErrIntegrity, r.RecordHash)
	}

	s.settlementsByID[r.ID] = r
	s.byContract[r.ContractID] = r
	s.hashesSeen[r.RecordHash] = struct{}{}
	s.settlementsByOrder = append(s.settlementsByOrder, r)
	return nil
}
