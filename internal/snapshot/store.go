// Package snapshot holds the most recent successfully fetched account and
// transaction data. The refresh worker replaces the snapshot wholesale and
// handlers read it, so a reader never observes a half-fetched state and a
// failed refresh leaves the previous good snapshot in place.
package snapshot

import (
	"sync"
	"time"

	"github.com/dmoroney/saverdash/internal/upbank"
)

// Snapshot is one complete fetch: the saver accounts and every account's
// full transaction history, taken at FetchedAt. Treat it as read-only.
type Snapshot struct {
	Accounts     []upbank.Account
	Transactions map[string][]upbank.Transaction
	FetchedAt    time.Time
}

// TransactionCount returns how many transactions were fetched for one account.
func (s *Snapshot) TransactionCount(accountID string) int {
	return len(s.Transactions[accountID])
}

// Store is a concurrency-safe holder of the current snapshot.
// Data is lost on restart; the first refresh after startup repopulates it.
type Store struct {
	mu   sync.RWMutex
	snap *Snapshot
}

// NewStore returns an empty store. Ready reports false until the first Replace.
func NewStore() *Store {
	return &Store{}
}

// Replace swaps in a new snapshot atomically.
func (s *Store) Replace(snap *Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = snap
}

// Get returns the current snapshot, or false if no fetch has completed yet.
func (s *Store) Get() (*Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snap == nil {
		return nil, false
	}
	return s.snap, true
}

// Ready reports whether at least one refresh has completed.
func (s *Store) Ready() bool {
	_, ok := s.Get()
	return ok
}
