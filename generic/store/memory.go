// Package store provides Store implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/production-engine/generic"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (one per simulation run)
// =============================================================================

type Memory struct {
	mu          sync.RWMutex
	entries     map[generic.AccountID][]generic.Entry
	idempotency map[string]bool
}

func NewMemory() *Memory {
	return &Memory{
		entries:     make(map[generic.AccountID][]generic.Entry),
		idempotency: make(map[string]bool),
	}
}

// Append adds a single entry. Append-only.
func (m *Memory) Append(_ context.Context, e generic.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.IdempotencyKey != "" && m.idempotency[e.IdempotencyKey] {
		return generic.ErrDuplicateIdempotencyKey
	}
	m.appendLocked(e)
	return nil
}

// AppendBatch adds multiple entries atomically.
func (m *Memory) AppendBatch(_ context.Context, entries []generic.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Check all idempotency keys first, including duplicates inside the batch
	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		if e.IdempotencyKey == "" {
			continue
		}
		if m.idempotency[e.IdempotencyKey] || seen[e.IdempotencyKey] {
			return generic.ErrDuplicateIdempotencyKey
		}
		seen[e.IdempotencyKey] = true
	}

	for _, e := range entries {
		m.appendLocked(e)
	}
	return nil
}

func (m *Memory) appendLocked(e generic.Entry) {
	list := m.entries[e.Account]

	// Insert after every entry of the same day so same-day order is preserved
	i := sort.Search(len(list), func(i int) bool {
		return list[i].Day > e.Day
	})

	list = append(list, generic.Entry{})
	copy(list[i+1:], list[i:])
	list[i] = e
	m.entries[e.Account] = list

	if e.IdempotencyKey != "" {
		m.idempotency[e.IdempotencyKey] = true
	}
}

func (m *Memory) Load(_ context.Context, account generic.AccountID) ([]generic.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]generic.Entry, len(m.entries[account]))
	copy(result, m.entries[account])
	return result, nil
}

func (m *Memory) LoadRange(_ context.Context, account generic.AccountID, r generic.DayRange) ([]generic.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []generic.Entry
	for _, e := range m.entries[account] {
		if r.Contains(e.Day) {
			result = append(result, e)
		}
	}
	return result, nil
}

func (m *Memory) Exists(_ context.Context, idempotencyKey string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.idempotency[idempotencyKey], nil
}
