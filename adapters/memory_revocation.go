package adapters

import (
	"context"
	"errors"
	"sync"
	"time"
)

// MemoryRevocationStore keeps revoked token ids until their tokens expire
type MemoryRevocationStore struct {
	mu      sync.RWMutex
	revoked map[string]time.Time // token id -> token expiry
	now     func() time.Time
}

// NewMemoryRevocationStore creates a new in-memory revocation store
func NewMemoryRevocationStore() *MemoryRevocationStore {
	return &MemoryRevocationStore{
		revoked: make(map[string]time.Time),
		now:     time.Now,
	}
}

// Revoke implements RevocationStore interface
func (m *MemoryRevocationStore) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	if tokenID == "" {
		return errors.New("token ID cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.revoked[tokenID] = expiresAt
	return nil
}

// IsRevoked implements RevocationStore interface
func (m *MemoryRevocationStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, exists := m.revoked[tokenID]
	return exists, nil
}

// Prune implements RevocationStore interface
func (m *MemoryRevocationStore) Prune(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	pruned := 0
	for id, expiresAt := range m.revoked {
		if !expiresAt.After(now) {
			delete(m.revoked, id)
			pruned++
		}
	}
	return pruned, nil
}
