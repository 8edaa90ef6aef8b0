package adapters

import (
	"context"
	"testing"
	"time"
)

func TestMemoryRevocationStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryRevocationStore()
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	if revoked, _ := store.IsRevoked(ctx, "token-1"); revoked {
		t.Error("Token should not be revoked initially")
	}

	if err := store.Revoke(ctx, "token-1", now.Add(time.Hour)); err != nil {
		t.Fatalf("Revoke() error = %v", err)
	}
	if err := store.Revoke(ctx, "token-2", now.Add(-time.Minute)); err != nil {
		t.Fatalf("Revoke() error = %v", err)
	}
	if err := store.Revoke(ctx, "", now); err == nil {
		t.Error("Expected error for empty token ID")
	}

	if revoked, _ := store.IsRevoked(ctx, "token-1"); !revoked {
		t.Error("Token should be revoked")
	}

	pruned, err := store.Prune(ctx)
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if pruned != 1 {
		t.Errorf("Expected 1 pruned entry, got %d", pruned)
	}
	if revoked, _ := store.IsRevoked(ctx, "token-2"); revoked {
		t.Error("Expired token should be pruned")
	}
	if revoked, _ := store.IsRevoked(ctx, "token-1"); !revoked {
		t.Error("Unexpired token should survive pruning")
	}
}
