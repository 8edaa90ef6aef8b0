package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/satriahrh/drx-chat/config"
)

// RevocationStore keeps revoked token ids as keys that expire with the token
type RevocationStore struct {
	rdb *redis.Client
	now func() time.Time
}

// NewClient creates a redis client and checks the connection
func NewClient(ctx context.Context, cfg config.Redis) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to ping redis %s: %w", cfg.Addr, err)
	}
	return rdb, nil
}

// NewRevocationStore creates a redis backed revocation store
func NewRevocationStore(rdb *redis.Client) *RevocationStore {
	return &RevocationStore{
		rdb: rdb,
		now: time.Now,
	}
}

// Revoke implements repositories.RevocationStore
func (s *RevocationStore) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	if tokenID == "" {
		return errors.New("token ID cannot be empty")
	}

	ttl := expiresAt.Sub(s.now())
	if ttl <= 0 {
		// already expired, nothing to remember
		return nil
	}

	if err := s.rdb.Set(ctx, revokedKey(tokenID), 1, ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke token %s: %w", tokenID, err)
	}
	return nil
}

// IsRevoked implements repositories.RevocationStore
func (s *RevocationStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := s.rdb.Exists(ctx, revokedKey(tokenID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check token %s: %w", tokenID, err)
	}
	return n > 0, nil
}

// Prune implements repositories.RevocationStore. Keys expire on their own.
func (s *RevocationStore) Prune(ctx context.Context) (int, error) {
	return 0, nil
}

func revokedKey(tokenID string) string {
	return fmt.Sprintf("revoked_token_%s", tokenID)
}
