package repositories

import (
	"context"
	"time"

	"github.com/satriahrh/drx-chat/domain/entities"
)

// UserRepository defines data access methods for users
type UserRepository interface {
	Create(ctx context.Context, user *entities.User) error
	GetByID(ctx context.Context, id string) (*entities.User, error)
	GetByEmail(ctx context.Context, email string) (*entities.User, error)
}

// RevocationStore remembers session tokens ended by logout until they expire
type RevocationStore interface {
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
	// Prune drops entries whose tokens have expired anyway
	Prune(ctx context.Context) (int, error)
}
