package domain

import (
	"context"

	"github.com/satriahrh/drx-chat/domain/entities"
)

type userContextKey struct{}

// WithUser returns a context carrying the authenticated user
func WithUser(ctx context.Context, user *entities.User) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// UserFromContext returns the authenticated user, if any
func UserFromContext(ctx context.Context) (*entities.User, bool) {
	user, ok := ctx.Value(userContextKey{}).(*entities.User)
	return user, ok && user != nil
}
