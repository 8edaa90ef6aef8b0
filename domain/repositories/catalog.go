package repositories

import (
	"context"

	"github.com/satriahrh/drx-chat/domain"
)

// ModelCatalog lists the models a user may pick from
type ModelCatalog interface {
	Models(ctx context.Context) ([]domain.ModelInfo, error)
}
