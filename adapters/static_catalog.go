package adapters

import (
	"context"

	"github.com/satriahrh/drx-chat/domain"
)

// DefaultModels is the catalog offered in the model selector
var DefaultModels = []domain.ModelInfo{
	{
		ID:          "dr.x_chat",
		Name:        "Dr.X Chat",
		Description: "النموذج الأساسي للمهام اليومية والاستفسارات العامة",
	},
	{
		ID:          "dr.x_r1",
		Name:        "Dr.X R1",
		Description: "النموذج المتقدم للتفكير المعقد والتحليل الشامل",
	},
}

// StaticModelCatalog serves a fixed, ordered list of models
type StaticModelCatalog struct {
	models []domain.ModelInfo
}

// NewStaticModelCatalog creates a catalog over models, or DefaultModels when empty
func NewStaticModelCatalog(models ...domain.ModelInfo) *StaticModelCatalog {
	if len(models) == 0 {
		models = DefaultModels
	}
	return &StaticModelCatalog{models: models}
}

// Models implements ModelCatalog interface
func (s *StaticModelCatalog) Models(ctx context.Context) ([]domain.ModelInfo, error) {
	models := make([]domain.ModelInfo, len(s.models))
	copy(models, s.models)
	return models, nil
}

// Has reports whether id is in the catalog
func (s *StaticModelCatalog) Has(id string) bool {
	for _, model := range s.models {
		if model.ID == id {
			return true
		}
	}
	return false
}
