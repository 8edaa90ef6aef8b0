package llm

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/satriahrh/drx-chat/config"
	"github.com/satriahrh/drx-chat/domain/repositories"
)

// New builds the LLM collaborator selected by LLM_PROVIDER
func New(ctx context.Context, cfg config.LLM, logger *zap.Logger) (repositories.LargeLanguageModel, error) {
	switch cfg.Provider {
	case config.ProviderMock:
		logger.Warn("Using mock LLM, replies are canned")
		return NewMockLLM(), nil
	case config.ProviderOpenAI:
		return NewOpenAILLM(OpenAIConfig{
			APIKey:      cfg.OpenAIAPIKey,
			BaseURL:     cfg.OpenAIBaseURL,
			Model:       cfg.OpenAIModel,
			Temperature: cfg.ModelTemperature,
		}, logger)
	case config.ProviderGemini:
		return NewGeminiLLM(ctx, GeminiConfig{
			APIKey:      cfg.GeminiAPIKey,
			Model:       cfg.GeminiModel,
			Temperature: cfg.ModelTemperature,
		}, logger)
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.Provider)
	}
}
