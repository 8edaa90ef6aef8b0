package llm

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/satriahrh/drx-chat/domain/repositories"
)

// OpenAIConfig configures any OpenAI-compatible chat completion endpoint
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
}

// OpenAILLM implements the LargeLanguageModel interface using go-openai
type OpenAILLM struct {
	client      *openai.Client
	model       string
	temperature float32
	logger      *zap.Logger
}

// NewOpenAILLM creates a new OpenAI-compatible LLM
func NewOpenAILLM(config OpenAIConfig, logger *zap.Logger) (*OpenAILLM, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	if config.Model == "" {
		return nil, fmt.Errorf("OpenAI model is required")
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	return &OpenAILLM{
		client:      openai.NewClientWithConfig(clientConfig),
		model:       config.Model,
		temperature: config.Temperature,
		logger:      logger,
	}, nil
}

// Invoke implements repositories.LargeLanguageModel
func (o *OpenAILLM) Invoke(ctx context.Context, params repositories.InvokeParams) (*repositories.InvokeResult, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(params.Messages))
	for _, msg := range params.Messages {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    parseRole(msg.Role),
			Content: msg.Content,
		})
	}

	response, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.model,
		Temperature: o.temperature,
		Messages:    messages,
	})
	if err != nil {
		return nil, fmt.Errorf("openai chat completion: %w", err)
	}

	o.logger.Debug("OpenAI response received",
		zap.String("model", response.Model),
		zap.Int("choices", len(response.Choices)),
		zap.Int("total_tokens", response.Usage.TotalTokens))

	result := &repositories.InvokeResult{
		Choices: make([]repositories.Choice, 0, len(response.Choices)),
	}
	for _, choice := range response.Choices {
		result.Choices = append(result.Choices, repositories.Choice{
			Message: &repositories.ChatMessage{
				Role:    repositories.Role(choice.Message.Role),
				Content: choice.Message.Content,
			},
		})
	}
	return result, nil
}

func parseRole(role repositories.Role) string {
	switch role {
	case repositories.AssistantRole:
		return openai.ChatMessageRoleAssistant
	case repositories.SystemRole:
		return openai.ChatMessageRoleSystem
	default:
		return openai.ChatMessageRoleUser
	}
}
