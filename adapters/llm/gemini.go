package llm

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/satriahrh/drx-chat/domain/repositories"
)

const (
	defaultGeminiModel = "gemini-2.0-flash"
	defaultTemperature = 0.7
	defaultMaxTokens   = 2048
)

// GeminiConfig configures the Gemini adapter
type GeminiConfig struct {
	APIKey          string
	Model           string
	Temperature     float32
	MaxOutputTokens int
	// BaseURL overrides the API endpoint, mostly for tests
	BaseURL string
}

// ValidateGeminiConfig validates the GeminiConfig
func ValidateGeminiConfig(config GeminiConfig) error {
	if config.APIKey == "" {
		return fmt.Errorf("Google AI API key is required")
	}

	if config.Temperature != 0 && (config.Temperature < 0 || config.Temperature > 2) {
		return fmt.Errorf("temperature must be between 0 and 2, got %f", config.Temperature)
	}

	if config.MaxOutputTokens < 0 {
		return fmt.Errorf("maxOutputTokens must be positive, got %d", config.MaxOutputTokens)
	}

	return nil
}

// GeminiLLM implements the LargeLanguageModel interface using Google's Gemini API
type GeminiLLM struct {
	client          *genai.Client
	logger          *zap.Logger
	model           string
	temperature     float32
	maxOutputTokens int
}

// NewGeminiLLM creates a new Gemini LLM instance
func NewGeminiLLM(ctx context.Context, config GeminiConfig, logger *zap.Logger) (*GeminiLLM, error) {
	if err := ValidateGeminiConfig(config); err != nil {
		return nil, err
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: config.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	g := &GeminiLLM{
		client:          client,
		logger:          logger,
		model:           config.Model,
		temperature:     config.Temperature,
		maxOutputTokens: config.MaxOutputTokens,
	}

	if g.model == "" {
		g.model = defaultGeminiModel
		logger.Info("Using default model", zap.String("model", g.model))
	}
	if g.temperature == 0 {
		g.temperature = defaultTemperature
	}
	if g.maxOutputTokens == 0 {
		g.maxOutputTokens = defaultMaxTokens
	}

	return g, nil
}

// Invoke implements repositories.LargeLanguageModel
func (g *GeminiLLM) Invoke(ctx context.Context, params repositories.InvokeParams) (*repositories.InvokeResult, error) {
	system, contents := convertToGeminiFormat(params.Messages)

	config := &genai.GenerateContentConfig{
		Temperature:       genai.Ptr(g.temperature),
		MaxOutputTokens:   int32(g.maxOutputTokens),
		SystemInstruction: system,
	}

	response, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("gemini generate content: %w", err)
	}

	g.logger.Debug("Gemini response received",
		zap.String("model", g.model),
		zap.Int("candidates", len(response.Candidates)))

	return convertFromGeminiResponse(response), nil
}

// convertToGeminiFormat maps chat messages onto Gemini contents. System messages
// are folded into the system instruction since Gemini has no system role.
func convertToGeminiFormat(messages []repositories.ChatMessage) (*genai.Content, []*genai.Content) {
	var system *genai.Content
	contents := make([]*genai.Content, 0, len(messages))

	for _, msg := range messages {
		switch msg.Role {
		case repositories.SystemRole:
			if system == nil {
				system = genai.NewContentFromText(msg.Content, genai.RoleUser)
			} else {
				system.Parts = append(system.Parts, genai.NewPartFromText(msg.Content))
			}
		case repositories.AssistantRole:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
		}
	}

	return system, contents
}

// convertFromGeminiResponse maps candidates onto choices, text parts only
func convertFromGeminiResponse(response *genai.GenerateContentResponse) *repositories.InvokeResult {
	result := &repositories.InvokeResult{}
	if response == nil {
		return result
	}

	for _, candidate := range response.Candidates {
		if candidate == nil || candidate.Content == nil {
			result.Choices = append(result.Choices, repositories.Choice{})
			continue
		}

		var text string
		for _, part := range candidate.Content.Parts {
			if part != nil && part.Text != "" {
				text += part.Text
			}
		}

		result.Choices = append(result.Choices, repositories.Choice{
			Message: &repositories.ChatMessage{
				Role:    repositories.AssistantRole,
				Content: text,
			},
		})
	}

	return result
}
