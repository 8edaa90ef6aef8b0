package llm

import (
	"context"
	"fmt"

	"github.com/satriahrh/drx-chat/domain/repositories"
)

// MockLLM is a placeholder LLM for local development without API keys
type MockLLM struct{}

// NewMockLLM creates a new mock LLM
func NewMockLLM() *MockLLM {
	return &MockLLM{}
}

// Invoke implements repositories.LargeLanguageModel
func (m *MockLLM) Invoke(ctx context.Context, params repositories.InvokeParams) (*repositories.InvokeResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var last string
	if n := len(params.Messages); n > 0 {
		last = params.Messages[n-1].Content
	}

	var response string
	switch {
	case last != "":
		response = fmt.Sprintf("شكراً على رسالتك: \"%s\". هذا رد تجريبي من Dr.X.", last)
	default:
		response = "مرحباً! أنا Dr.X. كيف يمكنني مساعدتك اليوم؟"
	}

	return &repositories.InvokeResult{
		Choices: []repositories.Choice{
			{Message: &repositories.ChatMessage{Role: repositories.AssistantRole, Content: response}},
		},
	}, nil
}
