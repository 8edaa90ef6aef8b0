package repositories

import "context"

// LargeLanguageModel abstracts any chat/LLM provider
type LargeLanguageModel interface {
	// Invoke sends the full message list and returns the provider response
	Invoke(ctx context.Context, params InvokeParams) (*InvokeResult, error)
}

// InvokeParams is the request handed to the LLM collaborator
type InvokeParams struct {
	Messages []ChatMessage `json:"messages"`
}

// InvokeResult keeps the provider response shape: choices[0].message.content
type InvokeResult struct {
	Choices []Choice `json:"choices,omitempty"`
}

// Choice is one candidate reply
type Choice struct {
	Message *ChatMessage `json:"message,omitempty"`
}

// FirstContent returns choices[0].message.content and whether it was present
func (r *InvokeResult) FirstContent() (string, bool) {
	if r == nil || len(r.Choices) == 0 || r.Choices[0].Message == nil {
		return "", false
	}
	content := r.Choices[0].Message.Content
	return content, content != ""
}

// ChatMessage represents a single message in a conversation
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Role defines the type of message sender
type Role string

const (
	UserRole      Role = "user"
	AssistantRole Role = "assistant"
	SystemRole    Role = "system"
)
