package domain

import (
	"time"

	"github.com/satriahrh/drx-chat/domain/entities"
)

// HistoryEntry is one prior turn as sent by the page
type HistoryEntry struct {
	Role    entities.Role `json:"role" validate:"required,oneof=user assistant"`
	Content string        `json:"content"`
}

// SendMessageRequest is the payload of ai.sendMessage
type SendMessageRequest struct {
	Message             string         `json:"message" validate:"min=1"`
	Model               string         `json:"model"`
	ConversationHistory []HistoryEntry `json:"conversationHistory,omitempty" validate:"omitempty,dive"`
}

// SendMessageResponse is the result of ai.sendMessage
type SendMessageResponse struct {
	Content   string    `json:"content"`
	Model     string    `json:"model"`
	Timestamp time.Time `json:"timestamp"`
}

// ModelInfo is one entry of the model catalog (ai.getModels)
type ModelInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// AuthState mirrors what the page needs to decide between login and chat
type AuthState struct {
	User            *entities.User `json:"user"`
	IsAuthenticated bool           `json:"isAuthenticated"`
}
