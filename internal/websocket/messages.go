package websocket

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/satriahrh/drx-chat/usecase"
)

// MessageType defines the type of WebSocket message
type MessageType string

// Supported message types
const (
	// page -> server
	MessageTypeSubmit      MessageType = "submit"
	MessageTypeClear       MessageType = "clear"
	MessageTypeSelectModel MessageType = "select_model"
	MessageTypePing        MessageType = "ping"

	// server -> page
	MessageTypeState MessageType = "state"
	MessageTypePong  MessageType = "pong"
	MessageTypeError MessageType = "error"
)

// BaseMessage defines the common structure for all WebSocket messages
type BaseMessage struct {
	Type      MessageType `json:"type" validate:"required"`
	Timestamp string      `json:"timestamp"`
	MessageID string      `json:"message_id,omitempty"`
}

// SubmitMessage carries the text typed in the input box. Blank text is accepted
// here and ignored by the conversation.
type SubmitMessage struct {
	BaseMessage
	Text string `json:"text"`
}

// ClearMessage carries the answer of the page's confirmation dialog
type ClearMessage struct {
	BaseMessage
	Confirmed bool `json:"confirmed"`
}

// SelectModelMessage changes the model used by the next submit
type SelectModelMessage struct {
	BaseMessage
	ModelID string `json:"model_id" validate:"required,max=128"`
}

// PingMessage represents a ping message for connection health check
type PingMessage struct {
	BaseMessage
	Data string `json:"data,omitempty"`
}

// PongMessage represents a pong response
type PongMessage struct {
	BaseMessage
	Data string `json:"data,omitempty"`
}

// StateMessage pushes a conversation snapshot to the page
type StateMessage struct {
	BaseMessage
	State usecase.Snapshot `json:"state"`
}

// ErrorMessage represents an error response
type ErrorMessage struct {
	BaseMessage
	Code    string `json:"error_code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// MessageValidator provides validation for WebSocket messages
type MessageValidator struct {
	validate *validator.Validate
}

// NewMessageValidator creates a new message validator
func NewMessageValidator(validate *validator.Validate) *MessageValidator {
	if validate == nil {
		validate = validator.New()
	}
	return &MessageValidator{validate: validate}
}

// ValidateMessage parses and validates an incoming message
func (v *MessageValidator) ValidateMessage(messageBytes []byte) (interface{}, error) {
	// First parse as base message to get type
	var base BaseMessage
	if err := json.Unmarshal(messageBytes, &base); err != nil {
		return nil, fmt.Errorf("invalid JSON format: %w", err)
	}

	var msg interface{}
	switch base.Type {
	case MessageTypeSubmit:
		msg = &SubmitMessage{}
	case MessageTypeClear:
		msg = &ClearMessage{}
	case MessageTypeSelectModel:
		msg = &SelectModelMessage{}
	case MessageTypePing:
		msg = &PingMessage{}
	default:
		return nil, fmt.Errorf("unsupported message type: %q", base.Type)
	}

	if err := json.Unmarshal(messageBytes, msg); err != nil {
		return nil, fmt.Errorf("invalid %s message: %w", base.Type, err)
	}
	if err := v.validate.Struct(msg); err != nil {
		return nil, fmt.Errorf("invalid %s message: %w", base.Type, err)
	}
	return msg, nil
}

func newBase(t MessageType) BaseMessage {
	return BaseMessage{
		Type:      t,
		Timestamp: time.Now().Format(time.RFC3339),
	}
}

// CreateStateMessage wraps a snapshot for the page
func CreateStateMessage(snapshot usecase.Snapshot) *StateMessage {
	return &StateMessage{
		BaseMessage: newBase(MessageTypeState),
		State:       snapshot,
	}
}

// CreateErrorMessage creates a standardized error message
func CreateErrorMessage(code, message, details string) *ErrorMessage {
	return &ErrorMessage{
		BaseMessage: newBase(MessageTypeError),
		Code:        code,
		Message:     message,
		Details:     details,
	}
}

// CreatePongMessage creates a pong response message
func CreatePongMessage(data string) *PongMessage {
	return &PongMessage{
		BaseMessage: newBase(MessageTypePong),
		Data:        data,
	}
}
