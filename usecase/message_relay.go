package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/satriahrh/drx-chat/domain"
	"github.com/satriahrh/drx-chat/domain/repositories"
)

// Relay is what the conversation state needs from the server side
type Relay interface {
	Relay(ctx context.Context, req domain.SendMessageRequest) (*domain.SendMessageResponse, error)
}

// MessageRelay translates ai.sendMessage requests into LLM calls. It keeps no
// per-conversation state; the caller sends the whole history every time.
type MessageRelay struct {
	llm      repositories.LargeLanguageModel
	validate *validator.Validate
	timeout  time.Duration
	now      func() time.Time
	logger   *zap.Logger
}

// RelayOption customizes a MessageRelay
type RelayOption func(*MessageRelay)

// WithUpstreamTimeout bounds a single LLM call
func WithUpstreamTimeout(d time.Duration) RelayOption {
	return func(r *MessageRelay) {
		r.timeout = d
	}
}

// WithClock replaces the server clock used for response timestamps
func WithClock(now func() time.Time) RelayOption {
	return func(r *MessageRelay) {
		r.now = now
	}
}

// NewMessageRelay creates a new message relay
func NewMessageRelay(llm repositories.LargeLanguageModel, validate *validator.Validate, logger *zap.Logger, opts ...RelayOption) *MessageRelay {
	r := &MessageRelay{
		llm:      llm,
		validate: validate,
		now:      time.Now,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Relay forwards history plus the new message to the LLM and extracts the reply.
// The model field is echoed back untouched; every model currently shares one LLM.
func (r *MessageRelay) Relay(ctx context.Context, req domain.SendMessageRequest) (*domain.SendMessageResponse, error) {
	user, ok := domain.UserFromContext(ctx)
	if !ok {
		return nil, domain.ErrUnauthenticated
	}

	if err := r.validate.StructCtx(ctx, req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	result, err := r.llm.Invoke(ctx, repositories.InvokeParams{
		Messages: BuildMessages(req.ConversationHistory, req.Message),
	})
	if err != nil {
		r.logger.Error("AI Error",
			zap.String("user_id", user.ID),
			zap.String("model", req.Model),
			zap.Int("history_length", len(req.ConversationHistory)),
			zap.Error(err))
		return nil, domain.ErrRelayFailed
	}

	content, ok := result.FirstContent()
	if !ok {
		r.logger.Warn("LLM returned no content, using fallback",
			zap.String("user_id", user.ID),
			zap.String("model", req.Model))
		content = domain.FallbackReply
	}

	return &domain.SendMessageResponse{
		Content:   content,
		Model:     req.Model,
		Timestamp: r.now(),
	}, nil
}

// BuildMessages returns history followed by the new user message, order and
// content preserved.
func BuildMessages(history []domain.HistoryEntry, message string) []repositories.ChatMessage {
	messages := make([]repositories.ChatMessage, 0, len(history)+1)
	for _, entry := range history {
		messages = append(messages, repositories.ChatMessage{
			Role:    repositories.Role(entry.Role),
			Content: entry.Content,
		})
	}
	return append(messages, repositories.ChatMessage{
		Role:    repositories.UserRole,
		Content: message,
	})
}
