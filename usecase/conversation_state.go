package usecase

import (
	"context"
	"strings"
	"sync"

	"github.com/sourcegraph/conc"
	"go.uber.org/zap"

	"github.com/satriahrh/drx-chat/domain"
	"github.com/satriahrh/drx-chat/domain/entities"
)

// Snapshot is a read-only copy of a conversation state
type Snapshot struct {
	Turns    []entities.Turn `json:"turns"`
	InFlight bool            `json:"in_flight"`
	Model    string          `json:"model"`
	// LastTurnID is the turn the page should scroll to, empty when there are no turns.
	LastTurnID string `json:"last_turn_id,omitempty"`
}

// Observer is notified after every mutation, in mutation order. It runs with the
// state locked and must not call back into the ConversationState.
type Observer func(Snapshot)

// ConversationState owns one page session's turns and its in-flight flag.
// Submit, Clear and SelectModel are its only mutators.
type ConversationState struct {
	mu       sync.Mutex
	turns    []entities.Turn
	inFlight bool
	model    string

	relay    Relay
	observer Observer
	wg       conc.WaitGroup
	logger   *zap.Logger
}

// NewConversationState creates an empty conversation with the given model selected
func NewConversationState(relay Relay, defaultModel string, observer Observer, logger *zap.Logger) *ConversationState {
	return &ConversationState{
		turns:    make([]entities.Turn, 0),
		model:    defaultModel,
		relay:    relay,
		observer: observer,
		logger:   logger,
	}
}

// Submit appends a user turn and dispatches it to the relay in the background.
// It reports false and changes nothing when text is blank or a request is in flight.
func (s *ConversationState) Submit(ctx context.Context, text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}

	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		return false
	}

	req := domain.SendMessageRequest{
		Message:             text,
		Model:               s.model,
		ConversationHistory: historyOf(s.turns),
	}
	s.turns = append(s.turns, entities.NewTurn(entities.RoleUser, text))
	s.inFlight = true
	s.notifyLocked()
	s.mu.Unlock()

	s.wg.Go(func() {
		s.dispatch(ctx, req)
	})
	return true
}

// dispatch runs one relay call. The in-flight flag is released on every exit path;
// a panicking relay is logged like any other failure.
func (s *ConversationState) dispatch(ctx context.Context, req domain.SendMessageRequest) {
	var reply *entities.Turn
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Error sending message",
				zap.String("model", req.Model),
				zap.Any("panic", r))
			reply = nil
		}

		s.mu.Lock()
		if reply != nil {
			s.turns = append(s.turns, *reply)
		}
		s.inFlight = false
		s.notifyLocked()
		s.mu.Unlock()
	}()

	resp, err := s.relay.Relay(ctx, req)
	if err != nil {
		s.logger.Error("Error sending message",
			zap.String("model", req.Model),
			zap.Error(err))
		return
	}

	turn := entities.NewTurn(entities.RoleAssistant, resp.Content)
	reply = &turn
}

// Clear empties the conversation once confirm says yes. The in-flight flag is
// left alone, so a reply still pending lands in the cleared conversation.
func (s *ConversationState) Clear(confirm func() bool) bool {
	if confirm == nil || !confirm() {
		return false
	}

	s.mu.Lock()
	s.turns = make([]entities.Turn, 0)
	s.notifyLocked()
	s.mu.Unlock()
	return true
}

// SelectModel changes the model used by the next Submit
func (s *ConversationState) SelectModel(modelID string) {
	s.mu.Lock()
	s.model = modelID
	s.notifyLocked()
	s.mu.Unlock()
}

// Snapshot returns a copy of the current state
func (s *ConversationState) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Wait blocks until every dispatched request has resolved. It never panics.
func (s *ConversationState) Wait() {
	s.wg.Wait()
}

func (s *ConversationState) snapshotLocked() Snapshot {
	turns := make([]entities.Turn, len(s.turns))
	copy(turns, s.turns)

	snapshot := Snapshot{
		Turns:    turns,
		InFlight: s.inFlight,
		Model:    s.model,
	}
	if len(turns) > 0 {
		snapshot.LastTurnID = turns[len(turns)-1].ID
	}
	return snapshot
}

func (s *ConversationState) notifyLocked() {
	if s.observer != nil {
		s.observer(s.snapshotLocked())
	}
}

func historyOf(turns []entities.Turn) []domain.HistoryEntry {
	history := make([]domain.HistoryEntry, 0, len(turns))
	for _, turn := range turns {
		history = append(history, domain.HistoryEntry{
			Role:    turn.Role,
			Content: turn.Content,
		})
	}
	return history
}
