package websocket

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/satriahrh/drx-chat/domain"
	"github.com/satriahrh/drx-chat/domain/entities"
	"github.com/satriahrh/drx-chat/usecase"
)

// echoRelay answers with the message it was given, optionally waiting on gate first
type echoRelay struct {
	gate chan struct{}
}

func (r *echoRelay) Relay(ctx context.Context, req domain.SendMessageRequest) (*domain.SendMessageResponse, error) {
	if r.gate != nil {
		select {
		case <-r.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if _, ok := domain.UserFromContext(ctx); !ok {
		return nil, domain.ErrUnauthenticated
	}
	return &domain.SendMessageResponse{
		Content:   "echo: " + req.Message,
		Model:     req.Model,
		Timestamp: time.Now(),
	}, nil
}

type envelope struct {
	Type  MessageType      `json:"type"`
	State usecase.Snapshot `json:"state"`
	Code  string           `json:"error_code"`
	Data  string           `json:"data"`
}

var testUser = &entities.User{ID: "user-1", Email: "test@example.com", Name: "Test"}

func setupTestHub(t testing.TB, relay usecase.Relay) *Hub {
	t.Helper()
	hub := NewHub(relay, "dr.x_chat", NewMessageValidator(nil), zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()
	t.Cleanup(func() {
		cancel()
		<-stopped
	})
	return hub
}

func dialTestHub(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()

	e := echo.New()
	e.GET("/ws", func(c echo.Context) error {
		return HandleWebSocket(hub, c, testUser, zap.NewNop())
	})
	server := httptest.NewServer(e)
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Failed to dial websocket: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, payload string) {
	t.Helper()
	if err := conn.WriteMessage(websocket.TextMessage, []byte(payload)); err != nil {
		t.Fatalf("Failed to write message: %v", err)
	}
}

// readUntil reads messages until match accepts one
func readUntil(t *testing.T, conn *websocket.Conn, match func(envelope) bool) envelope {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var msg envelope
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("Failed to read message: %v", err)
		}
		if match(msg) {
			return msg
		}
	}
}

func TestHub_NewHub(t *testing.T) {
	hub := NewHub(&echoRelay{}, "dr.x_chat", NewMessageValidator(nil), zap.NewNop())

	if hub == nil {
		t.Fatal("NewHub returned nil")
	}
	if hub.clients == nil {
		t.Error("Hub clients map not initialized")
	}
	if hub.register == nil {
		t.Error("Hub register channel not initialized")
	}
	if hub.unregister == nil {
		t.Error("Hub unregister channel not initialized")
	}
	if hub.ActiveSessions() != 0 {
		t.Errorf("Expected 0 active sessions, got %d", hub.ActiveSessions())
	}
}

func TestHub_RegisterUnregister(t *testing.T) {
	hub := setupTestHub(t, &echoRelay{})

	client := newClient(hub, nil, testUser, zap.NewNop())
	hub.register <- client

	waitFor(t, func() bool { return hub.ActiveSessions() == 1 })

	hub.unregister <- client
	waitFor(t, func() bool { return hub.ActiveSessions() == 0 })

	if client.ctx.Err() == nil {
		t.Error("Client context should be cancelled after unregister")
	}

	// late snapshots after close must not panic
	client.pushState(client.state.Snapshot())
}

func TestClient_SendBufferFullClosesClient(t *testing.T) {
	hub := NewHub(&echoRelay{}, "dr.x_chat", NewMessageValidator(nil), zap.NewNop())
	client := newClient(hub, nil, testUser, zap.NewNop())

	for i := 0; i < sendBufferSize+10; i++ {
		client.sendJSON(CreatePongMessage("x"))
	}

	if !client.closed {
		t.Fatal("Client should be closed once its send buffer overflows")
	}
	if client.ctx.Err() == nil {
		t.Error("Client context should be cancelled for a slow consumer")
	}

	drained := 0
	for range client.send {
		drained++
	}
	if drained != sendBufferSize {
		t.Errorf("Expected %d buffered messages, got %d", sendBufferSize, drained)
	}

	// unregister and late snapshots after the overflow must not panic
	client.close()
	client.pushState(client.state.Snapshot())
}

func TestHub_PanickingRelayDoesNotCrashShutdown(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	logger := zap.New(core)
	hub := NewHub(panicRelay{}, "dr.x_chat", NewMessageValidator(nil), logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runPanic := make(chan interface{}, 1)
	go func() {
		defer func() { runPanic <- recover() }()
		hub.Run(ctx)
	}()

	client := newClient(hub, nil, testUser, logger)
	hub.register <- client
	waitFor(t, func() bool { return hub.ActiveSessions() == 1 })

	if !client.state.Submit(client.ctx, "hi") {
		t.Fatal("Submit should be accepted")
	}
	waitFor(t, func() bool { return !client.state.Snapshot().InFlight })

	cancel()
	select {
	case r := <-runPanic:
		if r != nil {
			t.Fatalf("Hub.Run panicked on shutdown: %v", r)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Hub.Run did not return")
	}

	if n := logs.FilterMessage("Error sending message").Len(); n != 1 {
		t.Errorf("Expected 1 failure log entry, got %d", n)
	}
}

type panicRelay struct{}

func (panicRelay) Relay(ctx context.Context, req domain.SendMessageRequest) (*domain.SendMessageResponse, error) {
	panic("relay exploded")
}

func TestWebSocket_Conversation(t *testing.T) {
	hub := setupTestHub(t, &echoRelay{})
	conn := dialTestHub(t, hub)

	initial := readUntil(t, conn, func(m envelope) bool { return m.Type == MessageTypeState })
	if len(initial.State.Turns) != 0 {
		t.Errorf("Expected empty conversation, got %d turns", len(initial.State.Turns))
	}
	if initial.State.Model != "dr.x_chat" {
		t.Errorf("Expected default model dr.x_chat, got %s", initial.State.Model)
	}

	send(t, conn, `{"type":"submit","text":"  hello  "}`)
	done := readUntil(t, conn, func(m envelope) bool {
		return m.Type == MessageTypeState && !m.State.InFlight && len(m.State.Turns) == 2
	})

	turns := done.State.Turns
	if turns[0].Role != entities.RoleUser || turns[0].Content != "hello" {
		t.Errorf("Unexpected user turn: %+v", turns[0])
	}
	if turns[1].Role != entities.RoleAssistant || turns[1].Content != "echo: hello" {
		t.Errorf("Unexpected assistant turn: %+v", turns[1])
	}
	if done.State.LastTurnID != turns[1].ID {
		t.Errorf("Expected last turn id %s, got %s", turns[1].ID, done.State.LastTurnID)
	}

	send(t, conn, `{"type":"select_model","model_id":"dr.x_r1"}`)
	selected := readUntil(t, conn, func(m envelope) bool { return m.Type == MessageTypeState })
	if selected.State.Model != "dr.x_r1" {
		t.Errorf("Expected model dr.x_r1, got %s", selected.State.Model)
	}

	// declined clear produces no state change
	send(t, conn, `{"type":"clear","confirmed":false}`)
	send(t, conn, `{"type":"clear","confirmed":true}`)
	cleared := readUntil(t, conn, func(m envelope) bool { return m.Type == MessageTypeState })
	if len(cleared.State.Turns) != 0 {
		t.Errorf("Expected cleared conversation, got %d turns", len(cleared.State.Turns))
	}
	if cleared.State.Model != "dr.x_r1" {
		t.Errorf("Clear should keep the selected model, got %s", cleared.State.Model)
	}
}

func TestWebSocket_SubmitWhileBusy(t *testing.T) {
	relay := &echoRelay{gate: make(chan struct{})}
	hub := setupTestHub(t, relay)
	conn := dialTestHub(t, hub)

	readUntil(t, conn, func(m envelope) bool { return m.Type == MessageTypeState })

	send(t, conn, `{"type":"submit","text":"first"}`)
	busy := readUntil(t, conn, func(m envelope) bool { return m.Type == MessageTypeState })
	if !busy.State.InFlight {
		t.Fatal("Expected request in flight")
	}

	send(t, conn, `{"type":"submit","text":"second"}`)
	send(t, conn, `{"type":"ping","data":"sync"}`)
	readUntil(t, conn, func(m envelope) bool {
		if m.Type == MessageTypeState && len(m.State.Turns) > 1 {
			t.Errorf("Submit while busy should be ignored, got %d turns", len(m.State.Turns))
		}
		return m.Type == MessageTypePong && m.Data == "sync"
	})

	close(relay.gate)
	done := readUntil(t, conn, func(m envelope) bool {
		return m.Type == MessageTypeState && !m.State.InFlight
	})
	if len(done.State.Turns) != 2 {
		t.Fatalf("Expected 2 turns, got %d", len(done.State.Turns))
	}
	if done.State.Turns[1].Content != "echo: first" {
		t.Errorf("Unexpected reply: %s", done.State.Turns[1].Content)
	}
}

func TestWebSocket_InvalidMessage(t *testing.T) {
	hub := setupTestHub(t, &echoRelay{})
	conn := dialTestHub(t, hub)

	readUntil(t, conn, func(m envelope) bool { return m.Type == MessageTypeState })

	send(t, conn, `{"type":"listening_start"}`)
	msg := readUntil(t, conn, func(m envelope) bool { return m.Type == MessageTypeError })
	if msg.Code != "invalid_message" {
		t.Errorf("Expected invalid_message, got %s", msg.Code)
	}

	if err := conn.WriteMessage(websocket.BinaryMessage, []byte{1, 2, 3}); err != nil {
		t.Fatalf("Failed to write binary frame: %v", err)
	}
	msg = readUntil(t, conn, func(m envelope) bool { return m.Type == MessageTypeError })
	if msg.Code != "unsupported_frame" {
		t.Errorf("Expected unsupported_frame, got %s", msg.Code)
	}
}

func TestWebSocket_DisconnectCancelsRequest(t *testing.T) {
	relay := &cancelRelay{cancelled: make(chan error, 1)}
	hub := setupTestHub(t, relay)
	conn := dialTestHub(t, hub)

	readUntil(t, conn, func(m envelope) bool { return m.Type == MessageTypeState })
	send(t, conn, `{"type":"submit","text":"hang"}`)
	readUntil(t, conn, func(m envelope) bool { return m.Type == MessageTypeState && m.State.InFlight })

	conn.Close()

	select {
	case err := <-relay.cancelled:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Expected context.Canceled, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Relay call was not cancelled after disconnect")
	}
	waitFor(t, func() bool { return hub.ActiveSessions() == 0 })
}

type cancelRelay struct {
	cancelled chan error
}

func (r *cancelRelay) Relay(ctx context.Context, req domain.SendMessageRequest) (*domain.SendMessageResponse, error) {
	<-ctx.Done()
	r.cancelled <- ctx.Err()
	return nil, ctx.Err()
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("Condition not met in time")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
