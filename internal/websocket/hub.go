package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/satriahrh/drx-chat/domain"
	"github.com/satriahrh/drx-chat/domain/entities"
	"github.com/satriahrh/drx-chat/usecase"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 64 * 1024

	sendBufferSize = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Hub maintains the set of active page sessions.
type Hub struct {
	// Registered clients, keyed by connection id.
	clients map[string]*Client

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// Closed when Run returns.
	done chan struct{}

	// Mutex for thread-safe access to clients map
	mu sync.RWMutex

	relay        usecase.Relay
	defaultModel string
	validator    *MessageValidator

	logger *zap.Logger
}

// NewHub creates a new WebSocket hub
func NewHub(relay usecase.Relay, defaultModel string, validator *MessageValidator, logger *zap.Logger) *Hub {
	return &Hub{
		clients:      make(map[string]*Client),
		register:     make(chan *Client),
		unregister:   make(chan *Client),
		done:         make(chan struct{}),
		relay:        relay,
		defaultModel: defaultModel,
		validator:    validator,
		logger:       logger,
	}
}

// Run starts the hub's main loop. When ctx is done every client is closed and
// Run returns once their pending requests have resolved.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.id] = client
			h.mu.Unlock()
			h.logger.Info("Client registered",
				zap.String("clientID", client.id),
				zap.String("userID", client.user.ID),
				zap.String("user", client.user.DisplayName()))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.id]; ok {
				delete(h.clients, client.id)
				client.close()
			}
			h.mu.Unlock()
			h.logger.Info("Client unregistered", zap.String("clientID", client.id))

		case <-ctx.Done():
			h.shutdown()
			return
		}
	}
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for id, client := range h.clients {
		clients = append(clients, client)
		delete(h.clients, id)
	}
	h.mu.Unlock()

	for _, client := range clients {
		client.close()
		if client.conn != nil {
			client.conn.Close()
		}
		client.state.Wait()
	}
	h.logger.Info("Hub stopped", zap.Int("closedClients", len(clients)))
}

// ActiveSessions returns the number of connected page sessions
func (h *Hub) ActiveSessions() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

type WriteData struct {
	// MessageType is the type of the websocket message.
	// Expect websocket.TextMessage or websocket.BinaryMessage
	Type    int
	Payload []byte
}

// Client is a middleman between the websocket connection and the hub. It owns
// the conversation of one page session.
type Client struct {
	hub *Hub

	// The websocket connection.
	conn *websocket.Conn

	// Buffered channel of outbound messages.
	send chan WriteData

	id   string
	user *entities.User

	state *usecase.ConversationState

	// ctx carries the user into relay calls and is cancelled when the page goes away.
	ctx    context.Context
	cancel context.CancelFunc

	logger *zap.Logger

	// guards send against writes after close
	sendMu sync.Mutex
	closed bool
}

func newClient(hub *Hub, conn *websocket.Conn, user *entities.User, logger *zap.Logger) *Client {
	ctx, cancel := context.WithCancel(domain.WithUser(context.Background(), user))
	c := &Client{
		hub:    hub,
		conn:   conn,
		send:   make(chan WriteData, sendBufferSize),
		id:     uuid.New().String(),
		user:   user,
		ctx:    ctx,
		cancel: cancel,
	}
	c.logger = logger.With(zap.String("clientID", c.id), zap.String("userID", user.ID))
	c.state = usecase.NewConversationState(hub.relay, hub.defaultModel, c.pushState, c.logger)
	return c
}

// HandleWebSocket upgrades an authenticated request into a page session.
func HandleWebSocket(hub *Hub, c echo.Context, user *entities.User, logger *zap.Logger) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		logger.Error("WebSocket upgrade failed", zap.Error(err))
		return err
	}

	client := newClient(hub, conn, user, logger)
	select {
	case client.hub.register <- client:
	case <-client.hub.done:
		client.close()
		conn.Close()
		return nil
	}

	// initial empty conversation
	client.pushState(client.state.Snapshot())

	// Allow collection of memory referenced by the caller by doing all work in
	// new goroutines.
	go client.writePump()
	go client.readPump()

	return nil
}

// readPump pumps messages from the websocket connection to the conversation.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", zap.Error(err))
			}
			break
		}

		switch messageType {
		case websocket.TextMessage:
			c.processMessage(message)
		default:
			c.logger.Warn("Received unsupported message type", zap.Int("type", messageType))
			c.sendJSON(CreateErrorMessage("unsupported_frame", "only text frames are accepted", ""))
		}
	}
}

// writePump pumps messages from the send queue to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(message.Type, message.Payload); err != nil {
				c.logger.Error("Failed to write message", zap.Error(err))
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// processMessage routes a page action to the conversation
func (c *Client) processMessage(message []byte) {
	msg, err := c.hub.validator.ValidateMessage(message)
	if err != nil {
		c.logger.Warn("Rejected message", zap.Error(err))
		c.sendJSON(CreateErrorMessage("invalid_message", "message could not be processed", err.Error()))
		return
	}

	switch m := msg.(type) {
	case *SubmitMessage:
		if !c.state.Submit(c.ctx, m.Text) {
			c.logger.Debug("Submit ignored", zap.Bool("inFlight", c.state.Snapshot().InFlight))
		}
	case *ClearMessage:
		c.state.Clear(func() bool { return m.Confirmed })
	case *SelectModelMessage:
		c.state.SelectModel(m.ModelID)
	case *PingMessage:
		c.sendJSON(CreatePongMessage(m.Data))
	}
}

// pushState is the conversation observer. It runs with the conversation locked,
// so it only enqueues.
func (c *Client) pushState(snapshot usecase.Snapshot) {
	c.sendJSON(CreateStateMessage(snapshot))
}

func (c *Client) sendJSON(v interface{}) {
	payload, err := json.Marshal(v)
	if err != nil {
		c.logger.Error("Failed to encode message", zap.Error(err))
		return
	}
	c.enqueue(WriteData{Type: websocket.TextMessage, Payload: payload})
}

func (c *Client) enqueue(data WriteData) {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if c.closed {
		return
	}

	select {
	case c.send <- data:
	default:
		// slow consumer; the page reconnects and starts over
		c.logger.Warn("Send buffer full, closing client")
		c.closed = true
		close(c.send)
		c.cancel()
	}
}

// close cancels pending relay calls and stops the write pump
func (c *Client) close() {
	c.cancel()

	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}
