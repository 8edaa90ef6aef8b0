// Command chatclient talks to a running server from the terminal: it logs in,
// opens the page websocket and submits every line read from stdin.
package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/ilyakaznacheev/cleanenv"
	"go.uber.org/zap"

	"github.com/satriahrh/drx-chat/domain/entities"
	"github.com/satriahrh/drx-chat/usecase"
)

type clientConfig struct {
	ServerURL string `env:"DRX_SERVER" env-default:"http://localhost:8080"`
	Email     string `env:"DRX_EMAIL" env-required:"true"`
	Password  string `env:"DRX_PASSWORD" env-required:"true"`
	Model     string `env:"DRX_MODEL"`
}

type serverMessage struct {
	Type    string           `json:"type"`
	State   usecase.Snapshot `json:"state"`
	Message string           `json:"message"`
	Details string           `json:"details"`
}

func main() {
	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	var cfg clientConfig
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		logger.Fatal("Invalid client configuration", zap.Error(err))
	}

	// Step 1: log in and keep the session cookie
	cookie, err := login(cfg)
	if err != nil {
		logger.Fatal("Login failed", zap.Error(err))
	}
	fmt.Println("✓ Logged in as", cfg.Email)

	// Step 2: open the page websocket with the session cookie
	wsURL, err := websocketURL(cfg.ServerURL)
	if err != nil {
		logger.Fatal("Invalid server URL", zap.Error(err))
	}

	header := http.Header{}
	header.Add("Cookie", cookie.String())
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	if err != nil {
		if resp != nil {
			logger.Fatal("WebSocket connection failed", zap.Int("status", resp.StatusCode), zap.Error(err))
		}
		logger.Fatal("WebSocket connection failed", zap.Error(err))
	}
	defer conn.Close()

	if cfg.Model != "" {
		if err := conn.WriteJSON(map[string]string{"type": "select_model", "model_id": cfg.Model}); err != nil {
			logger.Fatal("Failed to select model", zap.Error(err))
		}
	}

	go printReplies(conn, logger)

	// Step 3: every stdin line is a submit
	fmt.Println("Type a message and press enter. Ctrl-D to quit.")
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "/clear" {
			conn.WriteJSON(map[string]interface{}{"type": "clear", "confirmed": true})
			continue
		}
		if err := conn.WriteJSON(map[string]string{"type": "submit", "text": line}); err != nil {
			logger.Error("Failed to send message", zap.Error(err))
			return
		}
	}

	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func login(cfg clientConfig) (*http.Cookie, error) {
	body, _ := json.Marshal(map[string]string{"email": cfg.Email, "password": cfg.Password})
	resp, err := http.Post(strings.TrimRight(cfg.ServerURL, "/")+"/api/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("login returned status %d", resp.StatusCode)
	}
	for _, c := range resp.Cookies() {
		if c.Value != "" {
			return &http.Cookie{Name: c.Name, Value: c.Value}, nil
		}
	}
	return nil, fmt.Errorf("login response carried no session cookie")
}

func websocketURL(serverURL string) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = "/ws"
	return u.String(), nil
}

// printReplies prints each new assistant turn once
func printReplies(conn *websocket.Conn, logger *zap.Logger) {
	printed := make(map[string]bool)
	busy := false

	for {
		var msg serverMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				logger.Error("Connection closed", zap.Error(err))
			}
			os.Exit(0)
		}

		switch msg.Type {
		case "state":
			if msg.State.InFlight && !busy {
				fmt.Println("… جاري المعالجة")
			}
			busy = msg.State.InFlight
			for _, turn := range msg.State.Turns {
				if turn.Role == entities.RoleAssistant && !printed[turn.ID] {
					printed[turn.ID] = true
					fmt.Printf("Dr.X [%s]: %s\n", msg.State.Model, turn.Content)
				}
			}
		case "error":
			logger.Warn("Server rejected message", zap.String("message", msg.Message), zap.String("details", msg.Details))
		}
	}
}
