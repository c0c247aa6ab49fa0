// Package testhelpers provides shared utilities for the chat relay's
// integration tests: full-stack app construction over a temporary SQLite
// database and WebSocket client helpers.
package testhelpers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/iPrq/RealChatApp/internal/broker"
	"github.com/iPrq/RealChatApp/internal/chat"
	"github.com/iPrq/RealChatApp/internal/config"
	"github.com/iPrq/RealChatApp/internal/relay"
	"github.com/iPrq/RealChatApp/internal/server"
	"github.com/iPrq/RealChatApp/internal/store"
)

// App is a fully wired chat relay running on an httptest server.
type App struct {
	Server   *httptest.Server
	Store    *store.SQLiteStore
	Topic    *broker.Topic
	Sessions *server.SessionManager
}

// NewApp builds the full stack over a temporary SQLite database and starts
// it on an httptest server. Origins defaults to allowing everything;
// teardown is registered on t.Cleanup.
func NewApp(t *testing.T, origins ...string) *App {
	t.Helper()

	if len(origins) == 0 {
		origins = []string{"*"}
	}

	cfg := config.Default()
	cfg.DatabasePath = filepath.Join(t.TempDir(), "chat.db")
	cfg.AllowedOrigins = origins
	logger := zerolog.Nop()

	st, err := store.OpenSQLite(context.Background(), cfg.DatabasePath)
	if err != nil {
		t.Fatalf("opening test store failed: %v", err)
	}

	topic := broker.NewTopic(logger)
	relaySvc := relay.NewRelay(st, topic, logger)
	history := relay.NewHistory(st)
	sessions := server.NewSessionManager(topic, relaySvc, cfg, logger)
	handler := server.NewHandler(sessions, history, st, cfg.AllowedOrigins, logger)
	router := server.NewRouter(handler, cfg.AllowedOrigins, logger)

	ts := httptest.NewServer(router)

	t.Cleanup(func() {
		_ = sessions.Shutdown(2 * time.Second)
		ts.Close()
		_ = st.Close()
	})

	return &App{
		Server:   ts,
		Store:    st,
		Topic:    topic,
		Sessions: sessions,
	}
}

// WebSocketURL returns the ws:// URL of the app's /ws endpoint.
func (a *App) WebSocketURL() string {
	return "ws" + strings.TrimPrefix(a.Server.URL, "http") + "/ws"
}

// WaitForSubscribers blocks until the broadcast topic has n subscribers or
// the timeout elapses.
func (a *App) WaitForSubscribers(t *testing.T, n int) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if a.Topic.Subscribers(relay.BroadcastTopic) >= n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("topic never reached %d subscribers (have %d)",
		n, a.Topic.Subscribers(relay.BroadcastTopic))
}

// ConnectWebSocket dials the app's WebSocket endpoint with the given Origin
// header. The connection is closed on t.Cleanup.
func (a *App) ConnectWebSocket(t *testing.T, origin string) *websocket.Conn {
	t.Helper()

	conn, err := DialWebSocket(a.WebSocketURL(), origin)
	if err != nil {
		t.Fatalf("websocket dial failed: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// DialWebSocket dials url with the given Origin header and returns the raw
// result so rejection cases can be asserted.
func DialWebSocket(url, origin string) (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}

	headers := http.Header{}
	if origin != "" {
		headers.Set("Origin", origin)
	}

	conn, resp, err := dialer.Dial(url, headers)
	if resp != nil {
		_ = resp.Body.Close()
	}
	return conn, err
}

// SendMessage publishes a chat message over the connection.
func SendMessage(t *testing.T, conn *websocket.Conn, msg chat.Message) {
	t.Helper()
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("sending message failed: %v", err)
	}
}

// ReceiveMessages reads frames until n messages have arrived, decoding the
// newline-separated coalescing the write pump may apply. It fails the test
// after a 2 second read deadline.
func ReceiveMessages(t *testing.T, conn *websocket.Conn, n int) []chat.Message {
	t.Helper()

	var messages []chat.Message
	for len(messages) < n {
		if err := conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
			t.Fatalf("setting read deadline failed: %v", err)
		}
		_, frame, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("reading message failed after %d of %d: %v", len(messages), n, err)
		}
		for _, part := range bytes.Split(frame, []byte{'\n'}) {
			if len(part) == 0 {
				continue
			}
			var msg chat.Message
			if err := json.Unmarshal(part, &msg); err != nil {
				t.Fatalf("broadcast frame is not valid JSON (%q): %v", part, err)
			}
			messages = append(messages, msg)
		}
	}
	return messages
}

// ReceiveErrorFrame reads one frame and decodes it as a JSON error report.
func ReceiveErrorFrame(t *testing.T, conn *websocket.Conn) string {
	t.Helper()

	if err := conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatalf("setting read deadline failed: %v", err)
	}
	_, frame, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("reading error frame failed: %v", err)
	}

	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(frame, &body); err != nil {
		t.Fatalf("error frame is not valid JSON (%q): %v", frame, err)
	}
	if body.Error == "" {
		t.Fatalf("frame %q carries no error field", frame)
	}
	return body.Error
}

// GetJSON performs a GET request and decodes the JSON response body into out.
func GetJSON(t *testing.T, url string, out any) *http.Response {
	t.Helper()

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		t.Fatalf("GET %s failed: %v", url, err)
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decoding response from %s failed: %v", url, err)
		}
	}
	return resp
}
