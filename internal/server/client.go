// Package server is the transport seam of the chat relay: it upgrades HTTP
// requests to WebSocket sessions, pumps messages between clients and the
// relay, and serves the HTTP read endpoints.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/iPrq/RealChatApp/internal/broker"
	"github.com/iPrq/RealChatApp/internal/chat"
	"github.com/iPrq/RealChatApp/internal/store"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = 54 * time.Second
	sendBuffer   = 256
)

// Client is one live WebSocket session. Its buffered send channel is the
// sink registered with the broadcast topic; the write pump drains it onto
// the wire and the read pump feeds inbound messages to the relay.
type Client struct {
	conn        *websocket.Conn
	sessions    *SessionManager
	addr        string
	log         zerolog.Logger
	rateLimiter *rateLimiter

	mu     sync.Mutex
	closed bool
	send   chan []byte
}

func newClient(conn *websocket.Conn, sessions *SessionManager, addr string) *Client {
	cfg := sessions.cfg
	if conn != nil {
		conn.SetReadLimit(cfg.MaxMessageSize)
	}

	return &Client{
		conn:        conn,
		sessions:    sessions,
		addr:        addr,
		log:         sessions.log.With().Str("addr", addr).Logger(),
		rateLimiter: newRateLimiter(cfg.RateLimit.Burst, cfg.RateLimit.RefillInterval),
		send:        make(chan []byte, sendBuffer),
	}
}

// Deliver queues payload for this client without blocking. It fails with
// broker.ErrSinkClosed after the session is torn down and with
// broker.ErrSinkFull when the client cannot keep up with the fan-out.
func (c *Client) Deliver(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return broker.ErrSinkClosed
	}
	select {
	case c.send <- payload:
		return nil
	default:
		return broker.ErrSinkFull
	}
}

// closeSink closes the send channel exactly once, stopping the write pump.
func (c *Client) closeSink() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

func (c *Client) setupReadConnection() {
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.log.Warn().Err(err).Msg("setting initial read deadline failed")
	}
	c.conn.SetPongHandler(func(string) error {
		if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			c.log.Warn().Err(err).Msg("setting read deadline in pong handler failed")
		}
		return nil
	})
}

// handleReadError logs the read failure at a severity matching its cause.
func (c *Client) handleReadError(err error) {
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		c.log.Warn().Int64("limit", c.sessions.cfg.MaxMessageSize).Msg("message exceeded maximum size")
	case websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure):
		c.log.Info().Err(err).Msg("client disconnected")
	case errors.Is(err, io.EOF), isExpectedCloseError(err):
		c.log.Info().Err(err).Msg("connection closed")
	default:
		c.log.Warn().Err(err).Msg("websocket read error")
	}
}

// processMessage decodes one inbound frame and runs it through the relay.
// Failures are reported back to this client only; they never reach the
// broadcast topic.
func (c *Client) processMessage(raw []byte) {
	var msg chat.Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.log.Warn().Err(err).Msg("discarding malformed message")
		c.reportError("malformed message payload")
		return
	}

	if _, err := c.sessions.relay.Execute(context.Background(), msg); err != nil {
		c.log.Warn().Err(err).Msg("relay rejected message")
		c.reportError(clientErrorText(err))
	}
}

// reportError sends a JSON error frame to this client alone. Delivery is
// best-effort; a saturated sink drops the report.
func (c *Client) reportError(text string) {
	payload, err := json.Marshal(struct {
		Error string `json:"error"`
	}{Error: text})
	if err != nil {
		return
	}
	_ = c.Deliver(payload)
}

// clientErrorText maps a relay failure to the text surfaced to the client.
func clientErrorText(err error) string {
	switch {
	case errors.Is(err, store.ErrInvalidMessage):
		return err.Error()
	case errors.Is(err, store.ErrUnavailable):
		return "message store unavailable"
	default:
		return "internal error"
	}
}

func (c *Client) readPump() {
	defer func() {
		c.sessions.OnDisconnect(c)
		if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
			c.log.Warn().Err(err).Msg("closing connection in read pump failed")
		}
	}()

	c.setupReadConnection()

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			c.handleReadError(err)
			return
		}

		if !c.rateLimiter.allow() {
			c.log.Warn().Msg("rate limit exceeded; discarding message")
			continue
		}

		c.processMessage(raw)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
			c.log.Warn().Err(err).Msg("closing connection in write pump failed")
		}
	}()

	for {
		select {
		case payload, ok := <-c.send:
			if !c.writeMessage(payload, ok) {
				return
			}
		case <-ticker.C:
			if !c.writePing() {
				return
			}
		}
	}
}

// writeMessage writes one payload plus anything already queued behind it,
// separated by newlines. It returns false when the pump should stop.
func (c *Client) writeMessage(payload []byte, ok bool) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.log.Warn().Err(err).Msg("setting write deadline failed")
		return false
	}

	if !ok {
		// Sink closed by the session manager.
		if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil && !isExpectedCloseError(err) {
			c.log.Warn().Err(err).Msg("writing close message failed")
		}
		return false
	}

	w, err := c.conn.NextWriter(websocket.TextMessage)
	if err != nil {
		return false
	}
	if _, err := w.Write(payload); err != nil {
		c.log.Warn().Err(err).Msg("writing message failed")
		return false
	}

	queued := len(c.send)
	for i := 0; i < queued; i++ {
		extra, open := <-c.send
		if !open {
			break
		}
		if _, err := w.Write([]byte{'\n'}); err != nil {
			return false
		}
		if _, err := w.Write(extra); err != nil {
			return false
		}
	}

	if err := w.Close(); err != nil {
		c.log.Warn().Err(err).Msg("closing message writer failed")
		return false
	}
	return true
}

func (c *Client) writePing() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return false
	}
	return c.conn.WriteMessage(websocket.PingMessage, nil) == nil
}

// isExpectedCloseError reports whether err is part of normal connection
// teardown and not worth logging as a failure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	text := err.Error()
	return strings.Contains(text, "use of closed network connection") ||
		strings.Contains(text, "websocket: close sent") ||
		strings.Contains(text, "broken pipe")
}
