package server

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/iPrq/RealChatApp/internal/broker"
	"github.com/iPrq/RealChatApp/internal/config"
	"github.com/iPrq/RealChatApp/internal/relay"
)

// SessionManager bridges transport connect and disconnect events to
// broadcast topic membership. It is the only entity that subscribes or
// unsubscribes a session's sink, and it tracks live sessions so shutdown
// can close every connection and wait for the pumps to drain.
type SessionManager struct {
	topic *broker.Topic
	relay *relay.Relay
	cfg   *config.Config
	log   zerolog.Logger

	mu       sync.Mutex
	sessions map[*Client]struct{}
	closed   bool
	wg       sync.WaitGroup
}

// NewSessionManager wires a session manager to the shared topic and relay.
// The manager registers itself as the topic's eviction handler so a sink
// dropped for failed delivery gets its session torn down too.
func NewSessionManager(topic *broker.Topic, rl *relay.Relay, cfg *config.Config, log zerolog.Logger) *SessionManager {
	m := &SessionManager{
		topic:    topic,
		relay:    rl,
		cfg:      cfg,
		log:      log.With().Str("component", "session").Logger(),
		sessions: make(map[*Client]struct{}),
	}
	topic.SetEvictionHandler(m.evictSink)
	return m
}

// evictSink tears down the session behind a sink the topic dropped after a
// failed delivery. Closing the sink stops the write pump, which closes the
// connection and unwinds the read pump.
func (m *SessionManager) evictSink(_ string, sink broker.Sink) {
	if client, ok := sink.(*Client); ok {
		m.OnDisconnect(client)
	}
}

// OnConnect creates a session for an upgraded connection, subscribes its
// sink to the broadcast topic, and starts the read and write pumps. The
// connection is refused when the manager is already shut down.
func (m *SessionManager) OnConnect(conn *websocket.Conn, addr string) *Client {
	client := newClient(conn, m, addr)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		_ = conn.Close()
		return nil
	}
	m.sessions[client] = struct{}{}
	count := len(m.sessions)
	m.wg.Add(2)
	m.mu.Unlock()

	m.topic.Subscribe(relay.BroadcastTopic, client)
	m.log.Info().Str("addr", addr).Int("sessions", count).Msg("session connected")

	go func() {
		defer m.wg.Done()
		client.writePump()
	}()
	go func() {
		defer m.wg.Done()
		client.readPump()
	}()

	return client
}

// OnDisconnect unsubscribes the session's sink and tears the session down.
// It is safe to call more than once for the same client.
func (m *SessionManager) OnDisconnect(client *Client) {
	m.mu.Lock()
	_, live := m.sessions[client]
	if live {
		delete(m.sessions, client)
	}
	count := len(m.sessions)
	m.mu.Unlock()

	if !live {
		return
	}

	m.topic.Unsubscribe(relay.BroadcastTopic, client)
	client.closeSink()
	m.log.Info().Str("addr", client.addr).Int("sessions", count).Msg("session disconnected")
}

// Count returns the number of live sessions.
func (m *SessionManager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Shutdown closes every live connection and waits for the pump goroutines
// to finish, or until the timeout elapses.
func (m *SessionManager) Shutdown(timeout time.Duration) error {
	m.mu.Lock()
	m.closed = true
	clients := make([]*Client, 0, len(m.sessions))
	for client := range m.sessions {
		clients = append(clients, client)
	}
	m.mu.Unlock()

	m.log.Info().Int("sessions", len(clients)).Msg("closing client connections")
	for _, client := range clients {
		if err := client.conn.Close(); err != nil && !isExpectedCloseError(err) {
			m.log.Warn().Err(err).Str("addr", client.addr).Msg("closing client connection failed")
		}
	}

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		m.log.Info().Msg("session shutdown completed")
		return nil
	case <-time.After(timeout):
		m.log.Warn().Msg("session shutdown timed out; some pumps may still be running")
		return context.DeadlineExceeded
	}
}
