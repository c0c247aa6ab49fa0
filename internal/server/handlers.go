package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/iPrq/RealChatApp/internal/chat"
	"github.com/iPrq/RealChatApp/internal/relay"
	"github.com/iPrq/RealChatApp/internal/store"
)

const (
	serviceName = "RealChatApp Backend"
	apiName     = "RealChatApp API"
	version     = "1.0.0"

	healthCheckTimeout = 3 * time.Second
)

// Handler bundles the HTTP endpoints of the chat service: the WebSocket
// upgrade, the message history read, and the diagnostics endpoints.
type Handler struct {
	sessions *SessionManager
	history  *relay.History
	store    store.MessageStore
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewHandler builds the HTTP handler set. The origin allow-list guards the
// WebSocket upgrade only; CORS for the plain HTTP endpoints is applied by
// the router.
func NewHandler(sessions *SessionManager, history *relay.History, st store.MessageStore, origins []string, log zerolog.Logger) *Handler {
	hlog := log.With().Str("component", "http").Logger()
	checker := newOriginChecker(origins, hlog)

	return &Handler{
		sessions: sessions,
		history:  history,
		store:    st,
		log:      hlog,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checker.check,
		},
	}
}

// WebSocket upgrades the request and hands the connection to the session
// manager, which subscribes the client to the broadcast topic.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("websocket upgrade failed")
		return
	}

	h.sessions.OnConnect(conn, r.RemoteAddr)
}

// History returns every stored message in insertion order as a JSON array.
// An empty store yields an empty array; an unreachable store yields 503.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	messages, err := h.history.GetHistory(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("history read failed")
		h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "message store unavailable",
		})
		return
	}

	if messages == nil {
		messages = []chat.Message{}
	}
	h.writeJSON(w, http.StatusOK, messages)
}

// healthResponse mirrors the diagnostics shape consumed by the web client.
type healthResponse struct {
	Status    string `json:"status"`
	Database  string `json:"database"`
	Error     string `json:"error,omitempty"`
	Timestamp string `json:"timestamp"`
	Service   string `json:"service"`
}

// Health reports store reachability and a timestamp.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	resp := healthResponse{
		Status:    "UP",
		Database:  "connected",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Service:   serviceName,
	}
	code := http.StatusOK

	if err := h.store.Ping(ctx); err != nil {
		resp.Status = "DOWN"
		resp.Database = "disconnected"
		resp.Error = err.Error()
		code = http.StatusServiceUnavailable
	}

	h.writeJSON(w, code, resp)
}

// Status reports static service identity.
func (h *Handler) Status(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{
		"service":   apiName,
		"status":    "running",
		"version":   version,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.log.Warn().Err(err).Msg("writing json response failed")
	}
}
