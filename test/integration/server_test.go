// Package integration contains end-to-end tests that exercise the chat
// relay through its public HTTP and WebSocket surface.
package integration

import (
	"net/http"
	"testing"

	"github.com/iPrq/RealChatApp/internal/chat"
	"github.com/iPrq/RealChatApp/test/testhelpers"
)

func TestHealthEndpoint(t *testing.T) {
	app := testhelpers.NewApp(t)

	var body struct {
		Status   string `json:"status"`
		Database string `json:"database"`
		Service  string `json:"service"`
	}
	resp := testhelpers.GetJSON(t, app.Server.URL+"/health", &body)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /health = %d, want 200", resp.StatusCode)
	}
	if body.Status != "UP" || body.Database != "connected" {
		t.Errorf("health = %+v, want UP/connected", body)
	}
	if body.Service == "" {
		t.Error("health response is missing the service field")
	}
}

func TestHealthEndpointWithClosedStore(t *testing.T) {
	app := testhelpers.NewApp(t)

	if err := app.Store.Close(); err != nil {
		t.Fatalf("closing store failed: %v", err)
	}

	resp := testhelpers.GetJSON(t, app.Server.URL+"/health", nil)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("GET /health with closed store = %d, want 503", resp.StatusCode)
	}
}

func TestStatusEndpoint(t *testing.T) {
	app := testhelpers.NewApp(t)

	var body map[string]string
	resp := testhelpers.GetJSON(t, app.Server.URL+"/api/status", &body)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /api/status = %d, want 200", resp.StatusCode)
	}
	if body["status"] != "running" || body["service"] == "" || body["version"] == "" {
		t.Errorf("status = %v, want running service identity", body)
	}
}

func TestHistoryEndpointEmptyStore(t *testing.T) {
	app := testhelpers.NewApp(t)

	var messages []chat.Message
	resp := testhelpers.GetJSON(t, app.Server.URL+"/message", &messages)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /message = %d, want 200", resp.StatusCode)
	}
	if len(messages) != 0 {
		t.Errorf("empty store returned %d messages", len(messages))
	}
}

func TestHistoryEndpointWithClosedStore(t *testing.T) {
	app := testhelpers.NewApp(t)

	if err := app.Store.Close(); err != nil {
		t.Fatalf("closing store failed: %v", err)
	}

	resp := testhelpers.GetJSON(t, app.Server.URL+"/message", nil)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("GET /message with closed store = %d, want 503", resp.StatusCode)
	}
}

func TestWebSocketEndpointRejectsNonGet(t *testing.T) {
	app := testhelpers.NewApp(t)

	client := &http.Client{}
	resp, err := client.Post(app.Server.URL+"/ws", "application/json", nil)
	if err != nil {
		t.Fatalf("POST /ws failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("POST /ws = %d, want 405", resp.StatusCode)
	}
}
