package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gorillaws "github.com/gorilla/websocket"

	"github.com/tobyre/bearroom/room/config"
	"github.com/tobyre/bearroom/room/wire"
	"github.com/tobyre/bearroom/transport/websocket"
)

func newTestAPI(t *testing.T) *httptest.Server {
	t.Helper()
	room := websocket.NewRoomServer(config.Default())
	server := httptest.NewServer(NewServer(room))
	t.Cleanup(server.Close)
	return server
}

func TestHealthEndpoint(t *testing.T) {
	server := newTestAPI(t)

	resp, err := http.Get(server.URL + "/healthz")
	if err != nil {
		t.Fatalf("Health request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200, got %d", resp.StatusCode)
	}

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Health body does not decode: %v", err)
	}
	if body["status"] != "healthy" {
		t.Errorf("Expected healthy status, got %q", body["status"])
	}
}

func TestStatsEmptyRoom(t *testing.T) {
	server := newTestAPI(t)

	resp, err := http.Get(server.URL + "/api/stats")
	if err != nil {
		t.Fatalf("Stats request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200, got %d", resp.StatusCode)
	}

	var stats StatsResponse
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		t.Fatalf("Stats body does not decode: %v", err)
	}
	if stats.PlayerCount != 0 || stats.ConnectionCount != 0 || stats.PreviewCount != 0 {
		t.Errorf("Expected empty room, got %+v", stats)
	}
}

func TestStatsReflectsLiveRoom(t *testing.T) {
	server := newTestAPI(t)

	// Join one member through the real upgrade path.
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/room"
	conn, _, err := gorillaws.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to connect to WebSocket: %v", err)
	}
	defer conn.Close()

	join, err := wire.Encode(wire.TypeJoinRoom, wire.JoinPayload{Username: "Bear"})
	if err != nil {
		t.Fatalf("Failed to encode join frame: %v", err)
	}
	if err := conn.WriteMessage(gorillaws.TextMessage, join); err != nil {
		t.Fatalf("Failed to send join frame: %v", err)
	}

	// Wait for the join handshake so the username is applied.
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err != nil {
		t.Fatalf("Join handshake failed: %v", err)
	}

	resp, err := http.Get(server.URL + "/api/stats")
	if err != nil {
		t.Fatalf("Stats request failed: %v", err)
	}
	defer resp.Body.Close()

	var stats StatsResponse
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		t.Fatalf("Stats body does not decode: %v", err)
	}
	if stats.PlayerCount != 1 || stats.ConnectionCount != 1 {
		t.Errorf("Expected 1 player and 1 connection, got %+v", stats)
	}
	if len(stats.Players) != 1 || stats.Players[0].Username != "Bear" {
		t.Errorf("Expected Bear in the roster, got %+v", stats.Players)
	}
}

func TestStatsRejectsNonGet(t *testing.T) {
	server := newTestAPI(t)

	resp, err := http.Post(server.URL+"/api/stats", "application/json", nil)
	if err != nil {
		t.Fatalf("Stats request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405 for POST, got %d", resp.StatusCode)
	}
}
