package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/tobyre/bearroom/room/wire"
	"github.com/tobyre/bearroom/transport/websocket"
)

// Server routes HTTP traffic: the WebSocket upgrade endpoints plus a
// small read-only REST surface for health checks and dashboards.
type Server struct {
	room    *websocket.RoomServer
	router  *mux.Router
	started time.Time
}

// NewServer creates the HTTP server around an assembled room.
func NewServer(room *websocket.RoomServer) *Server {
	s := &Server{
		room:    room,
		router:  mux.NewRouter(),
		started: time.Now(),
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	// WebSocket endpoints
	s.router.HandleFunc("/room", s.room.HandleRoom)
	s.router.HandleFunc("/preview", s.room.HandlePreview)

	// Read-only REST surface
	s.router.HandleFunc("/healthz", s.handleHealth).Methods("GET")
	s.router.HandleFunc("/api/stats", s.handleStats).Methods("GET")
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// StatsResponse is the /api/stats body.
type StatsResponse struct {
	PlayerCount     int                   `json:"playerCount"`
	ConnectionCount int                   `json:"connectionCount"`
	PreviewCount    int                   `json:"previewCount"`
	Players         []wire.PlayerSnapshot `json:"players"`
	UptimeSeconds   int64                 `json:"uptimeSeconds"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, StatsResponse{
		PlayerCount:     s.room.PlayerCount(),
		ConnectionCount: s.room.ConnectionCount(),
		PreviewCount:    s.room.PreviewCount(),
		Players:         s.room.Players(),
		UptimeSeconds:   int64(time.Since(s.started).Seconds()),
	})
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}
