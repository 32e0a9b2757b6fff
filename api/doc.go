// Package api provides the HTTP surface of the room server.
//
// The api package implements:
//   - WebSocket upgrade routing for the room and preview channels
//   - A read-only stats endpoint for dashboards
//   - A health check endpoint
//
// Endpoints:
//
// WebSocket:
//   - GET /room - Upgrade to a room connection (admission-checked)
//   - GET /preview - Upgrade to a read-mostly preview connection
//
// REST:
//   - GET /healthz - Liveness probe
//   - GET /api/stats - Current player count, connection count, preview
//     count, public roster, and uptime
//
// Request/Response Format:
//
// REST endpoints return JSON. The WebSocket endpoints speak the
// {type, message} frame protocol defined in the wire package.
//
// Usage:
//
//	room := websocket.NewRoomServer(cfg)
//	server := api.NewServer(room)
//	http.ListenAndServe(":3000", server)
package api
