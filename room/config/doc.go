// Package config provides the tunable settings for the room relay server.
//
// Settings cover the admission ceilings (global, per-IP, attempt window),
// the heartbeat interval and client timeout, the chat length limit, and the
// preview movement sampling rate. Values are read from environment
// variables with sensible defaults; main loads a .env file first so the
// same variable names work in both deployments and local development.
//
// Environment variables:
//   - MAX_GLOBAL_CONNECTIONS (default 500)
//   - MAX_CONNECTIONS_PER_IP (default 5)
//   - MAX_CONNECTION_ATTEMPTS_PER_IP (default 30)
//   - CONNECTION_ATTEMPT_WINDOW_MS (default 60000)
//   - HEARTBEAT_INTERVAL_MS (default 25000)
//   - CLIENT_TIMEOUT_MS (default 55000)
//   - MAX_CHAT_MESSAGE_LENGTH (default 512)
//   - PREVIEW_MOVE_SAMPLE_RATE (default 0.1)
package config
