// Package wire defines the JSON frame format shared by the room server and
// its clients.
//
// Every frame is a single JSON object with a string "type" and an arbitrary
// "message" payload. The package provides the event type catalog, payload
// structs for both directions, encode/decode helpers, and the reserved
// WebSocket close codes used to distinguish eviction reasons.
package wire
