// Package websocket is the transport layer: it upgrades HTTP requests,
// pumps frames in both directions, and bridges gorilla/websocket
// connections into the room core.
//
// Core Types:
//   - Client: wraps one peer connection behind the non-blocking Sender
//     surface. Outbound frames go through a buffered queue drained by a
//     dedicated write pump; a full queue reports failure instead of
//     blocking, so one slow consumer never stalls a fan-out.
//   - RoomServer: owns the assembled room (registry, admission, state,
//     broadcast, dispatch, heartbeat) and exposes the /room and /preview
//     upgrade handlers.
//
// Connection Lifecycle:
//
// 1. Admission rules are checked before the upgrade; rejections are
// plain HTTP errors so the client sees the status code.
// 2. After the upgrade the decision is confirmed and the connection
// registered as one atomic step under the room lock; a racer that lost
// the last slot between the two checks is closed with 1013.
// 3. The read loop feeds every inbound frame to the dispatcher.
// 4. When the read loop ends, for any reason, one cleanup path removes
// the member, notifies the room, and refreshes previews. The removal
// is idempotent, so a heartbeat eviction racing a transport close never
// double-notifies.
//
// Preview connections skip admission and membership entirely: they get
// an initial snapshot and then receive pushes until they disconnect.
//
// Concurrency:
//
// Each connection has one reader and one writer goroutine. Everything
// else reaches the connection only through Send and Close, both safe
// for concurrent use. A single room mutation lock, owned by RoomServer
// and shared with the dispatcher and the heartbeat supervisor,
// serializes every multi-step write to room state: admission confirm
// plus register, each handler invocation, the close path, and the
// heartbeat tick.
package websocket
