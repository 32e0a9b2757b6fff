// Package dispatch routes inbound frames to their per-type handlers.
//
// One frame in, one handler call out: the Dispatcher decodes the
// {type,message} envelope, looks the type up in a closed handler table,
// and invokes the handler with the raw payload. Malformed frames are
// logged and dropped without touching room state or connection liveness;
// unknown types are ignored for forward compatibility; a panicking
// handler is recovered and logged with the offending type and connection,
// leaving the connection open.
//
// The handlers implement the room protocol: the join/reconciliation
// sequence, display updates, chat fan-out with length limiting, movement
// relay, and the ping/pong liveness exchanges.
package dispatch
