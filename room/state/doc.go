// Package state holds the live set of room members and their mutable
// game-facing attributes.
//
// A Member is the room's view of a registry connection: username, position,
// facing direction, and an optional client-supplied session token used to
// recognize reconnects. The Store keys members by connection identity with
// O(1) add/remove and O(n) snapshot reads; DuplicateSessions supports the
// join-time reconciliation that evicts stale connections carrying the same
// token. All Store and Member operations are safe for concurrent use, since
// mutations arrive from per-connection read pumps and the heartbeat
// supervisor alike.
package state
