// Package heartbeat detects and evicts unresponsive connections.
//
// The Supervisor runs on a fixed interval. Each tick it walks the live
// connection set: a peer whose last liveness reply (or connection open,
// whichever is later) is older than the timeout is closed with the
// reserved heartbeat close code, removed from the registry and store, and
// announced to the remaining members exactly like a client-initiated
// close. Everyone else gets an application-level ping frame and a fresh
// last-ping stamp. The supervisor never waits for a reply; non-reply is
// detected purely by elapsed time on a later tick.
//
// If a tick evicted anyone, a single consolidated preview snapshot push
// follows, regardless of how many connections were dropped.
package heartbeat
