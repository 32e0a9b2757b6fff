// Package registry tracks every live room connection.
//
// The Registry is the sole owner of Conn records: it assigns monotonically
// increasing identities, keeps per-IP open-connection counts, and guarantees
// that each counted connection decrements its IP counter exactly once no
// matter how many paths (transport close, heartbeat eviction, session
// replacement) race to remove it.
//
// The Sender interface is the registry's only view of the transport: a
// fire-and-forget Send that reports failure synchronously, and a Close
// carrying a status code and reason. Other packages reference connections
// by *Conn but never construct them.
package registry
