package registry

import (
	"sync"
	"time"
)

// Sender is the transport-level surface the core needs from a connection.
// Send must not block; it reports delivery failure synchronously. Close
// terminates the transport with the given status code and reason and is
// safe to call more than once.
type Sender interface {
	Send(message []byte) error
	Close(code int, reason string)
}

// Conn is one live transport session. Records are created and removed by
// the Registry only; the timestamp stamps are safe for concurrent use.
type Conn struct {
	id          int64
	remoteAddr  string
	connectedAt time.Time
	sender      Sender

	mu       sync.Mutex
	lastPing time.Time
	lastPong time.Time
	closed   bool
}

// ID returns the process-lifetime-unique numeric identity.
func (c *Conn) ID() int64 { return c.id }

// RemoteAddr returns the origin address the connection was admitted under.
func (c *Conn) RemoteAddr() string { return c.remoteAddr }

// ConnectedAt returns when the connection was registered.
func (c *Conn) ConnectedAt() time.Time { return c.connectedAt }

// Send forwards a frame to the peer. A closed connection reports failure.
func (c *Conn) Send(message []byte) error {
	return c.sender.Send(message)
}

// Close terminates the transport once; later calls are no-ops.
func (c *Conn) Close(code int, reason string) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	c.sender.Close(code, reason)
}

// Closed reports whether Close has been called.
func (c *Conn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// TouchPing records that a heartbeat probe was sent.
func (c *Conn) TouchPing(now time.Time) {
	c.mu.Lock()
	c.lastPing = now
	c.mu.Unlock()
}

// TouchPong records a liveness reply from the peer.
func (c *Conn) TouchPong(now time.Time) {
	c.mu.Lock()
	c.lastPong = now
	c.mu.Unlock()
}

// LastPing returns when the last heartbeat probe was sent.
func (c *Conn) LastPing() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastPing
}

// LastPong returns the last liveness reply, or the zero time if the peer
// has never answered.
func (c *Conn) LastPong() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastPong
}

// Registry owns the set of live connections and the per-IP open counts.
type Registry struct {
	mu     sync.RWMutex
	nextID int64
	conns  map[int64]*Conn
	perIP  map[string]int
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		conns: make(map[int64]*Conn),
		perIP: make(map[string]int),
	}
}

// Register creates a Conn for an admitted connection, assigns the next
// identity, and increments the origin's open count.
func (r *Registry) Register(remoteAddr string, sender Sender, now time.Time) *Conn {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	conn := &Conn{
		id:          r.nextID,
		remoteAddr:  remoteAddr,
		connectedAt: now,
		sender:      sender,
	}
	r.conns[conn.id] = conn
	r.perIP[remoteAddr]++
	return conn
}

// Remove drops a connection and decrements its IP count. It is idempotent:
// only the first call for a given Conn returns true and touches the
// counter, so racing cleanup paths cannot double-decrement.
func (r *Registry) Remove(conn *Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conns[conn.id]; !ok {
		return false
	}
	delete(r.conns, conn.id)

	next := r.perIP[conn.remoteAddr] - 1
	if next <= 0 {
		delete(r.perIP, conn.remoteAddr)
	} else {
		r.perIP[conn.remoteAddr] = next
	}
	return true
}

// Get looks up a live connection by identity.
func (r *Registry) Get(id int64) (*Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.conns[id]
	return conn, ok
}

// Count returns the number of live connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// CountForIP returns the open-connection count for one origin.
func (r *Registry) CountForIP(remoteAddr string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.perIP[remoteAddr]
}

// Snapshot returns a stable copy of the live connection set, so callers
// can iterate and evict without holding the registry lock.
func (r *Registry) Snapshot() []*Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := make([]*Conn, 0, len(r.conns))
	for _, conn := range r.conns {
		conns = append(conns, conn)
	}
	return conns
}
