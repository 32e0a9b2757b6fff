package state

import (
	"sort"
	"sync"

	"github.com/tobyre/bearroom/room/registry"
	"github.com/tobyre/bearroom/room/wire"
)

// Direction is a member's facing direction.
type Direction string

const (
	DirectionLeft  Direction = "left"
	DirectionRight Direction = "right"
)

// Defaults applied when a member record is created, before the client's
// first joinRoom or updateData frame arrives.
const (
	DefaultUsername = "Anon"
	DefaultX        = 200
	DefaultY        = 200
)

// Member is the game-facing view of one connection.
type Member struct {
	conn *registry.Conn

	mu        sync.Mutex
	username  string
	x, y      float64
	direction Direction
	sessionID string
}

// Conn returns the underlying registry connection.
func (m *Member) Conn() *registry.Conn { return m.conn }

// ID returns the identity shared with the connection.
func (m *Member) ID() int64 { return m.conn.ID() }

// Username returns the display name.
func (m *Member) Username() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.username
}

// SetUsername overwrites the display name; empty input keeps the current one.
func (m *Member) SetUsername(name string) {
	if name == "" {
		return
	}
	m.mu.Lock()
	m.username = name
	m.mu.Unlock()
}

// Position returns the current coordinates.
func (m *Member) Position() (x, y float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.x, m.y
}

// SetPosition overwrites the coordinates. Values are opaque to the store;
// range clamping is a rendering concern.
func (m *Member) SetPosition(x, y float64) {
	m.mu.Lock()
	m.x, m.y = x, y
	m.mu.Unlock()
}

// Direction returns the facing direction.
func (m *Member) Direction() Direction {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.direction
}

// SetDirection overwrites the facing direction; empty input is ignored.
func (m *Member) SetDirection(d Direction) {
	if d == "" {
		return
	}
	m.mu.Lock()
	m.direction = d
	m.mu.Unlock()
}

// SessionID returns the client-supplied session token, if any.
func (m *Member) SessionID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessionID
}

// SetSessionID records the client-supplied session token.
func (m *Member) SetSessionID(id string) {
	m.mu.Lock()
	m.sessionID = id
	m.mu.Unlock()
}

// Snapshot returns the member's public view for roster and preview pushes.
func (m *Member) Snapshot() wire.PlayerSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return wire.PlayerSnapshot{
		ID:       m.conn.ID(),
		X:        m.x,
		Y:        m.y,
		Username: m.username,
	}
}

// Store is the authoritative set of live room members.
type Store struct {
	mu      sync.RWMutex
	members map[int64]*Member
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{members: make(map[int64]*Member)}
}

// Add creates a member record with default attributes for a connection.
func (s *Store) Add(conn *registry.Conn) *Member {
	member := &Member{
		conn:      conn,
		username:  DefaultUsername,
		x:         DefaultX,
		y:         DefaultY,
		direction: DirectionRight,
	}

	s.mu.Lock()
	s.members[conn.ID()] = member
	s.mu.Unlock()
	return member
}

// Get looks up a member by connection identity.
func (s *Store) Get(id int64) (*Member, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	member, ok := s.members[id]
	return member, ok
}

// Remove drops a member. The removed record is returned so callers can
// still read its name for departure notices; ok is false if the member was
// already gone, which keeps racing cleanup paths from double-notifying.
func (s *Store) Remove(id int64) (*Member, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	member, ok := s.members[id]
	if !ok {
		return nil, false
	}
	delete(s.members, id)
	return member, true
}

// Count returns the number of live members.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.members)
}

// Snapshot returns a stable copy of the member set for fan-out iteration.
func (s *Store) Snapshot() []*Member {
	s.mu.RLock()
	defer s.mu.RUnlock()

	members := make([]*Member, 0, len(s.members))
	for _, m := range s.members {
		members = append(members, m)
	}
	return members
}

// Players returns the public roster sorted by identity, as carried by
// updateClients and previewPlayers events.
func (s *Store) Players() []wire.PlayerSnapshot {
	members := s.Snapshot()
	sort.Slice(members, func(i, j int) bool { return members[i].ID() < members[j].ID() })

	players := make([]wire.PlayerSnapshot, 0, len(members))
	for _, m := range members {
		players = append(players, m.Snapshot())
	}
	return players
}

// DuplicateSessions returns every member other than exceptID that carries
// the given non-empty session token.
func (s *Store) DuplicateSessions(token string, exceptID int64) []*Member {
	if token == "" {
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var dups []*Member
	for id, m := range s.members {
		if id == exceptID {
			continue
		}
		if m.SessionID() == token {
			dups = append(dups, m)
		}
	}
	return dups
}
