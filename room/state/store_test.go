package state

import (
	"testing"
	"time"

	"github.com/tobyre/bearroom/room/registry"
)

type nopSender struct{}

func (nopSender) Send(message []byte) error { return nil }
func (nopSender) Close(code int, reason string) {}

func newTestConn(reg *registry.Registry) *registry.Conn {
	return reg.Register("10.0.0.1", nopSender{}, time.Now())
}

func TestAddAppliesDefaults(t *testing.T) {
	reg := registry.New()
	store := NewStore()

	member := store.Add(newTestConn(reg))

	if member.Username() != "Anon" {
		t.Errorf("Expected default username Anon, got %q", member.Username())
	}
	x, y := member.Position()
	if x != 200 || y != 200 {
		t.Errorf("Expected default position (200,200), got (%g,%g)", x, y)
	}
	if member.Direction() != DirectionRight {
		t.Errorf("Expected default direction right, got %s", member.Direction())
	}
	if member.SessionID() != "" {
		t.Errorf("Expected empty session token, got %q", member.SessionID())
	}
}

func TestSetUsernameIgnoresEmpty(t *testing.T) {
	reg := registry.New()
	store := NewStore()
	member := store.Add(newTestConn(reg))

	member.SetUsername("Honey")
	member.SetUsername("")

	if member.Username() != "Honey" {
		t.Errorf("Expected username Honey, got %q", member.Username())
	}
}

func TestRemoveReturnsRecordOnce(t *testing.T) {
	reg := registry.New()
	store := NewStore()
	member := store.Add(newTestConn(reg))
	member.SetUsername("Grizzly")

	removed, ok := store.Remove(member.ID())
	if !ok {
		t.Fatal("First removal should succeed")
	}
	if removed.Username() != "Grizzly" {
		t.Errorf("Removed record should keep its name, got %q", removed.Username())
	}

	if _, ok := store.Remove(member.ID()); ok {
		t.Error("Second removal should report already gone")
	}
	if store.Count() != 0 {
		t.Errorf("Expected empty store, got %d members", store.Count())
	}
}

func TestPlayersSortedByID(t *testing.T) {
	reg := registry.New()
	store := NewStore()

	a := store.Add(newTestConn(reg))
	b := store.Add(newTestConn(reg))
	c := store.Add(newTestConn(reg))
	b.SetPosition(10, 20)

	players := store.Players()
	if len(players) != 3 {
		t.Fatalf("Expected 3 players, got %d", len(players))
	}
	if players[0].ID != a.ID() || players[1].ID != b.ID() || players[2].ID != c.ID() {
		t.Errorf("Players not sorted by ID: %+v", players)
	}
	if players[1].X != 10 || players[1].Y != 20 {
		t.Errorf("Expected snapshot to carry position (10,20), got (%g,%g)", players[1].X, players[1].Y)
	}
}

func TestDuplicateSessions(t *testing.T) {
	reg := registry.New()
	store := NewStore()

	a := store.Add(newTestConn(reg))
	b := store.Add(newTestConn(reg))
	c := store.Add(newTestConn(reg))

	a.SetSessionID("tab-1")
	b.SetSessionID("tab-1")
	c.SetSessionID("tab-2")

	dups := store.DuplicateSessions("tab-1", b.ID())
	if len(dups) != 1 {
		t.Fatalf("Expected 1 duplicate, got %d", len(dups))
	}
	if dups[0].ID() != a.ID() {
		t.Errorf("Expected duplicate %d, got %d", a.ID(), dups[0].ID())
	}
}

func TestDuplicateSessionsEmptyToken(t *testing.T) {
	reg := registry.New()
	store := NewStore()

	// Members without a token must never match each other.
	store.Add(newTestConn(reg))
	b := store.Add(newTestConn(reg))

	if dups := store.DuplicateSessions("", b.ID()); dups != nil {
		t.Errorf("Empty token should match nothing, got %d members", len(dups))
	}
}

func TestSnapshotIsStableUnderRemoval(t *testing.T) {
	reg := registry.New()
	store := NewStore()

	a := store.Add(newTestConn(reg))
	store.Add(newTestConn(reg))

	snap := store.Snapshot()
	store.Remove(a.ID())

	if len(snap) != 2 {
		t.Errorf("Snapshot should keep 2 entries after removal, got %d", len(snap))
	}
}
