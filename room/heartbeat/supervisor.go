package heartbeat

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/tobyre/bearroom/room/broadcast"
	"github.com/tobyre/bearroom/room/config"
	"github.com/tobyre/bearroom/room/registry"
	"github.com/tobyre/bearroom/room/state"
	"github.com/tobyre/bearroom/room/wire"
)

// Supervisor periodically probes every live connection and evicts the ones
// that stopped answering.
type Supervisor struct {
	mu     *sync.Mutex
	reg    *registry.Registry
	store  *state.Store
	engine *broadcast.Engine

	interval time.Duration
	timeout  time.Duration
}

// NewSupervisor builds a Supervisor from the heartbeat settings in cfg.
// mu is the room mutation lock shared with the transport and dispatcher.
func NewSupervisor(reg *registry.Registry, store *state.Store, engine *broadcast.Engine, cfg config.Config, mu *sync.Mutex) *Supervisor {
	return &Supervisor{
		mu:       mu,
		reg:      reg,
		store:    store,
		engine:   engine,
		interval: cfg.HeartbeatInterval,
		timeout:  cfg.ClientTimeout,
	}
}

// Run ticks until the context is cancelled.
func (s *Supervisor) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.tick(time.Now())
		case <-ctx.Done():
			return
		}
	}
}

// tick probes every live connection once and returns how many were
// evicted. A single consolidated preview push follows if anyone was.
// The whole tick runs under the room mutation lock so an eviction never
// interleaves with a join, a close, or another handler mid-protocol.
func (s *Supervisor) tick(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0

	for _, conn := range s.reg.Snapshot() {
		last := conn.LastPong()
		if opened := conn.ConnectedAt(); last.IsZero() || opened.After(last) {
			last = opened
		}

		if now.Sub(last) > s.timeout {
			s.evict(conn)
			evicted++
			continue
		}

		conn.TouchPing(now)
		frame, err := wire.Encode(wire.TypePing, wire.PingPayload{Timestamp: now.UnixMilli()})
		if err != nil {
			log.Printf("Failed to encode heartbeat ping: %v", err)
			continue
		}
		if err := conn.Send(frame); err != nil {
			// An unreachable peer counts as gone; drop it silently like
			// any other delivery failure.
			log.Printf("Error during heartbeat for client %d: %v", conn.ID(), err)
			s.store.Remove(conn.ID())
			s.reg.Remove(conn)
			evicted++
		}
	}

	if evicted > 0 {
		s.engine.PushPreviewSnapshot()
	}
	return evicted
}

// evict closes a timed-out connection and notifies the room the same way a
// client-initiated close would.
func (s *Supervisor) evict(conn *registry.Conn) {
	conn.Close(wire.CloseHeartbeatTimeout, "Heartbeat timeout")

	member, wasMember := s.store.Remove(conn.ID())
	s.reg.Remove(conn)
	log.Printf("Heartbeat timeout for client %d", conn.ID())

	if wasMember {
		s.engine.ToAll(wire.TypePlayerLeft, wire.LeftNotice{
			ID:          member.ID(),
			Username:    member.Username(),
			PlayerCount: s.store.Count(),
		})
		s.engine.ToPreviews(wire.TypeRoomActivity, fmt.Sprintf("%s left the room", member.Username()))
	}
}
