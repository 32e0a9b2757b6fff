package websocket

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tobyre/bearroom/room/admission"
	"github.com/tobyre/bearroom/room/broadcast"
	"github.com/tobyre/bearroom/room/config"
	"github.com/tobyre/bearroom/room/dispatch"
	"github.com/tobyre/bearroom/room/heartbeat"
	"github.com/tobyre/bearroom/room/registry"
	"github.com/tobyre/bearroom/room/state"
	"github.com/tobyre/bearroom/room/wire"
)

// RoomServer assembles the room core and exposes the WebSocket endpoints.
//
// mu is the room mutation lock: every multi-step write to room state —
// admission confirm + register, the join/reconcile protocol, the close
// path, and the heartbeat tick — runs under it, so the transport's
// goroutine-per-connection model never interleaves two protocols.
type RoomServer struct {
	mu         sync.Mutex
	cfg        config.Config
	reg        *registry.Registry
	store      *state.Store
	admission  *admission.Controller
	engine     *broadcast.Engine
	dispatcher *dispatch.Dispatcher
	supervisor *heartbeat.Supervisor
}

// NewRoomServer wires every component from a single config.
func NewRoomServer(cfg config.Config) *RoomServer {
	reg := registry.New()
	store := state.NewStore()
	engine := broadcast.NewEngine(store, reg, cfg.PreviewMoveSampleRate)

	s := &RoomServer{
		cfg:       cfg,
		reg:       reg,
		store:     store,
		admission: admission.NewController(reg, cfg),
		engine:    engine,
	}
	s.dispatcher = dispatch.NewDispatcher(store, engine, reg, cfg, &s.mu)
	s.supervisor = heartbeat.NewSupervisor(reg, store, engine, cfg, &s.mu)
	return s
}

// Run drives the heartbeat supervisor until the context is cancelled.
func (s *RoomServer) Run(ctx context.Context) {
	s.supervisor.Run(ctx)
}

// PlayerCount returns the number of live room members.
func (s *RoomServer) PlayerCount() int { return s.store.Count() }

// PreviewCount returns the number of preview subscribers.
func (s *RoomServer) PreviewCount() int { return s.engine.PreviewCount() }

// ConnectionCount returns the number of open room connections.
func (s *RoomServer) ConnectionCount() int { return s.reg.Count() }

// Players returns the public roster.
func (s *RoomServer) Players() []wire.PlayerSnapshot { return s.store.Players() }

// HandleRoom admits, upgrades, and serves one room connection. It blocks
// until the connection ends and then runs cleanup exactly once.
//
// Admission is checked twice: once before the upgrade so rejections stay
// plain HTTP errors the dialer can read, and once more inside admit,
// where the confirm and the registration share the room lock. Only the
// second check is authoritative.
func (s *RoomServer) HandleRoom(w http.ResponseWriter, r *http.Request) {
	ip := clientIP(r)

	decision := s.admission.Check(ip, time.Now())
	if !decision.OK {
		log.Printf("Rejected connection from %s: %s", ip, decision.Reason)
		http.Error(w, decision.Reason, decision.StatusCode)
		return
	}

	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	client := newClient(wsConn)
	go client.writePump()

	conn, decision := s.admit(ip, client, time.Now())
	if !decision.OK {
		// Another upgrade won the last slot between the checks.
		log.Printf("Rejected connection from %s after upgrade: %s", ip, decision.Reason)
		client.Close(websocket.CloseTryAgainLater, decision.Reason)
		return
	}
	log.Printf("Client %d connected from %s (%d online)", conn.ID(), ip, s.reg.Count())

	s.readLoop(conn, wsConn)
	s.handleClose(conn, client)
}

// admit confirms admission and registers the connection as one atomic
// step, then announces the new count to previews. Holding the lock
// across confirm and register is what keeps the ceilings exact under
// concurrent upgrades.
func (s *RoomServer) admit(ip string, sender registry.Sender, now time.Time) (*registry.Conn, admission.Decision) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if decision := s.admission.Confirm(ip, now); !decision.OK {
		return nil, decision
	}

	conn := s.reg.Register(ip, sender, now)
	s.store.Add(conn)
	s.engine.ToPreviews(wire.TypePlayerCount, s.store.Count())
	return conn, admission.Decision{OK: true}
}

// readLoop feeds inbound frames to the dispatcher until the peer goes
// away or misbehaves.
func (s *RoomServer) readLoop(conn *registry.Conn, wsConn *websocket.Conn) {
	wsConn.SetReadLimit(maxMessageSize)

	for {
		_, raw, err := wsConn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("Read error for client %d: %v", conn.ID(), err)
			}
			return
		}
		s.dispatcher.Dispatch(conn, raw)
	}
}

// handleClose is the transport's cleanup path, run under the room lock.
// Removal is idempotent, so if a heartbeat eviction or session
// replacement got here first this is a no-op and the room is not
// notified twice.
func (s *RoomServer) handleClose(conn *registry.Conn, client *Client) {
	client.Close(websocket.CloseNormalClosure, "")

	s.mu.Lock()
	defer s.mu.Unlock()

	member, wasMember := s.store.Remove(conn.ID())
	removed := s.reg.Remove(conn)
	if !wasMember && !removed {
		return
	}

	log.Printf("Client %d disconnected (%d online)", conn.ID(), s.reg.Count())

	if wasMember {
		s.engine.ToAll(wire.TypePlayerLeft, wire.LeftNotice{
			ID:          member.ID(),
			Username:    member.Username(),
			PlayerCount: s.store.Count(),
		})
		s.engine.ToPreviews(wire.TypeRoomActivity, fmt.Sprintf("%s left the room", member.Username()))
	}

	s.engine.PushPreviewSnapshot()
}

// HandlePreview serves one read-mostly preview connection: an initial
// snapshot, then pushes until the peer disconnects. Previews bypass
// admission and never become room members.
func (s *RoomServer) HandlePreview(w http.ResponseWriter, r *http.Request) {
	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	client := newClient(wsConn)
	go client.writePump()

	id := s.engine.AddPreview(client)
	log.Printf("Preview subscriber %d connected (%d watching)", id, s.engine.PreviewCount())

	s.sendSnapshot(client)

	// Previews are not expected to talk; drain and discard until close.
	wsConn.SetReadLimit(maxMessageSize)
	for {
		if _, _, err := wsConn.ReadMessage(); err != nil {
			break
		}
	}

	s.engine.RemovePreview(id)
	client.Close(websocket.CloseNormalClosure, "")
	log.Printf("Preview subscriber %d disconnected (%d watching)", id, s.engine.PreviewCount())
}

// sendSnapshot delivers the initial playerCount + previewPlayers pair to
// a newly connected preview subscriber.
func (s *RoomServer) sendSnapshot(client *Client) {
	for _, push := range []struct {
		msgType string
		payload any
	}{
		{wire.TypePlayerCount, s.store.Count()},
		{wire.TypePreviewPlayers, s.store.Players()},
	} {
		frame, err := wire.Encode(push.msgType, push.payload)
		if err != nil {
			log.Printf("Failed to encode %s event: %v", push.msgType, err)
			continue
		}
		if err := client.Send(frame); err != nil {
			return
		}
	}
}

// clientIP extracts the origin address admission and per-IP accounting
// key on. Ports vary per connection, so only the host part is used.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
