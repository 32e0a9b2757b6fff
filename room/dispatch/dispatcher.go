package dispatch

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/tobyre/bearroom/room/broadcast"
	"github.com/tobyre/bearroom/room/config"
	"github.com/tobyre/bearroom/room/registry"
	"github.com/tobyre/bearroom/room/state"
	"github.com/tobyre/bearroom/room/wire"
)

type handlerFunc func(conn *registry.Conn, payload json.RawMessage)

// Dispatcher parses inbound frames and routes them by event type. Every
// handler runs under the shared room mutation lock, so multi-step
// protocols like join reconciliation are atomic against concurrent
// frames, closes, and heartbeat ticks.
type Dispatcher struct {
	mu     *sync.Mutex
	store  *state.Store
	engine *broadcast.Engine
	reg    *registry.Registry

	maxChatLen int
	handlers   map[string]handlerFunc
	now        func() time.Time
}

// NewDispatcher wires the handler table for every supported event type.
// mu is the room mutation lock shared with the transport and heartbeat.
func NewDispatcher(store *state.Store, engine *broadcast.Engine, reg *registry.Registry, cfg config.Config, mu *sync.Mutex) *Dispatcher {
	d := &Dispatcher{
		mu:         mu,
		store:      store,
		engine:     engine,
		reg:        reg,
		maxChatLen: cfg.MaxChatMessageLength,
		now:        time.Now,
	}
	d.handlers = map[string]handlerFunc{
		wire.TypeJoinRoom:    d.handleJoin,
		wire.TypeUpdateData:  d.handleUpdate,
		wire.TypeChatMessage: d.handleChat,
		wire.TypeMoveMessage: d.handleMove,
		wire.TypePing:        d.handlePing,
		wire.TypePong:        d.handlePong,
		wire.TypeHeartbeat:   d.handlePong,
	}
	return d
}

// Dispatch processes a single inbound frame. A malformed frame, an unknown
// type, or a panicking handler never affects the connection.
func (d *Dispatcher) Dispatch(conn *registry.Conn, raw []byte) {
	env, err := wire.Decode(raw)
	if err != nil {
		log.Printf("Invalid message from client %d: %v", conn.ID(), err)
		return
	}

	handler, ok := d.handlers[env.Type]
	if !ok {
		// Unknown types are ignored so newer clients keep working.
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Error handling %s from client %d: %v", env.Type, conn.ID(), r)
		}
	}()
	handler(conn, env.Message)
}

// handleJoin runs session reconciliation and then announces the member.
// The joiner gets its identity and the full roster; everyone else gets a
// lightweight join notice.
func (d *Dispatcher) handleJoin(conn *registry.Conn, raw json.RawMessage) {
	member, ok := d.store.Get(conn.ID())
	if !ok {
		return
	}

	var payload wire.JoinPayload
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &payload); err != nil {
			log.Printf("Ignoring malformed join payload from client %d: %v", conn.ID(), err)
		}
	}

	if payload.SessionID != "" {
		member.SetSessionID(payload.SessionID)
		d.reconcileSessions(conn, payload.SessionID)
	}

	member.SetUsername(payload.Username)
	count := d.store.Count()

	d.engine.ToAllExcept(wire.TypeJoinRoom, wire.JoinNotice{
		ID:          conn.ID(),
		Username:    member.Username(),
		PlayerCount: count,
	}, conn.ID())

	d.engine.ToConn(conn, wire.TypeAssignID, wire.AssignIDPayload{ID: conn.ID(), PlayerCount: count})
	d.engine.ToConn(conn, wire.TypeUpdateClients, d.store.Players())

	d.engine.ToPreviews(wire.TypeRoomActivity, fmt.Sprintf("%s joined the room", member.Username()))
	d.engine.ToPreviews(wire.TypePlayerCount, d.store.Count())
}

// reconcileSessions evicts every other member holding the same session
// token. Remaining members see the duplicate leave before the new join
// notice fires, with a player count that already reflects the removal.
func (d *Dispatcher) reconcileSessions(conn *registry.Conn, token string) {
	dups := d.store.DuplicateSessions(token, conn.ID())
	for _, dup := range dups {
		d.engine.ToAllExcept(wire.TypePlayerLeft, wire.LeftNotice{
			ID:          dup.ID(),
			Username:    dup.Username(),
			PlayerCount: d.store.Count() - 1,
		}, conn.ID(), dup.ID())

		d.store.Remove(dup.ID())
		d.reg.Remove(dup.Conn())
		dup.Conn().Close(wire.CloseSessionReplaced, "Replaced by new session connection")
		d.engine.ToPreviews(wire.TypeRoomActivity, fmt.Sprintf("%s left the room", dup.Username()))
		log.Printf("Replaced stale connection for session %s (old id %d -> new id %d)",
			token, dup.ID(), conn.ID())
	}

	if len(dups) > 0 {
		d.engine.PushPreviewSnapshot()
	}
}

// handleUpdate overwrites the sender's display fields without any room
// broadcast; members learn positions from move events.
func (d *Dispatcher) handleUpdate(conn *registry.Conn, raw json.RawMessage) {
	member, ok := d.store.Get(conn.ID())
	if !ok {
		return
	}

	var payload wire.UpdatePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		log.Printf("Ignoring malformed update payload from client %d: %v", conn.ID(), err)
		return
	}

	x, y := member.Position()
	if payload.X != nil {
		x = *payload.X
	}
	if payload.Y != nil {
		y = *payload.Y
	}
	member.SetPosition(x, y)
	member.SetUsername(payload.Username)

	d.engine.ToPreviews(wire.TypePreviewPlayers, d.store.Players())
}

// handleChat fans a chat line to every member and a formatted activity
// line to previews. Over-length messages are dropped silently.
func (d *Dispatcher) handleChat(conn *registry.Conn, raw json.RawMessage) {
	member, ok := d.store.Get(conn.ID())
	if !ok {
		return
	}

	var payload wire.ChatPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		log.Printf("Ignoring malformed chat payload from client %d: %v", conn.ID(), err)
		return
	}

	if payload.Message == "" || len(payload.Message) >= d.maxChatLen {
		return
	}

	username := payload.Username
	if username == "" {
		username = member.Username()
	}
	message := strings.TrimSpace(payload.Message)

	d.engine.ToAll(wire.TypeChatMessage, wire.ChatNotice{
		Message:  message,
		Username: username,
		PlayerID: conn.ID(),
	})
	d.engine.ToPreviews(wire.TypeRoomActivity, fmt.Sprintf("%s: %s", username, message))
}

// handleMove applies the position to the sender's own record and fans it
// to every other member; the sender is never echoed its own movement.
func (d *Dispatcher) handleMove(conn *registry.Conn, raw json.RawMessage) {
	member, ok := d.store.Get(conn.ID())
	if !ok {
		return
	}

	var payload wire.MovePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		log.Printf("Ignoring malformed move payload from client %d: %v", conn.ID(), err)
		return
	}

	x, y := member.Position()
	if payload.X != nil {
		x = *payload.X
	}
	if payload.Y != nil {
		y = *payload.Y
	}
	member.SetPosition(x, y)
	member.SetDirection(state.Direction(payload.Direction))

	d.engine.ToAllExcept(wire.TypeMoveMessage, wire.MoveNotice{
		ID:        conn.ID(),
		X:         x,
		Y:         y,
		Direction: payload.Direction,
	}, conn.ID())

	d.engine.SamplePreviewPlayers()
}

// handlePing answers the sender directly with a pong echoing its timestamp.
func (d *Dispatcher) handlePing(conn *registry.Conn, raw json.RawMessage) {
	var payload wire.PingPayload
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &payload); err != nil {
			log.Printf("Ignoring malformed ping payload from client %d: %v", conn.ID(), err)
			return
		}
	}
	d.engine.ToConn(conn, wire.TypePong, wire.PingPayload{Timestamp: payload.Timestamp})
}

// handlePong records a liveness reply; both pong and hb frames land here.
func (d *Dispatcher) handlePong(conn *registry.Conn, raw json.RawMessage) {
	conn.TouchPong(d.now())
}
