package broadcast

import (
	"log"
	"math/rand"
	"sync"

	"github.com/tobyre/bearroom/room/registry"
	"github.com/tobyre/bearroom/room/state"
	"github.com/tobyre/bearroom/room/wire"
)

// Engine delivers serialized events to room members and preview
// subscribers.
type Engine struct {
	store *state.Store
	reg   *registry.Registry

	sampleRate float64
	randFloat  func() float64

	mu            sync.Mutex
	previews      map[int64]registry.Sender
	nextPreviewID int64
}

// NewEngine creates an Engine. sampleRate is the fraction of movement
// events forwarded to the preview channel.
func NewEngine(store *state.Store, reg *registry.Registry, sampleRate float64) *Engine {
	return &Engine{
		store:      store,
		reg:        reg,
		sampleRate: sampleRate,
		randFloat:  rand.Float64,
		previews:   make(map[int64]registry.Sender),
	}
}

// ToAll delivers an event to every room member.
func (e *Engine) ToAll(msgType string, payload any) {
	e.ToAllExcept(msgType, payload)
}

// ToAllExcept delivers an event to every room member whose identity is not
// in exclude. A failed recipient is dropped and delivery continues.
func (e *Engine) ToAllExcept(msgType string, payload any, exclude ...int64) {
	frame, err := wire.Encode(msgType, payload)
	if err != nil {
		log.Printf("Failed to encode %s event: %v", msgType, err)
		return
	}

	for _, member := range e.store.Snapshot() {
		if excluded(member.ID(), exclude) {
			continue
		}
		if err := member.Conn().Send(frame); err != nil {
			log.Printf("Error sending %s to client %d: %v", msgType, member.ID(), err)
			e.dropMember(member)
		}
	}
}

// ToConn delivers an event to a single connection.
func (e *Engine) ToConn(conn *registry.Conn, msgType string, payload any) {
	frame, err := wire.Encode(msgType, payload)
	if err != nil {
		log.Printf("Failed to encode %s event: %v", msgType, err)
		return
	}
	if err := conn.Send(frame); err != nil {
		log.Printf("Error sending %s to client %d: %v", msgType, conn.ID(), err)
		if member, ok := e.store.Get(conn.ID()); ok {
			e.dropMember(member)
		}
	}
}

// dropMember treats a delivery failure as an implicit disconnect: the
// recipient leaves the store and registry silently, no notice is fanned out.
func (e *Engine) dropMember(member *state.Member) {
	e.store.Remove(member.ID())
	e.reg.Remove(member.Conn())
}

// AddPreview registers a preview subscriber and returns its identity.
func (e *Engine) AddPreview(sender registry.Sender) int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextPreviewID++
	e.previews[e.nextPreviewID] = sender
	return e.nextPreviewID
}

// RemovePreview drops a preview subscriber.
func (e *Engine) RemovePreview(id int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.previews, id)
}

// PreviewCount returns the number of preview subscribers.
func (e *Engine) PreviewCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.previews)
}

// ToPreviews delivers an event to every preview subscriber. A failed
// subscriber is dropped and delivery continues.
func (e *Engine) ToPreviews(msgType string, payload any) {
	frame, err := wire.Encode(msgType, payload)
	if err != nil {
		log.Printf("Failed to encode %s event: %v", msgType, err)
		return
	}

	e.mu.Lock()
	subs := make(map[int64]registry.Sender, len(e.previews))
	for id, sender := range e.previews {
		subs[id] = sender
	}
	e.mu.Unlock()

	for id, sender := range subs {
		if err := sender.Send(frame); err != nil {
			log.Printf("Error sending %s to preview subscriber %d: %v", msgType, id, err)
			e.RemovePreview(id)
		}
	}
}

// PushPreviewSnapshot sends the consolidated playerCount + previewPlayers
// pair that follows membership changes.
func (e *Engine) PushPreviewSnapshot() {
	e.ToPreviews(wire.TypePlayerCount, e.store.Count())
	e.ToPreviews(wire.TypePreviewPlayers, e.store.Players())
}

// SamplePreviewPlayers forwards the roster to previews for roughly
// sampleRate of the calls. Movement is continuous, so sampling bounds
// preview bandwidth without losing the picture.
func (e *Engine) SamplePreviewPlayers() {
	if e.randFloat() < e.sampleRate {
		e.ToPreviews(wire.TypePreviewPlayers, e.store.Players())
	}
}

func excluded(id int64, exclude []int64) bool {
	for _, x := range exclude {
		if x == id {
			return true
		}
	}
	return false
}
