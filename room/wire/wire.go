package wire

import (
	"encoding/json"
	"errors"
)

// Client-to-server event types.
const (
	TypeJoinRoom    = "joinRoom"
	TypeUpdateData  = "updateData"
	TypeChatMessage = "chatMessage"
	TypeMoveMessage = "moveMessage"
	TypePing        = "ping"
	TypePong        = "pong"
	TypeHeartbeat   = "hb"
)

// Server-to-client event types (room channel).
const (
	TypeAssignID      = "assignID"
	TypeUpdateClients = "updateClients"
	TypePlayerLeft    = "playerLeft"
)

// Server-to-client event types (preview channel).
const (
	TypePlayerCount    = "playerCount"
	TypePreviewPlayers = "previewPlayers"
	TypeRoomActivity   = "roomActivity"
)

// Reserved close codes. Clients use these to pick an appropriate reconnect
// message; 4000/4001 are in the private-use range of RFC 6455.
const (
	CloseHeartbeatTimeout = 4000
	CloseSessionReplaced  = 4001
)

var (
	ErrMissingType = errors.New("frame has missing or non-string type")
)

// Envelope is the outer frame: {"type": <string>, "message": <any>}.
// Message is kept raw so each handler can decode its own payload shape.
type Envelope struct {
	Type    string          `json:"type"`
	Message json.RawMessage `json:"message"`
}

// Decode parses a raw frame into an Envelope. It returns an error for
// malformed JSON or a missing/non-string type field.
func Decode(raw []byte) (*Envelope, error) {
	var probe struct {
		Type    json.RawMessage `json:"type"`
		Message json.RawMessage `json:"message"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, err
	}

	var msgType string
	if err := json.Unmarshal(probe.Type, &msgType); err != nil || msgType == "" {
		return nil, ErrMissingType
	}

	return &Envelope{Type: msgType, Message: probe.Message}, nil
}

// Encode builds a complete frame ready to hand to the transport.
func Encode(msgType string, message any) ([]byte, error) {
	return json.Marshal(struct {
		Type    string `json:"type"`
		Message any    `json:"message"`
	}{Type: msgType, Message: message})
}

// JoinPayload is sent by a client entering the room. SessionID correlates
// reconnects from the same browser tab; Message is free greeting text.
type JoinPayload struct {
	SessionID string `json:"sessionId,omitempty"`
	Username  string `json:"username,omitempty"`
	Message   string `json:"message,omitempty"`
}

// UpdatePayload overwrites the sender's display fields. Coordinates are
// pointers so an absent field leaves the current value untouched instead
// of zeroing it.
type UpdatePayload struct {
	X        *float64 `json:"x,omitempty"`
	Y        *float64 `json:"y,omitempty"`
	Username string   `json:"username,omitempty"`
}

// ChatPayload carries a chat line from a client.
type ChatPayload struct {
	Message  string `json:"message"`
	Username string `json:"username,omitempty"`
}

// MovePayload carries the sender's new position and facing direction.
// Coordinates are pointers for the same reason as UpdatePayload.
type MovePayload struct {
	X         *float64 `json:"x,omitempty"`
	Y         *float64 `json:"y,omitempty"`
	Direction string   `json:"direction,omitempty"`
}

// PingPayload is a client-initiated latency probe; the server echoes the
// timestamp back in a pong. The server's own heartbeat pings reuse it.
type PingPayload struct {
	Timestamp int64 `json:"timestamp"`
}

// AssignIDPayload tells the joining client its assigned identity.
type AssignIDPayload struct {
	ID          int64 `json:"id"`
	PlayerCount int   `json:"playerCount"`
}

// JoinNotice announces a new member to everyone already in the room.
type JoinNotice struct {
	ID          int64  `json:"id"`
	Username    string `json:"username"`
	PlayerCount int    `json:"playerCount"`
}

// ChatNotice is a chat line fanned out to all room members.
type ChatNotice struct {
	Message  string `json:"message"`
	Username string `json:"username"`
	PlayerID int64  `json:"playerId"`
}

// MoveNotice is a position update fanned out to every other member.
type MoveNotice struct {
	ID        int64   `json:"id"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Direction string  `json:"direction,omitempty"`
}

// LeftNotice announces a departed member along with the new player count.
type LeftNotice struct {
	ID          int64  `json:"id"`
	Username    string `json:"username"`
	PlayerCount int    `json:"playerCount"`
}

// PlayerSnapshot is one member's public view, used by the updateClients
// roster and the previewPlayers push.
type PlayerSnapshot struct {
	ID       int64   `json:"id"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Username string  `json:"username"`
}
