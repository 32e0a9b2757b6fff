package wire

import (
	"encoding/json"
	"testing"
)

func TestDecodeValidFrame(t *testing.T) {
	raw := []byte(`{"type":"chatMessage","message":{"message":"hello","username":"Bear"}}`)

	env, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if env.Type != TypeChatMessage {
		t.Errorf("Expected type %q, got %q", TypeChatMessage, env.Type)
	}

	var payload ChatPayload
	if err := json.Unmarshal(env.Message, &payload); err != nil {
		t.Fatalf("Failed to unmarshal payload: %v", err)
	}
	if payload.Message != "hello" || payload.Username != "Bear" {
		t.Errorf("Unexpected payload: %+v", payload)
	}
}

func TestDecodeMalformedJSON(t *testing.T) {
	if _, err := Decode([]byte(`{"type":`)); err == nil {
		t.Error("Expected error for malformed JSON")
	}
}

func TestDecodeMissingType(t *testing.T) {
	cases := []string{
		`{"message":{}}`,
		`{"type":12,"message":{}}`,
		`{"type":null,"message":{}}`,
		`{"type":"","message":{}}`,
	}

	for _, raw := range cases {
		if _, err := Decode([]byte(raw)); err == nil {
			t.Errorf("Expected error for frame %s", raw)
		}
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	raw, err := Encode(TypeAssignID, AssignIDPayload{ID: 7, PlayerCount: 3})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	env, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if env.Type != TypeAssignID {
		t.Errorf("Expected type %q, got %q", TypeAssignID, env.Type)
	}

	var payload AssignIDPayload
	if err := json.Unmarshal(env.Message, &payload); err != nil {
		t.Fatalf("Failed to unmarshal payload: %v", err)
	}
	if payload.ID != 7 || payload.PlayerCount != 3 {
		t.Errorf("Unexpected payload: %+v", payload)
	}
}

func TestCloseCodesAreDistinct(t *testing.T) {
	if CloseHeartbeatTimeout == CloseSessionReplaced {
		t.Error("Heartbeat timeout and session replacement must use distinct close codes")
	}
}
