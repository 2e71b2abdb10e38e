package proto

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Message type identifiers carried in Envelope.Type.
const (
	TypeMovementInput   = "movement/input"
	TypeAbilityCast     = "ability/cast"
	TypeHeartbeat       = "system/heartbeat"
	TypeError           = "system/error"
	TypeDungeonInteract = "dungeon/interact"
	TypeDungeonStart    = "dungeon/start"
	TypeDungeonLayout   = "dungeon/layout"
	TypeDungeonUpdate   = "dungeon/update"
	TypeDungeonComplete = "dungeon/complete"
	TypeCombatEvent     = "combat/event"
	TypeStatusEffect    = "status/effect"
)

// ErrMissingType is returned when a frame decodes but names no message type.
var ErrMissingType = errors.New("envelope type is required")

// Envelope is the wire unit: one JSON object per text frame.
type Envelope struct {
	Type      string          `json:"type" jsonschema:"description=Message type identifier,minLength=1,required"`
	SessionID string          `json:"sessionId,omitempty" jsonschema:"description=Session the frame is bound to"`
	RequestID string          `json:"requestId,omitempty" jsonschema:"description=Client correlation id echoed on replies"`
	Payload   json.RawMessage `json:"payload,omitempty" jsonschema:"description=Type-specific body"`
}

// NewEnvelope marshals payload into an envelope of the given type.
func NewEnvelope(messageType, sessionID, requestID string, payload any) (Envelope, error) {
	env := Envelope{Type: messageType, SessionID: sessionID, RequestID: requestID}
	if payload == nil {
		return env, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s payload: %w", messageType, err)
	}
	env.Payload = data
	return env, nil
}

// Decode parses a raw frame into an envelope.
func Decode(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Type == "" {
		return Envelope{}, ErrMissingType
	}
	return env, nil
}

// Encode renders the envelope as a text frame.
func (e Envelope) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// DecodePayload unmarshals the envelope body into out. An empty body leaves
// out at its zero value.
func (e Envelope) DecodePayload(out any) error {
	if len(e.Payload) == 0 || string(e.Payload) == "null" {
		return nil
	}
	if err := json.Unmarshal(e.Payload, out); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.Type, err)
	}
	return nil
}
