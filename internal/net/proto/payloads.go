package proto

import (
	"github.com/jackandcarter/Adventure-2.0-sub000/internal/dungeon"
	"github.com/jackandcarter/Adventure-2.0-sub000/internal/world"
)

// MovementInput is the client's predicted movement state.
type MovementInput struct {
	Position  world.Vec2 `json:"position" jsonschema:"required"`
	Direction world.Vec2 `json:"direction" jsonschema:"required"`
	Speed     float64    `json:"speed,omitempty" jsonschema:"minimum=0,description=Ignored; the server uses the actor's own speed"`
	Sprint    bool       `json:"sprint,omitempty"`
}

// MovementUpdate is the authoritative position broadcast after a move.
type MovementUpdate struct {
	ActorID   string     `json:"actorId" jsonschema:"required"`
	Position  world.Vec2 `json:"position" jsonschema:"required"`
	Direction world.Vec2 `json:"direction"`
	Snapped   bool       `json:"snapped,omitempty" jsonschema:"description=True when the claimed position was rejected"`
}

// AbilityCastRequest asks to cast an ability.
type AbilityCastRequest struct {
	AbilityID      string      `json:"abilityId" jsonschema:"minLength=1,required"`
	TargetID       string      `json:"targetId,omitempty"`
	TargetPosition *world.Vec2 `json:"targetPosition,omitempty"`
}

// AbilityCastResult answers an AbilityCastRequest.
type AbilityCastResult struct {
	AbilityID    string `json:"abilityId"`
	Accepted     bool   `json:"accepted"`
	DenialReason string `json:"denialReason,omitempty"`
}

// CombatEvent reports one resolved ability execution.
type CombatEvent struct {
	SourceID     string `json:"sourceId"`
	TargetID     string `json:"targetId,omitempty"`
	AbilityID    string `json:"abilityId"`
	EventType    string `json:"eventType" jsonschema:"enum=damage,enum=heal"`
	Outcome      string `json:"outcome"`
	Amount       int    `json:"amount"`
	Critical     bool   `json:"critical,omitempty"`
	TargetHealth int    `json:"targetHealth"`
	Killed       bool   `json:"killed,omitempty"`
	StatusEffect string `json:"statusEffect,omitempty"`
}

// StatusEffectEvent reports a status effect transition on an actor.
type StatusEffectEvent struct {
	Event    string `json:"event" jsonschema:"enum=applied,enum=refreshed,enum=ticked,enum=expired,enum=dispelled,enum=removed"`
	EffectID string `json:"effectId"`
	Kind     string `json:"kind"`
	SourceID string `json:"sourceId,omitempty"`
	TargetID string `json:"targetId"`
	Stacks   int    `json:"stacks,omitempty"`
	Amount   int    `json:"amount,omitempty"`
}

// DungeonInteractRequest asks to act on a door, interactive or trigger.
type DungeonInteractRequest struct {
	Action   string `json:"action" jsonschema:"enum=pickup_key,enum=open_door,enum=activate_trigger,enum=use_interactive,required"`
	TargetID string `json:"targetId" jsonschema:"minLength=1,required"`
	KeyID    string `json:"keyId,omitempty"`
}

// DungeonInteractResult answers a DungeonInteractRequest.
type DungeonInteractResult struct {
	Action   string `json:"action"`
	TargetID string `json:"targetId"`
	Accepted bool   `json:"accepted"`
	Reason   string `json:"reason,omitempty"`
}

// DungeonStartRequest asks the server to start (or join) the party's run.
type DungeonStartRequest struct {
	PartyID string `json:"partyId,omitempty" jsonschema:"description=Defaults to the party the player belongs to"`
	Seed    int64  `json:"seed,omitempty"`
}

// DungeonLayout is the full dungeon state sent once per connection.
type DungeonLayout struct {
	InstanceID  string                 `json:"instanceId"`
	DungeonID   string                 `json:"dungeonId"`
	Grid        []string               `json:"grid,omitempty"`
	PlayerSpawn world.Vec2             `json:"playerSpawn"`
	Layout      dungeon.LayoutSnapshot `json:"layout"`
}

// DungeonUpdate is an incremental dungeon state delta.
type DungeonUpdate struct {
	dungeon.Delta
}

// DungeonComplete announces that every gated room has been cleared.
type DungeonComplete struct {
	InstanceID string `json:"instanceId"`
	RunID      string `json:"runId"`
}

// HeartbeatPayload is sent by clients to keep the socket alive.
type HeartbeatPayload struct {
	ClientTime int64 `json:"clientTime,omitempty"`
}

// Direction says who sends a message type.
type Direction string

const (
	ClientToServer Direction = "client"
	ServerToClient Direction = "server"
)

// MessageSpec pairs a message type with a sample of its payload.
type MessageSpec struct {
	Type      string
	Direction Direction
	Payload   any
}

// Messages lists every payload the protocol carries, in a stable order.
func Messages() []MessageSpec {
	return []MessageSpec{
		{Type: TypeMovementInput, Direction: ClientToServer, Payload: MovementInput{}},
		{Type: TypeAbilityCast, Direction: ClientToServer, Payload: AbilityCastRequest{}},
		{Type: TypeHeartbeat, Direction: ClientToServer, Payload: HeartbeatPayload{}},
		{Type: TypeDungeonInteract, Direction: ClientToServer, Payload: DungeonInteractRequest{}},
		{Type: TypeDungeonStart, Direction: ClientToServer, Payload: DungeonStartRequest{}},
		{Type: TypeMovementInput, Direction: ServerToClient, Payload: MovementUpdate{}},
		{Type: TypeAbilityCast, Direction: ServerToClient, Payload: AbilityCastResult{}},
		{Type: TypeCombatEvent, Direction: ServerToClient, Payload: CombatEvent{}},
		{Type: TypeStatusEffect, Direction: ServerToClient, Payload: StatusEffectEvent{}},
		{Type: TypeDungeonInteract, Direction: ServerToClient, Payload: DungeonInteractResult{}},
		{Type: TypeDungeonLayout, Direction: ServerToClient, Payload: DungeonLayout{}},
		{Type: TypeDungeonUpdate, Direction: ServerToClient, Payload: DungeonUpdate{}},
		{Type: TypeDungeonComplete, Direction: ServerToClient, Payload: DungeonComplete{}},
		{Type: TypeError, Direction: ServerToClient, Payload: ErrorPayload{}},
		{Type: TypeHeartbeat, Direction: ServerToClient, Payload: DisconnectPayload{}},
	}
}
