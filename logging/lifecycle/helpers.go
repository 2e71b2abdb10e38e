package lifecycle

import (
	"context"

	"github.com/jackandcarter/Adventure-2.0-sub000/logging"
)

const (
	// EventInstanceStarted is emitted when a dungeon instance begins.
	EventInstanceStarted logging.EventType = "lifecycle.instance_started"
	// EventInstanceStopped is emitted when a dungeon instance ends.
	EventInstanceStopped logging.EventType = "lifecycle.instance_stopped"
	// EventPlayerConnected is emitted when a player's connection binds to a session.
	EventPlayerConnected logging.EventType = "lifecycle.player_connected"
	// EventPlayerDisconnected is emitted when a player's connection closes.
	EventPlayerDisconnected logging.EventType = "lifecycle.player_disconnected"
)

// InstancePayload captures instance metadata.
type InstancePayload struct {
	RunID   string   `json:"runId"`
	PartyID string   `json:"partyId,omitempty"`
	Players []string `json:"players,omitempty"`
	Outcome string   `json:"outcome,omitempty"`
}

// PlayerPayload captures the connection a player used.
type PlayerPayload struct {
	ConnectionID string `json:"connectionId"`
	Reason       string `json:"reason,omitempty"`
}

// InstanceStarted publishes an instance start event.
func InstanceStarted(ctx context.Context, pub logging.Publisher, instance logging.EntityRef, payload InstancePayload, extra map[string]any) {
	publish(ctx, pub, EventInstanceStarted, instance, payload, extra)
}

// InstanceStopped publishes an instance stop event.
func InstanceStopped(ctx context.Context, pub logging.Publisher, instance logging.EntityRef, payload InstancePayload, extra map[string]any) {
	publish(ctx, pub, EventInstanceStopped, instance, payload, extra)
}

// PlayerConnected publishes a player connect event.
func PlayerConnected(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload PlayerPayload, extra map[string]any) {
	publish(ctx, pub, EventPlayerConnected, actor, payload, extra)
}

// PlayerDisconnected publishes a player disconnect event.
func PlayerDisconnected(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload PlayerPayload, extra map[string]any) {
	publish(ctx, pub, EventPlayerDisconnected, actor, payload, extra)
}

func publish(ctx context.Context, pub logging.Publisher, eventType logging.EventType, actor logging.EntityRef, payload any, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     eventType,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: "lifecycle",
		Payload:  payload,
		Extra:    extra,
	})
}
