package dungeon

import (
	"context"

	"github.com/jackandcarter/Adventure-2.0-sub000/logging"
)

const (
	// EventDoorOpened is emitted when a door transitions to open.
	EventDoorOpened logging.EventType = "dungeon.door_opened"
	// EventKeyPickedUp is emitted when a key is added to a player's ring.
	EventKeyPickedUp logging.EventType = "dungeon.key_picked_up"
	// EventTriggerActivated is emitted when a trigger fires.
	EventTriggerActivated logging.EventType = "dungeon.trigger_activated"
	// EventRoomCleared is emitted when a room's enemies are all defeated.
	EventRoomCleared logging.EventType = "dungeon.room_cleared"
	// EventInteractionDenied is emitted when a dungeon interaction is refused.
	EventInteractionDenied logging.EventType = "dungeon.interaction_denied"
	// EventCompleted is emitted when every gated room has been cleared.
	EventCompleted logging.EventType = "dungeon.completed"
	// EventLayoutWarning is emitted for each static layout issue.
	EventLayoutWarning logging.EventType = "dungeon.layout_warning"
)

// InteractionPayload identifies the object an interaction touched.
type InteractionPayload struct {
	Action   string `json:"action"`
	ObjectID string `json:"objectId"`
	KeyID    string `json:"keyId,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// RoomPayload identifies a dungeon room.
type RoomPayload struct {
	RoomID    string `json:"roomId"`
	Archetype string `json:"archetype,omitempty"`
}

// LayoutWarningPayload describes one static validation issue.
type LayoutWarningPayload struct {
	Code     string `json:"code"`
	ObjectID string `json:"objectId"`
	Message  string `json:"message"`
}

// DoorOpened publishes a door transition.
func DoorOpened(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload InteractionPayload, extra map[string]any) {
	publish(ctx, pub, EventDoorOpened, logging.SeverityInfo, tick, actor, payload, extra)
}

// KeyPickedUp publishes a key pickup.
func KeyPickedUp(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload InteractionPayload, extra map[string]any) {
	publish(ctx, pub, EventKeyPickedUp, logging.SeverityInfo, tick, actor, payload, extra)
}

// TriggerActivated publishes a trigger activation.
func TriggerActivated(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload InteractionPayload, extra map[string]any) {
	publish(ctx, pub, EventTriggerActivated, logging.SeverityInfo, tick, actor, payload, extra)
}

// InteractionDenied publishes a debug event for a refused interaction.
func InteractionDenied(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload InteractionPayload, extra map[string]any) {
	publish(ctx, pub, EventInteractionDenied, logging.SeverityDebug, tick, actor, payload, extra)
}

// RoomCleared publishes a room clear.
func RoomCleared(ctx context.Context, pub logging.Publisher, tick uint64, instance logging.EntityRef, payload RoomPayload, extra map[string]any) {
	publish(ctx, pub, EventRoomCleared, logging.SeverityInfo, tick, instance, payload, extra)
}

// Completed publishes dungeon completion.
func Completed(ctx context.Context, pub logging.Publisher, tick uint64, instance logging.EntityRef, extra map[string]any) {
	publish(ctx, pub, EventCompleted, logging.SeverityInfo, tick, instance, nil, extra)
}

// LayoutWarning publishes a static layout issue.
func LayoutWarning(ctx context.Context, pub logging.Publisher, instance logging.EntityRef, payload LayoutWarningPayload, extra map[string]any) {
	publish(ctx, pub, EventLayoutWarning, logging.SeverityWarn, 0, instance, payload, extra)
}

func publish(ctx context.Context, pub logging.Publisher, eventType logging.EventType, severity logging.Severity, tick uint64, actor logging.EntityRef, payload any, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     eventType,
		Tick:     tick,
		Actor:    actor,
		Severity: severity,
		Category: logging.CategoryDungeon,
		Payload:  payload,
		Extra:    extra,
	})
}
