package status_effects

import (
	"context"

	"github.com/jackandcarter/Adventure-2.0-sub000/logging"
)

const (
	// EventApplied is emitted when a status effect is applied to an actor.
	EventApplied logging.EventType = "status_effects.applied"
	// EventExpired is emitted when a status effect runs out.
	EventExpired logging.EventType = "status_effects.expired"
	// EventDispelled is emitted when a status effect is dispelled.
	EventDispelled logging.EventType = "status_effects.dispelled"
)

// Payload captures details about a status effect transition.
type Payload struct {
	StatusEffect string `json:"statusEffect"`
	Kind         string `json:"kind,omitempty"`
	Stacks       int    `json:"stacks,omitempty"`
}

// Applied publishes a status effect application event.
func Applied(ctx context.Context, pub logging.Publisher, tick uint64, actor, target logging.EntityRef, payload Payload, extra map[string]any) {
	publish(ctx, pub, EventApplied, tick, actor, target, payload, extra)
}

// Expired publishes a status effect expiry event.
func Expired(ctx context.Context, pub logging.Publisher, tick uint64, actor, target logging.EntityRef, payload Payload, extra map[string]any) {
	publish(ctx, pub, EventExpired, tick, actor, target, payload, extra)
}

// Dispelled publishes a status effect dispel event.
func Dispelled(ctx context.Context, pub logging.Publisher, tick uint64, actor, target logging.EntityRef, payload Payload, extra map[string]any) {
	publish(ctx, pub, EventDispelled, tick, actor, target, payload, extra)
}

func publish(ctx context.Context, pub logging.Publisher, eventType logging.EventType, tick uint64, actor, target logging.EntityRef, payload Payload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     eventType,
		Tick:     tick,
		Actor:    actor,
		Targets:  []logging.EntityRef{target},
		Severity: logging.SeverityInfo,
		Category: "status_effects",
		Payload:  payload,
		Extra:    extra,
	})
}
