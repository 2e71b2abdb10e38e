package combat

import (
	"context"

	"github.com/jackandcarter/Adventure-2.0-sub000/logging"
)

const (
	// EventDamage is emitted when an ability deals damage to a target.
	EventDamage logging.EventType = "combat.damage"
	// EventHeal is emitted when an ability restores health.
	EventHeal logging.EventType = "combat.heal"
	// EventEvade is emitted when a target evades an ability.
	EventEvade logging.EventType = "combat.evade"
	// EventDefeat is emitted when an actor is defeated.
	EventDefeat logging.EventType = "combat.defeat"
)

// AmountPayload captures the amount dealt to or restored on a single target.
type AmountPayload struct {
	Ability      string `json:"ability"`
	Amount       int    `json:"amount"`
	Critical     bool   `json:"critical,omitempty"`
	TargetHealth int    `json:"targetHealth"`
	Execution    int    `json:"execution,omitempty"`
	StatusEffect string `json:"statusEffect,omitempty"`
}

// DefeatPayload describes the context for a fatal blow.
type DefeatPayload struct {
	Ability string `json:"ability,omitempty"`
	RoomID  string `json:"roomId,omitempty"`
}

// Damage publishes a combat damage event for a single target.
func Damage(ctx context.Context, pub logging.Publisher, tick uint64, actor, target logging.EntityRef, payload AmountPayload, extra map[string]any) {
	publish(ctx, pub, EventDamage, logging.SeverityInfo, tick, actor, target, payload, extra)
}

// Heal publishes a combat heal event for a single target.
func Heal(ctx context.Context, pub logging.Publisher, tick uint64, actor, target logging.EntityRef, payload AmountPayload, extra map[string]any) {
	publish(ctx, pub, EventHeal, logging.SeverityInfo, tick, actor, target, payload, extra)
}

// Evade publishes a debug event when a target avoids an ability.
func Evade(ctx context.Context, pub logging.Publisher, tick uint64, actor, target logging.EntityRef, payload AmountPayload, extra map[string]any) {
	publish(ctx, pub, EventEvade, logging.SeverityDebug, tick, actor, target, payload, extra)
}

// Defeat publishes a combat defeat event for the eliminated actor.
func Defeat(ctx context.Context, pub logging.Publisher, tick uint64, actor, target logging.EntityRef, payload DefeatPayload, extra map[string]any) {
	publish(ctx, pub, EventDefeat, logging.SeverityInfo, tick, actor, target, payload, extra)
}

func publish(ctx context.Context, pub logging.Publisher, eventType logging.EventType, severity logging.Severity, tick uint64, actor, target logging.EntityRef, payload any, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     eventType,
		Tick:     tick,
		Actor:    actor,
		Targets:  []logging.EntityRef{target},
		Severity: severity,
		Category: logging.CategoryCombat,
		Payload:  payload,
		Extra:    extra,
	})
}
