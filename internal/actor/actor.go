package actor

import (
	"time"

	"github.com/jackandcarter/Adventure-2.0-sub000/internal/abilities"
	"github.com/jackandcarter/Adventure-2.0-sub000/internal/status"
	"github.com/jackandcarter/Adventure-2.0-sub000/internal/world"
	"github.com/jackandcarter/Adventure-2.0-sub000/stats"
)

// Kind distinguishes players from enemies.
type Kind string

const (
	KindPlayer Kind = "player"
	KindEnemy  Kind = "enemy"
)

// CastState is an in-flight cast waiting for its completion time.
type CastState struct {
	Ability        *abilities.Definition
	StartedAt      time.Time
	CompletesAt    time.Time
	TargetID       string
	TargetPosition *world.Vec2
}

// ChannelState is a resolved ability whose effect lands when the channel ends.
type ChannelState struct {
	Ability        *abilities.Definition
	StartedAt      time.Time
	CompletesAt    time.Time
	TargetID       string
	TargetPosition *world.Vec2
	Cost           abilities.Cost
}

// Config describes an actor at spawn.
type Config struct {
	ID            string
	Kind          Kind
	DungeonRoomID string
	Position      world.Vec2
	Speed         float64
	Stats         *stats.Component
	TranceMax     float64
	TrancePassive float64
	QueueCapacity int
	AutoAbilityID string
	AggroRange    float64
	QueueMetrics  queueMetrics
}

// Actor is a player or enemy inside one simulation room. Everything except
// Commands is owned by the room tick.
type Actor struct {
	ID            string
	Kind          Kind
	DungeonRoomID string
	Position      world.Vec2
	Direction     world.Vec2
	Speed         float64
	Stats         *stats.Component
	Resources     stats.ResourceState
	Trance        stats.TranceMeter
	Cooldowns     map[string]time.Time
	Cast          *CastState
	Channel       *ChannelState
	Effects       *status.Container
	Commands      *CommandQueue
	AutoAbilityID string
	AggroRange    float64
}

// New constructs an actor with full resources.
func New(cfg Config) *Actor {
	comp := cfg.Stats
	if comp == nil {
		comp = stats.NewComponent(1, stats.ValueSet{})
	}
	capacity := cfg.QueueCapacity
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	snapshot := comp.Snapshot()
	a := &Actor{
		ID:            cfg.ID,
		Kind:          cfg.Kind,
		DungeonRoomID: cfg.DungeonRoomID,
		Position:      cfg.Position,
		Speed:         cfg.Speed,
		Stats:         comp,
		Resources:     stats.NewResourceState(snapshot),
		Trance:        stats.NewTranceMeter(snapshot, cfg.TranceMax, cfg.TrancePassive),
		Cooldowns:     make(map[string]time.Time),
		Commands:      NewCommandQueue(capacity, cfg.QueueMetrics),
		AutoAbilityID: cfg.AutoAbilityID,
		AggroRange:    cfg.AggroRange,
	}
	a.Effects = status.NewContainer(a)
	return a
}

// EntityID implements status.Target.
func (a *Actor) EntityID() string { return a.ID }

// AdjustHealth implements status.Target.
func (a *Actor) AdjustHealth(delta int) int {
	return a.Resources.ApplyHealthDelta(delta)
}

// StatComponent implements status.Target.
func (a *Actor) StatComponent() *stats.Component { return a.Stats }

// Snapshot returns the actor's current resolved stats.
func (a *Actor) Snapshot() stats.StatSnapshot {
	return a.Stats.Snapshot()
}

// Alive reports whether the actor has health remaining.
func (a *Actor) Alive() bool {
	return a.Resources.Alive()
}

// Stunned reports whether a stun effect is active.
func (a *Actor) Stunned() bool {
	return a.Effects.HasKind(status.KindStun)
}

// CooldownUntil returns when abilityID becomes usable again.
func (a *Actor) CooldownUntil(abilityID string) time.Time {
	return a.Cooldowns[abilityID]
}

// OnCooldown reports whether abilityID is unavailable at now.
func (a *Actor) OnCooldown(abilityID string, now time.Time) bool {
	until, ok := a.Cooldowns[abilityID]
	return ok && now.Before(until)
}

// Busy reports whether a cast or channel is in progress.
func (a *Actor) Busy() bool {
	return a.Cast != nil || a.Channel != nil
}

// Enqueue stages a command for the next tick.
func (a *Actor) Enqueue(cmd Command) bool {
	return a.Commands.Push(cmd)
}

// ResizeResources keeps pools within caps after a stat change.
func (a *Actor) ResizeResources() {
	a.Resources.Resize(a.Stats.Snapshot())
}
