package sim

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jackandcarter/Adventure-2.0-sub000/internal/actor"
	"github.com/jackandcarter/Adventure-2.0-sub000/internal/combat"
	"github.com/jackandcarter/Adventure-2.0-sub000/internal/dungeon"
	"github.com/jackandcarter/Adventure-2.0-sub000/internal/status"
	"github.com/jackandcarter/Adventure-2.0-sub000/internal/world"
	"github.com/jackandcarter/Adventure-2.0-sub000/logging"
	loggingdungeon "github.com/jackandcarter/Adventure-2.0-sub000/logging/dungeon"
	loggingsimulation "github.com/jackandcarter/Adventure-2.0-sub000/logging/simulation"
	loggingstatus "github.com/jackandcarter/Adventure-2.0-sub000/logging/status_effects"
)

const (
	DefaultGraceWindow      = 250 * time.Millisecond
	DefaultSprintMultiplier = 1.5
)

var (
	ErrActorExists   = errors.New("actor already in room")
	ErrActorNotFound = errors.New("actor not in room")
	ErrQueueFull     = errors.New("actor command queue full")
)

const (
	reasonNoDungeon     dungeon.Reason = "no_dungeon"
	reasonUnknownAction dungeon.Reason = "unknown_action"
	reasonStunned       dungeon.Reason = "stunned"
	reasonDead          dungeon.Reason = "dead"
)

// RoomConfig wires a room to its collaborators.
type RoomConfig struct {
	ID               string
	Layout           *world.RoomLayout
	Executor         *combat.Executor
	Dungeon          *dungeon.StateValidator
	GraceWindow      time.Duration
	SprintMultiplier float64
	Deps             Deps
}

// Room is the authority for one dungeon instance. Tick is the only writer of
// actor state; Enqueue only touches an actor's command queue.
type Room struct {
	id       string
	layout   *world.RoomLayout
	executor *combat.Executor
	dungeon  *dungeon.StateValidator
	grace    time.Duration
	sprint   float64
	deps     Deps
	outputs  *OutputQueue
	recorder func(context.Context, []combat.ExecutionResult)

	tickMu    sync.Mutex
	tick      uint64
	cleared   map[string]bool
	completed bool

	mu     sync.RWMutex
	actors map[string]*actor.Actor
	order  []string
}

// NewRoom builds an empty room.
func NewRoom(cfg RoomConfig) (*Room, error) {
	if cfg.Layout == nil {
		return nil, errors.New("room layout is required")
	}
	if cfg.Executor == nil {
		return nil, errors.New("ability executor is required")
	}
	grace := cfg.GraceWindow
	if grace <= 0 {
		grace = DefaultGraceWindow
	}
	sprint := cfg.SprintMultiplier
	if sprint <= 0 {
		sprint = DefaultSprintMultiplier
	}
	r := &Room{
		id:       cfg.ID,
		layout:   cfg.Layout,
		executor: cfg.Executor,
		dungeon:  cfg.Dungeon,
		grace:    grace,
		sprint:   sprint,
		deps:     cfg.Deps.withDefaults(),
		outputs:  NewOutputQueue(),
		cleared:  make(map[string]bool),
		actors:   make(map[string]*actor.Actor),
	}
	r.recorder = combat.NewResultTelemetryRecorder(combat.ResultTelemetryRecorderConfig{
		Publisher:    r.deps.Publisher,
		LookupEntity: r.entityRef,
		CurrentTick:  func() uint64 { return r.tick },
		RoomID:       r.id,
	})
	return r, nil
}

// ID returns the room id.
func (r *Room) ID() string { return r.id }

// Layout returns the room's static layout.
func (r *Room) Layout() *world.RoomLayout { return r.layout }

// Outputs is the queue drained by the dispatcher.
func (r *Room) Outputs() *OutputQueue { return r.outputs }

// CurrentTick returns the number of completed ticks.
func (r *Room) CurrentTick() uint64 {
	r.tickMu.Lock()
	defer r.tickMu.Unlock()
	return r.tick
}

// AddActor places an actor in the room.
func (r *Room) AddActor(a *actor.Actor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.actors[a.ID]; exists {
		return fmt.Errorf("%w: %s", ErrActorExists, a.ID)
	}
	r.actors[a.ID] = a
	r.order = append(r.order, a.ID)
	sort.Strings(r.order)
	return nil
}

// RemoveActor drops an actor. Removing an absent actor is a no-op.
func (r *Room) RemoveActor(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.actors[id]; !exists {
		return false
	}
	delete(r.actors, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// Actor implements combat.Roster.
func (r *Room) Actor(id string) (*actor.Actor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.actors[id]
	return a, ok
}

// Actors implements combat.Roster; actors are returned in id order.
func (r *Room) Actors() []*actor.Actor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*actor.Actor, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.actors[id])
	}
	return out
}

// Enqueue stages a command for the actor's next tick. It is safe to call
// from any goroutine.
func (r *Room) Enqueue(actorID string, cmd actor.Command) error {
	a, ok := r.Actor(actorID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrActorNotFound, actorID)
	}
	if !a.Enqueue(cmd) {
		loggingsimulation.CommandDropped(context.Background(), r.deps.Publisher, 0, r.entityRef(actorID),
			loggingsimulation.CommandDroppedPayload{Command: cmd.Kind.String(), Reason: string(combat.DenialQueueFull)}, nil)
		return fmt.Errorf("%w: %s", ErrQueueFull, actorID)
	}
	return nil
}

// Tick advances the room by delta. Calls never overlap.
func (r *Room) Tick(delta time.Duration) {
	r.tickMu.Lock()
	defer r.tickMu.Unlock()

	ctx := context.Background()
	r.tick++
	now := r.deps.Clock.Now()
	actors := r.Actors()

	for _, a := range actors {
		commands := a.Commands.Drain()
		if !a.Alive() {
			r.dropCommands(a, commands)
			continue
		}
		a.Trance.Advance(delta.Seconds())
		a.Effects.Tick(delta)
		a.ResizeResources()
		if !a.Alive() {
			r.dropCommands(a, commands)
			continue
		}
		for _, cmd := range commands {
			r.handleCommand(a, cmd, now, delta)
		}
		if a.Kind == actor.KindEnemy && len(commands) == 0 {
			r.think(a, now, delta)
		}
	}

	r.executor.UpdateCasting(now, r)
	r.executor.UpdateChannels(now, r)
	results := r.executor.DrainResults()
	for _, result := range results {
		r.emit(Output{Kind: OutputCombat, ActorID: result.CasterID, Combat: result})
	}
	if r.recorder != nil {
		r.recorder(ctx, results)
	}

	for _, a := range actors {
		r.publishStatusEvents(ctx, a)
	}
	r.checkRoomClears(ctx)
}

func (r *Room) handleCommand(a *actor.Actor, cmd actor.Command, now time.Time, delta time.Duration) {
	switch cmd.Kind {
	case actor.CommandMovement:
		r.handleMovement(a, cmd, delta)
	case actor.CommandAbilityCastInput:
		r.handleCast(a, cmd.RequestID, cmd.CastInput.ToCast(cmd.IssuedAt), now)
	case actor.CommandAbilityCast:
		r.handleCast(a, cmd.RequestID, cmd.Cast, now)
	case actor.CommandInteract:
		r.handleInteract(a, cmd)
	default:
		r.deps.Logger.Printf("[sim] room %s dropping unknown command kind %d from %s", r.id, cmd.Kind, a.ID)
	}
}

// handleMovement reconciles the client's claimed position, then applies the
// claimed direction for one tick. Blocked movement holds position silently.
func (r *Room) handleMovement(a *actor.Actor, cmd actor.Command, delta time.Duration) {
	if a.Stunned() {
		return
	}
	m := cmd.Movement
	speed := m.Speed
	if speed <= 0 || speed > a.Speed {
		speed = a.Speed
	}
	if m.Sprint {
		speed *= r.sprint
	}

	origin := a.Position
	snapped := false
	if world.Distance(m.Position, a.Position) <= speed*r.grace.Seconds() && r.layout.IsWalkable(m.Position) {
		origin = m.Position
	} else {
		snapped = true
	}

	direction := m.Direction.Normalize()
	displacement := direction.Scale(speed * delta.Seconds())
	if !displacement.IsZero() {
		r.executor.Interrupt(a)
	}
	next, ok := r.layout.TryResolveMovement(origin, displacement)
	if !ok {
		return
	}
	a.Position = next
	if !direction.IsZero() {
		a.Direction = direction
	}
	r.emit(Output{
		Kind:      OutputMovement,
		ActorID:   a.ID,
		RequestID: cmd.RequestID,
		Movement:  MovementOutput{Position: a.Position, Direction: a.Direction, Snapped: snapped},
	})
}

func (r *Room) handleCast(a *actor.Actor, requestID string, cast actor.AbilityCastCommand, now time.Time) {
	reject := func(denial combat.Denial) {
		r.emit(Output{
			Kind:          OutputAbilityResult,
			ActorID:       a.ID,
			RequestID:     requestID,
			Directed:      true,
			AbilityResult: AbilityResultOutput{AbilityID: cast.AbilityID, Denial: denial},
		})
	}
	if a.Stunned() {
		reject(combat.DenialStunned)
		return
	}
	if a.Busy() {
		reject(combat.DenialBusy)
		return
	}
	var target *actor.Actor
	if cast.TargetID != "" {
		found, ok := r.Actor(cast.TargetID)
		if !ok || !found.Alive() {
			reject(combat.DenialInvalidTarget)
			return
		}
		target = found
	}
	if ok, denial := r.executor.Validate(cast, a, target, now); !ok {
		reject(denial)
		return
	}
	if !cast.IssuedAt.IsZero() && cast.IssuedAt.After(now.Add(r.grace)) {
		reject(combat.DenialStaleCommand)
		return
	}
	if cast.AbilityID == "" {
		reject(combat.DenialMissingAbility)
		return
	}
	r.executor.StartCast(cast, a, now)
	r.emit(Output{
		Kind:          OutputAbilityResult,
		ActorID:       a.ID,
		RequestID:     requestID,
		Directed:      true,
		AbilityResult: AbilityResultOutput{AbilityID: cast.AbilityID, Accepted: true},
	})
}

func (r *Room) handleInteract(a *actor.Actor, cmd actor.Command) {
	in := cmd.Interact
	var outcome dungeon.Outcome
	switch {
	case r.dungeon == nil:
		outcome = dungeon.Outcome{Reason: reasonNoDungeon}
	case a.Stunned():
		outcome = dungeon.Outcome{Reason: reasonStunned}
	default:
		switch in.Action {
		case actor.InteractPickupKey:
			outcome = r.dungeon.RegisterKeyPickup(a.ID, in.TargetID)
		case actor.InteractOpenDoor:
			outcome = r.dungeon.TryOpenDoor(a.ID, in.TargetID, in.KeyID)
		case actor.InteractActivateTrigger:
			outcome = r.dungeon.TryActivateTrigger(a.ID, in.TargetID)
		case actor.InteractUseInteractive:
			outcome = r.dungeon.UseInteractive(a.ID, in.TargetID, in.KeyID)
		default:
			outcome = dungeon.Outcome{Reason: reasonUnknownAction}
		}
	}

	r.emit(Output{
		Kind:      OutputInteractResult,
		ActorID:   a.ID,
		RequestID: cmd.RequestID,
		Directed:  true,
		Interact: InteractResultOutput{
			Action:   in.Action,
			TargetID: in.TargetID,
			Accepted: outcome.Accepted,
			Reason:   outcome.Reason,
		},
	})

	ctx := context.Background()
	payload := loggingdungeon.InteractionPayload{Action: string(in.Action), ObjectID: in.TargetID, KeyID: in.KeyID}
	if !outcome.Accepted {
		payload.Reason = string(outcome.Reason)
		loggingdungeon.InteractionDenied(ctx, r.deps.Publisher, r.tick, r.entityRef(a.ID), payload, nil)
		return
	}
	if outcome.Delta.Empty() {
		return
	}
	r.emit(Output{Kind: OutputDungeonUpdate, ActorID: a.ID, Dungeon: outcome.Delta})
	for _, door := range outcome.Delta.Doors {
		loggingdungeon.DoorOpened(ctx, r.deps.Publisher, r.tick, r.entityRef(a.ID),
			loggingdungeon.InteractionPayload{Action: string(in.Action), ObjectID: door.ID, KeyID: in.KeyID}, nil)
	}
	for _, key := range outcome.Delta.Keys {
		if key.Consumed {
			continue
		}
		loggingdungeon.KeyPickedUp(ctx, r.deps.Publisher, r.tick, r.entityRef(a.ID),
			loggingdungeon.InteractionPayload{Action: string(in.Action), ObjectID: in.TargetID, KeyID: key.KeyID}, nil)
	}
	for _, trigger := range outcome.Delta.Triggers {
		loggingdungeon.TriggerActivated(ctx, r.deps.Publisher, r.tick, r.entityRef(a.ID),
			loggingdungeon.InteractionPayload{Action: string(in.Action), ObjectID: trigger}, nil)
	}
}

func (r *Room) dropCommands(a *actor.Actor, commands []actor.Command) {
	for _, cmd := range commands {
		switch cmd.Kind {
		case actor.CommandAbilityCast, actor.CommandAbilityCastInput:
			abilityID := cmd.Cast.AbilityID
			if cmd.Kind == actor.CommandAbilityCastInput {
				abilityID = cmd.CastInput.AbilityID
			}
			r.emit(Output{
				Kind:          OutputAbilityResult,
				ActorID:       a.ID,
				RequestID:     cmd.RequestID,
				Directed:      true,
				AbilityResult: AbilityResultOutput{AbilityID: abilityID, Denial: combat.DenialDead},
			})
		case actor.CommandInteract:
			r.emit(Output{
				Kind:      OutputInteractResult,
				ActorID:   a.ID,
				RequestID: cmd.RequestID,
				Directed:  true,
				Interact: InteractResultOutput{
					Action:   cmd.Interact.Action,
					TargetID: cmd.Interact.TargetID,
					Reason:   reasonDead,
				},
			})
		}
	}
}

func (r *Room) publishStatusEvents(ctx context.Context, a *actor.Actor) {
	for _, event := range a.Effects.DrainEvents() {
		r.emit(Output{Kind: OutputStatusEffect, ActorID: a.ID, Status: event})
		payload := loggingstatus.Payload{StatusEffect: event.EffectID, Kind: string(event.Effect), Stacks: event.Stacks}
		source := r.entityRef(event.SourceID)
		target := r.entityRef(event.TargetID)
		switch event.Kind {
		case status.EventApplied:
			loggingstatus.Applied(ctx, r.deps.Publisher, r.tick, source, target, payload, nil)
		case status.EventExpired:
			loggingstatus.Expired(ctx, r.deps.Publisher, r.tick, source, target, payload, nil)
		case status.EventDispelled:
			loggingstatus.Dispelled(ctx, r.deps.Publisher, r.tick, source, target, payload, nil)
		}
	}
}

// checkRoomClears marks every dungeon room whose enemies are all down and
// reports completion once no gated room remains.
func (r *Room) checkRoomClears(ctx context.Context) {
	enemies := make(map[string][]*actor.Actor)
	for _, a := range r.Actors() {
		if a.Kind == actor.KindEnemy && a.DungeonRoomID != "" {
			enemies[a.DungeonRoomID] = append(enemies[a.DungeonRoomID], a)
		}
	}
	roomIDs := make([]string, 0, len(enemies))
	for id := range enemies {
		roomIDs = append(roomIDs, id)
	}
	sort.Strings(roomIDs)

	for _, roomID := range roomIDs {
		if r.cleared[roomID] || !allDown(enemies[roomID]) {
			continue
		}
		r.cleared[roomID] = true
		if r.dungeon != nil {
			if outcome := r.dungeon.MarkRoomCleared(roomID, r.playerIDs()...); outcome.Accepted && !outcome.Delta.Empty() {
				r.emit(Output{Kind: OutputDungeonUpdate, Dungeon: outcome.Delta})
			}
		}
		r.emit(Output{Kind: OutputRoomCleared, Room: RoomClearedOutput{RoomID: roomID}})
		loggingdungeon.RoomCleared(ctx, r.deps.Publisher, r.tick, logging.Instance(r.id), loggingdungeon.RoomPayload{RoomID: roomID}, nil)
	}

	if r.completed || r.dungeon == nil || len(r.dungeon.RoomsRequiringClear()) == 0 {
		return
	}
	if r.dungeon.AllCleared() {
		r.completed = true
		r.emit(Output{Kind: OutputDungeonComplete})
		loggingdungeon.Completed(ctx, r.deps.Publisher, r.tick, logging.Instance(r.id), nil)
	}
}

// playerIDs lists every player in the room, living or not, sorted.
func (r *Room) playerIDs() []string {
	var ids []string
	for _, a := range r.Actors() {
		if a.Kind == actor.KindPlayer {
			ids = append(ids, a.ID)
		}
	}
	sort.Strings(ids)
	return ids
}

// IsRoomCleared reports whether the room tick has observed every enemy in
// the dungeon room defeated.
func (r *Room) IsRoomCleared(roomID string) bool {
	r.tickMu.Lock()
	defer r.tickMu.Unlock()
	return r.cleared[roomID]
}

func allDown(actors []*actor.Actor) bool {
	for _, a := range actors {
		if a.Alive() {
			return false
		}
	}
	return true
}

func (r *Room) emit(out Output) {
	out.Tick = r.tick
	r.outputs.Push(out)
}

func (r *Room) entityRef(id string) logging.EntityRef {
	if id == "" {
		return logging.EntityRef{}
	}
	if a, ok := r.Actor(id); ok {
		if a.Kind == actor.KindEnemy {
			return logging.Enemy(id)
		}
		return logging.Player(id)
	}
	return logging.EntityRef{ID: id, Kind: logging.EntityKindUnknown}
}
