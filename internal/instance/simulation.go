package instance

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/jackandcarter/Adventure-2.0-sub000/internal/combat"
	"github.com/jackandcarter/Adventure-2.0-sub000/internal/dungeon"
	"github.com/jackandcarter/Adventure-2.0-sub000/internal/net/proto"
	"github.com/jackandcarter/Adventure-2.0-sub000/internal/net/router"
	"github.com/jackandcarter/Adventure-2.0-sub000/internal/sim"
	"github.com/jackandcarter/Adventure-2.0-sub000/internal/world"
)

// Simulation binds one party to a generated dungeon and a simulation room,
// and dispatches the room's outputs to the party's connections.
type Simulation struct {
	id        string
	run       RunRecord
	players   []string
	generated *dungeon.GeneratedDungeon
	layout    *world.RoomLayout
	validator *dungeon.StateValidator
	room      *sim.Room
	reg       *sim.Registration
	conns     Connections
	runs      RunRepository
	deps      Deps

	mu         sync.Mutex
	layoutSent map[string]string
	completed  bool

	stopOnce sync.Once
	cancel   context.CancelFunc
	done     chan struct{}
}

// ID is the instance id.
func (s *Simulation) ID() string { return s.id }

// Run returns the run record the instance began with.
func (s *Simulation) Run() RunRecord { return s.run }

// Room returns the simulation room.
func (s *Simulation) Room() *sim.Room { return s.room }

// Validator returns the dungeon state machine.
func (s *Simulation) Validator() *dungeon.StateValidator { return s.validator }

// Players lists the party members in the instance.
func (s *Simulation) Players() []string {
	return append([]string(nil), s.players...)
}

// Completed reports whether every gated room has been cleared.
func (s *Simulation) Completed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completed
}

func (s *Simulation) start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	go func() {
		defer close(s.done)
		s.dispatchLoop(runCtx)
	}()
}

// stop revokes the loop registration, stops dispatch and flushes whatever
// the last tick produced. It reports whether this call did the stopping.
func (s *Simulation) stop() bool {
	stopped := false
	s.stopOnce.Do(func() {
		stopped = true
		s.reg.Revoke()
		if s.cancel != nil {
			s.cancel()
			<-s.done
		}
		s.dispatch(context.Background(), s.room.Outputs().Drain())
	})
	return stopped
}

func (s *Simulation) dispatchLoop(ctx context.Context) {
	ready := s.room.Outputs().Ready()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ready:
			s.dispatch(ctx, s.room.Outputs().Drain())
		}
	}
}

func (s *Simulation) dispatch(ctx context.Context, outputs []sim.Output) {
	for _, out := range outputs {
		switch out.Kind {
		case sim.OutputMovement:
			s.broadcast(ctx, proto.TypeMovementInput, out.RequestID, proto.MovementUpdate{
				ActorID:   out.ActorID,
				Position:  out.Movement.Position,
				Direction: out.Movement.Direction,
				Snapped:   out.Movement.Snapped,
			})
		case sim.OutputAbilityResult:
			s.sendTo(ctx, out.ActorID, proto.TypeAbilityCast, out.RequestID, proto.AbilityCastResult{
				AbilityID:    out.AbilityResult.AbilityID,
				Accepted:     out.AbilityResult.Accepted,
				DenialReason: string(out.AbilityResult.Denial),
			})
		case sim.OutputCombat:
			s.broadcast(ctx, proto.TypeCombatEvent, "", combatEvent(out.Combat))
			if out.Combat.Killed {
				s.appendEvent(ctx, EventActorDefeated, map[string]any{
					"actorId":  out.Combat.TargetID,
					"killerId": out.Combat.CasterID,
					"tick":     out.Tick,
				})
			}
		case sim.OutputStatusEffect:
			s.broadcast(ctx, proto.TypeStatusEffect, "", proto.StatusEffectEvent{
				Event:    string(out.Status.Kind),
				EffectID: out.Status.EffectID,
				Kind:     string(out.Status.Effect),
				SourceID: out.Status.SourceID,
				TargetID: out.Status.TargetID,
				Stacks:   out.Status.Stacks,
				Amount:   out.Status.Amount,
			})
		case sim.OutputInteractResult:
			s.sendTo(ctx, out.ActorID, proto.TypeDungeonInteract, out.RequestID, proto.DungeonInteractResult{
				Action:   string(out.Interact.Action),
				TargetID: out.Interact.TargetID,
				Accepted: out.Interact.Accepted,
				Reason:   string(out.Interact.Reason),
			})
		case sim.OutputDungeonUpdate:
			if out.Dungeon.Empty() {
				continue
			}
			s.broadcast(ctx, proto.TypeDungeonUpdate, "", proto.DungeonUpdate{Delta: *out.Dungeon})
		case sim.OutputRoomCleared:
			s.appendEvent(ctx, EventRoomCleared, map[string]any{
				"roomId": out.Room.RoomID,
				"tick":   out.Tick,
			})
		case sim.OutputDungeonComplete:
			s.complete(ctx, out.Tick)
		}
	}
}

func (s *Simulation) complete(ctx context.Context, tick uint64) {
	s.mu.Lock()
	if s.completed {
		s.mu.Unlock()
		return
	}
	s.completed = true
	s.mu.Unlock()

	s.broadcast(ctx, proto.TypeDungeonComplete, "", proto.DungeonComplete{InstanceID: s.id, RunID: s.run.RunID})
	s.appendEvent(ctx, EventDungeonCompleted, map[string]any{"tick": tick})
	if err := s.runs.CompleteRun(ctx, s.run.RunID, OutcomeCompleted, s.deps.Clock.Now()); err != nil {
		s.deps.Logger.Printf("[instance] complete run %s failed: %v", s.run.RunID, err)
	}
}

func (s *Simulation) broadcast(ctx context.Context, messageType, requestID string, payload any) {
	for _, playerID := range s.players {
		s.sendTo(ctx, playerID, messageType, requestID, payload)
	}
}

// sendTo delivers one envelope to playerID, preceded by the dungeon layout
// the first time the player's current connection hears from the instance.
// Players that are offline or enemies are skipped.
func (s *Simulation) sendTo(ctx context.Context, playerID, messageType, requestID string, payload any) {
	if s.conns == nil {
		return
	}
	connectionID, sender, ok := s.conns.ConnectionFor(playerID)
	if !ok {
		return
	}
	if !s.ensureLayout(ctx, playerID, connectionID, sender) {
		return
	}
	env, err := proto.NewEnvelope(messageType, "", requestID, payload)
	if err != nil {
		s.deps.Logger.Printf("[instance] encode %s for %s failed: %v", messageType, playerID, err)
		return
	}
	if err := sender.Send(ctx, env); err != nil {
		s.deps.Logger.Printf("[instance] send %s to %s failed: %v", messageType, playerID, err)
	}
}

func (s *Simulation) ensureLayout(ctx context.Context, playerID, connectionID string, sender router.Sender) bool {
	s.mu.Lock()
	sent := s.layoutSent[playerID] == connectionID
	s.mu.Unlock()
	if sent {
		return true
	}
	if err := s.sendLayout(ctx, playerID, connectionID, "", sender); err != nil {
		s.deps.Logger.Printf("[instance] send layout to %s failed: %v", playerID, err)
		return false
	}
	return true
}

// sendLayout sends the full layout and records that connectionID has it.
func (s *Simulation) sendLayout(ctx context.Context, playerID, connectionID, requestID string, sender router.Sender) error {
	if err := sender.Send(ctx, s.layoutEnvelope(requestID)); err != nil {
		return err
	}
	s.mu.Lock()
	s.layoutSent[playerID] = connectionID
	s.mu.Unlock()
	return nil
}

func (s *Simulation) layoutEnvelope(requestID string) proto.Envelope {
	env, _ := proto.NewEnvelope(proto.TypeDungeonLayout, "", requestID, proto.DungeonLayout{
		InstanceID:  s.id,
		DungeonID:   s.generated.ID,
		Grid:        s.generated.Grid,
		PlayerSpawn: s.generated.PlayerSpawn,
		Layout:      s.validator.Snapshot(),
	})
	return env
}

func (s *Simulation) appendEvent(ctx context.Context, eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.deps.Logger.Printf("[instance] encode %s event failed: %v", eventType, err)
		return
	}
	now := s.deps.Clock.Now()
	event := RunEvent{
		ID:         ulid.MustNew(ulid.Timestamp(now), s.deps.Entropy).String(),
		RunID:      s.run.RunID,
		Type:       eventType,
		OccurredAt: now,
		Payload:    data,
	}
	if err := s.runs.AppendEvent(ctx, event); err != nil {
		s.deps.Logger.Printf("[instance] append %s to run %s failed: %v", eventType, s.run.RunID, err)
	}
}

func combatEvent(result combat.ExecutionResult) proto.CombatEvent {
	return proto.CombatEvent{
		SourceID:     result.CasterID,
		TargetID:     result.TargetID,
		AbilityID:    result.AbilityID,
		EventType:    string(result.Effect),
		Outcome:      string(result.Outcome),
		Amount:       result.Amount,
		Critical:     result.Critical,
		TargetHealth: result.TargetHealth,
		Killed:       result.Killed,
		StatusEffect: result.StatusEffect,
	}
}

// Summary describes an instance for diagnostics.
type Summary struct {
	InstanceID string    `json:"instanceId"`
	RunID      string    `json:"runId"`
	PartyID    string    `json:"partyId"`
	Players    []string  `json:"players"`
	Tick       uint64    `json:"tick"`
	Completed  bool      `json:"completed"`
	StartedAt  time.Time `json:"startedAt"`
}

func (s *Simulation) summary() Summary {
	return Summary{
		InstanceID: s.id,
		RunID:      s.run.RunID,
		PartyID:    s.run.PartyID,
		Players:    s.Players(),
		Tick:       s.room.CurrentTick(),
		Completed:  s.Completed(),
		StartedAt:  s.run.StartedAt,
	}
}
