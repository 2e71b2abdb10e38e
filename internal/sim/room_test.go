package sim

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/jackandcarter/Adventure-2.0-sub000/internal/abilities"
	"github.com/jackandcarter/Adventure-2.0-sub000/internal/actor"
	"github.com/jackandcarter/Adventure-2.0-sub000/internal/combat"
	"github.com/jackandcarter/Adventure-2.0-sub000/internal/dungeon"
	"github.com/jackandcarter/Adventure-2.0-sub000/internal/status"
	"github.com/jackandcarter/Adventure-2.0-sub000/internal/world"
	"github.com/jackandcarter/Adventure-2.0-sub000/logging"
	loggingdungeon "github.com/jackandcarter/Adventure-2.0-sub000/logging/dungeon"
	"github.com/jackandcarter/Adventure-2.0-sub000/stats"
)

type constRoller float64

func (r constRoller) Float64() float64 { return float64(r) }

type capturePublisher struct {
	mu     sync.Mutex
	events []logging.Event
}

func (p *capturePublisher) Publish(_ context.Context, event logging.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *capturePublisher) ofType(eventType logging.EventType) []logging.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []logging.Event
	for _, event := range p.events {
		if event.Type == eventType {
			out = append(out, event)
		}
	}
	return out
}

type roomFixture struct {
	room *Room
	pub  *capturePublisher
	now  time.Time
}

func (f *roomFixture) clock() logging.Clock {
	return logging.ClockFunc(func() time.Time { return f.now })
}

var testAbilities = []abilities.Definition{
	{ID: "obliterate", Power: 1000},
	{ID: "bite", Power: 5, Range: 1.5, Cooldown: time.Second},
	{ID: "slow-bolt", Power: 10, Range: 20, Timing: abilities.TimingCast, CastTime: time.Second},
}

var testEffects = []status.Definition{
	{ID: "stun", Kind: status.KindStun, Duration: 2 * time.Second},
}

func newFixture(t *testing.T, validator *dungeon.StateValidator) *roomFixture {
	t.Helper()
	layout, err := world.ParseRows([]string{
		"..........",
		"....#.....",
		"..........",
	}, 1)
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	catalog, err := abilities.NewCatalog(testAbilities)
	if err != nil {
		t.Fatalf("abilities: %v", err)
	}
	effects, err := status.NewCatalog(testEffects)
	if err != nil {
		t.Fatalf("effects: %v", err)
	}
	f := &roomFixture{pub: &capturePublisher{}, now: time.Unix(1_700_000_000, 0)}
	room, err := NewRoom(RoomConfig{
		ID:       "instance-1",
		Layout:   layout,
		Executor: combat.NewExecutor(catalog, effects, layout, constRoller(0.99)),
		Dungeon:  validator,
		Deps:     Deps{Clock: f.clock(), Publisher: f.pub},
	})
	if err != nil {
		t.Fatalf("room: %v", err)
	}
	f.room = room
	return f
}

func (f *roomFixture) add(t *testing.T, cfg actor.Config, values map[stats.StatID]float64) *actor.Actor {
	t.Helper()
	base := stats.ValueSet{}
	base[stats.StatMaxHealth] = 100
	base[stats.StatAttackPower] = 1
	for id, v := range values {
		base[id] = v
	}
	cfg.Stats = stats.NewComponent(1, base)
	if cfg.Speed == 0 {
		cfg.Speed = 4
	}
	a := actor.New(cfg)
	if err := f.room.AddActor(a); err != nil {
		t.Fatalf("add actor: %v", err)
	}
	return a
}

func outputsOfKind(outputs []Output, kind OutputKind) []Output {
	var out []Output
	for _, o := range outputs {
		if o.Kind == kind {
			out = append(out, o)
		}
	}
	return out
}

func closeTo(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func TestZeroCastKillClearsRoomSameTick(t *testing.T) {
	validator := dungeon.NewStateValidator(&dungeon.GeneratedDungeon{
		Rooms: []dungeon.Room{
			{ID: "start", Archetype: dungeon.ArchetypeStart},
			{ID: "arena", Archetype: dungeon.ArchetypeEnemy, SequenceIndex: 1},
		},
	})
	f := newFixture(t, validator)
	f.add(t, actor.Config{ID: "player", Kind: actor.KindPlayer, Position: world.Vec2{X: 0.5, Y: 0.5}}, nil)
	enemy := f.add(t, actor.Config{ID: "enemy", Kind: actor.KindEnemy, DungeonRoomID: "arena", Position: world.Vec2{X: 2.5, Y: 0.5}},
		map[stats.StatID]float64{stats.StatMaxHealth: 50})

	cast := actor.NewAbilityCast("req-1", actor.AbilityCastCommand{AbilityID: "obliterate", TargetID: "enemy", IssuedAt: f.now})
	if err := f.room.Enqueue("player", cast); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	f.room.Tick(50 * time.Millisecond)

	if enemy.Resources.Health != 0 {
		t.Fatalf("expected enemy health 0, got %d", enemy.Resources.Health)
	}
	outputs := f.room.Outputs().Drain()
	accepted := outputsOfKind(outputs, OutputAbilityResult)
	if len(accepted) != 1 || !accepted[0].AbilityResult.Accepted || accepted[0].RequestID != "req-1" {
		t.Fatalf("expected accepted cast result, got %+v", accepted)
	}
	hits := outputsOfKind(outputs, OutputCombat)
	if len(hits) != 1 || !hits[0].Combat.Killed || hits[0].Combat.Amount < 50 {
		t.Fatalf("expected lethal combat output, got %+v", hits)
	}
	cleared := outputsOfKind(outputs, OutputRoomCleared)
	if len(cleared) != 1 || cleared[0].Room.RoomID != "arena" {
		t.Fatalf("expected arena cleared, got %+v", cleared)
	}
	if len(outputsOfKind(outputs, OutputDungeonComplete)) != 1 {
		t.Fatalf("expected dungeon complete output")
	}
	events := f.pub.ofType(loggingdungeon.EventRoomCleared)
	if len(events) != 1 {
		t.Fatalf("expected one room cleared event, got %d", len(events))
	}
	if payload, ok := events[0].Payload.(loggingdungeon.RoomPayload); !ok || payload.RoomID != "arena" {
		t.Fatalf("unexpected room cleared payload %+v", events[0].Payload)
	}
	if !validator.IsRoomCleared("arena") {
		t.Fatalf("expected validator to mark arena cleared")
	}

	f.room.Tick(50 * time.Millisecond)
	if len(outputsOfKind(f.room.Outputs().Drain(), OutputRoomCleared)) != 0 {
		t.Fatalf("expected room cleared only once")
	}
}

func TestMovementReconciliation(t *testing.T) {
	f := newFixture(t, nil)
	p := f.add(t, actor.Config{ID: "p", Kind: actor.KindPlayer, Position: world.Vec2{X: 1.5, Y: 0.5}}, nil)

	// within speed*grace = 1.0 of the server position
	f.room.Enqueue("p", actor.NewMovement("m1", f.now, actor.MovementCommand{
		Position:  world.Vec2{X: 2.0, Y: 0.5},
		Direction: world.Vec2{X: 1},
		Speed:     4,
	}))
	f.room.Tick(100 * time.Millisecond)
	if !closeTo(p.Position.X, 2.4) {
		t.Fatalf("expected claimed position accepted then advanced to 2.4, got %v", p.Position)
	}
	moves := outputsOfKind(f.room.Outputs().Drain(), OutputMovement)
	if len(moves) != 1 || moves[0].Movement.Snapped {
		t.Fatalf("expected one unsnapped movement output, got %+v", moves)
	}

	f.room.Enqueue("p", actor.NewMovement("m2", f.now, actor.MovementCommand{
		Position:  world.Vec2{X: 8.5, Y: 0.5},
		Direction: world.Vec2{X: 1},
		Speed:     4,
	}))
	f.room.Tick(100 * time.Millisecond)
	if !closeTo(p.Position.X, 2.8) {
		t.Fatalf("expected divergent claim snapped to server position, got %v", p.Position)
	}
	moves = outputsOfKind(f.room.Outputs().Drain(), OutputMovement)
	if len(moves) != 1 || !moves[0].Movement.Snapped {
		t.Fatalf("expected snapped movement output, got %+v", moves)
	}
}

func TestSprintScalesDisplacement(t *testing.T) {
	f := newFixture(t, nil)
	p := f.add(t, actor.Config{ID: "p", Kind: actor.KindPlayer, Position: world.Vec2{X: 1.5, Y: 2.5}}, nil)
	f.room.Enqueue("p", actor.NewMovement("m", f.now, actor.MovementCommand{
		Position:  p.Position,
		Direction: world.Vec2{X: 1},
		Speed:     4,
		Sprint:    true,
	}))
	f.room.Tick(100 * time.Millisecond)
	if !closeTo(p.Position.X, 2.1) {
		t.Fatalf("expected sprint displacement 0.6, got %v", p.Position)
	}
}

func TestBlockedMovementHoldsPosition(t *testing.T) {
	f := newFixture(t, nil)
	start := world.Vec2{X: 3.5, Y: 1.5}
	p := f.add(t, actor.Config{ID: "p", Kind: actor.KindPlayer, Position: start}, nil)
	f.room.Enqueue("p", actor.NewMovement("m", f.now, actor.MovementCommand{
		Position:  start,
		Direction: world.Vec2{X: 1},
		Speed:     4,
	}))
	f.room.Tick(time.Second)
	if p.Position != start {
		t.Fatalf("expected position held at %v, got %v", start, p.Position)
	}
	if moves := outputsOfKind(f.room.Outputs().Drain(), OutputMovement); len(moves) != 0 {
		t.Fatalf("expected no movement output, got %+v", moves)
	}
}

func TestCastDenials(t *testing.T) {
	f := newFixture(t, nil)
	p := f.add(t, actor.Config{ID: "p", Kind: actor.KindPlayer, Position: world.Vec2{X: 0.5, Y: 0.5}}, nil)
	f.add(t, actor.Config{ID: "e", Kind: actor.KindEnemy, Position: world.Vec2{X: 5.5, Y: 0.5}}, nil)

	denialFor := func(cmd actor.Command) combat.Denial {
		t.Helper()
		if err := f.room.Enqueue("p", cmd); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
		f.room.Tick(10 * time.Millisecond)
		results := outputsOfKind(f.room.Outputs().Drain(), OutputAbilityResult)
		if len(results) != 1 {
			t.Fatalf("expected one ability result, got %d", len(results))
		}
		return results[0].AbilityResult.Denial
	}

	if got := denialFor(actor.NewAbilityCast("a", actor.AbilityCastCommand{AbilityID: "nope"})); got != combat.DenialUnknownAbility {
		t.Fatalf("expected unknown_ability, got %q", got)
	}
	if got := denialFor(actor.NewAbilityCast("b", actor.AbilityCastCommand{AbilityID: "bite", TargetID: "ghost"})); got != combat.DenialInvalidTarget {
		t.Fatalf("expected invalid_target, got %q", got)
	}
	if got := denialFor(actor.NewAbilityCast("c", actor.AbilityCastCommand{AbilityID: "bite", TargetID: "e"})); got != combat.DenialRange {
		t.Fatalf("expected range, got %q", got)
	}
	future := actor.NewAbilityCast("d", actor.AbilityCastCommand{AbilityID: "slow-bolt", TargetID: "e", IssuedAt: f.now.Add(time.Second)})
	if got := denialFor(future); got != combat.DenialStaleCommand {
		t.Fatalf("expected stale_command, got %q", got)
	}
	input := actor.NewAbilityCastInput("e", f.now, actor.AbilityCastInput{AbilityID: "slow-bolt", TargetID: "e"})
	if got := denialFor(input); got != combat.DenialNone {
		t.Fatalf("expected cast input accepted, got %q", got)
	}
	if got := denialFor(actor.NewAbilityCast("f", actor.AbilityCastCommand{AbilityID: "slow-bolt", TargetID: "e"})); got != combat.DenialBusy {
		t.Fatalf("expected busy while casting, got %q", got)
	}

	p.Cast = nil
	stun, _ := status.NewCatalog(testEffects)
	def, _ := stun.Get("stun")
	p.Effects.Apply(def, "e")
	if got := denialFor(actor.NewAbilityCast("g", actor.AbilityCastCommand{AbilityID: "obliterate", TargetID: "e"})); got != combat.DenialStunned {
		t.Fatalf("expected stunned, got %q", got)
	}
}

func TestMovementInterruptsCast(t *testing.T) {
	f := newFixture(t, nil)
	p := f.add(t, actor.Config{ID: "p", Kind: actor.KindPlayer, Position: world.Vec2{X: 0.5, Y: 0.5}}, nil)
	f.add(t, actor.Config{ID: "e", Kind: actor.KindEnemy, Position: world.Vec2{X: 5.5, Y: 0.5}}, nil)

	f.room.Enqueue("p", actor.NewAbilityCast("c", actor.AbilityCastCommand{AbilityID: "slow-bolt", TargetID: "e"}))
	f.room.Tick(10 * time.Millisecond)
	f.room.Outputs().Drain()
	if p.Cast == nil {
		t.Fatalf("expected cast in progress")
	}

	f.room.Enqueue("p", actor.NewMovement("m", f.now, actor.MovementCommand{Position: p.Position, Direction: world.Vec2{Y: 1}, Speed: 4}))
	f.room.Tick(10 * time.Millisecond)
	if p.Cast != nil {
		t.Fatalf("expected cast interrupted")
	}
	combatOutputs := outputsOfKind(f.room.Outputs().Drain(), OutputCombat)
	if len(combatOutputs) != 1 || combatOutputs[0].Combat.Outcome != combat.OutcomeInterrupted {
		t.Fatalf("expected interrupted combat output, got %+v", combatOutputs)
	}
}

func TestCastCompletesAfterCastTime(t *testing.T) {
	f := newFixture(t, nil)
	f.add(t, actor.Config{ID: "p", Kind: actor.KindPlayer, Position: world.Vec2{X: 0.5, Y: 0.5}}, nil)
	e := f.add(t, actor.Config{ID: "e", Kind: actor.KindEnemy, Position: world.Vec2{X: 5.5, Y: 0.5}}, nil)

	f.room.Enqueue("p", actor.NewAbilityCast("c", actor.AbilityCastCommand{AbilityID: "slow-bolt", TargetID: "e"}))
	f.room.Tick(10 * time.Millisecond)
	if e.Resources.Health != 100 {
		t.Fatalf("expected no damage before cast time, got %d", e.Resources.Health)
	}
	f.now = f.now.Add(time.Second)
	f.room.Tick(time.Second)
	if e.Resources.Health != 90 {
		t.Fatalf("expected 10 damage after cast time, got %d", e.Resources.Health)
	}
}

func TestDeadActorCommandsDropped(t *testing.T) {
	f := newFixture(t, nil)
	p := f.add(t, actor.Config{ID: "p", Kind: actor.KindPlayer, Position: world.Vec2{X: 0.5, Y: 0.5}}, nil)
	f.add(t, actor.Config{ID: "e", Kind: actor.KindEnemy, Position: world.Vec2{X: 1.5, Y: 0.5}}, nil)
	p.Resources.Health = 0

	f.room.Enqueue("p", actor.NewAbilityCast("c", actor.AbilityCastCommand{AbilityID: "obliterate", TargetID: "e"}))
	f.room.Enqueue("p", actor.NewMovement("m", f.now, actor.MovementCommand{Position: p.Position, Direction: world.Vec2{X: 1}}))
	f.room.Tick(10 * time.Millisecond)
	outputs := f.room.Outputs().Drain()
	results := outputsOfKind(outputs, OutputAbilityResult)
	if len(results) != 1 || results[0].AbilityResult.Denial != combat.DenialDead {
		t.Fatalf("expected dead denial, got %+v", results)
	}
	if len(outputsOfKind(outputs, OutputMovement)) != 0 {
		t.Fatalf("expected dead actor not to move")
	}
}

func TestActorKilledByStatusTickDropsCommands(t *testing.T) {
	f := newFixture(t, nil)
	p := f.add(t, actor.Config{ID: "p", Kind: actor.KindPlayer, Position: world.Vec2{X: 0.5, Y: 0.5}}, nil)
	e := f.add(t, actor.Config{ID: "e", Kind: actor.KindEnemy, Position: world.Vec2{X: 1.5, Y: 0.5}}, nil)
	p.Resources.Health = 10
	p.Effects.Apply(&status.Definition{
		ID:           "venom",
		Kind:         status.KindDamageOverTime,
		Duration:     time.Second,
		TickInterval: 100 * time.Millisecond,
		Magnitude:    50,
	}, "e")
	start := p.Position

	f.room.Enqueue("p", actor.NewMovement("m", f.now, actor.MovementCommand{Position: world.Vec2{X: 2.3, Y: 0.5}, Direction: world.Vec2{X: 1}, Speed: 4}))
	f.room.Enqueue("p", actor.NewAbilityCast("c", actor.AbilityCastCommand{AbilityID: "obliterate", TargetID: "e"}))
	f.room.Tick(200 * time.Millisecond)

	if p.Alive() {
		t.Fatalf("expected venom to kill p, health=%d", p.Resources.Health)
	}
	if p.Position != start {
		t.Fatalf("expected dead actor to hold position, got %+v", p.Position)
	}
	outputs := f.room.Outputs().Drain()
	if len(outputsOfKind(outputs, OutputMovement)) != 0 {
		t.Fatalf("expected no movement from an actor killed this tick")
	}
	results := outputsOfKind(outputs, OutputAbilityResult)
	if len(results) != 1 || results[0].AbilityResult.Accepted || results[0].AbilityResult.Denial != combat.DenialDead {
		t.Fatalf("expected dead denial for the queued cast, got %+v", results)
	}
	if e.Resources.Health != 100 {
		t.Fatalf("expected enemy untouched, got %d", e.Resources.Health)
	}
}

func TestInteractionsRouteThroughValidator(t *testing.T) {
	validator := dungeon.NewStateValidator(&dungeon.GeneratedDungeon{
		Rooms: []dungeon.Room{{ID: "start", Archetype: dungeon.ArchetypeStart}},
		Doors: []dungeon.Door{{ID: "door", FromRoomID: "start", ToRoomID: "start", State: dungeon.DoorLocked, RequiredKeyTag: "iron", Config: dungeon.DoorConfig{Lockable: true}}},
		Interactives: []dungeon.Interactive{
			{ID: "pedestal", RoomID: "start", GrantsKey: &dungeon.Key{ID: "k1", Tag: "iron"}},
		},
	})
	f := newFixture(t, validator)
	f.add(t, actor.Config{ID: "p", Kind: actor.KindPlayer, Position: world.Vec2{X: 0.5, Y: 0.5}}, nil)

	f.room.Enqueue("p", actor.NewInteract("i1", f.now, actor.InteractCommand{Action: actor.InteractOpenDoor, TargetID: "door"}))
	f.room.Enqueue("p", actor.NewInteract("i2", f.now, actor.InteractCommand{Action: actor.InteractPickupKey, TargetID: "pedestal"}))
	f.room.Enqueue("p", actor.NewInteract("i3", f.now, actor.InteractCommand{Action: actor.InteractOpenDoor, TargetID: "door"}))
	f.room.Tick(10 * time.Millisecond)

	outputs := f.room.Outputs().Drain()
	results := outputsOfKind(outputs, OutputInteractResult)
	if len(results) != 3 {
		t.Fatalf("expected three interaction results, got %d", len(results))
	}
	if results[0].Interact.Accepted || results[0].Interact.Reason != dungeon.ReasonKeyRequired {
		t.Fatalf("expected key_required first, got %+v", results[0].Interact)
	}
	if !results[1].Interact.Accepted || !results[2].Interact.Accepted {
		t.Fatalf("expected pickup and open accepted, got %+v %+v", results[1].Interact, results[2].Interact)
	}
	updates := outputsOfKind(outputs, OutputDungeonUpdate)
	if len(updates) != 2 {
		t.Fatalf("expected two dungeon updates, got %d", len(updates))
	}
	if len(f.pub.ofType(loggingdungeon.EventDoorOpened)) != 1 {
		t.Fatalf("expected door opened event")
	}
	if len(f.pub.ofType(loggingdungeon.EventInteractionDenied)) != 1 {
		t.Fatalf("expected interaction denied event")
	}
}

func TestEnemyChasesThenAttacks(t *testing.T) {
	f := newFixture(t, nil)
	p := f.add(t, actor.Config{ID: "p", Kind: actor.KindPlayer, Position: world.Vec2{X: 0.5, Y: 0.5}}, nil)
	e := f.add(t, actor.Config{ID: "e", Kind: actor.KindEnemy, Position: world.Vec2{X: 6.5, Y: 0.5}, AutoAbilityID: "bite", Speed: 2}, nil)

	f.room.Tick(500 * time.Millisecond)
	if !closeTo(e.Position.X, 5.5) {
		t.Fatalf("expected enemy to step one unit closer, got %v", e.Position)
	}
	for i := 0; i < 10 && p.Resources.Health == 100; i++ {
		f.now = f.now.Add(500 * time.Millisecond)
		f.room.Tick(500 * time.Millisecond)
	}
	if p.Resources.Health != 95 {
		t.Fatalf("expected bite damage 5, got health %d", p.Resources.Health)
	}
}

func TestEnqueueErrors(t *testing.T) {
	f := newFixture(t, nil)
	if err := f.room.Enqueue("ghost", actor.Command{}); !errors.Is(err, ErrActorNotFound) {
		t.Fatalf("expected ErrActorNotFound, got %v", err)
	}
	a := actor.New(actor.Config{ID: "p", Kind: actor.KindPlayer, QueueCapacity: 1})
	if err := f.room.AddActor(a); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := f.room.AddActor(a); !errors.Is(err, ErrActorExists) {
		t.Fatalf("expected ErrActorExists, got %v", err)
	}
	if err := f.room.Enqueue("p", actor.Command{Kind: actor.CommandMovement}); err != nil {
		t.Fatalf("expected first enqueue to fit, got %v", err)
	}
	if err := f.room.Enqueue("p", actor.Command{Kind: actor.CommandMovement}); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
	if !f.room.RemoveActor("p") || f.room.RemoveActor("p") {
		t.Fatalf("expected remove to succeed once")
	}
}
