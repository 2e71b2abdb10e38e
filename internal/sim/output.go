package sim

import (
	"sync"

	"github.com/jackandcarter/Adventure-2.0-sub000/internal/actor"
	"github.com/jackandcarter/Adventure-2.0-sub000/internal/combat"
	"github.com/jackandcarter/Adventure-2.0-sub000/internal/dungeon"
	"github.com/jackandcarter/Adventure-2.0-sub000/internal/status"
	"github.com/jackandcarter/Adventure-2.0-sub000/internal/world"
)

// OutputKind discriminates the payload carried by an Output.
type OutputKind uint8

const (
	OutputMovement OutputKind = iota + 1
	OutputAbilityResult
	OutputCombat
	OutputDungeonUpdate
	OutputInteractResult
	OutputStatusEffect
	OutputRoomCleared
	OutputDungeonComplete
)

func (k OutputKind) String() string {
	switch k {
	case OutputMovement:
		return "movement"
	case OutputAbilityResult:
		return "ability_result"
	case OutputCombat:
		return "combat"
	case OutputDungeonUpdate:
		return "dungeon_update"
	case OutputInteractResult:
		return "interact_result"
	case OutputStatusEffect:
		return "status_effect"
	case OutputRoomCleared:
		return "room_cleared"
	case OutputDungeonComplete:
		return "dungeon_complete"
	default:
		return "unknown"
	}
}

// MovementOutput is the authoritative position after a movement command.
type MovementOutput struct {
	Position  world.Vec2
	Direction world.Vec2
	Snapped   bool
}

// AbilityResultOutput answers a cast command.
type AbilityResultOutput struct {
	AbilityID string
	Accepted  bool
	Denial    combat.Denial
}

// InteractResultOutput answers a dungeon interaction.
type InteractResultOutput struct {
	Action   actor.InteractAction
	TargetID string
	Accepted bool
	Reason   dungeon.Reason
}

// RoomClearedOutput names a dungeon room whose enemies are all down.
type RoomClearedOutput struct {
	RoomID string
}

// Output is one simulation event leaving the tick. Exactly the payload named
// by Kind is populated. Directed outputs go only to ActorID; the rest are
// broadcast to the room.
type Output struct {
	Kind      OutputKind
	Tick      uint64
	ActorID   string
	RequestID string
	Directed  bool

	Movement      MovementOutput
	AbilityResult AbilityResultOutput
	Combat        combat.ExecutionResult
	Dungeon       *dungeon.Delta
	Interact      InteractResultOutput
	Status        status.Event
	Room          RoomClearedOutput
}

// OutputQueue carries outputs from the tick to a single dispatch consumer.
type OutputQueue struct {
	mu    sync.Mutex
	items []Output
	ready chan struct{}
}

// NewOutputQueue constructs an empty queue.
func NewOutputQueue() *OutputQueue {
	return &OutputQueue{ready: make(chan struct{}, 1)}
}

// Push appends outputs and wakes the consumer.
func (q *OutputQueue) Push(outputs ...Output) {
	if len(outputs) == 0 {
		return
	}
	q.mu.Lock()
	q.items = append(q.items, outputs...)
	q.mu.Unlock()
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// Drain removes and returns every queued output in push order.
func (q *OutputQueue) Drain() []Output {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil
	}
	out := q.items
	q.items = nil
	return out
}

// Len reports the number of queued outputs.
func (q *OutputQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Ready is signalled after outputs are pushed.
func (q *OutputQueue) Ready() <-chan struct{} {
	return q.ready
}
