package sim

import (
	"time"

	"github.com/jackandcarter/Adventure-2.0-sub000/internal/actor"
	"github.com/jackandcarter/Adventure-2.0-sub000/internal/world"
)

// think drives an enemy with an auto ability: cast at the nearest living
// player when in range and ready, otherwise step toward that player.
func (r *Room) think(e *actor.Actor, now time.Time, delta time.Duration) {
	if e.AutoAbilityID == "" || e.Stunned() || e.Busy() {
		return
	}
	target := r.nearestPlayer(e)
	if target == nil {
		return
	}
	def, ok := r.executor.Ability(e.AutoAbilityID)
	if !ok {
		return
	}

	distance := world.Distance(e.Position, target.Position)
	if def.Range <= 0 || distance <= def.Range {
		cast := actor.AbilityCastCommand{AbilityID: def.ID, TargetID: target.ID, IssuedAt: now}
		if valid, _ := r.executor.Validate(cast, e, target, now); valid {
			r.executor.StartCast(cast, e, now)
		}
		return
	}

	direction := target.Position.Sub(e.Position).Normalize()
	step := e.Speed * delta.Seconds()
	if remaining := distance - def.Range; step > remaining {
		step = remaining
	}
	next, moved := r.layout.TryResolveMovement(e.Position, direction.Scale(step))
	if !moved {
		return
	}
	e.Position = next
	e.Direction = direction
	r.emit(Output{
		Kind:     OutputMovement,
		ActorID:  e.ID,
		Movement: MovementOutput{Position: e.Position, Direction: e.Direction},
	})
}

func (r *Room) nearestPlayer(e *actor.Actor) *actor.Actor {
	var best *actor.Actor
	bestDistance := 0.0
	for _, candidate := range r.Actors() {
		if candidate.Kind != actor.KindPlayer || !candidate.Alive() {
			continue
		}
		d := world.Distance(e.Position, candidate.Position)
		if e.AggroRange > 0 && d > e.AggroRange {
			continue
		}
		if best == nil || d < bestDistance {
			best, bestDistance = candidate, d
		}
	}
	return best
}
