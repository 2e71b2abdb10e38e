package intake

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/jackandcarter/Adventure-2.0-sub000/internal/actor"
	"github.com/jackandcarter/Adventure-2.0-sub000/internal/net/proto"
	"github.com/jackandcarter/Adventure-2.0-sub000/internal/world"
)

// ErrInvalidCommand is returned for payloads that can never become a command.
var ErrInvalidCommand = errors.New("invalid command")

// Enqueuer accepts commands for an actor. sim.Room satisfies it.
type Enqueuer interface {
	Enqueue(actorID string, cmd actor.Command) error
}

// CommandContext carries what staging needs besides the payload.
type CommandContext struct {
	Room Enqueuer
	Now  func() time.Time
}

func (c CommandContext) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// StageMovement converts a movement payload and queues it for playerID.
func StageMovement(ctx CommandContext, playerID, requestID string, in proto.MovementInput) (actor.Command, error) {
	if !finite(in.Position) || !finite(in.Direction) || math.IsNaN(in.Speed) || math.IsInf(in.Speed, 0) {
		return actor.Command{}, fmt.Errorf("%w: non-finite movement", ErrInvalidCommand)
	}
	cmd := actor.NewMovement(requestID, ctx.now(), actor.MovementCommand{
		Position:  in.Position,
		Direction: in.Direction,
		Speed:     in.Speed,
		Sprint:    in.Sprint,
	})
	return cmd, enqueue(ctx, playerID, cmd)
}

// StageAbilityCast converts a cast request and queues it for playerID. An
// empty ability id is passed through so the room can deny it.
func StageAbilityCast(ctx CommandContext, playerID, requestID string, in proto.AbilityCastRequest) (actor.Command, error) {
	if in.TargetPosition != nil && !finite(*in.TargetPosition) {
		return actor.Command{}, fmt.Errorf("%w: non-finite target position", ErrInvalidCommand)
	}
	cmd := actor.NewAbilityCastInput(requestID, ctx.now(), actor.AbilityCastInput{
		AbilityID:      in.AbilityID,
		TargetID:       in.TargetID,
		TargetPosition: in.TargetPosition,
	})
	return cmd, enqueue(ctx, playerID, cmd)
}

// StageInteract converts a dungeon interaction and queues it for playerID.
func StageInteract(ctx CommandContext, playerID, requestID string, in proto.DungeonInteractRequest) (actor.Command, error) {
	action := actor.InteractAction(in.Action)
	switch action {
	case actor.InteractPickupKey, actor.InteractOpenDoor, actor.InteractActivateTrigger, actor.InteractUseInteractive:
	default:
		return actor.Command{}, fmt.Errorf("%w: unknown action %q", ErrInvalidCommand, in.Action)
	}
	if in.TargetID == "" {
		return actor.Command{}, fmt.Errorf("%w: missing target", ErrInvalidCommand)
	}
	cmd := actor.NewInteract(requestID, ctx.now(), actor.InteractCommand{
		Action:   action,
		TargetID: in.TargetID,
		KeyID:    in.KeyID,
	})
	return cmd, enqueue(ctx, playerID, cmd)
}

func enqueue(ctx CommandContext, playerID string, cmd actor.Command) error {
	if ctx.Room == nil {
		return fmt.Errorf("%w: no room", ErrInvalidCommand)
	}
	return ctx.Room.Enqueue(playerID, cmd)
}

func finite(v world.Vec2) bool {
	return !math.IsNaN(v.X) && !math.IsNaN(v.Y) && !math.IsInf(v.X, 0) && !math.IsInf(v.Y, 0)
}
