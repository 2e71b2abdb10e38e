package actor

import (
	"time"

	"github.com/jackandcarter/Adventure-2.0-sub000/internal/world"
)

// CommandKind discriminates the payload carried by a Command.
type CommandKind uint8

const (
	CommandMovement CommandKind = iota + 1
	CommandAbilityCast
	CommandAbilityCastInput
	CommandInteract
)

func (k CommandKind) String() string {
	switch k {
	case CommandMovement:
		return "movement"
	case CommandAbilityCast:
		return "ability_cast"
	case CommandAbilityCastInput:
		return "ability_cast_input"
	case CommandInteract:
		return "interact"
	default:
		return "unknown"
	}
}

// Command is one queued actor instruction. Exactly the payload named by Kind
// is populated.
type Command struct {
	Kind      CommandKind
	RequestID string
	IssuedAt  time.Time

	Movement  MovementCommand
	Cast      AbilityCastCommand
	CastInput AbilityCastInput
	Interact  InteractCommand
}

// MovementCommand carries the client's predicted position and intent.
type MovementCommand struct {
	Position  world.Vec2
	Direction world.Vec2
	Speed     float64
	Sprint    bool
}

// AbilityCastCommand is the internal cast request consumed by the executor.
type AbilityCastCommand struct {
	AbilityID      string
	TargetID       string
	TargetPosition *world.Vec2
	IssuedAt       time.Time
}

// AbilityCastInput is the thin cast request decoded from the wire.
type AbilityCastInput struct {
	AbilityID      string
	TargetID       string
	TargetPosition *world.Vec2
}

// ToCast converts the input into an internal cast command.
func (in AbilityCastInput) ToCast(issuedAt time.Time) AbilityCastCommand {
	return AbilityCastCommand{
		AbilityID:      in.AbilityID,
		TargetID:       in.TargetID,
		TargetPosition: in.TargetPosition,
		IssuedAt:       issuedAt,
	}
}

// InteractAction names a dungeon interaction.
type InteractAction string

const (
	InteractPickupKey       InteractAction = "pickup_key"
	InteractOpenDoor        InteractAction = "open_door"
	InteractActivateTrigger InteractAction = "activate_trigger"
	InteractUseInteractive  InteractAction = "use_interactive"
)

// InteractCommand targets a door, interactive or trigger.
type InteractCommand struct {
	Action   InteractAction
	TargetID string
	KeyID    string
}

// NewMovement builds a movement command.
func NewMovement(requestID string, issuedAt time.Time, m MovementCommand) Command {
	return Command{Kind: CommandMovement, RequestID: requestID, IssuedAt: issuedAt, Movement: m}
}

// NewAbilityCast builds a raw cast command.
func NewAbilityCast(requestID string, cast AbilityCastCommand) Command {
	return Command{Kind: CommandAbilityCast, RequestID: requestID, IssuedAt: cast.IssuedAt, Cast: cast}
}

// NewAbilityCastInput builds a cast command from decoded client input.
func NewAbilityCastInput(requestID string, issuedAt time.Time, in AbilityCastInput) Command {
	return Command{Kind: CommandAbilityCastInput, RequestID: requestID, IssuedAt: issuedAt, CastInput: in}
}

// NewInteract builds a dungeon interaction command.
func NewInteract(requestID string, issuedAt time.Time, in InteractCommand) Command {
	return Command{Kind: CommandInteract, RequestID: requestID, IssuedAt: issuedAt, Interact: in}
}
