package instance

//go:generate go tool mockgen -destination=./mocks/instance_mock.go -package=mocks . RunRepository,PartyRepository,Generator,Connections

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackandcarter/Adventure-2.0-sub000/internal/dungeon"
	"github.com/jackandcarter/Adventure-2.0-sub000/internal/net/router"
	"github.com/jackandcarter/Adventure-2.0-sub000/internal/world"
)

var (
	ErrInstanceNotFound = errors.New("instance not found")
	ErrPlayerInInstance = errors.New("player already in an instance")
	ErrPartyNotFound    = errors.New("party not found")
	ErrRunNotFound      = errors.New("run not found")
	ErrEmptyParty       = errors.New("party has no members")
)

// Outcome records how a run ended.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeAbandoned Outcome = "abandoned"
)

// Run event types appended while an instance runs.
const (
	EventRunStarted       = "run.started"
	EventRoomCleared      = "room.cleared"
	EventActorDefeated    = "actor.defeated"
	EventDungeonCompleted = "dungeon.completed"
	EventLayoutWarning    = "layout.warning"
)

// RunRecord is one dungeon run.
type RunRecord struct {
	RunID       string     `json:"runId"`
	InstanceID  string     `json:"instanceId"`
	PartyID     string     `json:"partyId"`
	DungeonID   string     `json:"dungeonId"`
	Seed        int64      `json:"seed"`
	StartedAt   time.Time  `json:"startedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	Outcome     Outcome    `json:"outcome,omitempty"`
}

// RunEvent is one entry in a run's replay log. IDs sort by occurrence.
type RunEvent struct {
	ID         string          `json:"id"`
	RunID      string          `json:"runId"`
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurredAt"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

// RunRepository records runs and their events.
type RunRepository interface {
	BeginRun(ctx context.Context, run RunRecord) error
	CompleteRun(ctx context.Context, runID string, outcome Outcome, at time.Time) error
	AppendEvent(ctx context.Context, event RunEvent) error
	GetEvents(ctx context.Context, runID string) ([]RunEvent, error)
}

// Party is a group of players that enters a dungeon together.
type Party struct {
	ID       string   `json:"id" yaml:"id"`
	LeaderID string   `json:"leaderId" yaml:"leader"`
	Members  []string `json:"members" yaml:"members"`
}

// PartyRepository resolves party membership.
type PartyRepository interface {
	GetParty(ctx context.Context, partyID string) (Party, error)
	PartyForPlayer(ctx context.Context, playerID string) (Party, error)
}

// GenerateRequest parameterises dungeon generation.
type GenerateRequest struct {
	PartyID string
	Seed    int64
}

// Generator produces the dungeon graph and walkable layout for a run.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (*dungeon.GeneratedDungeon, *world.RoomLayout, error)
}

// Connections resolves the live connection for a player.
type Connections interface {
	ConnectionFor(playerID string) (connectionID string, sender router.Sender, ok bool)
}
