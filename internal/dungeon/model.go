package dungeon

import "github.com/jackandcarter/Adventure-2.0-sub000/internal/world"

// Archetype is the gameplay role of a room.
type Archetype string

const (
	ArchetypeStart    Archetype = "start"
	ArchetypeSafe     Archetype = "safe"
	ArchetypeEnemy    Archetype = "enemy"
	ArchetypeMiniBoss Archetype = "mini_boss"
	ArchetypeBoss     Archetype = "boss"
	ArchetypeTrap     Archetype = "trap"
	ArchetypeTreasure Archetype = "treasure"
	ArchetypePuzzle   Archetype = "puzzle"
	ArchetypeStairs   Archetype = "stairs"
)

// RequiresClear reports whether rooms of this archetype gate their outgoing
// doors until cleared.
func (a Archetype) RequiresClear() bool {
	switch a {
	case ArchetypeEnemy, ArchetypeMiniBoss, ArchetypeBoss, ArchetypeTrap:
		return true
	}
	return false
}

// DoorState is the live state of a door.
type DoorState string

const (
	DoorClosed DoorState = "closed"
	DoorLocked DoorState = "locked"
	DoorOpen   DoorState = "open"
	DoorSealed DoorState = "sealed"
)

// InteractiveStatus is the live state of a one-shot interactive.
type InteractiveStatus string

const (
	InteractiveAvailable InteractiveStatus = "available"
	InteractiveConsumed  InteractiveStatus = "consumed"
)

// Key is a key id and the tag doors may require instead of the exact id.
type Key struct {
	ID  string `yaml:"id" json:"id"`
	Tag string `yaml:"tag" json:"tag,omitempty"`
}

// EnemySpawn places one enemy in a room.
type EnemySpawn struct {
	ID          string     `yaml:"id" json:"id"`
	StatBlock   string     `yaml:"statBlock" json:"statBlock"`
	Level       int        `yaml:"level" json:"level"`
	Position    world.Vec2 `yaml:"position" json:"position"`
	Speed       float64    `yaml:"speed" json:"speed"`
	AutoAbility string     `yaml:"autoAbility" json:"autoAbility,omitempty"`
	AggroRange  float64    `yaml:"aggroRange" json:"aggroRange,omitempty"`
}

// Room is one node of the dungeon graph.
type Room struct {
	ID            string       `yaml:"id" json:"id"`
	Archetype     Archetype    `yaml:"archetype" json:"archetype"`
	SequenceIndex int          `yaml:"sequence" json:"sequence"`
	Floor         int          `yaml:"floor" json:"floor"`
	ProvidesKeys  []Key        `yaml:"providesKeys" json:"providesKeys,omitempty"`
	Enemies       []EnemySpawn `yaml:"enemies" json:"enemies,omitempty"`
}

// DoorConfig declares which states a door's prefab supports.
type DoorConfig struct {
	Lockable bool `yaml:"lockable" json:"lockable"`
	Sealable bool `yaml:"sealable" json:"sealable"`
}

// Door connects two rooms.
type Door struct {
	ID             string     `yaml:"id" json:"id"`
	FromRoomID     string     `yaml:"from" json:"fromRoomId"`
	ToRoomID       string     `yaml:"to" json:"toRoomId"`
	State          DoorState  `yaml:"state" json:"state"`
	RequiredKeyID  string     `yaml:"requiredKeyId" json:"requiredKeyId,omitempty"`
	RequiredKeyTag string     `yaml:"requiredKeyTag" json:"requiredKeyTag,omitempty"`
	Config         DoorConfig `yaml:"config" json:"config"`
}

// Interactive is a one-shot object such as a chest, lever or key pedestal.
type Interactive struct {
	ID             string            `yaml:"id" json:"id"`
	RoomID         string            `yaml:"room" json:"roomId"`
	Status         InteractiveStatus `yaml:"status" json:"status"`
	GrantsKey      *Key              `yaml:"grantsKey" json:"grantsKey,omitempty"`
	RequiredKeyID  string            `yaml:"requiredKeyId" json:"requiredKeyId,omitempty"`
	RequiredKeyTag string            `yaml:"requiredKeyTag" json:"requiredKeyTag,omitempty"`
	TriggerID      string            `yaml:"trigger" json:"triggerId,omitempty"`
}

// Trigger flips environment state once its prerequisites are active.
type Trigger struct {
	ID             string   `yaml:"id" json:"id"`
	RoomID         string   `yaml:"room" json:"roomId"`
	Requires       []string `yaml:"requires" json:"requires,omitempty"`
	EnvironmentKey string   `yaml:"environment" json:"environmentKey,omitempty"`
	Active         bool     `yaml:"active" json:"active"`
}

// StairDirection is up or down.
type StairDirection string

const (
	StairsUp   StairDirection = "up"
	StairsDown StairDirection = "down"
)

// StairSocket is one end of a staircase between floors.
type StairSocket struct {
	ID           string         `yaml:"id" json:"id"`
	RoomID       string         `yaml:"room" json:"roomId"`
	Direction    StairDirection `yaml:"direction" json:"direction"`
	Floor        int            `yaml:"floor" json:"floor"`
	Cell         world.Cell     `yaml:"cell" json:"cell"`
	Facing       string         `yaml:"facing" json:"facing"`
	TargetFloor  int            `yaml:"targetFloor" json:"targetFloor"`
	TargetCell   world.Cell     `yaml:"targetCell" json:"targetCell"`
	TargetFacing string         `yaml:"targetFacing" json:"targetFacing"`
}

// GeneratedDungeon is the static graph produced by layout generation plus
// the initial state of its doors, interactives and triggers.
type GeneratedDungeon struct {
	ID           string            `yaml:"id" json:"id"`
	Seed         int64             `yaml:"seed" json:"seed"`
	Rooms        []Room            `yaml:"rooms" json:"rooms"`
	Doors        []Door            `yaml:"doors" json:"doors"`
	Interactives []Interactive     `yaml:"interactives" json:"interactives"`
	Triggers     []Trigger         `yaml:"triggers" json:"triggers"`
	Stairs       []StairSocket     `yaml:"stairs" json:"stairs,omitempty"`
	Environment  map[string]string `yaml:"environment" json:"environment,omitempty"`
	PlayerSpawn  world.Vec2        `yaml:"playerSpawn" json:"playerSpawn"`
	Grid         []string          `yaml:"grid" json:"-"`
}

// Room returns the room with id.
func (g *GeneratedDungeon) Room(id string) (Room, bool) {
	for _, room := range g.Rooms {
		if room.ID == id {
			return room, true
		}
	}
	return Room{}, false
}
