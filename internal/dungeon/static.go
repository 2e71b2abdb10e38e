package dungeon

import (
	"fmt"
	"sort"
)

// IssueCode classifies a static layout problem.
type IssueCode string

const (
	IssueDoorConfig     IssueCode = "door_config"
	IssueUnknownRoom    IssueCode = "unknown_room"
	IssueStairsUnpaired IssueCode = "stairs_unpaired"
	IssueKeyUnreachable IssueCode = "key_unreachable"
)

// Issue is one non-fatal layout warning.
type Issue struct {
	Code     IssueCode
	ObjectID string
	Message  string
}

func (i Issue) String() string {
	return fmt.Sprintf("%s %s: %s", i.Code, i.ObjectID, i.Message)
}

// ValidateStaticLayout checks a generated dungeon once at generation time.
// Door prefabs must support the state they declare, every up staircase must
// land on a matching down staircase, and the key for every locked door must
// be obtainable at or before the door's source room.
func ValidateStaticLayout(d *GeneratedDungeon) []Issue {
	var issues []Issue
	issues = append(issues, validateDoors(d)...)
	issues = append(issues, validateStairs(d)...)
	issues = append(issues, validateKeys(d)...)
	return issues
}

func validateDoors(d *GeneratedDungeon) []Issue {
	var issues []Issue
	for _, door := range d.Doors {
		switch door.State {
		case DoorLocked:
			if !door.Config.Lockable {
				issues = append(issues, Issue{IssueDoorConfig, door.ID, "locked door uses a prefab that is not lockable"})
			}
		case DoorSealed:
			if !door.Config.Sealable {
				issues = append(issues, Issue{IssueDoorConfig, door.ID, "sealed door uses a prefab that is not sealable"})
			}
		}
		if door.State == DoorLocked && door.RequiredKeyID == "" && door.RequiredKeyTag == "" {
			issues = append(issues, Issue{IssueDoorConfig, door.ID, "locked door declares no key requirement"})
		}
		if _, ok := d.Room(door.FromRoomID); !ok {
			issues = append(issues, Issue{IssueUnknownRoom, door.ID, fmt.Sprintf("source room %q does not exist", door.FromRoomID)})
		}
		if _, ok := d.Room(door.ToRoomID); !ok {
			issues = append(issues, Issue{IssueUnknownRoom, door.ID, fmt.Sprintf("target room %q does not exist", door.ToRoomID)})
		}
	}
	return issues
}

func validateStairs(d *GeneratedDungeon) []Issue {
	var issues []Issue
	for _, up := range d.Stairs {
		if up.Direction != StairsUp {
			continue
		}
		paired := false
		for _, down := range d.Stairs {
			if down.Direction == StairsDown &&
				down.Floor == up.TargetFloor &&
				down.Cell == up.TargetCell &&
				down.Facing == up.TargetFacing {
				paired = true
				break
			}
		}
		if !paired {
			issues = append(issues, Issue{
				Code:     IssueStairsUnpaired,
				ObjectID: up.ID,
				Message: fmt.Sprintf("no down staircase on floor %d at (%d,%d) facing %q",
					up.TargetFloor, up.TargetCell.Col, up.TargetCell.Row, up.TargetFacing),
			})
		}
	}
	return issues
}

func validateKeys(d *GeneratedDungeon) []Issue {
	type source struct {
		key      Key
		sequence int
	}
	var sources []source
	for _, room := range d.Rooms {
		for _, key := range room.ProvidesKeys {
			sources = append(sources, source{key, room.SequenceIndex})
		}
	}
	for _, interactive := range d.Interactives {
		if interactive.GrantsKey == nil {
			continue
		}
		room, ok := d.Room(interactive.RoomID)
		if !ok {
			continue
		}
		sources = append(sources, source{*interactive.GrantsKey, room.SequenceIndex})
	}
	sort.SliceStable(sources, func(i, j int) bool { return sources[i].sequence < sources[j].sequence })

	var issues []Issue
	for _, door := range d.Doors {
		if door.State != DoorLocked {
			continue
		}
		from, ok := d.Room(door.FromRoomID)
		if !ok {
			continue
		}
		reachable := false
		for _, src := range sources {
			if src.sequence > from.SequenceIndex {
				break
			}
			if (door.RequiredKeyID != "" && src.key.ID == door.RequiredKeyID) ||
				(door.RequiredKeyTag != "" && src.key.Tag == door.RequiredKeyTag) {
				reachable = true
				break
			}
		}
		if !reachable {
			issues = append(issues, Issue{
				Code:     IssueKeyUnreachable,
				ObjectID: door.ID,
				Message:  fmt.Sprintf("key for door is not obtainable at or before room %q", from.ID),
			})
		}
	}
	return issues
}
