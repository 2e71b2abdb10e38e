package dungeon

import "sort"

// RoomState is a room as seen by clients.
type RoomState struct {
	ID        string    `json:"id"`
	Archetype Archetype `json:"archetype"`
	Sequence  int       `json:"sequence"`
	Floor     int       `json:"floor"`
	Cleared   bool      `json:"cleared"`
}

// DoorSnapshot is a door as seen by clients.
type DoorSnapshot struct {
	ID             string    `json:"id"`
	FromRoomID     string    `json:"fromRoomId"`
	ToRoomID       string    `json:"toRoomId"`
	State          DoorState `json:"state"`
	RequiredKeyTag string    `json:"requiredKeyTag,omitempty"`
}

// InteractiveSnapshot is an interactive as seen by clients.
type InteractiveSnapshot struct {
	ID     string            `json:"id"`
	RoomID string            `json:"roomId"`
	Status InteractiveStatus `json:"status"`
}

// TriggerSnapshot is a trigger as seen by clients.
type TriggerSnapshot struct {
	ID     string `json:"id"`
	Active bool   `json:"active"`
}

// LayoutSnapshot is the full live state sent once per connection.
type LayoutSnapshot struct {
	Rooms        []RoomState           `json:"rooms"`
	Doors        []DoorSnapshot        `json:"doors"`
	Interactives []InteractiveSnapshot `json:"interactives"`
	Triggers     []TriggerSnapshot     `json:"triggers"`
	Environment  map[string]string     `json:"environment,omitempty"`
}

// Snapshot copies the live state, ordered by room sequence and then by id.
func (v *StateValidator) Snapshot() LayoutSnapshot {
	v.mu.RLock()
	defer v.mu.RUnlock()

	snap := LayoutSnapshot{
		Rooms:        make([]RoomState, 0, len(v.rooms)),
		Doors:        make([]DoorSnapshot, 0, len(v.doors)),
		Interactives: make([]InteractiveSnapshot, 0, len(v.interactives)),
		Triggers:     make([]TriggerSnapshot, 0, len(v.triggers)),
		Environment:  make(map[string]string, len(v.environment)),
	}
	for id, room := range v.rooms {
		snap.Rooms = append(snap.Rooms, RoomState{
			ID:        id,
			Archetype: room.Archetype,
			Sequence:  room.SequenceIndex,
			Floor:     room.Floor,
			Cleared:   v.cleared[id],
		})
	}
	sort.Slice(snap.Rooms, func(i, j int) bool {
		if snap.Rooms[i].Sequence != snap.Rooms[j].Sequence {
			return snap.Rooms[i].Sequence < snap.Rooms[j].Sequence
		}
		return snap.Rooms[i].ID < snap.Rooms[j].ID
	})
	for _, door := range v.doors {
		snap.Doors = append(snap.Doors, DoorSnapshot{
			ID:             door.ID,
			FromRoomID:     door.FromRoomID,
			ToRoomID:       door.ToRoomID,
			State:          door.State,
			RequiredKeyTag: door.RequiredKeyTag,
		})
	}
	sort.Slice(snap.Doors, func(i, j int) bool { return snap.Doors[i].ID < snap.Doors[j].ID })
	for _, interactive := range v.interactives {
		snap.Interactives = append(snap.Interactives, InteractiveSnapshot{
			ID:     interactive.ID,
			RoomID: interactive.RoomID,
			Status: interactive.Status,
		})
	}
	sort.Slice(snap.Interactives, func(i, j int) bool { return snap.Interactives[i].ID < snap.Interactives[j].ID })
	for _, trigger := range v.triggers {
		snap.Triggers = append(snap.Triggers, TriggerSnapshot{ID: trigger.ID, Active: trigger.Active})
	}
	sort.Slice(snap.Triggers, func(i, j int) bool { return snap.Triggers[i].ID < snap.Triggers[j].ID })
	for k, val := range v.environment {
		snap.Environment[k] = val
	}
	return snap
}
