package dungeon

import (
	"slices"
	"sort"
	"sync"
)

// Reason is the machine-readable code attached to a denied interaction.
type Reason string

const (
	ReasonNone                Reason = ""
	ReasonUnknownInteractive  Reason = "unknown_interactive"
	ReasonAlreadyConsumed     Reason = "already_consumed"
	ReasonNoKeyAvailable      Reason = "no_key_available"
	ReasonUnknownDoor         Reason = "unknown_door"
	ReasonRoomUncleared       Reason = "room_uncleared"
	ReasonSealedDoor          Reason = "sealed_door"
	ReasonKeyRequired         Reason = "key_required"
	ReasonMissingKey          Reason = "missing_key"
	ReasonUnknownTrigger      Reason = "unknown_trigger"
	ReasonPrerequisiteMissing Reason = "prerequisite_missing"
	ReasonUnknownRoom         Reason = "unknown_room"
)

// EnvironmentActive is the value a trigger writes to its environment key.
const EnvironmentActive = "active"

// DoorDelta is a door state change.
type DoorDelta struct {
	ID    string    `json:"id"`
	State DoorState `json:"state"`
}

// InteractiveDelta is an interactive status change.
type InteractiveDelta struct {
	ID     string            `json:"id"`
	Status InteractiveStatus `json:"status"`
}

// KeyDelta records a key entering or leaving a player's ring.
type KeyDelta struct {
	PlayerID string `json:"playerId"`
	KeyID    string `json:"keyId"`
	Tag      string `json:"tag,omitempty"`
	Consumed bool   `json:"consumed,omitempty"`
}

// Delta is the broadcastable part of an accepted interaction.
type Delta struct {
	Doors        []DoorDelta        `json:"doors,omitempty"`
	Interactives []InteractiveDelta `json:"interactives,omitempty"`
	Triggers     []string           `json:"triggers,omitempty"`
	Environment  map[string]string  `json:"environment,omitempty"`
	Keys         []KeyDelta         `json:"keys,omitempty"`
	ClearedRooms []string           `json:"clearedRooms,omitempty"`
}

// Empty reports whether the delta carries no changes.
func (d *Delta) Empty() bool {
	return d == nil || (len(d.Doors) == 0 && len(d.Interactives) == 0 && len(d.Triggers) == 0 &&
		len(d.Environment) == 0 && len(d.Keys) == 0 && len(d.ClearedRooms) == 0)
}

// Outcome is the result of every validator operation.
type Outcome struct {
	Accepted bool
	Reason   Reason
	Delta    *Delta
}

func accepted(delta *Delta) Outcome {
	if delta == nil {
		delta = &Delta{}
	}
	return Outcome{Accepted: true, Delta: delta}
}

func denied(reason Reason) Outcome {
	return Outcome{Reason: reason}
}

// StateValidator owns the live door, interactive, trigger and room-clear
// state of one generated dungeon plus every player's key ring.
type StateValidator struct {
	mu           sync.RWMutex
	rooms        map[string]*Room
	cleared      map[string]bool
	doors        map[string]*Door
	interactives map[string]*Interactive
	triggers     map[string]*Trigger
	environment  map[string]string
	keyRings     map[string]map[string]string
	keysGranted  map[string]bool
}

// NewStateValidator copies the dungeon's initial state.
func NewStateValidator(d *GeneratedDungeon) *StateValidator {
	v := &StateValidator{
		rooms:        make(map[string]*Room, len(d.Rooms)),
		cleared:      make(map[string]bool, len(d.Rooms)),
		doors:        make(map[string]*Door, len(d.Doors)),
		interactives: make(map[string]*Interactive, len(d.Interactives)),
		triggers:     make(map[string]*Trigger, len(d.Triggers)),
		environment:  make(map[string]string, len(d.Environment)),
		keyRings:     make(map[string]map[string]string),
		keysGranted:  make(map[string]bool),
	}
	for i := range d.Rooms {
		room := d.Rooms[i]
		v.rooms[room.ID] = &room
		v.cleared[room.ID] = !room.Archetype.RequiresClear()
	}
	for i := range d.Doors {
		door := d.Doors[i]
		if door.State == "" {
			door.State = DoorClosed
		}
		v.doors[door.ID] = &door
	}
	for i := range d.Interactives {
		interactive := d.Interactives[i]
		if interactive.Status == "" {
			interactive.Status = InteractiveAvailable
		}
		v.interactives[interactive.ID] = &interactive
	}
	for i := range d.Triggers {
		trigger := d.Triggers[i]
		trigger.Requires = slices.Clone(trigger.Requires)
		v.triggers[trigger.ID] = &trigger
	}
	for k, val := range d.Environment {
		v.environment[k] = val
	}
	return v
}

// RegisterKeyPickup consumes a key-granting interactive and adds its key to
// the player's ring.
func (v *StateValidator) RegisterKeyPickup(playerID, interactiveID string) Outcome {
	v.mu.Lock()
	defer v.mu.Unlock()

	interactive, ok := v.interactives[interactiveID]
	if !ok {
		return denied(ReasonUnknownInteractive)
	}
	if interactive.Status == InteractiveConsumed {
		return denied(ReasonAlreadyConsumed)
	}
	if interactive.GrantsKey == nil {
		return denied(ReasonNoKeyAvailable)
	}
	delta := &Delta{}
	v.consumeInteractive(interactive, delta)
	v.grantKey(playerID, *interactive.GrantsKey, delta)
	return accepted(delta)
}

// TryOpenDoor opens a door for the player when its room has been cleared
// and any key requirement is met from the player's ring.
func (v *StateValidator) TryOpenDoor(playerID, doorID, providedKeyID string) Outcome {
	v.mu.Lock()
	defer v.mu.Unlock()

	door, ok := v.doors[doorID]
	if !ok {
		return denied(ReasonUnknownDoor)
	}
	if door.State == DoorOpen {
		return accepted(nil)
	}
	if !v.cleared[door.FromRoomID] {
		if room, known := v.rooms[door.FromRoomID]; known && room.Archetype.RequiresClear() {
			return denied(ReasonRoomUncleared)
		}
	}
	if door.State == DoorSealed {
		return denied(ReasonSealedDoor)
	}

	delta := &Delta{}
	if door.State == DoorLocked {
		if reason := v.consumeKey(playerID, door.RequiredKeyID, door.RequiredKeyTag, providedKeyID, delta); reason != ReasonNone {
			return denied(reason)
		}
	}
	door.State = DoorOpen
	delta.Doors = append(delta.Doors, DoorDelta{ID: door.ID, State: DoorOpen})
	return accepted(delta)
}

// TryActivateTrigger activates a trigger whose prerequisites are active.
// Activating an active trigger is an accepted no-op.
func (v *StateValidator) TryActivateTrigger(playerID, triggerID string) Outcome {
	v.mu.Lock()
	defer v.mu.Unlock()

	delta := &Delta{}
	if reason := v.activateTrigger(triggerID, delta); reason != ReasonNone {
		return denied(reason)
	}
	return accepted(delta)
}

// UseInteractive consumes an interactive, spending a key when it is
// key-gated, granting its key and cascading into its trigger. A trigger
// denial denies the whole interaction and leaves the interactive available.
func (v *StateValidator) UseInteractive(playerID, interactiveID, providedKeyID string) Outcome {
	v.mu.Lock()
	defer v.mu.Unlock()

	interactive, ok := v.interactives[interactiveID]
	if !ok {
		return denied(ReasonUnknownInteractive)
	}
	if interactive.Status == InteractiveConsumed {
		return denied(ReasonAlreadyConsumed)
	}
	if interactive.TriggerID != "" {
		if reason := v.checkTrigger(interactive.TriggerID); reason != ReasonNone {
			return denied(reason)
		}
	}

	delta := &Delta{}
	if interactive.RequiredKeyID != "" || interactive.RequiredKeyTag != "" {
		if reason := v.consumeKey(playerID, interactive.RequiredKeyID, interactive.RequiredKeyTag, providedKeyID, delta); reason != ReasonNone {
			return denied(reason)
		}
	}
	v.consumeInteractive(interactive, delta)
	if interactive.GrantsKey != nil {
		v.grantKey(playerID, *interactive.GrantsKey, delta)
	}
	if interactive.TriggerID != "" {
		v.activateTrigger(interactive.TriggerID, delta)
	}
	return accepted(delta)
}

// MarkRoomCleared flips a gated room to cleared. Once a room is cleared its
// ProvidesKeys go to every recipient's ring, at most once per room. Rooms
// that never gate and provide no keys are accepted without a delta.
func (v *StateValidator) MarkRoomCleared(roomID string, recipients ...string) Outcome {
	v.mu.Lock()
	defer v.mu.Unlock()

	room, ok := v.rooms[roomID]
	if !ok {
		return denied(ReasonUnknownRoom)
	}
	delta := &Delta{}
	if room.Archetype.RequiresClear() && !v.cleared[roomID] {
		v.cleared[roomID] = true
		delta.ClearedRooms = append(delta.ClearedRooms, roomID)
	}
	if len(room.ProvidesKeys) > 0 && len(recipients) > 0 && !v.keysGranted[roomID] {
		v.keysGranted[roomID] = true
		for _, playerID := range recipients {
			for _, key := range room.ProvidesKeys {
				v.grantKey(playerID, key, delta)
			}
		}
	}
	return accepted(delta)
}

// IsRoomCleared reports whether the room no longer gates its doors.
func (v *StateValidator) IsRoomCleared(roomID string) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.cleared[roomID]
}

// RoomsRequiringClear lists the gated rooms, sorted by id.
func (v *StateValidator) RoomsRequiringClear() []string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	var ids []string
	for id, room := range v.rooms {
		if room.Archetype.RequiresClear() {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// AllCleared reports whether every gated room has been cleared.
func (v *StateValidator) AllCleared() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	for id, room := range v.rooms {
		if room.Archetype.RequiresClear() && !v.cleared[id] {
			return false
		}
	}
	return true
}

// KeyRing returns a copy of the player's keys mapped to their tags.
func (v *StateValidator) KeyRing(playerID string) map[string]string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	ring := v.keyRings[playerID]
	out := make(map[string]string, len(ring))
	for id, tag := range ring {
		out[id] = tag
	}
	return out
}

// Door returns a copy of the door's live state.
func (v *StateValidator) Door(id string) (Door, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	door, ok := v.doors[id]
	if !ok {
		return Door{}, false
	}
	return *door, true
}

func (v *StateValidator) consumeInteractive(interactive *Interactive, delta *Delta) {
	interactive.Status = InteractiveConsumed
	delta.Interactives = append(delta.Interactives, InteractiveDelta{ID: interactive.ID, Status: InteractiveConsumed})
}

func (v *StateValidator) grantKey(playerID string, key Key, delta *Delta) {
	ring := v.keyRings[playerID]
	if ring == nil {
		ring = make(map[string]string)
		v.keyRings[playerID] = ring
	}
	ring[key.ID] = key.Tag
	delta.Keys = append(delta.Keys, KeyDelta{PlayerID: playerID, KeyID: key.ID, Tag: key.Tag})
}

// consumeKey removes the key that satisfies the requirement from the ring.
// A provided key must be held and must match; otherwise any held key
// matching the id or tag is used.
func (v *StateValidator) consumeKey(playerID, requiredID, requiredTag, providedID string, delta *Delta) Reason {
	ring := v.keyRings[playerID]
	matches := func(id, tag string) bool {
		if requiredID != "" && id == requiredID {
			return true
		}
		return requiredTag != "" && tag == requiredTag
	}

	chosen := ""
	if providedID != "" {
		tag, held := ring[providedID]
		if !held || !matches(providedID, tag) {
			return ReasonMissingKey
		}
		chosen = providedID
	} else {
		ids := make([]string, 0, len(ring))
		for id := range ring {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			if matches(id, ring[id]) {
				chosen = id
				break
			}
		}
		if chosen == "" {
			return ReasonKeyRequired
		}
	}

	tag := ring[chosen]
	delete(ring, chosen)
	delta.Keys = append(delta.Keys, KeyDelta{PlayerID: playerID, KeyID: chosen, Tag: tag, Consumed: true})
	return ReasonNone
}

func (v *StateValidator) checkTrigger(triggerID string) Reason {
	trigger, ok := v.triggers[triggerID]
	if !ok {
		return ReasonUnknownTrigger
	}
	if trigger.Active {
		return ReasonNone
	}
	for _, required := range trigger.Requires {
		prereq, known := v.triggers[required]
		if !known || !prereq.Active {
			return ReasonPrerequisiteMissing
		}
	}
	return ReasonNone
}

func (v *StateValidator) activateTrigger(triggerID string, delta *Delta) Reason {
	if reason := v.checkTrigger(triggerID); reason != ReasonNone {
		return reason
	}
	trigger := v.triggers[triggerID]
	if trigger.Active {
		return ReasonNone
	}
	trigger.Active = true
	delta.Triggers = append(delta.Triggers, trigger.ID)
	if trigger.EnvironmentKey != "" {
		v.environment[trigger.EnvironmentKey] = EnvironmentActive
		if delta.Environment == nil {
			delta.Environment = make(map[string]string, 1)
		}
		delta.Environment[trigger.EnvironmentKey] = EnvironmentActive
	}
	return ReasonNone
}
