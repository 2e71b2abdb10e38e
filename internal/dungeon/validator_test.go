package dungeon

import (
	"testing"

	"github.com/jackandcarter/Adventure-2.0-sub000/internal/world"
)

func testDungeon() *GeneratedDungeon {
	return &GeneratedDungeon{
		ID: "dungeon-1",
		Rooms: []Room{
			{ID: "start", Archetype: ArchetypeStart, SequenceIndex: 0},
			{ID: "arena", Archetype: ArchetypeEnemy, SequenceIndex: 1},
			{ID: "vault", Archetype: ArchetypeTreasure, SequenceIndex: 2},
			{ID: "boss", Archetype: ArchetypeBoss, SequenceIndex: 3},
		},
		Doors: []Door{
			{ID: "d-start-arena", FromRoomID: "start", ToRoomID: "arena", State: DoorClosed},
			{ID: "d-arena-vault", FromRoomID: "arena", ToRoomID: "vault", State: DoorClosed},
			{ID: "d-vault-boss", FromRoomID: "vault", ToRoomID: "boss", State: DoorLocked, RequiredKeyTag: "bronze", Config: DoorConfig{Lockable: true}},
			{ID: "d-sealed", FromRoomID: "vault", ToRoomID: "start", State: DoorSealed, Config: DoorConfig{Sealable: true}},
		},
		Interactives: []Interactive{
			{ID: "pedestal", RoomID: "arena", GrantsKey: &Key{ID: "key-bronze", Tag: "bronze"}},
			{ID: "chest", RoomID: "vault"},
			{ID: "lever-a", RoomID: "vault", TriggerID: "t-a"},
			{ID: "lever-b", RoomID: "vault", TriggerID: "t-b"},
			{ID: "gated-chest", RoomID: "vault", RequiredKeyTag: "bronze"},
		},
		Triggers: []Trigger{
			{ID: "t-a", RoomID: "vault"},
			{ID: "t-b", RoomID: "vault", Requires: []string{"t-a"}, EnvironmentKey: "bridge"},
		},
	}
}

func TestRoomClearGatesOutgoingDoors(t *testing.T) {
	v := NewStateValidator(testDungeon())

	if out := v.TryOpenDoor("p1", "d-start-arena", ""); !out.Accepted {
		t.Fatalf("expected door from non-gated room to open, got %q", out.Reason)
	}
	if out := v.TryOpenDoor("p1", "d-arena-vault", ""); out.Accepted || out.Reason != ReasonRoomUncleared {
		t.Fatalf("expected room_uncleared, got %+v", out)
	}
	if door, _ := v.Door("d-arena-vault"); door.State != DoorClosed {
		t.Fatalf("expected door to stay closed, got %q", door.State)
	}

	cleared := v.MarkRoomCleared("arena")
	if !cleared.Accepted || len(cleared.Delta.ClearedRooms) != 1 {
		t.Fatalf("expected clear delta, got %+v", cleared)
	}
	out := v.TryOpenDoor("p1", "d-arena-vault", "")
	if !out.Accepted {
		t.Fatalf("expected door to open after clear, got %q", out.Reason)
	}
	if len(out.Delta.Doors) != 1 || out.Delta.Doors[0].State != DoorOpen {
		t.Fatalf("expected open delta, got %+v", out.Delta)
	}

	again := v.TryOpenDoor("p1", "d-arena-vault", "")
	if !again.Accepted || !again.Delta.Empty() {
		t.Fatalf("expected accepted no-op for open door, got %+v", again)
	}
}

func TestMarkRoomClearedNonGatedIsNoop(t *testing.T) {
	v := NewStateValidator(testDungeon())
	out := v.MarkRoomCleared("vault")
	if !out.Accepted || !out.Delta.Empty() {
		t.Fatalf("expected accepted no-op, got %+v", out)
	}
	if out := v.MarkRoomCleared("nowhere"); out.Reason != ReasonUnknownRoom {
		t.Fatalf("expected unknown_room, got %q", out.Reason)
	}
	if got := v.RoomsRequiringClear(); len(got) != 2 || got[0] != "arena" || got[1] != "boss" {
		t.Fatalf("unexpected gated rooms %v", got)
	}
}

func TestDoorDenials(t *testing.T) {
	v := NewStateValidator(testDungeon())
	if out := v.TryOpenDoor("p1", "missing", ""); out.Reason != ReasonUnknownDoor {
		t.Fatalf("expected unknown_door, got %q", out.Reason)
	}
	if out := v.TryOpenDoor("p1", "d-sealed", ""); out.Reason != ReasonSealedDoor {
		t.Fatalf("expected sealed_door, got %q", out.Reason)
	}
	if out := v.TryOpenDoor("p1", "d-vault-boss", ""); out.Reason != ReasonKeyRequired {
		t.Fatalf("expected key_required, got %q", out.Reason)
	}
	if out := v.TryOpenDoor("p1", "d-vault-boss", "key-bronze"); out.Reason != ReasonMissingKey {
		t.Fatalf("expected missing_key for a key not on the ring, got %q", out.Reason)
	}
}

func TestKeyPickupConsumedOnce(t *testing.T) {
	v := NewStateValidator(testDungeon())

	out := v.RegisterKeyPickup("p1", "pedestal")
	if !out.Accepted {
		t.Fatalf("expected pickup accepted, got %q", out.Reason)
	}
	if ring := v.KeyRing("p1"); ring["key-bronze"] != "bronze" {
		t.Fatalf("expected key on ring, got %v", ring)
	}
	if out := v.RegisterKeyPickup("p2", "pedestal"); out.Reason != ReasonAlreadyConsumed {
		t.Fatalf("expected already_consumed, got %q", out.Reason)
	}
	if out := v.UseInteractive("p2", "pedestal", ""); out.Reason != ReasonAlreadyConsumed {
		t.Fatalf("expected already_consumed on use, got %q", out.Reason)
	}
	if out := v.RegisterKeyPickup("p1", "chest"); out.Reason != ReasonNoKeyAvailable {
		t.Fatalf("expected no_key_available, got %q", out.Reason)
	}
	if out := v.RegisterKeyPickup("p1", "ghost"); out.Reason != ReasonUnknownInteractive {
		t.Fatalf("expected unknown_interactive, got %q", out.Reason)
	}
}

func TestTaggedKeyConsumedOnDoorOpen(t *testing.T) {
	v := NewStateValidator(testDungeon())
	v.RegisterKeyPickup("p1", "pedestal")

	if out := v.TryOpenDoor("p2", "d-vault-boss", ""); out.Reason != ReasonKeyRequired {
		t.Fatalf("expected another player's ring to be empty, got %q", out.Reason)
	}
	out := v.TryOpenDoor("p1", "d-vault-boss", "")
	if !out.Accepted {
		t.Fatalf("expected tagged key to open door, got %q", out.Reason)
	}
	if ring := v.KeyRing("p1"); len(ring) != 0 {
		t.Fatalf("expected key removed from ring, got %v", ring)
	}
	consumed := false
	for _, key := range out.Delta.Keys {
		if key.KeyID == "key-bronze" && key.Consumed {
			consumed = true
		}
	}
	if !consumed {
		t.Fatalf("expected consumed key in delta, got %+v", out.Delta.Keys)
	}
}

func TestProvidedKeyMustMatchTag(t *testing.T) {
	d := testDungeon()
	d.Interactives = append(d.Interactives, Interactive{ID: "silver-pedestal", RoomID: "start", GrantsKey: &Key{ID: "key-silver", Tag: "silver"}})
	v := NewStateValidator(d)
	v.RegisterKeyPickup("p1", "silver-pedestal")

	if out := v.UseInteractive("p1", "gated-chest", "key-silver"); out.Reason != ReasonMissingKey {
		t.Fatalf("expected missing_key for wrong tag, got %q", out.Reason)
	}
	if ring := v.KeyRing("p1"); ring["key-silver"] != "silver" {
		t.Fatalf("expected denied use to keep the key, got %v", ring)
	}

	v.RegisterKeyPickup("p1", "pedestal")
	out := v.UseInteractive("p1", "gated-chest", "key-bronze")
	if !out.Accepted {
		t.Fatalf("expected matching key to open chest, got %q", out.Reason)
	}
	ring := v.KeyRing("p1")
	if _, held := ring["key-bronze"]; held {
		t.Fatalf("expected bronze key consumed")
	}
	if _, held := ring["key-silver"]; !held {
		t.Fatalf("expected silver key kept")
	}
}

func TestTriggerPrerequisitesAndCascade(t *testing.T) {
	v := NewStateValidator(testDungeon())

	if out := v.TryActivateTrigger("p1", "nope"); out.Reason != ReasonUnknownTrigger {
		t.Fatalf("expected unknown_trigger, got %q", out.Reason)
	}
	out := v.UseInteractive("p1", "lever-b", "")
	if out.Accepted || out.Reason != ReasonPrerequisiteMissing {
		t.Fatalf("expected cascading prerequisite_missing, got %+v", out)
	}
	snap := v.Snapshot()
	for _, interactive := range snap.Interactives {
		if interactive.ID == "lever-b" && interactive.Status != InteractiveAvailable {
			t.Fatalf("expected denied lever to stay available")
		}
	}

	if out := v.UseInteractive("p1", "lever-a", ""); !out.Accepted || len(out.Delta.Triggers) != 1 {
		t.Fatalf("expected lever-a to activate t-a, got %+v", out)
	}
	out = v.UseInteractive("p1", "lever-b", "")
	if !out.Accepted {
		t.Fatalf("expected lever-b accepted, got %q", out.Reason)
	}
	if out.Delta.Environment["bridge"] != EnvironmentActive {
		t.Fatalf("expected bridge environment active, got %v", out.Delta.Environment)
	}
	again := v.TryActivateTrigger("p1", "t-b")
	if !again.Accepted || !again.Delta.Empty() {
		t.Fatalf("expected idempotent activation, got %+v", again)
	}
	if v.Snapshot().Environment["bridge"] != EnvironmentActive {
		t.Fatalf("expected environment persisted in snapshot")
	}
}

func TestSnapshotOrderingAndClearedFlags(t *testing.T) {
	v := NewStateValidator(testDungeon())
	v.MarkRoomCleared("arena")
	snap := v.Snapshot()
	if len(snap.Rooms) != 4 || snap.Rooms[0].ID != "start" || snap.Rooms[3].ID != "boss" {
		t.Fatalf("expected rooms ordered by sequence, got %+v", snap.Rooms)
	}
	if !snap.Rooms[1].Cleared || snap.Rooms[3].Cleared {
		t.Fatalf("unexpected cleared flags %+v", snap.Rooms)
	}
	if v.AllCleared() {
		t.Fatalf("expected boss room still gating")
	}
	v.MarkRoomCleared("boss")
	if !v.AllCleared() {
		t.Fatalf("expected all gated rooms cleared")
	}
}

func TestValidateStaticLayout(t *testing.T) {
	d := testDungeon()
	d.Rooms = append(d.Rooms, Room{ID: "depths", Archetype: ArchetypeStairs, SequenceIndex: 4, Floor: 1})
	d.Doors = append(d.Doors,
		Door{ID: "bad-lock", FromRoomID: "boss", ToRoomID: "depths", State: DoorLocked, RequiredKeyID: "key-gold"},
		Door{ID: "early-lock", FromRoomID: "start", ToRoomID: "arena", State: DoorLocked, RequiredKeyTag: "bronze", Config: DoorConfig{Lockable: true}},
	)
	d.Stairs = []StairSocket{
		{ID: "up-ok", Direction: StairsUp, Floor: 0, TargetFloor: 1, TargetCell: world.Cell{Col: 2, Row: 3}, TargetFacing: "north"},
		{ID: "down-ok", Direction: StairsDown, Floor: 1, Cell: world.Cell{Col: 2, Row: 3}, Facing: "north"},
		{ID: "up-bad", Direction: StairsUp, Floor: 0, TargetFloor: 1, TargetCell: world.Cell{Col: 9, Row: 9}, TargetFacing: "south"},
	}

	issues := ValidateStaticLayout(d)
	found := map[string]IssueCode{}
	for _, issue := range issues {
		found[issue.ObjectID+"/"+string(issue.Code)] = issue.Code
	}
	for _, want := range []string{
		"bad-lock/door_config",
		"bad-lock/key_unreachable",
		"early-lock/key_unreachable",
		"up-bad/stairs_unpaired",
	} {
		if _, ok := found[want]; !ok {
			t.Fatalf("expected issue %s, got %v", want, issues)
		}
	}
	if _, ok := found["up-ok/stairs_unpaired"]; ok {
		t.Fatalf("expected paired stairs to pass")
	}
	if _, ok := found["d-vault-boss/key_unreachable"]; ok {
		t.Fatalf("expected bronze key from arena to satisfy vault door")
	}
	if len(issues) != 4 {
		t.Fatalf("expected exactly four issues, got %d: %v", len(issues), issues)
	}
}

func TestClearingRoomGrantsProvidedKeys(t *testing.T) {
	d := &GeneratedDungeon{
		ID: "keyed",
		Rooms: []Room{
			{ID: "start", Archetype: ArchetypeStart},
			{ID: "arena", Archetype: ArchetypeEnemy, SequenceIndex: 1, ProvidesKeys: []Key{{ID: "k1", Tag: "iron"}}},
			{ID: "vault", Archetype: ArchetypeTreasure, SequenceIndex: 2},
		},
		Doors: []Door{
			{ID: "d-start-arena", FromRoomID: "start", ToRoomID: "arena", State: DoorClosed},
			{ID: "d", FromRoomID: "arena", ToRoomID: "vault", State: DoorLocked, RequiredKeyID: "k1", Config: DoorConfig{Lockable: true}},
		},
	}
	if issues := validateKeys(d); len(issues) != 0 {
		t.Fatalf("expected room key to satisfy the locked door, got %+v", issues)
	}
	v := NewStateValidator(d)

	cleared := v.MarkRoomCleared("arena", "p1", "p2")
	if !cleared.Accepted || len(cleared.Delta.ClearedRooms) != 1 || len(cleared.Delta.Keys) != 2 {
		t.Fatalf("expected clear and two key grants, got %+v", cleared.Delta)
	}
	if ring := v.KeyRing("p2"); ring["k1"] != "iron" {
		t.Fatalf("expected p2 to hold k1, got %v", ring)
	}

	again := v.MarkRoomCleared("arena", "p1")
	if !again.Accepted || !again.Delta.Empty() {
		t.Fatalf("expected keys granted once, got %+v", again.Delta)
	}

	out := v.TryOpenDoor("p1", "d", "")
	if !out.Accepted {
		t.Fatalf("expected locked door to open with the room key, got %q", out.Reason)
	}
	if _, held := v.KeyRing("p1")["k1"]; held {
		t.Fatalf("expected k1 consumed from p1's ring")
	}
}
