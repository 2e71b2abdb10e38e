package combat

import (
	"errors"
	"sort"
	"testing"
	"time"

	"pgregory.net/rapid"

	"github.com/jackandcarter/Adventure-2.0-sub000/internal/abilities"
	"github.com/jackandcarter/Adventure-2.0-sub000/internal/actor"
	"github.com/jackandcarter/Adventure-2.0-sub000/internal/status"
	"github.com/jackandcarter/Adventure-2.0-sub000/internal/world"
	"github.com/jackandcarter/Adventure-2.0-sub000/stats"
)

type constRoller float64

func (r constRoller) Float64() float64 { return float64(r) }

type testRoster map[string]*actor.Actor

func (r testRoster) Actor(id string) (*actor.Actor, bool) {
	a, ok := r[id]
	return a, ok
}

func (r testRoster) Actors() []*actor.Actor {
	out := make([]*actor.Actor, 0, len(r))
	for _, a := range r {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

var epoch = time.Unix(1_700_000_000, 0)

func newActor(id string, pos world.Vec2, values map[stats.StatID]float64) *actor.Actor {
	base := stats.ValueSet{}
	base[stats.StatMaxHealth] = 100
	base[stats.StatMaxMana] = 50
	for id, v := range values {
		base[id] = v
	}
	return actor.New(actor.Config{ID: id, Kind: actor.KindPlayer, Position: pos, Speed: 4, Stats: stats.NewComponent(1, base)})
}

func testCatalog(t *testing.T, defs ...abilities.Definition) *abilities.Catalog {
	t.Helper()
	catalog, err := abilities.NewCatalog(defs)
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	return catalog
}

func openLayout(t *testing.T) *world.RoomLayout {
	t.Helper()
	layout, err := world.ParseRows([]string{
		"..........",
		"....#.....",
		"..........",
	}, 1)
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	return layout
}

func TestValidateOrder(t *testing.T) {
	catalog := testCatalog(t,
		abilities.Definition{ID: "strike", Range: 2, Cooldown: time.Second, Power: 1},
		abilities.Definition{ID: "nova", Category: abilities.CategoryTrance, MinimumTrance: 50, Cost: abilities.Cost{Resource: abilities.ResourceTrance, Amount: 60}},
		abilities.Definition{ID: "bolt", Range: 20, Cost: abilities.Cost{Resource: abilities.ResourceMana, Amount: 80}, RequiresLineOfSight: true},
		abilities.Definition{ID: "gaze", Range: 20, RequiresLineOfSight: true},
	)
	exec := NewExecutor(catalog, nil, openLayout(t), constRoller(0.99))
	caster := newActor("p1", world.Vec2{X: 0.5, Y: 1.5}, nil)
	near := newActor("e1", world.Vec2{X: 1.5, Y: 1.5}, nil)
	behindWall := newActor("e2", world.Vec2{X: 8.5, Y: 1.5}, nil)

	cases := []struct {
		name   string
		cmd    actor.AbilityCastCommand
		target *actor.Actor
		setup  func()
		want   Denial
	}{
		{name: "unknown", cmd: actor.AbilityCastCommand{AbilityID: "missing"}, want: DenialUnknownAbility},
		{name: "cooldown", cmd: actor.AbilityCastCommand{AbilityID: "strike"}, target: near, setup: func() { caster.Cooldowns["strike"] = epoch.Add(time.Second) }, want: DenialCooldown},
		{name: "trance gate uses cost when above minimum", cmd: actor.AbilityCastCommand{AbilityID: "nova"}, setup: func() { caster.Trance.Current = 55 }, want: DenialTranceLocked},
		{name: "mana", cmd: actor.AbilityCastCommand{AbilityID: "bolt"}, target: behindWall, want: DenialResources},
		{name: "range", cmd: actor.AbilityCastCommand{AbilityID: "strike"}, target: behindWall, setup: func() { delete(caster.Cooldowns, "strike") }, want: DenialRange},
		{name: "line of sight", cmd: actor.AbilityCastCommand{AbilityID: "gaze"}, target: behindWall, want: DenialLineOfSight},
		{name: "accepted", cmd: actor.AbilityCastCommand{AbilityID: "strike"}, target: near, want: DenialNone},
	}
	for _, tc := range cases {
		if tc.setup != nil {
			tc.setup()
		}
		ok, denial := exec.Validate(tc.cmd, caster, tc.target, epoch)
		if denial != tc.want || ok != (tc.want == DenialNone) {
			t.Fatalf("%s: expected %q, got ok=%v denial=%q", tc.name, tc.want, ok, denial)
		}
	}
}

func TestCooldownDeniedExactlyWhileActive(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		cooldownMs := rapid.IntRange(0, 5000).Draw(t, "cooldown")
		probeMs := rapid.IntRange(0, 6000).Draw(t, "probe")
		behavior := rapid.SampledFrom([]abilities.TranceBehavior{abilities.TranceNone, abilities.TranceDoubleCast}).Draw(t, "behavior")
		catalog, err := abilities.NewCatalog([]abilities.Definition{{ID: "strike", Cooldown: time.Duration(cooldownMs) * time.Millisecond, Power: 1, TranceBehavior: behavior}})
		if err != nil {
			t.Fatalf("catalog: %v", err)
		}
		exec := NewExecutor(catalog, nil, nil, constRoller(0.99))
		caster := newActor("p1", world.Vec2{}, nil)
		target := newActor("e1", world.Vec2{}, nil)
		roster := testRoster{"p1": caster, "e1": target}
		def, _ := catalog.Get("strike")
		if err := exec.Resolve(caster, def, "e1", nil, epoch, roster); err != nil {
			t.Fatalf("resolve: %v", err)
		}
		until := epoch.Add(time.Duration(cooldownMs) * time.Millisecond)
		if !caster.CooldownUntil("strike").Equal(until) {
			t.Fatalf("expected cooldown until %v, got %v", until, caster.CooldownUntil("strike"))
		}
		probe := epoch.Add(time.Duration(probeMs) * time.Millisecond)
		_, denial := exec.Validate(actor.AbilityCastCommand{AbilityID: "strike"}, caster, target, probe)
		if (denial == DenialCooldown) != probe.Before(until) {
			t.Fatalf("cooldown denial mismatch at probe=%dms cooldown=%dms: %q", probeMs, cooldownMs, denial)
		}
	})
}

func TestDoubleCastChargesOnceExecutesTwice(t *testing.T) {
	catalog := testCatalog(t, abilities.Definition{
		ID:             "echo",
		Category:       abilities.CategoryTrance,
		Cost:           abilities.Cost{Resource: abilities.ResourceTrance, Amount: 40},
		TranceBehavior: abilities.TranceDoubleCast,
		Power:          2,
	})
	exec := NewExecutor(catalog, nil, nil, constRoller(0.99))
	caster := newActor("p1", world.Vec2{}, map[stats.StatID]float64{stats.StatAttackPower: 10})
	target := newActor("e1", world.Vec2{}, nil)
	roster := testRoster{"p1": caster, "e1": target}
	caster.Trance.Current = 50

	def, _ := catalog.Get("echo")
	if err := exec.Resolve(caster, def, "e1", nil, epoch, roster); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	results := exec.DrainResults()
	if len(results) != 2 {
		t.Fatalf("expected two execution results, got %d", len(results))
	}
	if results[0].Execution != 1 || results[1].Execution != 2 {
		t.Fatalf("unexpected execution numbering: %+v", results)
	}
	// 50 - 40 spent, then 2 hits of 20 damage each feed 1 trance apiece.
	if got := caster.Trance.Current; got != 12 {
		t.Fatalf("expected trance 12 after single charge and gains, got %.2f", got)
	}
	if target.Resources.Health != 60 {
		t.Fatalf("expected two hits of 20, health=%d", target.Resources.Health)
	}
	if len(exec.Results()) != 0 {
		t.Fatalf("expected drained buffer")
	}
}

func TestDamageFormulaAndMitigation(t *testing.T) {
	catalog := testCatalog(t,
		abilities.Definition{ID: "slash", Power: 3},
		abilities.Definition{ID: "flame", Power: 3, Element: abilities.ElementFire},
		abilities.Definition{ID: "mend", Power: 2, Element: abilities.ElementHealing},
		abilities.Definition{ID: "poke", Power: 0.1},
	)
	exec := NewExecutor(catalog, nil, nil, constRoller(0.99))
	caster := newActor("p1", world.Vec2{}, map[stats.StatID]float64{stats.StatAttackPower: 10, stats.StatMagicPower: 5})
	target := newActor("e1", world.Vec2{}, map[stats.StatID]float64{stats.StatDefense: 10, stats.StatMagicResist: 20})
	roster := testRoster{"p1": caster, "e1": target}

	resolve := func(id, targetID string) ExecutionResult {
		def, _ := catalog.Get(id)
		if err := exec.Resolve(caster, def, targetID, nil, epoch, roster); err != nil {
			t.Fatalf("resolve %s: %v", id, err)
		}
		results := exec.DrainResults()
		if len(results) != 1 {
			t.Fatalf("expected one result for %s, got %d", id, len(results))
		}
		return results[0]
	}

	if got := resolve("slash", "e1"); got.Amount != 25 || got.Effect != EffectDamage {
		t.Fatalf("expected physical 30-5=25, got %+v", got)
	}
	if got := resolve("flame", "e1"); got.Amount != 20 {
		t.Fatalf("expected elemental 30-10=20, got %+v", got)
	}
	if got := resolve("poke", "e1"); got.Amount != 1 {
		t.Fatalf("expected floor of 1, got %+v", got)
	}
	if target.Resources.Health != 54 {
		t.Fatalf("expected health 54, got %d", target.Resources.Health)
	}
	if got := resolve("mend", "e1"); got.Amount != 10 || got.Effect != EffectHeal || got.TargetHealth != 64 {
		t.Fatalf("expected heal of 10 to 64, got %+v", got)
	}
	if got := resolve("mend", ""); got.TargetID != "p1" {
		t.Fatalf("expected untargeted heal to land on caster, got %+v", got)
	}
}

func TestCriticalAndEvadeRolls(t *testing.T) {
	catalog := testCatalog(t, abilities.Definition{ID: "slash", Power: 1})
	def, _ := catalog.Get("slash")
	caster := newActor("p1", world.Vec2{}, map[stats.StatID]float64{stats.StatAttackPower: 20, stats.StatCritRating: 400})
	target := newActor("e1", world.Vec2{}, map[stats.StatID]float64{stats.StatEvadeRating: 200})
	roster := testRoster{"p1": caster, "e1": target}

	crit := NewExecutor(catalog, nil, nil, constRoller(0.2))
	crit.Resolve(caster, def, "e1", nil, epoch, roster)
	result := crit.DrainResults()[0]
	if result.Outcome != OutcomeHit || !result.Critical || result.Amount != 30 {
		t.Fatalf("expected 20*1.5 crit, got %+v", result)
	}

	evade := NewExecutor(catalog, nil, nil, constRoller(0.05))
	evade.Resolve(caster, def, "e1", nil, epoch, roster)
	result = evade.DrainResults()[0]
	if result.Outcome != OutcomeEvaded || result.Amount != 0 {
		t.Fatalf("expected evade, got %+v", result)
	}
}

func TestZeroCastTimeResolvesOnUpdate(t *testing.T) {
	catalog := testCatalog(t,
		abilities.Definition{ID: "smite", Power: 1000},
		abilities.Definition{ID: "fireball", Power: 1, Timing: abilities.TimingCast, CastTime: time.Second, Cost: abilities.Cost{Resource: abilities.ResourceMana, Amount: 10}},
	)
	exec := NewExecutor(catalog, nil, nil, constRoller(0.99))
	caster := newActor("p1", world.Vec2{}, map[stats.StatID]float64{stats.StatAttackPower: 1})
	target := newActor("e1", world.Vec2{}, nil)
	roster := testRoster{"p1": caster, "e1": target}

	exec.StartCast(actor.AbilityCastCommand{AbilityID: "smite", TargetID: "e1"}, caster, epoch)
	exec.UpdateCasting(epoch, roster)
	results := exec.DrainResults()
	if len(results) != 1 || !results[0].Killed || target.Alive() {
		t.Fatalf("expected instant kill, got %+v", results)
	}

	exec.StartCast(actor.AbilityCastCommand{AbilityID: "fireball", TargetID: "e1"}, caster, epoch)
	exec.UpdateCasting(epoch.Add(500*time.Millisecond), roster)
	if caster.Cast == nil || caster.Resources.Mana != 50 {
		t.Fatalf("expected cast pending and no mana spent yet")
	}
	if !exec.Interrupt(caster) {
		t.Fatalf("expected interrupt to cancel cast")
	}
	if results := exec.DrainResults(); len(results) != 1 || results[0].Outcome != OutcomeInterrupted {
		t.Fatalf("expected interrupted result, got %+v", results)
	}
}

func TestChannelDefersExecution(t *testing.T) {
	effects, err := status.NewCatalog([]status.Definition{{ID: "burn", Kind: status.KindDamageOverTime, Duration: 2 * time.Second, TickInterval: time.Second, Magnitude: 1}})
	if err != nil {
		t.Fatalf("effects: %v", err)
	}
	catalog := testCatalog(t, abilities.Definition{
		ID:                  "beam",
		Power:               1,
		Timing:              abilities.TimingChannel,
		ChannelDuration:     2 * time.Second,
		Cooldown:            5 * time.Second,
		AppliesStatusEffect: "burn",
	})
	exec := NewExecutor(catalog, effects, nil, constRoller(0.99))
	caster := newActor("p1", world.Vec2{}, map[stats.StatID]float64{stats.StatAttackPower: 10})
	target := newActor("e1", world.Vec2{}, nil)
	roster := testRoster{"p1": caster, "e1": target}

	def, _ := catalog.Get("beam")
	exec.Resolve(caster, def, "e1", nil, epoch, roster)
	if caster.Channel == nil {
		t.Fatalf("expected channel to start")
	}
	if !caster.OnCooldown("beam", epoch.Add(time.Second)) {
		t.Fatalf("expected cooldown committed at channel start")
	}
	exec.ClearResults()

	exec.UpdateChannels(epoch.Add(time.Second), roster)
	if len(exec.Results()) != 0 {
		t.Fatalf("expected channel still running")
	}
	exec.UpdateChannels(epoch.Add(2*time.Second), roster)
	results := exec.DrainResults()
	if len(results) != 1 || results[0].Amount != 10 || results[0].StatusEffect != "burn" {
		t.Fatalf("unexpected channel result %+v", results)
	}
	if !target.Effects.Has("burn") {
		t.Fatalf("expected status effect applied on hit")
	}
}

func TestResolveReportsUnpaidCost(t *testing.T) {
	catalog := testCatalog(t, abilities.Definition{ID: "bolt", Cost: abilities.Cost{Resource: abilities.ResourceMana, Amount: 500}})
	exec := NewExecutor(catalog, nil, nil, constRoller(0.99))
	caster := newActor("p1", world.Vec2{}, nil)
	def, _ := catalog.Get("bolt")
	err := exec.Resolve(caster, def, "", nil, epoch, testRoster{"p1": caster})
	if !errors.Is(err, ErrCostUnpaid) {
		t.Fatalf("expected ErrCostUnpaid, got %v", err)
	}
	if caster.OnCooldown("bolt", epoch) {
		t.Fatalf("expected no cooldown when cost fails")
	}
}
