package combat

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/jackandcarter/Adventure-2.0-sub000/internal/abilities"
	"github.com/jackandcarter/Adventure-2.0-sub000/internal/actor"
	"github.com/jackandcarter/Adventure-2.0-sub000/internal/status"
	"github.com/jackandcarter/Adventure-2.0-sub000/internal/world"
	"github.com/jackandcarter/Adventure-2.0-sub000/stats"
)

const (
	mitigationFactor       = 0.5
	casterTranceGainFactor = 0.05
	targetTranceGainFactor = 0.025
)

// ErrCostUnpaid is returned by Resolve when the caster cannot cover the cost.
var ErrCostUnpaid = errors.New("ability cost unpaid")

// Roster looks up actors in the room an executor serves.
type Roster interface {
	Actor(id string) (*actor.Actor, bool)
	Actors() []*actor.Actor
}

// Roller supplies uniform values in [0, 1) for crit and evade rolls.
type Roller interface {
	Float64() float64
}

// Executor validates and resolves ability casts for one room. It holds only
// the catalogs, the layout, a random source and its pending results.
type Executor struct {
	abilities *abilities.Catalog
	effects   *status.Catalog
	layout    *world.RoomLayout
	rng       Roller
	results   []ExecutionResult
}

// NewExecutor builds an executor. A nil rng uses a time-seeded PCG source.
func NewExecutor(catalog *abilities.Catalog, effects *status.Catalog, layout *world.RoomLayout, rng Roller) *Executor {
	if rng == nil {
		seed := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed>>1))
	}
	return &Executor{abilities: catalog, effects: effects, layout: layout, rng: rng}
}

// Ability returns the definition for id.
func (e *Executor) Ability(id string) (*abilities.Definition, bool) {
	return e.abilities.Get(id)
}

// Validate checks whether caster may cast cmd at now. Checks run in a fixed
// order and the first failure wins.
func (e *Executor) Validate(cmd actor.AbilityCastCommand, caster, target *actor.Actor, now time.Time) (bool, Denial) {
	def, ok := e.abilities.Get(cmd.AbilityID)
	if !ok {
		return false, DenialUnknownAbility
	}
	if caster.OnCooldown(def.ID, now) {
		return false, DenialCooldown
	}
	if def.Category == abilities.CategoryTrance {
		gate := math.Max(def.MinimumTrance, def.TranceCost())
		if caster.Trance.Current < gate {
			return false, DenialTranceLocked
		}
	}
	if !canAfford(caster, def.Cost) {
		return false, DenialResources
	}
	pos, hasPos := targetPosition(target, cmd.TargetPosition)
	if hasPos && def.Range > 0 && world.Distance(caster.Position, pos) > def.Range {
		return false, DenialRange
	}
	if hasPos && def.RequiresLineOfSight && e.layout != nil && !e.layout.HasLineOfSight(caster.Position, pos) {
		return false, DenialLineOfSight
	}
	return true, DenialNone
}

// StartCast records a cast that completes after the ability's cast time.
// Zero cast time completes on the next UpdateCasting call.
func (e *Executor) StartCast(cmd actor.AbilityCastCommand, caster *actor.Actor, now time.Time) bool {
	def, ok := e.abilities.Get(cmd.AbilityID)
	if !ok {
		return false
	}
	caster.Cast = &actor.CastState{
		Ability:        def,
		StartedAt:      now,
		CompletesAt:    now.Add(def.CastTime),
		TargetID:       cmd.TargetID,
		TargetPosition: cmd.TargetPosition,
	}
	return true
}

// UpdateCasting resolves every cast whose completion time has been reached.
func (e *Executor) UpdateCasting(now time.Time, roster Roster) {
	for _, caster := range roster.Actors() {
		cast := caster.Cast
		if cast == nil || now.Before(cast.CompletesAt) {
			continue
		}
		caster.Cast = nil
		if !caster.Alive() {
			continue
		}
		if err := e.Resolve(caster, cast.Ability, cast.TargetID, cast.TargetPosition, now, roster); err != nil {
			e.results = append(e.results, ExecutionResult{
				AbilityID: cast.Ability.ID,
				CasterID:  caster.ID,
				TargetID:  cast.TargetID,
				Outcome:   OutcomeFizzled,
			})
		}
	}
}

// UpdateChannels executes every channel whose duration has elapsed.
func (e *Executor) UpdateChannels(now time.Time, roster Roster) {
	for _, caster := range roster.Actors() {
		channel := caster.Channel
		if channel == nil || now.Before(channel.CompletesAt) {
			continue
		}
		caster.Channel = nil
		if !caster.Alive() {
			continue
		}
		e.execute(channel.Ability, caster, channel.TargetID, roster, 1)
	}
}

// Resolve commits the cost and cooldown, then executes the ability or begins
// its channel. A double cast executes twice on a single charge.
func (e *Executor) Resolve(caster *actor.Actor, def *abilities.Definition, targetID string, targetPos *world.Vec2, now time.Time, roster Roster) error {
	if err := commitCost(caster, def.Cost); err != nil {
		return err
	}
	caster.Cooldowns[def.ID] = now.Add(def.Cooldown)

	if def.IsChannel() {
		caster.Channel = &actor.ChannelState{
			Ability:        def,
			StartedAt:      now,
			CompletesAt:    now.Add(def.ChannelDuration),
			TargetID:       targetID,
			TargetPosition: targetPos,
			Cost:           def.Cost,
		}
		e.results = append(e.results, ExecutionResult{
			AbilityID: def.ID,
			CasterID:  caster.ID,
			TargetID:  targetID,
			Outcome:   OutcomeChanneling,
		})
		return nil
	}

	switch def.TranceBehavior {
	case abilities.TranceDoubleCast:
		e.execute(def, caster, targetID, roster, 1)
		e.execute(def, caster, targetID, roster, 2)
	default:
		e.execute(def, caster, targetID, roster, 1)
	}
	return nil
}

// Interrupt cancels a pending cast with a cast time or an active channel.
func (e *Executor) Interrupt(caster *actor.Actor) bool {
	var def *abilities.Definition
	var targetID string
	switch {
	case caster.Cast != nil && caster.Cast.Ability.CastTime > 0:
		def, targetID = caster.Cast.Ability, caster.Cast.TargetID
		caster.Cast = nil
	case caster.Channel != nil:
		def, targetID = caster.Channel.Ability, caster.Channel.TargetID
		caster.Channel = nil
	default:
		return false
	}
	e.results = append(e.results, ExecutionResult{
		AbilityID: def.ID,
		CasterID:  caster.ID,
		TargetID:  targetID,
		Outcome:   OutcomeInterrupted,
	})
	return true
}

// Results returns the buffered execution results.
func (e *Executor) Results() []ExecutionResult {
	return e.results
}

// ClearResults empties the result buffer.
func (e *Executor) ClearResults() {
	e.results = e.results[:0]
}

// DrainResults returns a copy of the buffer and clears it.
func (e *Executor) DrainResults() []ExecutionResult {
	if len(e.results) == 0 {
		return nil
	}
	out := make([]ExecutionResult, len(e.results))
	copy(out, e.results)
	e.ClearResults()
	return out
}

func (e *Executor) execute(def *abilities.Definition, caster *actor.Actor, targetID string, roster Roster, execution int) {
	result := ExecutionResult{
		AbilityID: def.ID,
		CasterID:  caster.ID,
		TargetID:  targetID,
		Execution: execution,
		Effect:    EffectDamage,
	}
	if def.IsHealing() {
		result.Effect = EffectHeal
		if targetID == "" {
			result.TargetID = caster.ID
		}
	}
	target, ok := roster.Actor(result.TargetID)
	if !ok || !target.Alive() {
		result.Outcome = OutcomeNoTarget
		e.results = append(e.results, result)
		return
	}

	casterStats := caster.Snapshot()
	targetStats := target.Snapshot()
	derived := stats.Derive(casterStats)

	if result.Effect == EffectDamage && e.rng.Float64() < stats.EvadeChance(targetStats) {
		result.Outcome = OutcomeEvaded
		result.TargetHealth = target.Resources.Health
		e.results = append(e.results, result)
		return
	}

	amount := baseAmount(def, casterStats, targetStats)
	if e.rng.Float64() < derived.CriticalChance {
		result.Critical = true
		amount = int(math.Round(float64(amount) * derived.CriticalDamageMultiplier))
	}

	if result.Effect == EffectHeal {
		target.AdjustHealth(amount)
	} else {
		target.AdjustHealth(-amount)
		magnitude := float64(amount)
		caster.Trance.Gain(magnitude * casterTranceGainFactor * (1 + casterStats.TranceGenerationBonus))
		target.Trance.Gain(magnitude * targetTranceGainFactor * (1 + targetStats.TranceGenerationBonus))
	}

	if def.AppliesStatusEffect != "" && target.Alive() {
		if effect, ok := e.effects.Get(def.AppliesStatusEffect); ok {
			target.Effects.Apply(effect, caster.ID)
			result.StatusEffect = effect.ID
		}
	}

	result.Outcome = OutcomeHit
	result.Amount = amount
	result.TargetHealth = target.Resources.Health
	result.Killed = result.Effect == EffectDamage && !target.Alive()
	e.results = append(e.results, result)
}

// baseAmount is max(1, round(power*scaling - mitigation*0.5)).
func baseAmount(def *abilities.Definition, caster, target stats.StatSnapshot) int {
	scaling := caster.AttackPower
	mitigation := 0.0
	switch {
	case def.IsHealing():
		scaling = caster.MagicPower
	case def.Element.IsElemental():
		mitigation = target.MagicResist
	default:
		mitigation = target.Defense
	}
	raw := def.Power*scaling - mitigation*mitigationFactor
	return int(math.Max(1, math.Round(raw)))
}

func canAfford(caster *actor.Actor, cost abilities.Cost) bool {
	switch cost.Resource {
	case abilities.ResourceMana:
		return caster.Resources.CanSpendMana(manaAmount(cost))
	case abilities.ResourceTrance:
		return caster.Trance.CanSpend(cost.Amount)
	default:
		return true
	}
}

func commitCost(caster *actor.Actor, cost abilities.Cost) error {
	switch cost.Resource {
	case abilities.ResourceMana:
		if !caster.Resources.SpendMana(manaAmount(cost)) {
			return fmt.Errorf("%w: mana %d < %d", ErrCostUnpaid, caster.Resources.Mana, manaAmount(cost))
		}
	case abilities.ResourceTrance:
		if err := caster.Trance.Spend(cost.Amount); err != nil {
			return fmt.Errorf("%w: %w", ErrCostUnpaid, err)
		}
	}
	return nil
}

func manaAmount(cost abilities.Cost) int {
	return int(math.Ceil(cost.Amount))
}

func targetPosition(target *actor.Actor, fallback *world.Vec2) (world.Vec2, bool) {
	if target != nil {
		return target.Position, true
	}
	if fallback != nil {
		return *fallback, true
	}
	return world.Vec2{}, false
}
