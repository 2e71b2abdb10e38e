package status

import (
	"math"

	"github.com/jackandcarter/Adventure-2.0-sub000/stats"
)

// Target is the actor a container mutates through its hooks.
type Target interface {
	EntityID() string
	AdjustHealth(delta int) int
	StatComponent() *stats.Component
}

// Hooks reacts to an instance's lifecycle. Implementations hold no state of
// their own; everything they need is on the instance and its definition.
type Hooks interface {
	OnApplied(target Target, inst *Instance) int
	OnPeriodicTick(target Target, inst *Instance) int
	OnRemoved(target Target, inst *Instance) int
}

// StackHooks is implemented by hooks that react to stack count changes.
type StackHooks interface {
	OnStacksChanged(target Target, inst *Instance)
}

var defaultHooks = map[EffectKind]Hooks{
	KindDamageOverTime: periodicHealth{sign: -1},
	KindHealOverTime:   periodicHealth{sign: 1},
	KindStatModifier:   statModifier{},
	KindStun:           noHooks{},
}

type noHooks struct{}

func (noHooks) OnApplied(Target, *Instance) int      { return 0 }
func (noHooks) OnPeriodicTick(Target, *Instance) int { return 0 }
func (noHooks) OnRemoved(Target, *Instance) int      { return 0 }

type periodicHealth struct {
	sign int
}

func (periodicHealth) OnApplied(Target, *Instance) int { return 0 }

func (h periodicHealth) OnPeriodicTick(target Target, inst *Instance) int {
	amount := int(math.Round(inst.Definition.Magnitude * float64(inst.Stacks)))
	if amount <= 0 {
		return 0
	}
	return target.AdjustHealth(h.sign * amount)
}

func (periodicHealth) OnRemoved(Target, *Instance) int { return 0 }

type statModifier struct{}

func (m statModifier) OnApplied(target Target, inst *Instance) int {
	m.OnStacksChanged(target, inst)
	return 0
}

func (statModifier) OnPeriodicTick(Target, *Instance) int { return 0 }

func (statModifier) OnRemoved(target Target, inst *Instance) int {
	comp := target.StatComponent()
	if comp == nil {
		return 0
	}
	comp.Apply(stats.CommandStatChange{
		Layer:  stats.LayerTemporary,
		Source: modifierSource(inst),
		Remove: true,
	})
	return 0
}

func (statModifier) OnStacksChanged(target Target, inst *Instance) {
	comp := target.StatComponent()
	if comp == nil {
		return
	}
	delta := stats.NewStatDelta()
	for name, value := range inst.Definition.Modifiers {
		if id, ok := stats.ParseStatID(name); ok {
			delta.Add[id] = value * float64(inst.Stacks)
		}
	}
	comp.Apply(stats.CommandStatChange{
		Layer:  stats.LayerTemporary,
		Source: modifierSource(inst),
		Delta:  delta,
	})
}

func modifierSource(inst *Instance) stats.SourceKey {
	return stats.SourceKey{Kind: stats.SourceKindStatusEffect, ID: inst.Definition.ID}
}
