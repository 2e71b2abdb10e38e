package stats

import (
	"math"
	"sort"
)

// StatID enumerates the numeric attributes tracked for an actor.
type StatID uint8

const (
	StatMaxHealth StatID = iota
	StatMaxMana
	StatAttackPower
	StatMagicPower
	StatDefense
	StatMagicResist
	StatCritRating
	StatEvadeRating
	StatPrecision
	StatAwareness
	StatTranceGeneration
	StatTranceEfficiency

	StatCount
)

var statNames = [StatCount]string{
	StatMaxHealth:        "maxHealth",
	StatMaxMana:          "maxMana",
	StatAttackPower:      "attackPower",
	StatMagicPower:       "magicPower",
	StatDefense:          "defense",
	StatMagicResist:      "magicResist",
	StatCritRating:       "critRating",
	StatEvadeRating:      "evadeRating",
	StatPrecision:        "precision",
	StatAwareness:        "awareness",
	StatTranceGeneration: "tranceGeneration",
	StatTranceEfficiency: "tranceEfficiency",
}

// String returns the content-file name of the stat.
func (id StatID) String() string {
	if id >= StatCount {
		return "unknown"
	}
	return statNames[id]
}

// ParseStatID resolves a content-file stat name.
func ParseStatID(name string) (StatID, bool) {
	for id, candidate := range statNames {
		if candidate == name {
			return StatID(id), true
		}
	}
	return 0, false
}

// Layer describes the precedence order for additive and multiplicative modifiers.
type Layer uint8

const (
	LayerBase Layer = iota
	LayerEquipment
	LayerTemporary

	LayerCount
)

// SourceKind identifies the origin of a stat modifier for deterministic ordering.
type SourceKind uint8

const (
	SourceKindUnknown SourceKind = iota
	SourceKindStatBlock
	SourceKindEquipment
	SourceKindStatusEffect
)

// SourceKey uniquely identifies the origin of a modifier inside a layer.
type SourceKey struct {
	Kind SourceKind
	ID   string
}

// ValueSet stores a fixed vector of stat values.
type ValueSet [StatCount]float64

// OverrideValue represents a stat override entry.
type OverrideValue struct {
	Active bool
	Value  float64
}

// OverrideSet stores per-stat override entries.
type OverrideSet [StatCount]OverrideValue

// StatDelta captures additive, multiplicative, and override contributions supplied by a source.
type StatDelta struct {
	Add      ValueSet
	Mul      ValueSet
	Override OverrideSet
}

// NewStatDelta creates a delta with neutral multiplicative values.
func NewStatDelta() StatDelta {
	d := StatDelta{}
	d.Mul = unitValueSet()
	return d
}

// CommandStatChange represents an atomic mutation applied to the component.
type CommandStatChange struct {
	Layer  Layer
	Source SourceKey
	Delta  StatDelta
	Remove bool
}

type layerStack struct {
	add      ValueSet
	mul      ValueSet
	override OverrideSet
}

// Component owns the layered stat state for an actor and caches totals.
type Component struct {
	level   int
	layers  [LayerCount]layerStack
	sources map[Layer]map[SourceKey]StatDelta
	totals  ValueSet
	dirty   bool
	version uint64
}

// NewComponent constructs a component seeded with the provided base values.
func NewComponent(level int, base ValueSet) *Component {
	c := &Component{level: level}
	c.ensureInit()
	delta := NewStatDelta()
	delta.Add = base
	c.applySource(LayerBase, SourceKey{Kind: SourceKindStatBlock, ID: "base"}, delta)
	c.Resolve()
	return c
}

func (c *Component) ensureInit() {
	if c.sources != nil {
		return
	}
	c.sources = make(map[Layer]map[SourceKey]StatDelta)
	for layer := Layer(0); layer < LayerCount; layer++ {
		c.layers[layer].mul = unitValueSet()
	}
	c.dirty = true
}

// Apply mutates the component according to the provided command.
func (c *Component) Apply(change CommandStatChange) {
	if c == nil || change.Layer >= LayerCount {
		return
	}
	c.ensureInit()
	if change.Remove {
		if c.removeSource(change.Layer, change.Source) {
			c.dirty = true
		}
		return
	}
	if c.applySource(change.Layer, change.Source, change.Delta) {
		c.dirty = true
	}
}

// Resolve folds all layers in order when any source changed.
func (c *Component) Resolve() {
	if c == nil {
		return
	}
	c.ensureInit()
	if !c.dirty {
		return
	}
	total := c.layers[LayerBase].add
	multiplyValueSet(&total, c.layers[LayerBase].mul)
	applyOverrides(&total, c.layers[LayerBase].override)
	for layer := LayerEquipment; layer < LayerCount; layer++ {
		stack := &c.layers[layer]
		addValueSet(&total, stack.add)
		multiplyValueSet(&total, stack.mul)
		applyOverrides(&total, stack.override)
	}
	for i := range total {
		if total[i] < 0 {
			total[i] = 0
		}
	}
	c.totals = total
	c.version++
	c.dirty = false
}

// Get returns the resolved total for id.
func (c *Component) Get(id StatID) float64 {
	if c == nil || id >= StatCount {
		return 0
	}
	c.Resolve()
	return c.totals[id]
}

// Version increments each time totals are recomputed.
func (c *Component) Version() uint64 {
	if c == nil {
		return 0
	}
	return c.version
}

// Snapshot returns the resolved totals as an immutable value.
func (c *Component) Snapshot() StatSnapshot {
	if c == nil {
		return StatSnapshot{}
	}
	c.Resolve()
	return snapshotFromTotals(c.level, c.totals)
}

func (c *Component) applySource(layer Layer, key SourceKey, delta StatDelta) bool {
	entries := c.sources[layer]
	if entries == nil {
		entries = make(map[SourceKey]StatDelta)
		c.sources[layer] = entries
	}
	if current, ok := entries[key]; ok && sourcesEqual(current, delta) {
		return false
	}
	entries[key] = delta
	c.rebuildLayerStack(layer)
	return true
}

func (c *Component) removeSource(layer Layer, key SourceKey) bool {
	entries := c.sources[layer]
	if _, ok := entries[key]; !ok {
		return false
	}
	delete(entries, key)
	if len(entries) == 0 {
		delete(c.sources, layer)
	}
	c.rebuildLayerStack(layer)
	return true
}

func (c *Component) rebuildLayerStack(layer Layer) {
	stack := &c.layers[layer]
	stack.add = ValueSet{}
	stack.mul = unitValueSet()
	stack.override = OverrideSet{}
	entries := c.sources[layer]
	if len(entries) == 0 {
		return
	}
	keys := make([]SourceKey, 0, len(entries))
	for key := range entries {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Kind != keys[j].Kind {
			return keys[i].Kind < keys[j].Kind
		}
		return keys[i].ID < keys[j].ID
	})
	for _, key := range keys {
		src := entries[key]
		addValueSet(&stack.add, src.Add)
		multiplyValueSet(&stack.mul, src.Mul)
		mergeOverrides(&stack.override, src.Override)
	}
}

func addValueSet(target *ValueSet, other ValueSet) {
	for i := range target {
		target[i] += other[i]
	}
}

func multiplyValueSet(target *ValueSet, other ValueSet) {
	for i := range target {
		target[i] *= other[i]
	}
}

func applyOverrides(target *ValueSet, overrides OverrideSet) {
	for i := range overrides {
		if overrides[i].Active {
			target[i] = overrides[i].Value
		}
	}
}

func mergeOverrides(target *OverrideSet, other OverrideSet) {
	for i := range other {
		if other[i].Active {
			target[i] = other[i]
		}
	}
}

func unitValueSet() ValueSet {
	var vs ValueSet
	for i := range vs {
		vs[i] = 1
	}
	return vs
}

func sourcesEqual(a, b StatDelta) bool {
	for i := range a.Add {
		if math.Abs(a.Add[i]-b.Add[i]) > 1e-9 {
			return false
		}
		if math.Abs(a.Mul[i]-b.Mul[i]) > 1e-9 {
			return false
		}
		if a.Override[i].Active != b.Override[i].Active {
			return false
		}
		if a.Override[i].Active && math.Abs(a.Override[i].Value-b.Override[i].Value) > 1e-9 {
			return false
		}
	}
	return true
}
