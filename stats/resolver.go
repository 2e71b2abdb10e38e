package stats

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownStatBlock is returned when a stat block id is not registered.
var ErrUnknownStatBlock = errors.New("unknown stat block")

// StatBlockDefinition seeds an actor's base stats. PerLevel is added once
// for every level above one.
type StatBlockDefinition struct {
	ID       string             `yaml:"id" json:"id"`
	Base     map[string]float64 `yaml:"base" json:"base"`
	PerLevel map[string]float64 `yaml:"perLevel" json:"perLevel,omitempty"`
}

// GearBonus is one equipped item's contribution. Mul entries are factors,
// so 1.1 means +10%.
type GearBonus struct {
	Source string             `yaml:"source" json:"source"`
	Add    map[string]float64 `yaml:"add" json:"add,omitempty"`
	Mul    map[string]float64 `yaml:"mul" json:"mul,omitempty"`
}

// ValueSetFromMap converts named stats into a ValueSet.
func ValueSetFromMap(values map[string]float64) (ValueSet, error) {
	var out ValueSet
	for name, value := range values {
		id, ok := ParseStatID(name)
		if !ok {
			return ValueSet{}, fmt.Errorf("unknown stat %q", name)
		}
		out[id] = value
	}
	return out, nil
}

// Resolver builds stat components from registered stat blocks.
type Resolver struct {
	blocks map[string]StatBlockDefinition
}

// NewResolver validates and indexes the provided blocks.
func NewResolver(blocks []StatBlockDefinition) (*Resolver, error) {
	r := &Resolver{blocks: make(map[string]StatBlockDefinition, len(blocks))}
	for _, block := range blocks {
		if block.ID == "" {
			return nil, errors.New("stat block missing id")
		}
		if _, err := ValueSetFromMap(block.Base); err != nil {
			return nil, fmt.Errorf("stat block %s base: %w", block.ID, err)
		}
		if _, err := ValueSetFromMap(block.PerLevel); err != nil {
			return nil, fmt.Errorf("stat block %s perLevel: %w", block.ID, err)
		}
		r.blocks[block.ID] = block
	}
	return r, nil
}

// Blocks lists registered block ids in sorted order.
func (r *Resolver) Blocks() []string {
	ids := make([]string, 0, len(r.blocks))
	for id := range r.blocks {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Component builds a live component for blockID at level with gear applied
// on the equipment layer.
func (r *Resolver) Component(blockID string, level int, gear []GearBonus) (*Component, error) {
	block, ok := r.blocks[blockID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownStatBlock, blockID)
	}
	if level < 1 {
		level = 1
	}
	base, _ := ValueSetFromMap(block.Base)
	growth, _ := ValueSetFromMap(block.PerLevel)
	for i := range base {
		base[i] += growth[i] * float64(level-1)
	}
	comp := NewComponent(level, base)
	for _, item := range gear {
		delta := NewStatDelta()
		add, err := ValueSetFromMap(item.Add)
		if err != nil {
			return nil, fmt.Errorf("gear %s: %w", item.Source, err)
		}
		delta.Add = add
		for name, factor := range item.Mul {
			id, ok := ParseStatID(name)
			if !ok {
				return nil, fmt.Errorf("gear %s: unknown stat %q", item.Source, name)
			}
			delta.Mul[id] = factor
		}
		comp.Apply(CommandStatChange{
			Layer:  LayerEquipment,
			Source: SourceKey{Kind: SourceKindEquipment, ID: item.Source},
			Delta:  delta,
		})
	}
	comp.Resolve()
	return comp, nil
}

// Resolve returns the immutable snapshot for blockID at level with gear.
func (r *Resolver) Resolve(blockID string, level int, gear []GearBonus) (StatSnapshot, error) {
	comp, err := r.Component(blockID, level, gear)
	if err != nil {
		return StatSnapshot{}, err
	}
	return comp.Snapshot(), nil
}
