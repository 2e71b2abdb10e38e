package status

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// EffectKind selects the hook set that drives an effect.
type EffectKind string

const (
	KindDamageOverTime EffectKind = "damage_over_time"
	KindHealOverTime   EffectKind = "heal_over_time"
	KindStatModifier   EffectKind = "stat_modifier"
	KindStun           EffectKind = "stun"
)

// StackBehavior decides what re-applying an active effect does.
type StackBehavior string

const (
	StackRefresh StackBehavior = "refresh"
	StackExtend  StackBehavior = "extend"
	StackStack   StackBehavior = "stack"
)

// Definition is the immutable rule for one buff or debuff.
type Definition struct {
	ID            string             `yaml:"id" json:"id"`
	Kind          EffectKind         `yaml:"kind" json:"kind"`
	Duration      time.Duration      `yaml:"duration" json:"duration"`
	TickInterval  time.Duration      `yaml:"tickInterval" json:"tickInterval,omitempty"`
	MaxStacks     int                `yaml:"maxStacks" json:"maxStacks,omitempty"`
	StackBehavior StackBehavior      `yaml:"stackBehavior" json:"stackBehavior,omitempty"`
	DispelTypes   []string           `yaml:"dispelTypes" json:"dispelTypes,omitempty"`
	Magnitude     float64            `yaml:"magnitude" json:"magnitude,omitempty"`
	Modifiers     map[string]float64 `yaml:"modifiers" json:"modifiers,omitempty"`
}

// Validate checks the definition for values the container cannot run.
func (d *Definition) Validate() error {
	if d.ID == "" {
		return errors.New("status effect missing id")
	}
	if d.Duration <= 0 {
		return fmt.Errorf("status effect %s: duration must be positive", d.ID)
	}
	if d.TickInterval < 0 {
		return fmt.Errorf("status effect %s: negative tick interval", d.ID)
	}
	if _, ok := defaultHooks[d.Kind]; !ok {
		return fmt.Errorf("status effect %s: unknown kind %q", d.ID, d.Kind)
	}
	switch d.StackBehavior {
	case "", StackRefresh, StackExtend, StackStack:
	default:
		return fmt.Errorf("status effect %s: unknown stack behavior %q", d.ID, d.StackBehavior)
	}
	return nil
}

func (d *Definition) maxStacks() int {
	if d.MaxStacks < 1 {
		return 1
	}
	return d.MaxStacks
}

func (d *Definition) dispelledBy(dispelType string) bool {
	for _, candidate := range d.DispelTypes {
		if candidate == dispelType {
			return true
		}
	}
	return false
}

// Catalog indexes status effect definitions by id.
type Catalog struct {
	defs map[string]*Definition
}

// NewCatalog validates and indexes defs.
func NewCatalog(defs []Definition) (*Catalog, error) {
	c := &Catalog{defs: make(map[string]*Definition, len(defs))}
	for i := range defs {
		def := defs[i]
		if err := def.Validate(); err != nil {
			return nil, err
		}
		if _, dup := c.defs[def.ID]; dup {
			return nil, fmt.Errorf("duplicate status effect %s", def.ID)
		}
		c.defs[def.ID] = &def
	}
	return c, nil
}

// Get returns the definition for id.
func (c *Catalog) Get(id string) (*Definition, bool) {
	if c == nil {
		return nil, false
	}
	def, ok := c.defs[id]
	return def, ok
}

// IDs lists every registered id in sorted order.
func (c *Catalog) IDs() []string {
	if c == nil {
		return nil
	}
	ids := make([]string, 0, len(c.defs))
	for id := range c.defs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
