package abilities

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// Timing selects when an ability resolves.
type Timing string

const (
	TimingInstant Timing = "instant"
	TimingCast    Timing = "cast"
	TimingChannel Timing = "channel"
)

// Category separates ordinary abilities from trance-gated ones.
type Category string

const (
	CategoryStandard Category = "standard"
	CategoryTrance   Category = "trance"
)

// Element drives the scaling and mitigation stats used when resolving.
type Element string

const (
	ElementPhysical Element = "physical"
	ElementFire     Element = "fire"
	ElementFrost    Element = "frost"
	ElementShadow   Element = "shadow"
	ElementArcane   Element = "arcane"
	ElementHealing  Element = "healing"
)

// IsElemental reports whether e is mitigated by magic resist.
func (e Element) IsElemental() bool {
	switch e {
	case ElementFire, ElementFrost, ElementShadow, ElementArcane:
		return true
	}
	return false
}

// TranceBehavior modifies how a resolved cast executes.
type TranceBehavior string

const (
	TranceNone       TranceBehavior = "none"
	TranceDoubleCast TranceBehavior = "double_cast"
)

// ResourceType names the pool an ability cost is paid from.
type ResourceType string

const (
	ResourceNone   ResourceType = "none"
	ResourceMana   ResourceType = "mana"
	ResourceTrance ResourceType = "trance"
)

// Cost is the resource charge for one cast.
type Cost struct {
	Resource ResourceType `yaml:"resource" json:"resource"`
	Amount   float64      `yaml:"amount" json:"amount"`
}

// Definition is the immutable rule set for one ability.
type Definition struct {
	ID                  string         `yaml:"id" json:"id"`
	Name                string         `yaml:"name" json:"name,omitempty"`
	Range               float64        `yaml:"range" json:"range"`
	Cooldown            time.Duration  `yaml:"cooldown" json:"cooldown"`
	Timing              Timing         `yaml:"timing" json:"timing"`
	CastTime            time.Duration  `yaml:"castTime" json:"castTime,omitempty"`
	ChannelDuration     time.Duration  `yaml:"channelDuration" json:"channelDuration,omitempty"`
	Cost                Cost           `yaml:"cost" json:"cost"`
	Category            Category       `yaml:"category" json:"category"`
	MinimumTrance       float64        `yaml:"minimumTrance" json:"minimumTrance,omitempty"`
	Element             Element        `yaml:"element" json:"element"`
	Power               float64        `yaml:"power" json:"power"`
	TranceBehavior      TranceBehavior `yaml:"tranceBehavior" json:"tranceBehavior,omitempty"`
	RequiresLineOfSight bool           `yaml:"requiresLineOfSight" json:"requiresLineOfSight,omitempty"`
	AppliesStatusEffect string         `yaml:"appliesStatusEffect" json:"appliesStatusEffect,omitempty"`
}

// IsHealing reports whether the ability restores health.
func (d *Definition) IsHealing() bool {
	return d.Element == ElementHealing
}

// IsChannel reports whether the ability resolves as a channel.
func (d *Definition) IsChannel() bool {
	return d.Timing == TimingChannel && d.ChannelDuration > 0
}

// TranceCost returns the trance charged by the cost, or zero.
func (d *Definition) TranceCost() float64 {
	if d.Cost.Resource == ResourceTrance {
		return d.Cost.Amount
	}
	return 0
}

func (d *Definition) normalize() error {
	if d.ID == "" {
		return errors.New("ability missing id")
	}
	if d.Timing == "" {
		d.Timing = TimingInstant
	}
	if d.Category == "" {
		d.Category = CategoryStandard
	}
	if d.Element == "" {
		d.Element = ElementPhysical
	}
	if d.TranceBehavior == "" {
		d.TranceBehavior = TranceNone
	}
	if d.Cost.Resource == "" {
		d.Cost.Resource = ResourceNone
	}
	switch d.Cost.Resource {
	case ResourceNone, ResourceMana, ResourceTrance:
	default:
		return fmt.Errorf("ability %s: unknown cost resource %q", d.ID, d.Cost.Resource)
	}
	if d.Cost.Amount < 0 || d.Range < 0 || d.Cooldown < 0 || d.CastTime < 0 || d.ChannelDuration < 0 {
		return fmt.Errorf("ability %s: negative value", d.ID)
	}
	switch d.TranceBehavior {
	case TranceNone, TranceDoubleCast:
	default:
		return fmt.Errorf("ability %s: unknown trance behavior %q", d.ID, d.TranceBehavior)
	}
	return nil
}

// Catalog is the read-only set of abilities known to a dungeon.
type Catalog struct {
	defs map[string]*Definition
}

// NewCatalog normalizes and indexes defs.
func NewCatalog(defs []Definition) (*Catalog, error) {
	c := &Catalog{defs: make(map[string]*Definition, len(defs))}
	for i := range defs {
		def := defs[i]
		if err := def.normalize(); err != nil {
			return nil, err
		}
		if _, dup := c.defs[def.ID]; dup {
			return nil, fmt.Errorf("duplicate ability %s", def.ID)
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

// IDs lists every ability id in sorted order.
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
